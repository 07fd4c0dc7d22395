package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		parts := splitList(value)
		switch field.Type().Elem() {
		case reflect.TypeOf(""):
			field.Set(reflect.ValueOf(parts))
		case reflect.TypeOf(time.Duration(0)):
			result := make([]time.Duration, 0, len(parts))
			for _, p := range parts {
				d, err := time.ParseDuration(p)
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", p, err)
				}
				result = append(result, d)
			}
			field.Set(reflect.ValueOf(result))
		default:
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// splitList splits a comma-separated value, trimming whitespace and
// dropping empty items.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	switch c.Database.Driver {
	case DatabasePostgres:
		if c.Database.URL == "" {
			errs = append(errs, "DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case DatabaseMemory:
		if c.Queue.Driver == QueueAMQP {
			errs = append(errs, "DB_DRIVER=memory requires QUEUE_DRIVER=local")
		}
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER (%q) must be one of: postgres, memory", c.Database.Driver))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Queue validation
	switch c.Queue.Driver {
	case QueueLocal:
		if c.Queue.Workers <= 0 {
			errs = append(errs, "QUEUE_WORKERS must be positive")
		}
		if c.Queue.Buffer <= 0 {
			errs = append(errs, "QUEUE_BUFFER must be positive")
		}
	case QueueAMQP:
		if c.Queue.URL == "" {
			errs = append(errs, "AMQP_URL is required when QUEUE_DRIVER=amqp")
		}
		if c.Queue.Name == "" {
			errs = append(errs, "QUEUE_NAME is required when QUEUE_DRIVER=amqp")
		}
		if c.Queue.Prefetch <= 0 {
			errs = append(errs, "QUEUE_PREFETCH must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("QUEUE_DRIVER (%q) must be one of: local, amqp", c.Queue.Driver))
	}
	if c.Queue.MaxAttempts <= 0 {
		errs = append(errs, "JOB_MAX_ATTEMPTS must be positive")
	}
	if c.Queue.Timeout <= 0 {
		errs = append(errs, "JOB_TIMEOUT must be positive")
	}
	for _, d := range c.Queue.Backoff {
		if d < 0 {
			errs = append(errs, "JOB_BACKOFF entries must be non-negative")
			break
		}
	}

	// Storage validation
	switch c.Storage.Driver {
	case StorageFS:
		if c.Storage.Root == "" {
			errs = append(errs, "STORAGE_ROOT is required when STORAGE_DRIVER=fs")
		}
	case StorageGCS:
		if c.Storage.Bucket == "" {
			errs = append(errs, "GCS_BUCKET is required when STORAGE_DRIVER=gcs")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORAGE_DRIVER (%q) must be one of: fs, gcs", c.Storage.Driver))
	}

	// Mail validation
	switch c.Mail.Driver {
	case MailLog:
	case MailSendGrid:
		if c.Mail.APIKey == "" {
			errs = append(errs, "SENDGRID_API_KEY is required when MAIL_DRIVER=sendgrid")
		}
		if c.Mail.From == "" {
			errs = append(errs, "MAIL_FROM is required when MAIL_DRIVER=sendgrid")
		}
	default:
		errs = append(errs, fmt.Sprintf("MAIL_DRIVER (%q) must be one of: log, sendgrid", c.Mail.Driver))
	}

	// Import validation
	if c.Import.MaxUploadSize <= 0 {
		errs = append(errs, "IMPORT_MAX_UPLOAD_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		errs = append(errs, "IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWait <= 0 {
		errs = append(errs, "IMPORT_MAX_WAIT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Connection strings and API keys are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {Driver: %q, URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.Driver, c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Redis: {Enabled: %v}, ", c.Redis.URL != ""))
	b.WriteString(fmt.Sprintf("Queue: {Driver: %q, Workers: %d, Name: %q, MaxAttempts: %d, Timeout: %s, Backoff: %v}, ",
		c.Queue.Driver, c.Queue.Workers, c.Queue.Name, c.Queue.MaxAttempts, c.Queue.Timeout, c.Queue.Backoff))
	b.WriteString(fmt.Sprintf("Storage: {Driver: %q, Root: %q, Bucket: %q}, ",
		c.Storage.Driver, c.Storage.Root, c.Storage.Bucket))
	b.WriteString(fmt.Sprintf("Mail: {Driver: %q, From: %q, APIKey: %s}, ",
		c.Mail.Driver, c.Mail.From, mask(c.Mail.APIKey)))
	b.WriteString(fmt.Sprintf("Import: {MaxUploadSize: %d, MaxConcurrent: %d}, ",
		c.Import.MaxUploadSize, c.Import.MaxConcurrent))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
