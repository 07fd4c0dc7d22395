// Package app assembles the import pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/EmployeeImport/internal/blob"
	"github.com/JonMunkholm/EmployeeImport/internal/cache"
	"github.com/JonMunkholm/EmployeeImport/internal/config"
	"github.com/JonMunkholm/EmployeeImport/internal/core"
	"github.com/JonMunkholm/EmployeeImport/internal/employee"
	"github.com/JonMunkholm/EmployeeImport/internal/jobs"
	"github.com/JonMunkholm/EmployeeImport/internal/mail"
	"github.com/JonMunkholm/EmployeeImport/internal/metrics"
	"github.com/JonMunkholm/EmployeeImport/internal/web"
)

// BlobStore is what the importer reads and the upload endpoint writes.
type BlobStore interface {
	core.BlobStore
	Put(ctx context.Context, key string, r io.Reader) error
}

// EmployeeStore is the persistence behind an import run.
type EmployeeStore interface {
	core.EmployeeCreator
	core.UsageChecker
	core.UserFinder
}

// App holds the shared infrastructure of both commands.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool // nil with DB_DRIVER=memory
	Redis    *cache.Client
	Blobs    BlobStore
	Store    EmployeeStore
	Importer *core.Importer
	Executor *jobs.Executor
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	closers []func() error
}

// New connects to every configured dependency and builds the executor.
// Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	if err := a.connectDatabase(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.connectRedis(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openBlobs(ctx); err != nil {
		a.Close()
		return nil, err
	}

	notifier, err := a.newNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	var invalidator employee.Invalidator
	if a.Redis != nil {
		invalidator = cache.NewListInvalidator(a.Redis)
	}

	a.Importer, err = core.NewImporter(core.Deps{
		Blobs:    a.Blobs,
		Creator:  employee.NewService(a.Store, invalidator, logger),
		Usage:    a.Store,
		Notifier: notifier,
		Users:    a.Store,
	}, core.WithLogger(logger), core.WithRecorder(a.Metrics))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Executor, err = jobs.NewExecutor(a.policy(), a.handle, a.notifyFailure,
		jobs.WithAttemptRecorder(a.Metrics), jobs.WithExecutorLogger(logger))
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// UseStorageEmulator points the storage library at a GCS emulator such as
// fake-gcs-server. It sets STORAGE_EMULATOR_HOST for the whole process, so
// commands call it once before New. An empty host does nothing.
func UseStorageEmulator(host string) error {
	if host == "" {
		return nil
	}
	if err := os.Setenv("STORAGE_EMULATOR_HOST", strings.TrimRight(host, "/")); err != nil {
		return fmt.Errorf("set storage emulator host: %w", err)
	}
	return nil
}

func (a *App) connectDatabase(ctx context.Context) error {
	db := a.Config.Database
	if db.Driver == config.DatabaseMemory {
		return a.openMemoryStore(ctx)
	}

	poolConfig, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	a.Pool, err = employee.Connect(ctx, poolConfig)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error { a.Pool.Close(); return nil })
	store := employee.NewPostgresStore(a.Pool)
	a.Store = store

	if db.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	a.Logger.Info("connected to database", "max_conns", db.MaxConns)
	return nil
}

func (a *App) openMemoryStore(ctx context.Context) error {
	store := employee.NewMemoryStore()
	ids, err := employee.SeedUsers(ctx, store, a.Config.Database.SeedUsers)
	if err != nil {
		return err
	}
	a.Store = store
	a.Logger.Warn("using in-memory employee store, data is lost on restart", "seeded_users", ids)
	return nil
}

func (a *App) connectRedis(ctx context.Context) error {
	r := a.Config.Redis
	client, err := cache.New(ctx, cache.Options{
		URL:          r.URL,
		PoolSize:     r.PoolSize,
		DialTimeout:  r.DialTimeout,
		ReadTimeout:  r.ReadTimeout,
		WriteTimeout: r.WriteTimeout,
	})
	if err != nil {
		return err
	}
	if client == nil {
		a.Logger.Info("redis not configured, list cache invalidation disabled")
		return nil
	}
	a.Redis = client
	a.closers = append(a.closers, client.Close)
	return nil
}

func (a *App) openBlobs(ctx context.Context) error {
	s := a.Config.Storage
	switch s.Driver {
	case config.StorageGCS:
		client, err := blob.NewGCSClient(ctx, blob.GCSConfig{
			Bucket:          s.Bucket,
			Prefix:          s.Prefix,
			CredentialsFile: s.CredentialsFile,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.Blobs = blob.NewGCSStore(client, s.Bucket, s.Prefix)
	default:
		store, err := blob.NewDiskStore(s.Root)
		if err != nil {
			return err
		}
		a.Blobs = store
	}
	a.Logger.Info("blob storage ready", "driver", s.Driver)
	return nil
}

func (a *App) newNotifier() (core.Notifier, error) {
	m := a.Config.Mail
	if m.Driver != config.MailSendGrid {
		return mail.NewLogSender(a.Logger), nil
	}
	return mail.NewSendGrid(mail.Config{
		APIKey:     m.APIKey,
		BaseURL:    m.BaseURL,
		FromEmail:  m.From,
		FromName:   m.FromName,
		Timeout:    m.Timeout,
		MaxRetries: m.MaxRetries,
	}, a.Logger)
}

func (a *App) policy() jobs.Policy {
	q := a.Config.Queue
	return jobs.Policy{MaxAttempts: q.MaxAttempts, Timeout: q.Timeout, Backoff: q.Backoff}
}

// handle runs one import attempt.
func (a *App) handle(ctx context.Context, job jobs.ImportJob) error {
	_, err := a.Importer.Run(ctx, job.FilePath, job.OwnerUserID)
	return err
}

// notifyFailure tells the owner that every attempt failed.
func (a *App) notifyFailure(ctx context.Context, job jobs.ImportJob, cause error) error {
	return a.Importer.NotifyFailure(ctx, job.FilePath, job.OwnerUserID, cause)
}

// HealthChecks returns the readiness checks for /healthz.
func (a *App) HealthChecks() map[string]web.HealthCheck {
	checks := map[string]web.HealthCheck{}
	if a.Pool != nil {
		checks["database"] = func(ctx context.Context) error { return a.Pool.Ping(ctx) }
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis.Health
	}
	return checks
}

// MetricsHandler serves the app registry.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
}

// Close releases every connection in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
