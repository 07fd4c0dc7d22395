// Package logging provides structured logging configuration using log/slog.
//
// Request handlers get a logger carrying chi's request id; background job
// attempts get one carrying the job's file path, owner and attempt number.
// Both travel in the context so code deep in the import pipeline can log
// with the right correlation fields without having them passed in.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type jobKey struct{}

type jobFields struct {
	filePath string
	ownerID  int64
	attempt  int
}

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) *slog.Logger {
	logger := New(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextWithJob marks ctx as belonging to one attempt of an import job.
func ContextWithJob(ctx context.Context, filePath string, ownerID int64, attempt int) context.Context {
	return context.WithValue(ctx, jobKey{}, jobFields{filePath: filePath, ownerID: ownerID, attempt: attempt})
}

// FromContext returns the default logger enriched with the request id and
// job fields found in ctx.
func FromContext(ctx context.Context) *slog.Logger {
	return enrich(ctx, slog.Default())
}

// Enrich adds the request id and job fields found in ctx to logger.
func Enrich(ctx context.Context, logger *slog.Logger) *slog.Logger {
	return enrich(ctx, logger)
}

func enrich(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if jf, ok := ctx.Value(jobKey{}).(jobFields); ok {
		logger = logger.With(
			"file_path", jf.filePath,
			"owner_user_id", jf.ownerID,
			"attempt", jf.attempt,
		)
	}
	return logger
}

// WithFields returns a logger with additional structured fields.
//
//	runLogger := logging.WithFields(ctx, "rows", len(lines))
//	runLogger.Info("import started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}

// WithJob returns the default logger tagged with a job attempt.
func WithJob(ctx context.Context, filePath string, ownerID int64, attempt int) *slog.Logger {
	return FromContext(ContextWithJob(ctx, filePath, ownerID, attempt))
}
