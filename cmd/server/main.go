// Command server exposes the employee import API. With QUEUE_DRIVER=local
// it also runs the import workers in process; with QUEUE_DRIVER=amqp it
// publishes jobs to RabbitMQ for cmd/worker.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/EmployeeImport/internal/app"
	"github.com/JonMunkholm/EmployeeImport/internal/config"
	"github.com/JonMunkholm/EmployeeImport/internal/jobs"
	"github.com/JonMunkholm/EmployeeImport/internal/logging"
	"github.com/JonMunkholm/EmployeeImport/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := app.UseStorageEmulator(cfg.Storage.EmulatorHost); err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	var dispatcher jobs.Dispatcher
	switch cfg.Queue.Driver {
	case config.QueueAMQP:
		conn, ch, err := jobs.Connect(cfg.Queue.URL, cfg.Queue.Name, cfg.Queue.Prefetch)
		if err != nil {
			return err
		}
		defer conn.Close()
		defer ch.Close()
		dispatcher = jobs.NewAMQPQueue(ch, cfg.Queue.Name)
		logger.Info("publishing import jobs to rabbitmq", "queue", cfg.Queue.Name)
	default:
		q := jobs.NewLocalQueue(a.Executor, cfg.Queue.Workers, cfg.Queue.Buffer, jobs.WithLocalLogger(logger))
		g.Go(func() error { return q.Run(gctx) })
		dispatcher = q
		logger.Info("running import workers in process", "workers", cfg.Queue.Workers)
	}

	server := web.NewServer(cfg.Server, cfg.Import, web.Deps{
		Uploads:    a.Blobs,
		Dispatcher: dispatcher,
		Checks:     a.HealthChecks(),
		Metrics:    a.MetricsHandler(),
	})

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
