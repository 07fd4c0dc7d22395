// Command worker consumes employee import jobs from RabbitMQ.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/EmployeeImport/internal/app"
	"github.com/JonMunkholm/EmployeeImport/internal/config"
	"github.com/JonMunkholm/EmployeeImport/internal/jobs"
	"github.com/JonMunkholm/EmployeeImport/internal/logging"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Queue.Driver != config.QueueAMQP {
		return errors.New("worker requires QUEUE_DRIVER=amqp")
	}

	if err := app.UseStorageEmulator(cfg.Storage.EmulatorHost); err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	conn, ch, err := jobs.Connect(cfg.Queue.URL, cfg.Queue.Name, cfg.Queue.Prefetch)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer ch.Close()

	host, _ := os.Hostname()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Queue.Workers; i++ {
		name := fmt.Sprintf("%s-%d-%d", host, os.Getpid(), i)
		w := jobs.NewAMQPWorker(ch, cfg.Queue.Name, name, a.Executor, jobs.WithWorkerLogger(logger))
		g.Go(func() error { return w.Run(gctx) })
	}
	return g.Wait()
}
