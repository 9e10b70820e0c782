package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/mailsync/internal/app"
	"github.com/allisson/mailsync/internal/config"
)

// RunWorker starts the queue worker with graceful shutdown support. The worker
// registers the send and delivery check job handlers, makes sure the next
// daily delivery check is on the schedule and then processes due jobs until
// receiving SIGINT/SIGTERM.
func RunWorker(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get queue worker from container (this registers the job handlers)
	queueWorker, err := container.QueueWorker()
	if err != nil {
		return fmt.Errorf("failed to initialize queue worker: %w", err)
	}

	deliveryCheckRunner, err := container.DeliveryCheckRunner()
	if err != nil {
		return fmt.Errorf("failed to initialize delivery check runner: %w", err)
	}

	// Get Metrics server from container
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A missing schedule entry is recovered here so a fresh deployment gets
	// its first daily delivery check without manual intervention.
	if err := deliveryCheckRunner.ScheduleNext(ctx); err != nil {
		logger.Warn("failed to schedule next delivery check", slog.Any("error", err))
	}

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", slog.Any("error", err))
			}
		}()
	}

	// Process jobs until the context is cancelled
	if err := queueWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("queue worker error: %w", err)
	}

	logger.Info("worker stopped")

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
	}

	return nil
}
