package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mnemora-ai/mnemora/internal/config"
	"github.com/mnemora-ai/mnemora/internal/container"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/migration"
	"github.com/mnemora-ai/mnemora/internal/tasks"
	"github.com/mnemora-ai/mnemora/internal/tracing"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

func main() {
	if err := run(); err != nil {
		logger.Errorf(context.Background(), "worker exited: %v", err)
		os.Exit(1)
	}
}

func run() error {
	c, err := container.Build()
	if err != nil {
		return err
	}
	return c.Invoke(runWorker)
}

func runWorker(
	cfg *config.Config,
	server *asynq.Server,
	mux *asynq.ServeMux,
	scheduler *tasks.Scheduler,
	calendarService interfaces.CalendarService,
) error {
	logger.Init(logger.Settings{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, &cfg.Tracing)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warnf(flushCtx, "trace flush failed: %v", err)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := migration.Run(cfg.Database.DSN()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	// Materialize the calendar horizon up front so stores never race the
	// first cron tick. The window runs from the start of the current year so
	// backdated interactions in the running year always find their day.
	today := types.TruncateToDay(time.Now().UTC())
	start := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(today.Year()+cfg.Calendar.HorizonYearsAhead, 12, 31, 0, 0, 0, 0, time.UTC)
	if _, err := calendarService.EnsureRange(ctx, start, end); err != nil {
		return fmt.Errorf("failed to materialize calendar horizon: %w", err)
	}
	if _, err := calendarService.LinkSuccessors(ctx); err != nil {
		return fmt.Errorf("failed to link day successors: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Infof(ctx, "[Worker] starting with concurrency %d", cfg.Summarizer.WorkerConcurrency)
	if err := server.Run(mux); err != nil {
		return fmt.Errorf("task server failed: %w", err)
	}

	<-scheduler.Stop().Done()
	logger.Infof(ctx, "[Worker] stopped")
	return nil
}
