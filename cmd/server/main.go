package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mnemora-ai/mnemora/internal/config"
	"github.com/mnemora-ai/mnemora/internal/container"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/migration"
	"github.com/mnemora-ai/mnemora/internal/tracing"
)

func main() {
	if err := run(); err != nil {
		logger.Errorf(context.Background(), "server exited: %v", err)
		os.Exit(1)
	}
}

func run() error {
	c, err := container.Build()
	if err != nil {
		return err
	}
	return c.Invoke(runServer)
}

func runServer(cfg *config.Config, engine *gin.Engine) error {
	logger.Init(logger.Settings{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "[Server] listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof(context.Background(), "[Server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
