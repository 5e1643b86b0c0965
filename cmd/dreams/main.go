package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dreams/internal/backend"
	"dreams/internal/cli"
	"dreams/internal/config"
	apphttp "dreams/internal/http"
	applog "dreams/internal/log"
	"dreams/internal/metrics"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp, nil)

	if err := cfg.Validate(); err != nil {
		cli.Exit(logger, "Configuration validation failed", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Exit(logger, "Invalid backend configuration", err)
	}

	m := metrics.New()
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	result, err := backend.NewFactory(logger, m).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Exit(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Store:              result.Backend,
		Logger:             logger,
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		cli.Exit(logger, "Failed to create HTTP server", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting dreams server", "port", cfg.Port, "backend", backendCfg.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
