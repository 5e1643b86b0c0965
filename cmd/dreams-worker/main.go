package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"dreams/internal/amqp"
	"dreams/internal/cache"
	"dreams/internal/cli"
	"dreams/internal/config"
	applog "dreams/internal/log"
	"dreams/internal/metrics"
	"dreams/internal/sheets"
	gsheet "dreams/internal/sheets/google"
	"dreams/internal/storage"
	"dreams/internal/worker"
)

func main() {
	backfill := flag.Bool("backfill", false, "append a snapshot row for every dream before consuming events")
	metricsAddr := flag.String("metrics-addr", ":9091", "address serving /metrics; empty disables it")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker, nil)
	logger.Info("Starting dreams-worker")

	if err := cfg.ValidateWorker(); err != nil {
		cli.Exit(logger, "Configuration validation failed", err)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	// The worker reads the current state of each dream from the web server's database
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		cli.Exit(logger, "Failed to initialize SQLite repository", err)
	}
	defer repo.Close()

	sheetClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		cli.Exit(logger, "Failed to initialize Google Sheets client", err)
	}
	if err := sheetClient.EnsureHeader(ctx); err != nil && !sheets.IsPermanent(err) {
		logger.Warn("Could not check the export sheet header", applog.FieldError, err)
	} else if err != nil {
		cli.Exit(logger, "Export sheet is not writable", err)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Exit(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	m := metrics.New()
	exporter := worker.NewExportWorker(repo, sheetClient, m, logger)

	caches := cache.NewManager(logger)
	caches.Register(exporter.Seen())
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	if *backfill {
		if _, err := exporter.Backfill(ctx); err != nil {
			logger.Error("Backfill failed", applog.FieldError, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeDreamEvents(gctx, exporter.HandleDreamEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		metricsSrv := &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
	}
	logger.Info("Worker stopped gracefully")
}
