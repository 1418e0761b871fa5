package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tariffsync/internal/amqp"
	"tariffsync/internal/config"
	"tariffsync/internal/log"
	"tariffsync/internal/services"
	"tariffsync/internal/sheets"
	"tariffsync/internal/sheets/google"
	"tariffsync/internal/sheets/memory"
	"tariffsync/internal/source"
	"tariffsync/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	appLog := logger.WithComponent(log.ComponentApp)

	appLog.Info("Starting tariffsync")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLog.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("Failed to load sync timezone", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		appLog.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	src := source.NewClient(cfg.TariffsAPIURL, cfg.TariffsAPIToken, cfg.HTTPTimeout)

	targets, err := cfg.Targets()
	if err != nil {
		appLog.Error("Failed to parse spreadsheet targets", log.FieldError, err)
		os.Exit(1)
	}
	lister := sheets.StaticTargets(targets)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher sheets.SnapshotPublisher
	switch cfg.PublishBackend {
	case "google":
		publisher, err = google.NewFromEnv(ctx)
		if err != nil {
			appLog.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
	default:
		publisher = memory.New(targets...)
		appLog.Warn("Using in-memory publish backend, snapshots will not leave the process")
	}

	syncService := services.NewSyncService(src, repo, lister, publisher, loc)

	// Run outcome events are optional: without AMQP the job still syncs
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			appLog.Warn("Failed to initialize AMQP client, continuing without run events", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			syncService.SetEvents(amqpClient)
			appLog.Info("AMQP client initialized, run outcomes will be published")
		}
	}

	scheduler, err := services.NewScheduler(syncService, cfg.SyncTime, loc)
	if err != nil {
		appLog.Error("Failed to create scheduler", log.FieldError, err)
		os.Exit(1)
	}

	if err := scheduler.Start(ctx); err != nil {
		appLog.Error("Failed to start scheduler", log.FieldError, err)
		os.Exit(1)
	}

	appLog.Info("Daily tariff sync scheduled",
		"at", cfg.SyncTime,
		"timezone", cfg.SyncTimezone,
		"targets", len(targets),
		"sqlite_db", cfg.SQLiteDBPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	appLog.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		appLog.Warn("Scheduler did not stop cleanly", log.FieldError, err)
	}

	appLog.Info("Tariffsync shutdown complete")
}
