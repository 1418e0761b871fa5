// Command tariffsync-once runs a single tariff sync immediately and exits.
// Useful for backfilling a missed day or verifying configuration.
package main

import (
	"context"
	"os"

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
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	appLog := logger.WithComponent(log.ComponentApp)

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

	ctx := context.Background()

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
	}

	syncService := services.NewSyncService(src, repo, lister, publisher, loc)

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			appLog.Warn("Failed to initialize AMQP client, continuing without run events", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			syncService.SetEvents(amqpClient)
		}
	}

	report, err := syncService.Run(ctx)
	if err != nil {
		appLog.Error("Sync run failed", log.FieldError, err)
		os.Exit(1)
	}

	// Per-target publish failures are partial success: report them, exit 0
	appLog.Info("Sync run finished",
		log.FieldDate, report.Date.String(),
		"fetched", report.Fetched,
		"rows", report.Rows,
		"published_targets", report.PublishedTargets(),
		"failed_targets", report.FailedTargets())
}
