// sync-worker mirrors ledger transactions to the Google Sheets spreadsheet.
// It consumes sync messages from AMQP for low latency and polls the
// database for rows whose publish was dropped.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finjoy/internal/amqp"
	"finjoy/internal/config"
	applog "finjoy/internal/log"
	"finjoy/internal/services"
	"finjoy/internal/sheets"
	"finjoy/internal/sheets/google"
	"finjoy/internal/sheets/memory"
	"finjoy/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentSyncWorker})
	applog.SetDefault(logger)

	logger.Info("Starting sync-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		writer  sheets.TransactionWriter
		deleter sheets.TransactionDeleter
	)
	if cfg.SheetsConfigured() {
		client, err := google.New(ctx, google.Settings{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			OAuthClientFile:    cfg.GoogleOAuthClientFile,
			OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		writer, deleter = client, client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		// Development fallback: mirror into memory so the worker loop can
		// run end to end without credentials.
		store := memory.New()
		writer, deleter = store, store
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to in-memory store")
	}

	processor := services.NewSyncProcessor(repo, writer, deleter, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	})

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	// The AMQP consumer reconnects on its own; without a broker the poll
	// loop alone keeps the mirror converging.
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on the poll loop only", "error", err)
		} else {
			defer client.Close()
			go func() {
				if err := client.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
					return processor.HandleMessage(ctx, msg)
				}); err != nil && ctx.Err() == nil {
					logger.Error("AMQP consumer stopped", "error", err)
				}
			}()
			logger.Info("AMQP consumer started", "queue", cfg.AMQPQueue)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := processor.Stop(stopCtx); err != nil {
		logger.Error("Sync processor stop error", "error", err)
	}
	logger.Info("sync-worker stopped gracefully")
}
