// recurring-worker periodically materializes due recurring transactions.
// It shares the database with finjoyd; the sweep is idempotent, so both
// trigger paths running at once never double-writes.
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
	"finjoy/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentMaterializer})
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

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

	// Generated transactions publish sync messages like interactive ones,
	// so the spreadsheet mirror stays complete.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, generated transactions will be mirrored by the poll loop", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
		}
	}

	ledger := services.NewLedgerService(repo, amqpClient)
	materializer := services.NewMaterializer(repo, ledger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Materializer configured",
		"interval", cfg.MaterializeInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	sweep := func(now time.Time) {
		created, err := materializer.MaterializeUpTo(ctx, materializer.Today())
		if err != nil {
			logger.Error("Sweep failed, will retry next tick", "error", err)
			return
		}
		logger.Info("Sweep complete",
			"created", created,
			"next_check", now.Add(cfg.MaterializeInterval).Format("15:04:05"))
	}

	// Immediate run on startup so a long-stopped worker catches up without
	// waiting a full interval.
	sweep(time.Now())

	ticker := time.NewTicker(cfg.MaterializeInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case now := <-ticker.C:
			sweep(now)
		case sig := <-sigCh:
			logger.Info("Shutdown signal received", "signal", sig.String())
			return
		case <-ctx.Done():
			return
		}
	}
}
