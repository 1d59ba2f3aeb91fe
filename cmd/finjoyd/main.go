// finjoyd is the API server. It runs migrations, seeds default categories
// on first start, materializes overdue recurring transactions and then
// serves HTTP until interrupted.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finjoy/internal/amqp"
	"finjoy/internal/config"
	apphttp "finjoy/internal/http"
	applog "finjoy/internal/log"
	"finjoy/internal/services"
	"finjoy/internal/storage"
	"finjoy/internal/transfer"
)

func main() {
	// .env is a local-development convenience; absence is not an error.
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentApp})
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if err := storage.RunMigrations(cfg.SQLiteDBPath); err != nil {
		logger.Error("Migrations failed", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without the spreadsheet mirror queue", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, transactions will not be mirrored")
	}

	ledger := services.NewLedgerService(repo, amqpClient)
	materializer := services.NewMaterializer(repo, ledger)
	tracker := services.NewHistoryTracker(repo)
	categories := services.NewCategoryService(repo)
	recurring := services.NewRecurringService(repo, tracker, materializer)
	reports := services.NewReportService(repo)
	importer := transfer.NewImporter(repo, ledger, categories)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := categories.SeedDefaults(ctx); err != nil {
		logger.Error("Seeding default categories failed", "error", err)
		os.Exit(1)
	}

	// Launch-time catch-up: anything due since the process last ran is
	// generated before the first request lands.
	if created, err := materializer.MaterializeUpTo(ctx, materializer.Today()); err != nil {
		logger.Error("Launch materialization failed", "error", err)
	} else if created > 0 {
		logger.Info("Launch materialization complete", "created", created)
	}

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:         ":" + cfg.Port,
		Ledger:       ledger,
		Categories:   categories,
		Recurring:    recurring,
		Reports:      reports,
		Materializer: materializer,
		ExportStore:  repo,
		Importer:     importer,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
