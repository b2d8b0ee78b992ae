package main

import (
	"context"
	"errors"
	"os"
	"time"

	"smartbudget/internal/amqp"
	"smartbudget/internal/cache"
	"smartbudget/internal/cli"
	"smartbudget/internal/export/sheets"
	applog "smartbudget/internal/log"
	"smartbudget/internal/services"
	"smartbudget/internal/storage"
	"smartbudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(applog.ComponentWorker, cfg.LogLevel)

	logger.Info("Starting budget-worker")

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if !cfg.SheetsEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for the worker")
		os.Exit(1)
	}

	// The worker reads the same SQLite database the server writes.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := sheets.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetPrefix)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exported := cache.NewLRUCache[time.Time](10000, 24*time.Hour)
	cacheManager := cache.NewManager()
	cacheManager.Register(exported)
	cacheManager.StartCleanup(time.Hour)
	defer cacheManager.Stop()

	syncWorker := worker.NewSyncWorker(services.NewBudgetService(repo, nil), sheetsClient, exported)

	ctx, done := cli.GracefulShutdown(30*time.Second, func(context.Context) {
		logger.Info("Shutting down worker...")
	})

	// Recover from events missed while the worker was down.
	go func() {
		ids, err := repo.SetUpUserIDs(ctx)
		if err != nil {
			logger.Error("Failed startup sync check", "error", err)
			return
		}
		synced, err := syncWorker.SyncUsers(ctx, ids)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Startup sync incomplete", "error", err, "synced", synced, "users", len(ids))
			return
		}
		logger.Info("Startup sync complete", "synced", synced, "users", len(ids))
	}()

	go func() {
		if err := amqpClient.ConsumeBudgetUpdates(ctx, syncWorker.HandleBudgetUpdated); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
