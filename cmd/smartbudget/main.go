package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"smartbudget/internal/cache"
	"smartbudget/internal/cli"
	apphttp "smartbudget/internal/http"
	applog "smartbudget/internal/log"
	"smartbudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(applog.ComponentApp, cfg.LogLevel)

	res := cli.InitBackend(context.Background(), cfg)

	budgets := services.NewBudgetService(res.Store, res.Publisher)

	sessions := cache.NewLRUCache[services.Session](cfg.SessionCacheSize, cfg.SessionTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(sessions)
	cacheManager.StartCleanup(10 * time.Minute)
	accounts := services.NewAccountService(res.Store, sessions)

	if res.Processor != nil {
		if err := res.Processor.Start(context.Background()); err != nil {
			logger.Error("Failed to start sync processor", "error", err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Budgets:            budgets,
		Accounts:           accounts,
		Exporter:           res.Exporter,
		Store:              res.Store,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		BlockSuspicious:    cfg.BlockSuspicious,
		TrustedProxies:     cfg.TrustedProxies,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	cleanup := func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}
	ctx, done := cli.GracefulShutdown(30*time.Second, cleanup)

	logger.Info("Starting smartbudget server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", cfg.AMQPEnabled(),
		"sheets_enabled", cfg.SheetsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		cleanup(shutdownCtx)
		cancel()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	slog.Info("Server stopped gracefully")
}
