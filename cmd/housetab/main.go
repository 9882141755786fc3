package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"housetab/internal/amqp"
	"housetab/internal/cache"
	"housetab/internal/cli"
	apphttp "housetab/internal/http"
	"housetab/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting housetab")

	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.ConfigureLogger(cfg, "api")

	store, cleanup := cli.OpenStore(context.Background(), logger, cfg)
	defer cli.CloseStore(logger, cleanup)

	// Event publishing is optional: without a broker the API still works,
	// alerts and the spreadsheet mirror just stay quiet.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, continuing without event publishing", "error", err)
		} else {
			defer client.Close()
			events = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	reportCache := cache.NewLRUCache[services.PersonReport](cfg.ReportCacheSize, cfg.ReportCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(reportCache)
	cacheManager.StartCleanup(time.Minute)

	reports := services.NewReportService(store, reportCache)
	expenses := services.NewExpenseService(store, events, reports)
	budgets := services.NewBudgetService(store, events, reports)

	srv := apphttp.NewServer(":"+cfg.Port, logger, expenses, budgets, reports)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", "error", err)
		}
		cacheManager.Stop()
	})

	logger.Info("Server listening", "addr", srv.Addr, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
