package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"housetab/internal/amqp"
	"housetab/internal/books/sheets"
	"housetab/internal/cli"
	"housetab/internal/ledger"
	"housetab/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting housetab-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.ConfigureLogger(cfg, "worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup := cli.OpenStore(ctx, logger, cfg)
	defer cli.CloseStore(logger, cleanup)

	// The spreadsheet mirror is optional, alert evaluation works without it.
	var mirror worker.MirrorWriter
	if cfg.MirrorEnabled() {
		credentials, err := sheets.LoadCredentials(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
		if err != nil {
			logger.Error("Failed to load Google credentials", "error", err)
			os.Exit(1)
		}
		client, err := sheets.NewClient(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, credentials)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.DeclareQueue(cfg.AMQPAlertQueue,
		amqp.KeyExpenseRecorded, amqp.KeyExpenseRemoved, amqp.KeyBudgetChanged); err != nil {
		logger.Error("Failed to declare alert queue", "error", err, "queue", cfg.AMQPAlertQueue)
		os.Exit(1)
	}

	// Budgets bind to calendar months, so alerts are evaluated on month
	// windows.
	windower, err := ledger.GetWindower(ledger.CadenceMonthly)
	if err != nil {
		logger.Error("Failed to resolve alert window", "error", err)
		os.Exit(1)
	}

	alertWorker := worker.NewAlertWorker(store, client, mirror, windower)

	go func() {
		if err := client.Consume(ctx, cfg.AMQPAlertQueue, alertWorker.Dispatch); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
