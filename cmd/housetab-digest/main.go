package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"housetab/internal/amqp"
	"housetab/internal/cli"
	"housetab/internal/ledger"
	"housetab/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	logger.Info("Starting housetab-digest")

	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.ConfigureLogger(cfg, "digest")

	if len(cfg.Households) == 0 {
		logger.Error("No households configured, set HOUSEHOLDS to a comma separated list")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, cleanup := cli.OpenStore(ctx, logger, cfg)
	defer cli.CloseStore(logger, cleanup)

	// Exceeded budgets go out as alert messages when a broker is
	// configured; without one the digest only logs.
	var alerts services.AlertPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, continuing without alert publishing", "error", err)
		} else {
			defer client.Close()
			alerts = client
		}
	}

	// Digests always read fresh from the store, no cache.
	reports := services.NewReportService(store, nil)

	processor := services.NewDigestProcessor(reports, alerts, services.DigestConfig{
		Interval:   cfg.DigestInterval,
		Cadence:    ledger.Cadence(cfg.DigestCadence),
		Households: cfg.Households,
	})

	logger.Info("Digest processor configured",
		"interval", cfg.DigestInterval,
		"cadence", cfg.DigestCadence,
		"households", len(cfg.Households))

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start digest processor", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()

	if err := processor.Stop(stopCtx); err != nil {
		logger.Error("Digest processor stop failed", "error", err)
	}
	logger.Info("Digest stopped gracefully")
}
