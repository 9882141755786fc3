// Package cli provides common initialization for the housetab binaries.
// The server, alert worker and digest processor all load the same env file,
// configuration and logger and open the same books backend, so the sequence
// lives here once.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"housetab/internal/backend"
	"housetab/internal/books"
	"housetab/internal/config"
	"housetab/internal/log"
)

// SetupLogger initializes structured logging with default settings, for use
// before the configuration is available. Returns the configured logger and
// sets it as the process default.
func SetupLogger() *log.Logger {
	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)
	return logger
}

// ConfigureLogger rebuilds the default logger honoring LOG_LEVEL and
// LOG_FORMAT once the configuration is loaded.
func ConfigureLogger(cfg *config.Config, component string) *log.Logger {
	level := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Component: component,
		Handler:   log.NewHandler(cfg.LogFormat, level),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the books backend selected by the configuration.
// Returns the store and its cleanup function, or exits the process when the
// backend cannot be opened.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (books.Store, backend.CleanupFunc) {
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to open backend", "error", err, "backend", backendConfig.Type.String())
		os.Exit(1)
	}
	return result.Store, result.Cleanup
}

// CloseStore runs the backend cleanup function when one was returned. The
// memory backend has none.
func CloseStore(logger *log.Logger, cleanup backend.CleanupFunc) {
	if cleanup == nil {
		return
	}
	if err := cleanup(); err != nil {
		logger.Error("Backend cleanup failed", "error", err)
	}
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup()
		}

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-time.After(2 * time.Second):
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
