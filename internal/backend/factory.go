package backend

import (
	"context"
	"fmt"
	"log/slog"

	"housetab/internal/books/memory"
	"housetab/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend()
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.New()

	f.logger.Info("Initialized memory backend")

	return &BackendResult{
		Store:   store,
		Cleanup: nil, // No cleanup needed for the memory backend
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := storage.NewPostgresStore(ctx, config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}

	f.logger.Info("Initialized Postgres backend")

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}
