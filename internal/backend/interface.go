package backend

import (
	"context"

	"housetab/internal/books"
)

// CleanupFunc releases the resources a backend holds
type CleanupFunc func() error

// BackendResult contains the selected store and optional cleanup function
type BackendResult struct {
	Store   books.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	// CreateBackend creates a store instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
