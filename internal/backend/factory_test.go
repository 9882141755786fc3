package backend

import (
	"context"
	"path/filepath"
	"testing"

	"housetab/internal/config"
	"housetab/internal/core"
)

func TestFromAppConfig(t *testing.T) {
	appConfig := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "./data/test.db",
		PostgresURL:  "postgres://localhost/housetab",
	}

	cfg, err := FromAppConfig(appConfig)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend {
		t.Errorf("Type = %s, want sqlite", cfg.Type)
	}
	if cfg.SQLiteDBPath != "./data/test.db" {
		t.Errorf("SQLiteDBPath = %s", cfg.SQLiteDBPath)
	}
	if cfg.PostgresURL != "postgres://localhost/housetab" {
		t.Errorf("PostgresURL = %s", cfg.PostgresURL)
	}
}

func TestFromAppConfigRejectsUnknownType(t *testing.T) {
	if _, err := FromAppConfig(&config.Config{DataBackend: "redis"}); err == nil {
		t.Error("FromAppConfig() should reject an unknown backend type")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig() should reject a nil config")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory needs nothing", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres with url", Config{Type: PostgresBackend, PostgresURL: "postgres://h/db"}, false},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown type", Config{Type: "redis"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	factory := NewFactory(nil)

	result, err := factory.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if result.Store == nil {
		t.Fatal("Store should not be nil")
	}
	if result.Cleanup != nil {
		t.Error("memory backend needs no cleanup")
	}

	e := core.Expense{
		ID:        "e1",
		Household: "casa",
		Date:      core.NewDate(2025, 1, 5),
		Category:  "groceries",
		Amount:    core.MustAmount("10"),
		Payer:     "alice",
	}
	if err := result.Store.Append(context.Background(), e); err != nil {
		t.Errorf("Append() on memory backend error = %v", err)
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	factory := NewFactory(nil)
	dbPath := filepath.Join(t.TempDir(), "housetab.db")

	result, err := factory.CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: dbPath,
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if result.Store == nil {
		t.Fatal("Store should not be nil")
	}
	if result.Cleanup == nil {
		t.Fatal("sqlite backend must expose a cleanup")
	}
	if err := result.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v", err)
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	factory := NewFactory(nil)

	if _, err := factory.CreateBackend(context.Background(), Config{Type: "redis"}); err == nil {
		t.Error("CreateBackend() should reject an unknown backend type")
	}
	if _, err := factory.CreateBackend(context.Background(), Config{Type: SQLiteBackend}); err == nil {
		t.Error("CreateBackend() should reject sqlite without a path")
	}
}
