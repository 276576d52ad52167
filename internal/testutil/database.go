// Package testutil provides shared helpers for tests that need a real
// database.
package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/beanpilot/beanpilot/internal/model"
	"github.com/beanpilot/beanpilot/internal/service"
	"github.com/beanpilot/beanpilot/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite database with automatic
// cleanup.
func SetupTestDB(t *testing.T) service.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// SaveTransaction persists a transaction fixture and returns it.
func SaveTransaction(t *testing.T, store service.Storage, txn model.Transaction) model.Transaction {
	t.Helper()

	if txn.Amount.IsZero() {
		txn.Amount = decimal.NewFromFloat(12.50)
	}
	if txn.Currency == "" {
		txn.Currency = "CNY"
	}

	if err := store.SaveTransaction(context.Background(), &txn); err != nil {
		t.Fatalf("failed to save transaction fixture: %v", err)
	}

	return txn
}
