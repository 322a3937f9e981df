// Package testhelper opens throwaway local stores for tests.
package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/heartmarshall/myquran/internal/adapter/sqlite"
	"github.com/heartmarshall/myquran/internal/store"
)

// Store is a migrated in-memory local store.
type Store struct {
	Hub    *store.Hub
	Tables *sqlite.Tables
	Tx     *sqlite.TxManager
}

// SetupStore opens a private in-memory database with all migrations applied.
// The database is closed via t.Cleanup.
func SetupStore(t *testing.T) *Store {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqlite.Open(ctx, sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("testhelper: open local store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hub := store.NewHub()
	return &Store{
		Hub:    hub,
		Tables: sqlite.NewTables(db, hub),
		Tx:     sqlite.NewTxManager(db, hub),
	}
}
