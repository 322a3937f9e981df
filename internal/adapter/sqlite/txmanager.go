package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heartmarshall/myquran/internal/store"
)

// TxManager manages local transactions using the context pattern and
// publishes the touched tables to the hub after commit.
// A RunInTx call inside another RunInTx callback joins the outer transaction:
// the store has a single connection, so a second transaction would deadlock.
type TxManager struct {
	db  *sql.DB
	hub *store.Hub
}

// NewTxManager creates a new TxManager.
func NewTxManager(db *sql.DB, hub *store.Hub) *TxManager {
	return &TxManager{db: db, hub: hub}
}

// RunInTx executes fn within a transaction.
// On success: commits and notifies live queries.
// On error from fn: rolls back and returns the error.
// On panic from fn: rolls back and re-panics.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFromCtx(ctx) != nil {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	st := &txState{tx: tx, touched: make(map[string]struct{})}

	if err := fn(withTx(ctx, st)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	tables := make([]string, 0, len(st.touched))
	for t := range st.touched {
		tables = append(tables, t)
	}
	m.hub.Publish(tables...)

	return nil
}

// touch records a write to table, publishing immediately outside a transaction.
func touch(ctx context.Context, hub *store.Hub, table string) {
	if st := txFromCtx(ctx); st != nil {
		st.touched[table] = struct{}{}
		return
	}
	hub.Publish(table)
}
