package sqlite

import (
	"context"
	"database/sql"
)

// Querier is the common interface implemented by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txState is the transaction carried in the context together with the
// tables written inside it.
type txState struct {
	tx      *sql.Tx
	touched map[string]struct{}
}

type txCtxKey struct{}

func withTx(ctx context.Context, st *txState) context.Context {
	return context.WithValue(ctx, txCtxKey{}, st)
}

func txFromCtx(ctx context.Context) *txState {
	st, _ := ctx.Value(txCtxKey{}).(*txState)
	return st
}

// QuerierFromCtx returns the transaction from context if present,
// otherwise returns the database.
func QuerierFromCtx(ctx context.Context, db *sql.DB) Querier {
	if st := txFromCtx(ctx); st != nil {
		return st.tx
	}
	return db
}
