package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/heartmarshall/myquran/internal/domain"
)

// mapError converts database/sql and SQLite errors to domain errors.
// context.DeadlineExceeded and context.Canceled are NOT mapped; they pass through.
func mapError(err error, table, key string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %s: %w", table, key, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, key, domain.ErrNotFound)
	}

	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s %s: %w", table, key, domain.ErrAlreadyExists)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s %s: %w", table, key, domain.ErrNotFound)
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return fmt.Errorf("%s %s: %w", table, key, domain.ErrValidation)
		}
	}

	return fmt.Errorf("%s %s: %w", table, key, err)
}
