package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Metadata is a key/value table for sync bookkeeping such as the last pull watermark.
type Metadata struct {
	db *sql.DB
}

func NewMetadata(db *sql.DB) *Metadata {
	return &Metadata{db: db}
}

// Get returns the stored value. A missing key yields found=false.
func (m *Metadata) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := QuerierFromCtx(ctx, m.db).QueryRowContext(ctx,
		`SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapError(err, "sync_state", key)
	}
	return value, true, nil
}

// Set upserts a value.
func (m *Metadata) Set(ctx context.Context, key, value string) error {
	_, err := QuerierFromCtx(ctx, m.db).ExecContext(ctx,
		`INSERT INTO sync_state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return mapError(err, "sync_state", key)
	}
	return nil
}

// GetTime reads an RFC 3339 timestamp. A missing key yields the zero time.
func (m *Metadata) GetTime(ctx context.Context, key string) (time.Time, error) {
	v, ok, err := m.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("sync_state %s: parse time: %w", key, err)
	}
	return t, nil
}

// SetTime stores t as RFC 3339 in UTC.
func (m *Metadata) SetTime(ctx context.Context, key string, t time.Time) error {
	return m.Set(ctx, key, t.UTC().Format(time.RFC3339Nano))
}
