// Package syncrecord implements the remote sync store using PostgreSQL.
// Every record is one row of sync_records holding the client's JSON payload;
// all queries are scoped to the user carried in ctx.
package syncrecord

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/myquran/internal/adapter/postgres"
	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/pkg/ctxutil"
)

const entity = "sync_record"

// Repo provides sync record persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new sync record repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// SQL constants
// ---------------------------------------------------------------------------

const recordColumns = `remote_id, kind, client_id, natural_key, version, deleted, payload, updated_at`

const createSQL = `
INSERT INTO sync_records (user_id, kind, client_id, natural_key, version, payload)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + recordColumns

// The stored version never moves backwards: a write based on a stale copy
// lands one above the current version.
const updateSQL = `
UPDATE sync_records
SET client_id   = $4,
    natural_key = $5,
    version     = GREATEST($6, version + 1),
    payload     = $7,
    deleted     = FALSE,
    updated_at  = clock_timestamp()
WHERE remote_id = $1 AND user_id = $2 AND kind = $3
RETURNING ` + recordColumns

const softDeleteSQL = `
UPDATE sync_records
SET deleted    = TRUE,
    version    = GREATEST($4, version + 1),
    updated_at = clock_timestamp()
WHERE remote_id = $1 AND user_id = $2 AND kind = $3`

const purgeDeletedSQL = `
DELETE FROM sync_records
WHERE deleted AND updated_at < $1`

const findByNaturalKeySQL = `
SELECT ` + recordColumns + `
FROM sync_records
WHERE user_id = $1 AND kind = $2 AND natural_key = $3 AND NOT deleted
LIMIT 1`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new record. A live record with the same natural key
// yields domain.ErrAlreadyExists.
func (r *Repo) Create(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error) {
	userID, err := userFromCtx(ctx)
	if err != nil {
		return domain.RemoteRecord{}, err
	}

	row := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, createSQL,
		userID, string(rec.Kind), rec.ClientID, rec.NaturalKey, rec.Version, payloadOf(rec),
	)

	created, err := scanRecord(row)
	if err != nil {
		return domain.RemoteRecord{}, postgres.MapError(err, entity, rec.ClientID)
	}
	return created, nil
}

// Update overwrites a record and revives it if it was deleted.
// Returns domain.ErrNotFound if it does not exist or belongs to another user.
func (r *Repo) Update(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error) {
	userID, err := userFromCtx(ctx)
	if err != nil {
		return domain.RemoteRecord{}, err
	}
	remoteID, err := uuid.Parse(rec.RemoteID)
	if err != nil {
		return domain.RemoteRecord{}, fmt.Errorf("%s %s: %w", entity, rec.RemoteID, domain.ErrNotFound)
	}

	row := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, updateSQL,
		remoteID, userID, string(rec.Kind), rec.ClientID, rec.NaturalKey, rec.Version, payloadOf(rec),
	)

	updated, err := scanRecord(row)
	if err != nil {
		return domain.RemoteRecord{}, postgres.MapError(err, entity, rec.RemoteID)
	}
	return updated, nil
}

// SoftDelete marks a record deleted.
// Returns domain.ErrNotFound if it does not exist or belongs to another user.
func (r *Repo) SoftDelete(ctx context.Context, kind domain.EntityKind, remoteID string, version int64) error {
	userID, err := userFromCtx(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(remoteID)
	if err != nil {
		return fmt.Errorf("%s %s: %w", entity, remoteID, domain.ErrNotFound)
	}

	ct, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, softDeleteSQL, id, userID, string(kind), version)
	if err != nil {
		return postgres.MapError(err, entity, remoteID)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", entity, remoteID, domain.ErrNotFound)
	}
	return nil
}

// PurgeDeleted physically removes tombstones last changed before the cutoff,
// across all users. A device that has not pulled since the cutoff will not
// learn about those deletions.
func (r *Repo) PurgeDeleted(ctx context.Context, before time.Time) (int64, error) {
	ct, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, purgeDeletedSQL, before)
	if err != nil {
		return 0, fmt.Errorf("purge %s tombstones: %w", entity, err)
	}
	return ct.RowsAffected(), nil
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// FindByNaturalKey returns the live record of kind with naturalKey.
func (r *Repo) FindByNaturalKey(ctx context.Context, kind domain.EntityKind, naturalKey string) (domain.RemoteRecord, bool, error) {
	userID, err := userFromCtx(ctx)
	if err != nil {
		return domain.RemoteRecord{}, false, err
	}

	row := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, findByNaturalKeySQL, userID, string(kind), naturalKey)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RemoteRecord{}, false, nil
	}
	if err != nil {
		return domain.RemoteRecord{}, false, postgres.MapError(err, entity, naturalKey)
	}
	return rec, true, nil
}

// ListUpdatedSince returns records of kind changed at or after since,
// tombstones included, oldest first. A zero since lists everything.
func (r *Repo) ListUpdatedSince(ctx context.Context, kind domain.EntityKind, since time.Time) ([]domain.RemoteRecord, error) {
	userID, err := userFromCtx(ctx)
	if err != nil {
		return nil, err
	}

	b := psql.Select(recordColumns).
		From("sync_records").
		Where(sq.Eq{"user_id": userID, "kind": string(kind)}).
		OrderBy("updated_at", "remote_id")
	if !since.IsZero() {
		b = b.Where(sq.GtOrEq{"updated_at": since})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s since %s: %w", kind, since.Format(time.RFC3339Nano), err)
	}
	defer rows.Close()

	var out []domain.RemoteRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", entity, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func userFromCtx(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return userID, nil
}

func payloadOf(rec domain.RemoteRecord) []byte {
	if len(rec.Payload) == 0 {
		return []byte("{}")
	}
	return rec.Payload
}

// scanRecord scans a single record row from pgx.Row.
func scanRecord(row pgx.Row) (domain.RemoteRecord, error) {
	var (
		remoteID  uuid.UUID
		kind      string
		rec       domain.RemoteRecord
		payload   []byte
		updatedAt time.Time
	)

	if err := row.Scan(&remoteID, &kind, &rec.ClientID, &rec.NaturalKey, &rec.Version, &rec.Deleted, &payload, &updatedAt); err != nil {
		return domain.RemoteRecord{}, err
	}

	rec.RemoteID = remoteID.String()
	rec.Kind = domain.EntityKind(kind)
	rec.Payload = payload
	rec.UpdatedAt = updatedAt.UTC()
	return rec, nil
}
