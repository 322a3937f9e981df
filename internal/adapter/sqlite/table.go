package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/store"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var metaColumns = []string{
	"client_id", "remote_id", "natural_key", "version", "is_dirty",
	"pending_operation", "is_deleted", "updated_at", "data",
}

// Column is an indexed column derived from the record.
type Column[T any] struct {
	Name  string
	Value func(rec *T) any
}

// Schema declares the table a record type is stored in.
type Schema[T any] struct {
	Table   string
	Kind    domain.EntityKind
	Columns []Column[T]
	// Indexes maps an index name to its ordered columns.
	Indexes map[string][]string
}

// Table stores records of type T. Meta and indexed columns live beside a
// JSON document holding the record body.
type Table[T any, P interface {
	*T
	domain.Record
}] struct {
	db     *sql.DB
	hub    *store.Hub
	schema Schema[T]
}

// NewTable creates a table accessor for schema.
func NewTable[T any, P interface {
	*T
	domain.Record
}](db *sql.DB, hub *store.Hub, schema Schema[T]) *Table[T, P] {
	idx := make(map[string][]string, len(schema.Indexes)+1)
	for name, cols := range schema.Indexes {
		idx[name] = cols
	}
	idx[store.IndexKey] = []string{"client_id"}
	schema.Indexes = idx

	return &Table[T, P]{db: db, hub: hub, schema: schema}
}

// Name returns the SQL table name.
func (t *Table[T, P]) Name() string { return t.schema.Table }

// Kind returns the sync entity kind stored in the table.
func (t *Table[T, P]) Kind() domain.EntityKind { return t.schema.Kind }

// Get returns the record with the given key, tombstones included.
// A missing record yields found=false and no error.
func (t *Table[T, P]) Get(ctx context.Context, key string) (T, bool, error) {
	query, args, err := psql.Select(metaColumns...).From(t.schema.Table).
		Where(sq.Eq{"client_id": key}).ToSql()
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("%s: build query: %w", t.schema.Table, err)
	}
	return t.getOne(ctx, key, query, args)
}

// FindByRemoteID returns the record acknowledged under remoteID.
func (t *Table[T, P]) FindByRemoteID(ctx context.Context, remoteID string) (T, bool, error) {
	query, args, err := psql.Select(metaColumns...).From(t.schema.Table).
		Where(sq.Eq{"remote_id": remoteID}).Limit(1).ToSql()
	if err != nil {
		var zero T
		return zero, false, fmt.Errorf("%s: build query: %w", t.schema.Table, err)
	}
	return t.getOne(ctx, remoteID, query, args)
}

func (t *Table[T, P]) getOne(ctx context.Context, key, query string, args []any) (T, bool, error) {
	var zero T
	rows, err := QuerierFromCtx(ctx, t.db).QueryContext(ctx, query, args...)
	if err != nil {
		return zero, false, mapError(err, t.schema.Table, key)
	}
	recs, err := t.scan(rows)
	if err != nil {
		return zero, false, mapError(err, t.schema.Table, key)
	}
	if len(recs) == 0 {
		return zero, false, nil
	}
	return recs[0], true, nil
}

// Put inserts or replaces the record keyed by its client id.
func (t *Table[T, P]) Put(ctx context.Context, rec T) error {
	p := P(&rec)
	m := p.Meta()
	if m.ClientID == "" {
		return fmt.Errorf("%s: put: %w", t.schema.Table, domain.NewValidationError("client_id", "required"))
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%s %s: encode: %w", t.schema.Table, m.ClientID, err)
	}

	cols := append([]string(nil), metaColumns...)
	vals := []any{
		m.ClientID, m.RemoteID, p.NaturalKey(), m.Version, m.IsDirty,
		string(m.PendingOperation), m.IsDeleted, toMillis(m.UpdatedAt), string(data),
	}
	for _, c := range t.schema.Columns {
		cols = append(cols, c.Name)
		vals = append(vals, dbValue(c.Value(&rec)))
	}

	suffix := "ON CONFLICT (client_id) DO UPDATE SET "
	for i, c := range cols[1:] {
		if i > 0 {
			suffix += ", "
		}
		suffix += c + " = excluded." + c
	}

	query, args, err := psql.Insert(t.schema.Table).Columns(cols...).Values(vals...).Suffix(suffix).ToSql()
	if err != nil {
		return fmt.Errorf("%s: build insert: %w", t.schema.Table, err)
	}

	if _, err := QuerierFromCtx(ctx, t.db).ExecContext(ctx, query, args...); err != nil {
		return mapError(err, t.schema.Table, m.ClientID)
	}
	touch(ctx, t.hub, t.schema.Table)
	return nil
}

// Delete removes the record outright. Deleting a missing key is a no-op.
func (t *Table[T, P]) Delete(ctx context.Context, key string) error {
	query, args, err := psql.Delete(t.schema.Table).Where(sq.Eq{"client_id": key}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: build delete: %w", t.schema.Table, err)
	}
	if _, err := QuerierFromCtx(ctx, t.db).ExecContext(ctx, query, args...); err != nil {
		return mapError(err, t.schema.Table, key)
	}
	touch(ctx, t.hub, t.schema.Table)
	return nil
}

// Query returns live (non-deleted) records matching q, ordered by the index
// columns. An undeclared index returns no rows.
func (t *Table[T, P]) Query(ctx context.Context, q store.Query) ([]T, error) {
	cols, ok := t.schema.Indexes[q.Index]
	if !ok || len(q.Eq) > len(cols) {
		return nil, nil
	}

	b := psql.Select(metaColumns...).From(t.schema.Table).Where(sq.Eq{"is_deleted": false})
	for i, v := range q.Eq {
		b = b.Where(sq.Eq{cols[i]: dbValue(v)})
	}
	if len(q.Eq) < len(cols) {
		col := cols[len(q.Eq)]
		if q.From != nil {
			b = b.Where(sq.GtOrEq{col: dbValue(q.From)})
		}
		if q.To != nil {
			b = b.Where(sq.LtOrEq{col: dbValue(q.To)})
		}
	}

	dir := " ASC"
	if q.Desc {
		dir = " DESC"
	}
	for _, c := range cols {
		b = b.OrderBy(c + dir)
	}
	if cols[len(cols)-1] != "client_id" {
		b = b.OrderBy("client_id" + dir)
	}
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}

	return t.list(ctx, b)
}

// All returns every live record ordered by key.
func (t *Table[T, P]) All(ctx context.Context) ([]T, error) {
	return t.list(ctx, psql.Select(metaColumns...).From(t.schema.Table).
		Where(sq.Eq{"is_deleted": false}).OrderBy("client_id"))
}

// Dirty returns records with unpushed changes, tombstones included.
func (t *Table[T, P]) Dirty(ctx context.Context) ([]T, error) {
	return t.list(ctx, psql.Select(metaColumns...).From(t.schema.Table).
		Where(sq.Eq{"is_dirty": true}).OrderBy("updated_at", "client_id"))
}

func (t *Table[T, P]) list(ctx context.Context, b sq.SelectBuilder) ([]T, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: build query: %w", t.schema.Table, err)
	}
	rows, err := QuerierFromCtx(ctx, t.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", t.schema.Table, err)
	}
	recs, err := t.scan(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: scan: %w", t.schema.Table, err)
	}
	return recs, nil
}

func (t *Table[T, P]) scan(rows *sql.Rows) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		var (
			rec       T
			m         domain.SyncMeta
			natural   string
			op        string
			updatedAt int64
			data      string
		)
		if err := rows.Scan(&m.ClientID, &m.RemoteID, &natural, &m.Version, &m.IsDirty,
			&op, &m.IsDeleted, &updatedAt, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", m.ClientID, err)
		}
		m.PendingOperation = domain.PendingOperation(op)
		m.UpdatedAt = fromMillis(updatedAt)
		*P(&rec).Meta() = m
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Sync engine access. These methods work on the untyped wire form.
// ---------------------------------------------------------------------------

// Outbox returns the dirty records in wire form.
func (t *Table[T, P]) Outbox(ctx context.Context) ([]domain.OutboxEntry, error) {
	recs, err := t.Dirty(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OutboxEntry, 0, len(recs))
	for i := range recs {
		p := P(&recs[i])
		payload, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode: %w", t.schema.Table, p.Meta().ClientID, err)
		}
		out = append(out, domain.OutboxEntry{
			Kind:       t.schema.Kind,
			Meta:       *p.Meta(),
			NaturalKey: p.NaturalKey(),
			Payload:    payload,
		})
	}
	return out, nil
}

// MarkSynced stores remoteID for the record and clears its dirty flag if the
// version is still the one that was pushed. A record changed since then keeps
// its dirty flag and is pushed as an update next time.
// Version is never changed.
func (t *Table[T, P]) MarkSynced(ctx context.Context, clientID, remoteID string, version int64) (cleared bool, err error) {
	setID, args, err := psql.Update(t.schema.Table).
		Set("remote_id", remoteID).
		Set("pending_operation", sq.Expr("CASE WHEN pending_operation = ? THEN ? ELSE pending_operation END",
			string(domain.PendingCreate), string(domain.PendingUpdate))).
		Where(sq.Eq{"client_id": clientID}).ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: build update: %w", t.schema.Table, err)
	}
	q := QuerierFromCtx(ctx, t.db)
	if _, err := q.ExecContext(ctx, setID, args...); err != nil {
		return false, mapError(err, t.schema.Table, clientID)
	}

	clear, args, err := psql.Update(t.schema.Table).
		Set("is_dirty", false).
		Set("pending_operation", string(domain.PendingNone)).
		Where(sq.Eq{"client_id": clientID, "version": version}).ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: build update: %w", t.schema.Table, err)
	}
	res, err := q.ExecContext(ctx, clear, args...)
	if err != nil {
		return false, mapError(err, t.schema.Table, clientID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s %s: rows affected: %w", t.schema.Table, clientID, err)
	}
	touch(ctx, t.hub, t.schema.Table)
	return n > 0, nil
}

// LocalMeta finds the local counterpart of a remote record, matching by
// remote id, then client id, then natural key.
func (t *Table[T, P]) LocalMeta(ctx context.Context, rec domain.RemoteRecord) (domain.SyncMeta, bool, error) {
	probes := []sq.Eq{}
	if rec.RemoteID != "" {
		probes = append(probes, sq.Eq{"remote_id": rec.RemoteID})
	}
	if rec.ClientID != "" {
		probes = append(probes, sq.Eq{"client_id": rec.ClientID})
	}
	if rec.NaturalKey != "" {
		probes = append(probes, sq.Eq{"natural_key": rec.NaturalKey, "is_deleted": false})
	}

	for _, probe := range probes {
		query, args, err := psql.Select(metaColumns...).From(t.schema.Table).Where(probe).Limit(1).ToSql()
		if err != nil {
			return domain.SyncMeta{}, false, fmt.Errorf("%s: build query: %w", t.schema.Table, err)
		}
		found, ok, err := t.getOne(ctx, rec.RemoteID, query, args)
		if err != nil {
			return domain.SyncMeta{}, false, err
		}
		if ok {
			return *P(&found).Meta(), true, nil
		}
	}
	return domain.SyncMeta{}, false, nil
}

// ApplyRemote stores a clean copy of rec under clientID.
func (t *Table[T, P]) ApplyRemote(ctx context.Context, clientID string, rec domain.RemoteRecord) error {
	out, err := t.fromRemote(clientID, rec)
	if err != nil {
		return err
	}
	return t.Put(ctx, out)
}

// Tombstone stores a pending delete for rec under clientID. It is used when
// the remote store acknowledged a record that was removed locally meanwhile.
func (t *Table[T, P]) Tombstone(ctx context.Context, clientID string, rec domain.RemoteRecord, now time.Time) (domain.SyncMeta, error) {
	out, err := t.fromRemote(clientID, rec)
	if err != nil {
		return domain.SyncMeta{}, err
	}
	m := P(&out).Meta()
	m.RecordDelete(now)
	if err := t.Put(ctx, out); err != nil {
		return domain.SyncMeta{}, err
	}
	return *m, nil
}

func (t *Table[T, P]) fromRemote(clientID string, rec domain.RemoteRecord) (T, error) {
	var out T
	if len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, &out); err != nil {
			return out, fmt.Errorf("%s %s: decode remote payload: %w", t.schema.Table, rec.RemoteID, err)
		}
	}
	*P(&out).Meta() = domain.SyncMeta{
		ClientID:  clientID,
		RemoteID:  rec.RemoteID,
		Version:   rec.Version,
		UpdatedAt: rec.UpdatedAt,
	}
	return out, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// dbValue converts index values to their column representation.
func dbValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		return toMillis(x)
	case *time.Time:
		if x == nil {
			return int64(0)
		}
		return toMillis(*x)
	case fmt.Stringer:
		return x.String()
	}
	return v
}
