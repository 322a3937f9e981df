// Package syncer reconciles the local store with the remote store: it pushes
// dirty records and pulls records changed remotely since the last sync.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/heartmarshall/myquran/internal/domain"
)

// Metadata keys of the pull watermarks.
const (
	LastSyncKey       = "last_sync_at"
	lastSyncKeyPrefix = LastSyncKey + "."
)

// Remote is the authoritative store of one user's records. Every call is
// scoped to the user carried in ctx.
type Remote interface {
	Create(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error)
	Update(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error)
	SoftDelete(ctx context.Context, kind domain.EntityKind, remoteID string, version int64) error
	FindByNaturalKey(ctx context.Context, kind domain.EntityKind, naturalKey string) (domain.RemoteRecord, bool, error)
	ListUpdatedSince(ctx context.Context, kind domain.EntityKind, since time.Time) ([]domain.RemoteRecord, error)
}

// AuthProvider reports whether the user is signed in.
type AuthProvider interface {
	State() domain.AuthState
	UserID() uuid.UUID
}

// Table is the sync view of one local table.
type Table interface {
	Name() string
	Kind() domain.EntityKind
	Outbox(ctx context.Context) ([]domain.OutboxEntry, error)
	MarkSynced(ctx context.Context, clientID, remoteID string, version int64) (bool, error)
	Delete(ctx context.Context, key string) error
	LocalMeta(ctx context.Context, rec domain.RemoteRecord) (domain.SyncMeta, bool, error)
	ApplyRemote(ctx context.Context, clientID string, rec domain.RemoteRecord) error
	Tombstone(ctx context.Context, clientID string, rec domain.RemoteRecord, now time.Time) (domain.SyncMeta, error)
}

// watermarkStore persists pull watermarks.
type watermarkStore interface {
	GetTime(ctx context.Context, key string) (time.Time, error)
	SetTime(ctx context.Context, key string, t time.Time) error
}

// txManager defines the transaction manager interface needed by the engine.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Config tunes the engine.
type Config struct {
	// CallTimeout bounds every remote call.
	CallTimeout time.Duration
	// SyncTimeout bounds a whole SyncAll run.
	SyncTimeout time.Duration
}

// Engine runs sync passes. Concurrent SyncAll calls for the same user share
// one pass.
type Engine struct {
	log    *slog.Logger
	remote Remote
	auth   AuthProvider
	tables []Table
	marks  watermarkStore
	tx     txManager
	cfg    Config
	now    func() time.Time

	group singleflight.Group

	mu     sync.RWMutex
	state  domain.SyncState
	last   domain.SyncResult
	lastAt time.Time
}

// NewEngine creates a sync engine over tables, pushed in the given order.
func NewEngine(logger *slog.Logger, remote Remote, auth AuthProvider, tables []Table, marks watermarkStore, tx txManager, cfg Config) *Engine {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 5 * time.Minute
	}
	return &Engine{
		log:    logger.With("service", "syncer"),
		remote: remote,
		auth:   auth,
		tables: tables,
		marks:  marks,
		tx:     tx,
		cfg:    cfg,
		now:    time.Now,
		state:  domain.SyncStateIdle,
	}
}

// Status describes the engine's last run.
type Status struct {
	State      domain.SyncState
	LastResult domain.SyncResult
	LastSyncAt time.Time
}

// Status returns the current state and the result of the last finished run.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Status{State: e.state, LastResult: e.last, LastSyncAt: e.lastAt}
}

// TableNames returns the names of the synced local tables.
func (e *Engine) TableNames() []string {
	names := make([]string, len(e.tables))
	for i, t := range e.tables {
		names[i] = t.Name()
	}
	return names
}

// Pending counts dirty records waiting to be pushed.
func (e *Engine) Pending(ctx context.Context) (int, error) {
	n := 0
	for _, t := range e.tables {
		out, err := t.Outbox(ctx)
		if err != nil {
			return 0, fmt.Errorf("outbox %s: %w", t.Kind(), err)
		}
		n += len(out)
	}
	return n, nil
}

func (e *Engine) setState(s domain.SyncState) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) finish(res domain.SyncResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = res.Status
	e.last = res
	if res.Status == domain.SyncStateSuccess {
		e.lastAt = res.StartedAt
	}
}
