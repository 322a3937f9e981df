package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// SyncMeta is the versioning and dirty-tracking header carried by every
// syncable record. Services change it only through RecordUpdate and
// RecordDelete; MarkSynced is reserved for the sync engine.
type SyncMeta struct {
	ClientID         string           `json:"-"`
	RemoteID         string           `json:"-"`
	Version          int64            `json:"-"`
	IsDirty          bool             `json:"-"`
	PendingOperation PendingOperation `json:"-"`
	IsDeleted        bool             `json:"-"`
	UpdatedAt        time.Time        `json:"-"`
}

// Meta exposes the header to generic storage code.
func (m *SyncMeta) Meta() *SyncMeta { return m }

// IsSynced reports whether the record has ever been acknowledged by the remote store.
func (m SyncMeta) IsSynced() bool { return m.RemoteID != "" }

// RecordUpdate applies a local mutation: version +1, dirty, and create until
// a remote id exists. A revived tombstone becomes live again.
func (m *SyncMeta) RecordUpdate(now time.Time) {
	m.Version++
	m.IsDirty = true
	m.IsDeleted = false
	m.UpdatedAt = now
	if m.RemoteID == "" {
		m.PendingOperation = PendingCreate
	} else {
		m.PendingOperation = PendingUpdate
	}
}

// RecordDelete applies a local deletion. It returns true when the record was
// never synced and must be removed outright instead of tombstoned.
func (m *SyncMeta) RecordDelete(now time.Time) (hardDelete bool) {
	if m.RemoteID == "" {
		return true
	}
	m.Version++
	m.IsDirty = true
	m.IsDeleted = true
	m.PendingOperation = PendingDelete
	m.UpdatedAt = now
	return false
}

// MarkSynced stores the acknowledged remote id and clears the dirty flag.
func (m *SyncMeta) MarkSynced(remoteID string) {
	m.RemoteID = remoteID
	m.IsDirty = false
	m.PendingOperation = PendingNone
}

// Record is implemented by pointers to syncable entities.
type Record interface {
	Meta() *SyncMeta
	// NaturalKey identifies the record across devices when no remote id is
	// known yet. Empty means the client id is the only identity.
	NaturalKey() string
}

// OutboxEntry is a dirty record waiting to be pushed.
type OutboxEntry struct {
	Kind       EntityKind
	Meta       SyncMeta
	NaturalKey string
	Payload    json.RawMessage
}

// RemoteRecord is the remote store's view of a syncable record.
type RemoteRecord struct {
	Kind       EntityKind      `json:"kind"`
	RemoteID   string          `json:"remote_id"`
	ClientID   string          `json:"client_id"`
	NaturalKey string          `json:"natural_key,omitempty"`
	Version    int64           `json:"version"`
	Deleted    bool            `json:"deleted"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// SyncFailure records a single record that could not be pushed.
type SyncFailure struct {
	Kind     EntityKind
	ClientID string
	Err      error
}

func (f SyncFailure) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Kind, f.ClientID, f.Err)
}

func (f SyncFailure) Unwrap() error { return f.Err }

// SyncResult summarizes one SyncAll pass.
type SyncResult struct {
	Status    SyncState
	Err       error
	Pushed    int
	Pulled    int
	Purged    int
	Conflicts int
	Failures  []SyncFailure
	StartedAt time.Time
	Duration  time.Duration
}
