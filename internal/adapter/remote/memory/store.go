// Package memory is an in-process remote store. It backs tests and the
// offline demo mode of the CLI.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/pkg/ctxutil"
)

// Store keeps every user's records in memory.
type Store struct {
	mu    sync.Mutex
	users map[uuid.UUID]map[string]domain.RemoteRecord
	now   func() time.Time
	last  time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users: make(map[uuid.UUID]map[string]domain.RemoteRecord),
		now:   time.Now,
	}
}

// Create stores a new record and returns it with its remote id.
func (s *Store) Create(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.scope(ctx)
	if err != nil {
		return domain.RemoteRecord{}, err
	}
	if _, ok := findLive(recs, rec.Kind, rec.NaturalKey); ok && rec.NaturalKey != "" {
		return domain.RemoteRecord{}, domain.ErrAlreadyExists
	}
	if rec.RemoteID == "" {
		rec.RemoteID = uuid.NewString()
	}
	if _, ok := recs[rec.RemoteID]; ok {
		return domain.RemoteRecord{}, domain.ErrAlreadyExists
	}

	rec.Deleted = false
	rec.UpdatedAt = s.tick()
	recs[rec.RemoteID] = rec
	return rec, nil
}

// Update overwrites a record. The stored version always moves forward, so a
// write that lost a race is still seen as newer by every device.
func (s *Store) Update(ctx context.Context, rec domain.RemoteRecord) (domain.RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.scope(ctx)
	if err != nil {
		return domain.RemoteRecord{}, err
	}
	cur, ok := recs[rec.RemoteID]
	if !ok || cur.Kind != rec.Kind {
		return domain.RemoteRecord{}, domain.ErrNotFound
	}

	rec.Version = max(rec.Version, cur.Version+1)
	rec.Deleted = false
	rec.UpdatedAt = s.tick()
	recs[rec.RemoteID] = rec
	return rec, nil
}

// SoftDelete marks a record deleted.
func (s *Store) SoftDelete(ctx context.Context, kind domain.EntityKind, remoteID string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.scope(ctx)
	if err != nil {
		return err
	}
	cur, ok := recs[remoteID]
	if !ok || cur.Kind != kind {
		return domain.ErrNotFound
	}

	cur.Version = max(version, cur.Version+1)
	cur.Deleted = true
	cur.UpdatedAt = s.tick()
	recs[remoteID] = cur
	return nil
}

// FindByNaturalKey returns the live record of kind with naturalKey.
func (s *Store) FindByNaturalKey(ctx context.Context, kind domain.EntityKind, naturalKey string) (domain.RemoteRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.scope(ctx)
	if err != nil {
		return domain.RemoteRecord{}, false, err
	}
	rec, ok := findLive(recs, kind, naturalKey)
	return rec, ok, nil
}

// ListUpdatedSince returns records of kind changed at or after since,
// tombstones included, oldest first.
func (s *Store) ListUpdatedSince(ctx context.Context, kind domain.EntityKind, since time.Time) ([]domain.RemoteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}

	var out []domain.RemoteRecord
	for _, rec := range recs {
		if rec.Kind == kind && !rec.UpdatedAt.Before(since) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// Len returns the number of records held for userID, tombstones included.
func (s *Store) Len(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users[userID])
}

func (s *Store) scope(ctx context.Context) (map[string]domain.RemoteRecord, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs, ok := s.users[userID]
	if !ok {
		recs = make(map[string]domain.RemoteRecord)
		s.users[userID] = recs
	}
	return recs, nil
}

// tick returns a strictly increasing timestamp.
func (s *Store) tick() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func findLive(recs map[string]domain.RemoteRecord, kind domain.EntityKind, naturalKey string) (domain.RemoteRecord, bool) {
	for _, rec := range recs {
		if rec.Kind == kind && rec.NaturalKey == naturalKey && !rec.Deleted {
			return rec, true
		}
	}
	return domain.RemoteRecord{}, false
}
