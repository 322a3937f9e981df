package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/myquran/internal/adapter/sqlite/testhelper"
	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/store"
)

func newBookmark(surah, ayah int) domain.Bookmark {
	b := domain.Bookmark{
		SurahID:    surah,
		AyahNumber: ayah,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	b.ClientID = uuid.NewString()
	b.RecordUpdate(b.CreatedAt)
	return b
}

// ---------------------------------------------------------------------------
// Get / Put / Delete
// ---------------------------------------------------------------------------

func TestTable_GetMissing(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)

	_, found, err := s.Tables.Bookmarks.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTable_PutGetRoundTrip(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	b := newBookmark(2, 255)
	b.Label = "Ayat al-Kursi"
	require.NoError(t, s.Tables.Bookmarks.Put(ctx, b))

	got, found, err := s.Tables.Bookmarks.Get(ctx, b.ClientID)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, b.ClientID, got.ClientID)
	assert.Equal(t, "Ayat al-Kursi", got.Label)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.IsDirty)
	assert.Equal(t, domain.PendingCreate, got.PendingOperation)
	assert.True(t, b.UpdatedAt.Equal(got.UpdatedAt))
}

func TestTable_PutRequiresClientID(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)

	err := s.Tables.Bookmarks.Put(context.Background(), domain.Bookmark{SurahID: 1, AyahNumber: 1})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestTable_StandaloneBookmarkUniqueIndex(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Tables.Bookmarks.Put(ctx, newBookmark(2, 255)))
	err := s.Tables.Bookmarks.Put(ctx, newBookmark(2, 255))
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	inCollection := newBookmark(2, 255)
	inCollection.CollectionID = "col"
	require.NoError(t, s.Tables.Bookmarks.Put(ctx, inCollection))
}

func TestTable_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	b := newBookmark(1, 1)
	require.NoError(t, s.Tables.Bookmarks.Put(ctx, b))
	require.NoError(t, s.Tables.Bookmarks.Delete(ctx, b.ClientID))
	require.NoError(t, s.Tables.Bookmarks.Delete(ctx, b.ClientID))

	_, found, err := s.Tables.Bookmarks.Get(ctx, b.ClientID)
	require.NoError(t, err)
	assert.False(t, found)
}

// ---------------------------------------------------------------------------
// Query
// ---------------------------------------------------------------------------

func TestTable_QueryCompoundIndex(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	for _, a := range []int{7, 3, 5} {
		require.NoError(t, s.Tables.Bookmarks.Put(ctx, newBookmark(2, a)))
	}
	require.NoError(t, s.Tables.Bookmarks.Put(ctx, newBookmark(3, 1)))

	exact, err := s.Tables.Bookmarks.Query(ctx, store.On(store.IndexSurahAyah, 2, 5))
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, 5, exact[0].AyahNumber)

	surah, err := s.Tables.Bookmarks.Query(ctx, store.On(store.IndexSurahAyah, 2))
	require.NoError(t, err)
	require.Len(t, surah, 3)
	assert.Equal(t, []int{3, 5, 7}, []int{surah[0].AyahNumber, surah[1].AyahNumber, surah[2].AyahNumber})

	ranged, err := s.Tables.Bookmarks.Query(ctx, store.On(store.IndexSurahAyah, 2).Between(4, 7).Take(1))
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, 5, ranged[0].AyahNumber)
}

func TestTable_QueryUnknownIndexReturnsEmpty(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	require.NoError(t, s.Tables.Bookmarks.Put(ctx, newBookmark(1, 1)))

	got, err := s.Tables.Bookmarks.Query(ctx, store.On("label", "x"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTable_QueryExcludesTombstones(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	b := newBookmark(1, 2)
	b.RemoteID = "r-1"
	b.RecordDelete(time.Now())
	require.NoError(t, s.Tables.Bookmarks.Put(ctx, b))

	got, err := s.Tables.Bookmarks.Query(ctx, store.On(store.IndexSurahAyah, 1, 2))
	require.NoError(t, err)
	assert.Empty(t, got)

	all, err := s.Tables.Bookmarks.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	dirty, err := s.Tables.Bookmarks.Dirty(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.True(t, dirty[0].IsDeleted)
}

// ---------------------------------------------------------------------------
// Sync access
// ---------------------------------------------------------------------------

func TestTable_MarkSynced_VersionGuard(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	b := newBookmark(4, 1)
	require.NoError(t, s.Tables.Bookmarks.Put(ctx, b))

	// A local edit lands between collecting the outbox and acknowledging it.
	edited := b
	edited.Label = "edited"
	edited.RecordUpdate(time.Now())
	require.NoError(t, s.Tables.Bookmarks.Put(ctx, edited))

	cleared, err := s.Tables.Bookmarks.MarkSynced(ctx, b.ClientID, "r-4", b.Version)
	require.NoError(t, err)
	assert.False(t, cleared)

	got, _, err := s.Tables.Bookmarks.Get(ctx, b.ClientID)
	require.NoError(t, err)
	assert.True(t, got.IsDirty)
	assert.Equal(t, "r-4", got.RemoteID)
	assert.Equal(t, domain.PendingUpdate, got.PendingOperation)
	assert.Equal(t, int64(2), got.Version)

	cleared, err = s.Tables.Bookmarks.MarkSynced(ctx, b.ClientID, "r-4", got.Version)
	require.NoError(t, err)
	assert.True(t, cleared)

	got, _, err = s.Tables.Bookmarks.Get(ctx, b.ClientID)
	require.NoError(t, err)
	assert.False(t, got.IsDirty)
	assert.Equal(t, domain.PendingNone, got.PendingOperation)
	assert.Equal(t, int64(2), got.Version)
}

func TestTable_OutboxAndApplyRemote(t *testing.T) {
	t.Parallel()
	a := testhelper.SetupStore(t)
	b := testhelper.SetupStore(t)
	ctx := context.Background()

	bm := newBookmark(18, 10)
	bm.Color = "green"
	require.NoError(t, a.Tables.Bookmarks.Put(ctx, bm))

	outbox, err := a.Tables.Bookmarks.Outbox(ctx)
	require.NoError(t, err)
	require.Len(t, outbox, 1)
	assert.Equal(t, "18:10", outbox[0].NaturalKey)
	assert.Equal(t, domain.EntityKindBookmark, outbox[0].Kind)

	rec := domain.RemoteRecord{
		Kind:       domain.EntityKindBookmark,
		RemoteID:   "r-18",
		ClientID:   bm.ClientID,
		NaturalKey: outbox[0].NaturalKey,
		Version:    outbox[0].Meta.Version,
		UpdatedAt:  time.Now().UTC().Truncate(time.Millisecond),
		Payload:    outbox[0].Payload,
	}

	_, found, err := b.Tables.Bookmarks.LocalMeta(ctx, rec)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, b.Tables.Bookmarks.ApplyRemote(ctx, rec.ClientID, rec))

	got, found, err := b.Tables.Bookmarks.FindByRemoteID(ctx, "r-18")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "green", got.Color)
	assert.Equal(t, 18, got.SurahID)
	assert.False(t, got.IsDirty)
	assert.Equal(t, bm.Version, got.Version)

	meta, found, err := b.Tables.Bookmarks.LocalMeta(ctx, domain.RemoteRecord{NaturalKey: "18:10"})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, bm.ClientID, meta.ClientID)
}

// ---------------------------------------------------------------------------
// Transactions and live queries
// ---------------------------------------------------------------------------

func TestTable_Tombstone(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()
	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)

	rec := domain.RemoteRecord{
		Kind:     domain.EntityKindBookmark,
		RemoteID: "r-2",
		ClientID: "c-2",
		Version:  1,
		Payload:  []byte(`{"surah_id":2,"ayah_number":255}`),
	}

	meta, err := s.Tables.Bookmarks.Tombstone(ctx, rec.ClientID, rec, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.Version)
	assert.True(t, meta.IsDeleted)
	assert.True(t, meta.IsDirty)
	assert.Equal(t, domain.PendingDelete, meta.PendingOperation)
	assert.Equal(t, "r-2", meta.RemoteID)

	outbox, err := s.Tables.Bookmarks.Outbox(ctx)
	require.NoError(t, err)
	require.Len(t, outbox, 1)
	assert.True(t, outbox[0].Meta.IsDeleted)

	live, err := s.Tables.Bookmarks.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	b := newBookmark(1, 3)
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Tables.Bookmarks.Put(ctx, b))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := s.Tables.Bookmarks.Get(ctx, b.ClientID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	b := newBookmark(1, 4)
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.Tx.RunInTx(ctx, func(ctx context.Context) error {
			return s.Tables.Bookmarks.Put(ctx, b)
		})
	})
	require.NoError(t, err)

	_, found, err := s.Tables.Bookmarks.Get(ctx, b.ClientID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestTxManager_PublishesAfterCommit(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	changes, cancel := s.Hub.Subscribe("bookmarks")
	defer cancel()

	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.Tables.Bookmarks.Put(ctx, newBookmark(5, 5)); err != nil {
			return err
		}
		select {
		case <-changes:
			t.Error("notification delivered before commit")
		default:
		}
		return nil
	})
	require.NoError(t, err)

	select {
	case table := <-changes:
		assert.Equal(t, "bookmarks", table)
	case <-time.After(time.Second):
		t.Fatal("no notification after commit")
	}
}

func TestWatch_LiveBookmarkQuery(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := store.Watch(ctx, s.Hub, discardLogger(), func(ctx context.Context) ([]domain.Bookmark, error) {
		return s.Tables.Bookmarks.Query(ctx, store.On(store.IndexSurahAyah, 36))
	}, "bookmarks")

	assert.Empty(t, <-results)

	require.NoError(t, s.Tables.Bookmarks.Put(ctx, newBookmark(36, 58)))

	select {
	case got := <-results:
		require.Len(t, got, 1)
		assert.Equal(t, 58, got[0].AyahNumber)
	case <-time.After(2 * time.Second):
		t.Fatal("live query did not refresh")
	}
}

// ---------------------------------------------------------------------------
// Metadata
// ---------------------------------------------------------------------------

func TestMetadata_TimeRoundTrip(t *testing.T) {
	t.Parallel()
	s := testhelper.SetupStore(t)
	ctx := context.Background()

	zero, err := s.Tables.Meta.GetTime(ctx, "last_sync_at")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	now := time.Date(2024, 6, 1, 12, 30, 0, 123, time.UTC)
	require.NoError(t, s.Tables.Meta.SetTime(ctx, "last_sync_at", now))
	require.NoError(t, s.Tables.Meta.SetTime(ctx, "last_sync_at", now.Add(time.Hour)))

	got, err := s.Tables.Meta.GetTime(ctx, "last_sync_at")
	require.NoError(t, err)
	assert.True(t, got.Equal(now.Add(time.Hour)))
}
