package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/myquran/internal/adapter/remote/memory"
	"github.com/heartmarshall/myquran/internal/auth"
	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/transport/middleware"
	"github.com/heartmarshall/myquran/internal/transport/rest"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newServer runs the real sync API over an in-memory store and returns a
// client signed in as a fresh user.
func newServer(t *testing.T) (*Client, *memory.Store, uuid.UUID) {
	t.Helper()

	jwt := auth.NewJWTManager("test-secret-at-least-32-chars-long-for-security", "myquran-test", time.Hour)
	store := memory.New()
	logger := testLogger()

	srv := httptest.NewServer(rest.NewRouter(rest.RouterDeps{
		Logger: logger,
		Health: rest.NewHealthHandler("test", nil),
		Sync:   rest.NewSyncHandler(store, logger),
		Auth:   middleware.Auth(jwt),
	}))
	t.Cleanup(srv.Close)

	userID := uuid.New()
	token, err := jwt.GenerateSyncToken(userID, "test")
	require.NoError(t, err)

	return New(srv.URL, staticToken(token), logger), store, userID
}

func hifzRecord(key string, version int64) domain.RemoteRecord {
	return domain.RemoteRecord{
		Kind:       domain.EntityKindHifz,
		ClientID:   key,
		NaturalKey: key,
		Version:    version,
		Payload:    json.RawMessage(`{"status":"learning"}`),
	}
}

// ---------------------------------------------------------------------------
// Contract against the real API
// ---------------------------------------------------------------------------

func TestClient_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, store, userID := newServer(t)

	created, err := c.Create(ctx, hifzRecord("1:1", 1))
	require.NoError(t, err)
	assert.NotEmpty(t, created.RemoteID)
	assert.Equal(t, 1, store.Len(userID))

	found, ok, err := c.FindByNaturalKey(ctx, domain.EntityKindHifz, "1:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, created.RemoteID, found.RemoteID)
	assert.JSONEq(t, `{"status":"learning"}`, string(found.Payload))

	upd := hifzRecord("1:1", 2)
	upd.RemoteID = created.RemoteID
	upd.Payload = json.RawMessage(`{"status":"memorized"}`)
	updated, err := c.Update(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	require.NoError(t, c.SoftDelete(ctx, domain.EntityKindHifz, created.RemoteID, 3))

	_, ok, err = c.FindByNaturalKey(ctx, domain.EntityKindHifz, "1:1")
	require.NoError(t, err)
	assert.False(t, ok)

	recs, err := c.ListUpdatedSince(ctx, domain.EntityKindHifz, time.Time{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Deleted)

	recs, err = c.ListUpdatedSince(ctx, domain.EntityKindHifz, recs[0].UpdatedAt.Add(time.Microsecond))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _, _ := newServer(t)

	_, err := c.Create(ctx, hifzRecord("2:1", 1))
	require.NoError(t, err)

	_, err = c.Create(ctx, hifzRecord("2:1", 1))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	missing := hifzRecord("2:2", 1)
	missing.RemoteID = uuid.NewString()
	_, err = c.Update(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.Create(ctx, domain.RemoteRecord{Kind: domain.EntityKindHifz})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestClient_Unauthorized(t *testing.T) {
	t.Parallel()
	c, _, _ := newServer(t)
	c.tokens = staticToken("")

	_, err := c.ListUpdatedSince(context.Background(), domain.EntityKindBookmark, time.Time{})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// ---------------------------------------------------------------------------
// Transport behavior
// ---------------------------------------------------------------------------

func TestClient_RetriesIdempotentOn5xx(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"records":[]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"), testLogger())
	c.retryDelay = time.Millisecond

	recs, err := c.ListUpdatedSince(context.Background(), domain.EntityKindSettings, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DoesNotRetryCreate(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok"), testLogger())
	c.retryDelay = time.Millisecond

	_, err := c.Create(context.Background(), hifzRecord("3:1", 1))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_DeadlineFromContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(srv.URL, staticToken("tok"), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.ListUpdatedSince(ctx, domain.EntityKindBookmark, time.Time{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusConflict, domain.ErrAlreadyExists},
		{http.StatusBadRequest, domain.ErrValidation},
		{http.StatusTooManyRequests, domain.ErrUnavailable},
		{http.StatusInternalServerError, domain.ErrUnavailable},
	}

	for _, tt := range tests {
		err := statusError(tt.status, "")
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}

	assert.Error(t, statusError(http.StatusTeapot, ""))
}
