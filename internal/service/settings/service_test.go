package settings

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/myquran/internal/adapter/sqlite/testhelper"
	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
)

func newTestService(t *testing.T) (*Service, *testhelper.Store) {
	t.Helper()
	s := testhelper.SetupStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	clock := calendar.Fixed(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	return NewService(logger, clock, s.Tables.Settings, s.Tx), s
}

func TestService_Get_DefaultsWithoutRecord(t *testing.T) {
	t.Parallel()
	svc, s := newTestService(t)
	ctx := context.Background()

	got, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), got)

	_, found, err := s.Tables.Settings.Get(ctx, domain.SingletonKey)
	require.NoError(t, err)
	assert.False(t, found, "reading must not create the record")
}

func TestService_Update_MergesAndVersions(t *testing.T) {
	t.Parallel()
	svc, s := newTestService(t)
	ctx := context.Background()

	got, err := svc.Update(ctx, map[string]any{"theme": "dark"})
	require.NoError(t, err)
	assert.Equal(t, "dark", got["theme"])
	assert.Equal(t, "uthmani", got["arabic_font"])

	_, err = svc.Update(ctx, map[string]any{"translation_id": 20})
	require.NoError(t, err)

	rec, found, err := s.Tables.Settings.Get(ctx, domain.SingletonKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(2), rec.Version)
	assert.True(t, rec.IsDirty)
	assert.Equal(t, "dark", rec.Values["theme"])
	// JSON numbers decode as float64.
	assert.EqualValues(t, 20, rec.Values["translation_id"])

	got, err = svc.Update(ctx, map[string]any{"theme": nil})
	require.NoError(t, err)
	assert.Equal(t, "system", got["theme"], "removing a key restores its default")
}

func TestService_Update_Validation(t *testing.T) {
	t.Parallel()
	svc, s := newTestService(t)
	ctx := context.Background()

	for _, patch := range []map[string]any{
		nil,
		{"": 1},
		{"  ": 1},
		{strings.Repeat("k", maxKeyLength+1): 1},
	} {
		_, err := svc.Update(ctx, patch)
		require.ErrorIs(t, err, domain.ErrValidation)
	}

	_, found, err := s.Tables.Settings.Get(ctx, domain.SingletonKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestService_Reset(t *testing.T) {
	t.Parallel()
	svc, s := newTestService(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, map[string]any{"theme": "dark", "custom": true})
	require.NoError(t, err)

	got, err := svc.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), got)

	rec, _, err := s.Tables.Settings.Get(ctx, domain.SingletonKey)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)
	assert.Empty(t, rec.Values)
}
