package prayer

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/myquran/internal/adapter/sqlite/testhelper"
	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

var testNow = time.Date(2024, 7, 20, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := testhelper.SetupStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(logger, calendar.Fixed(testNow), s.Tables.PrayerLogs, s.Tx)
}

func completeDay(t *testing.T, svc *Service, date string) {
	t.Helper()
	for _, p := range domain.Prayers() {
		_, err := svc.TogglePrayer(context.Background(), p, date)
		require.NoError(t, err)
	}
}

// ---------------------------------------------------------------------------
// TogglePrayer
// ---------------------------------------------------------------------------

func TestService_TogglePrayer_FlipsAndStamps(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	l, err := svc.TogglePrayer(ctx, domain.PrayerFajr, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-07-20", l.Date())
	require.True(t, l.Prayers[domain.PrayerFajr].Completed)
	require.NotNil(t, l.Prayers[domain.PrayerFajr].CompletedAt)
	assert.True(t, l.Prayers[domain.PrayerFajr].CompletedAt.Equal(testNow))
	assert.Equal(t, int64(1), l.Version)
	assert.Equal(t, domain.PendingCreate, l.PendingOperation)

	l, err = svc.TogglePrayer(ctx, domain.PrayerFajr, "2024-07-20")
	require.NoError(t, err)
	assert.False(t, l.Prayers[domain.PrayerFajr].Completed)
	assert.Nil(t, l.Prayers[domain.PrayerFajr].CompletedAt)
	assert.Equal(t, int64(2), l.Version)

	stored, err := svc.GetLog(ctx, "")
	require.NoError(t, err)
	assert.Len(t, stored.Prayers, 5)
	assert.Equal(t, int64(2), stored.Version)
}

func TestService_TogglePrayer_Validation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		prayer domain.Prayer
		date   string
		field  string
	}{
		{"unknown prayer", domain.Prayer("Tahajjud"), "", "prayer"},
		{"bad date", domain.PrayerAsr, "20-07-2024", "date"},
		{"future date", domain.PrayerAsr, "2024-07-21", "date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.TogglePrayer(ctx, tt.prayer, tt.date)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Errors[0].Field)
		})
	}
}

func TestService_TogglePrayer_ConcurrentToggles(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	// Even number of toggles per prayer: every prayer ends unchecked.
	const perPrayer = 8
	prayers := domain.Prayers()
	total := perPrayer * len(prayers)

	var wg sync.WaitGroup
	errs := make(chan error, total)
	for _, p := range prayers {
		for range perPrayer {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.TogglePrayer(ctx, p, "2024-07-20")
				errs <- err
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	l, err := svc.GetLog(ctx, "2024-07-20")
	require.NoError(t, err)
	assert.Equal(t, int64(total), l.Version)
	for _, p := range prayers {
		assert.False(t, l.Prayers[p].Completed, "%s toggled an even number of times", p)
	}
}

// ---------------------------------------------------------------------------
// GetStreak
// ---------------------------------------------------------------------------

func TestService_GetStreak_TodayEmptyDoesNotBreak(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	completeDay(t, svc, "2024-07-19")

	streak, err := svc.GetStreak(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, streak, 1)
	assert.Equal(t, 1, streak)
}

func TestService_GetStreak(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		complete []string
		partial  []string
		want     int
	}{
		{"no logs", nil, nil, 0},
		{"today complete", []string{"2024-07-20"}, nil, 1},
		{"run through today", []string{"2024-07-20", "2024-07-19", "2024-07-18"}, nil, 3},
		{"today partial", []string{"2024-07-19", "2024-07-18"}, []string{"2024-07-20"}, 2},
		{"earlier gap breaks", []string{"2024-07-19", "2024-07-17"}, nil, 1},
		{"earlier incomplete breaks", []string{"2024-07-19", "2024-07-17"}, []string{"2024-07-18"}, 1},
		{"yesterday missing", []string{"2024-07-18"}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestService(t)
			for _, d := range tt.complete {
				completeDay(t, svc, d)
			}
			for _, d := range tt.partial {
				_, err := svc.TogglePrayer(context.Background(), domain.PrayerFajr, d)
				require.NoError(t, err)
			}

			got, err := svc.GetStreak(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ---------------------------------------------------------------------------
// GetStats
// ---------------------------------------------------------------------------

func TestService_GetStats(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	completeDay(t, svc, "2024-07-20")
	_, err := svc.TogglePrayer(ctx, domain.PrayerFajr, "2024-07-19")
	require.NoError(t, err)
	// Outside a 2-day window.
	completeDay(t, svc, "2024-07-10")

	stats, err := svc.GetStats(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Days)
	assert.Equal(t, 6, stats.Completed)
	assert.Equal(t, 1, stats.PerfectDays)
	assert.InDelta(t, 0.6, stats.OverallRate, 1e-9)
	require.Len(t, stats.PerPrayer, 5)
	assert.Equal(t, domain.PrayerFajr, stats.PerPrayer[0].Prayer)
	assert.Equal(t, 2, stats.PerPrayer[0].Completed)
	assert.InDelta(t, 1.0, stats.PerPrayer[0].Rate, 1e-9)
	assert.InDelta(t, 0.5, stats.PerPrayer[4].Rate, 1e-9)

	_, err = svc.GetStats(ctx, 0)
	require.ErrorIs(t, err, domain.ErrValidation)
}
