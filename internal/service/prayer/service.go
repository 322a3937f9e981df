package prayer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
	"github.com/heartmarshall/myquran/internal/store"
)

// MaxStreakDays bounds the backward walk of GetStreak and the GetStats window.
const MaxStreakDays = 365

// logRepo defines the prayer log storage needed by the service.
type logRepo interface {
	Get(ctx context.Context, key string) (domain.PrayerLog, bool, error)
	Put(ctx context.Context, rec domain.PrayerLog) error
	Query(ctx context.Context, q store.Query) ([]domain.PrayerLog, error)
}

// txManager defines the transaction manager interface needed by the service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the daily prayer ledger.
type Service struct {
	log   *slog.Logger
	clock *calendar.Clock
	logs  logRepo
	tx    txManager
}

// NewService creates a new prayer ledger service.
func NewService(logger *slog.Logger, clock *calendar.Clock, logs logRepo, tx txManager) *Service {
	return &Service{
		log:   logger.With("service", "prayer"),
		clock: clock,
		logs:  logs,
		tx:    tx,
	}
}

// TogglePrayer flips the completion of prayer on date (today when empty).
func (s *Service) TogglePrayer(ctx context.Context, prayer domain.Prayer, date string) (domain.PrayerLog, error) {
	date, err := s.validate(prayer, date)
	if err != nil {
		return domain.PrayerLog{}, err
	}

	var out domain.PrayerLog
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		l, err := s.load(ctx, date)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		entry := l.Prayers[prayer]
		if entry.Completed {
			entry = domain.PrayerEntry{}
		} else {
			entry = domain.PrayerEntry{Completed: true, CompletedAt: &now}
		}
		l.Prayers[prayer] = entry
		l.RecordUpdate(now)

		if err := s.logs.Put(ctx, l); err != nil {
			return fmt.Errorf("save prayer log: %w", err)
		}
		out = l
		return nil
	})
	if err != nil {
		return domain.PrayerLog{}, err
	}

	s.log.InfoContext(ctx, "prayer toggled",
		slog.String("prayer", prayer.String()),
		slog.String("date", date),
		slog.Bool("completed", out.Prayers[prayer].Completed),
	)
	return out, nil
}

// GetLog returns the ledger for date (today when empty). A day without a
// record yields an empty, unsaved log.
func (s *Service) GetLog(ctx context.Context, date string) (domain.PrayerLog, error) {
	if date == "" {
		date = s.clock.Today()
	}
	if _, err := calendar.ParseDate(date); err != nil {
		return domain.PrayerLog{}, domain.NewValidationError("date", "must be YYYY-MM-DD")
	}
	return s.load(ctx, date)
}

// GetStreak counts consecutive days with all five prayers completed, walking
// back from today. An incomplete today does not break the streak.
func (s *Service) GetStreak(ctx context.Context) (int, error) {
	today := s.clock.Today()
	days, err := s.window(ctx, today, MaxStreakDays+1)
	if err != nil {
		return 0, err
	}

	return calendar.Streak(func(d string) bool {
		l, ok := days[d]
		return ok && l.IsComplete()
	}, today, MaxStreakDays), nil
}

// GetStats aggregates completion over the trailing window of days ending today.
func (s *Service) GetStats(ctx context.Context, days int) (domain.PrayerStats, error) {
	if days < 1 || days > MaxStreakDays {
		return domain.PrayerStats{}, domain.NewValidationError("days", fmt.Sprintf("must be between 1 and %d", MaxStreakDays))
	}

	logs, err := s.window(ctx, s.clock.Today(), days)
	if err != nil {
		return domain.PrayerStats{}, err
	}

	stats := domain.PrayerStats{Days: days}
	perPrayer := make(map[domain.Prayer]int, 5)
	for _, l := range logs {
		for _, p := range domain.Prayers() {
			if l.Prayers[p].Completed {
				perPrayer[p]++
				stats.Completed++
			}
		}
		if l.IsComplete() {
			stats.PerfectDays++
		}
	}

	for _, p := range domain.Prayers() {
		stats.PerPrayer = append(stats.PerPrayer, domain.PrayerStat{
			Prayer:    p,
			Completed: perPrayer[p],
			Rate:      float64(perPrayer[p]) / float64(days),
		})
	}
	stats.OverallRate = float64(stats.Completed) / float64(days*len(domain.Prayers()))

	return stats, nil
}

// window loads the logs of the n days ending at today, keyed by date.
func (s *Service) window(ctx context.Context, today string, n int) (map[string]domain.PrayerLog, error) {
	from := calendar.AddDays(today, -(n - 1))
	logs, err := s.logs.Query(ctx, store.On(store.IndexKey).Between(from, today))
	if err != nil {
		return nil, fmt.Errorf("query prayer logs: %w", err)
	}

	out := make(map[string]domain.PrayerLog, len(logs))
	for _, l := range logs {
		out[l.Date()] = l
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, date string) (domain.PrayerLog, error) {
	l, found, err := s.logs.Get(ctx, date)
	if err != nil {
		return domain.PrayerLog{}, fmt.Errorf("get prayer log %s: %w", date, err)
	}
	if !found {
		return domain.NewPrayerLog(date), nil
	}
	if l.Prayers == nil {
		l.Prayers = make(map[domain.Prayer]domain.PrayerEntry, 5)
	}
	return l, nil
}

func (s *Service) validate(prayer domain.Prayer, date string) (string, error) {
	var errs []domain.FieldError

	if !prayer.IsValid() {
		errs = append(errs, domain.FieldError{Field: "prayer", Message: "must be one of Fajr, Dhuhr, Asr, Maghrib, Isha"})
	}

	today := s.clock.Today()
	if date == "" {
		date = today
	} else if _, err := calendar.ParseDate(date); err != nil {
		errs = append(errs, domain.FieldError{Field: "date", Message: "must be YYYY-MM-DD"})
	} else if date > today {
		errs = append(errs, domain.FieldError{Field: "date", Message: "must not be in the future"})
	}

	if len(errs) > 0 {
		return "", &domain.ValidationError{Errors: errs}
	}
	return date, nil
}
