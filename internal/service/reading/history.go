package reading

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
	"github.com/heartmarshall/myquran/internal/store"
)

// RecordAyahRead adds a verse to today's history. A verse already recorded
// today is a no-op and returns recorded=false.
func (s *Service) RecordAyahRead(ctx context.Context, surahID, ayahNumber int) (recorded bool, err error) {
	if err := domain.ValidateVerse(surahID, ayahNumber); err != nil {
		return false, err
	}

	today := s.clock.Today()
	now := s.clock.Now()

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		h, err := s.loadDay(ctx, today)
		if err != nil {
			return err
		}
		if h.HasAyah(surahID, ayahNumber) {
			return nil
		}

		h.AyahsRead = append(h.AyahsRead, domain.AyahRead{SurahID: surahID, AyahNumber: ayahNumber, Timestamp: now})
		h.TotalAyahs = len(h.AyahsRead)
		h.RecordUpdate(now)
		if err := s.history.Put(ctx, h); err != nil {
			return fmt.Errorf("save reading history: %w", err)
		}

		p, _, err := s.loadProgress(ctx)
		if err != nil {
			return err
		}
		p.TotalAyahsRead++
		s.touchStreak(&p)
		p.RecordUpdate(now)
		if err := s.progress.Put(ctx, p); err != nil {
			return fmt.Errorf("save reading progress: %w", err)
		}

		recorded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if recorded {
		s.log.InfoContext(ctx, "ayah read",
			slog.String("verse_key", domain.VerseKey(surahID, ayahNumber)),
			slog.String("date", today),
		)
	}
	return recorded, nil
}

// AddReadingTime adds ms of reading time to today's history.
func (s *Service) AddReadingTime(ctx context.Context, ms int64) (domain.ReadingHistory, error) {
	if ms <= 0 {
		return domain.ReadingHistory{}, domain.NewValidationError("ms", "must be positive")
	}

	today := s.clock.Today()
	var out domain.ReadingHistory
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		h, err := s.loadDay(ctx, today)
		if err != nil {
			return err
		}
		h.TotalTimeMs += ms
		h.RecordUpdate(s.clock.Now())
		if err := s.history.Put(ctx, h); err != nil {
			return fmt.Errorf("save reading history: %w", err)
		}
		out = h
		return nil
	})
	if err != nil {
		return domain.ReadingHistory{}, err
	}
	return out, nil
}

// GetHistory returns the recorded days within the trailing window, most recent first.
func (s *Service) GetHistory(ctx context.Context, days int) ([]domain.ReadingHistory, error) {
	if days < 1 || days > MaxHistoryDays {
		return nil, domain.NewValidationError("days", fmt.Sprintf("must be between 1 and %d", MaxHistoryDays))
	}

	today := s.clock.Today()
	from := calendar.AddDays(today, -(days - 1))

	out, err := s.history.Query(ctx, store.On(store.IndexKey).Between(from, today).Reverse())
	if err != nil {
		return nil, fmt.Errorf("query reading history: %w", err)
	}
	return out, nil
}

func (s *Service) loadDay(ctx context.Context, date string) (domain.ReadingHistory, error) {
	h, found, err := s.history.Get(ctx, date)
	if err != nil {
		return domain.ReadingHistory{}, fmt.Errorf("get reading history %s: %w", date, err)
	}
	if !found {
		h = domain.ReadingHistory{}
		h.ClientID = date
	}
	return h, nil
}
