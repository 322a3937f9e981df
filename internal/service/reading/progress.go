package reading

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
	"github.com/heartmarshall/myquran/internal/store"
)

// GetProgress returns the reading progress. Before the first read it returns
// an empty, unsaved record.
func (s *Service) GetProgress(ctx context.Context) (domain.ReadingProgress, error) {
	p, _, err := s.loadProgress(ctx)
	if err != nil {
		return domain.ReadingProgress{}, err
	}
	return p, nil
}

// UpdatePosition stores the last read position and counts today toward the streak.
func (s *Service) UpdatePosition(ctx context.Context, input UpdatePositionInput) (domain.ReadingProgress, error) {
	if err := input.Validate(); err != nil {
		return domain.ReadingProgress{}, err
	}

	var out domain.ReadingProgress
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, _, err := s.loadProgress(ctx)
		if err != nil {
			return err
		}

		p.LastSurahID = input.SurahID
		p.LastAyahNumber = input.AyahNumber
		if input.ScrollPosition != nil {
			p.LastScrollPosition = input.ScrollPosition
		}
		s.touchStreak(&p)
		p.RecordUpdate(s.clock.Now())

		if err := s.progress.Put(ctx, p); err != nil {
			return fmt.Errorf("save reading progress: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return domain.ReadingProgress{}, err
	}

	s.log.InfoContext(ctx, "reading position updated",
		slog.String("verse_key", domain.VerseKey(input.SurahID, input.AyahNumber)),
		slog.Int("streak", out.CurrentStreak),
	)
	return out, nil
}

// WatchProgress delivers the reading progress now and after every change.
func (s *Service) WatchProgress(ctx context.Context) <-chan domain.ReadingProgress {
	return store.Watch(ctx, s.hub, s.log, s.GetProgress, "reading_progress")
}

// touchStreak records a read on today's date.
func (s *Service) touchStreak(p *domain.ReadingProgress) {
	today := s.clock.Today()
	p.CurrentStreak = calendar.NextStreak(p.CurrentStreak, p.LastReadDate, today)
	p.LastReadDate = today
	p.LongestStreak = max(p.LongestStreak, p.CurrentStreak)
}

func (s *Service) loadProgress(ctx context.Context) (domain.ReadingProgress, bool, error) {
	p, found, err := s.progress.Get(ctx, domain.SingletonKey)
	if err != nil {
		return domain.ReadingProgress{}, false, fmt.Errorf("get reading progress: %w", err)
	}
	if !found {
		p = domain.ReadingProgress{}
		p.ClientID = domain.SingletonKey
	}
	return p, found, nil
}
