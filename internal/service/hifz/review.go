package hifz

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
)

// StartLearning puts a verse into the drill. It is a no-op for a verse that
// has already started.
func (s *Service) StartLearning(ctx context.Context, verseKey string) (domain.HifzProgress, error) {
	surahID, ayahNumber, err := domain.ParseVerseKey(verseKey)
	if err != nil {
		return domain.HifzProgress{}, err
	}

	return s.mutate(ctx, surahID, ayahNumber, func(p *domain.HifzProgress) (bool, error) {
		if p.Status != domain.HifzStatusNotStarted {
			return false, nil
		}
		now := s.clock.Now()
		p.Status = domain.HifzStatusLearning
		p.IntervalDays = 0
		p.DueAt = now
		return true, nil
	})
}

// Review applies a confidence rating to a verse and reschedules it.
// The first review of a verse creates its record.
func (s *Service) Review(ctx context.Context, verseKey string, confidence domain.Confidence) (domain.HifzProgress, error) {
	surahID, ayahNumber, err := domain.ParseVerseKey(verseKey)
	if err != nil {
		return domain.HifzProgress{}, err
	}
	if !confidence.IsValid() {
		return domain.HifzProgress{}, domain.NewValidationError("confidence", "must be one of new, shaky, good, solid")
	}

	var from domain.HifzStatus
	p, err := s.mutate(ctx, surahID, ayahNumber, func(p *domain.HifzProgress) (bool, error) {
		now := s.clock.Now()
		from = p.Status

		out := CalculateSRS(SRSInput{
			CurrentStatus:      p.Status,
			CurrentInterval:    p.IntervalDays,
			CurrentEase:        p.EaseFactor,
			ConsecutiveSuccess: p.ConsecutiveSuccess,
			Confidence:         confidence,
			Now:                now,
			Config:             s.cfg,
		})

		p.Status = out.NewStatus
		p.IntervalDays = out.NewInterval
		p.EaseFactor = out.NewEase
		p.ConsecutiveSuccess = out.NewConsecutiveSuccess
		p.DueAt = out.DueAt
		p.LastReviewedAt = &now
		p.ReviewCount++
		p.AppendConfidence(confidence, now)
		return true, nil
	})
	if err != nil {
		return domain.HifzProgress{}, err
	}

	s.log.InfoContext(ctx, "verse reviewed",
		slog.String("verse_key", p.ClientID),
		slog.String("confidence", confidence.String()),
		slog.String("from", from.String()),
		slog.String("to", p.Status.String()),
		slog.Int("interval_days", p.IntervalDays),
	)
	return p, nil
}

// MarkMemorized records a verse as memorized without a drill.
func (s *Service) MarkMemorized(ctx context.Context, verseKey string) (domain.HifzProgress, error) {
	surahID, ayahNumber, err := domain.ParseVerseKey(verseKey)
	if err != nil {
		return domain.HifzProgress{}, err
	}
	return s.mutate(ctx, surahID, ayahNumber, s.markMemorized)
}

// MarkSurahMemorized marks every verse of a surah memorized in one
// transaction and returns how many verses changed.
func (s *Service) MarkSurahMemorized(ctx context.Context, surahID int) (int, error) {
	n := domain.VerseCount(surahID)
	if n == 0 {
		return 0, domain.NewValidationError("surah_id", "out of range")
	}

	changed := 0
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for ayah := 1; ayah <= n; ayah++ {
			_, err := s.mutate(ctx, surahID, ayah, func(p *domain.HifzProgress) (bool, error) {
				ok, err := s.markMemorized(p)
				if ok {
					changed++
				}
				return ok, err
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.InfoContext(ctx, "surah marked memorized",
		slog.Int("surah_id", surahID),
		slog.Int("changed", changed),
	)
	return changed, nil
}

func (s *Service) markMemorized(p *domain.HifzProgress) (bool, error) {
	if p.Status == domain.HifzStatusMemorized {
		return false, nil
	}
	now := s.clock.Now()
	p.Status = domain.HifzStatusMemorized
	if p.EaseFactor <= 0 {
		p.EaseFactor = s.cfg.DefaultEaseFactor
	}
	p.IntervalDays = min(max(p.IntervalDays, s.cfg.SecondIntervalDays), s.cfg.MaxIntervalDays)
	p.ConsecutiveSuccess = max(p.ConsecutiveSuccess, s.cfg.MemorizedAfter)
	p.DueAt = now.AddDate(0, 0, p.IntervalDays)
	p.LastReviewedAt = &now
	return true, nil
}

// Relearn moves a memorized or needs_revision verse back to learning, due
// now. A verse without progress is reported with found=false.
func (s *Service) Relearn(ctx context.Context, verseKey string) (p domain.HifzProgress, found bool, err error) {
	surahID, ayahNumber, err := domain.ParseVerseKey(verseKey)
	if err != nil {
		return domain.HifzProgress{}, false, err
	}

	p, err = s.mutate(ctx, surahID, ayahNumber, func(p *domain.HifzProgress) (bool, error) {
		switch p.Status {
		case domain.HifzStatusNotStarted, domain.HifzStatusLearning:
			return false, nil
		}
		p.Status = domain.HifzStatusLearning
		p.IntervalDays = 0
		p.ConsecutiveSuccess = 0
		p.DueAt = s.clock.Now()
		return true, nil
	})
	if err != nil {
		return domain.HifzProgress{}, false, err
	}
	return p, p.Status != domain.HifzStatusNotStarted, nil
}

// Reset deletes the verse's progress, returning it to not_started. A verse
// without progress is reported with removed=false.
func (s *Service) Reset(ctx context.Context, verseKey string) (removed bool, err error) {
	surahID, ayahNumber, err := domain.ParseVerseKey(verseKey)
	if err != nil {
		return false, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.load(ctx, surahID, ayahNumber)
		if err != nil || p.Status == domain.HifzStatusNotStarted {
			return err
		}
		if hard := p.RecordDelete(s.clock.Now()); hard {
			if err := s.progress.Delete(ctx, p.ClientID); err != nil {
				return err
			}
		} else if err := s.progress.Put(ctx, p); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.log.InfoContext(ctx, "verse reset", slog.String("verse_key", verseKey))
	}
	return removed, nil
}
