package hifz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
	"github.com/heartmarshall/myquran/internal/store"
)

// GetProgress returns the verse's record; a verse never drilled yields a
// not_started placeholder and found=false.
func (s *Service) GetProgress(ctx context.Context, verseKey string) (domain.HifzProgress, bool, error) {
	surahID, ayahNumber, err := domain.ParseVerseKey(verseKey)
	if err != nil {
		return domain.HifzProgress{}, false, err
	}
	p, err := s.load(ctx, surahID, ayahNumber)
	if err != nil {
		return domain.HifzProgress{}, false, err
	}
	return p, p.Status != domain.HifzStatusNotStarted, nil
}

// GetDueReviews returns up to limit verses due now, ordered by due date and
// then by (chapter, verse).
func (s *Service) GetDueReviews(ctx context.Context, limit int) ([]domain.HifzProgress, error) {
	if limit < 1 || limit > MaxDueReviews {
		return nil, domain.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", MaxDueReviews))
	}

	due, err := s.progress.Query(ctx, store.On(store.IndexDue).Between(nil, s.clock.Now()).Take(limit))
	if err != nil {
		return nil, fmt.Errorf("query due reviews: %w", err)
	}
	return due, nil
}

// RefreshOverdue moves verses overdue by more than the grace window to
// needs_revision and returns how many changed.
func (s *Service) RefreshOverdue(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.AddDate(0, 0, -s.cfg.GraceDays)

	changed := 0
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		overdue, err := s.progress.Query(ctx, store.On(store.IndexDue).Between(nil, cutoff))
		if err != nil {
			return fmt.Errorf("query overdue: %w", err)
		}
		for _, p := range overdue {
			if p.Status == domain.HifzStatusNeedsRevision || !p.DueAt.Before(cutoff) {
				continue
			}
			p.Status = domain.HifzStatusNeedsRevision
			p.ConsecutiveSuccess = 0
			p.RecordUpdate(now)
			if err := s.progress.Put(ctx, p); err != nil {
				return fmt.Errorf("save hifz progress %s: %w", p.ClientID, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if changed > 0 {
		s.log.InfoContext(ctx, "overdue verses need revision", slog.Int("count", changed))
	}
	return changed, nil
}

// GetTotalProgress counts verses per status over the whole mushaf.
func (s *Service) GetTotalProgress(ctx context.Context) (domain.HifzTotalProgress, error) {
	all, err := s.progress.All(ctx)
	if err != nil {
		return domain.HifzTotalProgress{}, fmt.Errorf("list hifz progress: %w", err)
	}

	out := domain.HifzTotalProgress{TotalVerses: domain.TotalVerses, TotalSurahs: domain.TotalSurahs}
	memorizedPerSurah := make(map[int]int)
	for _, p := range all {
		count(&out.HifzStatusCounts, p.Status)
		if p.Status == domain.HifzStatusMemorized {
			memorizedPerSurah[p.ChapterID]++
		}
	}
	out.NotStarted = domain.TotalVerses - out.Started()
	for surah, n := range memorizedPerSurah {
		if n == domain.VerseCount(surah) {
			out.SurahsMemorized++
		}
	}
	out.PercentMemorized = percent(out.Memorized, domain.TotalVerses)
	return out, nil
}

// GetSurahProgress counts verses per status within one surah.
func (s *Service) GetSurahProgress(ctx context.Context, surahID int) (domain.HifzSurahProgress, error) {
	total := domain.VerseCount(surahID)
	if total == 0 {
		return domain.HifzSurahProgress{}, domain.NewValidationError("surah_id", "out of range")
	}

	recs, err := s.progress.Query(ctx, store.On(store.IndexChapterVerse, surahID))
	if err != nil {
		return domain.HifzSurahProgress{}, fmt.Errorf("query surah %d: %w", surahID, err)
	}

	out := domain.HifzSurahProgress{SurahID: surahID, TotalVerses: total}
	for _, p := range recs {
		count(&out.HifzStatusCounts, p.Status)
	}
	out.NotStarted = total - out.Started()
	out.PercentMemorized = percent(out.Memorized, total)
	return out, nil
}

// GetStreak counts consecutive days with at least one review, ending today.
// A day without reviews yet today does not break it.
func (s *Service) GetStreak(ctx context.Context) (int, error) {
	all, err := s.progress.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("list hifz progress: %w", err)
	}

	days := make(map[string]struct{})
	for _, p := range all {
		for _, e := range p.ConfidenceHistory {
			days[s.clock.DateKey(e.ReviewedAt)] = struct{}{}
		}
		if p.LastReviewedAt != nil {
			days[s.clock.DateKey(*p.LastReviewedAt)] = struct{}{}
		}
	}
	return calendar.StreakFromSet(days, s.clock.Today(), MaxStreakDays), nil
}

func count(c *domain.HifzStatusCounts, status domain.HifzStatus) {
	switch status {
	case domain.HifzStatusLearning:
		c.Learning++
	case domain.HifzStatusMemorized:
		c.Memorized++
	case domain.HifzStatusNeedsRevision:
		c.NeedsRevision++
	}
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}
