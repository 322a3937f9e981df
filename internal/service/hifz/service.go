package hifz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
	"github.com/heartmarshall/myquran/internal/store"
)

const (
	// MaxDueReviews bounds GetDueReviews.
	MaxDueReviews = 500
	// MaxStreakDays bounds the backward walk of GetStreak.
	MaxStreakDays = 365
)

// progressRepo defines the memorization storage needed by the scheduler.
type progressRepo interface {
	Get(ctx context.Context, key string) (domain.HifzProgress, bool, error)
	Put(ctx context.Context, rec domain.HifzProgress) error
	Delete(ctx context.Context, key string) error
	Query(ctx context.Context, q store.Query) ([]domain.HifzProgress, error)
	All(ctx context.Context) ([]domain.HifzProgress, error)
}

// txManager defines the transaction manager interface needed by the scheduler.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the memorization scheduler.
type Service struct {
	log      *slog.Logger
	clock    *calendar.Clock
	progress progressRepo
	tx       txManager
	cfg      domain.SRSConfig
}

// NewService creates a new memorization scheduler.
func NewService(logger *slog.Logger, clock *calendar.Clock, progress progressRepo, tx txManager, cfg domain.SRSConfig) *Service {
	return &Service{
		log:      logger.With("service", "hifz"),
		clock:    clock,
		progress: progress,
		tx:       tx,
		cfg:      cfg,
	}
}

// mutate runs fn on the verse's record (a fresh not_started record when
// absent or reset) and saves the result as one versioned change.
func (s *Service) mutate(ctx context.Context, surahID, ayahNumber int, fn func(p *domain.HifzProgress) (bool, error)) (domain.HifzProgress, error) {
	var out domain.HifzProgress
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.load(ctx, surahID, ayahNumber)
		if err != nil {
			return err
		}

		changed, err := fn(&p)
		if err != nil {
			return err
		}
		if !changed {
			out = p
			return nil
		}

		p.RecordUpdate(s.clock.Now())
		if err := s.progress.Put(ctx, p); err != nil {
			return fmt.Errorf("save hifz progress %s: %w", p.ClientID, err)
		}
		out = p
		return nil
	})
	return out, err
}

// load returns the live record for the verse or a not_started placeholder
// that keeps the sync identity of a reset tombstone.
func (s *Service) load(ctx context.Context, surahID, ayahNumber int) (domain.HifzProgress, error) {
	key := domain.VerseKey(surahID, ayahNumber)
	p, found, err := s.progress.Get(ctx, key)
	if err != nil {
		return domain.HifzProgress{}, fmt.Errorf("get hifz progress %s: %w", key, err)
	}
	if found && !p.IsDeleted {
		return p, nil
	}

	fresh := domain.HifzProgress{
		SyncMeta:    p.SyncMeta,
		ChapterID:   surahID,
		VerseNumber: ayahNumber,
		Status:      domain.HifzStatusNotStarted,
		EaseFactor:  s.cfg.DefaultEaseFactor,
	}
	fresh.ClientID = key
	return fresh, nil
}
