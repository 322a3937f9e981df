package reading

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
	"github.com/heartmarshall/myquran/internal/store"
)

// progressRepo defines the reading progress storage needed by the service.
type progressRepo interface {
	Get(ctx context.Context, key string) (domain.ReadingProgress, bool, error)
	Put(ctx context.Context, rec domain.ReadingProgress) error
}

// historyRepo defines the reading history storage needed by the service.
type historyRepo interface {
	Get(ctx context.Context, key string) (domain.ReadingHistory, bool, error)
	Put(ctx context.Context, rec domain.ReadingHistory) error
	Query(ctx context.Context, q store.Query) ([]domain.ReadingHistory, error)
}

// txManager defines the transaction manager interface needed by the service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service tracks the reading position, per-day history and reading streak.
type Service struct {
	log      *slog.Logger
	clock    *calendar.Clock
	progress progressRepo
	history  historyRepo
	tx       txManager
	hub      *store.Hub
}

// NewService creates a new reading service instance.
func NewService(
	logger *slog.Logger,
	clock *calendar.Clock,
	progress progressRepo,
	history historyRepo,
	tx txManager,
	hub *store.Hub,
) *Service {
	return &Service{
		log:      logger.With("service", "reading"),
		clock:    clock,
		progress: progress,
		history:  history,
		tx:       tx,
		hub:      hub,
	}
}
