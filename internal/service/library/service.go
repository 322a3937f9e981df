package library

import (
	"context"
	"log/slog"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
	"github.com/heartmarshall/myquran/internal/store"
)

// bookmarkRepo defines the bookmark storage needed by the library service.
type bookmarkRepo interface {
	Get(ctx context.Context, key string) (domain.Bookmark, bool, error)
	Put(ctx context.Context, rec domain.Bookmark) error
	Delete(ctx context.Context, key string) error
	Query(ctx context.Context, q store.Query) ([]domain.Bookmark, error)
}

// collectionRepo defines the collection storage needed by the library service.
type collectionRepo interface {
	Get(ctx context.Context, key string) (domain.Collection, bool, error)
	Put(ctx context.Context, rec domain.Collection) error
	Delete(ctx context.Context, key string) error
	Query(ctx context.Context, q store.Query) ([]domain.Collection, error)
}

// txManager defines the transaction manager interface needed by the library service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages bookmarks and the collections that group them.
type Service struct {
	log         *slog.Logger
	clock       *calendar.Clock
	bookmarks   bookmarkRepo
	collections collectionRepo
	tx          txManager
	hub         *store.Hub
}

// NewService creates a new library service instance.
func NewService(
	logger *slog.Logger,
	clock *calendar.Clock,
	bookmarks bookmarkRepo,
	collections collectionRepo,
	tx txManager,
	hub *store.Hub,
) *Service {
	return &Service{
		log:         logger.With("service", "library"),
		clock:       clock,
		bookmarks:   bookmarks,
		collections: collections,
		tx:          tx,
		hub:         hub,
	}
}
