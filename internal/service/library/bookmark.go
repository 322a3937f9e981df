package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/store"
)

// AddBookmark creates a bookmark. A verse may be bookmarked at most once
// outside collections and once per collection; a duplicate returns
// domain.ErrAlreadyExists.
func (s *Service) AddBookmark(ctx context.Context, input AddBookmarkInput) (domain.Bookmark, error) {
	if err := input.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	now := s.clock.Now()
	b := domain.Bookmark{
		SurahID:      input.SurahID,
		AyahNumber:   input.AyahNumber,
		Label:        domain.NormalizeName(input.Label),
		Color:        input.Color,
		CollectionID: input.CollectionID,
		CreatedAt:    now,
	}
	b.ClientID = uuid.NewString()
	b.RecordUpdate(now)

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.ensureCollection(ctx, input.CollectionID); err != nil {
			return err
		}
		if _, found, err := s.findInScope(ctx, input.SurahID, input.AyahNumber, input.CollectionID); err != nil {
			return err
		} else if found {
			return fmt.Errorf("bookmark %s: %w", b.VerseKey(), domain.ErrAlreadyExists)
		}
		if err := s.bookmarks.Put(ctx, b); err != nil {
			return fmt.Errorf("save bookmark: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, err
	}

	s.log.InfoContext(ctx, "bookmark added",
		slog.String("bookmark_id", b.ClientID),
		slog.String("verse_key", b.VerseKey()),
		slog.String("collection_id", b.CollectionID),
	)
	return b, nil
}

// UpdateBookmark changes label, color or collection. A missing bookmark is
// reported with found=false.
func (s *Service) UpdateBookmark(ctx context.Context, input UpdateBookmarkInput) (b domain.Bookmark, found bool, err error) {
	if err := input.Validate(); err != nil {
		return domain.Bookmark{}, false, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, ok, err := s.getLive(ctx, input.ClientID)
		if err != nil || !ok {
			return err
		}

		if input.Label != nil {
			cur.Label = domain.NormalizeName(*input.Label)
		}
		if input.Color != nil {
			cur.Color = *input.Color
		}
		if input.CollectionID != nil && *input.CollectionID != cur.CollectionID {
			if err := s.ensureCollection(ctx, *input.CollectionID); err != nil {
				return err
			}
			other, dup, err := s.findInScope(ctx, cur.SurahID, cur.AyahNumber, *input.CollectionID)
			if err != nil {
				return err
			}
			if dup && other.ClientID != cur.ClientID {
				return fmt.Errorf("bookmark %s: %w", cur.VerseKey(), domain.ErrAlreadyExists)
			}
			cur.CollectionID = *input.CollectionID
		}

		cur.RecordUpdate(s.clock.Now())
		if err := s.bookmarks.Put(ctx, cur); err != nil {
			return fmt.Errorf("save bookmark: %w", err)
		}
		b, found = cur, true
		return nil
	})
	if err != nil {
		return domain.Bookmark{}, false, err
	}
	return b, found, nil
}

// RemoveBookmark deletes a bookmark: tombstoned when already synced, removed
// outright otherwise. A missing bookmark is reported with removed=false.
func (s *Service) RemoveBookmark(ctx context.Context, clientID string) (removed bool, err error) {
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, ok, err := s.getLive(ctx, clientID)
		if err != nil || !ok {
			return err
		}
		if err := s.deleteBookmark(ctx, cur); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.log.InfoContext(ctx, "bookmark removed", slog.String("bookmark_id", clientID))
	}
	return removed, nil
}

// ToggleBookmark adds a standalone bookmark for the verse or removes the
// existing one. It returns the resulting state.
func (s *Service) ToggleBookmark(ctx context.Context, surahID, ayahNumber int) (bookmarked bool, err error) {
	if err := domain.ValidateVerse(surahID, ayahNumber); err != nil {
		return false, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, found, err := s.findInScope(ctx, surahID, ayahNumber, "")
		if err != nil {
			return err
		}
		if found {
			bookmarked = false
			return s.deleteBookmark(ctx, cur)
		}
		if _, err := s.AddBookmark(ctx, AddBookmarkInput{SurahID: surahID, AyahNumber: ayahNumber}); err != nil {
			return err
		}
		bookmarked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return bookmarked, nil
}

// IsBookmarked reports whether the verse has any live bookmark.
func (s *Service) IsBookmarked(ctx context.Context, surahID, ayahNumber int) (bool, error) {
	if err := domain.ValidateVerse(surahID, ayahNumber); err != nil {
		return false, err
	}
	got, err := s.bookmarks.Query(ctx, store.On(store.IndexSurahAyah, surahID, ayahNumber).Take(1))
	if err != nil {
		return false, fmt.Errorf("query bookmarks: %w", err)
	}
	return len(got) > 0, nil
}

// ListBookmarks returns all live bookmarks in mushaf order.
func (s *Service) ListBookmarks(ctx context.Context) ([]domain.Bookmark, error) {
	out, err := s.bookmarks.Query(ctx, store.On(store.IndexSurahAyah))
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	return out, nil
}

// ListSurahBookmarks returns the live bookmarks of one surah in ayah order.
func (s *Service) ListSurahBookmarks(ctx context.Context, surahID int) ([]domain.Bookmark, error) {
	if domain.VerseCount(surahID) == 0 {
		return nil, domain.NewValidationError("surah_id", fmt.Sprintf("must be between 1 and %d", domain.TotalSurahs))
	}
	out, err := s.bookmarks.Query(ctx, store.On(store.IndexSurahAyah, surahID))
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	return out, nil
}

// ListCollectionBookmarks returns the bookmarks of a collection, oldest first.
// An empty id lists standalone bookmarks.
func (s *Service) ListCollectionBookmarks(ctx context.Context, collectionID string) ([]domain.Bookmark, error) {
	out, err := s.bookmarks.Query(ctx, store.On(store.IndexCollection, collectionID))
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	return out, nil
}

// WatchSurahBookmarks delivers the surah's bookmarks now and after every change.
func (s *Service) WatchSurahBookmarks(ctx context.Context, surahID int) <-chan []domain.Bookmark {
	return store.Watch(ctx, s.hub, s.log, func(ctx context.Context) ([]domain.Bookmark, error) {
		return s.ListSurahBookmarks(ctx, surahID)
	}, "bookmarks")
}

func (s *Service) deleteBookmark(ctx context.Context, b domain.Bookmark) error {
	if hard := b.RecordDelete(s.clock.Now()); hard {
		if err := s.bookmarks.Delete(ctx, b.ClientID); err != nil {
			return fmt.Errorf("delete bookmark: %w", err)
		}
		return nil
	}
	if err := s.bookmarks.Put(ctx, b); err != nil {
		return fmt.Errorf("tombstone bookmark: %w", err)
	}
	return nil
}

func (s *Service) getLive(ctx context.Context, clientID string) (domain.Bookmark, bool, error) {
	b, found, err := s.bookmarks.Get(ctx, clientID)
	if err != nil {
		return domain.Bookmark{}, false, fmt.Errorf("get bookmark: %w", err)
	}
	if !found || b.IsDeleted {
		return domain.Bookmark{}, false, nil
	}
	return b, true, nil
}

// findInScope finds the live bookmark of a verse within one collection
// (empty id: among standalone bookmarks).
func (s *Service) findInScope(ctx context.Context, surahID, ayahNumber int, collectionID string) (domain.Bookmark, bool, error) {
	got, err := s.bookmarks.Query(ctx, store.On(store.IndexSurahAyah, surahID, ayahNumber))
	if err != nil {
		return domain.Bookmark{}, false, fmt.Errorf("query bookmarks: %w", err)
	}
	for _, b := range got {
		if b.CollectionID == collectionID {
			return b, true, nil
		}
	}
	return domain.Bookmark{}, false, nil
}

func (s *Service) ensureCollection(ctx context.Context, collectionID string) error {
	if collectionID == "" {
		return nil
	}
	c, found, err := s.collections.Get(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}
	if !found || c.IsDeleted {
		return fmt.Errorf("collection %s: %w", collectionID, domain.ErrNotFound)
	}
	return nil
}
