package library

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/store"
)

// CreateCollection creates an empty collection.
func (s *Service) CreateCollection(ctx context.Context, input CreateCollectionInput) (domain.Collection, error) {
	if err := input.Validate(); err != nil {
		return domain.Collection{}, err
	}

	now := s.clock.Now()
	c := domain.Collection{Name: domain.NormalizeName(input.Name), Color: input.Color, CreatedAt: now}
	c.ClientID = uuid.NewString()
	c.RecordUpdate(now)

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.collections.Put(ctx, c)
	}); err != nil {
		return domain.Collection{}, fmt.Errorf("save collection: %w", err)
	}

	s.log.InfoContext(ctx, "collection created",
		slog.String("collection_id", c.ClientID),
		slog.String("name", c.Name),
	)
	return c, nil
}

// RenameCollection changes the name and optionally the color. The collection
// must exist.
func (s *Service) RenameCollection(ctx context.Context, input RenameCollectionInput) (domain.Collection, error) {
	if err := input.Validate(); err != nil {
		return domain.Collection{}, err
	}

	var out domain.Collection
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, found, err := s.collections.Get(ctx, input.ClientID)
		if err != nil {
			return fmt.Errorf("get collection: %w", err)
		}
		if !found || c.IsDeleted {
			return fmt.Errorf("collection %s: %w", input.ClientID, domain.ErrNotFound)
		}

		c.Name = domain.NormalizeName(input.Name)
		if input.Color != nil {
			c.Color = *input.Color
		}
		c.RecordUpdate(s.clock.Now())
		if err := s.collections.Put(ctx, c); err != nil {
			return fmt.Errorf("save collection: %w", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return domain.Collection{}, err
	}
	return out, nil
}

// DeleteCollection deletes a collection and every bookmark in it. A missing
// collection is reported with removed=false.
func (s *Service) DeleteCollection(ctx context.Context, clientID string) (removed bool, bookmarks int, err error) {
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, found, err := s.collections.Get(ctx, clientID)
		if err != nil {
			return fmt.Errorf("get collection: %w", err)
		}
		if !found || c.IsDeleted {
			return nil
		}

		members, err := s.bookmarks.Query(ctx, store.On(store.IndexCollection, clientID))
		if err != nil {
			return fmt.Errorf("query collection bookmarks: %w", err)
		}
		for _, b := range members {
			if err := s.deleteBookmark(ctx, b); err != nil {
				return err
			}
		}

		if hard := c.RecordDelete(s.clock.Now()); hard {
			if err := s.collections.Delete(ctx, clientID); err != nil {
				return fmt.Errorf("delete collection: %w", err)
			}
		} else if err := s.collections.Put(ctx, c); err != nil {
			return fmt.Errorf("tombstone collection: %w", err)
		}

		removed, bookmarks = true, len(members)
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	if removed {
		s.log.InfoContext(ctx, "collection deleted",
			slog.String("collection_id", clientID),
			slog.Int("bookmarks", bookmarks),
		)
	}
	return removed, bookmarks, nil
}

// ListCollections returns live collections ordered by name.
func (s *Service) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	out, err := s.collections.Query(ctx, store.On(store.IndexName))
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	return out, nil
}
