package settings

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/heartmarshall/myquran/internal/domain"
	"github.com/heartmarshall/myquran/internal/service/calendar"
)

// maxKeyLength bounds setting keys.
const maxKeyLength = 64

// settingsRepo defines the settings storage needed by the service.
type settingsRepo interface {
	Get(ctx context.Context, key string) (domain.UserSettings, bool, error)
	Put(ctx context.Context, rec domain.UserSettings) error
}

// txManager defines the transaction manager interface needed by the service.
type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service manages the user preference bag.
type Service struct {
	log      *slog.Logger
	clock    *calendar.Clock
	settings settingsRepo
	tx       txManager
}

// NewService creates a new settings service.
func NewService(logger *slog.Logger, clock *calendar.Clock, settings settingsRepo, tx txManager) *Service {
	return &Service{
		log:      logger.With("service", "settings"),
		clock:    clock,
		settings: settings,
		tx:       tx,
	}
}

// Get returns the stored settings merged over the defaults.
func (s *Service) Get(ctx context.Context) (map[string]any, error) {
	cur, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return cur.Merged(), nil
}

// Update applies patch to the stored settings. A nil value removes the key so
// the default shows through again.
func (s *Service) Update(ctx context.Context, patch map[string]any) (map[string]any, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var out domain.UserSettings
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.load(ctx)
		if err != nil {
			return err
		}

		values := maps.Clone(cur.Values)
		if values == nil {
			values = make(map[string]any, len(patch))
		}
		for k, v := range patch {
			if v == nil {
				delete(values, k)
				continue
			}
			values[k] = v
		}
		cur.Values = values
		cur.RecordUpdate(s.clock.Now())

		if err := s.settings.Put(ctx, cur); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "settings updated",
		slog.Any("keys", slices.Sorted(maps.Keys(patch))),
		slog.Int64("version", out.Version),
	)
	return out.Merged(), nil
}

// Reset restores all defaults. The reset is itself a versioned change.
func (s *Service) Reset(ctx context.Context) (map[string]any, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.load(ctx)
		if err != nil {
			return err
		}
		cur.Values = map[string]any{}
		cur.RecordUpdate(s.clock.Now())
		if err := s.settings.Put(ctx, cur); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "settings reset")
	return domain.DefaultSettings(), nil
}

func (s *Service) load(ctx context.Context) (domain.UserSettings, error) {
	cur, found, err := s.settings.Get(ctx, domain.SingletonKey)
	if err != nil {
		return domain.UserSettings{}, fmt.Errorf("get settings: %w", err)
	}
	if !found {
		cur = domain.UserSettings{}
		cur.ClientID = domain.SingletonKey
	}
	return cur, nil
}

func validatePatch(patch map[string]any) error {
	if len(patch) == 0 {
		return domain.NewValidationError("patch", "at least one key required")
	}

	var errs []domain.FieldError
	for _, k := range slices.Sorted(maps.Keys(patch)) {
		switch {
		case strings.TrimSpace(k) == "":
			errs = append(errs, domain.FieldError{Field: "key", Message: "must not be empty"})
		case len(k) > maxKeyLength:
			errs = append(errs, domain.FieldError{Field: k, Message: "key too long"})
		}
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
