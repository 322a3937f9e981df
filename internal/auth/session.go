package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/heartmarshall/myquran/internal/domain"
)

// TokenKey is the metadata key the device token is persisted under.
// An empty stored value records an explicit sign-out.
const TokenKey = "auth.token"

type tokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Session holds the device's sync credentials and reports whether sync may run.
// The client cannot verify the signature; it only reads the subject and expiry
// so it can stop syncing before the server starts rejecting the token.
type Session struct {
	store tokenStore
	now   func() time.Time

	mu        sync.RWMutex
	token     string
	userID    uuid.UUID
	expiresAt time.Time
	signedOut bool
}

// NewSession creates an empty session backed by store. Call Load to restore
// a persisted token.
func NewSession(store tokenStore) *Session {
	return &Session{store: store, now: time.Now}
}

// Load restores the persisted token. A token passed in explicitly (for
// example from configuration) takes precedence and is persisted.
func (s *Session) Load(ctx context.Context, override string) error {
	if override != "" {
		return s.SignIn(ctx, override)
	}

	token, found, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !found {
		return nil
	}
	if token == "" {
		s.signedOut = true
		return nil
	}
	return s.setLocked(token)
}

// SignIn validates the token shape and persists it.
func (s *Session) SignIn(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setLocked(token); err != nil {
		return err
	}
	if err := s.store.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// SignOut forgets the token. Local data is kept.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.userID = uuid.Nil
	s.expiresAt = time.Time{}
	s.signedOut = true

	if err := s.store.Set(ctx, TokenKey, ""); err != nil {
		return fmt.Errorf("persist sign-out: %w", err)
	}
	return nil
}

// State implements the sync engine's readiness check.
func (s *Session) State() domain.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.token != "" && (s.expiresAt.IsZero() || s.now().Before(s.expiresAt)):
		return domain.AuthStateReady
	case s.signedOut:
		return domain.AuthStateSignedOut
	default:
		return domain.AuthStateUnauthenticated
	}
}

// UserID returns the subject of the current token or uuid.Nil.
func (s *Session) UserID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Token returns the raw bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ExpiresAt returns the token expiry; zero when the token has none.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *Session) setLocked(token string) error {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fmt.Errorf("%w: malformed token: %v", domain.ErrValidation, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return fmt.Errorf("%w: token subject is not a user id", domain.ErrValidation)
	}

	s.token = token
	s.userID = userID
	s.expiresAt = time.Time{}
	if claims.ExpiresAt != nil {
		s.expiresAt = claims.ExpiresAt.Time
	}
	s.signedOut = false
	return nil
}
