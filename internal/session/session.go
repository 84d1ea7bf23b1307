// Package session holds the per-browser session context: the bearer token
// and cached user record, hydrated from and cleared in a SessionStorer.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"marketplace-storefront/internal/domain"
	"marketplace-storefront/internal/logging"
	"marketplace-storefront/internal/store"
)

// Auth is the authentication state consulted by guards.
type Auth struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	Loading         bool         `json:"loading"`
}

// Session is the explicit replacement for ambient token storage. The API
// client reads the token from it and the guards read Auth from it. It is safe
// for concurrent use.
type Session struct {
	id    string
	store store.SessionStorer
	log   logrus.FieldLogger
	now   func() time.Time

	mu      sync.RWMutex
	token   string
	user    *domain.User
	loading bool
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id has the shape produced by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// New creates a session that reports Loading until Init has run.
func New(id string, st store.SessionStorer, log logrus.FieldLogger) *Session {
	return &Session{
		id:      id,
		store:   st,
		log:     logging.Component(log, "session").WithField("session_id", id),
		now:     time.Now,
		loading: true,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Init hydrates the token and user from the store. A session the store does
// not know is a valid anonymous session.
func (s *Session) Init(ctx context.Context) error {
	rec, err := s.store.GetSession(ctx, s.id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil
		}
		return fmt.Errorf("session: init: %w", err)
	}
	s.token = rec.Token
	s.user = rec.User
	return nil
}

// Login stores the credentials returned by the auth endpoint.
func (s *Session) Login(ctx context.Context, token string, user domain.User) error {
	s.mu.Lock()
	s.token = token
	s.user = &user
	s.loading = false
	s.mu.Unlock()

	if err := s.store.SaveSession(ctx, &domain.SessionRecord{ID: s.id, Token: token, User: &user}); err != nil {
		return fmt.Errorf("session: login: %w", err)
	}
	return nil
}

// SetUser replaces the cached user record, keeping the token.
func (s *Session) SetUser(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	s.user = &user
	token := s.token
	s.mu.Unlock()

	if err := s.store.SaveSession(ctx, &domain.SessionRecord{ID: s.id, Token: token, User: &user}); err != nil {
		return fmt.Errorf("session: set user: %w", err)
	}
	return nil
}

// Clear purges the token and cached user, in memory and in the store.
// It is called on logout and whenever the backend answers 401.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.loading = false
	s.mu.Unlock()

	if err := s.store.DeleteSession(ctx, s.id); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("session: clear: %w", err)
	}
	s.log.Info("session credentials cleared")
	return nil
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the cached user, or nil.
func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Auth returns the guard-facing authentication state. A token whose JWT exp
// claim has passed does not count as authenticated.
func (s *Session) Auth() Auth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := Auth{Loading: s.loading}
	if s.user != nil {
		u := *s.user
		a.User = &u
	}
	a.IsAuthenticated = s.token != "" && !tokenExpired(s.token, s.now())
	if !a.IsAuthenticated {
		a.User = nil
	}
	return a
}

// tokenExpired decodes the JWT without verifying it; the backend remains the
// authority. Tokens that are not JWTs or carry no exp never expire here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
