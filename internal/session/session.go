// Package session owns the authenticated user's token, id and role. It is
// created on login, read by every screen, and torn down on logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// ErrNoSession is returned when nobody is logged in or the token expired.
var ErrNoSession = clinicapi.ErrNoSession

// Session is the persisted login state.
type Session struct {
	Token     string         `json:"token"`
	UserID    string         `json:"userId"`
	Role      clinicapi.Role `json:"role"`
	IssuedAt  time.Time      `json:"issuedAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Expired reports whether the token's exp claim has passed. Tokens without
// an exp claim never expire client-side.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, role clinicapi.Role, email, password string) (*clinicapi.LoginResult, error)
}

// Service is the single session handle passed to every screen controller.
type Service struct {
	auth   Authenticator
	store  Store
	key    string
	logger *logging.Logger
	now    func() time.Time

	mu     sync.Mutex
	cached *Session
}

// NewService builds a session service persisting under key in store.
func NewService(auth Authenticator, store Store, key string, logger *logging.Logger) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	if strings.TrimSpace(key) == "" {
		key = "default"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{auth: auth, store: store, key: key, logger: logger, now: time.Now}
}

// Fixed returns a service bound to an already-issued token. The portal uses
// it to scope one request to the caller's bearer token.
func Fixed(token, userID string, role clinicapi.Role) (*Service, error) {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(userID) == "" {
		return nil, ErrNoSession
	}
	if !role.Valid() {
		return nil, fmt.Errorf("session: invalid role %q", role)
	}
	svc := NewService(nil, NewMemoryStore(), "fixed", logging.Discard())
	sess := newSession(token, userID, role, svc.now())
	if sess.Expired(svc.now()) {
		return nil, ErrNoSession
	}
	svc.cached = sess
	return svc, nil
}

// Login authenticates and persists the resulting session, replacing any
// previous one.
func (s *Service) Login(ctx context.Context, role clinicapi.Role, email, password string) (*Session, error) {
	if s.auth == nil {
		return nil, errors.New("session: login not supported on a fixed session")
	}
	res, err := s.auth.Login(ctx, role, email, password)
	if err != nil {
		return nil, fmt.Errorf("session: login: %w", err)
	}
	sess := newSession(res.Token, res.UserID, role, s.now())
	if err := s.store.Save(ctx, s.key, sess); err != nil {
		return nil, fmt.Errorf("session: persist: %w", err)
	}

	s.mu.Lock()
	s.cached = sess
	s.mu.Unlock()

	s.logger.Info("session started", "user_id", sess.UserID, "role", sess.Role)
	return sess, nil
}

// Current returns the active session or ErrNoSession.
func (s *Service) Current(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()

	sess := cached
	if sess == nil {
		loaded, err := s.store.Load(ctx, s.key)
		if err != nil {
			return nil, fmt.Errorf("session: load: %w", err)
		}
		if loaded == nil {
			return nil, ErrNoSession
		}
		sess = loaded
	}

	if sess.Expired(s.now()) {
		s.logger.Info("session expired", "user_id", sess.UserID)
		if err := s.clear(ctx); err != nil {
			s.logger.Warn("failed to delete expired session", "user_id", sess.UserID, "error", err)
		}
		return nil, ErrNoSession
	}

	s.mu.Lock()
	s.cached = sess
	s.mu.Unlock()
	copied := *sess
	return &copied, nil
}

// Token implements clinicapi.TokenSource.
func (s *Service) Token(ctx context.Context) (string, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// Logout discards the session locally and in the store.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.clear(ctx); err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	s.logger.Info("session ended")
	return nil
}

func (s *Service) clear(ctx context.Context) error {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
	return s.store.Delete(ctx, s.key)
}

func newSession(token, userID string, role clinicapi.Role, now time.Time) *Session {
	return &Session{
		Token:     token,
		UserID:    userID,
		Role:      role,
		IssuedAt:  now.UTC(),
		ExpiresAt: tokenExpiry(token),
	}
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority on validity.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
