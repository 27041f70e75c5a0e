// Package authstate holds the per-browser-session authentication state.
//
// The store's user is the single source of truth for "is logged in". An
// unresolved store (Loading() true) is a distinct state from "not logged in":
// consumers must not redirect to the login page, nor render protected
// content, until the store has resolved against the backend.
package authstate

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// User is the authenticated profile as reported by the backend.
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	CartItemCount int    `json:"cartItemCount"`
}

// RoleAdmin gates the admin views.
const RoleAdmin = "ADMIN"

// IsAdmin reports whether the profile carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Backend is the slice of the auth API the store needs. Implementations
// attach the session credentials themselves.
type Backend interface {
	// IsLoggedIn probes whether the backend holds an active session.
	IsLoggedIn(ctx context.Context) (bool, error)
	// Profile fetches the full profile for the active session.
	Profile(ctx context.Context) (*User, error)
	// Logout terminates the backend session.
	Logout(ctx context.Context) error
}

// Store tracks the current user for one browser session. All methods are
// safe for concurrent use.
type Store struct {
	backend Backend
	log     logrus.FieldLogger

	init sync.Once

	mu      sync.Mutex
	user    *User
	loading bool
}

// New returns an unresolved store. Call Initialize before trusting Snapshot.
func New(backend Backend, log logrus.FieldLogger) *Store {
	return &Store{backend: backend, log: log, loading: true}
}

// Initialize resolves the session against the backend: a lightweight probe
// first, then the full profile only when the probe says a session is active.
// The first caller performs the resolution; concurrent callers block until it
// finishes. The unresolved->resolved transition happens exactly once per
// store, so a login that raced ahead of Initialize is never overwritten by a
// stale probe result.
func (s *Store) Initialize(ctx context.Context) {
	s.init.Do(func() {
		s.mu.Lock()
		if !s.loading {
			// Login already resolved this session.
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		var user *User
		active, err := s.backend.IsLoggedIn(ctx)
		if err != nil {
			s.log.WithField("error", err).Warn("session probe failed, treating as logged out")
		} else if active {
			user, err = s.backend.Profile(ctx)
			if err != nil {
				s.log.WithField("error", err).Warn("profile fetch failed after positive probe")
			}
		}

		s.mu.Lock()
		if s.loading {
			s.user = user
			s.loading = false
		}
		s.mu.Unlock()
	})
}

// Login adopts a profile returned by a successful credential exchange. No
// independent verification call is made.
func (s *Store) Login(user *User) {
	s.mu.Lock()
	s.user = user
	s.loading = false
	s.mu.Unlock()
}

// Logout asks the backend to terminate the session and clears the local user
// unconditionally. A backend or network failure is logged and otherwise
// ignored so the UI can never get stuck logged in.
func (s *Store) Logout(ctx context.Context) {
	if err := s.backend.Logout(ctx); err != nil {
		s.log.WithField("error", err).Warn("backend logout failed, clearing local session anyway")
	}
	s.mu.Lock()
	s.user = nil
	s.loading = false
	s.mu.Unlock()
}

// Refresh re-fetches the profile, e.g. after a cart mutation changed the
// cart item count. Any failure clears the user: the session is assumed
// expired. A transient network error is indistinguishable from real expiry
// here and logs the user out; callers that treat the refresh as best-effort
// must swallow the returned error themselves.
func (s *Store) Refresh(ctx context.Context) error {
	user, err := s.backend.Profile(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.user = nil
		return err
	}
	s.user = user
	return nil
}

// Snapshot returns the current user (nil when logged out) and whether the
// store is still resolving. The returned profile must be treated as
// read-only.
func (s *Store) Snapshot() (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.loading
}
