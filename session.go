package main

// session.go keeps the per-browser-session UI state: the auth store, the
// toast queue, and the set of orders whose gateway return was already
// reconciled. Everything here lives in process memory for the lifetime of
// the session; nothing is persisted.

import (
	"sync"

	"github.com/SamHsieh0409/smartshop-frontend/authstate"
	"github.com/SamHsieh0409/smartshop-frontend/notify"
)

type session struct {
	Auth     *authstate.Store
	Notifier *notify.Broadcaster

	mu        sync.Mutex
	confirmed map[int64]bool
}

// claimPaymentReturn marks orderID as reconciled and reports whether this
// caller claimed it. At most one caller per session gets true for a given
// order, no matter how often the gateway return URL is replayed.
func (s *session) claimPaymentReturn(orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.confirmed == nil {
		s.confirmed = make(map[int64]bool)
	}
	if s.confirmed[orderID] {
		return false
	}
	s.confirmed[orderID] = true
	return true
}

type sessionRegistry struct {
	mu         sync.Mutex
	sessions   map[string]*session
	newSession func() *session
}

func newSessionRegistry(newSession func() *session) *sessionRegistry {
	return &sessionRegistry{
		sessions:   make(map[string]*session),
		newSession: newSession,
	}
}

// get returns the state for a session ID, creating it on first sight.
func (r *sessionRegistry) get(id string) *session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		s = r.newSession()
		r.sessions[id] = s
	}
	return s
}
