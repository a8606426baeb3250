// Package session owns the auth token and the cross-cutting reaction to
// session expiry.
package session

import (
	"sync"

	"github.com/shelf-labs/shelfctl/internal/config"
	"github.com/shelf-labs/shelfctl/internal/events"
)

// Session is the current authentication state. Subject is derived from the
// token for display only and never stored independently.
type Session struct {
	Token   string
	Subject string
}

// Active reports whether a token is held.
func (s Session) Active() bool {
	return s.Token != ""
}

// Store owns the bearer token. Every write persists to the token file and
// notifies observers inside the same call, so dependent affordances (logout
// visibility, upload enablement) can never drift from the stored state.
//
// Only Store and Handler may write the session; everything else reads.
type Store struct {
	mu        sync.RWMutex
	session   Session
	tokenPath string
	observers []func(Session)
	bus       *events.EventBus
}

// NewStore creates a Store persisting to tokenPath. bus may be nil.
func NewStore(tokenPath string, bus *events.EventBus) *Store {
	return &Store{tokenPath: tokenPath, bus: bus}
}

// Restore loads a previously persisted token, if any, and notifies
// observers. Called once at startup.
func (s *Store) Restore() {
	token, err := config.ReadTokenFile(s.tokenPath)
	if err != nil {
		return
	}
	_ = s.Set(token)
}

// OnChange registers an observer invoked synchronously on every session
// change.
func (s *Store) OnChange(fn func(Session)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Set stores the token, derives the display subject, persists the token
// file, and notifies observers. An empty token clears the session and
// removes the file. The in-memory session is updated even when persistence
// fails, matching what the user was just shown.
func (s *Store) Set(token string) error {
	var err error

	s.mu.Lock()
	if token == "" {
		s.session = Session{}
		err = config.RemoveTokenFile(s.tokenPath)
	} else {
		s.session = Session{Token: token, Subject: DeriveSubject(token)}
		err = config.WriteTokenFile(s.tokenPath, token)
	}
	sess := s.session
	observers := make([]func(Session), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(sess)
	}
	if s.bus != nil {
		s.bus.Publish(events.NewSessionChangedEvent(sess.Active(), sess.Subject))
	}
	return err
}

// Clear drops the session and removes the persisted token.
func (s *Store) Clear() error {
	return s.Set("")
}

// Get returns the current session.
func (s *Store) Get() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Token returns the current bearer token, or "".
func (s *Store) Token() string {
	return s.Get().Token
}

// Active reports whether a session is currently believed active.
func (s *Store) Active() bool {
	return s.Get().Active()
}

// Subject returns the display identity derived from the token, or "".
func (s *Store) Subject() string {
	return s.Get().Subject
}
