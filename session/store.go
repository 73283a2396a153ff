package session

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout is the inactivity period after which a session expires.
const DefaultTimeout = 10 * time.Minute

// maxIDAttempts bounds how often a failing id generator is retried before
// falling back to crypto/rand.Text.
const maxIDAttempts = 8

// Observer is notified about store churn. Implementations must be safe for
// concurrent use; they are called without the store lock held.
type Observer interface {
	SessionCreated()
	SessionsEvicted(n int)
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout sets the inactivity timeout. Values <= 0 keep the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver registers an Observer for created and evicted sessions.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// Store is the process-wide registry of live sessions. It owns the id → Session
// mapping; nothing else can reach the map.
//
// Id generation with collision retry, insertion, lookup, eviction and snapshot
// enumeration all happen under a single mutex, so no caller ever observes a
// half-inserted or half-evicted entry. The lock is held only for the map
// operation itself, never for the lifetime of a request.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	timeout  time.Duration
	now      func() time.Time
	newID    func() (string, error)
	log      *slog.Logger
	observer Observer
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		timeout:  DefaultTimeout,
		now:      time.Now,
		newID:    NewID,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Timeout returns the configured inactivity timeout.
func (s *Store) Timeout() time.Duration { return s.timeout }

// Resolve maps a session cookie value to a live Session.
//
// If cookie names a live session, that session is touched from addr and
// returned. Otherwise, including when the cookie is empty, unknown or names an
// expired session, a new session with a fresh id is registered and returned
// with created set; the caller is responsible for issuing the new cookie.
// Resolve always sweeps expired sessions first and never fails.
func (s *Store) Resolve(cookie, addr string) (sess *Session, created bool) {
	s.mu.Lock()
	evicted := s.sweepLocked()
	if cookie != "" {
		if existing, ok := s.sessions[cookie]; ok {
			// touched under the store lock so a concurrent sweep cannot evict
			// the session between lookup and touch
			existing.TouchFrom(addr)
			s.mu.Unlock()
			s.notifyEvicted(evicted)
			return existing, false
		}
	}
	sess = newSession(s, s.uniqueIDLocked())
	sess.remoteAddr = addr
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.notifyEvicted(evicted)
	if s.observer != nil {
		s.observer.SessionCreated()
	}
	return sess, true
}

// uniqueIDLocked returns an id that is not a key of the map. Caller holds mu.
func (s *Store) uniqueIDLocked() string {
	failures := 0
	for {
		var id string
		var err error
		if failures < maxIDAttempts {
			id, err = s.newID()
		} else {
			id = rand.Text()
		}
		if err != nil || id == "" {
			failures++
			s.log.Warn("session id generation failed", "attempt", failures, "err", err)
			continue
		}
		if _, taken := s.sessions[id]; !taken {
			return id
		}
	}
}

// Sweep evicts every session that reports IsExpired and returns how many were
// removed. It is safe to call concurrently with Resolve and with handlers
// mutating individual sessions.
func (s *Store) Sweep() int {
	s.mu.Lock()
	n := s.sweepLocked()
	s.mu.Unlock()
	s.notifyEvicted(n)
	return n
}

func (s *Store) sweepLocked() int {
	n := 0
	for id, sess := range s.sessions {
		if sess.IsExpired() {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Store) notifyEvicted(n int) {
	if n == 0 {
		return
	}
	s.log.Debug("expired sessions evicted", "count", n)
	if s.observer != nil {
		s.observer.SessionsEvicted(n)
	}
}

// Lookup returns the live session with the given id without touching it.
// An expired session is evicted and reported as absent.
func (s *Store) Lookup(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok && sess.IsExpired() {
		delete(s.sessions, id)
		s.mu.Unlock()
		s.notifyEvicted(1)
		return nil, false
	}
	s.mu.Unlock()
	return sess, ok
}

// Remove deletes sess from the store. A different session registered under the
// same id is left alone.
func (s *Store) Remove(sess *Session) {
	if sess == nil {
		return
	}
	s.mu.Lock()
	cur, ok := s.sessions[sess.id]
	if ok && cur == sess {
		delete(s.sessions, sess.id)
	}
	s.mu.Unlock()
	if ok && cur == sess {
		s.notifyEvicted(1)
	}
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	evicted := s.sweepLocked()
	n := len(s.sessions)
	s.mu.Unlock()
	s.notifyEvicted(evicted)
	return n
}

// All returns a snapshot of all live sessions. The slice is owned by the
// caller; later store changes are not reflected in it.
func (s *Store) All() []*Session {
	s.mu.Lock()
	evicted := s.sweepLocked()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.Unlock()
	s.notifyEvicted(evicted)
	return out
}

// Run sweeps the store every interval until ctx is done. It complements the
// sweep that Resolve performs on every request.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.timeout / 2
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}
