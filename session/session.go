package session

import (
	"strings"
	"sync"
	"time"
)

// Session is one client's server-side state: identity, activity timestamp,
// sticky expiry flag and arbitrary string properties.
//
// A Session is normally used by the single request that resolved it, but the
// administrative surface (Store.All, Store.Count) may read it concurrently, so
// every field is guarded by the session's own lock. The store lock is never
// taken while a session lock is held.
type Session struct {
	id    string
	store *Store

	timeout time.Duration
	now     func() time.Time

	mu           sync.RWMutex
	user         *User
	lastActivity time.Time
	expired      bool
	remoteAddr   string
	failedLogins int
	lastLogin    time.Time
	props        map[string]string
}

func newSession(st *Store, id string) *Session {
	return &Session{
		id:           id,
		store:        st,
		timeout:      st.timeout,
		now:          st.now,
		lastActivity: st.now(),
		props:        make(map[string]string),
	}
}

// ID returns the opaque session id. It never changes.
func (s *Session) ID() string { return s.id }

// Touch records activity. LastActivity never moves backwards, even if the
// clock does.
func (s *Session) Touch() {
	now := s.now()
	s.mu.Lock()
	if now.After(s.lastActivity) {
		s.lastActivity = now
	}
	s.mu.Unlock()
}

// TouchFrom records activity from the given client address.
func (s *Session) TouchFrom(addr string) {
	s.Touch()
	s.mu.Lock()
	s.remoteAddr = addr
	s.mu.Unlock()
}

// LastActivity returns the time of the most recent touch.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// RemoteAddress returns the last observed client address.
func (s *Session) RemoteAddress() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remoteAddr
}

// IsExpired reports whether the session was explicitly expired or has been
// inactive for longer than the store timeout. A positive result is cached:
// once expired, the session stays expired.
func (s *Session) IsExpired() bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired {
		return true
	}
	if s.timeout > 0 && now.Sub(s.lastActivity) > s.timeout {
		s.expired = true
	}
	return s.expired
}

// Expire marks the session as expired. It will be evicted by the next sweep.
func (s *Session) Expire() {
	s.mu.Lock()
	s.expired = true
	s.mu.Unlock()
}

// Login attaches u to the session. The advisory failed login counter is reset
// and the login time recorded.
func (s *Session) Login(u *User) {
	if u == nil {
		s.Logout()
		return
	}
	now := s.now()
	s.mu.Lock()
	s.user = u
	s.lastLogin = now
	s.failedLogins = 0
	s.mu.Unlock()
}

// Logout turns the session back into a guest session. The session stays in
// the store; use Close to end it.
func (s *Session) Logout() {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
}

// IsLoggedIn reports whether a user is attached.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns the attached user, or nil for a guest session.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Username returns the attached user's name, or "" for a guest session.
func (s *Session) Username() string { return s.User().Username() }

// RecordFailedLogin bumps the failed login counter and returns the new value.
// The counter is informational only; nothing in this package enforces it.
func (s *Session) RecordFailedLogin() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedLogins++
	return s.failedLogins
}

// FailedLogins returns the number of failed logins since the last successful one.
func (s *Session) FailedLogins() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failedLogins
}

// LastLogin returns the time of the last successful login, or the zero time.
func (s *Session) LastLogin() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastLogin
}

// Property returns the value stored under key, or def if there is none.
func (s *Session) Property(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.props[key]; ok {
		return v
	}
	return def
}

// SetProperty stores value under key. Blank keys are ignored.
func (s *Session) SetProperty(key, value string) {
	if strings.TrimSpace(key) == "" {
		return
	}
	s.mu.Lock()
	s.props[key] = value
	s.mu.Unlock()
}

// DeleteProperty removes key from the session.
func (s *Session) DeleteProperty(key string) {
	s.mu.Lock()
	delete(s.props, key)
	s.mu.Unlock()
}

// Properties returns a copy of all session properties.
func (s *Session) Properties() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.props))
	for k, v := range s.props {
		out[k] = v
	}
	return out
}

// Close expires the session and removes it from its store. Calling Close more
// than once is harmless.
func (s *Session) Close() {
	s.Expire()
	if s.store != nil {
		s.store.Remove(s)
	}
}
