package authsession

import (
	"sync"
	"time"
)

// sessionState is the Manager's single mutable cell. All reads and writes go
// through its methods; callers never hold the lock across provider or storage
// calls.
type sessionState struct {
	mu      sync.RWMutex
	token   string
	exp     time.Time
	user    *User
	err     error
	loading int
}

// beginLoading enters a loading scope and returns its release func. Scopes
// nest: the Loading flag stays up until every release has run, so overlapping
// operations cannot blink it off early.
func (s *sessionState) beginLoading() (release func()) {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.loading--
			s.mu.Unlock()
		})
	}
}

func (s *sessionState) snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		Token:           s.token,
		TokenExpiration: s.exp,
		User:            s.user,
		Loading:         s.loading > 0,
		Err:             s.err,
	}
}

// setSession installs a full session and clears any surfaced error.
func (s *sessionState) setSession(token string, exp time.Time, user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.exp = exp
	s.user = user
	s.err = nil
}

// setToken replaces the token and expiration, keeping the user. Used by
// refresh, which never changes who is signed in.
func (s *sessionState) setToken(token string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.exp = exp
	s.err = nil
}

func (s *sessionState) setUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *sessionState) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// clear wipes the session back to signed-out. The loading counter is left
// alone; in-flight scopes release themselves.
func (s *sessionState) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.exp = time.Time{}
	s.user = nil
	s.err = nil
}

// tokenInfo returns the current token and advisory expiration.
func (s *sessionState) tokenInfo() (token string, exp time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.exp, s.token != ""
}

func (s *sessionState) currentUser() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}
