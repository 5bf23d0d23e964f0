// Package session tracks which user is signed in and tells interested parties
// when that changes. It holds no credentials.
package session

import (
	"sort"
	"sync"
)

// Session is the current sign-in state of one board client.
type Session struct {
	mu        sync.RWMutex
	userID    string
	nextID    int
	listeners map[int]func(userID string)
}

// New returns a signed-out session.
func New() *Session {
	return &Session{listeners: map[int]func(string){}}
}

// Fixed returns a session already signed in as userID.
func Fixed(userID string) *Session {
	s := New()
	s.userID = userID
	return s
}

// CurrentUserID reports the signed-in user.
func (s *Session) CurrentUserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != ""
}

// SignIn switches the session to userID and notifies listeners.
func (s *Session) SignIn(userID string) {
	s.set(userID)
}

// SignOut clears the session and notifies listeners with an empty user id.
func (s *Session) SignOut() {
	s.set("")
}

// OnAuthChange registers fn for every sign-in and sign-out. The returned
// function removes the registration.
func (s *Session) OnAuthChange(fn func(userID string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) set(userID string) {
	s.mu.Lock()
	if s.userID == userID {
		s.mu.Unlock()
		return
	}
	s.userID = userID
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(string), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(userID)
	}
}
