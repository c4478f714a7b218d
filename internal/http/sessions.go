package httpapi

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side state behind a session cookie.
type Session struct {
	ID            string
	UserID        int64
	CaptchaAnswer int
	Root          bool
	ExpiresAt     time.Time
}

// SessionStore keeps sessions in memory. The cookie only carries a signed
// session id, so restarting the process logs everybody out.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: map[string]Session{},
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *SessionStore) Create() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := Session{ID: uuid.NewString(), ExpiresAt: s.now().Add(s.ttl)}
	s.sessions[sess.ID] = sess
	return sess
}

func (s *SessionStore) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, id)
		return Session{}, false
	}
	return sess, true
}

// Update applies fn to a live session and stores the result.
func (s *SessionStore) Update(id string, fn func(*Session)) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, id)
		return Session{}, false
	}
	fn(&sess)
	sess.ID = id
	s.sessions[id] = sess
	return sess, true
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Prune drops expired sessions and reports how many were removed.
func (s *SessionStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
