package store

import (
	"context"
	"sync"
	"time"

	"github.com/efreitasn/mocktrader/internal/domain"
)

// SessionStore is a thread-safe in-memory store for session tokens.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session // token → session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

// CreateSession stores a newly issued session.
func (s *SessionStore) CreateSession(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = *sess
	return nil
}

// GetSession retrieves a session by token. It returns
// domain.ErrSessionNotFound if the token is unknown.
func (s *SessionStore) GetSession(_ context.Context, token string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &sess, nil
}

// DeleteSessionsIssuedBefore removes every session issued strictly before
// cutoff and returns how many were removed.
func (s *SessionStore) DeleteSessionsIssuedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, sess := range s.sessions {
		if sess.IssuedAt.Before(cutoff) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}
