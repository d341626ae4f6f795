package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a mutex-guarded map. Suitable for the
// single-process deployment; state disappears on restart, which matches the
// session lifecycle (ephemeral, no persistence requirement).
type MemoryStore struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
}

type entry struct {
	session Session
	expires time.Time
}

// NewMemoryStore creates a store whose sessions expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl: ttl,
		m:   make(map[string]entry),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.Token] = entry{
		session: *sess, // store a copy, callers keep their own
		expires: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	e, ok := s.m[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(e.expires) {
		// Lazily evict; a background sweeper is not worth it at this scale.
		s.mu.Lock()
		delete(s.m, token)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	sess := e.session
	sess.Token = token
	return &sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, token)
	return nil
}
