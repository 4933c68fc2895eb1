package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore implements driven.SessionStore with an RWMutex-guarded map.
// Sessions are volatile and live until Delete or process restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionRecord
	now      func() time.Time
}

// NewSessionStore creates an empty SessionStore
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.SessionRecord),
		now:      time.Now,
	}
}

// WithClock replaces the store's time source
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Create stores a new session and returns its ID
func (s *SessionStore) Create(ctx context.Context, user domain.User) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		id, err := generateID()
		if err != nil {
			return "", err
		}
		if _, exists := s.sessions[id]; exists {
			continue
		}
		s.sessions[id] = domain.SessionRecord{
			ID:        id,
			User:      user,
			CreatedAt: s.now(),
		}
		return id, nil
	}
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

// Delete removes a session; unknown IDs are ignored
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Count returns the number of live sessions
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
