package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StateStore = (*StateStore)(nil)

// StateStore implements driven.StateStore with a mutex-guarded map.
// Expired states are swept lazily on Issue and rejected on Consume
// regardless of whether a sweep has run.
type StateStore struct {
	mu     sync.Mutex
	states map[string]domain.StateToken
	ttl    time.Duration
	now    func() time.Time
}

// NewStateStore creates a StateStore with domain.StateTTL
func NewStateStore() *StateStore {
	return NewStateStoreWithTTL(domain.StateTTL)
}

// NewStateStoreWithTTL creates a StateStore with a custom TTL
func NewStateStoreWithTTL(ttl time.Duration) *StateStore {
	return &StateStore{
		states: make(map[string]domain.StateToken),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the store's time source
func (s *StateStore) WithClock(now func() time.Time) *StateStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Issue stores a new state and returns its value
func (s *StateStore) Issue(ctx context.Context, returnTo string, provider domain.ProviderType) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	for {
		value, err := generateID()
		if err != nil {
			return "", err
		}
		if _, exists := s.states[value]; exists {
			continue
		}
		s.states[value] = domain.StateToken{
			Value:     value,
			ReturnTo:  returnTo,
			Provider:  provider,
			CreatedAt: now,
		}
		return value, nil
	}
}

// Consume atomically retrieves and deletes the state
func (s *StateStore) Consume(ctx context.Context, value string) (*domain.StateToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value == "" {
		return nil, domain.ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.states[value]
	if !ok {
		return nil, domain.ErrInvalidState
	}
	delete(s.states, value)

	if token.IsExpired(s.now(), s.ttl) {
		return nil, domain.ErrInvalidState
	}

	return &token, nil
}

// Sweep removes expired states
func (s *StateStore) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now()), nil
}

// Len returns the number of stored states, expired or not
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

func (s *StateStore) sweepLocked(now time.Time) int {
	removed := 0
	for value, token := range s.states {
		if token.IsExpired(now, s.ttl) {
			delete(s.states, value)
			removed++
		}
	}
	return removed
}
