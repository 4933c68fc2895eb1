package mocks

import (
	"context"
	"net/url"
	"sync"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driven"
)

// MockIdentityProvider is a mock implementation of IdentityProvider for testing.
// Without overrides it discovers successfully, builds a URL carrying the state
// and returns Claims for any code whose state matches.
type MockIdentityProvider struct {
	mu sync.Mutex

	Provider domain.ProviderType
	Claims   *domain.Claims

	DiscoverFn func(ctx context.Context) error
	ExchangeFn func(ctx context.Context, params domain.CallbackParams, expectedState string) (*domain.Claims, error)

	DiscoverCalls int
	ExchangeCalls int
	LastScope     string
}

// NewMockIdentityProvider creates a MockIdentityProvider for provider
func NewMockIdentityProvider(provider domain.ProviderType) *MockIdentityProvider {
	return &MockIdentityProvider{
		Provider: provider,
		Claims: &domain.Claims{
			Subject: "subject-1",
			Email:   "ada@example.com",
			Name:    "Ada Lovelace",
		},
	}
}

func (m *MockIdentityProvider) Type() domain.ProviderType {
	return m.Provider
}

func (m *MockIdentityProvider) Discover(ctx context.Context) error {
	m.mu.Lock()
	m.DiscoverCalls++
	fn := m.DiscoverFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (m *MockIdentityProvider) AuthorizationURL(state, scope string) (string, error) {
	m.mu.Lock()
	m.LastScope = scope
	m.mu.Unlock()

	v := url.Values{}
	v.Set("state", state)
	v.Set("scope", scope)
	return "https://idp.example/" + string(m.Provider) + "/authorize?" + v.Encode(), nil
}

func (m *MockIdentityProvider) ExchangeCode(ctx context.Context, params domain.CallbackParams, expectedState string) (*domain.Claims, error) {
	m.mu.Lock()
	m.ExchangeCalls++
	fn := m.ExchangeFn
	claims := m.Claims
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, params, expectedState)
	}
	if params.State != expectedState {
		return nil, domain.ErrInvalidState
	}
	c := *claims
	return &c, nil
}

// Exchanges returns how many times ExchangeCode was called
func (m *MockIdentityProvider) Exchanges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExchangeCalls
}

// MockProviderRegistry resolves providers from a fixed map
type MockProviderRegistry struct {
	mu        sync.RWMutex
	providers map[domain.ProviderType]*MockIdentityProvider
	notReady  map[domain.ProviderType]bool
}

// NewMockProviderRegistry creates a registry with the given ready providers
func NewMockProviderRegistry(providers ...*MockIdentityProvider) *MockProviderRegistry {
	r := &MockProviderRegistry{
		providers: make(map[domain.ProviderType]*MockIdentityProvider),
		notReady:  make(map[domain.ProviderType]bool),
	}
	for _, p := range providers {
		r.providers[p.Provider] = p
	}
	return r
}

// SetReady toggles the readiness of a provider
func (r *MockProviderRegistry) SetReady(provider domain.ProviderType, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notReady[provider] = !ready
}

func (r *MockProviderRegistry) Get(provider domain.ProviderType) (driven.IdentityProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[provider]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	if r.notReady[provider] {
		return nil, domain.ErrProviderNotReady
	}
	return p, nil
}
