package driven

import (
	"context"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
)

// IdentityProvider is the per-provider OIDC adapter.
// Protocol mechanics (discovery, token exchange, signature validation) live behind it.
type IdentityProvider interface {
	// Type returns the provider this adapter serves
	Type() domain.ProviderType

	// Discover fetches the issuer's endpoints. It must succeed before
	// AuthorizationURL or ExchangeCode are used.
	Discover(ctx context.Context) error

	// AuthorizationURL builds the URL the browser is redirected to
	AuthorizationURL(state, scope string) (string, error)

	// ExchangeCode exchanges the authorization code for verified claims.
	// It fails if params.State does not equal expectedState.
	ExchangeCode(ctx context.Context, params domain.CallbackParams, expectedState string) (*domain.Claims, error)
}

// ProviderRegistry resolves configured identity providers.
// Get returns domain.ErrUnknownProvider for providers that were never configured
// and domain.ErrProviderNotReady until discovery has completed.
type ProviderRegistry interface {
	Get(provider domain.ProviderType) (IdentityProvider, error)
}
