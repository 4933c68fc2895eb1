package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driven/mocks"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastBackOff(maxRetries uint64) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), maxRetries)
	}
}

func TestProviders_GetUnknown(t *testing.T) {
	p := NewProviders(quietLogger())

	_, err := p.Get(domain.ProviderGoogle)
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
	assert.True(t, p.Ready(), "an empty registry has nothing pending")
}

func TestProviders_PendingUntilInitialized(t *testing.T) {
	p := NewProviders(quietLogger()).WithBackOff(fastBackOff(0))
	google := mocks.NewMockIdentityProvider(domain.ProviderGoogle)
	p.Register(google)

	_, err := p.Get(domain.ProviderGoogle)
	assert.ErrorIs(t, err, domain.ErrProviderNotReady)
	assert.False(t, p.Ready())
	assert.Equal(t, []domain.ProviderType{domain.ProviderGoogle}, p.Pending())

	require.NoError(t, p.Initialize(context.Background()))

	adapter, err := p.Get(domain.ProviderGoogle)
	require.NoError(t, err)
	assert.Same(t, google, adapter)
	assert.True(t, p.Ready())
	assert.Empty(t, p.Pending())
	assert.Equal(t, 1, google.DiscoverCalls)
}

func TestProviders_RetriesDiscovery(t *testing.T) {
	p := NewProviders(quietLogger()).WithBackOff(fastBackOff(5))
	google := mocks.NewMockIdentityProvider(domain.ProviderGoogle)

	var mu sync.Mutex
	attempts := 0
	google.DiscoverFn = func(ctx context.Context) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("issuer unavailable")
		}
		return nil
	}
	p.Register(google)

	require.NoError(t, p.Initialize(context.Background()))
	assert.Equal(t, 3, attempts)
	assert.True(t, p.Ready())
}

func TestProviders_PartialFailure(t *testing.T) {
	p := NewProviders(quietLogger()).WithBackOff(fastBackOff(2))

	google := mocks.NewMockIdentityProvider(domain.ProviderGoogle)
	azure := mocks.NewMockIdentityProvider(domain.ProviderAzureAD)
	azure.DiscoverFn = func(ctx context.Context) error {
		return errors.New("tenant not found")
	}
	p.Register(google)
	p.Register(azure)

	err := p.Initialize(context.Background())
	require.Error(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 1)
	assert.Contains(t, err.Error(), "provider azuread: tenant not found")

	_, err = p.Get(domain.ProviderGoogle)
	assert.NoError(t, err)
	_, err = p.Get(domain.ProviderAzureAD)
	assert.ErrorIs(t, err, domain.ErrProviderNotReady)

	assert.False(t, p.Ready())
	assert.Equal(t, []domain.ProviderType{domain.ProviderAzureAD}, p.Pending())
	assert.Equal(t, []domain.ProviderType{domain.ProviderAzureAD, domain.ProviderGoogle}, p.Configured())
}

func TestProviders_InitializeStopsOnContext(t *testing.T) {
	p := NewProviders(quietLogger())
	google := mocks.NewMockIdentityProvider(domain.ProviderGoogle)
	google.DiscoverFn = func(ctx context.Context) error {
		return errors.New("issuer unavailable")
	}
	p.Register(google)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Initialize(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, p.Ready())
}

func TestProviders_RegisterResetsReadiness(t *testing.T) {
	p := NewProviders(quietLogger()).WithBackOff(fastBackOff(0))
	p.Register(mocks.NewMockIdentityProvider(domain.ProviderGoogle))
	require.NoError(t, p.Initialize(context.Background()))
	require.True(t, p.Ready())

	p.Register(mocks.NewMockIdentityProvider(domain.ProviderGoogle))
	_, err := p.Get(domain.ProviderGoogle)
	assert.ErrorIs(t, err, domain.ErrProviderNotReady)
}
