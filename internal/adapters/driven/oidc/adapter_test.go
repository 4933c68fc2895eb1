package oidc

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/avatar-auth/internal/adapters/driven/oidc/oidctest"
	"github.com/custodia-labs/avatar-auth/internal/core/domain"
)

const testClientID = "test-client"

func newTestAdapter(t *testing.T) (*Adapter, *oidctest.Issuer) {
	t.Helper()
	issuer := oidctest.NewIssuer(t, testClientID)

	adapter := NewAdapter(Config{
		Provider:     domain.ProviderGoogle,
		IssuerURL:    issuer.URL(),
		ClientID:     testClientID,
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:3001/auth/google/callback",
		AuthParams:   map[string]string{"prompt": "select_account"},
		HTTPClient:   issuer.Server.Client(),
	})
	return adapter, issuer
}

func TestAdapter_NotReadyBeforeDiscover(t *testing.T) {
	adapter, _ := newTestAdapter(t)

	_, err := adapter.AuthorizationURL("state", domain.LoginScope)
	assert.ErrorIs(t, err, domain.ErrProviderNotReady)

	_, err = adapter.ExchangeCode(context.Background(), domain.CallbackParams{Code: "c", State: "s"}, "s")
	assert.ErrorIs(t, err, domain.ErrProviderNotReady)
}

func TestAdapter_DiscoverFailure(t *testing.T) {
	adapter := NewAdapter(Config{
		Provider:  domain.ProviderGoogle,
		IssuerURL: "http://127.0.0.1:1",
		ClientID:  testClientID,
	})

	err := adapter.Discover(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discover google issuer")
}

func TestAdapter_AuthorizationURL(t *testing.T) {
	adapter, issuer := newTestAdapter(t)
	require.NoError(t, adapter.Discover(context.Background()))

	raw, err := adapter.AuthorizationURL("state-123", domain.LoginScope)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, issuer.URL()+"/authorize", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "http://localhost:3001/auth/google/callback", q.Get("redirect_uri"))
	assert.Equal(t, "select_account", q.Get("prompt"))
}

func TestAdapter_ExchangeCode(t *testing.T) {
	ctx := context.Background()
	adapter, issuer := newTestAdapter(t)
	require.NoError(t, adapter.Discover(ctx))

	issuer.AddCode("good-code", oidctest.Profile{
		Subject:   "user-1",
		Email:     "ada@example.com",
		Name:      "Ada Lovelace",
		GivenName: "Ada",
	})

	claims, err := adapter.ExchangeCode(ctx, domain.CallbackParams{Code: "good-code", State: "s1"}, "s1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.Name)
	assert.Equal(t, "Ada", claims.GivenName)
}

func TestAdapter_ExchangeCode_Failures(t *testing.T) {
	ctx := context.Background()
	adapter, issuer := newTestAdapter(t)
	require.NoError(t, adapter.Discover(ctx))
	issuer.AddCode("good-code", oidctest.Profile{Subject: "user-1", Email: "ada@example.com"})

	tests := []struct {
		name     string
		params   domain.CallbackParams
		expected string
		contains string
	}{
		{
			name:     "state mismatch",
			params:   domain.CallbackParams{Code: "good-code", State: "attacker"},
			expected: "s1",
			contains: "does not match",
		},
		{
			name:     "provider error",
			params:   domain.CallbackParams{State: "s1", Error: "access_denied", ErrorDescription: "user said no"},
			expected: "s1",
			contains: "access_denied: user said no",
		},
		{
			name:     "missing code",
			params:   domain.CallbackParams{State: "s1"},
			expected: "s1",
			contains: "missing the authorization code",
		},
		{
			name:     "unknown code",
			params:   domain.CallbackParams{Code: "bad-code", State: "s1"},
			expected: "s1",
			contains: "exchange code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.ExchangeCode(ctx, tt.params, tt.expected)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}

	// The state mismatch is caught before the provider is contacted,
	// so the code is still redeemable.
	_, err := adapter.ExchangeCode(ctx, domain.CallbackParams{Code: "good-code", State: "s1"}, "s1")
	assert.NoError(t, err)
}

func TestAdapter_ExchangeCode_WrongAudience(t *testing.T) {
	ctx := context.Background()
	issuer := oidctest.NewIssuer(t, "someone-else")
	adapter := NewAdapter(Config{
		Provider:   domain.ProviderGoogle,
		IssuerURL:  issuer.URL(),
		ClientID:   testClientID,
		HTTPClient: issuer.Server.Client(),
	})
	require.NoError(t, adapter.Discover(ctx))
	issuer.AddCode("code", oidctest.Profile{Subject: "user-1", Email: "ada@example.com"})

	_, err := adapter.ExchangeCode(ctx, domain.CallbackParams{Code: "code", State: "s"}, "s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify id token")
}

func TestAdapter_ExchangeCode_RespectsDeadline(t *testing.T) {
	adapter, issuer := newTestAdapter(t)
	require.NoError(t, adapter.Discover(context.Background()))
	issuer.AddCode("slow-code", oidctest.Profile{Subject: "user-1", Email: "ada@example.com"})
	issuer.SetTokenDelay(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := adapter.ExchangeCode(ctx, domain.CallbackParams{Code: "slow-code", State: "s"}, "s")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProviderConfigs(t *testing.T) {
	google := GoogleConfig("id", "secret", "https://api.example/auth/google/callback")
	assert.Equal(t, domain.ProviderGoogle, google.Provider)
	assert.Equal(t, "https://accounts.google.com", google.IssuerURL)
	assert.Equal(t, "select_account", google.AuthParams["prompt"])

	azure := AzureADConfig("tenant-1", "id", "secret", "https://api.example/auth/azuread/callback")
	assert.Equal(t, domain.ProviderAzureAD, azure.Provider)
	assert.Equal(t, "https://login.microsoftonline.com/tenant-1/v2.0", azure.IssuerURL)
	assert.Equal(t, "id", NewAdapter(azure).cfg.ClientID)
	assert.Equal(t, domain.ProviderAzureAD, NewAdapter(azure).Type())
}
