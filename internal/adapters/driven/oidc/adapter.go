package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driven"
)

// Ensure Adapter implements IdentityProvider
var _ driven.IdentityProvider = (*Adapter)(nil)

var (
	errStateMismatch  = errors.New("callback state does not match expected state")
	errMissingCode    = errors.New("callback is missing the authorization code")
	errMissingIDToken = errors.New("token response has no id_token")
)

// Config configures one provider client. It is immutable after NewAdapter.
type Config struct {
	// Provider is the variant this adapter serves
	Provider domain.ProviderType

	// IssuerURL is the OIDC issuer used for discovery
	IssuerURL string

	ClientID     string
	ClientSecret string
	RedirectURL  string

	// AuthParams are extra query parameters added to the authorization URL
	AuthParams map[string]string

	// HTTPClient is used for discovery, token exchange and key fetches.
	// Nil uses http.DefaultClient.
	HTTPClient *http.Client
}

// GoogleConfig returns the configuration for Google accounts
func GoogleConfig(clientID, clientSecret, redirectURL string) Config {
	return Config{
		Provider:     domain.ProviderGoogle,
		IssuerURL:    "https://accounts.google.com",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthParams:   map[string]string{"prompt": "select_account"},
	}
}

// AzureADConfig returns the configuration for a single Azure AD tenant.
// The multi-tenant "common" endpoint is not supported because its issuer
// does not match the discovery URL.
func AzureADConfig(tenantID, clientID, clientSecret, redirectURL string) Config {
	return Config{
		Provider:     domain.ProviderAzureAD,
		IssuerURL:    "https://login.microsoftonline.com/" + tenantID + "/v2.0",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		AuthParams:   map[string]string{"prompt": "select_account"},
	}
}

// Adapter is an OIDC authorization-code client for one provider
type Adapter struct {
	cfg Config

	mu       sync.RWMutex
	oauth    *oauth2.Config
	verifier *gooidc.IDTokenVerifier
}

// NewAdapter creates an adapter. Discover must be called before use.
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// Type returns the provider this adapter serves
func (a *Adapter) Type() domain.ProviderType {
	return a.cfg.Provider
}

// Discover fetches the issuer's discovery document and builds the client
func (a *Adapter) Discover(ctx context.Context) error {
	provider, err := gooidc.NewProvider(a.clientContext(ctx), a.cfg.IssuerURL)
	if err != nil {
		return fmt.Errorf("discover %s issuer %s: %w", a.cfg.Provider, a.cfg.IssuerURL, err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		RedirectURL:  a.cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
	}
	verifier := provider.Verifier(&gooidc.Config{ClientID: a.cfg.ClientID})

	a.mu.Lock()
	defer a.mu.Unlock()
	a.oauth = oauthConfig
	a.verifier = verifier
	return nil
}

// AuthorizationURL builds the provider authorization URL for state and scope
func (a *Adapter) AuthorizationURL(state, scope string) (string, error) {
	oauthConfig, _, err := a.client()
	if err != nil {
		return "", err
	}

	withScope := *oauthConfig
	withScope.Scopes = strings.Fields(scope)

	opts := make([]oauth2.AuthCodeOption, 0, len(a.cfg.AuthParams))
	for k, v := range a.cfg.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	return withScope.AuthCodeURL(state, opts...), nil
}

// ExchangeCode exchanges the authorization code and verifies the returned ID token
func (a *Adapter) ExchangeCode(ctx context.Context, params domain.CallbackParams, expectedState string) (*domain.Claims, error) {
	if params.Error != "" {
		if params.ErrorDescription != "" {
			return nil, fmt.Errorf("provider returned %s: %s", params.Error, params.ErrorDescription)
		}
		return nil, fmt.Errorf("provider returned %s", params.Error)
	}
	if params.State != expectedState {
		return nil, errStateMismatch
	}
	if params.Code == "" {
		return nil, errMissingCode
	}

	oauthConfig, verifier, err := a.client()
	if err != nil {
		return nil, err
	}

	ctx = a.clientContext(ctx)

	token, err := oauthConfig.Exchange(ctx, params.Code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errMissingIDToken
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var claims domain.Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	claims.Subject = idToken.Subject

	return &claims, nil
}

func (a *Adapter) client() (*oauth2.Config, *gooidc.IDTokenVerifier, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.oauth == nil || a.verifier == nil {
		return nil, nil, domain.ErrProviderNotReady
	}
	return a.oauth, a.verifier, nil
}

func (a *Adapter) clientContext(ctx context.Context) context.Context {
	if a.cfg.HTTPClient == nil {
		return ctx
	}
	return gooidc.ClientContext(ctx, a.cfg.HTTPClient)
}
