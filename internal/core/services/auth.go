package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driven"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driving"
)

// Ensure authGateway implements AuthGateway
var _ driving.AuthGateway = (*authGateway)(nil)

// DefaultExchangeTimeout bounds the provider code exchange
const DefaultExchangeTimeout = 10 * time.Second

// AuthGatewayConfig holds dependencies and settings for the gateway
type AuthGatewayConfig struct {
	// Providers resolves ready identity providers
	Providers driven.ProviderRegistry

	// States stores single-use anti-CSRF tokens
	States driven.StateStore

	// Sessions stores authenticated sessions
	Sessions driven.SessionStore

	// Cookies encodes the session cookie
	Cookies driven.CookieCodec

	// FrontendOrigin is the only allowed prefix for post-login redirects,
	// and the substitute for rejected ones. Example: "https://app.example.com"
	FrontendOrigin string

	// ExchangeTimeout bounds the call into the provider. Zero uses DefaultExchangeTimeout.
	ExchangeTimeout time.Duration

	// SessionMaxAge expires sessions server-side on lookup. Zero disables it.
	SessionMaxAge time.Duration

	Logger *slog.Logger

	// Now is the time source. Nil uses time.Now.
	Now func() time.Time
}

// authGateway implements the AuthGateway interface
type authGateway struct {
	providers       driven.ProviderRegistry
	states          driven.StateStore
	sessions        driven.SessionStore
	cookies         driven.CookieCodec
	frontendOrigin  string
	exchangeTimeout time.Duration
	sessionMaxAge   time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

// NewAuthGateway creates a new AuthGateway
func NewAuthGateway(cfg AuthGatewayConfig) driving.AuthGateway {
	g := &authGateway{
		providers:       cfg.Providers,
		states:          cfg.States,
		sessions:        cfg.Sessions,
		cookies:         cfg.Cookies,
		frontendOrigin:  strings.TrimSuffix(cfg.FrontendOrigin, "/"),
		exchangeTimeout: cfg.ExchangeTimeout,
		sessionMaxAge:   cfg.SessionMaxAge,
		logger:          cfg.Logger,
		now:             cfg.Now,
	}
	if g.exchangeTimeout <= 0 {
		g.exchangeTimeout = DefaultExchangeTimeout
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// StartLogin issues a state bound to a validated return target and
// returns the provider authorization URL
func (g *authGateway) StartLogin(ctx context.Context, provider domain.ProviderType, returnTo string) (*driving.LoginRedirect, error) {
	idp, err := g.providers.Get(provider)
	if err != nil {
		return nil, err
	}

	target := g.resolveReturnTo(returnTo)

	state, err := g.states.Issue(ctx, target, provider)
	if err != nil {
		return nil, fmt.Errorf("issue state: %w", err)
	}

	authURL, err := idp.AuthorizationURL(state, domain.LoginScope)
	if err != nil {
		// Drop the state; nobody can redeem it without the URL
		_, _ = g.states.Consume(ctx, state)
		return nil, fmt.Errorf("build authorization url: %w", err)
	}

	return &driving.LoginRedirect{
		URL:      authURL,
		State:    state,
		ReturnTo: target,
	}, nil
}

// HandleCallback consumes the state, exchanges the code and creates a session.
// This is the only operation that mutates both the state and session stores.
func (g *authGateway) HandleCallback(ctx context.Context, provider domain.ProviderType, params domain.CallbackParams) (*driving.CallbackResult, error) {
	idp, err := g.providers.Get(provider)
	if err != nil {
		return nil, err
	}

	// Validate and consume state (single-use)
	token, err := g.states.Consume(ctx, params.State)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return nil, domain.ErrInvalidState
		}
		return nil, fmt.Errorf("consume state: %w", err)
	}
	if token.Provider != provider {
		g.logger.Warn("state presented to wrong provider callback",
			"provider", provider,
			"state_provider", token.Provider)
		return nil, domain.ErrInvalidState
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, g.exchangeTimeout)
	defer cancel()

	claims, err := idp.ExchangeCode(exchangeCtx, params, token.Value)
	if err != nil {
		g.logger.Error("provider code exchange failed",
			"provider", provider,
			"error", err)
		return nil, &domain.ProviderExchangeError{Provider: provider, Err: err}
	}

	user, err := domain.NewUserFromClaims(provider, claims)
	if err != nil {
		g.logger.Error("provider claims rejected",
			"provider", provider,
			"error", "id token has no email claim")
		return nil, &domain.ProviderExchangeError{Provider: provider, Err: fmt.Errorf("missing email claim: %w", err)}
	}

	sessionID, err := g.sessions.Create(ctx, *user)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	cookie, err := g.cookies.Encode(sessionID)
	if err != nil {
		// The session would be unreachable without its cookie
		if delErr := g.sessions.Delete(context.WithoutCancel(ctx), sessionID); delErr != nil {
			g.logger.Error("failed to discard orphaned session", "error", delErr)
		}
		return nil, fmt.Errorf("encode session cookie: %w", err)
	}

	g.logger.Info("user signed in",
		"provider", provider,
		"subject", claims.Subject)

	return &driving.CallbackResult{
		ReturnTo: token.ReturnTo,
		Cookie:   cookie,
	}, nil
}

// Logout deletes the session and returns a cookie clearing it
func (g *authGateway) Logout(ctx context.Context, sessionID string) *http.Cookie {
	if sessionID != "" {
		if err := g.sessions.Delete(ctx, sessionID); err != nil {
			g.logger.Warn("failed to delete session on logout", "error", err)
		}
	}
	return g.cookies.Clear()
}

// WhoAmI returns the user of a session
func (g *authGateway) WhoAmI(ctx context.Context, sessionID string) (*domain.User, error) {
	if sessionID == "" {
		return nil, domain.ErrUnauthenticated
	}

	session, err := g.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.IsOlderThan(g.now(), g.sessionMaxAge) {
		if err := g.sessions.Delete(ctx, sessionID); err != nil {
			g.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, domain.ErrUnauthenticated
	}

	user := session.User
	return &user, nil
}

// SessionID extracts the session ID from request cookies
func (g *authGateway) SessionID(cookies []*http.Cookie) string {
	id, _ := g.cookies.Decode(cookies)
	return id
}

// resolveReturnTo keeps requested only if it stays on the frontend origin
func (g *authGateway) resolveReturnTo(requested string) string {
	if IsAllowedReturnTo(g.frontendOrigin, requested) {
		return requested
	}
	if requested != "" {
		g.logger.Debug("rejected return target outside frontend origin", "return_to", requested)
	}
	return g.frontendOrigin
}

// IsAllowedReturnTo reports whether target is the origin itself or a URL under it.
// The character after the origin must end the authority so that
// "https://app.example.com.evil.test" is not accepted for "https://app.example.com".
func IsAllowedReturnTo(origin, target string) bool {
	if origin == "" || !strings.HasPrefix(target, origin) {
		return false
	}
	rest := target[len(origin):]
	if rest == "" {
		return true
	}
	switch rest[0] {
	case '/', '?', '#':
	default:
		return false
	}
	// Reject backslashes and control characters browsers may normalize into a new authority
	return !strings.ContainsAny(rest, "\\\r\n\t")
}
