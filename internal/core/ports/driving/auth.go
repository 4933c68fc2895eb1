package driving

import (
	"context"
	"net/http"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
)

// AuthGateway orchestrates the browser login, callback, logout and whoami flow
type AuthGateway interface {
	// StartLogin issues a state and returns the provider authorization URL
	StartLogin(ctx context.Context, provider domain.ProviderType, returnTo string) (*LoginRedirect, error)

	// HandleCallback consumes the state, exchanges the code and creates a session
	HandleCallback(ctx context.Context, provider domain.ProviderType, params domain.CallbackParams) (*CallbackResult, error)

	// Logout deletes the session and returns a cookie clearing it. Always succeeds.
	Logout(ctx context.Context, sessionID string) *http.Cookie

	// WhoAmI returns the user of a session or domain.ErrUnauthenticated
	WhoAmI(ctx context.Context, sessionID string) (*domain.User, error)

	// SessionID extracts the session ID from request cookies
	SessionID(cookies []*http.Cookie) string
}

// LoginRedirect is where the browser goes to begin the provider flow
type LoginRedirect struct {
	// URL is the provider authorization URL
	URL string

	// State is the issued anti-CSRF token embedded in URL
	State string

	// ReturnTo is the validated post-login target stored with the state
	ReturnTo string
}

// CallbackResult is the outcome of a successful callback
type CallbackResult struct {
	// ReturnTo is the redirect target recovered from the consumed state
	ReturnTo string

	// Cookie carries the new session ID
	Cookie *http.Cookie
}
