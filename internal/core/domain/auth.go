package domain

import "time"

const (
	// StateTTL is how long an issued OAuth state may be consumed
	StateTTL = 30 * time.Minute

	// SessionCookieMaxAge is the browser lifetime of the session cookie
	SessionCookieMaxAge = 7 * 24 * time.Hour

	// LoginScope is requested from every provider
	LoginScope = "openid email profile"
)

// StateToken is a single-use anti-CSRF value tied to a post-login redirect target
type StateToken struct {
	Value     string       `json:"value"`
	ReturnTo  string       `json:"return_to"`
	Provider  ProviderType `json:"provider"`
	CreatedAt time.Time    `json:"created_at"`
}

// IsExpired reports whether the token is older than ttl at now
func (s *StateToken) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// SessionRecord represents an authenticated browser session
type SessionRecord struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// IsOlderThan reports whether the session was created more than maxAge before now.
// A zero maxAge never expires.
func (s *SessionRecord) IsOlderThan(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(s.CreatedAt) > maxAge
}

// CallbackParams are the query parameters the provider sends to the callback
type CallbackParams struct {
	Code             string `json:"code"`
	State            string `json:"state"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}
