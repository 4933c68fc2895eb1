package cookie

import (
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CookieCodec = (*Codec)(nil)

// Config holds the configurable cookie attributes
type Config struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

// Codec implements driven.CookieCodec.
// Path is always "/" and HttpOnly is always set.
type Codec struct {
	cfg Config
}

// NewCodec creates a Codec
func NewCodec(cfg Config) *Codec {
	return &Codec{cfg: cfg}
}

// Encode returns the session cookie for sessionID
func (c *Codec) Encode(sessionID string) (*http.Cookie, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("encode session cookie: %w", domain.ErrInvalidInput)
	}

	cookie := c.base()
	cookie.Value = sessionID
	cookie.MaxAge = int(domain.SessionCookieMaxAge / time.Second)

	if err := cookie.Valid(); err != nil {
		return nil, fmt.Errorf("encode session cookie: %w", err)
	}
	return cookie, nil
}

// Decode extracts the session ID from request cookies
func (c *Codec) Decode(cookies []*http.Cookie) (string, bool) {
	for _, cookie := range cookies {
		if cookie.Name == c.cfg.Name && cookie.Value != "" {
			return cookie.Value, true
		}
	}
	return "", false
}

// Clear returns a cookie that expires the session cookie immediately
func (c *Codec) Clear() *http.Cookie {
	cookie := c.base()
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	return cookie
}

// base carries every attribute shared by Encode and Clear
func (c *Codec) base() *http.Cookie {
	return &http.Cookie{
		Name:     c.cfg.Name,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: c.cfg.SameSite,
	}
}

// ParseSameSite maps a configuration value to http.SameSite
func ParseSameSite(s string) (http.SameSite, error) {
	switch s {
	case "lax", "Lax", "":
		return http.SameSiteLaxMode, nil
	case "strict", "Strict":
		return http.SameSiteStrictMode, nil
	case "none", "None":
		return http.SameSiteNoneMode, nil
	default:
		return http.SameSiteDefaultMode, fmt.Errorf("invalid SameSite value %q: %w", s, domain.ErrInvalidInput)
	}
}
