// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"

	"github.com/custodia-labs/avatar-auth/internal/adapters/driven/cookie"
)

// Config is the full process configuration
type Config struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"3001"`

	// FrontendOrigin is the SPA origin: the CORS allow-list entry and the
	// only accepted prefix for post-login redirects
	FrontendOrigin string `env:"FRONTEND_ORIGIN" envDefault:"http://localhost:5173"`

	CookieName     string `env:"COOKIE_NAME" envDefault:"avatar_session"`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieSameSite string `env:"COOKIE_SAMESITE" envDefault:"lax"`

	ExchangeTimeout  time.Duration `env:"OAUTH_EXCHANGE_TIMEOUT" envDefault:"10s"`
	DiscoveryTimeout time.Duration `env:"OAUTH_DISCOVERY_TIMEOUT" envDefault:"2m"`
	SessionMaxAge    time.Duration `env:"SESSION_MAX_AGE" envDefault:"0s"`
	StateSweepPeriod time.Duration `env:"STATE_SWEEP_INTERVAL" envDefault:"5m"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Google  GoogleConfig  `envPrefix:"GOOGLE_"`
	AzureAD AzureADConfig `envPrefix:"AZUREAD_"`
}

// GoogleConfig holds the Google OAuth client registration
type GoogleConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI" envDefault:"http://localhost:3001/auth/google/callback"`
}

// Enabled reports whether Google sign-in is configured
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// AzureADConfig holds the Azure AD (Entra ID) app registration.
// TenantID must name a single tenant: the multi-tenant aliases publish a
// templated issuer that discovery cannot match.
type AzureADConfig struct {
	TenantID     string `env:"TENANT_ID"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURI  string `env:"REDIRECT_URI" envDefault:"http://localhost:3001/auth/azuread/callback"`
}

// Enabled reports whether Azure AD sign-in is configured
func (c AzureADConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Load parses the process environment and validates it
func Load() (*Config, error) {
	return LoadWithOptions(env.Options{})
}

// LoadWithOptions parses configuration with explicit env options
func LoadWithOptions(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.FrontendOrigin = strings.TrimSuffix(cfg.FrontendOrigin, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that parse but cannot work together
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Port <= 0 || c.Port > 65535 {
		result = multierror.Append(result, fmt.Errorf("PORT %d out of range", c.Port))
	}

	if u, err := url.Parse(c.FrontendOrigin); err != nil || u.Scheme == "" || u.Host == "" || (u.Path != "" && u.Path != "/") {
		result = multierror.Append(result, fmt.Errorf("FRONTEND_ORIGIN %q must be an origin like https://app.example.com", c.FrontendOrigin))
	}

	if c.CookieName == "" {
		result = multierror.Append(result, errors.New("COOKIE_NAME must not be empty"))
	}
	sameSite, err := cookie.ParseSameSite(c.CookieSameSite)
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("COOKIE_SAMESITE: %w", err))
	} else if sameSite == http.SameSiteNoneMode && !c.CookieSecure {
		result = multierror.Append(result, errors.New("COOKIE_SAMESITE=none requires COOKIE_SECURE=true"))
	}

	if c.ExchangeTimeout <= 0 {
		result = multierror.Append(result, errors.New("OAUTH_EXCHANGE_TIMEOUT must be positive"))
	}
	if c.DiscoveryTimeout <= 0 {
		result = multierror.Append(result, errors.New("OAUTH_DISCOVERY_TIMEOUT must be positive"))
	}
	if c.SessionMaxAge < 0 {
		result = multierror.Append(result, errors.New("SESSION_MAX_AGE must not be negative"))
	}
	if c.StateSweepPeriod <= 0 {
		result = multierror.Append(result, errors.New("STATE_SWEEP_INTERVAL must be positive"))
	}

	if _, err := c.SlogLevel(); err != nil {
		result = multierror.Append(result, err)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		result = multierror.Append(result, fmt.Errorf("LOG_FORMAT %q must be json or text", c.LogFormat))
	}

	if !c.Google.Enabled() && !c.AzureAD.Enabled() {
		result = multierror.Append(result, errors.New("no identity provider configured: set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET"))
	}
	if c.AzureAD.Enabled() {
		switch strings.ToLower(c.AzureAD.TenantID) {
		case "":
			result = multierror.Append(result, errors.New("AZUREAD_TENANT_ID is required when Azure AD is configured"))
		case "common", "organizations", "consumers":
			result = multierror.Append(result, fmt.Errorf("AZUREAD_TENANT_ID %q is a multi-tenant alias; set a tenant ID or domain", c.AzureAD.TenantID))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// SameSite returns the parsed cookie SameSite mode
func (c *Config) SameSite() http.SameSite {
	mode, err := cookie.ParseSameSite(c.CookieSameSite)
	if err != nil {
		return http.SameSiteLaxMode
	}
	return mode
}

// SlogLevel parses LOG_LEVEL
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
