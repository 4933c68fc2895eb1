// Package oidctest runs an in-process OIDC issuer for tests.
package oidctest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const keyID = "oidctest-key"

// Profile is the identity asserted in the ID token for an authorization code
type Profile struct {
	Subject   string
	Email     string
	Name      string
	GivenName string
}

// Issuer serves discovery, JWKS and token endpoints backed by an RSA key.
// Authorization codes are registered with AddCode and are single-use.
type Issuer struct {
	Server   *httptest.Server
	ClientID string

	key *rsa.PrivateKey

	mu         sync.Mutex
	codes      map[string]Profile
	tokenDelay time.Duration
	exchanges  int
}

// NewIssuer starts an issuer that accepts clientID as audience.
// The server is closed when the test finishes.
func NewIssuer(t testing.TB, clientID string) *Issuer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate issuer key: %v", err)
	}

	iss := &Issuer{
		ClientID: clientID,
		key:      key,
		codes:    make(map[string]Profile),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", iss.handleDiscovery)
	mux.HandleFunc("GET /keys", iss.handleKeys)
	mux.HandleFunc("POST /token", iss.handleToken)

	iss.Server = httptest.NewServer(mux)
	t.Cleanup(iss.Server.Close)

	return iss
}

// URL returns the issuer identifier
func (i *Issuer) URL() string {
	return i.Server.URL
}

// AddCode registers a one-time authorization code for profile
func (i *Issuer) AddCode(code string, profile Profile) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[code] = profile
}

// SetTokenDelay makes the token endpoint wait before answering
func (i *Issuer) SetTokenDelay(d time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tokenDelay = d
}

// Exchanges returns how many token requests were received
func (i *Issuer) Exchanges() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.exchanges
}

func (i *Issuer) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                i.URL(),
		"authorization_endpoint":                i.URL() + "/authorize",
		"token_endpoint":                        i.URL() + "/token",
		"jwks_uri":                              i.URL() + "/keys",
		"userinfo_endpoint":                     i.URL() + "/userinfo",
		"response_types_supported":              []string{"code"},
		"subject_types_supported":               []string{"public"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (i *Issuer) handleKeys(w http.ResponseWriter, r *http.Request) {
	pub := i.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": keyID,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (i *Issuer) handleToken(w http.ResponseWriter, r *http.Request) {
	i.mu.Lock()
	i.exchanges++
	delay := i.tokenDelay
	i.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	code := r.PostForm.Get("code")
	i.mu.Lock()
	profile, ok := i.codes[code]
	delete(i.codes, code)
	i.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}

	idToken, err := i.SignIDToken(profile, i.ClientID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "access-" + code,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

// SignIDToken returns an RS256 ID token for profile with the given audience
func (i *Issuer) SignIDToken(profile Profile, audience string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": i.URL(),
		"sub": profile.Subject,
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if profile.Email != "" {
		claims["email"] = profile.Email
	}
	if profile.Name != "" {
		claims["name"] = profile.Name
	}
	if profile.GivenName != "" {
		claims["given_name"] = profile.GivenName
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	return token.SignedString(i.key)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
