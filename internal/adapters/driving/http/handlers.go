package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"unauthenticated"`
}

// OKResponse represents a liveness or readiness response
// @Description Liveness or readiness response
type OKResponse struct {
	OK      bool                  `json:"ok" example:"true"`
	Pending []domain.ProviderType `json:"pending,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns 200 while the process is serving
// @Tags         Health
// @Produce      json
// @Success      200  {object}  OKResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns 200 once every configured identity provider finished discovery
// @Tags         Health
// @Produce      json
// @Success      200  {object}  OKResponse
// @Failure      503  {object}  OKResponse  "Providers still discovering"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readiness != nil && !s.readiness.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, OKResponse{OK: false, Pending: s.readiness.Pending()})
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// Session endpoints

// handleMe godoc
// @Summary      Current user
// @Description  Returns the user of the session cookie
// @Tags         Authentication
// @Produce      json
// @Success      200  {object}  domain.User
// @Failure      401  {object}  ErrorResponse  "No valid session"
// @Router       /api/auth/me [get]
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	user, err := s.gateway.WhoAmI(r.Context(), s.gateway.SessionID(r.Cookies()))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			writeError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		s.logger.Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleLogout godoc
// @Summary      Logout
// @Description  Deletes the session and clears the session cookie. Succeeds without a session.
// @Tags         Authentication
// @Success      204
// @Router       /api/auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie := s.gateway.Logout(r.Context(), s.gateway.SessionID(r.Cookies()))
	http.SetCookie(w, cookie)
	w.WriteHeader(http.StatusNoContent)
}

// OAuth flow endpoints

// handleLogin godoc
// @Summary      Begin login
// @Description  Redirects the browser to the identity provider
// @Tags         OAuth
// @Param        provider  path   string  true   "Identity provider"  Enums(google, azuread)
// @Param        returnTo  query  string  false  "Frontend URL to return to after login"
// @Success      302
// @Failure      404  {string}  string  "Unknown provider"
// @Failure      503  {string}  string  "Provider not ready"
// @Router       /auth/{provider}/login [get]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	provider, err := domain.ParseProviderType(r.PathValue("provider"))
	if err != nil {
		s.writeAuthError(w, provider, err)
		return
	}

	redirect, err := s.gateway.StartLogin(r.Context(), provider, r.URL.Query().Get("returnTo"))
	if err != nil {
		s.writeAuthError(w, provider, err)
		return
	}

	http.Redirect(w, r, redirect.URL, http.StatusFound)
}

// handleCallback godoc
// @Summary      Finish login
// @Description  Receives the provider redirect, creates a session and returns the browser to the frontend
// @Tags         OAuth
// @Param        provider  path   string  true   "Identity provider"  Enums(google, azuread)
// @Param        code      query  string  false  "Authorization code"
// @Param        state     query  string  true   "State issued at login"
// @Success      302
// @Failure      400  {string}  string  "Invalid state"
// @Failure      404  {string}  string  "Unknown provider"
// @Failure      500  {string}  string  "OAuth error"
// @Failure      503  {string}  string  "Provider not ready"
// @Router       /auth/{provider}/callback [get]
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	provider, err := domain.ParseProviderType(r.PathValue("provider"))
	if err != nil {
		s.writeAuthError(w, provider, err)
		return
	}

	q := r.URL.Query()
	params := domain.CallbackParams{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	result, err := s.gateway.HandleCallback(r.Context(), provider, params)
	if err != nil {
		s.writeAuthError(w, provider, err)
		return
	}

	http.SetCookie(w, result.Cookie)
	http.Redirect(w, r, result.ReturnTo, http.StatusFound)
}

// writeAuthError writes a plain text error for the browser-facing OAuth routes
func (s *Server) writeAuthError(w http.ResponseWriter, provider domain.ProviderType, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownProvider):
		http.Error(w, "Unknown provider", http.StatusNotFound)
	case errors.Is(err, domain.ErrProviderNotReady):
		http.Error(w, "Provider not ready", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrInvalidState):
		http.Error(w, "Invalid state", http.StatusBadRequest)
	case errors.Is(err, domain.ErrProviderExchange):
		http.Error(w, "OAuth error", http.StatusInternalServerError)
	default:
		s.logger.Error("oauth flow failed", "provider", provider, "error", err)
		http.Error(w, "OAuth error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
