package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oakmont/xerosync/internal/auth/token"
	"go.uber.org/zap"
)

// redirectURI reconstructs the externally visible callback URL from
// the request, so the service works behind a proxy without extra
// configuration.
func redirectURI(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/auth/xero/callback", scheme, r.Host)
}

// handleConnect starts the PKCE authorization flow with a redirect to
// the provider consent page.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	url, err := s.tokens.BeginAuthorization(redirectURI(r))
	if errors.Is(err, token.ErrNotConfigured) {
		writeError(w, http.StatusConflict, "save a xero client id before connecting")
		return
	}
	if err != nil {
		s.log.Error("begin authorization", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not start authorization")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// handleCallback finishes the flow: state check, code exchange, tenant
// discovery.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.tokens.ConsumeState(r.URL.Query().Get("state")) {
		writeError(w, http.StatusBadRequest, "invalid state token")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	if err := s.tokens.CompleteAuthorization(r.Context(), code, redirectURI(r)); err != nil {
		s.log.Error("authorization failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"connected": false,
			"error":     err.Error(),
		})
		return
	}

	tenant, _ := s.tokens.TenantID()
	s.log.Info("connected to xero", zap.String("tenant_id", tenant))
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"tenant_id": tenant,
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := s.tokens.Disconnect(); err != nil {
		s.log.Error("disconnect", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "disconnect failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// handleStatus reports the admin-facing connected indicator.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"connected": false}

	if s.tokens.Connected() {
		status["connected"] = true
		if tenant, err := s.tokens.TenantID(); err == nil {
			status["tenant_id"] = tenant
		}
		if tokens, err := s.tokens.Tokens(); err == nil {
			status["token_expires_at"] = time.Unix(tokens.ExpiresAt(), 0).UTC().Format(time.RFC3339)
		}
		if identity, err := s.tokens.Identity(); err == nil {
			status["email"] = identity.Email
			status["name"] = identity.Name
		}
	}
	writeJSON(w, http.StatusOK, status)
}
