package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"estatehub/internal/auth"
)

func (s *Server) provider(r *http.Request) (*auth.OAuthProvider, error) {
	if s.OAuthStates == nil {
		return nil, auth.ErrProviderUnavailable
	}
	return s.OAuth.Get(strings.ToLower(chi.URLParam(r, "provider")))
}

func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	state, err := s.OAuthStates.Create(r.Context(), p.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	p, err := s.provider(r)
	if err != nil {
		s.oauthFailureRedirect(w, r, "provider_unavailable")
		return
	}

	ctx := r.Context()
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.Log.Info("oauth denied by provider", zap.String("provider", string(p.Name)), zap.String("error", e))
		s.oauthFailureRedirect(w, r, "access_denied")
		return
	}
	if err := s.OAuthStates.Consume(ctx, q.Get("state"), p.Name); err != nil {
		s.Log.Warn("oauth state rejected", zap.String("provider", string(p.Name)), zap.Error(err))
		s.oauthFailureRedirect(w, r, "state_invalid")
		return
	}
	code := q.Get("code")
	if code == "" {
		s.oauthFailureRedirect(w, r, "missing_code")
		return
	}

	identity, err := p.Identify(ctx, code)
	if err != nil {
		s.Log.Warn("oauth identify failed", zap.String("provider", string(p.Name)), zap.Error(err))
		s.oauthFailureRedirect(w, r, "exchange_failed")
		return
	}

	user, err := s.Auth.Authenticate(ctx, identity)
	if err != nil {
		reason := "authentication_failed"
		if errors.Is(err, auth.ErrDuplicateField) {
			reason = "account_conflict"
		}
		s.Log.Warn("oauth authenticate failed", zap.String("provider", string(p.Name)), zap.Error(err))
		s.oauthFailureRedirect(w, r, reason)
		return
	}

	sess, err := s.Auth.StartSession(ctx, user)
	if err != nil {
		s.Log.Error("oauth session failed", zap.String("user_id", user.ID), zap.Error(err))
		s.oauthFailureRedirect(w, r, "session_failed")
		return
	}

	s.cookies.SetSession(w, sess)
	s.audit(r, auth.AuditOAuthSignIn, user.ID, map[string]any{"provider": p.Name})
	http.Redirect(w, r, s.frontendURL(), http.StatusFound)
}

func (s *Server) handleOAuthFailure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "OAuth authentication failed",
		"reason":  r.URL.Query().Get("reason"),
	})
}

func (s *Server) oauthFailureRedirect(w http.ResponseWriter, r *http.Request, reason string) {
	target := url.URL{Path: "/api/oauth/failure"}
	q := target.Query()
	q.Set("reason", reason)
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (s *Server) frontendURL() string {
	if s.Config.FrontendURL == "" {
		return "/"
	}
	return s.Config.FrontendURL + "/"
}
