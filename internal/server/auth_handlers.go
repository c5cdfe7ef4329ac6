package server

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"estatehub/internal/auth"
)

func writeTooManyRequests(w http.ResponseWriter, message string, wait time.Duration) {
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"success":  false,
		"message":  message,
		"cooldown": int64(wait.Seconds()),
	})
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req auth.SignUpInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	user, err := s.Auth.SignUp(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.AuditSignUp, user.ID, nil)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered. Please check your email to verify your account.",
		"user":    user.Public(),
	})
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if locked, ttl, err := s.Limiter.RegisterAttempt(ctx, auth.ScopeVerifyEmail, ip); err != nil {
		s.writeError(w, r, err)
		return
	} else if locked {
		writeTooManyRequests(w, "Too many verification attempts. Try again later.", ttl)
		return
	}

	user, err := s.Auth.VerifyEmail(ctx, req.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.Limiter.ResetAttempts(ctx, auth.ScopeVerifyEmail, ip)
	s.audit(r, auth.AuditEmailVerified, user.ID, nil)
	writeMessage(w, http.StatusOK, "Email verified successfully")
}

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	if err := auth.ValidateEmail(req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if wait, err := s.Limiter.AcquireCooldown(ctx, auth.CooldownResendVerification, req.Email); err != nil {
		s.writeError(w, r, err)
		return
	} else if wait > 0 {
		writeTooManyRequests(w, "Please wait before requesting another code.", wait)
		return
	}

	if err := s.Auth.ResendVerification(ctx, req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "If an unverified account exists for this email, a new code has been sent.")
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if s.Limiter.IsIPBanned(ctx, ip) {
		writeMessage(w, http.StatusForbidden, "Too many failed sign-in attempts. Try again later.")
		return
	}

	var req auth.SignInInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	sess, err := s.Auth.SignIn(ctx, req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.audit(r, auth.AuditSignInFailed, "", nil)
			banned, lerr := s.Limiter.RegisterSignInFailure(ctx, ip)
			if lerr != nil {
				s.Log.Warn("sign-in failure not counted", zap.Error(lerr))
			}
			if banned {
				writeMessage(w, http.StatusForbidden, "Too many failed sign-in attempts. Try again later.")
				return
			}
		}
		s.writeError(w, r, err)
		return
	}

	s.Limiter.ResetSignIn(ctx, ip)
	s.cookies.SetSession(w, sess)
	s.audit(r, auth.AuditSignIn, sess.User.ID, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logged in successfully",
		"user":    sess.User.Public(),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    currentUser(r).Public(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Auth.Refresh(r.Context(), auth.ReadCookie(r, auth.RefreshCookieName))
	if err != nil {
		var mismatch *auth.TokenMismatchError
		if errors.As(err, &mismatch) {
			s.audit(r, auth.AuditRefreshMismatch, mismatch.UserID, nil)
		}
		s.writeError(w, r, err)
		return
	}

	s.cookies.SetSession(w, sess)
	s.audit(r, auth.AuditRefresh, sess.User.ID, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Tokens refreshed successfully",
		"accessToken": sess.AccessToken,
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	user, err := s.Auth.SignOut(r.Context(), auth.ReadCookie(r, auth.RefreshCookieName))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cookies.ClearSession(w)
	if user != nil {
		s.audit(r, auth.AuditSignOut, user.ID, nil)
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}
