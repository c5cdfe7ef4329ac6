package server

import (
	"net/http"

	"estatehub/internal/auth"
)

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	if auth.NormalizeEmail(req.Email) == "" {
		s.writeError(w, r, auth.NewValidationError("Email is required"))
		return
	}

	ctx := r.Context()
	if wait, err := s.Limiter.AcquireCooldown(ctx, auth.CooldownForgotPassword, req.Email); err != nil {
		s.writeError(w, r, err)
		return
	} else if wait > 0 {
		writeTooManyRequests(w, "Please wait before requesting another code.", wait)
		return
	}

	if err := s.Auth.ForgotPassword(ctx, req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "If an account exists for this email, an OTP has been sent.")
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)
	if locked, ttl, err := s.Limiter.RegisterAttempt(ctx, auth.ScopeVerifyOTP, ip); err != nil {
		s.writeError(w, r, err)
		return
	} else if locked {
		writeTooManyRequests(w, "Too many attempts. Try again later.", ttl)
		return
	}

	token, user, err := s.Auth.VerifyOTP(ctx, req.OTP)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.Limiter.ResetAttempts(ctx, auth.ScopeVerifyOTP, ip)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"message":    "OTP verified successfully.",
		"resetToken": token,
		"email":      user.Email,
	})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req auth.ResetPasswordInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	user, err := s.Auth.ResetPassword(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.AuditPasswordReset, user.ID, map[string]any{"sessionsRevoked": s.Auth.RevokeSessionsOnReset})
	writeMessage(w, http.StatusOK, "Password reset successful")
}
