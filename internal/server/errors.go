package server

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"estatehub/internal/auth"
)

const genericErrorMessage = "Something went wrong!"

type errorResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Error   string `json:"error,omitempty"`
}

var errorStatus = []struct {
	err     error
	status  int
	message string
}{
	{auth.ErrInvalidCredentials, http.StatusBadRequest, "Invalid email or password"},
	{auth.ErrEmailNotVerified, http.StatusForbidden, "Email not verified"},
	{auth.ErrSecretInvalidOrExpired, http.StatusBadRequest, "Invalid or expired code"},
	{auth.ErrNoToken, http.StatusUnauthorized, "No refresh token provided"},
	{auth.ErrTokenExpired, http.StatusUnauthorized, "Token expired. Please refresh or login again."},
	{auth.ErrTokenInvalid, http.StatusUnauthorized, "Invalid token. Please log in again."},
	{auth.ErrTokenMismatch, http.StatusForbidden, "Refresh token mismatch"},
	{auth.ErrNotAuthenticated, http.StatusUnauthorized, "Not authorized"},
	{auth.ErrForbidden, http.StatusForbidden, "Admin only access"},
	{auth.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{auth.ErrDeliveryFailed, http.StatusInternalServerError, "Could not send email"},
	{auth.ErrProviderUnavailable, http.StatusNotFound, "OAuth provider not available"},
}

// classify maps err onto a status and a client-safe message. The last result
// is false for errors outside the auth taxonomy.
func classify(err error) (int, string, string, bool) {
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Message, "", true
	}
	var dup *auth.DuplicateFieldError
	if errors.As(err, &dup) {
		return http.StatusBadRequest, fmt.Sprintf("Duplicate value for field %q", dup.Field), dup.Field, true
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.message, "", true
		}
	}
	return http.StatusInternalServerError, genericErrorMessage, "", false
}

// writeError is the single place where failures become HTTP responses.
// Outside production the internal error text is included.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message, field, operational := classify(err)

	resp := errorResponse{
		Status:  "fail",
		Message: message,
		Field:   field,
	}
	if status >= http.StatusInternalServerError {
		resp.Status = "error"
	}
	if !s.Config.IsProduction() {
		resp.Error = err.Error()
	}

	if !operational || status >= http.StatusInternalServerError {
		s.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, resp)
}

func (s *Server) writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, auth.NewValidationError("Invalid request body: %v", err))
}
