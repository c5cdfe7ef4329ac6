package server

import (
	"net/http"

	"estatehub/internal/auth"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    currentUser(r).Public(),
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req auth.UpdateProfileInput
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	user, err := s.Auth.UpdateProfile(r.Context(), currentUser(r).ID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.AuditProfileUpdated, user.ID, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Profile updated successfully",
		"user":    user.Public(),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	user := currentUser(r)
	if err := s.Auth.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.AuditPasswordChanged, user.ID, nil)
	writeMessage(w, http.StatusOK, "Password changed successfully")
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := s.Auth.DeleteUser(r.Context(), user.ID); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.cookies.ClearSession(w)
	s.audit(r, auth.AuditAccountDeleted, user.ID, nil)
	writeMessage(w, http.StatusOK, "User account deleted successfully")
}
