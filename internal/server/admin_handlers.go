package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"estatehub/internal/auth"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := s.Auth.ListUsers(r.Context(),
		queryInt(r, "page", 1),
		queryInt(r, "limit", auth.DefaultPageSize),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   page.Users,
		"total":   page.Total,
		"page":    page.Page,
		"pages":   page.Pages,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.Auth.User(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user.Public(),
	})
}

type setRoleRequest struct {
	Role auth.Role `json:"role"`
}

func (s *Server) handleSetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}

	user, err := s.Auth.SetRole(r.Context(), chi.URLParam(r, "id"), req.Role)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.AuditRoleChanged, user.ID, map[string]any{
		"role": user.Role,
		"by":   currentUser(r).ID,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("User role updated to %s", user.Role),
		"user":    user.Public(),
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.Auth.DeleteUser(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.audit(r, auth.AuditAccountDeleted, id, map[string]any{"by": currentUser(r).ID})
	writeMessage(w, http.StatusOK, "User deleted successfully")
}
