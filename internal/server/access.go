package server

import (
	"fmt"
	"net/http"
	"slices"

	"estatehub/internal/auth"
)

const (
	RolePublic = "PUBLIC"
	RoleUser   = string(auth.RoleUser)
	RoleAdmin  = string(auth.RoleAdmin)
)

type AccessRule struct {
	Method string
	Path   string
	Roles  []string
}

var endpointAccess = []AccessRule{
	{Method: http.MethodPost, Path: "/api/auth/sign-up", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/api/auth/verify-email", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/api/auth/resend-verification", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/api/auth/sign-in", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/api/auth/refresh", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/api/auth/sign-out", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/api/auth/forgot-password", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/api/auth/verify-otp", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/api/auth/reset-password", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/api/oauth/failure", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/api/oauth/{provider}", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/api/oauth/{provider}/callback", Roles: []string{RolePublic}},

	{Method: http.MethodGet, Path: "/api/auth/me", Roles: []string{RoleUser, RoleAdmin}},
	{Method: http.MethodGet, Path: "/api/users/profile", Roles: []string{RoleUser, RoleAdmin}},
	{Method: http.MethodPut, Path: "/api/users/profile", Roles: []string{RoleUser, RoleAdmin}},
	{Method: http.MethodPut, Path: "/api/users/change-password", Roles: []string{RoleUser, RoleAdmin}},
	{Method: http.MethodDelete, Path: "/api/users/delete", Roles: []string{RoleUser, RoleAdmin}},

	{Method: http.MethodGet, Path: "/api/admin/users", Roles: []string{RoleAdmin}},
	{Method: http.MethodGet, Path: "/api/admin/users/{id}", Roles: []string{RoleAdmin}},
	{Method: http.MethodPatch, Path: "/api/admin/users/{id}/role", Roles: []string{RoleAdmin}},
	{Method: http.MethodDelete, Path: "/api/admin/users/{id}", Roles: []string{RoleAdmin}},
}

func accessRoles(method, path string) []string {
	for _, rule := range endpointAccess {
		if rule.Method == method && rule.Path == path {
			return rule.Roles
		}
	}
	panic(fmt.Sprintf("missing access roles for %s %s", method, path))
}

func roleAllowed(roles []string, role string) bool {
	return slices.Contains(roles, role)
}

func isPublicAccess(roles []string) bool {
	return roleAllowed(roles, RolePublic)
}
