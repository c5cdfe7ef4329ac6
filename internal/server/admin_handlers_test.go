package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/internal/auth"
)

func (e *testEnv) promote(t *testing.T, id string) {
	t.Helper()
	u := e.Repo.Get(id)
	require.NotNil(t, u)
	u.Role = auth.RoleAdmin
	e.Repo.Put(u)
}

func TestAdminRoutesRejectRegularUsers(t *testing.T) {
	e := newTestEnv(t, Deps{})
	e.SignUpVerified(t, "alice", testEmail, testPassword)
	access, _ := e.signIn(t, testEmail, testPassword)

	rec := e.do(t, http.MethodGet, "/api/admin/users", nil, access)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin only access", decodeBody(t, rec)["message"])

	rec = e.do(t, http.MethodGet, "/api/admin/users", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminManagesUsers(t *testing.T) {
	e := newTestEnv(t, Deps{})
	admin := e.SignUpVerified(t, "root", "root@x.com", testPassword)
	e.promote(t, admin.ID)
	bob := e.SignUpVerified(t, "bob", "bob@x.com", testPassword)
	e.SignUpVerified(t, "carol", "carol@x.com", testPassword)

	access, _ := e.signIn(t, "root@x.com", testPassword)

	rec := e.do(t, http.MethodGet, "/api/admin/users?page=1&limit=2", nil, access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 2, body["pages"])
	assert.Len(t, body["users"], 2)

	rec = e.do(t, http.MethodGet, "/api/admin/users/"+bob.ID, nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decodeBody(t, rec)["user"].(map[string]any)["userName"])

	rec = e.do(t, http.MethodGet, "/api/admin/users/missing", nil, access)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPatch, "/api/admin/users/"+bob.ID+"/role", map[string]string{"role": "superuser"}, access)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPatch, "/api/admin/users/"+bob.ID+"/role", map[string]string{"role": "admin"}, access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "User role updated to admin", decodeBody(t, rec)["message"])
	assert.Equal(t, auth.RoleAdmin, e.Repo.Get(bob.ID).Role)

	rec = e.do(t, http.MethodDelete, "/api/admin/users/"+bob.ID, nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, e.Repo.Get(bob.ID))

	rec = e.do(t, http.MethodDelete, "/api/admin/users/"+bob.ID, nil, access)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
