package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"estatehub/internal/auth"
	"estatehub/internal/config"
)

type memoryStates struct {
	mu     sync.Mutex
	n      int
	states map[string]auth.Provider
}

func (m *memoryStates) Create(_ context.Context, p auth.Provider) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = map[string]auth.Provider{}
	}
	m.n++
	state := "state-" + string(rune('a'+m.n))
	m.states[state] = p
	return state, nil
}

func (m *memoryStates) Consume(_ context.Context, state string, p auth.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	got, ok := m.states[state]
	delete(m.states, state)
	if !ok || got != p {
		return auth.ErrOAuthStateInvalid
	}
	return nil
}

func newOAuthEnv(t *testing.T, identity auth.OAuthIdentity) (*testEnv, *memoryStates) {
	t.Helper()
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-token","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(tokens.Close)

	providers := auth.NewOAuthProviders(config.OAuthConfig{})
	providers.Register(auth.NewOAuthProvider(auth.ProviderGitHub, &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:4000/api/oauth/github/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  tokens.URL + "/authorize",
			TokenURL: tokens.URL + "/token",
		},
	}, func(context.Context, *http.Client) (auth.OAuthIdentity, error) {
		return identity, nil
	}))

	states := &memoryStates{}
	return newTestEnv(t, Deps{OAuth: providers, OAuthStates: states}), states
}

func TestOAuthStartRedirectsWithState(t *testing.T) {
	e, states := newOAuthEnv(t, auth.OAuthIdentity{})

	rec := e.do(t, http.MethodGet, "/api/oauth/github", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", loc.Path)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Contains(t, states.states, state)

	rec = e.do(t, http.MethodGet, "/api/oauth/google", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuthCallbackCreatesSession(t *testing.T) {
	e, states := newOAuthEnv(t, auth.OAuthIdentity{
		Subject:       "4242",
		Email:         "dora@x.com",
		EmailVerified: true,
		Name:          "Dora",
	})
	state, err := states.Create(t.Context(), auth.ProviderGitHub)
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/oauth/github/callback?code=abc&state="+state, nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "http://localhost:5173/", rec.Header().Get("Location"))

	access := cookieNamed(rec, auth.AccessCookieName)
	require.NotNil(t, access)
	require.NotNil(t, cookieNamed(rec, auth.RefreshCookieName))

	rec = e.do(t, http.MethodGet, "/api/auth/me", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "Dora", data["userName"])
	assert.Equal(t, "github", data["oauthProvider"])
	assert.Equal(t, true, data["isVerified"])

	rec = e.do(t, http.MethodGet, "/api/oauth/github/callback?code=abc&state="+state, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/api/oauth/failure?reason=state_invalid", rec.Header().Get("Location"))
}

func TestOAuthCallbackFailures(t *testing.T) {
	e, states := newOAuthEnv(t, auth.OAuthIdentity{Subject: "1", Email: testEmail, Name: "Mallory"})
	e.SignUpVerified(t, "alice", testEmail, testPassword)

	rec := e.do(t, http.MethodGet, "/api/oauth/github/callback?error=access_denied", nil)
	assert.Equal(t, "/api/oauth/failure?reason=access_denied", rec.Header().Get("Location"))

	state, err := states.Create(t.Context(), auth.ProviderGitHub)
	require.NoError(t, err)
	rec = e.do(t, http.MethodGet, "/api/oauth/github/callback?code=abc&state="+state, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/api/oauth/failure?reason=account_conflict", rec.Header().Get("Location"))
	assert.Nil(t, cookieNamed(rec, auth.AccessCookieName))

	rec = e.do(t, http.MethodGet, "/api/oauth/failure?reason=account_conflict", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "OAuth authentication failed", decodeBody(t, rec)["message"])
}
