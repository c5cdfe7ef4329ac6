package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatehub/internal/auth"
	"estatehub/internal/auth/authtest"
)

func TestAuthenticate_LocalCredentials(t *testing.T) {
	f := authtest.New(t, auth.Options{})
	alice := f.SignUpVerified(t, "alice", aliceEmail, alicePassword)

	u, err := f.Service.Authenticate(t.Context(), auth.LocalCredentials{Email: aliceEmail, Password: alicePassword})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)
}

func TestAuthenticate_OAuthCreatesVerifiedAccount(t *testing.T) {
	ctx := t.Context()
	f := authtest.New(t, auth.Options{})

	id := auth.OAuthIdentity{
		Provider:      auth.ProviderGoogle,
		Subject:       "g-123",
		Email:         "Carol@X.com",
		EmailVerified: true,
		Name:          "Carol O'Neil",
	}
	u, err := f.Service.Authenticate(ctx, id)
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	assert.Equal(t, auth.ProviderGoogle, u.OAuthProvider)
	assert.Equal(t, "carol@x.com", u.Email)
	assert.Equal(t, "Carol ONeil", u.UserName)
	assert.False(t, u.HasPassword())
	require.NotNil(t, u.GoogleID)
	assert.Equal(t, "g-123", *u.GoogleID)

	again, err := f.Service.Authenticate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, 1, f.Repo.Len())

	_, err = f.Service.SignIn(ctx, auth.SignInInput{Email: "carol@x.com", Password: alicePassword})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthenticate_OAuthLinksVerifiedEmail(t *testing.T) {
	ctx := t.Context()
	f := authtest.New(t, auth.Options{})
	alice := f.SignUpVerified(t, "alice", aliceEmail, alicePassword)

	u, err := f.Service.Authenticate(ctx, auth.OAuthIdentity{
		Provider:      auth.ProviderGitHub,
		Subject:       "42",
		Email:         aliceEmail,
		EmailVerified: true,
		Name:          "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, u.ID)

	stored := f.Repo.Get(alice.ID)
	require.NotNil(t, stored.GitHubID)
	assert.Equal(t, "42", *stored.GitHubID)
	assert.Equal(t, auth.ProviderLocal, stored.OAuthProvider, "a password account stays local")
	assert.True(t, stored.HasPassword(), "linking keeps the local password")

	again, err := f.Service.Authenticate(ctx, auth.OAuthIdentity{Provider: auth.ProviderGitHub, Subject: "42"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, again.ID)
}

func TestAuthenticate_OAuthRefusesUnverifiedLink(t *testing.T) {
	f := authtest.New(t, auth.Options{})
	f.SignUpVerified(t, "alice", aliceEmail, alicePassword)

	_, err := f.Service.Authenticate(t.Context(), auth.OAuthIdentity{
		Provider: auth.ProviderGitHub,
		Subject:  "42",
		Email:    aliceEmail,
	})
	assert.ErrorIs(t, err, auth.ErrDuplicateField)
}

func TestAuthenticate_OAuthUserNameCollisions(t *testing.T) {
	ctx := t.Context()
	f := authtest.New(t, auth.Options{})
	f.SignUpVerified(t, "alice", aliceEmail, alicePassword)

	u, err := f.Service.Authenticate(ctx, auth.OAuthIdentity{Provider: auth.ProviderGitHub, Subject: "7", Name: "alice"})
	require.NoError(t, err)
	assert.Regexp(t, `^alice_\d{4}$`, u.UserName)
	assert.Empty(t, u.Email)

	anon, err := f.Service.Authenticate(ctx, auth.OAuthIdentity{Provider: auth.ProviderGitHub, Subject: "8", Name: "!!"})
	require.NoError(t, err)
	assert.Equal(t, "GitHubUser", anon.UserName)
}

func TestAuthenticate_UnknownProvider(t *testing.T) {
	f := authtest.New(t, auth.Options{})
	_, err := f.Service.Authenticate(t.Context(), auth.OAuthIdentity{Provider: auth.ProviderLocal, Subject: "x"})
	assert.ErrorIs(t, err, auth.ErrProviderUnavailable)
}
