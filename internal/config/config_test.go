package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_URL", "postgres://localhost/estatehub")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvTest, cfg.Environment)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.Token.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Token.RefreshTTL)
	assert.Equal(t, MailSMTP, cfg.Email.Driver)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "http://localhost:4000/api/oauth/google/callback", cfg.OAuth.Google.RedirectURL)
	assert.False(t, cfg.OAuth.GitHub.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_EXPIRES_IN", "5m")
	t.Setenv("SERVER_URL", "https://api.example.com/")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")
	t.Setenv("EMAIL_SERVER_HOST", "'smtp.example.com'")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Token.AccessTTL)
	assert.Equal(t, "https://api.example.com/api/oauth/github/callback", cfg.OAuth.GitHub.RedirectURL)
	assert.True(t, cfg.OAuth.GitHub.Enabled())
	assert.Len(t, cfg.TrustedProxies, 2)
	assert.Equal(t, "smtp.example.com", cfg.Email.Host)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing access secret", map[string]string{"JWT_SECRET": ""}},
		{"missing refresh secret", map[string]string{"JWT_REFRESH_SECRET": ""}},
		{"identical secrets", map[string]string{"JWT_REFRESH_SECRET": "access-secret"}},
		{"unknown store", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"mongo without url", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"DATABASE_URL": ""}},
		{"unknown environment", map[string]string{"APP_ENV": "staging"}},
		{"postmark without tokens", map[string]string{"MAIL_DRIVER": "postmark"}},
		{"negative ttl", map[string]string{"JWT_EXPIRES_IN": "-1m"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
