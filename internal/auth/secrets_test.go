package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretIssuer_IssueStoresOnlyHash(t *testing.T) {
	now := time.Now()
	issuer := &SecretIssuer{Now: func() time.Time { return now }}

	tests := []struct {
		kind    SecretKind
		ttl     time.Duration
		pattern *regexp.Regexp
		slot    func(*User) *Secret
	}{
		{SecretVerificationCode, VerificationCodeTTL, regexp.MustCompile(`^[1-9]\d{4}$`), func(u *User) *Secret { return u.VerificationCode }},
		{SecretResetOTP, ResetOTPTTL, regexp.MustCompile(`^[1-9]\d{4}$`), func(u *User) *Secret { return u.VerificationOTP }},
		{SecretResetToken, ResetTokenTTL, regexp.MustCompile(`^[0-9a-f]{64}$`), func(u *User) *Secret { return u.PasswordResetToken }},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			u := &User{}
			plain, err := issuer.Issue(u, tt.kind)
			require.NoError(t, err)
			assert.Regexp(t, tt.pattern, plain)

			stored := tt.slot(u)
			require.NotNil(t, stored)
			assert.Equal(t, HashString(plain), stored.Hash)
			assert.NotEqual(t, plain, stored.Hash)
			assert.Equal(t, now.Add(tt.ttl), stored.Expires)
		})
	}
}

func TestSecretIssuer_ConsumeIsSingleUse(t *testing.T) {
	now := time.Now()
	issuer := &SecretIssuer{Now: func() time.Time { return now }}
	u := &User{}

	code, err := issuer.Issue(u, SecretResetOTP)
	require.NoError(t, err)

	assert.ErrorIs(t, issuer.Consume(u, SecretResetOTP, "00000"), ErrSecretInvalidOrExpired)
	require.NotNil(t, u.VerificationOTP, "a wrong guess must not burn the secret")

	require.NoError(t, issuer.Consume(u, SecretResetOTP, code))
	assert.Nil(t, u.VerificationOTP)

	assert.ErrorIs(t, issuer.Consume(u, SecretResetOTP, code), ErrSecretInvalidOrExpired)
}

func TestSecretIssuer_ExpiredNeverVerifies(t *testing.T) {
	for _, kind := range []SecretKind{SecretVerificationCode, SecretResetOTP, SecretResetToken} {
		t.Run(kind.String(), func(t *testing.T) {
			now := time.Now()
			issuer := &SecretIssuer{Now: func() time.Time { return now }}
			u := &User{}

			plain, err := issuer.Issue(u, kind)
			require.NoError(t, err)

			now = (*u.secret(kind)).Expires
			assert.ErrorIs(t, issuer.Consume(u, kind, plain), ErrSecretInvalidOrExpired)
		})
	}
}

func TestSecretIssuer_KindsDoNotCross(t *testing.T) {
	issuer := NewSecretIssuer()
	u := &User{}

	code, err := issuer.Issue(u, SecretVerificationCode)
	require.NoError(t, err)
	assert.ErrorIs(t, issuer.Consume(u, SecretResetOTP, code), ErrSecretInvalidOrExpired)
}

func TestClear(t *testing.T) {
	issuer := NewSecretIssuer()
	u := &User{}
	_, err := issuer.Issue(u, SecretResetToken)
	require.NoError(t, err)

	Clear(u, SecretResetToken)
	assert.Nil(t, u.PasswordResetToken)
}
