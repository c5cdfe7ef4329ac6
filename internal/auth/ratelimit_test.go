package auth

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRateLimiterBansAfterFailures(t *testing.T) {
	mr, client := newRedis(t)
	rl := &RateLimiter{Redis: client}
	ctx := t.Context()
	const ip = "203.0.113.9"

	for i := 1; i < signInMaxFailures; i++ {
		banned, err := rl.RegisterSignInFailure(ctx, ip)
		require.NoError(t, err)
		assert.False(t, banned, "failure %d", i)
	}
	assert.False(t, rl.IsIPBanned(ctx, ip))

	banned, err := rl.RegisterSignInFailure(ctx, ip)
	require.NoError(t, err)
	assert.True(t, banned)
	assert.True(t, rl.IsIPBanned(ctx, ip))
	assert.False(t, rl.IsIPBanned(ctx, "198.51.100.1"))

	mr.FastForward(signInBanTTL + time.Second)
	assert.False(t, rl.IsIPBanned(ctx, ip))
}

func TestRateLimiterResetSignIn(t *testing.T) {
	_, client := newRedis(t)
	rl := &RateLimiter{Redis: client}
	ctx := t.Context()
	const ip = "203.0.113.9"

	for range signInMaxFailures - 1 {
		_, err := rl.RegisterSignInFailure(ctx, ip)
		require.NoError(t, err)
	}
	rl.ResetSignIn(ctx, ip)

	banned, err := rl.RegisterSignInFailure(ctx, ip)
	require.NoError(t, err)
	assert.False(t, banned)
}

func TestRateLimiterAttempts(t *testing.T) {
	mr, client := newRedis(t)
	rl := &RateLimiter{Redis: client}
	ctx := t.Context()

	for i := 1; i <= attemptMax; i++ {
		locked, _, err := rl.RegisterAttempt(ctx, ScopeVerifyOTP, "ip")
		require.NoError(t, err)
		assert.False(t, locked, "attempt %d", i)
	}
	locked, ttl, err := rl.RegisterAttempt(ctx, ScopeVerifyOTP, "ip")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Positive(t, ttl)

	locked, _, err = rl.RegisterAttempt(ctx, ScopeVerifyEmail, "ip")
	require.NoError(t, err)
	assert.False(t, locked, "scopes are counted separately")

	mr.FastForward(attemptTTL + time.Second)
	locked, _, err = rl.RegisterAttempt(ctx, ScopeVerifyOTP, "ip")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRateLimiterCooldown(t *testing.T) {
	mr, client := newRedis(t)
	rl := &RateLimiter{Redis: client}
	ctx := t.Context()

	wait, err := rl.AcquireCooldown(ctx, CooldownForgotPassword, "Alice@X.com")
	require.NoError(t, err)
	assert.Zero(t, wait)

	wait, err = rl.AcquireCooldown(ctx, CooldownForgotPassword, " alice@x.com ")
	require.NoError(t, err)
	assert.Positive(t, wait)
	assert.LessOrEqual(t, wait, EmailCooldown)

	wait, err = rl.AcquireCooldown(ctx, CooldownResendVerification, "alice@x.com")
	require.NoError(t, err)
	assert.Zero(t, wait)

	mr.FastForward(EmailCooldown + time.Second)
	wait, err = rl.AcquireCooldown(ctx, CooldownForgotPassword, "alice@x.com")
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestAuditLoggerCapsPerUser(t *testing.T) {
	_, client := newRedis(t)
	audit := &AuditLogger{Redis: client, MaxLen: 3}
	ctx := t.Context()

	for _, event := range []string{AuditSignUp, AuditEmailVerified, AuditSignIn, AuditRefresh, AuditSignOut} {
		require.NoError(t, audit.Log(ctx, AuditEvent{EventType: event, UserID: "u1", IP: "ip"}))
	}
	require.NoError(t, audit.Log(ctx, AuditEvent{EventType: AuditSignInFailed, IP: "ip"}))

	events, err := audit.Recent(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, AuditSignIn, events[0].EventType)
	assert.Equal(t, AuditSignOut, events[2].EventType)
	assert.False(t, events[2].Timestamp.IsZero())

	anon, err := audit.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, AuditSignInFailed, anon[0].EventType)
}

func TestOAuthStateStore(t *testing.T) {
	mr, client := newRedis(t)
	states := &OAuthStateStore{Redis: client}
	ctx := t.Context()

	state, err := states.Create(ctx, ProviderGoogle)
	require.NoError(t, err)
	require.NotEmpty(t, state)

	assert.ErrorIs(t, states.Consume(ctx, state, ProviderGitHub), ErrOAuthStateInvalid)
	assert.ErrorIs(t, states.Consume(ctx, state, ProviderGoogle), ErrOAuthStateInvalid, "a state is single-use even after a provider mismatch")

	state, err = states.Create(ctx, ProviderGoogle)
	require.NoError(t, err)
	require.NoError(t, states.Consume(ctx, state, ProviderGoogle))
	assert.ErrorIs(t, states.Consume(ctx, state, ProviderGoogle), ErrOAuthStateInvalid)

	state, err = states.Create(ctx, ProviderGitHub)
	require.NoError(t, err)
	mr.FastForward(OAuthStateTTL + time.Second)
	assert.ErrorIs(t, states.Consume(ctx, state, ProviderGitHub), ErrOAuthStateInvalid)

	assert.ErrorIs(t, states.Consume(ctx, "", ProviderGitHub), ErrOAuthStateInvalid)
}
