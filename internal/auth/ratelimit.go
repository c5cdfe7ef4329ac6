package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	Redis *redis.Client
}

const (
	signInMaxFailures = 5
	signInFailureTTL  = 10 * time.Minute
	signInBanTTL      = 1 * time.Hour
	attemptMax        = 5
	attemptTTL        = 10 * time.Minute
	EmailCooldown     = 60 * time.Second
)

// Attempt scopes count guesses at short numeric secrets per client.
const (
	ScopeVerifyEmail = "verify_email"
	ScopeVerifyOTP   = "verify_otp"
)

// Cooldown scopes throttle outbound mail per address.
const (
	CooldownForgotPassword     = "forgot_password"
	CooldownResendVerification = "resend_verification"
)

func (r *RateLimiter) signInFailureKey(ip string) string {
	return "signin_failures:" + ip
}

func (r *RateLimiter) signInBanKey(ip string) string {
	return "signin_ban:" + ip
}

func (r *RateLimiter) attemptKey(scope, ip string) string {
	return "attempts:" + scope + ":" + ip
}

func (r *RateLimiter) cooldownKey(scope, email string) string {
	return "cooldown:" + scope + ":" + strings.ToLower(strings.TrimSpace(email))
}

func (r *RateLimiter) IsIPBanned(ctx context.Context, ip string) bool {
	exists, _ := r.Redis.Exists(ctx, r.signInBanKey(ip)).Result()
	return exists == 1
}

// RegisterSignInFailure counts a failed sign-in and bans the address once the
// window fills up. It reports whether the address is now banned.
func (r *RateLimiter) RegisterSignInFailure(ctx context.Context, ip string) (bool, error) {
	key := r.signInFailureKey(ip)

	failures, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if failures == 1 {
		r.Redis.Expire(ctx, key, signInFailureTTL)
	}
	if failures >= signInMaxFailures {
		pipe := r.Redis.TxPipeline()
		pipe.Set(ctx, r.signInBanKey(ip), "1", signInBanTTL)
		pipe.Del(ctx, key)
		if _, err := pipe.Exec(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (r *RateLimiter) ResetSignIn(ctx context.Context, ip string) {
	r.Redis.Del(ctx, r.signInFailureKey(ip))
}

// RegisterAttempt counts one attempt in scope and reports whether the caller
// is over the limit, along with how long until the window resets.
func (r *RateLimiter) RegisterAttempt(ctx context.Context, scope, ip string) (bool, time.Duration, error) {
	key := r.attemptKey(scope, ip)

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, attemptTTL)
	}
	ttl, _ := r.Redis.TTL(ctx, key).Result()
	return attempts > attemptMax, ttl, nil
}

func (r *RateLimiter) ResetAttempts(ctx context.Context, scope, ip string) {
	r.Redis.Del(ctx, r.attemptKey(scope, ip))
}

// AcquireCooldown claims the per-address cooldown. When it is already held the
// remaining wait is returned and the caller should back off.
func (r *RateLimiter) AcquireCooldown(ctx context.Context, scope, email string) (time.Duration, error) {
	key := r.cooldownKey(scope, email)
	ok, err := r.Redis.SetNX(ctx, key, "1", EmailCooldown).Result()
	if err != nil {
		return 0, err
	}
	if ok {
		return 0, nil
	}
	ttl, err := r.Redis.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return ttl, nil
}
