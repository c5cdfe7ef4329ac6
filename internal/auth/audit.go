package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	AuditSignUp          = "sign_up"
	AuditEmailVerified   = "email_verified"
	AuditSignIn          = "sign_in"
	AuditSignInFailed    = "sign_in_failed"
	AuditSignOut         = "sign_out"
	AuditRefresh         = "refresh"
	AuditRefreshMismatch = "refresh_mismatch"
	AuditPasswordReset   = "password_reset"
	AuditPasswordChanged = "password_changed"
	AuditProfileUpdated  = "profile_updated"
	AuditOAuthSignIn     = "oauth_sign_in"
	AuditAccountDeleted  = "account_deleted"
	AuditRoleChanged     = "role_changed"
)

type AuditEvent struct {
	EventType string         `json:"eventType"`
	UserID    string         `json:"userId,omitempty"`
	IP        string         `json:"ip"`
	UserAgent string         `json:"userAgent"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// AuditLogger appends events to a capped redis list per user, or to the
// global "audit" list for anonymous events.
type AuditLogger struct {
	Redis  *redis.Client
	MaxLen int64
}

func (a *AuditLogger) Log(ctx context.Context, e AuditEvent) error {
	e.Timestamp = time.Now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	pipe := a.Redis.Pipeline()
	key := auditKey(e.UserID)
	pipe.RPush(ctx, key, data)
	if a.MaxLen > 0 {
		pipe.LTrim(ctx, key, -a.MaxLen, -1)
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Recent returns up to n of the newest events for a user, newest last.
func (a *AuditLogger) Recent(ctx context.Context, userID string, n int64) ([]AuditEvent, error) {
	raw, err := a.Redis.LRange(ctx, auditKey(userID), -n, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]AuditEvent, 0, len(raw))
	for _, item := range raw {
		var e AuditEvent
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func auditKey(userID string) string {
	if userID == "" {
		return "audit"
	}
	return "audit:" + userID
}
