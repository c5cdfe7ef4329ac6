package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	oauthStatePrefix = "oauth_state:"
	OAuthStateTTL    = 10 * time.Minute
)

var ErrOAuthStateInvalid = errors.New("oauth state invalid or expired")

type oauthState struct {
	Provider Provider `json:"provider"`
}

// OAuthStateStore keeps the anti-CSRF state of pending provider redirects.
type OAuthStateStore struct {
	Redis *redis.Client
}

func (s *OAuthStateStore) Create(ctx context.Context, provider Provider) (string, error) {
	state := uuid.NewString()
	raw, err := json.Marshal(oauthState{Provider: provider})
	if err != nil {
		return "", err
	}
	if err := s.Redis.Set(ctx, oauthStatePrefix+state, raw, OAuthStateTTL).Err(); err != nil {
		return "", err
	}
	return state, nil
}

// Consume deletes the state and checks it was issued for provider.
func (s *OAuthStateStore) Consume(ctx context.Context, state string, provider Provider) error {
	if state == "" {
		return ErrOAuthStateInvalid
	}
	raw, err := s.Redis.GetDel(ctx, oauthStatePrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrOAuthStateInvalid
	}
	if err != nil {
		return err
	}

	var st oauthState
	if err := json.Unmarshal(raw, &st); err != nil || st.Provider != provider {
		return ErrOAuthStateInvalid
	}
	return nil
}
