package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims carries the subject (user id) plus the token kind, so a token can
// never be accepted as the other kind even if keys were misconfigured.
type Claims struct {
	jwt.RegisteredClaims
	Kind TokenKind `json:"knd"`
}

type tokenKey struct {
	secret []byte
	ttl    time.Duration
}

// TokenCodec signs and verifies access and refresh tokens. It holds no
// revocation state; binding a refresh token to the stored record is up to
// the Service.
type TokenCodec struct {
	keys map[TokenKind]tokenKey
	Now  func() time.Time
}

func NewTokenCodec(accessSecret string, accessTTL time.Duration, refreshSecret string, refreshTTL time.Duration) (*TokenCodec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("token secrets are required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &TokenCodec{
		keys: map[TokenKind]tokenKey{
			AccessToken:  {secret: []byte(accessSecret), ttl: accessTTL},
			RefreshToken: {secret: []byte(refreshSecret), ttl: refreshTTL},
		},
		Now: time.Now,
	}, nil
}

func (c *TokenCodec) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *TokenCodec) TTL(kind TokenKind) time.Duration {
	return c.keys[kind].ttl
}

func (c *TokenCodec) IssueAccess(userID string) (string, time.Time, error) {
	return c.issue(AccessToken, userID)
}

func (c *TokenCodec) IssueRefresh(userID string) (string, time.Time, error) {
	return c.issue(RefreshToken, userID)
}

func (c *TokenCodec) issue(kind TokenKind, userID string) (string, time.Time, error) {
	key, ok := c.keys[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}
	now := c.now()
	expires := now.Add(key.ttl)

	// jti keeps two tokens minted in the same second distinct.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Kind: kind,
	})

	signed, err := token.SignedString(key.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify returns the subject of a valid token of the given kind.
func (c *TokenCodec) Verify(tokenString string, kind TokenKind) (string, error) {
	key, ok := c.keys[kind]
	if !ok || tokenString == "" {
		return "", ErrTokenInvalid
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	if !token.Valid || claims.Kind != kind || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}
