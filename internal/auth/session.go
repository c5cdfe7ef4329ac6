package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Session is a freshly minted access/refresh pair for a user.
type Session struct {
	User           *User
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

// Identity is what the auth gate resolved for a request. RenewedAccess is set
// when the access token had to be minted from the refresh token.
type Identity struct {
	User          *User
	RenewedAccess string
	AccessExpires time.Time
}

type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn checks local credentials and starts a new session. The stored refresh
// token is overwritten, which ends any previous session of the user.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*Session, error) {
	u, err := s.Authenticate(ctx, LocalCredentials(in))
	if err != nil {
		return nil, err
	}
	return s.StartSession(ctx, u)
}

func (s *Service) checkLocalCredentials(ctx context.Context, c LocalCredentials) (*User, error) {
	if err := ValidateEmail(c.Email); err != nil {
		return nil, err
	}
	if c.Password == "" {
		return nil, NewValidationError("Password is required")
	}

	u, err := s.Store.FindByEmail(ctx, c.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		s.Store.CompareDummy(c.Password)
		return nil, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return nil, ErrEmailNotVerified
	}
	if !s.Store.ComparePassword(u, c.Password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// StartSession issues a token pair for an authenticated user and makes the new
// refresh token the only one the server accepts.
func (s *Service) StartSession(ctx context.Context, u *User) (*Session, error) {
	sess, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SetRefreshToken(ctx, u.ID, sess.RefreshToken); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	u.RefreshToken = &sess.RefreshToken
	s.Log.Info("session started", zap.String("user_id", u.ID))
	return sess, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// single-use: the stored value is swapped only if it still equals the
// presented one, so of two concurrent refreshes at most one wins.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoToken
	}
	subject, err := s.Tokens.Verify(refreshToken, RefreshToken)
	if err != nil {
		return nil, err
	}

	u, err := s.Store.FindByID(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if u.RefreshToken == nil || !equalHash(*u.RefreshToken, refreshToken) {
		s.Log.Warn("refresh token reuse detected", zap.String("user_id", u.ID))
		return nil, &TokenMismatchError{UserID: u.ID}
	}
	if !u.IsVerified {
		return nil, ErrEmailNotVerified
	}

	sess, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}
	swapped, err := s.Store.SwapRefreshToken(ctx, u.ID, refreshToken, sess.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		s.Log.Warn("refresh token rotated concurrently", zap.String("user_id", u.ID))
		return nil, &TokenMismatchError{UserID: u.ID}
	}
	u.RefreshToken = &sess.RefreshToken
	return sess, nil
}

// SignOut forgets the server-side refresh token owned by the presented one.
// Unknown or missing tokens are not an error.
func (s *Service) SignOut(ctx context.Context, refreshToken string) (*User, error) {
	if refreshToken == "" {
		return nil, nil
	}
	u, err := s.Store.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}
	if u == nil {
		return nil, nil
	}
	if _, err := s.Store.SwapRefreshToken(ctx, u.ID, refreshToken, ""); err != nil {
		return nil, fmt.Errorf("clear refresh token: %w", err)
	}
	u.RefreshToken = nil
	s.Log.Info("signed out", zap.String("user_id", u.ID))
	return u, nil
}

// ResolveIdentity backs the auth gate. A valid access token wins; otherwise a
// refresh token that verifies and is still the stored one mints a new access
// token. The refresh token itself is not rotated on this path.
func (s *Service) ResolveIdentity(ctx context.Context, accessToken, refreshToken string) (*Identity, error) {
	if accessToken != "" {
		u, err := s.identify(ctx, accessToken)
		if err == nil {
			return &Identity{User: u}, nil
		}
		if !errors.Is(err, ErrTokenInvalid) && !errors.Is(err, ErrTokenExpired) && !errors.Is(err, ErrNotAuthenticated) {
			return nil, err
		}
	}
	if refreshToken == "" {
		return nil, ErrNotAuthenticated
	}

	subject, err := s.Tokens.Verify(refreshToken, RefreshToken)
	if err != nil {
		return nil, ErrNotAuthenticated
	}
	u, err := s.Store.FindByID(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || u.RefreshToken == nil || !equalHash(*u.RefreshToken, refreshToken) {
		return nil, ErrNotAuthenticated
	}

	access, expires, err := s.Tokens.IssueAccess(u.ID)
	if err != nil {
		return nil, err
	}
	return &Identity{User: u, RenewedAccess: access, AccessExpires: expires}, nil
}

func (s *Service) identify(ctx context.Context, accessToken string) (*User, error) {
	subject, err := s.Tokens.Verify(accessToken, AccessToken)
	if err != nil {
		return nil, err
	}
	u, err := s.Store.FindByID(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrNotAuthenticated
	}
	return u, nil
}

func (s *Service) issuePair(u *User) (*Session, error) {
	access, accessExp, err := s.Tokens.IssueAccess(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, refreshExp, err := s.Tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &Session{
		User:           u,
		AccessToken:    access,
		AccessExpires:  accessExp,
		RefreshToken:   refresh,
		RefreshExpires: refreshExp,
	}, nil
}
