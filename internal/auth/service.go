package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type Options struct {
	CompanyName string
	// RevokeSessionsOnReset clears the stored refresh token when a password
	// reset completes, signing out every session.
	RevokeSessionsOnReset bool
}

// Service orchestrates the account and session lifecycle over the
// CredentialStore, TokenCodec, SecretIssuer and Mailer.
type Service struct {
	Store   *CredentialStore
	Tokens  *TokenCodec
	Secrets *SecretIssuer
	Mailer  Mailer
	Log     *zap.Logger

	CompanyName           string
	RevokeSessionsOnReset bool
}

func NewService(store *CredentialStore, tokens *TokenCodec, mailer Mailer, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		Store:                 store,
		Tokens:                tokens,
		Secrets:               NewSecretIssuer(),
		Mailer:                mailer,
		Log:                   log.Named("auth"),
		CompanyName:           opts.CompanyName,
		RevokeSessionsOnReset: opts.RevokeSessionsOnReset,
	}
}

type SignUpInput struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in SignUpInput) Validate() error {
	if err := ValidateUserName(in.UserName); err != nil {
		return err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	return ValidatePassword(in.Password)
}

// SignUp creates an unverified local account and mails its verification code.
// If the mail cannot be delivered the account stays, without a code, and the
// caller gets ErrDeliveryFailed.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.Store.FindByUsernameOrEmail(ctx, in.UserName, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		if existing.Email == NormalizeEmail(in.Email) {
			return nil, &DuplicateFieldError{Field: "email"}
		}
		return nil, &DuplicateFieldError{Field: "userName"}
	}

	u := &User{
		UserName:      in.UserName,
		Email:         in.Email,
		Role:          RoleUser,
		OAuthProvider: ProviderLocal,
	}
	u.SetPassword(in.Password)

	code, err := s.Secrets.Issue(u, SecretVerificationCode)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.Log.Info("user signed up", zap.String("user_id", u.ID))

	if err := s.deliverSecret(ctx, u, SecretVerificationCode, code); err != nil {
		return u, err
	}
	return u, nil
}

// VerifyEmail marks the owner of code as verified and burns the code.
func (s *Service) VerifyEmail(ctx context.Context, code string) (*User, error) {
	if code == "" {
		return nil, NewValidationError("Verification code is required")
	}

	u, err := s.Store.FindBySecret(ctx, SecretVerificationCode, code)
	if err != nil {
		return nil, fmt.Errorf("lookup verification code: %w", err)
	}
	if u == nil {
		return nil, ErrSecretInvalidOrExpired
	}
	if err := s.Secrets.Consume(u, SecretVerificationCode, code); err != nil {
		return nil, err
	}

	u.IsVerified = true
	if err := s.Store.Save(ctx, u); err != nil {
		return nil, err
	}
	s.Log.Info("email verified", zap.String("user_id", u.ID))
	return u, nil
}

// ResendVerification reissues the verification code for an unverified local
// account. Unknown, verified and OAuth-only addresses are silently ignored.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}

	u, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || u.IsVerified || !u.HasPassword() {
		return nil
	}

	code, err := s.Secrets.Issue(u, SecretVerificationCode)
	if err != nil {
		return err
	}
	if err := s.Store.Save(ctx, u); err != nil {
		return err
	}
	return s.deliverSecret(ctx, u, SecretVerificationCode, code)
}

// ChangePassword replaces the password of a signed-in user. Accounts created
// through a provider may set a first password without supplying a current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.requireUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.HasPassword() && !s.Store.ComparePassword(u, current) {
		return NewValidationError("Current password is incorrect")
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}

	u.SetPassword(next)
	return s.Store.Save(ctx, u)
}

type UpdateProfileInput struct {
	UserName string `json:"userName"`
}

// UpdateProfile renames a signed-in user. A name held by another account is
// a DuplicateFieldError on userName.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*User, error) {
	if err := ValidateUserName(in.UserName); err != nil {
		return nil, err
	}
	u, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	name := NormalizeUserName(in.UserName)
	if name == u.UserName {
		return u, nil
	}
	taken, err := s.Store.FindByUsernameOrEmail(ctx, name, "")
	if err != nil {
		return nil, fmt.Errorf("lookup user name: %w", err)
	}
	if taken != nil && taken.ID != u.ID {
		return nil, &DuplicateFieldError{Field: "userName"}
	}

	u.UserName = name
	if err := s.Store.Save(ctx, u); err != nil {
		return nil, err
	}
	s.Log.Info("profile updated", zap.String("user_id", u.ID))
	return u, nil
}

func (s *Service) User(ctx context.Context, id string) (*User, error) {
	return s.requireUser(ctx, id)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	deleted, err := s.Store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrUserNotFound
	}
	s.Log.Info("user deleted", zap.String("user_id", id))
	return nil
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type UserPage struct {
	Users []PublicUser `json:"users"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Pages int          `json:"pages"`
}

// ListUsers pages through all accounts, newest first. Page is 1-based.
func (s *Service) ListUsers(ctx context.Context, page, limit int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)

	users, total, err := s.Store.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	out := &UserPage{
		Users: make([]PublicUser, 0, len(users)),
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	}
	for i := range users {
		out.Users = append(out.Users, users[i].Public())
	}
	return out, nil
}

func (s *Service) SetRole(ctx context.Context, id string, role Role) (*User, error) {
	if !role.Valid() {
		return nil, NewValidationError("Role must be one of %q or %q", RoleUser, RoleAdmin)
	}
	u, err := s.requireUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.Store.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) requireUser(ctx context.Context, id string) (*User, error) {
	u, err := s.Store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// IsOperational reports whether err belongs to the auth error taxonomy, as
// opposed to an infrastructure failure.
func IsOperational(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrDuplicateField, ErrInvalidCredentials, ErrEmailNotVerified,
		ErrSecretInvalidOrExpired, ErrNoToken, ErrTokenInvalid, ErrTokenExpired,
		ErrTokenMismatch, ErrNotAuthenticated, ErrForbidden, ErrUserNotFound,
		ErrDeliveryFailed, ErrProviderUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
