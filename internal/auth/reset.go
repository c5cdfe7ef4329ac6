package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ForgotPassword mails a reset code if an account exists for email. The
// caller must answer the same way whether or not it did; only a delivery
// failure for an existing account surfaces as an error.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if NormalizeEmail(email) == "" {
		return NewValidationError("Email is required")
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}

	u, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil
	}

	otp, err := s.Secrets.Issue(u, SecretResetOTP)
	if err != nil {
		return err
	}
	if err := s.Store.Save(ctx, u); err != nil {
		return err
	}
	return s.deliverSecret(ctx, u, SecretResetOTP, otp)
}

// VerifyOTP trades a valid reset code for a short-lived reset token, which is
// handed straight back to the caller.
func (s *Service) VerifyOTP(ctx context.Context, otp string) (string, *User, error) {
	if otp == "" {
		return "", nil, NewValidationError("OTP is required")
	}

	u, err := s.Store.FindBySecret(ctx, SecretResetOTP, otp)
	if err != nil {
		return "", nil, fmt.Errorf("lookup otp: %w", err)
	}
	if u == nil {
		return "", nil, ErrSecretInvalidOrExpired
	}
	if err := s.Secrets.Consume(u, SecretResetOTP, otp); err != nil {
		return "", nil, err
	}

	token, err := s.Secrets.Issue(u, SecretResetToken)
	if err != nil {
		return "", nil, err
	}
	if err := s.Store.Save(ctx, u); err != nil {
		return "", nil, err
	}
	return token, u, nil
}

type ResetPasswordInput struct {
	Password string `json:"password"`
	Token    string `json:"token"`
}

// ResetPassword sets a new password for the owner of a valid reset token.
// Existing sessions survive unless RevokeSessionsOnReset is set.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) (*User, error) {
	if in.Password == "" || in.Token == "" {
		return nil, NewValidationError("Password and token required")
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	u, err := s.Store.FindBySecret(ctx, SecretResetToken, in.Token)
	if err != nil {
		return nil, fmt.Errorf("lookup reset token: %w", err)
	}
	if u == nil {
		return nil, ErrSecretInvalidOrExpired
	}
	if err := s.Secrets.Consume(u, SecretResetToken, in.Token); err != nil {
		return nil, err
	}

	u.SetPassword(in.Password)
	if err := s.Store.Save(ctx, u); err != nil {
		return nil, err
	}
	if s.RevokeSessionsOnReset {
		if err := s.Store.SetRefreshToken(ctx, u.ID, ""); err != nil {
			return nil, fmt.Errorf("revoke sessions: %w", err)
		}
		u.RefreshToken = nil
	}
	s.Log.Info("password reset", zap.String("user_id", u.ID), zap.Bool("sessions_revoked", s.RevokeSessionsOnReset))
	return u, nil
}
