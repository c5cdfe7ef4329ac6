package auth

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrDuplicateField         = errors.New("duplicate field")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrEmailNotVerified       = errors.New("email not verified")
	ErrSecretInvalidOrExpired = errors.New("invalid or expired code")
	ErrNoToken                = errors.New("no refresh token provided")
	ErrTokenInvalid           = errors.New("invalid token")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenMismatch          = errors.New("refresh token mismatch")
	ErrNotAuthenticated       = errors.New("not authenticated")
	ErrForbidden              = errors.New("forbidden")
	ErrUserNotFound           = errors.New("user not found")
	ErrDeliveryFailed         = errors.New("could not send email")
	ErrProviderUnavailable    = errors.New("oauth provider unavailable")
)

// DuplicateFieldError reports a uniqueness violation on a named field.
type DuplicateFieldError struct {
	Field string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("duplicate value for field %q", e.Field)
}

func (e *DuplicateFieldError) Is(target error) bool {
	return target == ErrDuplicateField
}

// TokenMismatchError is a refresh token that verified but is no longer the
// stored one. UserID is the account it was issued to.
type TokenMismatchError struct {
	UserID string
}

func (e *TokenMismatchError) Error() string {
	return ErrTokenMismatch.Error()
}

func (e *TokenMismatchError) Is(target error) bool {
	return target == ErrTokenMismatch
}

// ValidationError carries a client-safe description of malformed input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
