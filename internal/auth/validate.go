package auth

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

const (
	userNameMinLen    = 3
	userNameMaxLen    = 27
	passwordMinLen    = 8
	passwordSpecials  = "@$!%*?&"
	passwordAllowedRe = `^[A-Za-z\d@$!%*?&]+$`
)

var (
	userNamePattern = regexp.MustCompile(`^[A-Za-z0-9_ ]+$`)
	passwordCharset = regexp.MustCompile(passwordAllowedRe)
)

func ValidateUserName(name string) error {
	name = NormalizeUserName(name)
	switch {
	case len(name) < userNameMinLen:
		return NewValidationError("User name must be at least %d characters long", userNameMinLen)
	case len(name) > userNameMaxLen:
		return NewValidationError("User name cannot exceed %d characters", userNameMaxLen)
	case !userNamePattern.MatchString(name) || !strings.ContainsFunc(name, isASCIILetter):
		return NewValidationError("User name must contain at least one letter and may include numbers or underscores")
	}
	return nil
}

func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return NewValidationError("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return NewValidationError("Invalid email format")
	}
	return nil
}

// ValidatePassword enforces the strength rules applied whenever a password
// is chosen: sign-up, reset and change.
func ValidatePassword(password string) error {
	if len(password) < passwordMinLen {
		return NewValidationError("Password must be at least %d characters long", passwordMinLen)
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial || !passwordCharset.MatchString(password) {
		return NewValidationError("Password must include uppercase, lowercase, number, and special character (%s)", passwordSpecials)
	}
	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
