package auth

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderLocal, ProviderGoogle, ProviderGitHub:
		return true
	}
	return false
}

// Secret is a stored one-time value. Hash and Expires live and die together,
// so a nil *Secret is the only representation of "no secret".
type Secret struct {
	Hash    string
	Expires time.Time
}

type User struct {
	ID            string
	UserName      string
	Email         string
	PasswordHash  *string
	Role          Role
	IsVerified    bool
	OAuthProvider Provider
	GoogleID      *string
	GitHubID      *string

	VerificationCode   *Secret
	VerificationOTP    *Secret
	PasswordResetToken *Secret

	RefreshToken *string

	CreatedAt time.Time
	UpdatedAt time.Time

	pendingPassword *string
}

// SetPassword stages a plaintext password. The CredentialStore hashes it on
// the next Create or Save and drops the plaintext. An account with a password
// is a local account; linked provider ids are kept.
func (u *User) SetPassword(plain string) {
	u.pendingPassword = &plain
	u.OAuthProvider = ProviderLocal
}

func (u *User) HasPendingPassword() bool {
	return u.pendingPassword != nil
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// Consistent reports whether the account satisfies the local/OAuth invariant:
// local accounts carry a password, OAuth accounts may not.
func (u *User) Consistent() bool {
	if u.OAuthProvider == ProviderLocal || u.OAuthProvider == "" {
		return u.HasPassword() || u.HasPendingPassword()
	}
	return true
}

func (u *User) ProviderSubject(p Provider) *string {
	switch p {
	case ProviderGoogle:
		return u.GoogleID
	case ProviderGitHub:
		return u.GitHubID
	}
	return nil
}

// LinkProvider records the provider subject. An account that has a password
// stays local; only password-less accounts take the provider as their origin.
func (u *User) LinkProvider(p Provider, subject string) {
	switch p {
	case ProviderGoogle:
		u.GoogleID = &subject
	case ProviderGitHub:
		u.GitHubID = &subject
	default:
		return
	}
	if !u.HasPassword() && !u.HasPendingPassword() {
		u.OAuthProvider = p
	}
}

func (u *User) secret(kind SecretKind) **Secret {
	switch kind {
	case SecretVerificationCode:
		return &u.VerificationCode
	case SecretResetOTP:
		return &u.VerificationOTP
	case SecretResetToken:
		return &u.PasswordResetToken
	}
	return nil
}

// PublicUser is the client-safe projection of a User.
type PublicUser struct {
	ID            string    `json:"id"`
	UserName      string    `json:"userName"`
	Email         string    `json:"email,omitempty"`
	Role          Role      `json:"role"`
	IsVerified    bool      `json:"isVerified"`
	OAuthProvider Provider  `json:"oauthProvider"`
	HasPassword   bool      `json:"hasPassword"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		UserName:      u.UserName,
		Email:         u.Email,
		Role:          u.Role,
		IsVerified:    u.IsVerified,
		OAuthProvider: u.OAuthProvider,
		HasPassword:   u.HasPassword(),
		CreatedAt:     u.CreatedAt,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeUserName(name string) string {
	return strings.TrimSpace(name)
}
