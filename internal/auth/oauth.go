package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// AuthMethod is how a caller proves who they are. The set of variants is
// closed: LocalCredentials and OAuthIdentity.
type AuthMethod interface {
	authMethod()
}

type LocalCredentials struct {
	Email    string
	Password string
}

// OAuthIdentity is a profile already vouched for by a provider.
type OAuthIdentity struct {
	Provider      Provider
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

func (LocalCredentials) authMethod() {}
func (OAuthIdentity) authMethod()    {}

// Authenticate resolves the account behind m. OAuth identities that match no
// account create one.
func (s *Service) Authenticate(ctx context.Context, m AuthMethod) (*User, error) {
	switch m := m.(type) {
	case LocalCredentials:
		return s.checkLocalCredentials(ctx, m)
	case OAuthIdentity:
		return s.resolveOAuth(ctx, m)
	}
	return nil, fmt.Errorf("unsupported auth method %T", m)
}

func (s *Service) resolveOAuth(ctx context.Context, id OAuthIdentity) (*User, error) {
	if id.Provider != ProviderGoogle && id.Provider != ProviderGitHub {
		return nil, ErrProviderUnavailable
	}
	if id.Subject == "" {
		return nil, fmt.Errorf("%s identity without subject", id.Provider)
	}
	id.Email = NormalizeEmail(id.Email)

	u, err := s.Store.FindByProvider(ctx, id.Provider, id.Subject)
	if err != nil {
		return nil, fmt.Errorf("lookup by provider: %w", err)
	}
	if u != nil {
		return u, nil
	}

	if id.Email != "" {
		u, err = s.Store.FindByEmail(ctx, id.Email)
		if err != nil {
			return nil, fmt.Errorf("lookup by email: %w", err)
		}
	}
	if u != nil {
		// linking on an address the provider did not verify would let anyone
		// claim an existing account
		if !id.EmailVerified {
			return nil, &DuplicateFieldError{Field: "email"}
		}
		u.LinkProvider(id.Provider, id.Subject)
		u.IsVerified = true
		if err := s.Store.Save(ctx, u); err != nil {
			return nil, err
		}
		s.Log.Info("provider linked", zap.String("user_id", u.ID), zap.String("provider", string(id.Provider)))
		return u, nil
	}

	userName, err := s.uniqueUserName(ctx, id)
	if err != nil {
		return nil, err
	}
	u = &User{
		UserName:   userName,
		Role:       RoleUser,
		IsVerified: true,
	}
	if id.EmailVerified {
		u.Email = id.Email
	}
	u.LinkProvider(id.Provider, id.Subject)
	if err := s.Store.Create(ctx, u); err != nil {
		return nil, err
	}
	s.Log.Info("user created from provider", zap.String("user_id", u.ID), zap.String("provider", string(id.Provider)))
	return u, nil
}

var userNameStrip = regexp.MustCompile(`[^A-Za-z0-9_ ]+`)

const userNameAttempts = 5

// uniqueUserName derives a valid, unused handle from the provider profile.
func (s *Service) uniqueUserName(ctx context.Context, id OAuthIdentity) (string, error) {
	base := strings.Join(strings.Fields(userNameStrip.ReplaceAllString(id.Name, "")), " ")
	if len(base) > userNameMaxLen-5 {
		base = strings.TrimSpace(base[:userNameMaxLen-5])
	}
	if ValidateUserName(base) != nil {
		switch id.Provider {
		case ProviderGoogle:
			base = "GoogleUser"
		default:
			base = "GitHubUser"
		}
	}

	candidate := base
	for range userNameAttempts {
		existing, err := s.Store.FindByUsernameOrEmail(ctx, candidate, "")
		if err != nil {
			return "", fmt.Errorf("lookup user name: %w", err)
		}
		if existing == nil {
			return candidate, nil
		}
		suffix, err := randomNumericCode(4)
		if err != nil {
			return "", err
		}
		candidate = base + "_" + suffix
	}
	return "", errors.New("could not derive a free user name")
}
