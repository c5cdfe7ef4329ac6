package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence port behind the CredentialStore. Lookups
// return (nil, nil) when nothing matches. Insert and Update must report
// uniqueness violations as *DuplicateFieldError.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsernameOrEmail(ctx context.Context, userName, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindBySecret(ctx context.Context, kind SecretKind, hash string) (*User, error)
	FindByRefreshToken(ctx context.Context, token string) (*User, error)
	FindByProvider(ctx context.Context, provider Provider, subject string) (*User, error)
	Insert(ctx context.Context, u *User) error
	// Update persists every field except RefreshToken and CreatedAt.
	Update(ctx context.Context, u *User) error
	// SetRefreshToken overwrites the stored token; empty clears it.
	SetRefreshToken(ctx context.Context, userID, token string) error
	// SwapRefreshToken stores next only if the stored token still equals
	// current. An empty current matches an absent token.
	SwapRefreshToken(ctx context.Context, userID, current, next string) (bool, error)
	List(ctx context.Context, offset, limit int) ([]User, int, error)
	Delete(ctx context.Context, id string) (bool, error)
	Ping(ctx context.Context) error
}

// CredentialStore owns user records: it normalizes identity fields and hashes
// staged passwords before anything reaches the Repository.
type CredentialStore struct {
	repo   Repository
	hasher PasswordHasher
	Now    func() time.Time
}

func NewCredentialStore(repo Repository, hasher PasswordHasher) *CredentialStore {
	return &CredentialStore{repo: repo, hasher: hasher, Now: time.Now}
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}

func (s *CredentialStore) FindByUsernameOrEmail(ctx context.Context, userName, email string) (*User, error) {
	return s.repo.FindByUsernameOrEmail(ctx, NormalizeUserName(userName), NormalizeEmail(email))
}

func (s *CredentialStore) FindByID(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, nil
	}
	return s.repo.FindByID(ctx, id)
}

// FindBySecret looks a user up by the plaintext the user was handed.
func (s *CredentialStore) FindBySecret(ctx context.Context, kind SecretKind, plain string) (*User, error) {
	if plain == "" {
		return nil, nil
	}
	return s.repo.FindBySecret(ctx, kind, HashString(plain))
}

func (s *CredentialStore) FindByRefreshToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	return s.repo.FindByRefreshToken(ctx, token)
}

func (s *CredentialStore) FindByProvider(ctx context.Context, provider Provider, subject string) (*User, error) {
	if subject == "" {
		return nil, nil
	}
	return s.repo.FindByProvider(ctx, provider, subject)
}

func (s *CredentialStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.OAuthProvider == "" {
		u.OAuthProvider = ProviderLocal
	}
	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := s.prepare(u); err != nil {
		return err
	}
	return s.repo.Insert(ctx, u)
}

func (s *CredentialStore) Save(ctx context.Context, u *User) error {
	u.UpdatedAt = s.now()
	if err := s.prepare(u); err != nil {
		return err
	}
	return s.repo.Update(ctx, u)
}

func (s *CredentialStore) ComparePassword(u *User, candidate string) bool {
	if u == nil || !u.HasPassword() {
		return false
	}
	return s.hasher.Compare(*u.PasswordHash, candidate)
}

type dummyComparer interface {
	CompareDummy(password string)
}

// CompareDummy burns one comparison's worth of work for a lookup that found
// no account.
func (s *CredentialStore) CompareDummy(password string) {
	if d, ok := s.hasher.(dummyComparer); ok {
		d.CompareDummy(password)
	}
}

// SetRefreshToken replaces the stored refresh token unconditionally. Save
// never writes it, so a stale copy of the record cannot undo a rotation.
func (s *CredentialStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	return s.repo.SetRefreshToken(ctx, userID, token)
}

func (s *CredentialStore) SwapRefreshToken(ctx context.Context, userID, current, next string) (bool, error) {
	return s.repo.SwapRefreshToken(ctx, userID, current, next)
}

func (s *CredentialStore) List(ctx context.Context, offset, limit int) ([]User, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *CredentialStore) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}

func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *CredentialStore) prepare(u *User) error {
	u.Email = NormalizeEmail(u.Email)
	u.UserName = NormalizeUserName(u.UserName)

	if u.pendingPassword != nil {
		hashed, err := s.hasher.Hash(*u.pendingPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = &hashed
		u.pendingPassword = nil
	}

	if !u.Consistent() {
		return NewValidationError("local accounts require a password")
	}
	if u.OAuthProvider == ProviderLocal && u.Email == "" {
		return NewValidationError("email is required")
	}
	return nil
}

func (s *CredentialStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now().UTC()
}
