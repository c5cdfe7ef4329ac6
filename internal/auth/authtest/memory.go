// Package authtest provides in-memory collaborators for auth and server tests.
package authtest

import (
	"context"
	"slices"
	"sync"
	"time"

	"estatehub/internal/auth"
)

// MemoryRepository is an auth.Repository backed by a map. All operations are
// serialized, which makes SwapRefreshToken a true compare-and-swap.
type MemoryRepository struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: map[string]*auth.User{}}
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return email != "" && u.Email == email }), nil
}

func (m *MemoryRepository) FindByUsernameOrEmail(_ context.Context, userName, email string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool {
		return u.UserName == userName || (email != "" && u.Email == email)
	}), nil
}

func (m *MemoryRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return u.ID == id }), nil
}

func (m *MemoryRepository) FindBySecret(_ context.Context, kind auth.SecretKind, hash string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool {
		s := secretOf(u, kind)
		return s != nil && s.Hash == hash
	}), nil
}

func (m *MemoryRepository) FindByRefreshToken(_ context.Context, token string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return u.RefreshToken != nil && *u.RefreshToken == token }), nil
}

func (m *MemoryRepository) FindByProvider(_ context.Context, provider auth.Provider, subject string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool {
		s := u.ProviderSubject(provider)
		return s != nil && *s == subject
	}), nil
}

func (m *MemoryRepository) Insert(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique(u); err != nil {
		return err
	}
	m.users[u.ID] = clone(u)
	return nil
}

func (m *MemoryRepository) Update(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[u.ID]
	if !ok {
		return auth.ErrUserNotFound
	}
	if err := m.checkUnique(u); err != nil {
		return err
	}
	next := clone(u)
	next.RefreshToken = stored.RefreshToken
	next.CreatedAt = stored.CreatedAt
	m.users[u.ID] = next
	return nil
}

func (m *MemoryRepository) SetRefreshToken(_ context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return auth.ErrUserNotFound
	}
	if token == "" {
		u.RefreshToken = nil
	} else {
		u.RefreshToken = &token
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryRepository) SwapRefreshToken(_ context.Context, userID, current, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	stored := ""
	if u.RefreshToken != nil {
		stored = *u.RefreshToken
	}
	if stored != current {
		return false, nil
	}
	if next == "" {
		u.RefreshToken = nil
	} else {
		u.RefreshToken = &next
	}
	u.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryRepository) List(_ context.Context, offset, limit int) ([]auth.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]auth.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *clone(u))
	}
	slices.SortFunc(all, func(a, b auth.User) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (m *MemoryRepository) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	return true, nil
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }

// Get returns a copy of the stored record, bypassing the CredentialStore.
func (m *MemoryRepository) Get(id string) *auth.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return clone(u)
	}
	return nil
}

// Put stores u as-is. Tests use it to seed records in states the service
// would not produce on its own.
func (m *MemoryRepository) Put(u *auth.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = clone(u)
}

func (m *MemoryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *MemoryRepository) find(match func(*auth.User) bool) *auth.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return clone(u)
		}
	}
	return nil
}

func (m *MemoryRepository) checkUnique(u *auth.User) error {
	for id, other := range m.users {
		if id == u.ID {
			continue
		}
		switch {
		case other.UserName == u.UserName:
			return &auth.DuplicateFieldError{Field: "userName"}
		case u.Email != "" && other.Email == u.Email:
			return &auth.DuplicateFieldError{Field: "email"}
		case samePtr(other.GoogleID, u.GoogleID):
			return &auth.DuplicateFieldError{Field: "googleId"}
		case samePtr(other.GitHubID, u.GitHubID):
			return &auth.DuplicateFieldError{Field: "githubId"}
		}
	}
	return nil
}

func samePtr(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func secretOf(u *auth.User, kind auth.SecretKind) *auth.Secret {
	switch kind {
	case auth.SecretVerificationCode:
		return u.VerificationCode
	case auth.SecretResetOTP:
		return u.VerificationOTP
	case auth.SecretResetToken:
		return u.PasswordResetToken
	}
	return nil
}

func clone(u *auth.User) *auth.User {
	c := *u
	c.PasswordHash = clonePtr(u.PasswordHash)
	c.GoogleID = clonePtr(u.GoogleID)
	c.GitHubID = clonePtr(u.GitHubID)
	c.RefreshToken = clonePtr(u.RefreshToken)
	c.VerificationCode = clonePtr(u.VerificationCode)
	c.VerificationOTP = clonePtr(u.VerificationOTP)
	c.PasswordResetToken = clonePtr(u.PasswordResetToken)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
