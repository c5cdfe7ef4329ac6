package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type BcryptHasher struct {
	Cost int

	dummyOnce sync.Once
	dummy     string
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

// Hash salts every password independently; bcrypt embeds the salt in the result.
func (b *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *BcryptHasher) Compare(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CompareDummy spends the same work as a real comparison against a hash that
// never matches. Used when no account exists so the response time stays flat.
func (b *BcryptHasher) CompareDummy(password string) {
	b.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("estatehub-dummy-password"), b.Cost)
		if err == nil {
			b.dummy = string(h)
		}
	})
	_ = b.Compare(b.dummy, password)
}
