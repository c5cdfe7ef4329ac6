package authtest

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"estatehub/internal/auth"
)

const (
	AccessSecret  = "test-access-secret"
	RefreshSecret = "test-refresh-secret"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Fixture wires an auth.Service to in-memory collaborators and a shared clock.
type Fixture struct {
	Repo    *MemoryRepository
	Mailer  *Mailer
	Clock   *Clock
	Service *auth.Service
}

func New(t testing.TB, opts auth.Options) *Fixture {
	t.Helper()

	clock := NewClock(time.Now().UTC().Truncate(time.Second))
	repo := NewMemoryRepository()
	mailer := &Mailer{}

	store := auth.NewCredentialStore(repo, &auth.BcryptHasher{Cost: bcrypt.MinCost})
	store.Now = clock.Now

	tokens, err := auth.NewTokenCodec(AccessSecret, 15*time.Minute, RefreshSecret, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("token codec: %v", err)
	}
	tokens.Now = clock.Now

	if opts.CompanyName == "" {
		opts.CompanyName = "EstateHub"
	}
	svc := auth.NewService(store, tokens, mailer, zaptest.NewLogger(t), opts)
	svc.Secrets.Now = clock.Now

	return &Fixture{Repo: repo, Mailer: mailer, Clock: clock, Service: svc}
}

// SignUpVerified registers an account through the service and verifies it
// with the mailed code.
func (f *Fixture) SignUpVerified(t testing.TB, userName, email, password string) *auth.User {
	t.Helper()
	ctx := t.Context()

	if _, err := f.Service.SignUp(ctx, auth.SignUpInput{UserName: userName, Email: email, Password: password}); err != nil {
		t.Fatalf("sign up %s: %v", email, err)
	}
	u, err := f.Service.VerifyEmail(ctx, f.Mailer.LastCode(auth.NormalizeEmail(email)))
	if err != nil {
		t.Fatalf("verify %s: %v", email, err)
	}
	return u
}
