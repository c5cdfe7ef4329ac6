package auth_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"estatehub/internal/auth"
	"estatehub/internal/auth/authtest"
	"estatehub/internal/database"
)

func TestMemoryRepositoryContract(t *testing.T) {
	exerciseRepository(t, authtest.NewMemoryRepository())
}

func TestPostgresRepositoryContract(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := t.Context()

	pool, err := database.ConnectPostgres(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrations, err := database.LoadMigrations(os.DirFS(filepath.Join("..", "..", "migrations")))
	require.NoError(t, err)
	_, err = database.Migrate(ctx, pool, migrations, zaptest.NewLogger(t))
	require.NoError(t, err)

	exerciseRepository(t, auth.NewPostgresRepository(pool))
}

func TestMongoRepositoryContract(t *testing.T) {
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		t.Skip("MONGODB_URL not set")
	}
	ctx := t.Context()

	name := "estatehub_test_" + uuid.NewString()[:8]
	db, err := database.ConnectMongo(ctx, url, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanupCtx := context.Background()
		_ = db.Drop(cleanupCtx)
		_ = db.Client().Disconnect(cleanupCtx)
	})

	repo := auth.NewMongoRepository(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	exerciseRepository(t, repo)
}

// exerciseRepository runs the behaviour every Repository backend must share.
// Records use fresh ids so the run can share a database with other data.
func exerciseRepository(t *testing.T, repo auth.Repository) {
	ctx := t.Context()
	run := uuid.NewString()[:8]
	now := time.Now().UTC().Truncate(time.Millisecond)
	ptr := func(s string) *string { return &s }

	alice := &auth.User{
		ID:               uuid.NewString(),
		UserName:         "alice-" + run,
		Email:            "alice-" + run + "@x.com",
		PasswordHash:     ptr("hash"),
		Role:             auth.RoleUser,
		OAuthProvider:    auth.ProviderLocal,
		VerificationCode: &auth.Secret{Hash: "vc-" + run, Expires: now.Add(time.Hour)},
		CreatedAt:        now.Add(-time.Minute),
		UpdatedAt:        now.Add(-time.Minute),
	}
	bob := &auth.User{
		ID:            uuid.NewString(),
		UserName:      "bob-" + run,
		Role:          auth.RoleUser,
		IsVerified:    true,
		OAuthProvider: auth.ProviderGoogle,
		GoogleID:      ptr("g-" + run),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, repo.Insert(ctx, alice))
	require.NoError(t, repo.Insert(ctx, bob))
	t.Cleanup(func() {
		for _, id := range []string{alice.ID, bob.ID} {
			_, _ = repo.Delete(context.Background(), id)
		}
	})

	t.Run("insert reports the duplicated field", func(t *testing.T) {
		tests := []struct {
			name  string
			user  *auth.User
			field string
		}{
			{"email", &auth.User{UserName: "carol-" + run, Email: alice.Email}, "email"},
			{"userName", &auth.User{UserName: alice.UserName, Email: "carol-" + run + "@x.com"}, "userName"},
			{"googleId", &auth.User{UserName: "dave-" + run, GoogleID: bob.GoogleID}, "googleId"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.user.ID = uuid.NewString()
				tt.user.PasswordHash = ptr("hash")
				tt.user.Role = auth.RoleUser
				tt.user.OAuthProvider = auth.ProviderLocal
				tt.user.CreatedAt, tt.user.UpdatedAt = now, now

				err := repo.Insert(ctx, tt.user)
				var dup *auth.DuplicateFieldError
				require.ErrorAs(t, err, &dup)
				assert.Equal(t, tt.field, dup.Field)
			})
		}
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := repo.FindByEmail(ctx, alice.Email)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, alice.ID, got.ID)
		require.NotNil(t, got.PasswordHash)
		assert.Equal(t, "hash", *got.PasswordHash)
		require.NotNil(t, got.VerificationCode)
		assert.WithinDuration(t, alice.VerificationCode.Expires, got.VerificationCode.Expires, time.Millisecond)

		got, err = repo.FindByUsernameOrEmail(ctx, bob.UserName, "")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, bob.ID, got.ID)
		assert.Empty(t, got.Email)
		assert.Nil(t, got.PasswordHash)

		got, err = repo.FindByProvider(ctx, auth.ProviderGoogle, *bob.GoogleID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, bob.ID, got.ID)

		got, err = repo.FindBySecret(ctx, auth.SecretVerificationCode, "vc-"+run)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, alice.ID, got.ID)

		got, err = repo.FindByID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = repo.FindByEmail(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("refresh token swap", func(t *testing.T) {
		ok, err := repo.SwapRefreshToken(ctx, alice.ID, "", "rt-1-"+run)
		require.NoError(t, err)
		assert.True(t, ok, "empty current matches an absent token")

		ok, err = repo.SwapRefreshToken(ctx, alice.ID, "", "rt-2-"+run)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.SwapRefreshToken(ctx, alice.ID, "rt-stale", "rt-2-"+run)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.FindByRefreshToken(ctx, "rt-1-"+run)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, alice.ID, got.ID)
	})

	t.Run("update keeps the stored refresh token", func(t *testing.T) {
		stale := *alice
		stale.RefreshToken = nil
		stale.VerificationCode = nil
		stale.IsVerified = true
		stale.UpdatedAt = now
		require.NoError(t, repo.Update(ctx, &stale))

		got, err := repo.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.IsVerified)
		assert.Nil(t, got.VerificationCode)
		require.NotNil(t, got.RefreshToken)
		assert.Equal(t, "rt-1-"+run, *got.RefreshToken)
		assert.WithinDuration(t, alice.CreatedAt, got.CreatedAt, time.Millisecond)

		got, err = repo.FindBySecret(ctx, auth.SecretVerificationCode, "vc-"+run)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update reports the duplicated field", func(t *testing.T) {
		renamed := *alice
		renamed.UserName = bob.UserName
		var dup *auth.DuplicateFieldError
		require.ErrorAs(t, repo.Update(ctx, &renamed), &dup)
		assert.Equal(t, "userName", dup.Field)
	})

	t.Run("set refresh token", func(t *testing.T) {
		require.NoError(t, repo.SetRefreshToken(ctx, alice.ID, "rt-3-"+run))
		got, err := repo.FindByRefreshToken(ctx, "rt-3-"+run)
		require.NoError(t, err)
		require.NotNil(t, got)

		require.NoError(t, repo.SetRefreshToken(ctx, alice.ID, ""))
		got, err = repo.FindByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.RefreshToken)

		ok, err := repo.SwapRefreshToken(ctx, alice.ID, "", "rt-4-"+run)
		require.NoError(t, err)
		assert.True(t, ok, "a cleared token behaves like an absent one")
	})

	t.Run("unknown id", func(t *testing.T) {
		ghost := *alice
		ghost.ID = uuid.NewString()
		ghost.UserName = "ghost-" + run
		ghost.Email = ""
		assert.ErrorIs(t, repo.Update(ctx, &ghost), auth.ErrUserNotFound)
		assert.ErrorIs(t, repo.SetRefreshToken(ctx, ghost.ID, "x"), auth.ErrUserNotFound)

		ok, err := repo.SwapRefreshToken(ctx, ghost.ID, "", "x")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("list newest first", func(t *testing.T) {
		users, total, err := repo.List(ctx, 0, 1000)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, 2)

		position := map[string]int{}
		for i, u := range users {
			position[u.ID] = i
		}
		require.Contains(t, position, alice.ID)
		require.Contains(t, position, bob.ID)
		assert.Less(t, position[bob.ID], position[alice.ID])

		users, _, err = repo.List(ctx, total, 10)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("delete", func(t *testing.T) {
		ok, err := repo.Delete(ctx, bob.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Delete(ctx, bob.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := repo.FindByProvider(ctx, auth.ProviderGoogle, *bob.GoogleID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
