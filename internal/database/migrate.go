package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	migrationSuffix = ".up.sql"
	// arbitrary, shared by every instance running migrations against one database
	migrationLockID int64 = 41720013
)

// Migration is one forward-only SQL script. Version is the file name without
// its suffix; scripts apply in lexical order of Version.
type Migration struct {
	Version  string
	SQL      string
	Checksum string
}

// LoadMigrations reads every *.up.sql file at the root of fsys.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	names, err := fs.Glob(fsys, "*"+migrationSuffix)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		info, err := fs.Stat(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("stat migration %s: %w", name, err)
		}
		if info.IsDir() {
			continue
		}
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version:  strings.TrimSuffix(path.Base(name), migrationSuffix),
			SQL:      string(raw),
			Checksum: checksumHex(raw),
		})
	}
	if len(migrations) == 0 {
		return nil, errors.New("no migrations found")
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return strings.Compare(a.Version, b.Version)
	})
	return migrations, nil
}

// Migrate applies every pending migration in its own transaction while
// holding a session advisory lock, and returns the versions it applied. An
// applied migration whose script has since changed is an error.
func Migrate(ctx context.Context, db *pgxpool.Pool, migrations []Migration, log *zap.Logger) ([]string, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return nil, fmt.Errorf("create schema_migrations table: %w", err)
	}

	// the lock is per session, so take and release it on the same connection
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, migrationLockID); err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	var applied []string
	for _, m := range migrations {
		checksum, done, err := appliedChecksum(ctx, conn.Conn(), m.Version)
		if err != nil {
			return applied, err
		}
		if done {
			if checksum != m.Checksum {
				return applied, fmt.Errorf("migration %s was changed after being applied", m.Version)
			}
			continue
		}

		err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.Version, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)`,
				m.Version, m.Checksum,
			); err != nil {
				return fmt.Errorf("record migration %s: %w", m.Version, err)
			}
			return nil
		})
		if err != nil {
			return applied, err
		}
		log.Info("migration applied", zap.String("version", m.Version))
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func appliedChecksum(ctx context.Context, conn *pgx.Conn, version string) (string, bool, error) {
	var checksum string
	err := conn.QueryRow(ctx, `SELECT checksum FROM schema_migrations WHERE version = $1`, version).Scan(&checksum)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read migration state %s: %w", version, err)
	}
	return checksum, true, nil
}

func checksumHex(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
