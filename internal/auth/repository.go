package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `"id","user_name","email","password_hash","role","is_verified","oauth_provider","google_id","github_id",` +
	`"verification_code","verification_code_expires","verification_otp","verification_otp_expires",` +
	`"password_reset_token","password_reset_token_expires","refresh_token","created_at","updated_at"`

const pgUniqueViolation = "23505"

var secretColumns = map[SecretKind][2]string{
	SecretVerificationCode: {"verification_code", "verification_code_expires"},
	SecretResetOTP:         {"verification_otp", "verification_otp_expires"},
	SecretResetToken:       {"password_reset_token", "password_reset_token_expires"},
}

var providerColumns = map[Provider]string{
	ProviderGoogle: "google_id",
	ProviderGitHub: "github_id",
}

type PostgresRepository struct {
	DB *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{DB: db}
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `WHERE "email"=$1`, email)
}

func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, userName, email string) (*User, error) {
	return r.findOne(ctx, `WHERE "user_name"=$1 OR ("email" IS NOT NULL AND "email"=$2) LIMIT 1`, userName, email)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `WHERE "id"=$1`, id)
}

func (r *PostgresRepository) FindBySecret(ctx context.Context, kind SecretKind, hash string) (*User, error) {
	cols, ok := secretColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown secret kind %v", kind)
	}
	return r.findOne(ctx, fmt.Sprintf(`WHERE %q=$1`, cols[0]), hash)
}

func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, token string) (*User, error) {
	return r.findOne(ctx, `WHERE "refresh_token"=$1`, token)
}

func (r *PostgresRepository) FindByProvider(ctx context.Context, provider Provider, subject string) (*User, error) {
	col, ok := providerColumns[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	return r.findOne(ctx, fmt.Sprintf(`WHERE %q=$1`, col), subject)
}

const insertUserSQL = `
	INSERT INTO "users" (` + userColumns + `)
	VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
`

// updateUserSQL writes every field except the refresh token, which only
// changes through SetRefreshToken and SwapRefreshToken, and created_at.
const updateUserSQL = `
	UPDATE "users"
	SET "user_name"=$2,
	    "email"=NULLIF($3,''),
	    "password_hash"=$4,
	    "role"=$5,
	    "is_verified"=$6,
	    "oauth_provider"=$7,
	    "google_id"=$8,
	    "github_id"=$9,
	    "verification_code"=$10,
	    "verification_code_expires"=$11,
	    "verification_otp"=$12,
	    "verification_otp_expires"=$13,
	    "password_reset_token"=$14,
	    "password_reset_token_expires"=$15,
	    "updated_at"=$16
	WHERE "id"=$1
`

const setRefreshTokenSQL = `
	UPDATE "users"
	SET "refresh_token"=NULLIF($2,''), "updated_at"=NOW()
	WHERE "id"=$1
`

const swapRefreshTokenSQL = `
	UPDATE "users"
	SET "refresh_token"=NULLIF($3,''), "updated_at"=NOW()
	WHERE "id"=$1 AND COALESCE("refresh_token",'')=$2
`

func (r *PostgresRepository) Insert(ctx context.Context, u *User) error {
	_, err := r.DB.Exec(ctx, insertUserSQL, insertArgs(u)...)
	return mapPgError(err)
}

func (r *PostgresRepository) Update(ctx context.Context, u *User) error {
	tag, err := r.DB.Exec(ctx, updateUserSQL, updateArgs(u)...)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	tag, err := r.DB.Exec(ctx, setRefreshTokenSQL, userID, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) SwapRefreshToken(ctx context.Context, userID, current, next string) (bool, error) {
	tag, err := r.DB.Exec(ctx, swapRefreshTokenSQL, userID, current, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) List(ctx context.Context, offset, limit int) ([]User, int, error) {
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM "users"`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT `+userColumns+`
		FROM "users"
		ORDER BY "created_at" DESC
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM "users" WHERE "id"=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.DB.Ping(ctx)
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, args ...any) (*User, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+userColumns+` FROM "users" `+where, args...)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// recordArgs are the columns shared by insert and update, $2..$15.
func recordArgs(u *User) []any {
	code, codeExp := secretArgs(u.VerificationCode)
	otp, otpExp := secretArgs(u.VerificationOTP)
	reset, resetExp := secretArgs(u.PasswordResetToken)
	return []any{
		u.UserName,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.IsVerified,
		string(u.OAuthProvider),
		u.GoogleID,
		u.GitHubID,
		code, codeExp,
		otp, otpExp,
		reset, resetExp,
	}
}

func insertArgs(u *User) []any {
	args := append([]any{u.ID}, recordArgs(u)...)
	return append(args, u.RefreshToken, u.CreatedAt, u.UpdatedAt)
}

func updateArgs(u *User) []any {
	args := append([]any{u.ID}, recordArgs(u)...)
	return append(args, u.UpdatedAt)
}

func secretArgs(s *Secret) (*string, *time.Time) {
	if s == nil {
		return nil, nil
	}
	hash, exp := s.Hash, s.Expires
	return &hash, &exp
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u                         User
		email                     sql.NullString
		passwordHash              sql.NullString
		role                      string
		provider                  string
		googleID                  sql.NullString
		githubID                  sql.NullString
		verificationCode          sql.NullString
		verificationCodeExpires   sql.NullTime
		verificationOTP           sql.NullString
		verificationOTPExpires    sql.NullTime
		passwordResetToken        sql.NullString
		passwordResetTokenExpires sql.NullTime
		refreshToken              sql.NullString
	)

	if err := row.Scan(
		&u.ID,
		&u.UserName,
		&email,
		&passwordHash,
		&role,
		&u.IsVerified,
		&provider,
		&googleID,
		&githubID,
		&verificationCode,
		&verificationCodeExpires,
		&verificationOTP,
		&verificationOTPExpires,
		&passwordResetToken,
		&passwordResetTokenExpires,
		&refreshToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	u.Email = email.String
	u.PasswordHash = nullStringPtr(passwordHash)
	u.Role = Role(role)
	u.OAuthProvider = Provider(provider)
	u.GoogleID = nullStringPtr(googleID)
	u.GitHubID = nullStringPtr(githubID)
	u.VerificationCode = nullSecret(verificationCode, verificationCodeExpires)
	u.VerificationOTP = nullSecret(verificationOTP, verificationOTPExpires)
	u.PasswordResetToken = nullSecret(passwordResetToken, passwordResetTokenExpires)
	u.RefreshToken = nullStringPtr(refreshToken)
	return &u, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

// nullSecret only materializes a Secret when both halves are present.
func nullSecret(hash sql.NullString, expires sql.NullTime) *Secret {
	if !hash.Valid || !expires.Valid {
		return nil
	}
	return &Secret{Hash: hash.String, Expires: expires.Time}
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &DuplicateFieldError{Field: fieldForConstraint(pgErr.ConstraintName)}
	}
	return err
}

func fieldForConstraint(name string) string {
	switch {
	case strings.Contains(name, "email"):
		return "email"
	case strings.Contains(name, "user_name"):
		return "userName"
	case strings.Contains(name, "google"):
		return "googleId"
	case strings.Contains(name, "github"):
		return "githubId"
	}
	return name
}
