package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

var duplicateIndexPattern = regexp.MustCompile(`index: (\S+)`)

type userDocument struct {
	ID            string  `bson:"_id"`
	UserName      string  `bson:"userName"`
	Email         string  `bson:"email,omitempty"`
	PasswordHash  *string `bson:"passwordHash,omitempty"`
	Role          string  `bson:"role"`
	IsVerified    bool    `bson:"isVerified"`
	OAuthProvider string  `bson:"oauthProvider"`
	GoogleID      *string `bson:"googleId,omitempty"`
	GitHubID      *string `bson:"githubId,omitempty"`

	VerificationCode          *string    `bson:"verificationCode,omitempty"`
	VerificationCodeExpires   *time.Time `bson:"verificationCodeExpires,omitempty"`
	VerificationOTP           *string    `bson:"verificationOTP,omitempty"`
	VerificationOTPExpires    *time.Time `bson:"verificationOTPExpires,omitempty"`
	PasswordResetToken        *string    `bson:"passwordResetToken,omitempty"`
	PasswordResetTokenExpires *time.Time `bson:"passwordResetTokenExpires,omitempty"`

	RefreshToken *string `bson:"refreshToken,omitempty"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

var mongoSecretFields = map[SecretKind]string{
	SecretVerificationCode: "verificationCode",
	SecretResetOTP:         "verificationOTP",
	SecretResetToken:       "passwordResetToken",
}

var mongoProviderFields = map[Provider]string{
	ProviderGoogle: "googleId",
	ProviderGitHub: "githubId",
}

// MongoRepository stores users as documents in a single collection.
type MongoRepository struct {
	users *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{users: db.Collection(usersCollection)}
}

// EnsureIndexes creates the uniqueness and lookup indexes. Safe to call on
// every start.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	unique := func(name string) *options.IndexOptionsBuilder {
		return options.Index().SetName(name).SetUnique(true).SetSparse(true)
	}
	sparse := func(name string) *options.IndexOptionsBuilder {
		return options.Index().SetName(name).SetSparse(true)
	}
	_, err := r.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique("users_email_key")},
		{Keys: bson.D{{Key: "userName", Value: 1}}, Options: unique("users_user_name_key")},
		{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: unique("users_google_id_key")},
		{Keys: bson.D{{Key: "githubId", Value: 1}}, Options: unique("users_github_id_key")},
		{Keys: bson.D{{Key: "verificationCode", Value: 1}}, Options: sparse("users_verification_code_idx")},
		{Keys: bson.D{{Key: "verificationOTP", Value: 1}}, Options: sparse("users_verification_otp_idx")},
		{Keys: bson.D{{Key: "passwordResetToken", Value: 1}}, Options: sparse("users_password_reset_token_idx")},
		{Keys: bson.D{{Key: "refreshToken", Value: 1}}, Options: sparse("users_refresh_token_idx")},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoRepository) FindByUsernameOrEmail(ctx context.Context, userName, email string) (*User, error) {
	or := bson.A{bson.D{{Key: "userName", Value: userName}}}
	if email != "" {
		or = append(or, bson.D{{Key: "email", Value: email}})
	}
	return r.findOne(ctx, bson.D{{Key: "$or", Value: or}})
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *MongoRepository) FindBySecret(ctx context.Context, kind SecretKind, hash string) (*User, error) {
	field, ok := mongoSecretFields[kind]
	if !ok {
		return nil, fmt.Errorf("unknown secret kind %v", kind)
	}
	return r.findOne(ctx, bson.D{{Key: field, Value: hash}})
}

func (r *MongoRepository) FindByRefreshToken(ctx context.Context, token string) (*User, error) {
	return r.findOne(ctx, bson.D{{Key: "refreshToken", Value: token}})
}

func (r *MongoRepository) FindByProvider(ctx context.Context, provider Provider, subject string) (*User, error) {
	field, ok := mongoProviderFields[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	return r.findOne(ctx, bson.D{{Key: field, Value: subject}})
}

func (r *MongoRepository) Insert(ctx context.Context, u *User) error {
	_, err := r.users.InsertOne(ctx, toDocument(u))
	return mapMongoError(err)
}

// Update rewrites the record without touching refreshToken or createdAt.
func (r *MongoRepository) Update(ctx context.Context, u *User) error {
	res, err := r.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: u.ID}}, updateDocument(u))
	if err != nil {
		return mapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "refreshToken", Value: token},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}
	if token == "" {
		update = bson.D{
			{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
		}
	}
	res, err := r.users.UpdateOne(ctx, bson.D{{Key: "_id", Value: userID}}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *MongoRepository) SwapRefreshToken(ctx context.Context, userID, current, next string) (bool, error) {
	filter := bson.D{{Key: "_id", Value: userID}}
	if current == "" {
		// matches both a missing field and an explicit null
		filter = append(filter, bson.E{Key: "refreshToken", Value: nil})
	} else {
		filter = append(filter, bson.E{Key: "refreshToken", Value: current})
	}

	now := time.Now().UTC()
	var update bson.D
	if next == "" {
		update = bson.D{
			{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
		}
	} else {
		update = bson.D{{Key: "$set", Value: bson.D{
			{Key: "refreshToken", Value: next},
			{Key: "updatedAt", Value: now},
		}}}
	}

	res, err := r.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *MongoRepository) List(ctx context.Context, offset, limit int) ([]User, int, error) {
	total, err := r.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cur, err := r.users.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	users := make([]User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toUser())
	}
	return users, int(total), nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return false, err
	}
	return res.DeletedCount == 1, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.users.Database().Client().Ping(ctx, nil)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.D) (*User, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc.toUser(), nil
}

func toDocument(u *User) userDocument {
	code, codeExp := secretArgs(u.VerificationCode)
	otp, otpExp := secretArgs(u.VerificationOTP)
	reset, resetExp := secretArgs(u.PasswordResetToken)
	return userDocument{
		ID:                        u.ID,
		UserName:                  u.UserName,
		Email:                     u.Email,
		PasswordHash:              u.PasswordHash,
		Role:                      string(u.Role),
		IsVerified:                u.IsVerified,
		OAuthProvider:             string(u.OAuthProvider),
		GoogleID:                  u.GoogleID,
		GitHubID:                  u.GitHubID,
		VerificationCode:          code,
		VerificationCodeExpires:   codeExp,
		VerificationOTP:           otp,
		VerificationOTPExpires:    otpExp,
		PasswordResetToken:        reset,
		PasswordResetTokenExpires: resetExp,
		RefreshToken:              u.RefreshToken,
		CreatedAt:                 u.CreatedAt,
		UpdatedAt:                 u.UpdatedAt,
	}
}

// updateDocument sets present fields and unsets absent optional ones, so a
// cleared secret disappears from the stored document.
func updateDocument(u *User) bson.D {
	set := bson.D{
		{Key: "userName", Value: u.UserName},
		{Key: "role", Value: string(u.Role)},
		{Key: "isVerified", Value: u.IsVerified},
		{Key: "oauthProvider", Value: string(u.OAuthProvider)},
		{Key: "updatedAt", Value: u.UpdatedAt},
	}
	var unset bson.D
	optional := func(key string, present bool, value any) {
		if present {
			set = append(set, bson.E{Key: key, Value: value})
		} else {
			unset = append(unset, bson.E{Key: key, Value: ""})
		}
	}

	optional("email", u.Email != "", u.Email)
	optional("passwordHash", u.PasswordHash != nil, u.PasswordHash)
	optional("googleId", u.GoogleID != nil, u.GoogleID)
	optional("githubId", u.GitHubID != nil, u.GitHubID)
	for _, s := range []struct {
		secret     *Secret
		hash, exps string
	}{
		{u.VerificationCode, "verificationCode", "verificationCodeExpires"},
		{u.VerificationOTP, "verificationOTP", "verificationOTPExpires"},
		{u.PasswordResetToken, "passwordResetToken", "passwordResetTokenExpires"},
	} {
		hash, expires := secretArgs(s.secret)
		optional(s.hash, hash != nil, hash)
		optional(s.exps, expires != nil, expires)
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	return update
}

func (d *userDocument) toUser() *User {
	return &User{
		ID:                 d.ID,
		UserName:           d.UserName,
		Email:              d.Email,
		PasswordHash:       d.PasswordHash,
		Role:               Role(d.Role),
		IsVerified:         d.IsVerified,
		OAuthProvider:      Provider(d.OAuthProvider),
		GoogleID:           d.GoogleID,
		GitHubID:           d.GitHubID,
		VerificationCode:   docSecret(d.VerificationCode, d.VerificationCodeExpires),
		VerificationOTP:    docSecret(d.VerificationOTP, d.VerificationOTPExpires),
		PasswordResetToken: docSecret(d.PasswordResetToken, d.PasswordResetTokenExpires),
		RefreshToken:       d.RefreshToken,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func docSecret(hash *string, expires *time.Time) *Secret {
	if hash == nil || expires == nil {
		return nil
	}
	return &Secret{Hash: *hash, Expires: *expires}
}

func mapMongoError(err error) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if m := duplicateIndexPattern.FindStringSubmatch(err.Error()); len(m) == 2 {
		return &DuplicateFieldError{Field: fieldForConstraint(m[1])}
	}
	return &DuplicateFieldError{Field: "unknown"}
}
