package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

type SecretKind int

const (
	SecretVerificationCode SecretKind = iota
	SecretResetOTP
	SecretResetToken
)

func (k SecretKind) String() string {
	switch k {
	case SecretVerificationCode:
		return "verification_code"
	case SecretResetOTP:
		return "reset_otp"
	case SecretResetToken:
		return "reset_token"
	}
	return fmt.Sprintf("secret(%d)", int(k))
}

const (
	VerificationCodeTTL = 24 * time.Hour
	ResetOTPTTL         = 10 * time.Minute
	ResetTokenTTL       = 10 * time.Minute

	numericCodeDigits = 5
	resetTokenBytes   = 32
)

// SecretIssuer mints one-time secrets onto a User. Only the SHA-256 hash and
// the expiry are kept on the record; the plaintext goes back to the caller.
type SecretIssuer struct {
	Now func() time.Time
}

func NewSecretIssuer() *SecretIssuer {
	return &SecretIssuer{Now: time.Now}
}

func (i *SecretIssuer) now() time.Time {
	if i.Now == nil {
		return time.Now()
	}
	return i.Now()
}

func (i *SecretIssuer) Issue(u *User, kind SecretKind) (string, error) {
	slot := u.secret(kind)
	if slot == nil {
		return "", fmt.Errorf("unknown secret kind %v", kind)
	}

	var (
		plain string
		ttl   time.Duration
		err   error
	)
	switch kind {
	case SecretVerificationCode:
		plain, err = randomNumericCode(numericCodeDigits)
		ttl = VerificationCodeTTL
	case SecretResetOTP:
		plain, err = randomNumericCode(numericCodeDigits)
		ttl = ResetOTPTTL
	case SecretResetToken:
		plain, err = randomHexToken(resetTokenBytes)
		ttl = ResetTokenTTL
	}
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", kind, err)
	}

	*slot = &Secret{Hash: HashString(plain), Expires: i.now().Add(ttl)}
	return plain, nil
}

// Consume checks candidate against the stored secret and clears it on success.
// Mismatch, expiry and absence all yield ErrSecretInvalidOrExpired.
func (i *SecretIssuer) Consume(u *User, kind SecretKind, candidate string) error {
	slot := u.secret(kind)
	if slot == nil || *slot == nil || candidate == "" {
		return ErrSecretInvalidOrExpired
	}
	stored := *slot
	matches := equalHash(stored.Hash, HashString(candidate))
	live := i.now().Before(stored.Expires)
	if !matches || !live {
		return ErrSecretInvalidOrExpired
	}
	*slot = nil
	return nil
}

func Clear(u *User, kind SecretKind) {
	if slot := u.secret(kind); slot != nil {
		*slot = nil
	}
}

// randomNumericCode returns a code in [10^(n-1), 10^n) so it never has a
// leading zero.
func randomNumericCode(digits int) (string, error) {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Sub(new(big.Int).Mul(low, big.NewInt(10)), low)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, low).String(), nil
}

func randomHexToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
