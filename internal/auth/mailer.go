package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"estatehub/internal/i18n"
)

// Mailer delivers one message and reports whether it was accepted.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// deliverSecret mails a freshly issued secret. When delivery fails the secret
// is cleared and persisted so no unusable secret lingers on the record.
func (s *Service) deliverSecret(ctx context.Context, u *User, kind SecretKind, plain string) error {
	locale := i18n.LocaleFromContext(ctx)

	var content i18n.EmailContent
	switch kind {
	case SecretVerificationCode:
		content = i18n.VerificationEmail(locale, u.UserName, s.CompanyName, plain, int(VerificationCodeTTL.Hours()))
	case SecretResetOTP:
		content = i18n.PasswordResetCodeEmail(locale, u.UserName, s.CompanyName, plain, int(ResetOTPTTL.Minutes()))
	default:
		return fmt.Errorf("secret %v is not delivered by email", kind)
	}

	err := s.Mailer.Send(ctx, u.Email, content.Subject, content.Text, content.HTML)
	if err == nil {
		return nil
	}

	s.Log.Warn("secret delivery failed",
		zap.String("user_id", u.ID),
		zap.Stringer("kind", kind),
		zap.Error(err),
	)
	Clear(u, kind)
	if saveErr := s.Store.Save(ctx, u); saveErr != nil {
		s.Log.Error("clear undelivered secret", zap.String("user_id", u.ID), zap.Error(saveErr))
	}
	return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
}
