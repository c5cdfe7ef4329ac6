// Package email holds the outbound mail transports behind auth.Mailer.
package email

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"estatehub/internal/config"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// New picks the transport named by cfg.Driver.
func New(cfg config.EmailConfig, log *zap.Logger) (Mailer, error) {
	switch cfg.Driver {
	case config.MailSMTP:
		if !cfg.Enabled() {
			return nil, fmt.Errorf("%w: smtp host, port and from are required", ErrNotConfigured)
		}
		return NewSender(cfg), nil
	case config.MailPostmark:
		return NewPostmarkSender(cfg)
	case config.MailLog:
		return &LogSender{Log: log.Named("mail")}, nil
	}
	return nil, fmt.Errorf("unknown mail driver %q", cfg.Driver)
}
