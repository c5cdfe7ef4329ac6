package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"estatehub/internal/config"
)

var ErrSendFailed = errors.New("failed to send email")

type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkSender delivers mail through Postmark's transactional API.
type PostmarkSender struct {
	client postmarkAPI
	from   string
}

func NewPostmarkSender(cfg config.EmailConfig) (*PostmarkSender, error) {
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: postmark tokens are required", ErrNotConfigured)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: EMAIL_FROM is required", ErrNotConfigured)
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.From,
	}, nil
}

func (p *PostmarkSender) Send(ctx context.Context, to, subject, text, html string) error {
	resp, err := p.client.SendEmail(ctx, postmark.Email{
		From:       p.from,
		To:         to,
		Subject:    subject,
		Tag:        "auth",
		TextBody:   text,
		HTMLBody:   html,
		TrackOpens: false,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
