package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"estatehub/internal/config"
)

func TestBuildMessageAlternative(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := string(buildMessage("noreply@estatehub.test", "jane@example.com", "Verify", "code 12345", "<b>12345</b>", now))

	assert.Contains(t, msg, "From: noreply@estatehub.test\r\n")
	assert.Contains(t, msg, "To: jane@example.com\r\n")
	assert.Contains(t, msg, "Subject: Verify\r\n")
	assert.Contains(t, msg, "Date: "+now.Format(time.RFC1123Z))
	assert.Contains(t, msg, "multipart/alternative")
	assert.Contains(t, msg, "text/plain")
	assert.Contains(t, msg, "<b>12345</b>")
	assert.True(t, strings.HasSuffix(msg, "--"+boundary+"--\r\n"))
}

func TestBuildMessagePlainOnly(t *testing.T) {
	msg := string(buildMessage("a@b.test", "c@d.test", "Hi", "hello", "", time.Now()))

	assert.NotContains(t, msg, "multipart")
	assert.Contains(t, msg, "Content-Type: text/plain")
	assert.True(t, strings.HasSuffix(msg, "hello"))
}

func TestSenderNotConfigured(t *testing.T) {
	err := NewSender(config.EmailConfig{}).Send(t.Context(), "a@b.test", "s", "t", "h")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type fakePostmark struct {
	got  postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakePostmark) SendEmail(_ context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	f.got = e
	return f.resp, f.err
}

func TestPostmarkSend(t *testing.T) {
	fake := &fakePostmark{}
	p := &PostmarkSender{client: fake, from: "noreply@estatehub.test"}

	require.NoError(t, p.Send(t.Context(), "jane@example.com", "Reset", "text", "<p>html</p>"))
	assert.Equal(t, "noreply@estatehub.test", fake.got.From)
	assert.Equal(t, "jane@example.com", fake.got.To)
	assert.Equal(t, "Reset", fake.got.Subject)
	assert.Equal(t, "text", fake.got.TextBody)
	assert.Equal(t, "<p>html</p>", fake.got.HTMLBody)
}

func TestPostmarkErrors(t *testing.T) {
	fake := &fakePostmark{resp: postmark.EmailResponse{ErrorCode: 300, Message: "Invalid email request"}}
	p := &PostmarkSender{client: fake, from: "noreply@estatehub.test"}

	err := p.Send(t.Context(), "jane@example.com", "s", "t", "h")
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "300")

	fake.resp = postmark.EmailResponse{}
	fake.err = errors.New("dial tcp: timeout")
	err = p.Send(t.Context(), "jane@example.com", "s", "t", "h")
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestNewPostmarkSenderRequiresTokens(t *testing.T) {
	_, err := NewPostmarkSender(config.EmailConfig{From: "a@b.test"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := &LogSender{Log: zap.New(core)}

	require.NoError(t, s.Send(t.Context(), "jane@example.com", "Verify", "code 12345", "<b>12345</b>"))
	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "jane@example.com", fields["to"])
	assert.Equal(t, "code 12345", fields["text"])
}

func TestNewPicksDriver(t *testing.T) {
	log := zap.NewNop()

	m, err := New(config.EmailConfig{Driver: config.MailLog}, log)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, m)

	m, err = New(config.EmailConfig{Driver: config.MailSMTP, Host: "smtp.test", Port: 587, From: "a@b.test"}, log)
	require.NoError(t, err)
	assert.IsType(t, &Sender{}, m)

	_, err = New(config.EmailConfig{Driver: config.MailSMTP}, log)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = New(config.EmailConfig{Driver: "pigeon"}, log)
	assert.Error(t, err)
}
