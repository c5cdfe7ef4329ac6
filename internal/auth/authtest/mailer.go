package authtest

import (
	"context"
	"errors"
	"regexp"
	"sync"
)

var ErrMailDown = errors.New("mail transport down")

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer records every message. While Fail is set, Send returns ErrMailDown
// and records nothing.
type Mailer struct {
	mu       sync.Mutex
	Fail     bool
	messages []Message
}

func (m *Mailer) Send(_ context.Context, to, subject, text, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return ErrMailDown
	}
	m.messages = append(m.messages, Message{To: to, Subject: subject, Text: text, HTML: html})
	return nil
}

func (m *Mailer) SetFail(fail bool) {
	m.mu.Lock()
	m.Fail = fail
	m.mu.Unlock()
}

func (m *Mailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

var codePattern = regexp.MustCompile(`\b\d{5}\b`)

// LastCode returns the five-digit code in the newest message sent to addr.
func (m *Mailer) LastCode(addr string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].To == addr {
			return codePattern.FindString(m.messages[i].Text)
		}
	}
	return ""
}
