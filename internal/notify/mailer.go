package notify

import (
	"sync"

	"github.com/rs/zerolog"
)

// Mailer delivers one plain-text message.
type Mailer interface {
	Send(to, subject, body string) error
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Logger zerolog.Logger
}

// Send implements Mailer.
func (m LogMailer) Send(to, subject, body string) error {
	m.Logger.Info().Str("to", to).Str("subject", subject).Int("body_bytes", len(body)).Msg("email_outbox")
	return nil
}

// Email is a message captured by InMemoryMailer.
type Email struct {
	To      string
	Subject string
	Body    string
}

// InMemoryMailer records messages.
type InMemoryMailer struct {
	mu     sync.Mutex
	outbox []Email
}

// Send implements Mailer.
func (m *InMemoryMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, Email{To: to, Subject: subject, Body: body})
	return nil
}

// Outbox returns a copy of the recorded messages.
func (m *InMemoryMailer) Outbox() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.outbox...)
}
