package resend

import (
	"context"
	"fmt"
	"sync"
)

// FakeMailer is a test implementation of Mailer
type FakeMailer struct {
	// Err, when set, is returned by every Send
	Err error

	mu   sync.Mutex
	sent []Email
	// Sent receives every delivered email when non-nil
	Sent chan Email
}

func NewFakeMailer() *FakeMailer {
	return &FakeMailer{}
}

func (m *FakeMailer) Send(ctx context.Context, email Email) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}

	m.mu.Lock()
	m.sent = append(m.sent, email)
	id := fmt.Sprintf("fake-%d", len(m.sent))
	m.mu.Unlock()

	if m.Sent != nil {
		m.Sent <- email
	}
	return id, nil
}

// Emails returns the emails delivered so far
func (m *FakeMailer) Emails() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.sent...)
}
