/*
Package mail transmits slips and reports.

PURPOSE:
  One synchronous capability, Sender.Send, with three implementations:
  SMTP (gomail), a retrying decorator with bounded exponential backoff,
  and an in-memory outbox for development and tests.

SEE ALSO:
  - smtp.go: SMTPSender
  - retry.go: RetryingSender
  - delivery/coordinator.go: the only caller
*/
package mail

import (
	"context"
	"strings"
	"sync"
)

// Attachment is one attached file.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one email.
type Message struct {
	Subject     string
	From        string
	To          []string
	Body        string
	Attachments []Attachment
}

// Recipient returns the To list as one string, for logs and errors.
func (m Message) Recipient() string { return strings.Join(m.To, ", ") }

// Sender transmits a message. Send returns when the server accepted it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// =============================================================================
// OUTBOX - records messages instead of sending them
// =============================================================================

// Outbox is a Sender that keeps every message in memory. Fail, when set,
// is consulted before recording and its error is returned instead.
type Outbox struct {
	mu   sync.Mutex
	sent []Message
	Fail func(msg Message) error
}

func (o *Outbox) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail != nil {
		if err := o.Fail(msg); err != nil {
			return err
		}
	}
	o.sent = append(o.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (o *Outbox) Sent() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.sent...)
}

// SentTo counts recorded messages addressed to addr.
func (o *Outbox) SentTo(addr string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, m := range o.sent {
		for _, to := range m.To {
			if to == addr {
				n++
			}
		}
	}
	return n
}

var _ Sender = (*Outbox)(nil)
