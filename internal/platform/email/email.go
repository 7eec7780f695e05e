// Package email renders transactional mail and delivers it through SMTP,
// Resend, a Pub/Sub queue, or the log.
package email

import (
	"context"
	"errors"
	"net/mail"
	"strings"
)

// ErrInvalidMessage is returned before any delivery attempt when the message
// lacks a recipient, subject or body.
var ErrInvalidMessage = errors.New("email: invalid message")

// Message is a rendered email ready for delivery.
type Message struct {
	To       string `json:"to"`
	ToName   string `json:"toName,omitempty"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Text     string `json:"text,omitempty"`
	Template string `json:"template,omitempty"`
}

// Validate checks the fields every transport needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.Join(ErrInvalidMessage, errors.New("recipient is required"))
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return errors.Join(ErrInvalidMessage, err)
	}
	if strings.TrimSpace(m.Subject) == "" {
		return errors.Join(ErrInvalidMessage, errors.New("subject is required"))
	}
	if strings.TrimSpace(m.HTML) == "" && strings.TrimSpace(m.Text) == "" {
		return errors.Join(ErrInvalidMessage, errors.New("body is required"))
	}
	return nil
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
