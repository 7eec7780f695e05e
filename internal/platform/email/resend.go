package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v3"
)

// ResendSender delivers through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender builds a sender. from must be on a domain verified in Resend.
func NewResendSender(apiKey, from, fromName string) (*ResendSender, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("email: resend api key is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, errors.New("email: from address is required")
	}
	if fromName = strings.TrimSpace(fromName); fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, strings.TrimSpace(from))
	}
	return &ResendSender{client: resend.NewClient(apiKey), from: from}, nil
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: send %q: %w", msg.Template, err)
	}
	return nil
}
