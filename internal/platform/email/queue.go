package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jewelry-storefront/api/internal/platform/jobs"
)

// QueuePublisher is the subset of jobs.Publisher the queue sender needs.
type QueuePublisher interface {
	Publish(ctx context.Context, payload any, attrs map[string]string) (string, error)
}

// QueueSender hands messages to the email topic; a worker running
// QueueHandler performs the actual delivery.
type QueueSender struct {
	publisher QueuePublisher
}

// NewQueueSender wraps publisher.
func NewQueueSender(publisher QueuePublisher) (*QueueSender, error) {
	if publisher == nil {
		return nil, errors.New("email: queue publisher is required")
	}
	return &QueueSender{publisher: publisher}, nil
}

func (s *QueueSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if _, err := s.publisher.Publish(ctx, msg, map[string]string{"template": msg.Template}); err != nil {
		return fmt.Errorf("email queue: %w", err)
	}
	return nil
}

// QueueHandler decodes queued messages and delivers them with sender.
// Undecodable or invalid payloads are permanent failures.
func QueueHandler(sender Sender) jobs.Handler {
	return func(ctx context.Context, data []byte, _ map[string]string) error {
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return errors.Join(jobs.ErrPermanent, fmt.Errorf("decode email message: %w", err))
		}
		if err := msg.Validate(); err != nil {
			return errors.Join(jobs.ErrPermanent, err)
		}
		return sender.Send(ctx, msg)
	}
}
