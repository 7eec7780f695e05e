package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
)

// Publisher sends JSON payloads to one Pub/Sub topic.
type Publisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPublisher wraps topic.
func NewPublisher(topic *pubsub.Topic) (*Publisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub publisher: topic is required")
	}
	return &Publisher{topic: topic, marshal: json.Marshal}, nil
}

// Publish marshals payload and waits for the server-assigned message id.
// Blank attributes are dropped.
func (p *Publisher) Publish(ctx context.Context, payload any, attrs map[string]string) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub publisher: not initialised")
	}

	data, err := p.marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s message: %w", p.topic.ID(), err)
	}

	clean := make(map[string]string, len(attrs))
	for key, value := range attrs {
		setAttr(clean, key, value)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: clean,
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", p.topic.ID(), err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *Publisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}

func setAttr(attrs map[string]string, key string, value string) {
	key = strings.TrimSpace(key)
	if v := strings.TrimSpace(value); key != "" && v != "" {
		attrs[key] = v
	}
}
