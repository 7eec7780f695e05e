package jobs

import (
	"context"
	"errors"

	"github.com/jewelry-storefront/api/internal/domain"
)

// OrderEventPublisher publishes order lifecycle events to the orders topic.
type OrderEventPublisher struct {
	publisher *Publisher
}

// NewOrderEventPublisher wraps an orders-topic publisher.
func NewOrderEventPublisher(publisher *Publisher) (*OrderEventPublisher, error) {
	if publisher == nil {
		return nil, errors.New("order event publisher: publisher is required")
	}
	return &OrderEventPublisher{publisher: publisher}, nil
}

func (p *OrderEventPublisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	_, err := p.publisher.Publish(ctx, event, map[string]string{
		"eventType":   event.Type,
		"orderId":     event.OrderID,
		"orderNumber": event.OrderNumber,
		"status":      string(event.Status),
	})
	return err
}
