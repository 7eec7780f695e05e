package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jewelry-storefront/api/internal/domain"
)

func newTestClient(t *testing.T) (*pstest.Server, *pubsub.Client) {
	t.Helper()
	ctx := context.Background()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestOrderEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv, client := newTestClient(t)

	topic, err := client.CreateTopic(ctx, "orders")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	publisher, err := NewPublisher(topic)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	events, err := NewOrderEventPublisher(publisher)
	if err != nil {
		t.Fatalf("NewOrderEventPublisher: %v", err)
	}

	event := domain.OrderEvent{
		Type:        "order.status_changed",
		OrderID:     "ord_1",
		OrderNumber: "JW-2025-000042",
		UserID:      "user-1",
		Status:      domain.OrderStatusShipped,
		OccurredAt:  time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC),
	}
	if err := events.PublishOrderEvent(ctx, event); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	var payload domain.OrderEvent
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != event.OrderID || payload.Status != domain.OrderStatusShipped {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if attr := messages[0].Attributes["status"]; attr != "shipped" {
		t.Fatalf("expected status attribute, got %q", attr)
	}
}

func TestPublisherDropsBlankAttributes(t *testing.T) {
	ctx := context.Background()
	srv, client := newTestClient(t)
	topic, err := client.CreateTopic(ctx, "email")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	publisher, _ := NewPublisher(topic)

	if _, err := publisher.Publish(ctx, map[string]string{"to": "a@example.com"}, map[string]string{"template": " ", "kind": "otp"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	attrs := srv.Messages()[0].Attributes
	if _, ok := attrs["template"]; ok {
		t.Fatal("blank attribute should be dropped")
	}
	if attrs["kind"] != "otp" {
		t.Fatalf("expected kind attribute, got %#v", attrs)
	}
}

func TestWorkerAcksHandledMessages(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, client := newTestClient(t)

	topic, err := client.CreateTopic(ctx, "email")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	sub, err := client.CreateSubscription(ctx, "email-worker", pubsub.SubscriptionConfig{Topic: topic})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	publisher, _ := NewPublisher(topic)

	received := make(chan string, 2)
	worker, err := NewWorker(sub, func(_ context.Context, data []byte, attrs map[string]string) error {
		received <- attrs["kind"]
		if attrs["kind"] == "broken" {
			return errors.Join(ErrPermanent, errors.New("bad payload"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	if _, err := publisher.Publish(ctx, "{}", map[string]string{"kind": "otp"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := publisher.Publish(ctx, "{}", map[string]string{"kind": "broken"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case kind := <-received:
			seen[kind] = true
		case <-ctx.Done():
			t.Fatalf("timed out waiting for messages, saw %v", seen)
		}
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestNewWorkerValidatesArguments(t *testing.T) {
	if _, err := NewWorker(nil, func(context.Context, []byte, map[string]string) error { return nil }); err == nil {
		t.Fatal("expected error for nil subscription")
	}
}
