package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/shipink"
)

type stubShipmentClient struct {
	createErr error
	trackErr  error
	created   []shipink.CreateShipmentRequest
	cancelled []string
	tracking  shipink.Tracking
}

func (s *stubShipmentClient) CreateShipment(_ context.Context, req shipink.CreateShipmentRequest) (shipink.Shipment, error) {
	s.created = append(s.created, req)
	if s.createErr != nil {
		return shipink.Shipment{}, s.createErr
	}
	return shipink.Shipment{
		ID:             "shp_1",
		Reference:      req.Reference,
		Carrier:        "yurtici",
		TrackingNumber: "YK123456",
		TrackingURL:    "https://track.example/YK123456",
		Status:         "created",
	}, nil
}

func (s *stubShipmentClient) GetShipment(_ context.Context, id string) (shipink.Shipment, error) {
	return shipink.Shipment{ID: id, TrackingNumber: "YK999", Status: "label_printed"}, nil
}

func (s *stubShipmentClient) Track(_ context.Context, number string) (shipink.Tracking, error) {
	if s.trackErr != nil {
		return shipink.Tracking{}, s.trackErr
	}
	out := s.tracking
	out.TrackingNumber = number
	return out, nil
}

func (s *stubShipmentClient) CancelShipment(_ context.Context, id string) error {
	s.cancelled = append(s.cancelled, id)
	return nil
}

func processingOrder(id, userID string) domain.Order {
	order := pendingOrder(id, userID)
	order.Status = domain.OrderStatusProcessing
	order.IsPaid = true
	order.ShippingAddress = validAddress()
	order.Items = []domain.OrderItem{{ProductID: "p1", Name: "Yüzük", Price: 50000, Qty: 1}}
	return order
}

func TestShippingServiceCreateShipment(t *testing.T) {
	orders := newOrderFixture(t, processingOrder("o1", "u1"), pendingOrder("o2", "u1"))
	carrier := &stubShipmentClient{}
	svc, err := NewShippingService(ShippingServiceDeps{Orders: orders.svc, Carrier: carrier, DefaultCarrier: "yurtici"})
	if err != nil {
		t.Fatalf("new shipping service: %v", err)
	}

	order, err := svc.CreateShipment(context.Background(), CreateShipmentCommand{OrderID: "o1"})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if order.Status != domain.OrderStatusShipped || order.Tracking == nil || order.Tracking.TrackingNumber != "YK123456" {
		t.Fatalf("expected shipped order with tracking, got %+v", order)
	}
	req := carrier.created[0]
	if req.Reference != "JW-2026-000001" || req.Parcels[0].WeightGrams != defaultParcelWeightGrams || req.Recipient.City != "Ankara" {
		t.Fatalf("unexpected shipment request %+v", req)
	}
	if len(orders.notifier.sent) != 1 || orders.notifier.sent[0] != "order_shipped" {
		t.Fatalf("expected shipped email, got %v", orders.notifier.sent)
	}

	if _, err := svc.CreateShipment(context.Background(), CreateShipmentCommand{OrderID: "o2"}); !errors.Is(err, ErrShippingNotShippable) {
		t.Fatalf("pending order must not ship, got %v", err)
	}

	t.Run("carrier failure", func(t *testing.T) {
		orders := newOrderFixture(t, processingOrder("o3", "u1"))
		svc, _ := NewShippingService(ShippingServiceDeps{Orders: orders.svc, Carrier: &stubShipmentClient{createErr: shipink.ErrUnauthorized}})
		_, err := svc.CreateShipment(context.Background(), CreateShipmentCommand{OrderID: "o3"})
		if !errors.Is(err, ErrShippingCarrierFailed) || !errors.Is(err, shipink.ErrUnauthorized) {
			t.Fatalf("expected carrier failure, got %v", err)
		}
		if orders.repo.orders["o3"].Status != domain.OrderStatusProcessing {
			t.Fatalf("order must remain processing")
		}
	})

	t.Run("not configured", func(t *testing.T) {
		svc, _ := NewShippingService(ShippingServiceDeps{Orders: orders.svc})
		if _, err := svc.CreateShipment(context.Background(), CreateShipmentCommand{OrderID: "o1"}); !errors.Is(err, ErrShippingCarrierFailed) {
			t.Fatalf("expected carrier failure, got %v", err)
		}
	})
}

func TestShippingServiceTrack(t *testing.T) {
	shipped := processingOrder("o1", "u1")
	shipped.Status = domain.OrderStatusShipped
	shipped.Tracking = &domain.Tracking{Carrier: "yurtici", TrackingNumber: "YK123456"}
	booked := processingOrder("o2", "u1")
	booked.Tracking = &domain.Tracking{Carrier: "aras", ShipmentID: "shp_9"}
	orders := newOrderFixture(t, shipped, booked, pendingOrder("o3", "u1"))

	occurred := time.Date(2026, 6, 16, 9, 30, 0, 0, time.FixedZone("TRT", 3*60*60))
	carrier := &stubShipmentClient{tracking: shipink.Tracking{Status: "in_transit", Events: []shipink.TrackingEvent{
		{Status: "in_transit", Description: "Transfer merkezinde", Location: "İstanbul", OccurredAt: occurred},
	}}}
	svc, _ := NewShippingService(ShippingServiceDeps{Orders: orders.svc, Carrier: carrier})

	info, err := svc.Track(context.Background(), "o1", Viewer{UserID: "u1"})
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if info.CarrierStatus != "in_transit" || len(info.Events) != 1 || info.Events[0].OccurredAt.Location() != time.UTC {
		t.Fatalf("unexpected tracking %+v", info)
	}

	info, err = svc.Track(context.Background(), "o2", Viewer{UserID: "u1"})
	if err != nil || info.TrackingNumber != "YK999" {
		t.Fatalf("expected tracking number from shipment lookup, got %+v %v", info, err)
	}

	info, err = svc.Track(context.Background(), "o3", Viewer{UserID: "u1"})
	if err != nil || info.TrackingNumber != "" || info.Events == nil {
		t.Fatalf("untracked order should return empty events, got %+v %v", info, err)
	}

	if _, err := svc.Track(context.Background(), "o1", Viewer{UserID: "intruder"}); !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	carrier.trackErr = errors.New("timeout")
	info, err = svc.Track(context.Background(), "o1", Viewer{UserID: "u1"})
	if err != nil || info.TrackingNumber != "YK123456" || len(info.Events) != 0 {
		t.Fatalf("carrier failure should degrade to stored fields, got %+v %v", info, err)
	}
}
