package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/shipink"
)

const defaultParcelWeightGrams = 250

var (
	// ErrShippingInvalidInput indicates the request failed validation.
	ErrShippingInvalidInput = errors.New("shipping: invalid input")
	// ErrShippingNotShippable indicates the order is not in a state that can be shipped.
	ErrShippingNotShippable = errors.New("shipping: order cannot be shipped")
	// ErrShippingCarrierFailed indicates the shipping provider rejected or failed the call.
	ErrShippingCarrierFailed = errors.New("shipping: carrier request failed")
)

type shipmentClient interface {
	CreateShipment(ctx context.Context, req shipink.CreateShipmentRequest) (shipink.Shipment, error)
	GetShipment(ctx context.Context, shipmentID string) (shipink.Shipment, error)
	Track(ctx context.Context, trackingNumber string) (shipink.Tracking, error)
	CancelShipment(ctx context.Context, shipmentID string) error
}

// ShippingServiceDeps wires the order service and the Shipink client. A nil
// Carrier disables live tracking and shipment booking.
type ShippingServiceDeps struct {
	Orders         OrderService
	Carrier        shipmentClient
	DefaultCarrier string
	Logger         func(context.Context, string, map[string]any)
}

type shippingService struct {
	orders         OrderService
	carrier        shipmentClient
	defaultCarrier string
	logger         func(context.Context, string, map[string]any)
}

var _ ShippingService = (*shippingService)(nil)

// NewShippingService constructs a ShippingService.
func NewShippingService(deps ShippingServiceDeps) (ShippingService, error) {
	if deps.Orders == nil {
		return nil, errors.New("shipping service: order service is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger()
	}
	return &shippingService{
		orders:         deps.Orders,
		carrier:        deps.Carrier,
		defaultCarrier: strings.TrimSpace(deps.DefaultCarrier),
		logger:         logger,
	}, nil
}

// Track returns the stored tracking fields merged with live carrier events.
// Carrier failures degrade to the stored fields only.
func (s *shippingService) Track(ctx context.Context, orderID string, viewer Viewer) (TrackingInfo, error) {
	order, err := s.orders.Get(ctx, orderID, viewer)
	if err != nil {
		return TrackingInfo{}, err
	}
	info := TrackingInfo{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Events:      []TrackingEvent{},
	}
	if order.Tracking == nil {
		return info, nil
	}
	info.Carrier = order.Tracking.Carrier
	info.TrackingNumber = order.Tracking.TrackingNumber
	info.TrackingURL = order.Tracking.TrackingURL
	if s.carrier == nil {
		return info, nil
	}

	if info.TrackingNumber == "" && order.Tracking.ShipmentID != "" {
		shipment, err := s.carrier.GetShipment(ctx, order.Tracking.ShipmentID)
		if err != nil {
			s.logger(ctx, "shipping.shipment_lookup_failed", map[string]any{"orderId": order.ID, "error": err.Error()})
			return info, nil
		}
		info.TrackingNumber = shipment.TrackingNumber
		info.TrackingURL = firstNonBlank(info.TrackingURL, shipment.TrackingURL)
		info.CarrierStatus = shipment.Status
	}
	if info.TrackingNumber == "" {
		return info, nil
	}

	live, err := s.carrier.Track(ctx, info.TrackingNumber)
	if err != nil {
		s.logger(ctx, "shipping.track_failed", map[string]any{"orderId": order.ID, "trackingNumber": info.TrackingNumber, "error": err.Error()})
		return info, nil
	}
	info.CarrierStatus = live.Status
	for _, ev := range live.Events {
		info.Events = append(info.Events, TrackingEvent{
			Status:      ev.Status,
			Description: ev.Description,
			Location:    ev.Location,
			OccurredAt:  ev.OccurredAt.UTC(),
		})
	}
	return info, nil
}

// CreateShipment books a shipment for a processing order, stores the
// tracking fields and moves the order to shipped.
func (s *shippingService) CreateShipment(ctx context.Context, cmd CreateShipmentCommand) (Order, error) {
	if s.carrier == nil {
		return Order{}, fmt.Errorf("%w: shipping provider is not configured", ErrShippingCarrierFailed)
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrShippingInvalidInput)
	}
	if cmd.WeightGrams < 0 {
		return Order{}, fmt.Errorf("%w: weight must not be negative", ErrShippingInvalidInput)
	}
	order, err := s.orders.Get(ctx, orderID, Viewer{IsAdmin: true})
	if err != nil {
		return Order{}, err
	}
	if order.Status != domain.OrderStatusProcessing {
		return Order{}, fmt.Errorf("%w: order is %s", ErrShippingNotShippable, order.Status)
	}
	if order.Tracking != nil && order.Tracking.ShipmentID != "" {
		return Order{}, fmt.Errorf("%w: shipment %s already exists", ErrShippingNotShippable, order.Tracking.ShipmentID)
	}

	weight := cmd.WeightGrams
	if weight == 0 {
		weight = defaultParcelWeightGrams
	}
	addr := order.ShippingAddress
	shipment, err := s.carrier.CreateShipment(ctx, shipink.CreateShipmentRequest{
		Reference: order.OrderNumber,
		Carrier:   firstNonBlank(cmd.Carrier, s.defaultCarrier),
		Recipient: shipink.Address{
			Name:       addr.FullName,
			Phone:      addr.Phone,
			Address:    addr.Address,
			District:   addr.District,
			City:       addr.City,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		},
		Parcels: []shipink.Parcel{{WeightGrams: weight, Description: fmt.Sprintf("%d items", len(order.Items))}},
	})
	if err != nil {
		s.logger(ctx, "shipping.create_failed", map[string]any{"orderId": order.ID, "error": err.Error()})
		return Order{}, errors.Join(ErrShippingCarrierFailed, err)
	}

	updated, err := s.orders.SetTracking(ctx, SetTrackingCommand{
		OrderID: order.ID,
		Tracking: domain.Tracking{
			Carrier:        firstNonBlank(shipment.Carrier, cmd.Carrier, s.defaultCarrier),
			TrackingNumber: shipment.TrackingNumber,
			TrackingURL:    shipment.TrackingURL,
			ShipmentID:     shipment.ID,
		},
		MarkShipped: true,
	})
	if err != nil {
		cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if cancelErr := s.carrier.CancelShipment(cancelCtx, shipment.ID); cancelErr != nil {
			s.logger(ctx, "shipping.cancel_failed", map[string]any{"shipmentId": shipment.ID, "error": cancelErr.Error()})
		}
		return Order{}, err
	}
	s.logger(ctx, "shipping.shipment_created", map[string]any{
		"orderId":        updated.ID,
		"shipmentId":     shipment.ID,
		"trackingNumber": shipment.TrackingNumber,
	})
	return updated, nil
}
