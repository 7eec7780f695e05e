package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jewelry-storefront/api/internal/platform/auth"
	"github.com/jewelry-storefront/api/internal/platform/httpx"
	"github.com/jewelry-storefront/api/internal/services"
)

// ShippingHandlers exposes shipment tracking and admin shipment booking.
type ShippingHandlers struct {
	authn    *auth.Authenticator
	shipping services.ShippingService
}

func NewShippingHandlers(authn *auth.Authenticator, shipping services.ShippingService) *ShippingHandlers {
	return &ShippingHandlers{authn: authn, shipping: shipping}
}

// Routes wires the /shipping endpoints.
func (h *ShippingHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/track/{orderId}", h.track)
	r.Group(func(ar chi.Router) {
		if h.authn != nil {
			ar.Use(h.authn.RequireAdmin())
		}
		ar.Post("/shipments/{orderId}", h.createShipment)
	})
}

type trackingEventPayload struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	OccurredAt  string `json:"occurredAt"`
}

type trackingResponse struct {
	OrderID        string                 `json:"orderId"`
	OrderNumber    string                 `json:"orderNumber"`
	Status         string                 `json:"status"`
	Carrier        string                 `json:"carrier,omitempty"`
	TrackingNumber string                 `json:"trackingNumber,omitempty"`
	TrackingURL    string                 `json:"trackingUrl,omitempty"`
	CarrierStatus  string                 `json:"carrierStatus,omitempty"`
	Events         []trackingEventPayload `json:"events"`
}

func (h *ShippingHandlers) track(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		writeUnavailable(ctx, w, "shipping")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	info, err := h.shipping.Track(ctx, chi.URLParam(r, "orderId"), viewerFor(identity))
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	events := make([]trackingEventPayload, 0, len(info.Events))
	for _, ev := range info.Events {
		events = append(events, trackingEventPayload{
			Status:      ev.Status,
			Description: ev.Description,
			Location:    ev.Location,
			OccurredAt:  formatTime(ev.OccurredAt),
		})
	}
	writeNoStore(w)
	writeJSONResponse(w, http.StatusOK, trackingResponse{
		OrderID:        info.OrderID,
		OrderNumber:    info.OrderNumber,
		Status:         string(info.Status),
		Carrier:        info.Carrier,
		TrackingNumber: info.TrackingNumber,
		TrackingURL:    info.TrackingURL,
		CarrierStatus:  info.CarrierStatus,
		Events:         events,
	})
}

type createShipmentRequest struct {
	Carrier     string `json:"carrier"`
	WeightGrams int    `json:"weightGrams"`
}

func (h *ShippingHandlers) createShipment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		writeUnavailable(ctx, w, "shipping")
		return
	}
	var req createShipmentRequest
	body, err := readLimitedBody(r, maxOrderBodySize)
	switch {
	case errors.Is(err, errEmptyBody):
	case err != nil:
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
		return
	default:
		if !decodeJSONBytes(ctx, w, body, &req) {
			return
		}
	}
	order, err := h.shipping.CreateShipment(ctx, services.CreateShipmentCommand{
		OrderID:     chi.URLParam(r, "orderId"),
		Carrier:     strings.TrimSpace(req.Carrier),
		WeightGrams: req.WeightGrams,
	})
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildOrderPayload(order))
}

func writeShippingError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrShippingInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
	case errors.Is(err, services.ErrShippingNotShippable):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_shippable", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrShippingCarrierFailed):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_provider_error", "shipping provider request failed", http.StatusBadGateway))
	case isOrderError(err):
		writeOrderError(ctx, w, err)
	default:
		httpx.WriteError(ctx, w, httpx.NewError("shipping_error", "shipping request failed", http.StatusInternalServerError))
	}
}
