package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/auth"
	"github.com/jewelry-storefront/api/internal/platform/httpx"
	"github.com/jewelry-storefront/api/internal/platform/pagination"
	"github.com/jewelry-storefront/api/internal/services"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxOrderBodySize     = 8 * 1024
)

var validOrderStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPending:         {},
	domain.OrderStatusProcessing:      {},
	domain.OrderStatusShipped:         {},
	domain.OrderStatusDelivered:       {},
	domain.OrderStatusReturnRequested: {},
	domain.OrderStatusReturnApproved:  {},
	domain.OrderStatusRefunded:        {},
	domain.OrderStatusCancelled:       {},
}

// OrderHandlers exposes order history to customers and order management to admins.
type OrderHandlers struct {
	authn   *auth.Authenticator
	orders  services.OrderService
	returns services.ReturnService
}

// NewOrderHandlers constructs the /orders handlers. returns may be nil, in
// which case the eligibility endpoint reports the service as unavailable.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, returns services.ReturnService) *OrderHandlers {
	return &OrderHandlers{authn: authn, orders: orders, returns: returns}
}

// Routes wires the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/mine", h.listMine)
	r.Get("/{orderId}", h.getOrder)
	r.Get("/{orderId}/return-eligibility", h.returnEligibility)
	r.Post("/{orderId}/cancel", h.cancelOrder)

	r.Group(func(ar chi.Router) {
		if h.authn != nil {
			ar.Use(h.authn.RequireAdmin())
		}
		ar.Get("/", h.listAll)
		ar.Put("/{orderId}/status", h.updateStatus)
		ar.Put("/{orderId}/tracking", h.updateTracking)
	})
}

func (h *OrderHandlers) listMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	pager, ok := parseOrderPagination(w, r)
	if !ok {
		return
	}
	page, err := h.orders.ListMine(ctx, identity.UID, pager)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeNoStore(w)
	writeJSONResponse(w, http.StatusOK, buildOrderListPayload(page))
}

func (h *OrderHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	pager, ok := parseOrderPagination(w, r)
	if !ok {
		return
	}
	statuses, err := parseOrderStatuses(r.URL.Query()["status"])
	if err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
		return
	}
	page, err := h.orders.ListAll(ctx, services.OrderListFilter{
		UserID:     strings.TrimSpace(r.URL.Query().Get("userId")),
		Status:     statuses,
		Pagination: pager,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListPayload(page))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	order, err := h.orders.Get(ctx, chi.URLParam(r, "orderId"), viewerFor(identity))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeNoStore(w)
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type eligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
	Deadline string `json:"deadline,omitempty"`
}

func (h *OrderHandlers) returnEligibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	result, err := h.returns.Eligibility(ctx, chi.URLParam(r, "orderId"), viewerFor(identity))
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, eligibilityResponse{
		Eligible: result.Eligible,
		Reason:   result.Reason,
		Deadline: formatTimePtr(result.Deadline),
	})
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxOrderBodySize)
	switch {
	case errors.Is(err, errEmptyBody):
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
		return
	default:
		if !decodeJSONBytes(ctx, w, body, &req) {
			return
		}
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderId"),
		Viewer:  viewerFor(identity),
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *OrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decodeJSONBody(w, r, maxOrderBodySize, &req) {
		return
	}
	status, ok := parseOrderStatus(req.Status)
	if !ok {
		httpx.WriteError(ctx, w, httpx.BadRequest("unknown order status"))
		return
	}
	order, err := h.orders.TransitionStatus(ctx, services.OrderTransitionCommand{
		OrderID: chi.URLParam(r, "orderId"),
		To:      status,
		Reason:  strings.TrimSpace(req.Reason),
		ActorID: identity.UID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type updateTrackingRequest struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"trackingNumber"`
	TrackingURL    string `json:"trackingUrl"`
	MarkShipped    bool   `json:"markShipped"`
}

func (h *OrderHandlers) updateTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeUnavailable(ctx, w, "order")
		return
	}
	var req updateTrackingRequest
	if !decodeJSONBody(w, r, maxOrderBodySize, &req) {
		return
	}
	order, err := h.orders.SetTracking(ctx, services.SetTrackingCommand{
		OrderID: chi.URLParam(r, "orderId"),
		Tracking: domain.Tracking{
			Carrier:        strings.TrimSpace(req.Carrier),
			TrackingNumber: strings.TrimSpace(req.TrackingNumber),
			TrackingURL:    strings.TrimSpace(req.TrackingURL),
		},
		MarkShipped: req.MarkShipped,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func parseOrderPagination(w http.ResponseWriter, r *http.Request) (services.Pagination, bool) {
	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultOrderPageSize,
		MaxPageSize:     maxOrderPageSize,
	})
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.BadRequest(err.Error()))
		return services.Pagination{}, false
	}
	return services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken}, true
}

func parseOrderStatus(raw string) (services.OrderStatus, bool) {
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := validOrderStatuses[status]
	return status, ok
}

func parseOrderStatuses(values []string) ([]services.OrderStatus, error) {
	var out []services.OrderStatus
	for _, raw := range splitMulti(values) {
		status, ok := parseOrderStatus(raw)
		if !ok {
			return nil, errors.New("unknown order status " + raw)
		}
		out = append(out, status)
	}
	return out, nil
}

func isOrderError(err error) bool {
	for _, target := range []error{
		services.ErrOrderInvalidInput,
		services.ErrOrderNotFound,
		services.ErrOrderForbidden,
		services.ErrOrderInvalidState,
		services.ErrOrderPaymentNotApplied,
		services.ErrOrderConflict,
		services.ErrOrderUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.Forbidden("order belongs to another user"))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_order_status", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderPaymentNotApplied):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_applied", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.Unavailable("order"))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "order request failed", http.StatusInternalServerError))
	}
}
