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
	"github.com/jewelry-storefront/api/internal/services"
)

const maxReturnBodySize = 16 * 1024

// ReturnHandlers exposes return requests.
type ReturnHandlers struct {
	authn   *auth.Authenticator
	returns services.ReturnService
}

func NewReturnHandlers(authn *auth.Authenticator, returns services.ReturnService) *ReturnHandlers {
	return &ReturnHandlers{authn: authn, returns: returns}
}

// Routes wires the /returns endpoints. Resolution is admin only.
func (h *ReturnHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Post("/", h.createReturn)
	r.Get("/", h.listReturns)
	r.Get("/{returnId}", h.getReturn)
	r.Group(func(ar chi.Router) {
		if h.authn != nil {
			ar.Use(h.authn.RequireAdmin())
		}
		ar.Put("/{returnId}/resolve", h.resolveReturn)
	})
}

type createReturnRequest struct {
	OrderID string `json:"orderId"`
	Items   []struct {
		ProductID string `json:"productId"`
		Qty       int    `json:"qty"`
	} `json:"items"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

func (h *ReturnHandlers) createReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req createReturnRequest
	if !decodeJSONBody(w, r, maxReturnBodySize, &req) {
		return
	}
	items := make([]services.ReturnItemSelection, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.ReturnItemSelection{ProductID: strings.TrimSpace(item.ProductID), Qty: item.Qty})
	}
	ret, err := h.returns.Create(ctx, services.CreateReturnCommand{
		UserID:  identity.UID,
		OrderID: strings.TrimSpace(req.OrderID),
		Items:   items,
		Reason:  domain.ReturnReason(strings.ToLower(strings.TrimSpace(req.Reason))),
		Note:    req.Note,
	})
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/api/returns/"+ret.ID)
	writeJSONResponse(w, http.StatusCreated, buildReturnPayload(ret))
}

type returnListResponse struct {
	Items         []returnPayload `json:"items"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
}

// listReturns shows the caller's own returns. Admins see every return unless
// they pass userId.
func (h *ReturnHandlers) listReturns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
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
	query := r.URL.Query()
	filter := services.ReturnListFilter{
		UserID:     identity.UID,
		OrderID:    strings.TrimSpace(query.Get("orderId")),
		Pagination: pager,
	}
	if identity.IsAdmin() {
		filter.UserID = strings.TrimSpace(query.Get("userId"))
	}
	for _, raw := range splitMulti(query["status"]) {
		filter.Status = append(filter.Status, domain.ReturnStatus(strings.ToLower(raw)))
	}

	page, err := h.returns.List(ctx, filter)
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	items := make([]returnPayload, 0, len(page.Items))
	for _, ret := range page.Items {
		items = append(items, buildReturnPayload(ret))
	}
	writeNoStore(w)
	writeJSONResponse(w, http.StatusOK, returnListResponse{Items: items, NextPageToken: page.NextPageToken})
}

func (h *ReturnHandlers) getReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ret, err := h.returns.Get(ctx, chi.URLParam(r, "returnId"), viewerFor(identity))
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildReturnPayload(ret))
}

type resolveReturnRequest struct {
	Resolution string `json:"resolution"`
	Note       string `json:"note"`
}

func (h *ReturnHandlers) resolveReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.returns == nil {
		writeUnavailable(ctx, w, "return")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req resolveReturnRequest
	if !decodeJSONBody(w, r, maxReturnBodySize, &req) {
		return
	}
	ret, err := h.returns.Resolve(ctx, services.ResolveReturnCommand{
		ReturnID:   chi.URLParam(r, "returnId"),
		Resolution: services.ReturnResolution(strings.ToLower(strings.TrimSpace(req.Resolution))),
		Note:       req.Note,
		ActorID:    identity.UID,
	})
	if err != nil {
		writeReturnError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildReturnPayload(ret))
}

func writeReturnError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrReturnInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
	case errors.Is(err, services.ErrReturnNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("return_not_found", "return request not found", http.StatusNotFound))
	case errors.Is(err, services.ErrReturnForbidden):
		httpx.WriteError(ctx, w, httpx.Forbidden("return belongs to another user"))
	case errors.Is(err, services.ErrReturnNotEligible):
		httpx.WriteError(ctx, w, httpx.NewError("return_not_eligible", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrReturnInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_return_status", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrReturnConflict):
		httpx.WriteError(ctx, w, httpx.NewError("return_conflict", "return has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrReturnRefundFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_provider_error", "refund could not be issued", http.StatusBadGateway))
	case errors.Is(err, services.ErrReturnUnavailable):
		httpx.WriteError(ctx, w, httpx.Unavailable("return"))
	case isOrderError(err):
		writeOrderError(ctx, w, err)
	default:
		httpx.WriteError(ctx, w, httpx.NewError("return_error", "return request failed", http.StatusInternalServerError))
	}
}
