package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/auth"
	"github.com/jewelry-storefront/api/internal/platform/httpx"
	"github.com/jewelry-storefront/api/internal/platform/requestctx"
	"github.com/jewelry-storefront/api/internal/services"
)

const (
	maxCheckoutBodySize = 16 * 1024
	maxCallbackBodySize = 32 * 1024
	idempotencyHeader   = "Idempotency-Key"
	defaultCallbackPSP  = "paytr"
)

// CheckoutHandlers drives the checkout wizard and the payment endpoints.
type CheckoutHandlers struct {
	authn       *auth.Authenticator
	checkout    services.CheckoutService
	idempotency func(http.Handler) http.Handler
}

// CheckoutHandlerOption customises CheckoutHandlers.
type CheckoutHandlerOption func(*CheckoutHandlers)

// WithPaymentIdempotency guards the payment creation endpoints with mw.
func WithPaymentIdempotency(mw func(http.Handler) http.Handler) CheckoutHandlerOption {
	return func(h *CheckoutHandlers) {
		h.idempotency = mw
	}
}

// NewCheckoutHandlers constructs the /checkout and /payment handlers.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService, opts ...CheckoutHandlerOption) *CheckoutHandlers {
	h := &CheckoutHandlers{authn: authn, checkout: checkout}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /checkout wizard endpoints.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireAuth())
	}
	r.Get("/", h.getSession)
	r.Post("/start", h.start)
	r.Post("/shipping", h.saveShipping)
	r.Post("/step", h.goTo)
	r.Post("/confirm", h.confirm)
}

// PaymentRoutes wires the /payment endpoints. The provider callback is
// public and authenticated by its hash instead of a bearer token.
func (h *CheckoutHandlers) PaymentRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/callback", h.callback)
	r.Post("/callback/{provider}", h.callback)

	r.Group(func(pr chi.Router) {
		if h.authn != nil {
			pr.Use(h.authn.RequireAuth())
		}
		if h.idempotency != nil {
			pr.Use(h.idempotency)
		}
		pr.Post("/create-payment", h.createPayment)
		pr.Post("/create-order", h.createOrder)
	})
}

func (h *CheckoutHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	session, err := h.checkout.GetSession(ctx, identity.UID)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeSession(w, session)
}

func (h *CheckoutHandlers) start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	session, err := h.checkout.Start(ctx, identity.UID)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeSession(w, session)
}

func (h *CheckoutHandlers) saveShipping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req addressPayload
	if !decodeJSONBody(w, r, maxCheckoutBodySize, &req) {
		return
	}
	session, err := h.checkout.SaveShipping(ctx, identity.UID, req.toDomain())
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeSession(w, session)
}

type goToRequest struct {
	Step int `json:"step"`
}

func (h *CheckoutHandlers) goTo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req goToRequest
	if !decodeJSONBody(w, r, maxCheckoutBodySize, &req) {
		return
	}
	session, err := h.checkout.GoTo(ctx, identity.UID, domain.CheckoutStep(req.Step))
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeSession(w, session)
}

type confirmRequest struct {
	Result string `json:"result"`
}

// confirm handles the storefront redirect back from the payment page. The
// outcome comes from the body or the ?payment= query parameter.
func (h *CheckoutHandlers) confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	result := strings.TrimSpace(r.URL.Query().Get("payment"))
	if result == "" {
		var req confirmRequest
		if !decodeJSONBody(w, r, maxCheckoutBodySize, &req) {
			return
		}
		result = req.Result
	}
	session, err := h.checkout.Confirm(ctx, identity.UID, result)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeSession(w, session)
}

type createPaymentRequest struct {
	Provider string `json:"provider"`
}

func (h *CheckoutHandlers) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req createPaymentRequest
	body, err := readLimitedBody(r, maxCheckoutBodySize)
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

	session, err := h.checkout.CreatePayment(ctx, services.CreatePaymentCommand{
		UserID:         identity.UID,
		ClientIP:       clientIP(r),
		Provider:       req.Provider,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeSession(w, session)
}

func (h *CheckoutHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeUnavailable(ctx, w, "checkout")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	order, err := h.checkout.CreatePendingOrder(ctx, identity.UID)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildOrderPayload(order))
}

// callback answers the provider's server notification. PayTR retries until
// it receives a plain "OK".
func (h *CheckoutHandlers) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.checkout == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "UNAVAILABLE")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxCallbackBodySize)
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "INVALID")
		return
	}
	provider := chi.URLParam(r, "provider")
	if provider == "" {
		provider = defaultCallbackPSP
	}

	if err := h.checkout.HandleCallback(ctx, provider, r.PostForm); err != nil {
		logger := requestctx.Logger(ctx)
		if errors.Is(err, services.ErrCheckoutCallbackInvalid) {
			logger.Warn("payment callback rejected", zap.String("provider", provider), zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "INVALID")
			return
		}
		logger.Error("payment callback failed", zap.String("provider", provider), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "RETRY")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

func writeSession(w http.ResponseWriter, session services.CheckoutSession) {
	writeNoStore(w)
	writeJSONResponse(w, http.StatusOK, buildCheckoutPayload(session))
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput), errors.Is(err, services.ErrInvalidAddress):
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
	case errors.Is(err, services.ErrCheckoutCartEmpty):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutStepLocked):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_step_locked", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutPaymentFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_provider_error", "payment could not be started; try again", http.StatusBadGateway))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.Unavailable("checkout"))
	case errors.Is(err, services.ErrCartInvalidInput), errors.Is(err, services.ErrCartProductNotFound),
		errors.Is(err, services.ErrCartConflict), errors.Is(err, services.ErrCartUnavailable):
		writeCartError(ctx, w, err)
	case isOrderError(err):
		writeOrderError(ctx, w, err)
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "checkout request failed", http.StatusInternalServerError))
	}
}

func decodeJSONBytes(ctx context.Context, w http.ResponseWriter, body []byte, dst any) bool {
	if err := json.Unmarshal(body, dst); err != nil {
		httpx.WriteError(ctx, w, httpx.BadRequest("invalid JSON body: "+err.Error()))
		return false
	}
	return true
}
