package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/idempotency"
	"github.com/jewelry-storefront/api/internal/services"
)

func TestCheckoutHandlersSession(t *testing.T) {
	svc := &stubCheckoutService{session: services.CheckoutSession{
		UserID:         "u1",
		Step:           domain.CheckoutStepPayment,
		CompletedSteps: []domain.CheckoutStep{domain.CheckoutStepShipping},
		Status:         domain.CheckoutStatusInProgress,
	}}
	handler := NewCheckoutHandlers(nil, svc)

	rr := serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), "u1", false))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body checkoutPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Step != 2 || len(body.CompletedSteps) != 1 || body.CompletedSteps[0] != 1 || body.Status != "in_progress" {
		t.Fatalf("unexpected session %+v", body)
	}
}

func TestCheckoutHandlersGoToLocked(t *testing.T) {
	svc := &stubCheckoutService{err: services.ErrCheckoutStepLocked}
	handler := NewCheckoutHandlers(nil, svc)

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/step", strings.NewReader(`{"step":3}`)), "u1", false)
	rr := serve(handler.Routes, req)
	if rr.Code != http.StatusConflict || decodeErrorCode(t, rr) != "checkout_step_locked" {
		t.Fatalf("expected checkout_step_locked, got %d %s", rr.Code, rr.Body.String())
	}
	if svc.lastStep != domain.CheckoutStepReview {
		t.Fatalf("expected step 3 to be requested, got %d", svc.lastStep)
	}
}

func TestCheckoutHandlersConfirmReadsQuery(t *testing.T) {
	svc := &stubCheckoutService{session: services.CheckoutSession{Status: domain.CheckoutStatusPaymentFailed, Step: domain.CheckoutStepPayment}}
	handler := NewCheckoutHandlers(nil, svc)

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/confirm?payment=failed", nil), "u1", false)
	rr := serve(handler.Routes, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.lastResult != services.ConfirmResultFailed {
		t.Fatalf("expected failed result, got %q", svc.lastResult)
	}

	req = withIdentity(httptest.NewRequest(http.MethodPost, "/confirm", strings.NewReader(`{"result":"success"}`)), "u1", false)
	serve(handler.Routes, req)
	if svc.lastResult != services.ConfirmResultSuccess {
		t.Fatalf("expected success result from body, got %q", svc.lastResult)
	}
}

func TestCheckoutHandlersCreatePayment(t *testing.T) {
	svc := &stubCheckoutService{session: services.CheckoutSession{
		Step:         domain.CheckoutStepReview,
		PaymentToken: "tok",
		IframeURL:    "https://www.paytr.com/odeme/guvenli/tok",
		Status:       domain.CheckoutStatusAwaitingPayment,
	}}
	handler := NewCheckoutHandlers(nil, svc, WithPaymentIdempotency(idempotency.Middleware(idempotency.NewMemoryStore())))

	newReq := func(key string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/create-payment", strings.NewReader(`{}`))
		req.RemoteAddr = "203.0.113.7:5123"
		if key != "" {
			req.Header.Set(idempotencyHeader, key)
		}
		return withIdentity(req, "u1", false)
	}

	rr := serve(handler.PaymentRoutes, newReq(""))
	if rr.Code != http.StatusBadRequest || decodeErrorCode(t, rr) != "idempotency_key_required" {
		t.Fatalf("expected idempotency_key_required, got %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(handler.PaymentRoutes, newReq("k1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.lastPayment.ClientIP != "203.0.113.7" || svc.lastPayment.UserID != "u1" || svc.lastPayment.IdempotencyKey != "k1" {
		t.Fatalf("unexpected payment command %+v", svc.lastPayment)
	}
	var body checkoutPayload
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.IframeURL == "" || body.Step != 3 {
		t.Fatalf("unexpected session %+v", body)
	}
}

func TestCheckoutHandlersCreatePaymentProviderFailure(t *testing.T) {
	svc := &stubCheckoutService{err: errors.Join(services.ErrCheckoutPaymentFailed, errors.New("paytr: reason=invalid merchant"))}
	handler := NewCheckoutHandlers(nil, svc)

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/create-payment", nil), "u1", false)
	rr := serve(handler.PaymentRoutes, req)
	if rr.Code != http.StatusBadGateway || decodeErrorCode(t, rr) != "payment_provider_error" {
		t.Fatalf("expected payment_provider_error, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestCheckoutHandlersCreateOrderFallsBackToOrderErrors(t *testing.T) {
	svc := &stubCheckoutService{err: services.ErrCheckoutCartEmpty}
	handler := NewCheckoutHandlers(nil, svc)
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/create-order", nil), "u1", false)
	rr := serve(handler.PaymentRoutes, req)
	if rr.Code != http.StatusBadRequest || decodeErrorCode(t, rr) != "cart_empty" {
		t.Fatalf("expected cart_empty, got %d %s", rr.Code, rr.Body.String())
	}

	svc.err = services.ErrOrderUnavailable
	rr = serve(handler.PaymentRoutes, withIdentity(httptest.NewRequest(http.MethodPost, "/create-order", nil), "u1", false))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestCheckoutHandlersCallback(t *testing.T) {
	svc := &stubCheckoutService{}
	handler := NewCheckoutHandlers(nil, svc)

	form := "merchant_oid=JW2026000001&status=success&total_amount=64999&hash=abc"
	req := httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := serve(handler.PaymentRoutes, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Fatalf("expected plain OK, got %d %q", rr.Code, rr.Body.String())
	}
	if len(svc.callbacks) != 1 || svc.callbacks[0].Get("merchant_oid") != "JW2026000001" {
		t.Fatalf("unexpected callback form %v", svc.callbacks)
	}

	svc.callbackErr = errors.Join(services.ErrCheckoutCallbackInvalid, errors.New("hash mismatch"))
	req = httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = serve(handler.PaymentRoutes, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad hash, got %d", rr.Code)
	}

	svc.callbackErr = services.ErrOrderUnavailable
	req = httptest.NewRequest(http.MethodPost, "/callback", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = serve(handler.PaymentRoutes, req)
	if rr.Code != http.StatusInternalServerError || rr.Body.String() == "OK" {
		t.Fatalf("transient failure must not acknowledge, got %d %q", rr.Code, rr.Body.String())
	}
}
