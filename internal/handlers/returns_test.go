package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/services"
)

func TestReturnHandlersCreate(t *testing.T) {
	svc := &stubReturnService{}
	handler := NewReturnHandlers(nil, svc)

	body := `{"orderId":" o1 ","items":[{"productId":"p1","qty":1}],"reason":"Damaged","note":"clasp broken"}`
	rr := serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "u1", false))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Location") != "/api/returns/ret_1" {
		t.Fatalf("unexpected location %q", rr.Header().Get("Location"))
	}
	got := svc.created
	if got.UserID != "u1" || got.OrderID != "o1" || got.Reason != domain.ReturnReasonDamaged || len(got.Items) != 1 || got.Items[0].Qty != 1 {
		t.Fatalf("unexpected command %+v", got)
	}
}

func TestReturnHandlersCreateErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{errors.Join(services.ErrReturnNotEligible, errors.New("return window closed")), http.StatusUnprocessableEntity, "return_not_eligible"},
		{services.ErrReturnConflict, http.StatusConflict, "return_conflict"},
		{services.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
		{services.ErrReturnRefundFailed, http.StatusBadGateway, "payment_provider_error"},
	}
	for _, tc := range cases {
		svc := &stubReturnService{err: tc.err}
		req := withIdentity(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"orderId":"o1","reason":"other"}`)), "u1", false)
		rr := serve(NewReturnHandlers(nil, svc).Routes, req)
		if rr.Code != tc.status || decodeErrorCode(t, rr) != tc.code {
			t.Fatalf("%v: expected %d %s, got %d %s", tc.err, tc.status, tc.code, rr.Code, rr.Body.String())
		}
	}
}

func TestReturnHandlersListScopesToCaller(t *testing.T) {
	svc := &stubReturnService{}
	handler := NewReturnHandlers(nil, svc)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/?userId=someone-else&status=pending,approved", nil), "u1", false)
	rr := serve(handler.Routes, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.listed.UserID != "u1" {
		t.Fatalf("customer must only see own returns, got filter %+v", svc.listed)
	}
	if len(svc.listed.Status) != 2 || svc.listed.Status[1] != domain.ReturnStatusApproved {
		t.Fatalf("unexpected status filter %+v", svc.listed.Status)
	}

	rr = serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), "admin", true))
	if rr.Code != http.StatusOK || svc.listed.UserID != "" {
		t.Fatalf("admin without userId should list everything, got %+v", svc.listed)
	}

	rr = serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodGet, "/?userId=u9", nil), "admin", true))
	if rr.Code != http.StatusOK || svc.listed.UserID != "u9" {
		t.Fatalf("admin userId filter ignored, got %+v", svc.listed)
	}
}
