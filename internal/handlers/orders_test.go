package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/services"
)

func sampleOrder(id, userID string, status domain.OrderStatus) services.Order {
	return services.Order{
		ID:          id,
		OrderNumber: "JW-2026-000042",
		UserID:      userID,
		Items:       []domain.OrderItem{{ProductID: "p1", Name: "Bileklik", Qty: 1, Price: 30000}},
		ItemsPrice:  30000,
		TotalPrice:  30000,
		Currency:    "TRY",
		Status:      status,
		CreatedAt:   time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestOrderHandlersListMine(t *testing.T) {
	var got services.OrderListFilter
	svc := &stubOrderService{listFn: func(_ context.Context, filter services.OrderListFilter) (domain.Page[services.Order], error) {
		got = filter
		return domain.Page[services.Order]{
			Items:         []services.Order{sampleOrder("o1", filter.UserID, domain.OrderStatusProcessing)},
			NextPageToken: "next",
		}, nil
	}}
	handler := NewOrderHandlers(nil, svc, nil)

	rr := serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodGet, "/mine?pageSize=5", nil), "u1", false))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.UserID != "u1" || got.Pagination.PageSize != 5 {
		t.Fatalf("unexpected filter %+v", got)
	}
	var body struct {
		Items []struct {
			ID         string           `json:"id"`
			Status     string           `json:"status"`
			OrderItems []map[string]any `json:"orderItems"`
		} `json:"items"`
		NextPageToken string `json:"nextPageToken"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Status != "processing" || len(body.Items[0].OrderItems) != 1 || body.NextPageToken != "next" {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestOrderHandlersGetForbidden(t *testing.T) {
	var viewer services.Viewer
	svc := &stubOrderService{getFn: func(_ context.Context, _ string, v services.Viewer) (services.Order, error) {
		viewer = v
		return services.Order{}, services.ErrOrderForbidden
	}}
	rr := serve(NewOrderHandlers(nil, svc, nil).Routes, withIdentity(httptest.NewRequest(http.MethodGet, "/o9", nil), "u2", false))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if viewer.UserID != "u2" || viewer.IsAdmin {
		t.Fatalf("unexpected viewer %+v", viewer)
	}
}

func TestOrderHandlersAdminListFilters(t *testing.T) {
	var got services.OrderListFilter
	svc := &stubOrderService{listFn: func(_ context.Context, filter services.OrderListFilter) (domain.Page[services.Order], error) {
		got = filter
		return domain.Page[services.Order]{}, nil
	}}
	handler := NewOrderHandlers(nil, svc, nil)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/?status=pending,Processing&status=shipped&userId=u7", nil), "admin", true)
	rr := serve(handler.Routes, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.UserID != "u7" || len(got.Status) != 3 || got.Status[1] != domain.OrderStatusProcessing {
		t.Fatalf("unexpected filter %+v", got)
	}
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if items, ok := body["items"].([]any); !ok || len(items) != 0 {
		t.Fatalf("expected empty items array, got %v", body["items"])
	}

	req = withIdentity(httptest.NewRequest(http.MethodGet, "/?status=lost", nil), "admin", true)
	rr = serve(handler.Routes, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rr.Code)
	}
}

func TestOrderHandlersUpdateStatus(t *testing.T) {
	var got services.OrderTransitionCommand
	svc := &stubOrderService{statusFn: func(_ context.Context, cmd services.OrderTransitionCommand) (services.Order, error) {
		got = cmd
		if cmd.To == domain.OrderStatusPending {
			return services.Order{}, services.ErrOrderInvalidState
		}
		return sampleOrder(cmd.OrderID, "u1", cmd.To), nil
	}}
	handler := NewOrderHandlers(nil, svc, nil)

	req := withIdentity(httptest.NewRequest(http.MethodPut, "/o1/status", strings.NewReader(`{"status":"delivered"}`)), "admin", true)
	rr := serve(handler.Routes, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.OrderID != "o1" || got.To != domain.OrderStatusDelivered || got.ActorID != "admin" {
		t.Fatalf("unexpected command %+v", got)
	}

	req = withIdentity(httptest.NewRequest(http.MethodPut, "/o1/status", strings.NewReader(`{"status":"pending"}`)), "admin", true)
	rr = serve(handler.Routes, req)
	if rr.Code != http.StatusConflict || decodeErrorCode(t, rr) != "invalid_order_status" {
		t.Fatalf("expected invalid_order_status, got %d %s", rr.Code, rr.Body.String())
	}

	req = withIdentity(httptest.NewRequest(http.MethodPut, "/o1/status", strings.NewReader(`{"status":"teleported"}`)), "admin", true)
	rr = serve(handler.Routes, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rr.Code)
	}
}

func TestOrderHandlersCancelWithoutBody(t *testing.T) {
	var got services.CancelOrderCommand
	svc := &stubOrderService{cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
		got = cmd
		return sampleOrder(cmd.OrderID, cmd.Viewer.UserID, domain.OrderStatusCancelled), nil
	}}
	handler := NewOrderHandlers(nil, svc, nil)

	rr := serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodPost, "/o1/cancel", nil), "u1", false))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.OrderID != "o1" || got.Viewer.UserID != "u1" || got.Reason != "" {
		t.Fatalf("unexpected command %+v", got)
	}

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/o1/cancel", strings.NewReader(`{"reason":" changed my mind "}`)), "u1", false)
	serve(handler.Routes, req)
	if got.Reason != "changed my mind" {
		t.Fatalf("expected trimmed reason, got %q", got.Reason)
	}
}

func TestOrderHandlersReturnEligibility(t *testing.T) {
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	returns := &stubReturnService{eligibility: services.ReturnEligibility{Eligible: true, Deadline: &deadline}}
	handler := NewOrderHandlers(nil, &stubOrderService{}, returns)

	rr := serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodGet, "/o1/return-eligibility", nil), "u1", false))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body eligibilityResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if !body.Eligible || body.Deadline != "2026-06-01T00:00:00Z" {
		t.Fatalf("unexpected eligibility %+v", body)
	}

	handler = NewOrderHandlers(nil, &stubOrderService{}, nil)
	rr = serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodGet, "/o1/return-eligibility", nil), "u1", false))
	if rr.Code != http.StatusServiceUnavailable || decodeErrorCode(t, rr) != "return_service_unavailable" {
		t.Fatalf("expected return_service_unavailable, got %d %s", rr.Code, rr.Body.String())
	}
}
