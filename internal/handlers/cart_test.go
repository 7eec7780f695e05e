package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/services"
)

func serve(routes RouteRegistrar, req *http.Request) *httptest.ResponseRecorder {
	router := chi.NewRouter()
	routes(router)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCartHandlersGetCart(t *testing.T) {
	updated := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubCartService{
		getFn: func(_ context.Context, userID string) (services.Cart, error) {
			return services.Cart{
				UserID:    userID,
				Items:     []services.CartItem{{ProductID: "p1", Name: "Yüzük", Price: 25000, Qty: 2}},
				UpdatedAt: updated,
			}, nil
		},
	}
	handler := NewCartHandlers(nil, svc)

	rr := serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), "u1", false))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var body cartPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.UserID != "u1" || body.ItemCount != 2 || body.ItemsPrice != 50000 {
		t.Fatalf("unexpected cart %+v", body)
	}
	if rr.Header().Get("Cache-Control") == "" || rr.Header().Get("Last-Modified") == "" {
		t.Fatalf("expected no-store and last-modified headers")
	}
}

func TestCartHandlersRequireIdentity(t *testing.T) {
	handler := NewCartHandlers(nil, &stubCartService{})
	rr := serve(handler.Routes, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCartHandlersUnavailable(t *testing.T) {
	handler := NewCartHandlers(nil, nil)
	rr := serve(handler.Routes, withIdentity(httptest.NewRequest(http.MethodGet, "/", nil), "u1", false))
	if rr.Code != http.StatusServiceUnavailable || decodeErrorCode(t, rr) != "cart_service_unavailable" {
		t.Fatalf("expected cart_service_unavailable, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestCartHandlersDispatchActions(t *testing.T) {
	var got []services.CartAction
	svc := &stubCartService{
		dispatchFn: func(_ context.Context, userID string, action services.CartAction) (services.Cart, error) {
			got = append(got, action)
			return services.Cart{UserID: userID}, nil
		},
	}
	handler := NewCartHandlers(nil, svc)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		check  func(t *testing.T, a services.CartAction)
	}{
		{"action add", http.MethodPost, "/actions", `{"type":"add_to_cart","item":{"productId":"p1","qty":3}}`, func(t *testing.T, a services.CartAction) {
			if a.Type != domain.CartActionAdd || a.Item == nil || a.Item.ProductID != "p1" || a.Item.Qty != 3 {
				t.Fatalf("unexpected action %+v", a)
			}
		}},
		{"put item", http.MethodPut, "/items/p2", `{"qty":1}`, func(t *testing.T, a services.CartAction) {
			if a.Type != domain.CartActionAdd || a.Item.ProductID != "p2" || a.Item.Qty != 1 {
				t.Fatalf("unexpected action %+v", a)
			}
		}},
		{"remove item", http.MethodDelete, "/items/p2", "", func(t *testing.T, a services.CartAction) {
			if a.Type != domain.CartActionRemove || a.ProductID != "p2" {
				t.Fatalf("unexpected action %+v", a)
			}
		}},
		{"clear", http.MethodDelete, "/", "", func(t *testing.T, a services.CartAction) {
			if a.Type != domain.CartActionClear {
				t.Fatalf("unexpected action %+v", a)
			}
		}},
		{"shipping address", http.MethodPut, "/shipping-address", `{"fullName":" Ayşe Yılmaz ","city":"İzmir"}`, func(t *testing.T, a services.CartAction) {
			if a.Type != domain.CartActionSaveShipping || a.Address == nil || a.Address.FullName != "Ayşe Yılmaz" || a.Address.City != "İzmir" {
				t.Fatalf("unexpected action %+v", a)
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got = nil
			req := withIdentity(httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)), "u1", false)
			rr := serve(handler.Routes, req)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
			}
			if len(got) != 1 {
				t.Fatalf("expected one dispatch, got %d", len(got))
			}
			tc.check(t, got[0])
		})
	}
}

func TestCartHandlersErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: qty must be between 1 and 10", services.ErrCartInvalidInput), http.StatusBadRequest, "invalid_request"},
		{services.ErrCartProductNotFound, http.StatusNotFound, "product_not_found"},
		{services.ErrCartConflict, http.StatusConflict, "cart_conflict"},
		{services.ErrCartUnavailable, http.StatusServiceUnavailable, "cart_service_unavailable"},
	}
	for _, tc := range cases {
		svc := &stubCartService{dispatchFn: func(context.Context, string, services.CartAction) (services.Cart, error) {
			return services.Cart{}, tc.err
		}}
		req := withIdentity(httptest.NewRequest(http.MethodPut, "/items/p1", strings.NewReader(`{"qty":99}`)), "u1", false)
		rr := serve(NewCartHandlers(nil, svc).Routes, req)
		if rr.Code != tc.status || decodeErrorCode(t, rr) != tc.code {
			t.Fatalf("%v: expected %d %s, got %d %s", tc.err, tc.status, tc.code, rr.Code, rr.Body.String())
		}
	}
}

func TestCartHandlersRejectsBadBody(t *testing.T) {
	svc := &stubCartService{}
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/actions", strings.NewReader(`{"type":`)), "u1", false)
	rr := serve(NewCartHandlers(nil, svc).Routes, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
