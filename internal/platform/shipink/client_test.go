package shipink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL, "sk_test", WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreateShipmentSendsBearerAndDefaultsParcel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/shipments" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req CreateShipmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Reference != "JW-2026-000001" || len(req.Parcels) != 1 {
			t.Fatalf("unexpected request %+v", req)
		}
		_ = json.NewEncoder(w).Encode(Shipment{ID: "shp_1", Carrier: "yurtici", TrackingNumber: "YK123", TrackingURL: "https://track/YK123"})
	})

	shipment, err := client.CreateShipment(context.Background(), CreateShipmentRequest{
		Reference: "JW-2026-000001",
		Recipient: Address{Name: "Ayşe", City: "İstanbul", Country: "TR"},
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if shipment.ID != "shp_1" || shipment.TrackingNumber != "YK123" {
		t.Fatalf("unexpected shipment %+v", shipment)
	}
}

func TestTrackNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := client.Track(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrackDecodesEvents(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tracking/YK123" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"trackingNumber":"YK123","status":"in_transit","events":[{"status":"picked_up","location":"Ankara","occurredAt":"2026-03-01T09:00:00Z"}]}`))
	})
	tracking, err := client.Track(context.Background(), "YK123")
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if len(tracking.Events) != 1 || tracking.Events[0].Location != "Ankara" {
		t.Fatalf("unexpected tracking %+v", tracking)
	}
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid postal code"}`))
	})
	err := client.CancelShipment(context.Background(), "shp_1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "invalid postal code" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if _, err := client.GetShipment(context.Background(), "shp_1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("", " "); err == nil {
		t.Fatal("expected error for blank api key")
	}
}
