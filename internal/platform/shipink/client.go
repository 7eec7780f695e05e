// Package shipink is a small client for the Shipink shipment API.
package shipink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.shipink.io/v1"
	defaultTimeout     = 15 * time.Second
	maxResponseBytes   = 1 << 20
	maxErrorBodyLength = 256
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("shipink: not found")
	// ErrUnauthorized is returned when the API key is rejected.
	ErrUnauthorized = errors.New("shipink: unauthorized")
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shipink: status %d: %s", e.StatusCode, e.Message)
}

// Address is a shipment party.
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address"`
	District   string `json:"district"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// Parcel describes the package.
type Parcel struct {
	WeightGrams int    `json:"weightGrams"`
	Desi        int    `json:"desi,omitempty"`
	Description string `json:"description,omitempty"`
}

// CreateShipmentRequest books a shipment.
type CreateShipmentRequest struct {
	Reference string   `json:"reference"`
	Carrier   string   `json:"carrier,omitempty"`
	Recipient Address  `json:"recipient"`
	Parcels   []Parcel `json:"parcels"`
	// CODAmount is cash-on-delivery in kuruş; zero for prepaid orders.
	CODAmount int64 `json:"codAmount,omitempty"`
}

// Shipment is a booked shipment.
type Shipment struct {
	ID             string    `json:"id"`
	Reference      string    `json:"reference"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"trackingNumber"`
	TrackingURL    string    `json:"trackingUrl"`
	Status         string    `json:"status"`
	LabelURL       string    `json:"labelUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TrackingEvent is one carrier scan.
type TrackingEvent struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Tracking is the carrier history for a tracking number.
type Tracking struct {
	TrackingNumber string          `json:"trackingNumber"`
	Carrier        string          `json:"carrier"`
	Status         string          `json:"status"`
	Delivered      bool            `json:"delivered"`
	Events         []TrackingEvent `json:"events"`
}

// Client calls the Shipink REST API with a bearer key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// NewClient builds a client. baseURL defaults to the production API.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("shipink: api key is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("shipink: invalid base url: %w", err)
	}
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// CreateShipment books a shipment and returns its tracking data.
func (c *Client) CreateShipment(ctx context.Context, req CreateShipmentRequest) (Shipment, error) {
	if strings.TrimSpace(req.Reference) == "" {
		return Shipment{}, errors.New("shipink: reference is required")
	}
	if len(req.Parcels) == 0 {
		req.Parcels = []Parcel{{WeightGrams: 250, Desi: 1}}
	}
	var out Shipment
	err := c.do(ctx, http.MethodPost, "/shipments", req, &out)
	return out, err
}

// GetShipment fetches a shipment by ID.
func (c *Client) GetShipment(ctx context.Context, shipmentID string) (Shipment, error) {
	var out Shipment
	err := c.do(ctx, http.MethodGet, "/shipments/"+url.PathEscape(strings.TrimSpace(shipmentID)), nil, &out)
	return out, err
}

// Track returns the scan history for a tracking number.
func (c *Client) Track(ctx context.Context, trackingNumber string) (Tracking, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return Tracking{}, errors.New("shipink: tracking number is required")
	}
	var out Tracking
	err := c.do(ctx, http.MethodGet, "/tracking/"+url.PathEscape(trackingNumber), nil, &out)
	return out, err
}

// CancelShipment voids a shipment that has not been picked up.
func (c *Client) CancelShipment(ctx context.Context, shipmentID string) error {
	return c.do(ctx, http.MethodDelete, "/shipments/"+url.PathEscape(strings.TrimSpace(shipmentID)), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("shipink: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("shipink: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shipink: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("shipink: read response: %w", err)
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case res.StatusCode >= http.StatusBadRequest:
		return &APIError{StatusCode: res.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("shipink: decode response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBodyLength {
		msg = msg[:maxErrorBodyLength]
	}
	return msg
}
