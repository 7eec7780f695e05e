package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestPayTR(t *testing.T, handler http.HandlerFunc) *PayTRProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewPayTRProvider(PayTRConfig{
		MerchantID:   "123456",
		MerchantKey:  "key",
		MerchantSalt: "salt",
		BaseURL:      server.URL,
		TestMode:     true,
		OKURL:        "https://shop.example/checkout?payment=success",
		FailURL:      "https://shop.example/checkout?payment=failed",
		HTTPClient:   server.Client(),
		Clock:        func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return provider
}

func TestPayTRCreateCheckoutSessionSignsRequest(t *testing.T) {
	var form url.Values
	provider := newTestPayTR(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != payTRTokenPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		form = r.PostForm
		_, _ = w.Write([]byte(`{"status":"success","token":"tok123"}`))
	})

	session, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		MerchantOID: "JW2026000001",
		Amount:      152050,
		Currency:    "TRY",
		Buyer:       Buyer{Email: "ayse@example.com", Name: "Ayşe Yılmaz", IP: "203.0.113.7"},
		Items:       []CheckoutLineItem{{Name: "İnci Kolye", Quantity: 2, Amount: 76025}},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Token != "tok123" {
		t.Fatalf("expected token tok123, got %q", session.Token)
	}
	if !strings.HasSuffix(session.RedirectURL, "/odeme/guvenli/tok123") {
		t.Fatalf("unexpected iframe url %q", session.RedirectURL)
	}

	if form.Get("payment_amount") != "152050" {
		t.Fatalf("expected amount in kuruş, got %q", form.Get("payment_amount"))
	}
	if form.Get("currency") != "TL" || form.Get("test_mode") != "1" {
		t.Fatalf("unexpected currency/test mode %q/%q", form.Get("currency"), form.Get("test_mode"))
	}

	basketJSON, err := base64.StdEncoding.DecodeString(form.Get("user_basket"))
	if err != nil {
		t.Fatalf("decode basket: %v", err)
	}
	var basket [][]string
	if err := json.Unmarshal(basketJSON, &basket); err != nil {
		t.Fatalf("unmarshal basket: %v", err)
	}
	if len(basket) != 1 || basket[0][1] != "760.25" || basket[0][2] != "2" {
		t.Fatalf("unexpected basket %v", basket)
	}

	expected := provider.sign("123456", "203.0.113.7", "JW2026000001", "ayse@example.com", "152050",
		form.Get("user_basket"), "0", "0", "TL", "1")
	if form.Get("paytr_token") != expected {
		t.Fatalf("paytr_token mismatch")
	}
}

func TestPayTRCreateCheckoutSessionFailure(t *testing.T) {
	provider := newTestPayTR(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failed","reason":"invalid merchant"}`))
	})

	_, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		MerchantOID: "JW2026000002",
		Amount:      1000,
		Buyer:       Buyer{Email: "a@example.com", IP: "127.0.0.1"},
	})
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid merchant") {
		t.Fatalf("expected reason in error, got %v", err)
	}
}

func TestPayTRCreateCheckoutSessionRejectsNonAlphanumericOID(t *testing.T) {
	provider := newTestPayTR(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not be sent")
	})
	_, err := provider.CreateCheckoutSession(context.Background(), CheckoutSessionRequest{
		MerchantOID: "JW-2026-000001",
		Amount:      1000,
		Buyer:       Buyer{Email: "a@example.com", IP: "127.0.0.1"},
	})
	if err == nil {
		t.Fatal("expected error for dashes in merchant oid")
	}
}

func TestPayTRVerifyCallback(t *testing.T) {
	provider := newTestPayTR(t, func(w http.ResponseWriter, r *http.Request) {})

	form := url.Values{
		"merchant_oid": {"JW2026000001"},
		"status":       {"success"},
		"total_amount": {"152050"},
	}
	form.Set("hash", provider.sign("JW2026000001", "salt", "success", "152050"))

	result, err := provider.VerifyCallback(form)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != StatusSucceeded || result.TotalAmount != 152050 {
		t.Fatalf("unexpected result %+v", result)
	}

	form.Set("total_amount", "1")
	if _, err := provider.VerifyCallback(form); !errors.Is(err, ErrInvalidCallback) {
		t.Fatalf("expected tampered callback to fail, got %v", err)
	}
}

func TestPayTRVerifyCallbackFailedPayment(t *testing.T) {
	provider := newTestPayTR(t, func(w http.ResponseWriter, r *http.Request) {})
	form := url.Values{
		"merchant_oid":       {"JW2026000003"},
		"status":             {"failed"},
		"total_amount":       {"5000"},
		"failed_reason_code": {"2"},
		"failed_reason_msg":  {"Yetersiz bakiye"},
	}
	form.Set("hash", provider.sign("JW2026000003", "salt", "failed", "5000"))

	result, err := provider.VerifyCallback(form)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != StatusFailed || result.FailureReason != "Yetersiz bakiye" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestPayTRRefund(t *testing.T) {
	var form url.Values
	provider := newTestPayTR(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != payTRRefundPath {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = r.ParseForm()
		form = r.PostForm
		_, _ = w.Write([]byte(`{"status":"success","merchant_oid":"JW2026000001","return_amount":"250.00"}`))
	})

	details, err := provider.Refund(context.Background(), RefundRequest{MerchantOID: "JW2026000001", Amount: 25000})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if details.Status != StatusRefunded || details.RefundedAt == nil {
		t.Fatalf("unexpected details %+v", details)
	}
	if form.Get("return_amount") != "250.00" {
		t.Fatalf("expected decimal return amount, got %q", form.Get("return_amount"))
	}
	if form.Get("paytr_token") != provider.sign("123456", "JW2026000001", "250.00", "salt") {
		t.Fatalf("refund token mismatch")
	}
}

func TestPayTRLookupPayment(t *testing.T) {
	provider := newTestPayTR(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","payment_amount":"1500.50","payment_total":"1520.50"}`))
	})
	details, err := provider.LookupPayment(context.Background(), LookupRequest{MerchantOID: "JW2026000001"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if details.Status != StatusSucceeded || details.Amount != 152050 {
		t.Fatalf("unexpected details %+v", details)
	}
}

func TestNewPayTRProviderRequiresCredentials(t *testing.T) {
	if _, err := NewPayTRProvider(PayTRConfig{MerchantID: "1", MerchantKey: "k"}); err == nil {
		t.Fatal("expected missing salt to fail")
	}
}
