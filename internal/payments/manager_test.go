package payments

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

type fakeProvider struct {
	lastOp  string
	session CheckoutSession
	payment PaymentDetails
	err     error
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	f.lastOp = "create"
	return f.session, f.err
}

func (f *fakeProvider) Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error) {
	f.lastOp = "refund"
	return f.payment, f.err
}

func (f *fakeProvider) LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error) {
	f.lastOp = "lookup"
	return f.payment, f.err
}

type fakeCallbackProvider struct {
	fakeProvider
	result CallbackResult
}

func (f *fakeCallbackProvider) VerifyCallback(form url.Values) (CallbackResult, error) {
	f.lastOp = "callback"
	return f.result, f.err
}

func TestManagerCreateCheckoutSessionUsesPreferredProvider(t *testing.T) {
	ctx := context.Background()
	paytr := &fakeProvider{session: CheckoutSession{ID: "sess_paytr"}}
	stripe := &fakeProvider{session: CheckoutSession{ID: "sess_stripe"}}

	mgr, err := NewManager(map[string]Provider{
		ProviderPayTR:  paytr,
		ProviderStripe: stripe,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	session, err := mgr.CreateCheckoutSession(ctx, PaymentContext{PreferredProvider: "Stripe"}, CheckoutSessionRequest{Currency: "TRY"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Provider != ProviderStripe {
		t.Fatalf("expected provider stripe, got %q", session.Provider)
	}
	if stripe.lastOp != "create" || paytr.lastOp != "" {
		t.Fatalf("unexpected routing paytr=%q stripe=%q", paytr.lastOp, stripe.lastOp)
	}
}

func TestManagerRoutesByCurrency(t *testing.T) {
	ctx := context.Background()
	paytr := &fakeProvider{}
	stripe := &fakeProvider{}

	mgr, err := NewManager(map[string]Provider{
		ProviderPayTR:  paytr,
		ProviderStripe: stripe,
	}, WithCurrencyRoutes(map[string]string{"eur": ProviderStripe}))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := mgr.Refund(ctx, PaymentContext{Currency: "EUR"}, RefundRequest{Reference: "pi_1"}); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if stripe.lastOp != "refund" {
		t.Fatalf("expected stripe to handle EUR, got %q", stripe.lastOp)
	}

	key, err := mgr.ResolveProvider(PaymentContext{Currency: "TRY"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if key != ProviderPayTR {
		t.Fatalf("expected TRY to default to paytr, got %q", key)
	}
}

func TestManagerUnknownPreferredProvider(t *testing.T) {
	mgr, err := NewManager(map[string]Provider{ProviderPayTR: &fakeProvider{}})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	_, err = mgr.LookupPayment(context.Background(), PaymentContext{PreferredProvider: "iyzico"}, LookupRequest{MerchantOID: "x"})
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestManagerVerifyCallbackRequiresVerifier(t *testing.T) {
	paytr := &fakeCallbackProvider{result: CallbackResult{MerchantOID: "JW1", Status: StatusSucceeded}}
	mgr, err := NewManager(map[string]Provider{
		ProviderPayTR:  paytr,
		ProviderStripe: &fakeProvider{},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	result, err := mgr.VerifyCallback(ProviderPayTR, url.Values{})
	if err != nil {
		t.Fatalf("verify callback: %v", err)
	}
	if result.Provider != ProviderPayTR || result.MerchantOID != "JW1" {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := mgr.VerifyCallback(ProviderStripe, url.Values{}); !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected stripe callbacks to be unsupported, got %v", err)
	}
}

func TestNewManagerValidatesProviders(t *testing.T) {
	if _, err := NewManager(nil); err == nil {
		t.Fatalf("expected error for empty provider map")
	}
	if _, err := NewManager(map[string]Provider{" ": &fakeProvider{}}); err == nil {
		t.Fatalf("expected error for blank provider key")
	}
}
