package domain

import "testing"

func TestShippingPolicyPrice(t *testing.T) {
	policy := ShippingPolicy{Fee: 4999, FreeShippingMinimum: 100000}

	cases := []struct {
		name     string
		items    int64
		shipping int64
	}{
		{"below threshold pays flat fee", 99999, 4999},
		{"threshold is free", 100000, 0},
		{"above threshold is free", 250000, 0},
		{"empty cart has no shipping", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := policy.Price(tc.items, "")
			if got.ShippingPrice != tc.shipping {
				t.Fatalf("expected shipping %d got %d", tc.shipping, got.ShippingPrice)
			}
			if got.TotalPrice != tc.items+tc.shipping {
				t.Fatalf("unexpected total %d", got.TotalPrice)
			}
			if got.Currency != DefaultCurrency {
				t.Fatalf("expected default currency, got %s", got.Currency)
			}
		})
	}
}

func TestCheckoutSessionSteps(t *testing.T) {
	s := CheckoutSession{CompletedSteps: []CheckoutStep{CheckoutStepShipping}}
	if !s.IsCompleted(CheckoutStepShipping) || s.IsCompleted(CheckoutStepPayment) {
		t.Fatalf("unexpected completion state %v", s.CompletedSteps)
	}
	if s.MaxCompleted() != CheckoutStepShipping {
		t.Fatalf("expected max completed 1, got %d", s.MaxCompleted())
	}
	if CheckoutStep(4).Valid() || !CheckoutStepReview.Valid() {
		t.Fatal("unexpected step validity")
	}
}
