package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jewelry-storefront/api/checkout"

// CheckoutMetrics counts payment attempts and their outcome per provider.
type CheckoutMetrics struct {
	payments metric.Int64Counter
	orders   metric.Int64Counter
}

// NewCheckoutMetrics registers instruments on the global meter provider.
// A nil meter falls back to otel.GetMeterProvider().
func NewCheckoutMetrics(meter metric.Meter) (*CheckoutMetrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(meterName)
	}
	payments, err := meter.Int64Counter("checkout.payments",
		metric.WithDescription("Payment token requests and provider callbacks by outcome"))
	if err != nil {
		return nil, err
	}
	orders, err := meter.Int64Counter("checkout.orders.created",
		metric.WithDescription("Pending orders created from checkout"))
	if err != nil {
		return nil, err
	}
	return &CheckoutMetrics{payments: payments, orders: orders}, nil
}

// PaymentOutcome records one payment event, e.g. ("paytr", "token_issued").
func (m *CheckoutMetrics) PaymentOutcome(ctx context.Context, provider, outcome string) {
	if m == nil {
		return
	}
	m.payments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}

// OrderCreated records a new pending order.
func (m *CheckoutMetrics) OrderCreated(ctx context.Context, currency string) {
	if m == nil {
		return
	}
	m.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("currency", currency)))
}
