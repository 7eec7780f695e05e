package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or PSP confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the PSP reports the payment as successfully captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the PSP reports a failure and no further action is possible.
	StatusFailed Status = "failed"
	// StatusRefunded indicates the payment has been refunded (partially or fully).
	StatusRefunded Status = "refunded"
)

// Provider keys.
const (
	ProviderPayTR  = "paytr"
	ProviderStripe = "stripe"
)

var (
	// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
	ErrUnsupportedProvider = errors.New("payments: unsupported provider")
	// ErrInvalidCallback is returned when a provider callback fails verification.
	ErrInvalidCallback = errors.New("payments: invalid callback")
	// ErrProviderRejected wraps a request the PSP answered with a failure status.
	ErrProviderRejected = errors.New("payments: provider rejected request")
)

// CheckoutLineItem is one basket line. Amount is the unit price in minor units.
type CheckoutLineItem struct {
	Name     string
	SKU      string
	Quantity int64
	Amount   int64
}

// Buyer carries the customer fields hosted payment pages require.
type Buyer struct {
	Email   string
	Name    string
	Phone   string
	Address string
	IP      string
}

// CheckoutSessionRequest captures the payload required to create a checkout session.
type CheckoutSessionRequest struct {
	MerchantOID    string
	Amount         int64
	Currency       string
	Buyer          Buyer
	SuccessURL     string
	CancelURL      string
	Locale         string
	Metadata       map[string]string
	IdempotencyKey string
	Items          []CheckoutLineItem
}

// CheckoutSession is what the client needs to render the payment step.
// Token is the PSP session handle; RedirectURL is the iframe or hosted page.
type CheckoutSession struct {
	ID          string
	Provider    string
	Token       string
	RedirectURL string
	IntentID    string
	ExpiresAt   time.Time
}

// RefundRequest defines a PSP refund attempt. Reference is the provider's
// payment handle when it differs from MerchantOID.
type RefundRequest struct {
	MerchantOID    string
	Reference      string
	Amount         int64
	Currency       string
	Reason         string
	IdempotencyKey string
}

// LookupRequest identifies a payment for reconciliation.
type LookupRequest struct {
	MerchantOID string
	Reference   string
}

// PaymentDetails normalises PSP specific fields for storage.
type PaymentDetails struct {
	Provider    string
	MerchantOID string
	IntentID    string
	Status      Status
	Amount      int64
	Currency    string
	RefundedAt  *time.Time
}

// CallbackResult is a verified server-to-server payment notification.
type CallbackResult struct {
	Provider      string
	MerchantOID   string
	Status        Status
	TotalAmount   int64
	FailureCode   string
	FailureReason string
	TestMode      bool
}

// Provider defines the contract for PSP adapters to implement.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error)
	LookupPayment(ctx context.Context, req LookupRequest) (PaymentDetails, error)
}

// CallbackVerifier is implemented by providers that notify the merchant with
// signed form posts.
type CallbackVerifier interface {
	VerifyCallback(form url.Values) (CallbackResult, error)
}

// Manager coordinates provider selection and exposes the aggregated interface.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	currencyRoutes  map[string]string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the default provider for currencies without explicit routing.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = provider
	}
}

// WithCurrencyRoutes configures static currency to provider mappings.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.currencyRoutes == nil {
			m.currencyRoutes = make(map[string]string, len(routes))
		}
		for k, v := range routes {
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
}

// NewManager constructs a Manager over the supplied providers. PayTR is the
// default when registered since the shop sells in TRY.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	copyMap := make(map[string]Provider, len(providers))
	for k, v := range providers {
		key := strings.TrimSpace(strings.ToLower(k))
		if key == "" || v == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", k)
		}
		copyMap[key] = v
	}
	m := &Manager{
		providers: copyMap,
	}
	if _, ok := copyMap[ProviderPayTR]; ok {
		m.defaultProvider = ProviderPayTR
	} else if _, ok := copyMap[ProviderStripe]; ok {
		m.defaultProvider = ProviderStripe
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// PaymentContext defines the hints available when selecting a provider.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
}

func (m *Manager) resolveProvider(ctx PaymentContext) (string, Provider, error) {
	if m == nil {
		return "", nil, errors.New("payments: manager is nil")
	}
	if len(m.providers) == 0 {
		return "", nil, errors.New("payments: no providers registered")
	}
	if provider := strings.TrimSpace(strings.ToLower(ctx.PreferredProvider)); provider != "" {
		if p, ok := m.providers[provider]; ok {
			return provider, p, nil
		}
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	currency := strings.ToUpper(strings.TrimSpace(ctx.Currency))
	if currency != "" && m.currencyRoutes != nil {
		if providerKey, ok := m.currencyRoutes[currency]; ok {
			provider := strings.TrimSpace(strings.ToLower(providerKey))
			if p, ok := m.providers[provider]; ok {
				return provider, p, nil
			}
		}
	}
	if def := strings.TrimSpace(strings.ToLower(m.defaultProvider)); def != "" {
		if p, ok := m.providers[def]; ok {
			return def, p, nil
		}
	}
	if len(m.providers) == 1 {
		for key, p := range m.providers {
			return key, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

// ResolveProvider reports which provider key a payment would be routed to.
func (m *Manager) ResolveProvider(paymentCtx PaymentContext) (string, error) {
	key, _, err := m.resolveProvider(paymentCtx)
	return key, err
}

// CreateCheckoutSession delegates to the resolved provider.
func (m *Manager) CreateCheckoutSession(ctx context.Context, paymentCtx PaymentContext, req CheckoutSessionRequest) (CheckoutSession, error) {
	key, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return CheckoutSession{}, err
	}
	session, err := provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		return CheckoutSession{}, err
	}
	session.Provider = key
	return session, nil
}

// Refund delegates to the resolved provider.
func (m *Manager) Refund(ctx context.Context, paymentCtx PaymentContext, req RefundRequest) (PaymentDetails, error) {
	_, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return PaymentDetails{}, err
	}
	return provider.Refund(ctx, req)
}

// LookupPayment delegates to the resolved provider.
func (m *Manager) LookupPayment(ctx context.Context, paymentCtx PaymentContext, req LookupRequest) (PaymentDetails, error) {
	_, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return PaymentDetails{}, err
	}
	return provider.LookupPayment(ctx, req)
}

// VerifyCallback checks a provider's server notification. Only providers
// implementing CallbackVerifier accept callbacks.
func (m *Manager) VerifyCallback(providerKey string, form url.Values) (CallbackResult, error) {
	key, provider, err := m.resolveProvider(PaymentContext{PreferredProvider: providerKey})
	if err != nil {
		return CallbackResult{}, err
	}
	verifier, ok := provider.(CallbackVerifier)
	if !ok {
		return CallbackResult{}, fmt.Errorf("%w: %s does not send callbacks", ErrUnsupportedProvider, key)
	}
	result, err := verifier.VerifyCallback(form)
	if err != nil {
		return CallbackResult{}, err
	}
	result.Provider = key
	return result, nil
}
