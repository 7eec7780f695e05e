package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/payments"
	"github.com/jewelry-storefront/api/internal/repositories"
)

const (
	// ConfirmResultSuccess and ConfirmResultFailed are the redirect outcomes
	// the storefront reports after the payment page.
	ConfirmResultSuccess = "success"
	ConfirmResultFailed  = "failed"

	defaultCheckoutLocale = "tr"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input parameters.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutCartEmpty indicates checkout was attempted with no cart lines.
	ErrCheckoutCartEmpty = errors.New("checkout: cart is empty")
	// ErrCheckoutStepLocked indicates the requested step has unmet prerequisites.
	ErrCheckoutStepLocked = errors.New("checkout: step not reachable")
	// ErrCheckoutPaymentFailed indicates the PSP session could not be created.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
	// ErrCheckoutCallbackInvalid indicates a provider notification failed verification.
	ErrCheckoutCallbackInvalid = errors.New("checkout: invalid payment callback")
	// ErrCheckoutUnavailable indicates checkout dependencies are currently unavailable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// checkoutPayments abstracts payments.Manager for easier testing.
type checkoutPayments interface {
	ResolveProvider(paymentCtx payments.PaymentContext) (string, error)
	CreateCheckoutSession(ctx context.Context, paymentCtx payments.PaymentContext, req payments.CheckoutSessionRequest) (payments.CheckoutSession, error)
	LookupPayment(ctx context.Context, paymentCtx payments.PaymentContext, req payments.LookupRequest) (payments.PaymentDetails, error)
	VerifyCallback(providerKey string, form url.Values) (payments.CallbackResult, error)
}

type checkoutMetrics interface {
	PaymentOutcome(ctx context.Context, provider, outcome string)
	OrderCreated(ctx context.Context, currency string)
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Sessions repositories.CheckoutSessionRepository
	Carts    CartService
	Orders   OrderService
	Users    userLookup
	Payments checkoutPayments
	Currency string
	// ReturnURL is the storefront checkout page the PSP redirects back to; the
	// outcome is appended as ?payment=success|failed.
	ReturnURL string
	Locale    string
	// Metrics is optional.
	Metrics checkoutMetrics
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	sessions  repositories.CheckoutSessionRepository
	carts     CartService
	orders    OrderService
	users     userLookup
	payments  checkoutPayments
	currency  string
	returnURL string
	locale    string
	metrics   checkoutMetrics
	now       func() time.Time
	logger    func(ctx context.Context, event string, fields map[string]any)
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Sessions == nil {
		return nil, errors.New("checkout service: session repository is required")
	}
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart service is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order service is required")
	}
	if deps.Users == nil {
		return nil, errors.New("checkout service: user repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment manager is required")
	}
	returnURL := strings.TrimSpace(deps.ReturnURL)
	if _, err := url.Parse(returnURL); err != nil || returnURL == "" {
		return nil, fmt.Errorf("checkout service: invalid return url %q", deps.ReturnURL)
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger()
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	locale := strings.TrimSpace(deps.Locale)
	if locale == "" {
		locale = defaultCheckoutLocale
	}

	return &checkoutService{
		sessions:  deps.Sessions,
		carts:     deps.Carts,
		orders:    deps.Orders,
		users:     deps.Users,
		payments:  deps.Payments,
		currency:  currency,
		returnURL: returnURL,
		locale:    locale,
		metrics:   deps.Metrics,
		now: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// GetSession returns the stored session, or a fresh one at the shipping step.
func (s *checkoutService) GetSession(ctx context.Context, userID string) (CheckoutSession, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return CheckoutSession{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	return s.load(ctx, uid)
}

func (s *checkoutService) Start(ctx context.Context, userID string) (CheckoutSession, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return CheckoutSession{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	cart, err := s.carts.GetCart(ctx, uid)
	if err != nil {
		return CheckoutSession{}, err
	}
	if len(cart.Items) == 0 {
		return CheckoutSession{}, ErrCheckoutCartEmpty
	}
	previous, err := s.load(ctx, uid)
	if err != nil {
		return CheckoutSession{}, err
	}
	session := newCheckoutSession(uid)
	// The pending order survives a restart so its payment can still settle;
	// ensureOrder replaces it if the cart has moved on.
	if previous.Status != domain.CheckoutStatusCompleted {
		session.OrderID = previous.OrderID
		session.MerchantOID = previous.MerchantOID
	}
	if cart.ShippingAddress != nil {
		prefill := *cart.ShippingAddress
		session.ShippingAddress = &prefill
	}
	saved, err := s.save(ctx, session)
	if err != nil {
		return CheckoutSession{}, err
	}
	s.logger(ctx, "checkout.started", map[string]any{"userId": uid, "items": len(cart.Items)})
	return saved, nil
}

func (s *checkoutService) SaveShipping(ctx context.Context, userID string, address ShippingAddress) (CheckoutSession, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return CheckoutSession{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	normalized, err := NormalizeShippingAddress(address)
	if err != nil {
		return CheckoutSession{}, errors.Join(ErrCheckoutInvalidInput, err)
	}
	if _, err := s.carts.Dispatch(ctx, uid, CartAction{Type: domain.CartActionSaveShipping, Address: &normalized}); err != nil {
		return CheckoutSession{}, err
	}

	session, err := s.load(ctx, uid)
	if err != nil {
		return CheckoutSession{}, err
	}
	// A different address invalidates any order and payment token built on the old one.
	if session.ShippingAddress == nil || *session.ShippingAddress != normalized {
		s.releaseOrder(ctx, &session, "shipping address changed before payment")
		clearPayment(&session)
		session.CompletedSteps = nil
		session.Status = domain.CheckoutStatusInProgress
	}
	session.ShippingAddress = &normalized
	markStepCompleted(&session, domain.CheckoutStepShipping)
	session.Step = domain.CheckoutStepPayment
	if session.Status != domain.CheckoutStatusAwaitingPayment {
		session.Status = domain.CheckoutStatusInProgress
	}
	return s.save(ctx, session)
}

func (s *checkoutService) CreatePendingOrder(ctx context.Context, userID string) (Order, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	session, err := s.load(ctx, uid)
	if err != nil {
		return Order{}, err
	}
	order, session, err := s.ensureOrder(ctx, session, "")
	if err != nil {
		return Order{}, err
	}
	if _, err := s.save(ctx, session); err != nil {
		return Order{}, err
	}
	return order, nil
}

// ensureOrder returns the session's pending order, creating one from the cart
// when the session has none yet or the previous one is no longer pending.
// A pending order that no longer matches the cart or address is cancelled
// and replaced.
func (s *checkoutService) ensureOrder(ctx context.Context, session CheckoutSession, provider string) (Order, CheckoutSession, error) {
	if !session.IsCompleted(domain.CheckoutStepShipping) || session.ShippingAddress == nil {
		return Order{}, session, fmt.Errorf("%w: shipping address must be saved first", ErrCheckoutStepLocked)
	}
	cart, err := s.carts.GetCart(ctx, session.UserID)
	if err != nil {
		return Order{}, session, err
	}
	if len(cart.Items) == 0 {
		return Order{}, session, ErrCheckoutCartEmpty
	}
	if session.OrderID != "" {
		existing, err := s.orders.Get(ctx, session.OrderID, Viewer{UserID: session.UserID})
		switch {
		case err == nil && isOpenOrder(existing):
			if orderMatchesCart(existing, cart.Items, *session.ShippingAddress) {
				return existing, session, nil
			}
			s.cancelStaleOrder(ctx, existing, "cart changed before payment")
		case err != nil && !errors.Is(err, ErrOrderNotFound):
			return Order{}, session, err
		}
		session.OrderID = ""
		session.MerchantOID = ""
	}
	method := domain.PaymentMethod(provider)
	if method == "" {
		resolved, err := s.payments.ResolveProvider(payments.PaymentContext{Currency: s.currency})
		if err != nil {
			return Order{}, session, errors.Join(ErrCheckoutUnavailable, err)
		}
		method = domain.PaymentMethod(resolved)
	}
	order, err := s.orders.CreatePending(ctx, CreatePendingOrderCommand{
		UserID:        session.UserID,
		Items:         cart.Items,
		Address:       *session.ShippingAddress,
		PaymentMethod: method,
	})
	if err != nil {
		return Order{}, session, err
	}
	if s.metrics != nil {
		s.metrics.OrderCreated(ctx, order.Currency)
	}
	session.OrderID = order.ID
	if order.PaymentResult != nil {
		session.MerchantOID = order.PaymentResult.MerchantOID
	}
	return order, session, nil
}

func isOpenOrder(order Order) bool {
	return order.Status == domain.OrderStatusPending && !order.IsPaid
}

// orderMatchesCart reports whether order was built from exactly these lines
// and this address, so charging it charges what the customer sees.
func orderMatchesCart(order Order, items []CartItem, address ShippingAddress) bool {
	if order.ShippingAddress != address {
		return false
	}
	return slices.EqualFunc(order.Items, items, func(line domain.OrderItem, item CartItem) bool {
		return line == domain.OrderItem(item)
	})
}

// releaseOrder detaches the session from its order, cancelling the order if
// it is still waiting for payment.
func (s *checkoutService) releaseOrder(ctx context.Context, session *CheckoutSession, reason string) {
	if session.OrderID != "" {
		order, err := s.orders.Get(ctx, session.OrderID, Viewer{UserID: session.UserID})
		switch {
		case err == nil && isOpenOrder(order):
			s.cancelStaleOrder(ctx, order, reason)
		case err != nil && !errors.Is(err, ErrOrderNotFound):
			s.logger(ctx, "checkout.order_release_failed", map[string]any{"orderId": session.OrderID, "error": err.Error()})
		}
	}
	session.OrderID = ""
	session.MerchantOID = ""
}

// cancelStaleOrder cancels a pending order the session is about to replace.
// A payment that still lands on it is held for refund by MarkPaid.
func (s *checkoutService) cancelStaleOrder(ctx context.Context, order Order, reason string) {
	if _, err := s.orders.TransitionStatus(ctx, OrderTransitionCommand{
		OrderID: order.ID,
		To:      domain.OrderStatusCancelled,
		Reason:  reason,
		ActorID: order.UserID,
	}); err != nil {
		s.logger(ctx, "checkout.stale_order_cancel_failed", map[string]any{"orderId": order.ID, "error": err.Error()})
		return
	}
	s.logger(ctx, "checkout.stale_order_cancelled", map[string]any{"orderId": order.ID, "reason": reason})
}

// CreatePayment creates the pending order if needed and requests a payment
// token. Success advances to the review step; a provider failure keeps the
// session on the payment step with status payment_failed.
func (s *checkoutService) CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (CheckoutSession, error) {
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return CheckoutSession{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	provider := strings.ToLower(strings.TrimSpace(cmd.Provider))
	session, err := s.load(ctx, uid)
	if err != nil {
		return CheckoutSession{}, err
	}
	order, session, err := s.ensureOrder(ctx, session, provider)
	if err != nil {
		return CheckoutSession{}, err
	}
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return CheckoutSession{}, translateRepoError(err, ErrCheckoutInvalidInput, nil, ErrCheckoutUnavailable)
	}

	idempotencyKey := strings.TrimSpace(cmd.IdempotencyKey)
	if idempotencyKey == "" {
		idempotencyKey = "checkout-" + session.MerchantOID
	}
	req := payments.CheckoutSessionRequest{
		MerchantOID: session.MerchantOID,
		Amount:      order.TotalPrice,
		Currency:    order.Currency,
		Buyer: payments.Buyer{
			Email:   user.Email,
			Name:    firstNonBlank(order.ShippingAddress.FullName, user.FullName()),
			Phone:   order.ShippingAddress.Phone,
			Address: order.ShippingAddress.OneLine(),
			IP:      strings.TrimSpace(cmd.ClientIP),
		},
		SuccessURL:     s.redirectURL(ConfirmResultSuccess),
		CancelURL:      s.redirectURL(ConfirmResultFailed),
		Locale:         s.locale,
		Metadata:       map[string]string{"orderId": order.ID, "userId": uid, "orderNumber": order.OrderNumber},
		IdempotencyKey: idempotencyKey,
		Items:          checkoutLineItems(order.Items),
	}
	psp, err := s.payments.CreateCheckoutSession(ctx, payments.PaymentContext{
		PreferredProvider: firstNonBlank(provider, string(order.PaymentMethod)),
		Currency:          order.Currency,
	}, req)
	if err != nil {
		s.logger(ctx, "checkout.payment_session_failed", map[string]any{
			"userId":      uid,
			"orderId":     order.ID,
			"merchantOid": session.MerchantOID,
			"error":       err.Error(),
		})
		s.recordPayment(ctx, firstNonBlank(provider, string(order.PaymentMethod)), "token_failed")
		clearPayment(&session)
		session.Step = domain.CheckoutStepPayment
		session.Status = domain.CheckoutStatusPaymentFailed
		session.FailureReason = err.Error()
		if _, saveErr := s.save(ctx, session); saveErr != nil {
			return CheckoutSession{}, errors.Join(ErrCheckoutPaymentFailed, err, saveErr)
		}
		if errors.Is(err, payments.ErrUnsupportedProvider) {
			return CheckoutSession{}, errors.Join(ErrCheckoutInvalidInput, err)
		}
		return CheckoutSession{}, errors.Join(ErrCheckoutPaymentFailed, err)
	}

	session.Provider = psp.Provider
	session.PaymentToken = psp.Token
	session.PaymentRef = firstNonBlank(psp.IntentID, psp.ID)
	session.IframeURL = psp.RedirectURL
	session.Status = domain.CheckoutStatusAwaitingPayment
	session.FailureReason = ""
	markStepCompleted(&session, domain.CheckoutStepPayment)
	session.Step = domain.CheckoutStepReview
	s.recordPayment(ctx, psp.Provider, "token_issued")
	saved, err := s.save(ctx, session)
	if err != nil {
		return CheckoutSession{}, err
	}
	s.logger(ctx, "checkout.payment_session_created", map[string]any{
		"userId":      uid,
		"orderId":     order.ID,
		"merchantOid": saved.MerchantOID,
		"provider":    saved.Provider,
	})
	return saved, nil
}

// GoTo moves the wizard. Completed steps and the current one are always
// reachable; forward moves stop at the first incomplete step, and review
// needs a payment token.
func (s *checkoutService) GoTo(ctx context.Context, userID string, step CheckoutStep) (CheckoutSession, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return CheckoutSession{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	if !step.Valid() {
		return CheckoutSession{}, fmt.Errorf("%w: unknown step %d", ErrCheckoutInvalidInput, step)
	}
	session, err := s.load(ctx, uid)
	if err != nil {
		return CheckoutSession{}, err
	}
	if !CanGoTo(session, step) {
		return CheckoutSession{}, fmt.Errorf("%w: step %d", ErrCheckoutStepLocked, step)
	}
	if session.Step == step {
		return session, nil
	}
	session.Step = step
	return s.save(ctx, session)
}

// CanGoTo reports whether the wizard may move to step from its current state.
func CanGoTo(session CheckoutSession, step CheckoutStep) bool {
	if !step.Valid() {
		return false
	}
	if step == domain.CheckoutStepReview && session.PaymentToken == "" {
		return false
	}
	return step == session.Step || session.IsCompleted(step) || step == session.MaxCompleted()+1
}

func (s *checkoutService) Confirm(ctx context.Context, userID string, result string) (CheckoutSession, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return CheckoutSession{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	session, err := s.load(ctx, uid)
	if err != nil {
		return CheckoutSession{}, err
	}

	switch strings.ToLower(strings.TrimSpace(result)) {
	case ConfirmResultFailed:
		clearPayment(&session)
		session.Step = domain.CheckoutStepPayment
		session.Status = domain.CheckoutStatusPaymentFailed
		session.FailureReason = "payment was not completed"
		s.logger(ctx, "checkout.payment_redirect_failed", map[string]any{"userId": uid, "merchantOid": session.MerchantOID})
		return s.save(ctx, session)
	case ConfirmResultSuccess:
		if session.Status == domain.CheckoutStatusCompleted {
			return session, nil
		}
		if session.PaymentToken == "" {
			return CheckoutSession{}, fmt.Errorf("%w: no payment in progress", ErrCheckoutStepLocked)
		}
		s.reconcile(ctx, session)
		session.Status = domain.CheckoutStatusCompleted
		session.FailureReason = ""
		s.clearCart(ctx, uid)
		return s.save(ctx, session)
	default:
		return CheckoutSession{}, fmt.Errorf("%w: unknown payment result %q", ErrCheckoutInvalidInput, result)
	}
}

// reconcile asks the provider for the payment state on redirect. PayTR only
// reports through its callback, so a lookup that fails is logged and left to it.
func (s *checkoutService) reconcile(ctx context.Context, session CheckoutSession) {
	if session.MerchantOID == "" {
		return
	}
	details, err := s.payments.LookupPayment(ctx, payments.PaymentContext{PreferredProvider: session.Provider, Currency: s.currency},
		payments.LookupRequest{MerchantOID: session.MerchantOID, Reference: session.PaymentRef})
	if err != nil {
		s.logger(ctx, "checkout.payment_lookup_skipped", map[string]any{"merchantOid": session.MerchantOID, "error": err.Error()})
		return
	}
	if details.Status != payments.StatusSucceeded {
		return
	}
	if _, err := s.orders.MarkPaid(ctx, PaymentOutcome{
		MerchantOID: session.MerchantOID,
		Provider:    session.Provider,
		Reference:   firstNonBlank(details.IntentID, session.PaymentRef),
		Status:      string(details.Status),
		Amount:      details.Amount,
	}); err != nil {
		s.logger(ctx, "checkout.mark_paid_failed", map[string]any{"merchantOid": session.MerchantOID, "error": err.Error()})
	}
}

// HandleCallback applies a verified server notification from a provider.
func (s *checkoutService) HandleCallback(ctx context.Context, provider string, form url.Values) error {
	result, err := s.payments.VerifyCallback(strings.ToLower(strings.TrimSpace(provider)), form)
	if err != nil {
		s.logger(ctx, "checkout.callback_rejected", map[string]any{"provider": provider, "error": err.Error()})
		s.recordPayment(ctx, provider, "callback_rejected")
		return errors.Join(ErrCheckoutCallbackInvalid, err)
	}
	outcome := PaymentOutcome{
		MerchantOID: result.MerchantOID,
		Provider:    result.Provider,
		Status:      string(result.Status),
		Amount:      result.TotalAmount,
		Reason:      strings.TrimSpace(result.FailureCode + " " + result.FailureReason),
	}

	session, sessionErr := s.sessions.FindByMerchantOID(ctx, result.MerchantOID)
	if sessionErr != nil && !isRepoNotFound(sessionErr) {
		s.logger(ctx, "checkout.callback_session_lookup_failed", map[string]any{"merchantOid": result.MerchantOID, "error": sessionErr.Error()})
	}
	haveSession := sessionErr == nil

	var applyErr error
	switch result.Status {
	case payments.StatusSucceeded:
		if haveSession {
			outcome.Reference = session.PaymentRef
		}
		_, applyErr = s.orders.MarkPaid(ctx, outcome)
		if applyErr == nil && haveSession {
			s.clearCart(ctx, session.UserID)
			session.Status = domain.CheckoutStatusCompleted
			session.FailureReason = ""
		}
	default:
		_, applyErr = s.orders.RecordPaymentFailure(ctx, outcome)
		if applyErr == nil && haveSession && session.Status != domain.CheckoutStatusCompleted {
			clearPayment(&session)
			session.Step = domain.CheckoutStepPayment
			session.Status = domain.CheckoutStatusPaymentFailed
			session.FailureReason = outcome.Reason
		}
	}

	switch {
	case applyErr == nil:
		s.recordPayment(ctx, result.Provider, "callback_"+string(result.Status))
		s.logger(ctx, "checkout.callback_applied", map[string]any{
			"provider":    result.Provider,
			"merchantOid": result.MerchantOID,
			"status":      string(result.Status),
			"testMode":    result.TestMode,
		})
	case isSettledCallbackError(applyErr):
		// Retrying cannot change the outcome, so the provider gets its OK.
		s.recordPayment(ctx, result.Provider, "callback_not_applied")
		s.logger(ctx, "checkout.callback_not_applied", map[string]any{
			"provider":    result.Provider,
			"merchantOid": result.MerchantOID,
			"status":      string(result.Status),
			"error":       applyErr.Error(),
		})
		if haveSession && session.MerchantOID == result.MerchantOID && session.Status != domain.CheckoutStatusCompleted {
			clearPayment(&session)
			session.Step = domain.CheckoutStepPayment
			session.Status = domain.CheckoutStatusPaymentFailed
			session.FailureReason = "payment could not be applied to the order and will be refunded"
		}
	default:
		return applyErr
	}
	if haveSession {
		if _, err := s.save(ctx, session); err != nil {
			s.logger(ctx, "checkout.callback_session_save_failed", map[string]any{"merchantOid": result.MerchantOID, "error": err.Error()})
		}
	}
	return nil
}

// isSettledCallbackError reports order errors a provider retry cannot fix.
// Only store failures and write conflicts are worth another notification.
func isSettledCallbackError(err error) bool {
	return errors.Is(err, ErrOrderPaymentNotApplied) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrOrderInvalidInput)
}

func (s *checkoutService) recordPayment(ctx context.Context, provider, outcome string) {
	if s.metrics != nil {
		s.metrics.PaymentOutcome(ctx, provider, outcome)
	}
}

func (s *checkoutService) clearCart(ctx context.Context, userID string) {
	if _, err := s.carts.Dispatch(ctx, userID, CartAction{Type: domain.CartActionClear}); err != nil {
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{"userId": userID, "error": err.Error()})
	}
}

func (s *checkoutService) load(ctx context.Context, uid string) (CheckoutSession, error) {
	session, err := s.sessions.Find(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return newCheckoutSession(uid), nil
		}
		return CheckoutSession{}, errors.Join(ErrCheckoutUnavailable, err)
	}
	if !session.Step.Valid() {
		session.Step = domain.CheckoutStepShipping
	}
	return session, nil
}

func (s *checkoutService) save(ctx context.Context, session CheckoutSession) (CheckoutSession, error) {
	session.UpdatedAt = s.now()
	saved, err := s.sessions.Save(ctx, session)
	if err != nil {
		return CheckoutSession{}, errors.Join(ErrCheckoutUnavailable, err)
	}
	return saved, nil
}

func (s *checkoutService) redirectURL(result string) string {
	u, err := url.Parse(s.returnURL)
	if err != nil {
		return s.returnURL
	}
	q := u.Query()
	q.Set("payment", result)
	u.RawQuery = q.Encode()
	return u.String()
}

func newCheckoutSession(userID string) CheckoutSession {
	return CheckoutSession{
		UserID: userID,
		Step:   domain.CheckoutStepShipping,
		Status: domain.CheckoutStatusInProgress,
	}
}

func markStepCompleted(session *CheckoutSession, step CheckoutStep) {
	if !session.IsCompleted(step) {
		session.CompletedSteps = append(session.CompletedSteps, step)
		slices.Sort(session.CompletedSteps)
	}
}

// clearPayment drops the token so the review step is unreachable until a new
// one is issued.
func clearPayment(session *CheckoutSession) {
	session.PaymentToken = ""
	session.PaymentRef = ""
	session.IframeURL = ""
	session.Provider = ""
	session.CompletedSteps = slices.DeleteFunc(session.CompletedSteps, func(step CheckoutStep) bool {
		return step >= domain.CheckoutStepPayment
	})
}

func checkoutLineItems(items []domain.OrderItem) []payments.CheckoutLineItem {
	lines := make([]payments.CheckoutLineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, payments.CheckoutLineItem{
			Name:     item.Name,
			SKU:      item.ProductID,
			Quantity: int64(item.Qty),
			Amount:   item.Price,
		})
	}
	return lines
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
