package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/pagination"
	"github.com/jewelry-storefront/api/internal/repositories"
)

const (
	orderIDPrefix               = "ord_"
	orderCounterPrefix          = "orders-"
	paymentStatusPending        = "pending"
	paymentStatusSuccess        = "success"
	paymentStatusFailed         = "failed"
	paymentStatusRefundRequired = "refund_required"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderForbidden indicates the viewer may not access the order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderUnavailable indicates the order store failed.
	ErrOrderUnavailable = errors.New("order: unavailable")
	// ErrOrderPaymentNotApplied indicates a captured payment was recorded for
	// refund instead of settling the order.
	ErrOrderPaymentNotApplied = errors.New("order: payment not applied")
)

var orderStateTransitions = map[OrderStatus][]OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped, domain.OrderStatusCancelled, domain.OrderStatusReturnRequested},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered, domain.OrderStatusReturnRequested},
	domain.OrderStatusDelivered:  {domain.OrderStatusReturnRequested},
	// A rejected return puts the order back where it was.
	domain.OrderStatusReturnRequested: {
		domain.OrderStatusReturnApproved,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	},
	domain.OrderStatusReturnApproved: {domain.OrderStatusRefunded},
}

var cancellableStatuses = []OrderStatus{domain.OrderStatusPending, domain.OrderStatusProcessing}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return slices.Contains(orderStateTransitions[from], to)
}

// MerchantOIDFor derives the payment reference for an order number. PayTR only
// accepts alphanumeric merchant ids, so the dashes are dropped.
func MerchantOIDFor(orderNumber string) string {
	return strings.ReplaceAll(strings.TrimSpace(orderNumber), "-", "")
}

// FormatOrderNumber renders the human order number for a yearly sequence.
func FormatOrderNumber(year int, seq int64) string {
	return fmt.Sprintf("JW-%04d-%06d", year, seq)
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Counters    repositories.CounterRepository
	Shipping    domain.ShippingPolicy
	Currency    string
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Notifier    Notifier
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	counters repositories.CounterRepository
	shipping domain.ShippingPolicy
	currency string
	clock    func() time.Time
	newID    func() string
	events   OrderEventPublisher
	notifier Notifier
	logger   func(context.Context, string, map[string]any)
}

var _ OrderService = (*orderService)(nil)

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return strings.ToLower(ulid.Make().String())
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger()
	}

	return &orderService{
		orders:   deps.Orders,
		counters: deps.Counters,
		shipping: deps.Shipping,
		currency: currency,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		events:   deps.Events,
		notifier: notifier,
		logger:   logger,
	}, nil
}

func (s *orderService) CreatePending(ctx context.Context, cmd CreatePendingOrderCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return Order{}, fmt.Errorf("%w: cart must contain at least one item", ErrOrderInvalidInput)
	}
	address, err := NormalizeShippingAddress(cmd.Address)
	if err != nil {
		return Order{}, errors.Join(ErrOrderInvalidInput, err)
	}
	items, itemsPrice, err := buildOrderItems(cmd.Items)
	if err != nil {
		return Order{}, err
	}
	method := cmd.PaymentMethod
	switch method {
	case "":
		method = domain.PaymentMethodPayTR
	case domain.PaymentMethodPayTR, domain.PaymentMethodStripe:
	default:
		return Order{}, fmt.Errorf("%w: unsupported payment method %q", ErrOrderInvalidInput, method)
	}

	now := s.clock()
	seq, err := s.counters.Next(ctx, fmt.Sprintf("%s%04d", orderCounterPrefix, now.Year()), 1)
	if err != nil {
		return Order{}, errors.Join(ErrOrderUnavailable, err)
	}
	number := FormatOrderNumber(now.Year(), seq)
	pricing := s.shipping.Price(itemsPrice, s.currency)

	order := Order{
		ID:              orderIDPrefix + s.newID(),
		OrderNumber:     number,
		UserID:          userID,
		Items:           items,
		ShippingAddress: address,
		PaymentMethod:   method,
		ItemsPrice:      pricing.ItemsPrice,
		ShippingPrice:   pricing.ShippingPrice,
		TotalPrice:      pricing.TotalPrice,
		Currency:        pricing.Currency,
		Status:          domain.OrderStatusPending,
		PaymentResult: &domain.PaymentResult{
			Provider:    string(method),
			MerchantOID: MerchantOIDFor(number),
			Status:      paymentStatusPending,
			Amount:      pricing.TotalPrice,
			UpdatedAt:   now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := s.orders.Insert(ctx, order)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	s.logger(ctx, "order.created", map[string]any{
		"orderId":     saved.ID,
		"orderNumber": saved.OrderNumber,
		"userId":      userID,
		"total":       saved.TotalPrice,
	})
	s.publishEvent(ctx, domain.OrderEventCreated, saved, "")
	return saved, nil
}

func buildOrderItems(cartItems []CartItem) ([]domain.OrderItem, int64, error) {
	items := make([]domain.OrderItem, 0, len(cartItems))
	var total int64
	for _, item := range cartItems {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, 0, fmt.Errorf("%w: item product id is required", ErrOrderInvalidInput)
		}
		if item.Qty < 1 {
			return nil, 0, fmt.Errorf("%w: quantity for %s must be positive", ErrOrderInvalidInput, item.ProductID)
		}
		if item.Price < 0 {
			return nil, 0, fmt.Errorf("%w: price for %s must not be negative", ErrOrderInvalidInput, item.ProductID)
		}
		items = append(items, domain.OrderItem(item))
		total += item.Price * int64(item.Qty)
	}
	return items, total, nil
}

func (s *orderService) Get(ctx context.Context, orderID string, viewer Viewer) (Order, error) {
	id := strings.TrimSpace(orderID)
	if id == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if !viewer.IsAdmin && order.UserID != viewer.UserID {
		return Order{}, ErrOrderForbidden
	}
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, userID string, pager Pagination) (domain.Page[Order], error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return domain.Page[Order]{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	return s.list(ctx, repositories.OrderListFilter{UserID: uid, Pagination: pager})
}

func (s *orderService) ListAll(ctx context.Context, filter OrderListFilter) (domain.Page[Order], error) {
	for _, status := range filter.Status {
		if _, known := orderStateTransitions[status]; !known && status != domain.OrderStatusRefunded && status != domain.OrderStatusCancelled {
			return domain.Page[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
	}
	return s.list(ctx, repositories.OrderListFilter{
		UserID:     strings.TrimSpace(filter.UserID),
		Status:     filter.Status,
		Pagination: filter.Pagination,
	})
}

func (s *orderService) list(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.Page[Order]{}, errors.Join(ErrOrderInvalidInput, err)
		}
		return domain.Page[Order]{}, s.mapRepositoryError(err)
	}
	if page.Items == nil {
		page.Items = []Order{}
	}
	return page, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if cmd.To == "" {
		return Order{}, fmt.Errorf("%w: target status is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if cmd.To == domain.OrderStatusCancelled {
		order.CancelReason = strings.TrimSpace(cmd.Reason)
	}
	return s.transitionAndSave(ctx, order, cmd.To, cmd.ActorID)
}

func (s *orderService) transitionAndSave(ctx context.Context, order Order, target OrderStatus, actor string) (Order, error) {
	prev := order.Status
	expected := order.UpdatedAt
	if err := s.applyStatusTransition(&order, target, s.clock()); err != nil {
		return Order{}, err
	}
	saved, err := s.orders.Update(ctx, order, expected)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	if prev == saved.Status {
		return saved, nil
	}
	s.logger(ctx, "order.status_changed", map[string]any{
		"orderId": saved.ID,
		"from":    string(prev),
		"to":      string(saved.Status),
		"actorId": strings.TrimSpace(actor),
	})
	s.publishEvent(ctx, domain.OrderEventStatusChanged, saved, prev)
	switch saved.Status {
	case domain.OrderStatusShipped:
		if prev == domain.OrderStatusProcessing {
			s.notifier.OrderShipped(ctx, saved)
		}
	case domain.OrderStatusDelivered:
		if prev == domain.OrderStatusShipped {
			s.notifier.OrderDelivered(ctx, saved)
		}
	}
	return saved, nil
}

func (s *orderService) applyStatusTransition(order *Order, target OrderStatus, now time.Time) error {
	if order.Status == target {
		return nil
	}
	if !CanTransition(order.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, order.Status, target)
	}
	order.Status = target
	order.UpdatedAt = now
	switch target {
	case domain.OrderStatusProcessing:
		if order.IsPaid && order.PaidAt == nil {
			order.PaidAt = &now
		}
	case domain.OrderStatusDelivered:
		if !order.IsDelivered {
			order.IsDelivered = true
			order.DeliveredAt = &now
		}
	case domain.OrderStatusCancelled:
		order.CancelledAt = &now
	}
	return nil
}

// MarkPaid records a successful payment for the order owning MerchantOID and
// moves it to processing. Repeated notifications for a paid order are no-ops.
// A payment that arrives for a cancelled order, or that is short of the total,
// is held for refund and reported as ErrOrderPaymentNotApplied.
func (s *orderService) MarkPaid(ctx context.Context, cmd PaymentOutcome) (Order, error) {
	order, err := s.findForPayment(ctx, cmd.MerchantOID)
	if err != nil {
		return Order{}, err
	}
	if order.IsPaid {
		return order, nil
	}
	if order.Status != domain.OrderStatusPending {
		return Order{}, s.holdForRefund(ctx, order, cmd, fmt.Sprintf("order is %s", order.Status))
	}
	if cmd.Amount > 0 && cmd.Amount < order.TotalPrice {
		return Order{}, s.holdForRefund(ctx, order, cmd, fmt.Sprintf("paid amount %d is below order total %d", cmd.Amount, order.TotalPrice))
	}

	now := s.clock()
	prev := order.Status
	expected := order.UpdatedAt
	order.IsPaid = true
	order.PaidAt = &now
	order.PaymentResult = s.paymentResult(order, cmd, paymentStatusSuccess, now)
	if err := s.applyStatusTransition(&order, domain.OrderStatusProcessing, now); err != nil {
		return Order{}, err
	}

	saved, err := s.orders.Update(ctx, order, expected)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	s.logger(ctx, "order.paid", map[string]any{
		"orderId":     saved.ID,
		"merchantOid": saved.PaymentResult.MerchantOID,
		"provider":    saved.PaymentResult.Provider,
		"amount":      saved.PaymentResult.Amount,
	})
	s.publishEvent(ctx, domain.OrderEventPaid, saved, prev)
	s.notifier.OrderConfirmed(ctx, saved)
	return saved, nil
}

// holdForRefund stores a captured payment that cannot settle the order so an
// operator can refund it. A pending order is cancelled on the way; repeats of
// the same notification leave the order untouched.
func (s *orderService) holdForRefund(ctx context.Context, order Order, cmd PaymentOutcome, reason string) error {
	notApplied := fmt.Errorf("%w: %s", ErrOrderPaymentNotApplied, reason)
	if awaitingRefund(order) {
		return notApplied
	}
	now := s.clock()
	prev := order.Status
	expected := order.UpdatedAt
	order.PaymentResult = s.paymentResult(order, cmd, paymentStatusRefundRequired, now)
	order.UpdatedAt = now
	if order.Status == domain.OrderStatusPending {
		order.CancelReason = reason
		if err := s.applyStatusTransition(&order, domain.OrderStatusCancelled, now); err != nil {
			return err
		}
	}
	saved, err := s.orders.Update(ctx, order, expected)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger(ctx, "order.payment_not_applied", map[string]any{
		"orderId":     saved.ID,
		"merchantOid": saved.PaymentResult.MerchantOID,
		"amount":      saved.PaymentResult.Amount,
		"status":      string(saved.Status),
		"reason":      reason,
	})
	if prev != saved.Status {
		s.publishEvent(ctx, domain.OrderEventStatusChanged, saved, prev)
	}
	return notApplied
}

func awaitingRefund(order Order) bool {
	return order.PaymentResult != nil && order.PaymentResult.Status == paymentStatusRefundRequired
}

// RecordPaymentFailure stores a failed payment attempt. The order stays
// pending so the customer can retry.
func (s *orderService) RecordPaymentFailure(ctx context.Context, cmd PaymentOutcome) (Order, error) {
	order, err := s.findForPayment(ctx, cmd.MerchantOID)
	if err != nil {
		return Order{}, err
	}
	if order.IsPaid || awaitingRefund(order) {
		return order, nil
	}
	now := s.clock()
	expected := order.UpdatedAt
	order.PaymentResult = s.paymentResult(order, cmd, paymentStatusFailed, now)
	order.UpdatedAt = now

	saved, err := s.orders.Update(ctx, order, expected)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	s.logger(ctx, "order.payment_failed", map[string]any{
		"orderId":     saved.ID,
		"merchantOid": saved.PaymentResult.MerchantOID,
		"reason":      strings.TrimSpace(cmd.Reason),
	})
	return saved, nil
}

func (s *orderService) findForPayment(ctx context.Context, merchantOID string) (Order, error) {
	oid := strings.TrimSpace(merchantOID)
	if oid == "" {
		return Order{}, fmt.Errorf("%w: merchant oid is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByMerchantOID(ctx, oid)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) paymentResult(order Order, cmd PaymentOutcome, status string, now time.Time) *domain.PaymentResult {
	result := &domain.PaymentResult{
		Provider:    strings.TrimSpace(cmd.Provider),
		MerchantOID: strings.TrimSpace(cmd.MerchantOID),
		Reference:   strings.TrimSpace(cmd.Reference),
		Status:      status,
		Amount:      cmd.Amount,
		UpdatedAt:   now,
	}
	if result.Provider == "" {
		result.Provider = string(order.PaymentMethod)
	}
	if result.Amount == 0 {
		result.Amount = order.TotalPrice
	}
	return result
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	order, err := s.Get(ctx, cmd.OrderID, cmd.Viewer)
	if err != nil {
		return Order{}, err
	}
	if !slices.Contains(cancellableStatuses, order.Status) {
		return Order{}, fmt.Errorf("%w: order status %q cannot be cancelled", ErrOrderInvalidState, order.Status)
	}
	order.CancelReason = strings.TrimSpace(cmd.Reason)
	return s.transitionAndSave(ctx, order, domain.OrderStatusCancelled, cmd.Viewer.UserID)
}

// SetTracking stores carrier details on an order and, when asked, ships it.
func (s *orderService) SetTracking(ctx context.Context, cmd SetTrackingCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	tracking := domain.Tracking{
		Carrier:        strings.TrimSpace(cmd.Tracking.Carrier),
		TrackingNumber: strings.TrimSpace(cmd.Tracking.TrackingNumber),
		TrackingURL:    strings.TrimSpace(cmd.Tracking.TrackingURL),
		ShipmentID:     strings.TrimSpace(cmd.Tracking.ShipmentID),
	}
	if tracking.Carrier == "" || tracking.TrackingNumber == "" {
		return Order{}, fmt.Errorf("%w: carrier and tracking number are required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	switch order.Status {
	case domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusDelivered:
	default:
		return Order{}, fmt.Errorf("%w: cannot set tracking on %s order", ErrOrderInvalidState, order.Status)
	}
	expected := order.UpdatedAt
	order.Tracking = &tracking

	if cmd.MarkShipped && order.Status == domain.OrderStatusProcessing {
		return s.transitionAndSave(ctx, order, domain.OrderStatusShipped, "")
	}
	order.UpdatedAt = s.clock()
	saved, err := s.orders.Update(ctx, order, expected)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return saved, nil
}

func (s *orderService) mapRepositoryError(err error) error {
	return translateRepoError(err, ErrOrderNotFound, ErrOrderConflict, ErrOrderUnavailable)
}

func (s *orderService) publishEvent(ctx context.Context, eventType string, order Order, prev OrderStatus) {
	if s.events == nil {
		return
	}
	event := domain.OrderEvent{
		Type:           eventType,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: prev,
		TotalPrice:     order.TotalPrice,
		Currency:       order.Currency,
		OccurredAt:     s.clock(),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": string(event.Status),
		})
	}
}
