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
	"github.com/jewelry-storefront/api/internal/payments"
	"github.com/jewelry-storefront/api/internal/platform/pagination"
	"github.com/jewelry-storefront/api/internal/repositories"
)

// DefaultReturnWindowDays is how long after delivery a customer may ask for a return.
const DefaultReturnWindowDays = 14

const (
	returnIDPrefix     = "ret_"
	maxReturnNoteRunes = 1000
)

// Eligibility reasons reported when a return cannot be requested.
const (
	ReturnIneligibleNotPaid       = "not_paid"
	ReturnIneligibleStatus        = "status_not_returnable"
	ReturnIneligibleWindowExpired = "return_window_expired"
)

var (
	// ErrReturnInvalidInput indicates the request failed validation.
	ErrReturnInvalidInput = errors.New("return: invalid input")
	// ErrReturnNotFound indicates the return request does not exist.
	ErrReturnNotFound = errors.New("return: not found")
	// ErrReturnForbidden indicates the viewer does not own the return.
	ErrReturnForbidden = errors.New("return: forbidden")
	// ErrReturnNotEligible indicates the order cannot be returned.
	ErrReturnNotEligible = errors.New("return: order is not eligible for return")
	// ErrReturnInvalidState indicates the resolution does not apply to the current status.
	ErrReturnInvalidState = errors.New("return: invalid state")
	// ErrReturnConflict indicates a concurrent update.
	ErrReturnConflict = errors.New("return: conflict")
	// ErrReturnUnavailable indicates the backing store failed.
	ErrReturnUnavailable = errors.New("return: unavailable")
	// ErrReturnRefundFailed indicates the payment provider refused the refund.
	ErrReturnRefundFailed = errors.New("return: refund failed")
)

var nonReturnableStatuses = []OrderStatus{
	domain.OrderStatusReturnRequested,
	domain.OrderStatusReturnApproved,
	domain.OrderStatusRefunded,
	domain.OrderStatusCancelled,
}

// CanRequestReturn applies the return rule to an order: it must be paid, not
// already in a return or cancelled, and at most windowDays whole days must have
// elapsed since delivery (falling back to payment, then creation).
func CanRequestReturn(order Order, now time.Time, windowDays int) ReturnEligibility {
	if windowDays <= 0 {
		windowDays = DefaultReturnWindowDays
	}
	if !order.IsPaid {
		return ReturnEligibility{Reason: ReturnIneligibleNotPaid}
	}
	if slices.Contains(nonReturnableStatuses, order.Status) {
		return ReturnEligibility{Reason: ReturnIneligibleStatus}
	}

	base := order.CreatedAt
	switch {
	case order.DeliveredAt != nil:
		base = *order.DeliveredAt
	case order.PaidAt != nil:
		base = *order.PaidAt
	}
	// Whole days are floored, so the last accepted instant is the end of day windowDays.
	deadline := base.Add(time.Duration(windowDays+1)*24*time.Hour - time.Nanosecond)
	if daysSince(base, now) > windowDays {
		return ReturnEligibility{Reason: ReturnIneligibleWindowExpired, Deadline: &deadline}
	}
	return ReturnEligibility{Eligible: true, Deadline: &deadline}
}

// daysSince counts whole days elapsed between from and now, rounding down.
func daysSince(from, now time.Time) int {
	elapsed := now.Sub(from)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

type refunder interface {
	Refund(ctx context.Context, paymentCtx payments.PaymentContext, req payments.RefundRequest) (payments.PaymentDetails, error)
}

// ReturnServiceDeps wires the collaborators for return handling.
type ReturnServiceDeps struct {
	Returns     repositories.ReturnRepository
	Orders      OrderService
	Payments    refunder
	Notifier    Notifier
	WindowDays  int
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type returnService struct {
	returns    repositories.ReturnRepository
	orders     OrderService
	payments   refunder
	notifier   Notifier
	windowDays int
	now        func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

var _ ReturnService = (*returnService)(nil)

// NewReturnService constructs the return workflow.
func NewReturnService(deps ReturnServiceDeps) (ReturnService, error) {
	if deps.Returns == nil {
		return nil, errors.New("return service: return repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("return service: order service is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return strings.ToLower(ulid.Make().String()) }
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger()
	}
	days := deps.WindowDays
	if days <= 0 {
		days = DefaultReturnWindowDays
	}
	return &returnService{
		returns:    deps.Returns,
		orders:     deps.Orders,
		payments:   deps.Payments,
		notifier:   notifier,
		windowDays: days,
		now:        func() time.Time { return clock().UTC() },
		newID:      newID,
		logger:     logger,
	}, nil
}

func (s *returnService) Eligibility(ctx context.Context, orderID string, viewer Viewer) (ReturnEligibility, error) {
	order, err := s.orders.Get(ctx, orderID, viewer)
	if err != nil {
		return ReturnEligibility{}, err
	}
	return s.eligibility(order), nil
}

func (s *returnService) eligibility(order Order) ReturnEligibility {
	return CanRequestReturn(order, s.now(), s.windowDays)
}

func (s *returnService) Create(ctx context.Context, cmd CreateReturnCommand) (ReturnRequest, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return ReturnRequest{}, fmt.Errorf("%w: user id is required", ErrReturnInvalidInput)
	}
	if !cmd.Reason.Valid() {
		return ReturnRequest{}, fmt.Errorf("%w: unknown reason %q", ErrReturnInvalidInput, cmd.Reason)
	}
	note := strings.TrimSpace(cmd.Note)
	if len([]rune(note)) > maxReturnNoteRunes {
		return ReturnRequest{}, fmt.Errorf("%w: note must be at most %d characters", ErrReturnInvalidInput, maxReturnNoteRunes)
	}

	order, err := s.orders.Get(ctx, cmd.OrderID, Viewer{UserID: userID})
	if err != nil {
		return ReturnRequest{}, err
	}
	if eligibility := s.eligibility(order); !eligibility.Eligible {
		return ReturnRequest{}, fmt.Errorf("%w: %s", ErrReturnNotEligible, eligibility.Reason)
	}
	items, refund, err := selectReturnItems(order, cmd.Items)
	if err != nil {
		return ReturnRequest{}, err
	}

	// Moving the order first means a second request for the same order fails
	// on the transition instead of creating a duplicate.
	if _, err := s.orders.TransitionStatus(ctx, OrderTransitionCommand{
		OrderID: order.ID,
		To:      domain.OrderStatusReturnRequested,
		ActorID: userID,
	}); err != nil {
		return ReturnRequest{}, err
	}

	now := s.now()
	ret := ReturnRequest{
		ID:           returnIDPrefix + s.newID(),
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		UserID:       order.UserID,
		Items:        items,
		Reason:       cmd.Reason,
		Note:         note,
		Status:       domain.ReturnStatusPending,
		RefundAmount: refund,
		OrderStatus:  order.Status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	saved, err := s.returns.Insert(ctx, ret)
	if err != nil {
		if _, rollbackErr := s.orders.TransitionStatus(ctx, OrderTransitionCommand{
			OrderID: order.ID,
			To:      order.Status,
			Reason:  "return request could not be stored",
		}); rollbackErr != nil {
			s.logger(ctx, "return.rollback_failed", map[string]any{"orderId": order.ID, "error": rollbackErr.Error()})
		}
		return ReturnRequest{}, translateRepoError(err, nil, ErrReturnConflict, ErrReturnUnavailable)
	}

	s.logger(ctx, "return.created", map[string]any{
		"returnId":     saved.ID,
		"orderId":      order.ID,
		"refundAmount": refund,
		"reason":       string(cmd.Reason),
	})
	s.notifier.ReturnReceived(ctx, saved)
	return saved, nil
}

// selectReturnItems resolves the requested lines against the order. Repeated
// product ids are merged; quantities may not exceed what was ordered.
func selectReturnItems(order Order, selections []ReturnItemSelection) ([]domain.ReturnItem, int64, error) {
	if len(selections) == 0 {
		return nil, 0, fmt.Errorf("%w: at least one item is required", ErrReturnInvalidInput)
	}
	requested := make(map[string]int, len(selections))
	var sequence []string
	for _, sel := range selections {
		id := strings.TrimSpace(sel.ProductID)
		if id == "" || sel.Qty < 1 {
			return nil, 0, fmt.Errorf("%w: each item needs a product id and a positive quantity", ErrReturnInvalidInput)
		}
		if _, seen := requested[id]; !seen {
			sequence = append(sequence, id)
		}
		requested[id] += sel.Qty
	}

	items := make([]domain.ReturnItem, 0, len(sequence))
	var refund int64
	for _, id := range sequence {
		idx := slices.IndexFunc(order.Items, func(item domain.OrderItem) bool { return item.ProductID == id })
		if idx < 0 {
			return nil, 0, fmt.Errorf("%w: product %s is not part of the order", ErrReturnInvalidInput, id)
		}
		line := order.Items[idx]
		qty := requested[id]
		if qty > line.Qty {
			return nil, 0, fmt.Errorf("%w: cannot return %d of %s, only %d ordered", ErrReturnInvalidInput, qty, line.Name, line.Qty)
		}
		items = append(items, domain.ReturnItem{ProductID: id, Name: line.Name, Qty: qty, Price: line.Price})
		refund += line.Price * int64(qty)
	}
	return items, refund, nil
}

func (s *returnService) Get(ctx context.Context, returnID string, viewer Viewer) (ReturnRequest, error) {
	id := strings.TrimSpace(returnID)
	if id == "" {
		return ReturnRequest{}, fmt.Errorf("%w: return id is required", ErrReturnInvalidInput)
	}
	ret, err := s.returns.FindByID(ctx, id)
	if err != nil {
		return ReturnRequest{}, translateRepoError(err, ErrReturnNotFound, nil, ErrReturnUnavailable)
	}
	if !viewer.IsAdmin && ret.UserID != viewer.UserID {
		return ReturnRequest{}, ErrReturnForbidden
	}
	return ret, nil
}

func (s *returnService) List(ctx context.Context, filter ReturnListFilter) (domain.Page[ReturnRequest], error) {
	page, err := s.returns.List(ctx, repositories.ReturnListFilter{
		UserID:     strings.TrimSpace(filter.UserID),
		OrderID:    strings.TrimSpace(filter.OrderID),
		Status:     filter.Status,
		Pagination: filter.Pagination,
	})
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidPageToken) {
			return domain.Page[ReturnRequest]{}, errors.Join(ErrReturnInvalidInput, err)
		}
		return domain.Page[ReturnRequest]{}, translateRepoError(err, nil, nil, ErrReturnUnavailable)
	}
	if page.Items == nil {
		page.Items = []ReturnRequest{}
	}
	return page, nil
}

// Resolve applies an admin decision. Approve and reject need a pending
// return; refund also accepts an approved one and pays the money back first.
func (s *returnService) Resolve(ctx context.Context, cmd ResolveReturnCommand) (ReturnRequest, error) {
	ret, err := s.Get(ctx, cmd.ReturnID, Viewer{IsAdmin: true})
	if err != nil {
		return ReturnRequest{}, err
	}
	admin := Viewer{UserID: strings.TrimSpace(cmd.ActorID), IsAdmin: true}
	expected := ret.UpdatedAt
	now := s.now()

	switch cmd.Resolution {
	case ReturnResolutionApprove:
		if ret.Status != domain.ReturnStatusPending {
			return ReturnRequest{}, fmt.Errorf("%w: cannot approve a %s return", ErrReturnInvalidState, ret.Status)
		}
		if err := s.moveOrder(ctx, ret.OrderID, domain.OrderStatusReturnApproved, cmd); err != nil {
			return ReturnRequest{}, err
		}
		ret.Status = domain.ReturnStatusApproved

	case ReturnResolutionReject:
		if ret.Status != domain.ReturnStatusPending {
			return ReturnRequest{}, fmt.Errorf("%w: cannot reject a %s return", ErrReturnInvalidState, ret.Status)
		}
		if err := s.moveOrder(ctx, ret.OrderID, priorOrderStatus(ret), cmd); err != nil {
			return ReturnRequest{}, err
		}
		ret.Status = domain.ReturnStatusRejected
		ret.ResolvedAt = &now

	case ReturnResolutionRefund:
		if ret.Status != domain.ReturnStatusPending && ret.Status != domain.ReturnStatusApproved {
			return ReturnRequest{}, fmt.Errorf("%w: cannot refund a %s return", ErrReturnInvalidState, ret.Status)
		}
		order, err := s.orders.Get(ctx, ret.OrderID, admin)
		if err != nil {
			return ReturnRequest{}, err
		}
		if order.Status == domain.OrderStatusReturnRequested {
			if err := s.moveOrder(ctx, order.ID, domain.OrderStatusReturnApproved, cmd); err != nil {
				return ReturnRequest{}, err
			}
		}
		if err := s.refund(ctx, order, ret); err != nil {
			return ReturnRequest{}, err
		}
		if err := s.moveOrder(ctx, order.ID, domain.OrderStatusRefunded, cmd); err != nil {
			return ReturnRequest{}, err
		}
		ret.Status = domain.ReturnStatusRefunded
		ret.ResolvedAt = &now

	default:
		return ReturnRequest{}, fmt.Errorf("%w: unknown resolution %q", ErrReturnInvalidInput, cmd.Resolution)
	}

	if note := strings.TrimSpace(cmd.Note); note != "" {
		ret.Note = strings.TrimSpace(ret.Note + "\n" + note)
	}
	ret.UpdatedAt = now
	saved, err := s.returns.Update(ctx, ret, expected)
	if err != nil {
		return ReturnRequest{}, translateRepoError(err, ErrReturnNotFound, ErrReturnConflict, ErrReturnUnavailable)
	}
	s.logger(ctx, "return.resolved", map[string]any{
		"returnId":   saved.ID,
		"resolution": string(cmd.Resolution),
		"actorId":    admin.UserID,
	})
	return saved, nil
}

// priorOrderStatus is where a rejected return sends its order back to.
// Requests stored before the field existed only came from delivered orders.
func priorOrderStatus(ret ReturnRequest) OrderStatus {
	if ret.OrderStatus == "" {
		return domain.OrderStatusDelivered
	}
	return ret.OrderStatus
}

func (s *returnService) moveOrder(ctx context.Context, orderID string, to OrderStatus, cmd ResolveReturnCommand) error {
	_, err := s.orders.TransitionStatus(ctx, OrderTransitionCommand{
		OrderID: orderID,
		To:      to,
		Reason:  strings.TrimSpace(cmd.Note),
		ActorID: strings.TrimSpace(cmd.ActorID),
	})
	return err
}

func (s *returnService) refund(ctx context.Context, order Order, ret ReturnRequest) error {
	if s.payments == nil {
		return fmt.Errorf("%w: payments are not configured", ErrReturnRefundFailed)
	}
	if order.PaymentResult == nil {
		return fmt.Errorf("%w: order has no payment to refund", ErrReturnRefundFailed)
	}
	provider := order.PaymentResult.Provider
	if provider == "" {
		provider = string(order.PaymentMethod)
	}
	details, err := s.payments.Refund(ctx, payments.PaymentContext{PreferredProvider: provider, Currency: order.Currency}, payments.RefundRequest{
		MerchantOID:    order.PaymentResult.MerchantOID,
		Reference:      order.PaymentResult.Reference,
		Amount:         ret.RefundAmount,
		Currency:       order.Currency,
		Reason:         string(ret.Reason),
		IdempotencyKey: "refund-" + ret.ID,
	})
	if err != nil {
		return errors.Join(ErrReturnRefundFailed, err)
	}
	s.logger(ctx, "return.refunded", map[string]any{
		"returnId": ret.ID,
		"orderId":  order.ID,
		"provider": provider,
		"amount":   ret.RefundAmount,
		"status":   string(details.Status),
	})
	return nil
}
