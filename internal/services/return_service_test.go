package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/payments"
	"github.com/jewelry-storefront/api/internal/repositories"
)

type memoryReturnRepository struct {
	returns   map[string]domain.ReturnRequest
	insertErr error
	tick      time.Time
}

func newMemoryReturnRepository() *memoryReturnRepository {
	return &memoryReturnRepository{returns: map[string]domain.ReturnRequest{}, tick: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *memoryReturnRepository) Insert(_ context.Context, ret domain.ReturnRequest) (domain.ReturnRequest, error) {
	if r.insertErr != nil {
		return domain.ReturnRequest{}, r.insertErr
	}
	r.tick = r.tick.Add(time.Second)
	ret.UpdatedAt = r.tick
	r.returns[ret.ID] = ret
	return ret, nil
}

func (r *memoryReturnRepository) Update(_ context.Context, ret domain.ReturnRequest, expected time.Time) (domain.ReturnRequest, error) {
	current, ok := r.returns[ret.ID]
	if !ok {
		return domain.ReturnRequest{}, &stubRepoError{notFound: true}
	}
	if !current.UpdatedAt.Equal(expected) {
		return domain.ReturnRequest{}, &stubRepoError{conflict: true}
	}
	r.tick = r.tick.Add(time.Second)
	ret.UpdatedAt = r.tick
	r.returns[ret.ID] = ret
	return ret, nil
}

func (r *memoryReturnRepository) FindByID(_ context.Context, id string) (domain.ReturnRequest, error) {
	if ret, ok := r.returns[id]; ok {
		return ret, nil
	}
	return domain.ReturnRequest{}, &stubRepoError{notFound: true}
}

func (r *memoryReturnRepository) List(_ context.Context, filter repositories.ReturnListFilter) (domain.Page[domain.ReturnRequest], error) {
	var items []domain.ReturnRequest
	for _, ret := range r.returns {
		if filter.UserID != "" && ret.UserID != filter.UserID {
			continue
		}
		items = append(items, ret)
	}
	return domain.Page[domain.ReturnRequest]{Items: items}, nil
}

type stubRefunder struct {
	requests []payments.RefundRequest
	contexts []payments.PaymentContext
	err      error
}

func (s *stubRefunder) Refund(_ context.Context, pc payments.PaymentContext, req payments.RefundRequest) (payments.PaymentDetails, error) {
	s.contexts = append(s.contexts, pc)
	s.requests = append(s.requests, req)
	if s.err != nil {
		return payments.PaymentDetails{}, s.err
	}
	return payments.PaymentDetails{Status: payments.StatusRefunded, Amount: req.Amount}, nil
}

func TestCanRequestReturn(t *testing.T) {
	delivered := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	paid := delivered.Add(-72 * time.Hour)
	base := Order{IsPaid: true, Status: domain.OrderStatusDelivered, DeliveredAt: &delivered, PaidAt: &paid, CreatedAt: paid}

	cases := []struct {
		name   string
		order  func() Order
		now    time.Time
		want   bool
		reason string
	}{
		{"same day", func() Order { return base }, delivered.Add(time.Hour), true, ""},
		{"exactly fourteen days", func() Order { return base }, delivered.Add(14 * 24 * time.Hour), true, ""},
		{"fourteen days and change still floors to fourteen", func() Order { return base }, delivered.Add(15*24*time.Hour - time.Minute), true, ""},
		{"fifteen days", func() Order { return base }, delivered.Add(15 * 24 * time.Hour), false, ReturnIneligibleWindowExpired},
		{"unpaid", func() Order { o := base; o.IsPaid = false; return o }, delivered, false, ReturnIneligibleNotPaid},
		{"already requested", func() Order { o := base; o.Status = domain.OrderStatusReturnRequested; return o }, delivered, false, ReturnIneligibleStatus},
		{"cancelled", func() Order { o := base; o.Status = domain.OrderStatusCancelled; return o }, delivered, false, ReturnIneligibleStatus},
		{"falls back to paidAt", func() Order { o := base; o.DeliveredAt = nil; return o }, paid.Add(15 * 24 * time.Hour), false, ReturnIneligibleWindowExpired},
		{"falls back to createdAt", func() Order { o := base; o.DeliveredAt, o.PaidAt = nil, nil; return o }, paid.Add(14 * 24 * time.Hour), true, ""},
		{"shipped but not delivered", func() Order { o := base; o.Status, o.DeliveredAt = domain.OrderStatusShipped, nil; return o }, paid.Add(24 * time.Hour), true, ""},
		{"processing", func() Order { o := base; o.Status, o.DeliveredAt = domain.OrderStatusProcessing, nil; return o }, paid, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CanRequestReturn(tc.order(), tc.now, DefaultReturnWindowDays)
			if got.Eligible != tc.want || got.Reason != tc.reason {
				t.Fatalf("expected eligible=%v reason=%q, got %+v", tc.want, tc.reason, got)
			}
		})
	}
}

func TestCanRequestReturnDeadlineIsLastEligibleInstant(t *testing.T) {
	delivered := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	order := Order{IsPaid: true, Status: domain.OrderStatusDelivered, DeliveredAt: &delivered}

	got := CanRequestReturn(order, delivered, DefaultReturnWindowDays)
	want := time.Date(2026, 6, 15, 23, 59, 59, 999999999, time.UTC)
	if got.Deadline == nil || !got.Deadline.Equal(want) {
		t.Fatalf("expected deadline %s, got %v", want, got.Deadline)
	}
	if at := CanRequestReturn(order, want, DefaultReturnWindowDays); !at.Eligible {
		t.Fatalf("expected eligible at the deadline, got %+v", at)
	}
	if after := CanRequestReturn(order, want.Add(time.Nanosecond), DefaultReturnWindowDays); after.Eligible {
		t.Fatalf("expected ineligible after the deadline, got %+v", after)
	}
}

type returnFixture struct {
	svc      ReturnService
	orders   orderFixture
	returns  *memoryReturnRepository
	refunder *stubRefunder
}

func deliveredOrder(now time.Time) domain.Order {
	delivered := now.Add(-48 * time.Hour)
	return domain.Order{
		ID: "o1", OrderNumber: "JW-2026-000007", UserID: "u1", Status: domain.OrderStatusDelivered,
		IsPaid: true, IsDelivered: true, DeliveredAt: &delivered, Currency: "TRY",
		PaymentMethod: domain.PaymentMethodPayTR,
		Items: []domain.OrderItem{
			{ProductID: "p1", Name: "Kolye", Price: 40000, Qty: 2},
			{ProductID: "p2", Name: "Küpe", Price: 15000, Qty: 1},
		},
		PaymentResult: &domain.PaymentResult{Provider: "paytr", MerchantOID: "JW2026000007", Status: "success"},
	}
}

func newReturnFixture(t *testing.T) returnFixture {
	t.Helper()
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	f := returnFixture{
		orders:   newOrderFixture(t, deliveredOrder(now)),
		returns:  newMemoryReturnRepository(),
		refunder: &stubRefunder{},
	}
	svc, err := NewReturnService(ReturnServiceDeps{
		Returns:     f.returns,
		Orders:      f.orders.svc,
		Payments:    f.refunder,
		Notifier:    f.orders.notifier,
		Clock:       func() time.Time { return now },
		IDGenerator: sequentialIDs("r"),
	})
	if err != nil {
		t.Fatalf("new return service: %v", err)
	}
	f.svc = svc
	return f
}

func TestReturnServiceCreate(t *testing.T) {
	f := newReturnFixture(t)

	ret, err := f.svc.Create(context.Background(), CreateReturnCommand{
		UserID:  "u1",
		OrderID: "o1",
		Items:   []ReturnItemSelection{{ProductID: "p1", Qty: 1}, {ProductID: "p1", Qty: 1}},
		Reason:  domain.ReturnReasonDamaged,
		Note:    " kırık geldi ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ret.RefundAmount != 80000 || len(ret.Items) != 1 || ret.Items[0].Qty != 2 {
		t.Fatalf("expected merged line and refund 80000, got %+v", ret)
	}
	if ret.Status != domain.ReturnStatusPending || ret.Note != "kırık geldi" || ret.OrderNumber != "JW-2026-000007" {
		t.Fatalf("unexpected return %+v", ret)
	}
	order, _ := f.orders.repo.FindByID(context.Background(), "o1")
	if order.Status != domain.OrderStatusReturnRequested {
		t.Fatalf("expected order return_requested, got %s", order.Status)
	}
	if f.orders.notifier.sent[len(f.orders.notifier.sent)-1] != "return_received" {
		t.Fatalf("expected return email, got %v", f.orders.notifier.sent)
	}

	_, err = f.svc.Create(context.Background(), CreateReturnCommand{
		UserID: "u1", OrderID: "o1", Items: []ReturnItemSelection{{ProductID: "p2", Qty: 1}}, Reason: domain.ReturnReasonOther,
	})
	if !errors.Is(err, ErrReturnNotEligible) {
		t.Fatalf("expected second request rejected, got %v", err)
	}
}

func TestReturnServiceUndeliveredPaidOrder(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()
	order := f.orders.repo.orders["o1"]
	paid := order.DeliveredAt.Add(-24 * time.Hour)
	order.Status = domain.OrderStatusShipped
	order.IsDelivered = false
	order.DeliveredAt = nil
	order.PaidAt = &paid
	f.orders.repo.orders["o1"] = order

	eligibility, err := f.svc.Eligibility(ctx, "o1", Viewer{UserID: "u1"})
	if err != nil {
		t.Fatalf("eligibility: %v", err)
	}
	if !eligibility.Eligible {
		t.Fatalf("paid shipped order should be returnable, got %+v", eligibility)
	}

	ret := createTestReturn(t, f)
	if ret.OrderStatus != domain.OrderStatusShipped {
		t.Fatalf("expected prior status recorded, got %q", ret.OrderStatus)
	}
	if _, err := f.svc.Resolve(ctx, ResolveReturnCommand{ReturnID: ret.ID, Resolution: ReturnResolutionReject, ActorID: "admin"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	restored := f.orders.repo.orders["o1"]
	if restored.Status != domain.OrderStatusShipped || restored.IsDelivered {
		t.Fatalf("expected order back to shipped, got %s", restored.Status)
	}
	for _, sent := range f.orders.notifier.sent {
		if sent == "order_shipped" {
			t.Fatalf("restoring shipped must not resend the shipping email")
		}
	}
}

func TestReturnServiceCreateValidatesItems(t *testing.T) {
	cases := []struct {
		name  string
		items []ReturnItemSelection
	}{
		{"no items", nil},
		{"unknown product", []ReturnItemSelection{{ProductID: "p9", Qty: 1}}},
		{"more than ordered", []ReturnItemSelection{{ProductID: "p2", Qty: 2}}},
		{"zero quantity", []ReturnItemSelection{{ProductID: "p1", Qty: 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newReturnFixture(t)
			_, err := f.svc.Create(context.Background(), CreateReturnCommand{
				UserID: "u1", OrderID: "o1", Items: tc.items, Reason: domain.ReturnReasonSizeIssue,
			})
			if !errors.Is(err, ErrReturnInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestReturnServiceCreateRejectsOtherUsersOrder(t *testing.T) {
	f := newReturnFixture(t)
	_, err := f.svc.Create(context.Background(), CreateReturnCommand{
		UserID: "u2", OrderID: "o1", Items: []ReturnItemSelection{{ProductID: "p1", Qty: 1}}, Reason: domain.ReturnReasonOther,
	})
	if !errors.Is(err, ErrOrderForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestReturnServiceCreateRollsBackOrderWhenInsertFails(t *testing.T) {
	f := newReturnFixture(t)
	f.returns.insertErr = &stubRepoError{unavailable: true}
	_, err := f.svc.Create(context.Background(), CreateReturnCommand{
		UserID: "u1", OrderID: "o1", Items: []ReturnItemSelection{{ProductID: "p1", Qty: 1}}, Reason: domain.ReturnReasonOther,
	})
	if !errors.Is(err, ErrReturnUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	order, _ := f.orders.repo.FindByID(context.Background(), "o1")
	if order.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected order restored to delivered, got %s", order.Status)
	}
}

func createTestReturn(t *testing.T, f returnFixture) ReturnRequest {
	t.Helper()
	ret, err := f.svc.Create(context.Background(), CreateReturnCommand{
		UserID: "u1", OrderID: "o1", Items: []ReturnItemSelection{{ProductID: "p2", Qty: 1}}, Reason: domain.ReturnReasonChangedMind,
	})
	if err != nil {
		t.Fatalf("create return: %v", err)
	}
	return ret
}

func TestReturnServiceResolve(t *testing.T) {
	t.Run("reject restores delivered", func(t *testing.T) {
		f := newReturnFixture(t)
		ret := createTestReturn(t, f)
		resolved, err := f.svc.Resolve(context.Background(), ResolveReturnCommand{ReturnID: ret.ID, Resolution: ReturnResolutionReject, ActorID: "admin"})
		if err != nil {
			t.Fatalf("reject: %v", err)
		}
		if resolved.Status != domain.ReturnStatusRejected || resolved.ResolvedAt == nil {
			t.Fatalf("unexpected return %+v", resolved)
		}
		order, _ := f.orders.repo.FindByID(context.Background(), "o1")
		if order.Status != domain.OrderStatusDelivered {
			t.Fatalf("expected delivered, got %s", order.Status)
		}
	})

	t.Run("approve then refund", func(t *testing.T) {
		f := newReturnFixture(t)
		ret := createTestReturn(t, f)
		approved, err := f.svc.Resolve(context.Background(), ResolveReturnCommand{ReturnID: ret.ID, Resolution: ReturnResolutionApprove})
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		if approved.Status != domain.ReturnStatusApproved {
			t.Fatalf("expected approved, got %s", approved.Status)
		}
		refunded, err := f.svc.Resolve(context.Background(), ResolveReturnCommand{ReturnID: ret.ID, Resolution: ReturnResolutionRefund})
		if err != nil {
			t.Fatalf("refund: %v", err)
		}
		if refunded.Status != domain.ReturnStatusRefunded {
			t.Fatalf("expected refunded, got %s", refunded.Status)
		}
		if len(f.refunder.requests) != 1 {
			t.Fatalf("expected one refund call, got %d", len(f.refunder.requests))
		}
		req := f.refunder.requests[0]
		if req.Amount != 15000 || req.MerchantOID != "JW2026000007" || req.IdempotencyKey != "refund-"+ret.ID {
			t.Fatalf("unexpected refund request %+v", req)
		}
		if f.refunder.contexts[0].PreferredProvider != "paytr" {
			t.Fatalf("expected paytr routing, got %+v", f.refunder.contexts[0])
		}
		order, _ := f.orders.repo.FindByID(context.Background(), "o1")
		if order.Status != domain.OrderStatusRefunded {
			t.Fatalf("expected refunded order, got %s", order.Status)
		}
	})

	t.Run("refund straight from pending", func(t *testing.T) {
		f := newReturnFixture(t)
		ret := createTestReturn(t, f)
		if _, err := f.svc.Resolve(context.Background(), ResolveReturnCommand{ReturnID: ret.ID, Resolution: ReturnResolutionRefund}); err != nil {
			t.Fatalf("refund: %v", err)
		}
		order, _ := f.orders.repo.FindByID(context.Background(), "o1")
		if order.Status != domain.OrderStatusRefunded {
			t.Fatalf("expected refunded order, got %s", order.Status)
		}
	})

	t.Run("provider failure keeps return open", func(t *testing.T) {
		f := newReturnFixture(t)
		f.refunder.err = errors.New("paytr: refund rejected")
		ret := createTestReturn(t, f)
		_, err := f.svc.Resolve(context.Background(), ResolveReturnCommand{ReturnID: ret.ID, Resolution: ReturnResolutionRefund})
		if !errors.Is(err, ErrReturnRefundFailed) {
			t.Fatalf("expected refund failure, got %v", err)
		}
		stored, _ := f.returns.FindByID(context.Background(), ret.ID)
		if stored.Status != domain.ReturnStatusPending {
			t.Fatalf("expected return still pending, got %s", stored.Status)
		}
	})

	t.Run("cannot approve twice", func(t *testing.T) {
		f := newReturnFixture(t)
		ret := createTestReturn(t, f)
		if _, err := f.svc.Resolve(context.Background(), ResolveReturnCommand{ReturnID: ret.ID, Resolution: ReturnResolutionApprove}); err != nil {
			t.Fatalf("approve: %v", err)
		}
		_, err := f.svc.Resolve(context.Background(), ResolveReturnCommand{ReturnID: ret.ID, Resolution: ReturnResolutionApprove})
		if !errors.Is(err, ErrReturnInvalidState) {
			t.Fatalf("expected invalid state, got %v", err)
		}
	})
}

func TestReturnServiceGetEnforcesOwnership(t *testing.T) {
	f := newReturnFixture(t)
	ret := createTestReturn(t, f)
	if _, err := f.svc.Get(context.Background(), ret.ID, Viewer{UserID: "u2"}); !errors.Is(err, ErrReturnForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), ret.ID, Viewer{UserID: "u1"}); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}
