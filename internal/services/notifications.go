package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/email"
)

// Notifier sends the transactional mails triggered by service operations.
// Delivery is best effort: implementations log failures instead of failing the
// operation that triggered them.
type Notifier interface {
	PasswordCode(ctx context.Context, user User, code string, ttl time.Duration)
	PasswordChanged(ctx context.Context, user User)
	OrderConfirmed(ctx context.Context, order Order)
	OrderShipped(ctx context.Context, order Order)
	OrderDelivered(ctx context.Context, order Order)
	ReturnReceived(ctx context.Context, ret ReturnRequest)
}

type userLookup interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
}

// EmailNotifierDeps wires the composer, transport and user lookup.
type EmailNotifierDeps struct {
	Composer         *email.Composer
	Sender           email.Sender
	Users            userLookup
	ReturnWindowDays int
	Logger           func(context.Context, string, map[string]any)
}

type emailNotifier struct {
	composer   *email.Composer
	sender     email.Sender
	users      userLookup
	returnDays int
	logger     func(context.Context, string, map[string]any)
}

// NewEmailNotifier builds a Notifier that renders templates and hands them to
// the configured sender.
func NewEmailNotifier(deps EmailNotifierDeps) (Notifier, error) {
	if deps.Composer == nil {
		return nil, errors.New("email notifier: composer is required")
	}
	if deps.Sender == nil {
		return nil, errors.New("email notifier: sender is required")
	}
	if deps.Users == nil {
		return nil, errors.New("email notifier: user repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger()
	}
	days := deps.ReturnWindowDays
	if days <= 0 {
		days = DefaultReturnWindowDays
	}
	return &emailNotifier{
		composer:   deps.Composer,
		sender:     deps.Sender,
		users:      deps.Users,
		returnDays: days,
		logger:     logger,
	}, nil
}

func recipientFor(user User) email.Recipient {
	return email.Recipient{Email: user.Email, Name: user.FullName()}
}

func (n *emailNotifier) PasswordCode(ctx context.Context, user User, code string, ttl time.Duration) {
	n.deliver(ctx, email.TemplatePasswordCode, func() (email.Message, error) {
		return n.composer.PasswordCode(recipientFor(user), email.PasswordCodeData{
			Name:             user.Name,
			Code:             code,
			ExpiresInMinutes: int(ttl / time.Minute),
		})
	})
}

func (n *emailNotifier) PasswordChanged(ctx context.Context, user User) {
	n.deliver(ctx, email.TemplatePasswordChanged, func() (email.Message, error) {
		return n.composer.PasswordChanged(recipientFor(user), email.PasswordChangedData{
			Name:      user.Name,
			ChangedAt: time.Now(),
		})
	})
}

func (n *emailNotifier) OrderConfirmed(ctx context.Context, order Order) {
	user, ok := n.lookup(ctx, order.UserID)
	if !ok {
		return
	}
	items := make([]email.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, email.LineItem{Name: item.Name, Qty: item.Qty, Total: item.Price * int64(item.Qty)})
	}
	n.deliver(ctx, email.TemplateOrderConfirmation, func() (email.Message, error) {
		return n.composer.OrderConfirmation(recipientFor(user), email.OrderConfirmationData{
			Name:          user.Name,
			OrderNumber:   order.OrderNumber,
			Items:         items,
			ItemsPrice:    order.ItemsPrice,
			ShippingPrice: order.ShippingPrice,
			TotalPrice:    order.TotalPrice,
			Address:       order.ShippingAddress.OneLine(),
		})
	})
}

func (n *emailNotifier) OrderShipped(ctx context.Context, order Order) {
	user, ok := n.lookup(ctx, order.UserID)
	if !ok {
		return
	}
	data := email.OrderShippedData{Name: user.Name, OrderNumber: order.OrderNumber}
	if order.Tracking != nil {
		data.Carrier = order.Tracking.Carrier
		data.TrackingNumber = order.Tracking.TrackingNumber
		data.TrackingURL = order.Tracking.TrackingURL
	}
	n.deliver(ctx, email.TemplateOrderShipped, func() (email.Message, error) {
		return n.composer.OrderShipped(recipientFor(user), data)
	})
}

func (n *emailNotifier) OrderDelivered(ctx context.Context, order Order) {
	user, ok := n.lookup(ctx, order.UserID)
	if !ok {
		return
	}
	n.deliver(ctx, email.TemplateOrderDelivered, func() (email.Message, error) {
		return n.composer.OrderDelivered(recipientFor(user), email.OrderDeliveredData{
			Name:             user.Name,
			OrderNumber:      order.OrderNumber,
			ReturnWindowDays: n.returnDays,
		})
	})
}

func (n *emailNotifier) ReturnReceived(ctx context.Context, ret ReturnRequest) {
	user, ok := n.lookup(ctx, ret.UserID)
	if !ok {
		return
	}
	n.deliver(ctx, email.TemplateReturnReceived, func() (email.Message, error) {
		return n.composer.ReturnReceived(recipientFor(user), email.ReturnReceivedData{
			Name:         user.Name,
			OrderNumber:  ret.OrderNumber,
			RefundAmount: ret.RefundAmount,
			Reason:       string(ret.Reason),
			Note:         ret.Note,
		})
	})
}

func (n *emailNotifier) lookup(ctx context.Context, userID string) (User, bool) {
	user, err := n.users.FindByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		n.logger(ctx, "email.recipient_lookup_failed", map[string]any{"userId": userID, "error": err.Error()})
		return User{}, false
	}
	return user, true
}

func (n *emailNotifier) deliver(ctx context.Context, template string, render func() (email.Message, error)) {
	msg, err := render()
	if err != nil {
		n.logger(ctx, "email.render_failed", map[string]any{"template": template, "error": err.Error()})
		return
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger(ctx, "email.send_failed", map[string]any{"template": template, "to": msg.To, "error": err.Error()})
		return
	}
	n.logger(ctx, "email.sent", map[string]any{"template": template})
}

type noopNotifier struct{}

func (noopNotifier) PasswordCode(context.Context, User, string, time.Duration) {}
func (noopNotifier) PasswordChanged(context.Context, User)                     {}
func (noopNotifier) OrderConfirmed(context.Context, Order)                     {}
func (noopNotifier) OrderShipped(context.Context, Order)                       {}
func (noopNotifier) OrderDelivered(context.Context, Order)                     {}
func (noopNotifier) ReturnReceived(context.Context, ReturnRequest)             {}
