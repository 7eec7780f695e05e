package domain

import "time"

// OrderStatus enumerates the order lifecycle.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusReturnRequested OrderStatus = "return_requested"
	OrderStatusReturnApproved  OrderStatus = "return_approved"
	OrderStatusRefunded        OrderStatus = "refunded"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// PaymentMethod is the provider a customer pays with.
type PaymentMethod string

const (
	PaymentMethodPayTR  PaymentMethod = "paytr"
	PaymentMethodStripe PaymentMethod = "stripe"
)

// OrderItem is a cart line frozen at checkout.
type OrderItem struct {
	ProductID string
	Name      string
	Image     string
	Price     int64
	Qty       int
}

// PaymentResult records the latest provider outcome for the order.
type PaymentResult struct {
	Provider    string
	MerchantOID string
	// Reference is the provider's own payment handle, e.g. a Stripe intent.
	Reference   string
	Status      string
	Amount      int64
	UpdatedAt   time.Time
}

// Tracking holds carrier details once the order ships.
type Tracking struct {
	Carrier        string
	TrackingNumber string
	TrackingURL    string
	ShipmentID     string
}

// Order is a placed order. Amounts are in minor units.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	ItemsPrice      int64
	ShippingPrice   int64
	TotalPrice      int64
	Currency        string
	Status          OrderStatus
	IsPaid          bool
	PaidAt          *time.Time
	IsDelivered     bool
	DeliveredAt     *time.Time
	PaymentResult   *PaymentResult
	Tracking        *Tracking
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CancelledAt     *time.Time
	CancelReason    string
}

// OrderEvent is published to the orders topic on lifecycle changes.
type OrderEvent struct {
	Type           string      `json:"type"`
	OrderID        string      `json:"orderId"`
	OrderNumber    string      `json:"orderNumber"`
	UserID         string      `json:"userId"`
	Status         OrderStatus `json:"status"`
	PreviousStatus OrderStatus `json:"previousStatus,omitempty"`
	TotalPrice     int64       `json:"totalPrice"`
	Currency       string      `json:"currency"`
	OccurredAt     time.Time   `json:"occurredAt"`
}

// Order event types.
const (
	OrderEventCreated       = "order.created"
	OrderEventStatusChanged = "order.status_changed"
	OrderEventPaid          = "order.paid"
)
