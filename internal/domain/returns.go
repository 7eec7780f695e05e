package domain

import "time"

// ReturnReason is why the customer sends items back.
type ReturnReason string

const (
	ReturnReasonDamaged        ReturnReason = "damaged"
	ReturnReasonWrongItem      ReturnReason = "wrong_item"
	ReturnReasonNotAsDescribed ReturnReason = "not_as_described"
	ReturnReasonChangedMind    ReturnReason = "changed_mind"
	ReturnReasonSizeIssue      ReturnReason = "size_issue"
	ReturnReasonOther          ReturnReason = "other"
)

// Valid reports whether r is a known reason.
func (r ReturnReason) Valid() bool {
	switch r {
	case ReturnReasonDamaged, ReturnReasonWrongItem, ReturnReasonNotAsDescribed,
		ReturnReasonChangedMind, ReturnReasonSizeIssue, ReturnReasonOther:
		return true
	}
	return false
}

// ReturnStatus is the lifecycle of a return request.
type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "pending"
	ReturnStatusApproved ReturnStatus = "approved"
	ReturnStatusRejected ReturnStatus = "rejected"
	ReturnStatusRefunded ReturnStatus = "refunded"
)

// ReturnItem is one product line being returned.
type ReturnItem struct {
	ProductID string
	Name      string
	Qty       int
	Price     int64
}

// ReturnRequest is a customer's request to send back items from an order.
type ReturnRequest struct {
	ID           string
	OrderID      string
	OrderNumber  string
	UserID       string
	Items        []ReturnItem
	Reason       ReturnReason
	Note         string
	Status       ReturnStatus
	RefundAmount int64
	OrderStatus  OrderStatus // order status before the return was requested
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ResolvedAt   *time.Time
}

// ReturnEligibility explains whether an order can still be returned.
type ReturnEligibility struct {
	Eligible bool
	Reason   string
	Deadline *time.Time
}
