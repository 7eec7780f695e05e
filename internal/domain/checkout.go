package domain

import "time"

// CheckoutStep is a position in the checkout wizard.
type CheckoutStep int

const (
	CheckoutStepShipping CheckoutStep = 1
	CheckoutStepPayment  CheckoutStep = 2
	CheckoutStepReview   CheckoutStep = 3
)

// Valid reports whether s is a wizard step.
func (s CheckoutStep) Valid() bool {
	return s >= CheckoutStepShipping && s <= CheckoutStepReview
}

// CheckoutStatus tracks the payment side of a session.
type CheckoutStatus string

const (
	CheckoutStatusInProgress      CheckoutStatus = "in_progress"
	CheckoutStatusAwaitingPayment CheckoutStatus = "awaiting_payment"
	CheckoutStatusPaymentFailed   CheckoutStatus = "payment_failed"
	CheckoutStatusCompleted       CheckoutStatus = "completed"
)

// CheckoutSession is a user's wizard state.
type CheckoutSession struct {
	UserID          string
	Step            CheckoutStep
	CompletedSteps  []CheckoutStep
	ShippingAddress *ShippingAddress
	Provider        string
	PaymentToken    string
	PaymentRef      string
	IframeURL       string
	OrderID         string
	MerchantOID     string
	Status          CheckoutStatus
	FailureReason   string
	UpdatedAt       time.Time
}

// IsCompleted reports whether step is in CompletedSteps.
func (s CheckoutSession) IsCompleted(step CheckoutStep) bool {
	for _, done := range s.CompletedSteps {
		if done == step {
			return true
		}
	}
	return false
}

// MaxCompleted returns the highest completed step, or 0.
func (s CheckoutSession) MaxCompleted() CheckoutStep {
	var highest CheckoutStep
	for _, done := range s.CompletedSteps {
		if done > highest {
			highest = done
		}
	}
	return highest
}
