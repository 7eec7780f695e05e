package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jewelry-storefront/api/internal/domain"
	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
)

const checkoutSessionCollection = "checkout_sessions"

type checkoutSessionDocument struct {
	Step            int              `firestore:"step"`
	CompletedSteps  []int            `firestore:"completedSteps"`
	ShippingAddress *addressDocument `firestore:"shippingAddress"`
	Provider        string           `firestore:"provider,omitempty"`
	PaymentToken    string           `firestore:"paymentToken,omitempty"`
	PaymentRef      string           `firestore:"paymentRef,omitempty"`
	IframeURL       string           `firestore:"iframeUrl,omitempty"`
	OrderID         string           `firestore:"orderId,omitempty"`
	MerchantOID     string           `firestore:"merchantOid,omitempty"`
	Status          string           `firestore:"status"`
	FailureReason   string           `firestore:"failureReason,omitempty"`
	UpdatedAt       time.Time        `firestore:"updatedAt"`
}

// CheckoutSessionRepository stores the checkout wizard state, keyed by user ID.
type CheckoutSessionRepository struct {
	base *pfirestore.Collection[checkoutSessionDocument]
}

func NewCheckoutSessionRepository(provider *pfirestore.Provider) (*CheckoutSessionRepository, error) {
	if provider == nil {
		return nil, errors.New("checkout session repository requires firestore provider")
	}
	return &CheckoutSessionRepository{base: pfirestore.NewCollection[checkoutSessionDocument](provider, checkoutSessionCollection)}, nil
}

func (r *CheckoutSessionRepository) Find(ctx context.Context, userID string) (domain.CheckoutSession, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.CheckoutSession{}, errors.New("checkout session repository: user id is required")
	}
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

func (r *CheckoutSessionRepository) FindByMerchantOID(ctx context.Context, merchantOID string) (domain.CheckoutSession, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("merchantOid", "==", strings.TrimSpace(merchantOID)).Limit(1)
	})
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	if len(docs) == 0 {
		return domain.CheckoutSession{}, pfirestore.NotFound("checkout_sessions.findByMerchantOid", "no checkout session for merchant oid")
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *CheckoutSessionRepository) Save(ctx context.Context, session domain.CheckoutSession) (domain.CheckoutSession, error) {
	doc := checkoutSessionDocument{
		Step:            int(session.Step),
		CompletedSteps:  make([]int, 0, len(session.CompletedSteps)),
		ShippingAddress: fromDomainAddress(session.ShippingAddress),
		Provider:        session.Provider,
		PaymentToken:    session.PaymentToken,
		PaymentRef:      session.PaymentRef,
		IframeURL:       session.IframeURL,
		OrderID:         session.OrderID,
		MerchantOID:     session.MerchantOID,
		Status:          string(session.Status),
		FailureReason:   session.FailureReason,
		UpdatedAt:       time.Now().UTC(),
	}
	for _, step := range session.CompletedSteps {
		doc.CompletedSteps = append(doc.CompletedSteps, int(step))
	}
	updated, err := r.base.Set(ctx, session.UserID, doc)
	if err != nil {
		return domain.CheckoutSession{}, err
	}
	session.UpdatedAt = updated
	return session, nil
}

func (r *CheckoutSessionRepository) Delete(ctx context.Context, userID string) error {
	return r.base.Delete(ctx, userID)
}

func (d checkoutSessionDocument) toDomain(userID string) domain.CheckoutSession {
	session := domain.CheckoutSession{
		UserID:          userID,
		Step:            domain.CheckoutStep(d.Step),
		CompletedSteps:  make([]domain.CheckoutStep, 0, len(d.CompletedSteps)),
		ShippingAddress: d.ShippingAddress.toDomain(),
		Provider:        d.Provider,
		PaymentToken:    d.PaymentToken,
		PaymentRef:      d.PaymentRef,
		IframeURL:       d.IframeURL,
		OrderID:         d.OrderID,
		MerchantOID:     d.MerchantOID,
		Status:          domain.CheckoutStatus(d.Status),
		FailureReason:   d.FailureReason,
		UpdatedAt:       d.UpdatedAt,
	}
	for _, step := range d.CompletedSteps {
		session.CompletedSteps = append(session.CompletedSteps, domain.CheckoutStep(step))
	}
	return session
}
