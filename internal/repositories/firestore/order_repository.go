package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jewelry-storefront/api/internal/domain"
	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
	"github.com/jewelry-storefront/api/internal/repositories"
)

const orderCollection = "orders"

type paymentResultDocument struct {
	Provider    string    `firestore:"provider"`
	MerchantOID string    `firestore:"merchantOid"`
	Reference   string    `firestore:"reference,omitempty"`
	Status      string    `firestore:"status"`
	Amount      int64     `firestore:"amount"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

type trackingDocument struct {
	Carrier        string `firestore:"carrier"`
	TrackingNumber string `firestore:"trackingNumber"`
	TrackingURL    string `firestore:"trackingUrl,omitempty"`
	ShipmentID     string `firestore:"shipmentId,omitempty"`
}

type orderDocument struct {
	OrderNumber     string                 `firestore:"orderNumber"`
	UserID          string                 `firestore:"userId"`
	Items           []lineItemDocument     `firestore:"orderItems"`
	ShippingAddress addressDocument        `firestore:"shippingAddress"`
	PaymentMethod   string                 `firestore:"paymentMethod"`
	ItemsPrice      int64                  `firestore:"itemsPrice"`
	ShippingPrice   int64                  `firestore:"shippingPrice"`
	TotalPrice      int64                  `firestore:"totalPrice"`
	Currency        string                 `firestore:"currency"`
	Status          string                 `firestore:"status"`
	IsPaid          bool                   `firestore:"isPaid"`
	PaidAt          *time.Time             `firestore:"paidAt"`
	IsDelivered     bool                   `firestore:"isDelivered"`
	DeliveredAt     *time.Time             `firestore:"deliveredAt"`
	MerchantOID     string                 `firestore:"merchantOid,omitempty"`
	PaymentResult   *paymentResultDocument `firestore:"paymentResult"`
	Tracking        *trackingDocument      `firestore:"tracking"`
	CreatedAt       time.Time              `firestore:"createdAt"`
	UpdatedAt       time.Time              `firestore:"updatedAt"`
	CancelledAt     *time.Time             `firestore:"cancelledAt"`
	CancelReason    string                 `firestore:"cancelReason,omitempty"`
}

// OrderRepository persists orders. Updates run in a transaction that checks
// the document's update time against the caller's copy.
type OrderRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.Collection[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		base:     pfirestore.NewCollection[orderDocument](provider, orderCollection),
	}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	if strings.TrimSpace(order.ID) == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	updated, err := r.base.Create(ctx, order.ID, fromDomainOrder(order))
	if err != nil {
		return domain.Order{}, err
	}
	order.UpdatedAt = updated
	return order, nil
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order, expectedUpdate time.Time) (domain.Order, error) {
	ref, err := r.base.Doc(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	doc := fromDomainOrder(order)
	err = r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if !expectedUpdate.IsZero() && !snap.UpdateTime.Equal(expectedUpdate) {
			return pfirestore.Conflict("orders.update", "order was modified concurrently")
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.update", err)
	}
	// The transaction does not surface the commit time; re-read it.
	saved, err := r.FindByID(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return saved, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID, doc.UpdateTime), nil
}

func (r *OrderRepository) FindByMerchantOID(ctx context.Context, merchantOID string) (domain.Order, error) {
	merchantOID = strings.TrimSpace(merchantOID)
	if merchantOID == "" {
		return domain.Order{}, errors.New("order repository: merchant oid is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("merchantOid", "==", merchantOID).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, pfirestore.NotFound("orders.findByMerchantOid", "no order for merchant oid")
	}
	return docs[0].Data.toDomain(docs[0].ID, docs[0].UpdateTime), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.Page[domain.Order], error) {
	window, err := newPageWindow(filter.Pagination)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID := strings.TrimSpace(filter.UserID); userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if statuses := statusStrings(filter.Status); len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("status", "in", statuses)
		}
		return window.apply(q)
	})
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}
	return collectPage(docs, window,
		func(doc pfirestore.Document[orderDocument]) domain.Order { return doc.Data.toDomain(doc.ID, doc.UpdateTime) },
		func(d orderDocument) time.Time { return d.CreatedAt },
	), nil
}

func fromDomainOrder(o domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Items:           make([]lineItemDocument, 0, len(o.Items)),
		ShippingAddress: *fromDomainAddress(&o.ShippingAddress),
		PaymentMethod:   string(o.PaymentMethod),
		ItemsPrice:      o.ItemsPrice,
		ShippingPrice:   o.ShippingPrice,
		TotalPrice:      o.TotalPrice,
		Currency:        o.Currency,
		Status:          string(o.Status),
		IsPaid:          o.IsPaid,
		PaidAt:          utcPtr(o.PaidAt),
		IsDelivered:     o.IsDelivered,
		DeliveredAt:     utcPtr(o.DeliveredAt),
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       time.Now().UTC(),
		CancelledAt:     utcPtr(o.CancelledAt),
		CancelReason:    o.CancelReason,
	}
	for _, item := range o.Items {
		doc.Items = append(doc.Items, lineItemDocument(item))
	}
	if o.PaymentResult != nil {
		doc.MerchantOID = o.PaymentResult.MerchantOID
		doc.PaymentResult = &paymentResultDocument{
			Provider:    o.PaymentResult.Provider,
			MerchantOID: o.PaymentResult.MerchantOID,
			Reference:   o.PaymentResult.Reference,
			Status:      o.PaymentResult.Status,
			Amount:      o.PaymentResult.Amount,
			UpdatedAt:   o.PaymentResult.UpdatedAt.UTC(),
		}
	}
	if o.Tracking != nil {
		tracking := trackingDocument(*o.Tracking)
		doc.Tracking = &tracking
	}
	return doc
}

func (d orderDocument) toDomain(id string, updateTime time.Time) domain.Order {
	order := domain.Order{
		ID:              id,
		OrderNumber:     d.OrderNumber,
		UserID:          d.UserID,
		Items:           make([]domain.OrderItem, 0, len(d.Items)),
		ShippingAddress: *d.ShippingAddress.toDomain(),
		PaymentMethod:   domain.PaymentMethod(d.PaymentMethod),
		ItemsPrice:      d.ItemsPrice,
		ShippingPrice:   d.ShippingPrice,
		TotalPrice:      d.TotalPrice,
		Currency:        d.Currency,
		Status:          domain.OrderStatus(d.Status),
		IsPaid:          d.IsPaid,
		PaidAt:          d.PaidAt,
		IsDelivered:     d.IsDelivered,
		DeliveredAt:     d.DeliveredAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       updateTime,
		CancelledAt:     d.CancelledAt,
		CancelReason:    d.CancelReason,
	}
	for _, item := range d.Items {
		order.Items = append(order.Items, domain.OrderItem(item))
	}
	if d.PaymentResult != nil {
		order.PaymentResult = &domain.PaymentResult{
			Provider:    d.PaymentResult.Provider,
			MerchantOID: d.PaymentResult.MerchantOID,
			Reference:   d.PaymentResult.Reference,
			Status:      d.PaymentResult.Status,
			Amount:      d.PaymentResult.Amount,
			UpdatedAt:   d.PaymentResult.UpdatedAt,
		}
	}
	if d.Tracking != nil {
		tracking := domain.Tracking(*d.Tracking)
		order.Tracking = &tracking
	}
	return order
}
