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

const returnCollection = "returns"

type returnItemDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	Qty       int    `firestore:"qty"`
	Price     int64  `firestore:"price"`
}

type returnDocument struct {
	OrderID      string               `firestore:"orderId"`
	OrderNumber  string               `firestore:"orderNumber"`
	UserID       string               `firestore:"userId"`
	Items        []returnItemDocument `firestore:"items"`
	Reason       string               `firestore:"reason"`
	Note         string               `firestore:"note,omitempty"`
	Status       string               `firestore:"status"`
	RefundAmount int64                `firestore:"refundAmount"`
	OrderStatus  string               `firestore:"orderStatus,omitempty"`
	CreatedAt    time.Time            `firestore:"createdAt"`
	UpdatedAt    time.Time            `firestore:"updatedAt"`
	ResolvedAt   *time.Time           `firestore:"resolvedAt"`
}

// ReturnRepository persists return requests.
type ReturnRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.Collection[returnDocument]
}

// NewReturnRepository constructs a Firestore-backed return repository.
func NewReturnRepository(provider *pfirestore.Provider) (*ReturnRepository, error) {
	if provider == nil {
		return nil, errors.New("return repository requires firestore provider")
	}
	return &ReturnRepository{
		provider: provider,
		base:     pfirestore.NewCollection[returnDocument](provider, returnCollection),
	}, nil
}

func (r *ReturnRepository) Insert(ctx context.Context, ret domain.ReturnRequest) (domain.ReturnRequest, error) {
	if strings.TrimSpace(ret.ID) == "" {
		return domain.ReturnRequest{}, errors.New("return repository: return id is required")
	}
	updated, err := r.base.Create(ctx, ret.ID, fromDomainReturn(ret))
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	ret.UpdatedAt = updated
	return ret, nil
}

func (r *ReturnRepository) Update(ctx context.Context, ret domain.ReturnRequest, expectedUpdate time.Time) (domain.ReturnRequest, error) {
	doc := fromDomainReturn(ret)
	var preconds []firestore.Precondition
	if !expectedUpdate.IsZero() {
		preconds = append(preconds, firestore.LastUpdateTime(expectedUpdate.UTC()))
	} else {
		preconds = append(preconds, firestore.Exists)
	}
	updated, err := r.base.Update(ctx, ret.ID, []firestore.Update{
		{Path: "status", Value: doc.Status},
		{Path: "refundAmount", Value: doc.RefundAmount},
		{Path: "note", Value: doc.Note},
		{Path: "updatedAt", Value: doc.UpdatedAt},
		{Path: "resolvedAt", Value: doc.ResolvedAt},
	}, preconds...)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	ret.UpdatedAt = updated
	return ret, nil
}

func (r *ReturnRepository) FindByID(ctx context.Context, returnID string) (domain.ReturnRequest, error) {
	if strings.TrimSpace(returnID) == "" {
		return domain.ReturnRequest{}, errors.New("return repository: return id is required")
	}
	doc, err := r.base.Get(ctx, returnID)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	return doc.Data.toDomain(doc.ID, doc.UpdateTime), nil
}

func (r *ReturnRepository) List(ctx context.Context, filter repositories.ReturnListFilter) (domain.Page[domain.ReturnRequest], error) {
	window, err := newPageWindow(filter.Pagination)
	if err != nil {
		return domain.Page[domain.ReturnRequest]{}, err
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID := strings.TrimSpace(filter.UserID); userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if orderID := strings.TrimSpace(filter.OrderID); orderID != "" {
			q = q.Where("orderId", "==", orderID)
		}
		if statuses := statusStrings(filter.Status); len(statuses) == 1 {
			q = q.Where("status", "==", statuses[0])
		} else if len(statuses) > 1 {
			q = q.Where("status", "in", statuses)
		}
		return window.apply(q)
	})
	if err != nil {
		return domain.Page[domain.ReturnRequest]{}, err
	}
	return collectPage(docs, window,
		func(doc pfirestore.Document[returnDocument]) domain.ReturnRequest {
			return doc.Data.toDomain(doc.ID, doc.UpdateTime)
		},
		func(d returnDocument) time.Time { return d.CreatedAt },
	), nil
}

func fromDomainReturn(ret domain.ReturnRequest) returnDocument {
	doc := returnDocument{
		OrderID:      ret.OrderID,
		OrderNumber:  ret.OrderNumber,
		UserID:       ret.UserID,
		Items:        make([]returnItemDocument, 0, len(ret.Items)),
		Reason:       string(ret.Reason),
		Note:         ret.Note,
		Status:       string(ret.Status),
		RefundAmount: ret.RefundAmount,
		OrderStatus:  string(ret.OrderStatus),
		CreatedAt:    ret.CreatedAt.UTC(),
		UpdatedAt:    time.Now().UTC(),
		ResolvedAt:   utcPtr(ret.ResolvedAt),
	}
	for _, item := range ret.Items {
		doc.Items = append(doc.Items, returnItemDocument(item))
	}
	return doc
}

func (d returnDocument) toDomain(id string, updateTime time.Time) domain.ReturnRequest {
	ret := domain.ReturnRequest{
		ID:           id,
		OrderID:      d.OrderID,
		OrderNumber:  d.OrderNumber,
		UserID:       d.UserID,
		Items:        make([]domain.ReturnItem, 0, len(d.Items)),
		Reason:       domain.ReturnReason(d.Reason),
		Note:         d.Note,
		Status:       domain.ReturnStatus(d.Status),
		RefundAmount: d.RefundAmount,
		OrderStatus:  domain.OrderStatus(d.OrderStatus),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    updateTime,
		ResolvedAt:   d.ResolvedAt,
	}
	for _, item := range d.Items {
		ret.Items = append(ret.Items, domain.ReturnItem(item))
	}
	return ret
}
