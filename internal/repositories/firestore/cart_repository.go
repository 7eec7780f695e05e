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

const cartCollection = "carts"

type cartDocument struct {
	Items           []lineItemDocument `firestore:"items"`
	ShippingAddress *addressDocument   `firestore:"shippingAddress"`
	ItemsCount      int                `firestore:"itemsCount"`
	UpdatedAt       time.Time          `firestore:"updatedAt"`
}

// CartRepository persists one cart document per user, keyed by user ID.
type CartRepository struct {
	base *pfirestore.Collection[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{base: pfirestore.NewCollection[cartDocument](provider, cartCollection)}, nil
}

// FindByUser loads the cart. UpdatedAt carries Firestore's update time so it
// can be passed back to Save as the optimistic lock.
func (r *CartRepository) FindByUser(ctx context.Context, userID string) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	cart := domain.Cart{
		UserID:          doc.ID,
		Items:           make([]domain.CartItem, 0, len(doc.Data.Items)),
		ShippingAddress: doc.Data.ShippingAddress.toDomain(),
		UpdatedAt:       doc.UpdateTime,
	}
	for _, item := range doc.Data.Items {
		cart.Items = append(cart.Items, domain.CartItem(item))
	}
	return cart, nil
}

// Save writes the whole cart. With expectedUpdate set the write fails with a
// conflict when someone else changed the cart since it was read.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart, expectedUpdate *time.Time) (domain.Cart, error) {
	userID := strings.TrimSpace(cart.UserID)
	if userID == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	doc := cartDocument{
		Items:           make([]lineItemDocument, 0, len(cart.Items)),
		ShippingAddress: fromDomainAddress(cart.ShippingAddress),
		ItemsCount:      cart.ItemCount(),
		UpdatedAt:       time.Now().UTC(),
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, lineItemDocument(item))
	}

	var (
		updated time.Time
		err     error
	)
	if expectedUpdate == nil || expectedUpdate.IsZero() {
		updated, err = r.base.Set(ctx, userID, doc)
	} else {
		updated, err = r.base.Update(ctx, userID, []firestore.Update{
			{Path: "items", Value: doc.Items},
			{Path: "shippingAddress", Value: doc.ShippingAddress},
			{Path: "itemsCount", Value: doc.ItemsCount},
			{Path: "updatedAt", Value: doc.UpdatedAt},
		}, firestore.LastUpdateTime(expectedUpdate.UTC()))
	}
	if err != nil {
		return domain.Cart{}, err
	}

	saved := cart
	saved.UserID = userID
	saved.Items = append([]domain.CartItem(nil), cart.Items...)
	saved.UpdatedAt = updated
	return saved, nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	return r.base.Delete(ctx, userID)
}
