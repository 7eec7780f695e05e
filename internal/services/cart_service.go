package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/repositories"
)

const (
	maxCartLines        = 50
	maxCartLineQuantity = 99
	maxCartSaveAttempts = 3
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartProductsRequired   = errors.New("cart service: product repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to missing dependencies or backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartProductNotFound indicates an ADD_TO_CART referenced an unknown product.
var ErrCartProductNotFound = errors.New("cart service: product not found")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

type productFinder interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
}

// CartServiceDeps wires the repository and catalog dependencies for cart operations.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	Products   productFinder
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type cartService struct {
	repo     repositories.CartRepository
	products productFinder
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

var _ CartService = (*cartService)(nil)

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Products == nil {
		return nil, errCartProductsRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger()
	}
	return &cartService{
		repo:     deps.Repository,
		products: deps.Products,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

// GetCart returns the stored cart, or an empty one for a user who never added anything.
func (s *cartService) GetCart(ctx context.Context, userID string) (Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	cart, _, err := s.load(ctx, uid)
	return cart, err
}

// Dispatch applies action to the user's cart and persists the result. A write
// that races another device is replayed on the fresh cart.
func (s *cartService) Dispatch(ctx context.Context, userID string, action CartAction) (Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	action, err := s.hydrate(ctx, action)
	if err != nil {
		return Cart{}, err
	}

	for attempt := 1; ; attempt++ {
		current, expected, err := s.load(ctx, uid)
		if err != nil {
			return Cart{}, err
		}
		next, err := Reduce(current, action)
		if err != nil {
			return Cart{}, err
		}
		next.UserID = uid

		saved, err := s.repo.Save(ctx, next, expected)
		if err == nil {
			s.logger(ctx, "cart.dispatched", map[string]any{
				"userId": uid,
				"action": string(action.Type),
				"items":  len(saved.Items),
			})
			return saved, nil
		}
		if isRepoConflict(err) && attempt < maxCartSaveAttempts {
			continue
		}
		return Cart{}, translateRepoError(err, nil, ErrCartConflict, ErrCartUnavailable)
	}
}

func (s *cartService) load(ctx context.Context, uid string) (Cart, *time.Time, error) {
	cart, err := s.repo.FindByUser(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{UserID: uid, Items: []CartItem{}}, nil, nil
		}
		return Cart{}, nil, translateRepoError(err, nil, ErrCartConflict, ErrCartUnavailable)
	}
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	expected := cart.UpdatedAt
	return cart, &expected, nil
}

// hydrate replaces client-supplied product fields with catalog values so a
// tampered price never reaches an order.
func (s *cartService) hydrate(ctx context.Context, action CartAction) (CartAction, error) {
	if action.Type != domain.CartActionAdd || action.Item == nil {
		return action, nil
	}
	productID := strings.TrimSpace(action.Item.ProductID)
	if productID == "" {
		return action, fmt.Errorf("%w: productId is required", ErrCartInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return action, translateRepoError(err, ErrCartProductNotFound, nil, ErrCartUnavailable)
	}
	if !product.InStock {
		return action, fmt.Errorf("%w: %s is out of stock", ErrCartInvalidInput, product.Name)
	}
	if product.StockCount > 0 && action.Item.Qty > product.StockCount {
		return action, fmt.Errorf("%w: only %d of %s in stock", ErrCartInvalidInput, product.StockCount, product.Name)
	}
	item := CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Image:     product.PrimaryImage(),
		Price:     product.Price,
		Qty:       action.Item.Qty,
	}
	action.Item = &item
	return action, nil
}

// Reduce applies one action to cart and returns the new state. cart is not
// modified. ADD replaces an existing line for the same product in place,
// REMOVE of an unknown product is a no-op, and CLEAR keeps the shipping address.
func Reduce(cart Cart, action CartAction) (Cart, error) {
	next := cart
	next.Items = slices.Clone(cart.Items)
	if next.Items == nil {
		next.Items = []CartItem{}
	}
	if cart.ShippingAddress != nil {
		addr := *cart.ShippingAddress
		next.ShippingAddress = &addr
	}

	switch action.Type {
	case domain.CartActionAdd:
		if action.Item == nil {
			return Cart{}, fmt.Errorf("%w: item is required", ErrCartInvalidInput)
		}
		item := *action.Item
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" {
			return Cart{}, fmt.Errorf("%w: productId is required", ErrCartInvalidInput)
		}
		if item.Qty < 1 || item.Qty > maxCartLineQuantity {
			return Cart{}, fmt.Errorf("%w: qty must be between 1 and %d", ErrCartInvalidInput, maxCartLineQuantity)
		}
		if item.Price < 0 {
			return Cart{}, fmt.Errorf("%w: price must not be negative", ErrCartInvalidInput)
		}
		idx := slices.IndexFunc(next.Items, func(existing CartItem) bool {
			return existing.ProductID == item.ProductID
		})
		if idx >= 0 {
			next.Items[idx] = item
			break
		}
		if len(next.Items) >= maxCartLines {
			return Cart{}, fmt.Errorf("%w: cart is limited to %d products", ErrCartInvalidInput, maxCartLines)
		}
		next.Items = append(next.Items, item)

	case domain.CartActionRemove:
		productID := strings.TrimSpace(action.ProductID)
		next.Items = slices.DeleteFunc(next.Items, func(existing CartItem) bool {
			return existing.ProductID == productID
		})

	case domain.CartActionSaveShipping:
		if action.Address == nil {
			return Cart{}, fmt.Errorf("%w: address is required", ErrCartInvalidInput)
		}
		addr, err := NormalizeShippingAddress(*action.Address)
		if err != nil {
			return Cart{}, errors.Join(ErrCartInvalidInput, err)
		}
		next.ShippingAddress = &addr

	case domain.CartActionClear:
		next.Items = []CartItem{}

	default:
		return Cart{}, fmt.Errorf("%w: unknown action %q", ErrCartInvalidInput, action.Type)
	}
	return next, nil
}

// ErrInvalidAddress reports a shipping address missing required fields.
var ErrInvalidAddress = errors.New("invalid shipping address")

// NormalizeShippingAddress trims every field, defaults the country to TR and
// checks the fields a courier needs.
func NormalizeShippingAddress(addr ShippingAddress) (ShippingAddress, error) {
	addr = ShippingAddress{
		FullName:   strings.TrimSpace(addr.FullName),
		Phone:      strings.TrimSpace(addr.Phone),
		Address:    strings.TrimSpace(addr.Address),
		City:       strings.TrimSpace(addr.City),
		District:   strings.TrimSpace(addr.District),
		PostalCode: strings.TrimSpace(addr.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(addr.Country)),
	}
	if addr.Country == "" {
		addr.Country = "TR"
	}

	var missing []string
	for _, field := range []struct{ name, value string }{
		{"fullName", addr.FullName},
		{"phone", addr.Phone},
		{"address", addr.Address},
		{"city", addr.City},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return ShippingAddress{}, fmt.Errorf("%w: missing %s", ErrInvalidAddress, strings.Join(missing, ", "))
	}
	if len(addr.Country) != 2 || !isUpperASCII(addr.Country) {
		return ShippingAddress{}, fmt.Errorf("%w: country must be an ISO-3166 alpha-2 code", ErrInvalidAddress)
	}
	if digits := countDigits(addr.Phone); digits < 10 || digits > 15 {
		return ShippingAddress{}, fmt.Errorf("%w: phone must have 10 to 15 digits", ErrInvalidAddress)
	}
	if addr.Country == "TR" && addr.PostalCode != "" && (len(addr.PostalCode) != 5 || countDigits(addr.PostalCode) != 5) {
		return ShippingAddress{}, fmt.Errorf("%w: postal code must be 5 digits", ErrInvalidAddress)
	}
	return addr, nil
}

func isUpperASCII(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
