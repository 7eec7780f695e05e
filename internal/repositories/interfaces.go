package repositories

import (
	"context"
	"time"

	domain "github.com/jewelry-storefront/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	Returns() ReturnRepository
	Users() UserRepository
	PasswordCodes() PasswordCodeRepository
	CheckoutSessions() CheckoutSessionRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository persists catalog entries. The catalog is small enough to
// be filtered in memory, so List returns everything.
type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, productID string) error
}

// CartRepository stores one cart per user keyed by user ID. FindByUser returns
// a not-found RepositoryError when the user has no cart yet.
type CartRepository interface {
	FindByUser(ctx context.Context, userID string) (domain.Cart, error)
	// Save writes the cart. When expectedUpdate is set the write only succeeds
	// if the stored cart was last written at that time.
	Save(ctx context.Context, cart domain.Cart, expectedUpdate *time.Time) (domain.Cart, error)
	Delete(ctx context.Context, userID string) error
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	UserID     string
	Status     []domain.OrderStatus
	Pagination domain.Pagination
}

// OrderRepository persists orders.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) (domain.Order, error)
	// Update replaces the order, guarded by the last write time the caller read.
	Update(ctx context.Context, order domain.Order, expectedUpdate time.Time) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByMerchantOID(ctx context.Context, merchantOID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.Page[domain.Order], error)
}

// ReturnListFilter narrows return listings.
type ReturnListFilter struct {
	UserID     string
	OrderID    string
	Status     []domain.ReturnStatus
	Pagination domain.Pagination
}

// ReturnRepository persists return requests.
type ReturnRepository interface {
	Insert(ctx context.Context, ret domain.ReturnRequest) (domain.ReturnRequest, error)
	Update(ctx context.Context, ret domain.ReturnRequest, expectedUpdate time.Time) (domain.ReturnRequest, error)
	FindByID(ctx context.Context, returnID string) (domain.ReturnRequest, error)
	List(ctx context.Context, filter ReturnListFilter) (domain.Page[domain.ReturnRequest], error)
}

// UserRepository persists accounts. Emails are stored lower-cased and unique;
// Insert returns a conflict RepositoryError for a duplicate.
type UserRepository interface {
	Insert(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, userID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// PasswordCodeRepository keeps at most one pending code per user.
type PasswordCodeRepository interface {
	Save(ctx context.Context, code domain.PasswordChangeCode) error
	Find(ctx context.Context, userID string) (domain.PasswordChangeCode, error)
	IncrementAttempts(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID string) error
}

// CheckoutSessionRepository stores the wizard state per user.
type CheckoutSessionRepository interface {
	Find(ctx context.Context, userID string) (domain.CheckoutSession, error)
	Save(ctx context.Context, session domain.CheckoutSession) (domain.CheckoutSession, error)
	FindByMerchantOID(ctx context.Context, merchantOID string) (domain.CheckoutSession, error)
	Delete(ctx context.Context, userID string) error
}

// CounterRepository issues monotonically increasing sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository collects dependency health.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
