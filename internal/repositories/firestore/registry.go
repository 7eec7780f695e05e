package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
	"github.com/jewelry-storefront/api/internal/repositories"
)

// Registry bundles every Firestore repository behind one shared provider.
type Registry struct {
	provider *pfirestore.Provider
	health   repositories.HealthRepository

	products  *ProductRepository
	carts     *CartRepository
	orders    *OrderRepository
	returns   *ReturnRepository
	users     *UserRepository
	codes     *PasswordCodeRepository
	checkouts *CheckoutSessionRepository
	counters  *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds all repositories. health may be nil, in which case a
// Firestore ping is the only readiness check.
func NewRegistry(provider *pfirestore.Provider, health repositories.HealthRepository) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("repository registry requires firestore provider")
	}
	reg := &Registry{provider: provider, health: health}

	var err error
	if reg.products, err = NewProductRepository(provider); err != nil {
		return nil, err
	}
	if reg.carts, err = NewCartRepository(provider); err != nil {
		return nil, err
	}
	if reg.orders, err = NewOrderRepository(provider); err != nil {
		return nil, err
	}
	if reg.returns, err = NewReturnRepository(provider); err != nil {
		return nil, err
	}
	if reg.users, err = NewUserRepository(provider); err != nil {
		return nil, err
	}
	if reg.codes, err = NewPasswordCodeRepository(provider); err != nil {
		return nil, err
	}
	if reg.checkouts, err = NewCheckoutSessionRepository(provider); err != nil {
		return nil, err
	}
	if reg.counters, err = NewCounterRepository(provider); err != nil {
		return nil, err
	}
	if reg.health == nil {
		reg.health, err = repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
			{Name: "firestore", Check: provider.Ping},
		})
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (r *Registry) Close(context.Context) error { return r.provider.Close() }

func (r *Registry) Products() repositories.ProductRepository { return r.products }
func (r *Registry) Carts() repositories.CartRepository       { return r.carts }
func (r *Registry) Orders() repositories.OrderRepository     { return r.orders }
func (r *Registry) Returns() repositories.ReturnRepository   { return r.returns }
func (r *Registry) Users() repositories.UserRepository       { return r.users }
func (r *Registry) PasswordCodes() repositories.PasswordCodeRepository {
	return r.codes
}
func (r *Registry) CheckoutSessions() repositories.CheckoutSessionRepository {
	return r.checkouts
}
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }
func (r *Registry) Health() repositories.HealthRepository     { return r.health }
