package auth

import (
	"context"
	"slices"
	"strings"
)

// Roles carried in session tokens.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Identity is the signed-in shopper (or staff member) behind a request.
type Identity struct {
	UID   string
	Email string
	Name  string
	Roles []string

	claims *Claims
}

// Claims returns the verified session claims the identity was built from.
func (i *Identity) Claims() *Claims {
	if i == nil {
		return nil
	}
	return i.claims
}

// HasRole reports whether role is granted, ignoring case.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	role = normaliseRole(role)
	return role != "" && slices.ContainsFunc(i.Roles, func(r string) bool {
		return normaliseRole(r) == role
	})
}

// IsAdmin is shorthand for HasRole(RoleAdmin).
func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

type identityKey struct{}

// WithIdentity stores identity on ctx.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		return nil, false
	}
	return identity, true
}

func normaliseRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
