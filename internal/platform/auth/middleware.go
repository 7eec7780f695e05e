package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jewelry-storefront/api/internal/platform/httpx"
)

const defaultVerifyTimeout = 5 * time.Second

// Authenticator guards routes with session-token verification.
type Authenticator struct {
	verifier TokenVerifier
	timeout  time.Duration
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithVerificationTimeout bounds how long verification may take.
func WithVerificationTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAuthenticator wraps verifier for use as chi middleware.
func NewAuthenticator(verifier TokenVerifier, opts ...Option) *Authenticator {
	a := &Authenticator{verifier: verifier, timeout: defaultVerifyTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RequireAuth rejects requests without a valid bearer token. When roles are
// given the identity must hold at least one of them.
func (a *Authenticator) RequireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, err := a.authenticate(ctx, r.Header.Get("Authorization"))
			if err != nil {
				writeAuthError(ctx, w, err)
				return
			}
			if len(roles) > 0 && !hasAnyRole(identity, roles) {
				httpx.WriteError(ctx, w, httpx.Forbidden("identity does not have required role"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

// RequireAdmin is RequireAuth(RoleAdmin).
func (a *Authenticator) RequireAdmin() func(http.Handler) http.Handler {
	return a.RequireAuth(RoleAdmin)
}

// OptionalAuth attaches an identity when a valid token is present and lets
// anonymous requests through unchanged. An invalid token is still rejected.
func (a *Authenticator) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if strings.TrimSpace(header) == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			identity, err := a.authenticate(ctx, header)
			if err != nil {
				writeAuthError(ctx, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

var (
	errMissingBearer = errors.New("auth: authorization header missing or invalid")
	errNoVerifier    = errors.New("auth: verifier unavailable")
)

func (a *Authenticator) authenticate(ctx context.Context, header string) (*Identity, error) {
	token, ok := extractBearerToken(header)
	if !ok {
		return nil, errMissingBearer
	}
	if a == nil || a.verifier == nil {
		return nil, errNoVerifier
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	claims, err := a.verifier.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}

	roles := []string{RoleCustomer}
	if claims.IsAdmin {
		roles = append(roles, RoleAdmin)
	}
	return &Identity{
		UID:    claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Roles:  roles,
		claims: claims,
	}, nil
}

func hasAnyRole(identity *Identity, roles []string) bool {
	for _, role := range roles {
		if identity.HasRole(role) {
			return true
		}
	}
	return false
}

func extractBearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errMissingBearer):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authorization header missing or invalid", http.StatusUnauthorized))
	case errors.Is(err, errNoVerifier):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authorization service unavailable", http.StatusUnauthorized))
	case errors.Is(err, ErrTokenExpired):
		httpx.WriteError(ctx, w, httpx.NewError("token_expired", "session expired, sign in again", http.StatusUnauthorized))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "session token invalid", http.StatusUnauthorized))
	}
}
