package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	defaultTokenTTL    = 30 * 24 * time.Hour
	defaultTokenIssuer = "jewelry-storefront"
	minSecretLength    = 32
)

var (
	// ErrTokenExpired is returned for a well-formed token past its exp claim.
	ErrTokenExpired = errors.New("auth: session token expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("auth: session token invalid")
)

// Claims is the payload of a storefront session token.
type Claims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Subject identifies who a token is issued for.
type Subject struct {
	UserID  string
	Email   string
	Name    string
	IsAdmin bool
}

// IssuedToken is a signed token plus its expiry, returned to the client on login.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenVerifier turns a bearer token into claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*Claims, error)
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithTokenTTL overrides the 30 day default lifetime.
func WithTokenTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithTokenIssuer sets the iss claim.
func WithTokenIssuer(issuer string) TokenOption {
	return func(m *TokenManager) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			m.issuer = issuer
		}
	}
}

// WithTokenClock injects a time source.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewTokenManager validates the signing secret and builds a manager.
func NewTokenManager(secret string, opts ...TokenOption) (*TokenManager, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: token secret must be at least %d bytes", minSecretLength)
	}
	m := &TokenManager{
		secret: []byte(secret),
		issuer: defaultTokenIssuer,
		ttl:    defaultTokenTTL,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Issue signs a token for subject.
func (m *TokenManager) Issue(subject Subject) (IssuedToken, error) {
	if m == nil {
		return IssuedToken{}, errors.New("auth: token manager not configured")
	}
	if strings.TrimSpace(subject.UserID) == "" {
		return IssuedToken{}, errors.New("auth: subject user id is required")
	}

	now := m.now().UTC()
	expires := now.Add(m.ttl)
	claims := Claims{
		Email:   subject.Email,
		Name:    subject.Name,
		IsAdmin: subject.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        m.newID(),
			Subject:   subject.UserID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return IssuedToken{Token: signed, ExpiresAt: expires}, nil
}

// VerifyToken checks signature, issuer and expiry.
func (m *TokenManager) VerifyToken(_ context.Context, token string) (*Claims, error) {
	if m == nil {
		return nil, ErrTokenInvalid
	}
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	now := m.now()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, ErrTokenExpired
	}
	if !claims.VerifyNotBefore(now, false) {
		return nil, fmt.Errorf("%w: token not active yet", ErrTokenInvalid)
	}
	if !claims.VerifyIssuer(m.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrTokenInvalid)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims, nil
}
