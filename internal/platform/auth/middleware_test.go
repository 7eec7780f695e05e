package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubVerifier struct {
	claims *Claims
	err    error
	tokens []string
}

func (s *stubVerifier) VerifyToken(_ context.Context, token string) (*Claims, error) {
	s.tokens = append(s.tokens, token)
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func customerClaims(uid string, admin bool) *Claims {
	claims := &Claims{Email: uid + "@example.com", IsAdmin: admin}
	claims.Subject = uid
	return claims
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	code, _ := body["error"].(string)
	return code
}

func TestRequireAuth_AttachesIdentity(t *testing.T) {
	verifier := &stubVerifier{claims: customerClaims("user-1", false)}
	authn := NewAuthenticator(verifier)

	var got *Identity
	handler := authn.RequireAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got == nil || got.UID != "user-1" || !got.HasRole(RoleCustomer) || got.IsAdmin() {
		t.Fatalf("unexpected identity %#v", got)
	}
	if len(verifier.tokens) != 1 || verifier.tokens[0] != "abc.def.ghi" {
		t.Fatalf("unexpected tokens %v", verifier.tokens)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "unauthenticated" {
		t.Fatalf("expected unauthenticated, got %q", code)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{err: ErrTokenExpired})
	handler := authn.RequireAuth()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "token_expired" {
		t.Fatalf("expected token_expired, got %q", code)
	}
}

func TestRequireAdmin_ForbidsCustomers(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{claims: customerClaims("user-1", false)})
	handler := authn.RequireAdmin()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRequireAdmin_AllowsAdmins(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{claims: customerClaims("staff", true)})
	handler := authn.RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || !identity.IsAdmin() {
			t.Fatalf("expected admin identity")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "bearer token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestOptionalAuth_PassesAnonymous(t *testing.T) {
	authn := NewAuthenticator(&stubVerifier{})
	called := false
	handler := authn.OptionalAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := IdentityFromContext(r.Context()); ok {
			t.Fatalf("expected no identity")
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatalf("expected handler to run")
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":       {header: "Bearer abc", token: "abc", ok: true},
		"lowercase":   {header: "bearer  abc ", token: "abc", ok: true},
		"basic":       {header: "Basic abc", ok: false},
		"empty token": {header: "Bearer ", ok: false},
		"missing":     {header: "", ok: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token, ok := extractBearerToken(tc.header)
			if ok != tc.ok || token != tc.token {
				t.Fatalf("extractBearerToken(%q) = %q, %v", tc.header, token, ok)
			}
		})
	}
}
