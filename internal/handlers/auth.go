package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jewelry-storefront/api/internal/platform/auth"
	"github.com/jewelry-storefront/api/internal/platform/httpx"
	"github.com/jewelry-storefront/api/internal/services"
)

const (
	maxAuthBodySize        = 8 * 1024
	defaultSignInLimit     = 10
	defaultSignInWindow    = time.Minute
	authServiceUnavailable = "auth"
)

// AuthHandlers serves registration, sign-in and profile endpoints.
type AuthHandlers struct {
	authn   *auth.Authenticator
	users   services.AuthService
	limiter rateLimiter
}

// AuthHandlerOption customises AuthHandlers.
type AuthHandlerOption func(*authHandlerConfig)

type authHandlerConfig struct {
	limit  int
	window time.Duration
	clock  func() time.Time
}

// WithSignInRateLimit caps sign-in attempts per client IP. A zero limit
// disables throttling.
func WithSignInRateLimit(limit int, window time.Duration) AuthHandlerOption {
	return func(cfg *authHandlerConfig) {
		cfg.limit = limit
		cfg.window = window
	}
}

// WithAuthClock overrides the limiter clock.
func WithAuthClock(clock func() time.Time) AuthHandlerOption {
	return func(cfg *authHandlerConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// NewAuthHandlers constructs the /auth handlers.
func NewAuthHandlers(authn *auth.Authenticator, users services.AuthService, opts ...AuthHandlerOption) *AuthHandlers {
	cfg := authHandlerConfig{limit: defaultSignInLimit, window: defaultSignInWindow, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &AuthHandlers{
		authn:   authn,
		users:   users,
		limiter: newSimpleRateLimiter(cfg.limit, cfg.window, cfg.clock),
	}
}

// Routes wires the /auth endpoints.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/google", h.google)

	r.Group(func(pr chi.Router) {
		if h.authn != nil {
			pr.Use(h.authn.RequireAuth())
		}
		pr.Get("/me", h.me)
		pr.Put("/me", h.updateMe)
		pr.Post("/password/code", h.requestPasswordCode)
		pr.Post("/password/change", h.changePassword)
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
}

type authResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
	User      userPayload `json:"user"`
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, authServiceUnavailable)
		return
	}
	if !h.allow(w, r) {
		return
	}
	var req registerRequest
	if !decodeJSONBody(w, r, maxAuthBodySize, &req) {
		return
	}
	result, err := h.users.Register(ctx, services.RegisterCommand{
		Name:     req.Name,
		Surname:  req.Surname,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}
	writeNoStore(w)
	writeJSONResponse(w, http.StatusCreated, buildAuthResponse(result))
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, authServiceUnavailable)
		return
	}
	if !h.allow(w, r) {
		return
	}
	var req loginRequest
	if !decodeJSONBody(w, r, maxAuthBodySize, &req) {
		return
	}
	result, err := h.users.Login(ctx, req.Email, req.Password)
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}
	writeNoStore(w)
	writeJSONResponse(w, http.StatusOK, buildAuthResponse(result))
}

func (h *AuthHandlers) google(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, authServiceUnavailable)
		return
	}
	if !h.allow(w, r) {
		return
	}
	var req googleLoginRequest
	if !decodeJSONBody(w, r, maxAuthBodySize, &req) {
		return
	}
	result, err := h.users.GoogleLogin(ctx, req.Credential)
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}
	writeNoStore(w)
	writeJSONResponse(w, http.StatusOK, buildAuthResponse(result))
}

func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, authServiceUnavailable)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	user, err := h.users.Me(ctx, identity.UID)
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}
	writeNoStore(w)
	writeJSONResponse(w, http.StatusOK, buildUserPayload(user))
}

type updateProfileRequest struct {
	Name      *string `json:"name"`
	Surname   *string `json:"surname"`
	Phone     *string `json:"phone"`
	Gender    *string `json:"gender"`
	BirthDate *string `json:"birthDate"`
	Address   *string `json:"address"`
}

func (h *AuthHandlers) updateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, authServiceUnavailable)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !decodeJSONBody(w, r, maxAuthBodySize, &req) {
		return
	}
	user, err := h.users.UpdateProfile(ctx, identity.UID, services.ProfileUpdate{
		Name:      req.Name,
		Surname:   req.Surname,
		Phone:     req.Phone,
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
		Address:   req.Address,
	})
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildUserPayload(user))
}

func (h *AuthHandlers) requestPasswordCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, authServiceUnavailable)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	receipt, err := h.users.RequestPasswordChange(ctx, identity.UID)
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusAccepted, map[string]string{"expiresAt": formatTime(receipt.ExpiresAt)})
}

type changePasswordRequest struct {
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		writeUnavailable(ctx, w, authServiceUnavailable)
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !decodeJSONBody(w, r, maxAuthBodySize, &req) {
		return
	}
	err := h.users.ConfirmPasswordChange(ctx, services.ConfirmPasswordChangeCommand{
		UserID:      identity.UID,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		writeAuthError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandlers) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil || h.limiter.Allow(clientIP(r)) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many sign-in attempts; try again later", http.StatusTooManyRequests))
	return false
}

func buildAuthResponse(result services.AuthResult) authResponse {
	return authResponse{
		Token:     result.Token,
		ExpiresAt: formatTime(result.ExpiresAt),
		User:      buildUserPayload(result.User),
	}
}

func writeAuthError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAuthInvalidInput):
		httpx.WriteError(ctx, w, httpx.BadRequest(err.Error()))
	case errors.Is(err, services.ErrAuthInvalidCredentials):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_credentials", "invalid email or password", http.StatusUnauthorized))
	case errors.Is(err, services.ErrAuthGoogleRejected):
		httpx.WriteError(ctx, w, httpx.NewError("google_credential_invalid", "google credential could not be verified", http.StatusUnauthorized))
	case errors.Is(err, services.ErrAuthGoogleDisabled):
		httpx.WriteError(ctx, w, httpx.NewError("google_signin_disabled", "google sign-in is not configured", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrAuthEmailTaken):
		httpx.WriteError(ctx, w, httpx.NewError("email_taken", "an account with this email already exists", http.StatusConflict))
	case errors.Is(err, services.ErrAuthUserNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("user_not_found", "user not found", http.StatusNotFound))
	case errors.Is(err, services.ErrAuthCodeExpired):
		httpx.WriteError(ctx, w, httpx.NewError("password_code_expired", "verification code has expired", http.StatusBadRequest))
	case errors.Is(err, services.ErrAuthCodeInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("password_code_invalid", "verification code is invalid", http.StatusBadRequest))
	case errors.Is(err, services.ErrAuthUnavailable):
		httpx.WriteError(ctx, w, httpx.Unavailable(authServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("auth_error", "authentication request failed", http.StatusInternalServerError))
	}
}
