package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/platform/auth"
	"github.com/jewelry-storefront/api/internal/platform/textutil"
	"github.com/jewelry-storefront/api/internal/repositories"
)

const (
	minPasswordLength      = 6
	maxPasswordBytes       = 72
	maxProfileFieldRunes   = 120
	maxAddressRunes        = 500
	passwordCodeDigits     = 6
	passwordCodeTTL        = 10 * time.Minute
	maxPasswordCodeAttempt = 5
	userIDPrefix           = "usr_"
	birthDateLayout        = "2006-01-02"
)

var (
	// ErrAuthInvalidInput indicates the request failed validation.
	ErrAuthInvalidInput = errors.New("auth: invalid input")
	// ErrAuthInvalidCredentials is returned for an unknown email or wrong password.
	ErrAuthInvalidCredentials = errors.New("auth: invalid email or password")
	// ErrAuthEmailTaken indicates another account already uses the email.
	ErrAuthEmailTaken = errors.New("auth: email already registered")
	// ErrAuthUserNotFound indicates the account does not exist.
	ErrAuthUserNotFound = errors.New("auth: user not found")
	// ErrAuthGoogleRejected indicates the Google credential failed verification.
	ErrAuthGoogleRejected = errors.New("auth: google credential rejected")
	// ErrAuthGoogleDisabled indicates Google sign-in is not configured.
	ErrAuthGoogleDisabled = errors.New("auth: google sign-in disabled")
	// ErrAuthCodeInvalid is returned for a wrong, missing or exhausted password code.
	ErrAuthCodeInvalid = errors.New("auth: password code invalid")
	// ErrAuthCodeExpired is returned once the password code has passed its expiry.
	ErrAuthCodeExpired = errors.New("auth: password code expired")
	// ErrAuthUnavailable indicates a backing store or signer failed.
	ErrAuthUnavailable = errors.New("auth: unavailable")
)

var allowedGenders = map[string]struct{}{
	"":       {},
	"female": {},
	"male":   {},
	"other":  {},
}

type tokenIssuer interface {
	Issue(subject auth.Subject) (auth.IssuedToken, error)
}

// AuthServiceDeps wires the account stores, token signer and optional Google verifier.
type AuthServiceDeps struct {
	Users       repositories.UserRepository
	Codes       repositories.PasswordCodeRepository
	Tokens      tokenIssuer
	Google      auth.GoogleVerifier
	Notifier    Notifier
	Clock       func() time.Time
	IDGenerator func() string
	// CodeGenerator overrides the random password code source.
	CodeGenerator func() (string, error)
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     func(context.Context, string, map[string]any)
}

type authService struct {
	users    repositories.UserRepository
	codes    repositories.PasswordCodeRepository
	tokens   tokenIssuer
	google   auth.GoogleVerifier
	notifier Notifier
	now      func() time.Time
	newID    func() string
	newCode  func() (string, error)
	cost     int
	logger   func(context.Context, string, map[string]any)
}

var _ AuthService = (*authService)(nil)

// NewAuthService validates dependencies and returns an AuthService.
func NewAuthService(deps AuthServiceDeps) (AuthService, error) {
	if deps.Users == nil {
		return nil, errors.New("auth service: user repository is required")
	}
	if deps.Codes == nil {
		return nil, errors.New("auth service: password code repository is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("auth service: token issuer is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return userIDPrefix + strings.ToLower(ulid.Make().String()) }
	}
	newCode := deps.CodeGenerator
	if newCode == nil {
		newCode = randomNumericCode
	}
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = noopNotifier{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger()
	}
	return &authService{
		users:    deps.Users,
		codes:    deps.Codes,
		tokens:   deps.Tokens,
		google:   deps.Google,
		notifier: notifier,
		now:      func() time.Time { return clock().UTC() },
		newID:    newID,
		newCode:  newCode,
		cost:     cost,
		logger:   logger,
	}, nil
}

func (s *authService) Register(ctx context.Context, cmd RegisterCommand) (AuthResult, error) {
	name := strings.TrimSpace(cmd.Name)
	surname := strings.TrimSpace(cmd.Surname)
	emailAddr, err := validateEmail(cmd.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if name == "" || utf8.RuneCountInString(name) > maxProfileFieldRunes {
		return AuthResult{}, fmt.Errorf("%w: name is required", ErrAuthInvalidInput)
	}
	if utf8.RuneCountInString(surname) > maxProfileFieldRunes {
		return AuthResult{}, fmt.Errorf("%w: surname is too long", ErrAuthInvalidInput)
	}
	if err := validatePassword(cmd.Password); err != nil {
		return AuthResult{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.cost)
	if err != nil {
		return AuthResult{}, errors.Join(ErrAuthUnavailable, err)
	}
	now := s.now()
	user := domain.User{
		ID:           s.newID(),
		Name:         name,
		Surname:      surname,
		Email:        emailAddr,
		Phone:        strings.TrimSpace(cmd.Phone),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.users.Insert(ctx, user)
	if err != nil {
		return AuthResult{}, translateRepoError(err, nil, ErrAuthEmailTaken, ErrAuthUnavailable)
	}
	s.logger(ctx, "auth.registered", map[string]any{"userId": created.ID})
	return s.issue(created)
}

func (s *authService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	emailAddr := textutil.NormalizeEmail(email)
	if emailAddr == "" || password == "" {
		return AuthResult{}, ErrAuthInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, emailAddr)
	if err != nil {
		return AuthResult{}, translateRepoError(err, ErrAuthInvalidCredentials, nil, ErrAuthUnavailable)
	}
	// Google-only accounts have no password hash.
	if user.PasswordHash == "" {
		return AuthResult{}, ErrAuthInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger(ctx, "auth.login_failed", map[string]any{"userId": user.ID})
		return AuthResult{}, ErrAuthInvalidCredentials
	}
	s.logger(ctx, "auth.login", map[string]any{"userId": user.ID})
	return s.issue(user)
}

func (s *authService) GoogleLogin(ctx context.Context, credential string) (AuthResult, error) {
	if s.google == nil {
		return AuthResult{}, ErrAuthGoogleDisabled
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return AuthResult{}, fmt.Errorf("%w: credential is required", ErrAuthInvalidInput)
	}
	profile, err := s.google.VerifyGoogleCredential(ctx, credential)
	if err != nil {
		s.logger(ctx, "auth.google_rejected", map[string]any{"error": err.Error()})
		return AuthResult{}, errors.Join(ErrAuthGoogleRejected, err)
	}
	emailAddr := textutil.NormalizeEmail(profile.Email)
	if emailAddr == "" {
		return AuthResult{}, fmt.Errorf("%w: google profile has no email", ErrAuthGoogleRejected)
	}

	user, err := s.users.FindByEmail(ctx, emailAddr)
	switch {
	case err == nil:
		if user.GoogleSubject == "" {
			user.GoogleSubject = profile.Subject
			user.UpdatedAt = s.now()
			if user, err = s.users.Update(ctx, user); err != nil {
				return AuthResult{}, translateRepoError(err, ErrAuthUserNotFound, nil, ErrAuthUnavailable)
			}
		}
	case isRepoNotFound(err):
		name, surname := googleNames(profile)
		now := s.now()
		user, err = s.users.Insert(ctx, domain.User{
			ID:            s.newID(),
			Name:          name,
			Surname:       surname,
			Email:         emailAddr,
			GoogleSubject: profile.Subject,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return AuthResult{}, translateRepoError(err, nil, ErrAuthEmailTaken, ErrAuthUnavailable)
		}
		s.logger(ctx, "auth.registered", map[string]any{"userId": user.ID, "provider": "google"})
	default:
		return AuthResult{}, errors.Join(ErrAuthUnavailable, err)
	}
	s.logger(ctx, "auth.login", map[string]any{"userId": user.ID, "provider": "google"})
	return s.issue(user)
}

func googleNames(profile auth.GoogleProfile) (string, string) {
	given := strings.TrimSpace(profile.GivenName)
	family := strings.TrimSpace(profile.FamilyName)
	if given != "" || family != "" {
		return given, family
	}
	full := strings.TrimSpace(profile.Name)
	if idx := strings.LastIndex(full, " "); idx > 0 {
		return full[:idx], full[idx+1:]
	}
	return full, ""
}

func (s *authService) Me(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrAuthInvalidInput)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, translateRepoError(err, ErrAuthUserNotFound, nil, ErrAuthUnavailable)
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" || utf8.RuneCountInString(name) > maxProfileFieldRunes {
			return User{}, fmt.Errorf("%w: name must be 1-%d characters", ErrAuthInvalidInput, maxProfileFieldRunes)
		}
		user.Name = name
	}
	if update.Surname != nil {
		surname := strings.TrimSpace(*update.Surname)
		if utf8.RuneCountInString(surname) > maxProfileFieldRunes {
			return User{}, fmt.Errorf("%w: surname is too long", ErrAuthInvalidInput)
		}
		user.Surname = surname
	}
	if update.Phone != nil {
		phone := strings.TrimSpace(*update.Phone)
		if utf8.RuneCountInString(phone) > 32 {
			return User{}, fmt.Errorf("%w: phone is too long", ErrAuthInvalidInput)
		}
		user.Phone = phone
	}
	if update.Gender != nil {
		gender := strings.ToLower(strings.TrimSpace(*update.Gender))
		if _, ok := allowedGenders[gender]; !ok {
			return User{}, fmt.Errorf("%w: unsupported gender %q", ErrAuthInvalidInput, gender)
		}
		user.Gender = gender
	}
	if update.BirthDate != nil {
		birth := strings.TrimSpace(*update.BirthDate)
		if birth != "" {
			parsed, err := time.Parse(birthDateLayout, birth)
			if err != nil || parsed.After(s.now()) {
				return User{}, fmt.Errorf("%w: birth date must be a past YYYY-MM-DD date", ErrAuthInvalidInput)
			}
		}
		user.BirthDate = birth
	}
	if update.Address != nil {
		address := strings.TrimSpace(*update.Address)
		if utf8.RuneCountInString(address) > maxAddressRunes {
			return User{}, fmt.Errorf("%w: address is too long", ErrAuthInvalidInput)
		}
		user.Address = address
	}
	user.UpdatedAt = s.now()
	saved, err := s.users.Update(ctx, user)
	if err != nil {
		return User{}, translateRepoError(err, ErrAuthUserNotFound, nil, ErrAuthUnavailable)
	}
	return saved, nil
}

func (s *authService) RequestPasswordChange(ctx context.Context, userID string) (PasswordCodeReceipt, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return PasswordCodeReceipt{}, err
	}
	code, err := s.newCode()
	if err != nil {
		return PasswordCodeReceipt{}, errors.Join(ErrAuthUnavailable, err)
	}
	now := s.now()
	record := domain.PasswordChangeCode{
		UserID:    user.ID,
		CodeHash:  hashPasswordCode(code),
		ExpiresAt: now.Add(passwordCodeTTL),
		CreatedAt: now,
	}
	if err := s.codes.Save(ctx, record); err != nil {
		return PasswordCodeReceipt{}, errors.Join(ErrAuthUnavailable, err)
	}
	s.notifier.PasswordCode(ctx, user, code, passwordCodeTTL)
	s.logger(ctx, "auth.password_code_sent", map[string]any{"userId": user.ID})
	return PasswordCodeReceipt{ExpiresAt: record.ExpiresAt}, nil
}

func (s *authService) ConfirmPasswordChange(ctx context.Context, cmd ConfirmPasswordChangeCommand) error {
	code := strings.TrimSpace(cmd.Code)
	if len(code) != passwordCodeDigits {
		return fmt.Errorf("%w: code must be %d digits", ErrAuthInvalidInput, passwordCodeDigits)
	}
	if err := validatePassword(cmd.NewPassword); err != nil {
		return err
	}
	user, err := s.Me(ctx, cmd.UserID)
	if err != nil {
		return err
	}

	record, err := s.codes.Find(ctx, user.ID)
	if err != nil {
		return translateRepoError(err, ErrAuthCodeInvalid, nil, ErrAuthUnavailable)
	}
	if !s.now().Before(record.ExpiresAt) {
		s.discardPasswordCode(ctx, user.ID)
		return ErrAuthCodeExpired
	}
	if record.Attempts >= maxPasswordCodeAttempt {
		s.discardPasswordCode(ctx, user.ID)
		return ErrAuthCodeInvalid
	}
	if subtle.ConstantTimeCompare([]byte(hashPasswordCode(code)), []byte(record.CodeHash)) != 1 {
		attempts, err := s.codes.IncrementAttempts(ctx, user.ID)
		if err != nil {
			return translateRepoError(err, ErrAuthCodeInvalid, nil, ErrAuthUnavailable)
		}
		if attempts >= maxPasswordCodeAttempt {
			s.discardPasswordCode(ctx, user.ID)
		}
		s.logger(ctx, "auth.password_code_mismatch", map[string]any{"userId": user.ID, "attempts": attempts})
		return ErrAuthCodeInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.NewPassword), s.cost)
	if err != nil {
		return errors.Join(ErrAuthUnavailable, err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = s.now()
	if user, err = s.users.Update(ctx, user); err != nil {
		return translateRepoError(err, ErrAuthUserNotFound, nil, ErrAuthUnavailable)
	}
	s.discardPasswordCode(ctx, user.ID)
	s.notifier.PasswordChanged(ctx, user)
	s.logger(ctx, "auth.password_changed", map[string]any{"userId": user.ID})
	return nil
}

// discardPasswordCode removes a used or exhausted code. The caller's outcome
// does not depend on it, so failures are only logged.
func (s *authService) discardPasswordCode(ctx context.Context, userID string) {
	if err := s.codes.Delete(ctx, userID); err != nil && !isRepoNotFound(err) {
		s.logger(ctx, "auth.password_code_cleanup_failed", map[string]any{"userId": userID, "error": err.Error()})
	}
}

func (s *authService) issue(user User) (AuthResult, error) {
	token, err := s.tokens.Issue(auth.Subject{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.FullName(),
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		return AuthResult{}, errors.Join(ErrAuthUnavailable, err)
	}
	return AuthResult{Token: token.Token, ExpiresAt: token.ExpiresAt, User: user}, nil
}

func validateEmail(raw string) (string, error) {
	normalized := textutil.NormalizeEmail(raw)
	if normalized == "" {
		return "", fmt.Errorf("%w: email is required", ErrAuthInvalidInput)
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return "", fmt.Errorf("%w: email is malformed", ErrAuthInvalidInput)
	}
	return normalized, nil
}

func validatePassword(password string) error {
	switch {
	case utf8.RuneCountInString(password) < minPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrAuthInvalidInput, minPasswordLength)
	case len(password) > maxPasswordBytes:
		return fmt.Errorf("%w: password must be at most %d bytes", ErrAuthInvalidInput, maxPasswordBytes)
	}
	return nil
}

func randomNumericCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", passwordCodeDigits, n.Int64()), nil
}

func hashPasswordCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
