package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultRequestTimeout       = 60 * time.Second
	defaultTokenTTL             = 30 * 24 * time.Hour
	defaultTokenIssuer          = "jewelry-storefront"
	defaultGoogleVerifier       = "jwks"
	defaultPayTRBaseURL         = "https://www.paytr.com"
	defaultPayTRTimeout         = 30 * time.Second
	defaultPayTRCurrency        = "TL"
	defaultPayTRTimeoutLimit    = 30
	defaultShipinkBaseURL       = "https://api.shipink.io"
	defaultShipinkTimeout       = 30 * time.Second
	defaultEmailMode            = "log"
	defaultSMTPHost             = "smtp.gmail.com"
	defaultSMTPPort             = 587
	defaultOrdersTopic          = "orders"
	defaultEmailTopic           = "email"
	defaultEmailSubscription    = "email-worker"
	defaultCurrency             = "TRY"
	defaultShippingFee          = 4999
	defaultFreeShippingMinimum  = 100000
	defaultReturnWindowDays     = 14
	defaultStorefrontURL        = "http://localhost:5173"
	defaultBrand                = "Jewelry Store"
	defaultCheckoutPath         = "/checkout"
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
	minJWTSecretLength          = 32
)

// Email delivery modes.
const (
	EmailModeLog    = "log"
	EmailModeSMTP   = "smtp"
	EmailModeResend = "resend"
	EmailModePubSub = "pubsub"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Firebase    FirebaseConfig
	Firestore   FirestoreConfig
	Storage     StorageConfig
	Auth        AuthConfig
	PayTR       PayTRConfig
	Stripe      StripeConfig
	Shipink     ShipinkConfig
	Email       EmailConfig
	PubSub      PubSubConfig
	CORS        CORSConfig
	Storefront  StorefrontConfig
	Checkout    CheckoutConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port           string
	Environment    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// FirebaseConfig stores Firebase project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
}

// StorageConfig selects where product images are written. Cloudinary wins when
// both are set.
type StorageConfig struct {
	ImagesBucket  string
	CloudinaryURL string
}

// AuthConfig controls session tokens and Google sign-in.
type AuthConfig struct {
	JWTSecret      string
	TokenTTL       time.Duration
	Issuer         string
	GoogleClientID string
	// GoogleVerifier is "jwks" or "firebase".
	GoogleVerifier string
}

// PayTRConfig holds the merchant credentials for the PayTR iframe API.
type PayTRConfig struct {
	MerchantID   string
	MerchantKey  string
	MerchantSalt string
	BaseURL      string
	TestMode     bool
	OKURL        string
	FailURL      string
	Currency     string
	Timeout      time.Duration
	TimeoutLimit int
}

// Enabled reports whether merchant credentials were supplied.
func (c PayTRConfig) Enabled() bool {
	return c.MerchantID != "" || c.MerchantKey != "" || c.MerchantSalt != ""
}

// StripeConfig configures the card provider used for non-TRY orders.
type StripeConfig struct {
	APIKey string
}

// ShipinkConfig configures the shipment API client.
type ShipinkConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// EmailConfig selects and configures transactional email delivery.
type EmailConfig struct {
	Mode         string
	From         string
	FromName     string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	ResendAPIKey string
	// Transport is the sender the pubsub worker drains into.
	Transport string
}

// PubSubConfig names the topics used for domain events and queued email.
type PubSubConfig struct {
	ProjectID         string
	OrdersTopic       string
	EmailTopic        string
	EmailSubscription string
}

// CORSConfig lists the SPA origins permitted to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// StorefrontConfig describes the SPA that links and redirects point at.
type StorefrontConfig struct {
	URL          string
	Brand        string
	CheckoutPath string
}

// CheckoutReturnURL is where the payment page sends the shopper back to.
func (c StorefrontConfig) CheckoutReturnURL() string {
	return strings.TrimRight(c.URL, "/") + "/" + strings.TrimLeft(c.CheckoutPath, "/")
}

// CheckoutConfig holds pricing and policy knobs. Amounts are minor units.
type CheckoutConfig struct {
	Currency            string
	ShippingFee         int64
	FreeShippingMinimum int64
	ReturnWindowDays    int
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets failed to resolve.
type MissingSecretsError struct {
	names []string
}

func (e *MissingSecretsError) Error() string {
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(e.RedactedNames(), ", "))
}

// Names returns the config field names that were required but empty.
func (e *MissingSecretsError) Names() []string {
	if e == nil {
		return nil
	}
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

// RedactedNames hashes the field names so logs do not reveal which secret is absent.
func (e *MissingSecretsError) RedactedNames() []string {
	names := e.Names()
	for i, name := range names {
		sum := sha256.Sum256([]byte(name))
		names[i] = hex.EncodeToString(sum[:8])
	}
	sort.Strings(names)
	return names
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

func newLoaderOptions(opts []Option) loaderOptions {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// WithEnvFile overrides the .env file path used for local overrides. An empty
// path disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects explicit values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks secret fields (e.g. "PayTR.MerchantKey") as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// EnvironmentValues returns the effective environment after applying Load's
// precedence (dotenv < OS env < explicit map), so callers can build the secret
// fetcher from the same inputs before calling Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := newLoaderOptions(opts)
	values, err := readDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = make(map[string]string)
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[key] = value
		}
	}
	for key, value := range options.envMap {
		values[key] = value
	}
	return values, nil
}

// Load assembles configuration from defaults, .env, the environment and Secret Manager.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := newLoaderOptions(opts)

	dotEnv, err := readDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if value, ok := options.envMap[key]; ok {
			return value, true
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		value, ok := dotEnv[key]
		return value, ok
	}

	cfg := Config{
		Server: ServerConfig{
			Port:           stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			Environment:    strings.ToLower(stringWithDefault(lookup, "API_SERVER_ENVIRONMENT", "local")),
			ReadTimeout:    durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "API_SERVER_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "API_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "API_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "API_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "API_FIRESTORE_EMULATOR_HOST", ""),
		},
		Storage: StorageConfig{
			ImagesBucket:  stringWithDefault(lookup, "API_STORAGE_IMAGES_BUCKET", ""),
			CloudinaryURL: stringWithDefault(lookup, "API_STORAGE_CLOUDINARY_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret:      stringWithDefault(lookup, "API_AUTH_JWT_SECRET", ""),
			TokenTTL:       durationWithDefault(lookup, "API_AUTH_TOKEN_TTL", defaultTokenTTL),
			Issuer:         stringWithDefault(lookup, "API_AUTH_ISSUER", defaultTokenIssuer),
			GoogleClientID: stringWithDefault(lookup, "API_AUTH_GOOGLE_CLIENT_ID", ""),
			GoogleVerifier: strings.ToLower(stringWithDefault(lookup, "API_AUTH_GOOGLE_VERIFIER", defaultGoogleVerifier)),
		},
		PayTR: PayTRConfig{
			MerchantID:   stringWithDefault(lookup, "API_PAYTR_MERCHANT_ID", ""),
			MerchantKey:  stringWithDefault(lookup, "API_PAYTR_MERCHANT_KEY", ""),
			MerchantSalt: stringWithDefault(lookup, "API_PAYTR_MERCHANT_SALT", ""),
			BaseURL:      stringWithDefault(lookup, "API_PAYTR_BASE_URL", defaultPayTRBaseURL),
			TestMode:     boolWithDefault(lookup, "API_PAYTR_TEST_MODE", false),
			OKURL:        stringWithDefault(lookup, "API_PAYTR_OK_URL", ""),
			FailURL:      stringWithDefault(lookup, "API_PAYTR_FAIL_URL", ""),
			Currency:     stringWithDefault(lookup, "API_PAYTR_CURRENCY", defaultPayTRCurrency),
			Timeout:      durationWithDefault(lookup, "API_PAYTR_TIMEOUT", defaultPayTRTimeout),
			TimeoutLimit: intWithDefault(lookup, "API_PAYTR_TIMEOUT_LIMIT_MINUTES", defaultPayTRTimeoutLimit),
		},
		Stripe: StripeConfig{
			APIKey: stringWithDefault(lookup, "API_STRIPE_API_KEY", ""),
		},
		Shipink: ShipinkConfig{
			BaseURL: stringWithDefault(lookup, "API_SHIPINK_BASE_URL", defaultShipinkBaseURL),
			APIKey:  stringWithDefault(lookup, "API_SHIPINK_API_KEY", ""),
			Timeout: durationWithDefault(lookup, "API_SHIPINK_TIMEOUT", defaultShipinkTimeout),
		},
		Email: EmailConfig{
			Mode:         strings.ToLower(stringWithDefault(lookup, "API_EMAIL_MODE", defaultEmailMode)),
			From:         stringWithDefault(lookup, "API_EMAIL_FROM", ""),
			FromName:     stringWithDefault(lookup, "API_EMAIL_FROM_NAME", ""),
			SMTPHost:     stringWithDefault(lookup, "API_EMAIL_SMTP_HOST", defaultSMTPHost),
			SMTPPort:     intWithDefault(lookup, "API_EMAIL_SMTP_PORT", defaultSMTPPort),
			SMTPUsername: stringWithDefault(lookup, "API_EMAIL_SMTP_USERNAME", ""),
			SMTPPassword: stringWithDefault(lookup, "API_EMAIL_SMTP_PASSWORD", ""),
			ResendAPIKey: stringWithDefault(lookup, "API_EMAIL_RESEND_API_KEY", ""),
			Transport:    strings.ToLower(stringWithDefault(lookup, "API_EMAIL_TRANSPORT", EmailModeSMTP)),
		},
		PubSub: PubSubConfig{
			ProjectID:         stringWithDefault(lookup, "API_PUBSUB_PROJECT_ID", ""),
			OrdersTopic:       stringWithDefault(lookup, "API_PUBSUB_ORDERS_TOPIC", defaultOrdersTopic),
			EmailTopic:        stringWithDefault(lookup, "API_PUBSUB_EMAIL_TOPIC", defaultEmailTopic),
			EmailSubscription: stringWithDefault(lookup, "API_PUBSUB_EMAIL_SUBSCRIPTION", defaultEmailSubscription),
		},
		CORS: CORSConfig{
			AllowedOrigins: csvWithDefault(lookup, "API_CORS_ALLOWED_ORIGINS"),
		},
		Storefront: StorefrontConfig{
			URL:          stringWithDefault(lookup, "API_STOREFRONT_URL", defaultStorefrontURL),
			Brand:        stringWithDefault(lookup, "API_STOREFRONT_BRAND", defaultBrand),
			CheckoutPath: stringWithDefault(lookup, "API_STOREFRONT_CHECKOUT_PATH", defaultCheckoutPath),
		},
		Checkout: CheckoutConfig{
			Currency:            strings.ToUpper(stringWithDefault(lookup, "API_CHECKOUT_CURRENCY", defaultCurrency)),
			ShippingFee:         int64WithDefault(lookup, "API_CHECKOUT_SHIPPING_FEE", defaultShippingFee),
			FreeShippingMinimum: int64WithDefault(lookup, "API_CHECKOUT_FREE_SHIPPING_MINIMUM", defaultFreeShippingMinimum),
			ReturnWindowDays:    intWithDefault(lookup, "API_CHECKOUT_RETURN_WINDOW_DAYS", defaultReturnWindowDays),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firebase.ProjectID
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Auth.JWTSecret", &cfg.Auth.JWTSecret},
		{"PayTR.MerchantKey", &cfg.PayTR.MerchantKey},
		{"PayTR.MerchantSalt", &cfg.PayTR.MerchantSalt},
		{"Stripe.APIKey", &cfg.Stripe.APIKey},
		{"Shipink.APIKey", &cfg.Shipink.APIKey},
		{"Email.SMTPPassword", &cfg.Email.SMTPPassword},
		{"Email.ResendAPIKey", &cfg.Email.ResendAPIKey},
		{"Storage.CloudinaryURL", &cfg.Storage.CloudinaryURL},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	if missing := findMissingSecrets(options.requiredSecrets, resolved); missing != nil {
		return Config{}, missing
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if !isSecretReference(value) {
		return value, nil
	}
	ref := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string
	require := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}

	require(cfg.Server.Port != "", "Server.Port")
	require(cfg.Server.RequestTimeout > 0, "Server.RequestTimeout")
	require(cfg.Firestore.ProjectID != "", "Firestore.ProjectID")
	require(len(cfg.Auth.JWTSecret) >= minJWTSecretLength, "Auth.JWTSecret")
	require(cfg.Auth.TokenTTL > 0, "Auth.TokenTTL")
	require(cfg.Auth.GoogleVerifier == "jwks" || cfg.Auth.GoogleVerifier == "firebase", "Auth.GoogleVerifier")

	if cfg.PayTR.Enabled() {
		require(cfg.PayTR.MerchantID != "", "PayTR.MerchantID")
		require(cfg.PayTR.MerchantKey != "", "PayTR.MerchantKey")
		require(cfg.PayTR.MerchantSalt != "", "PayTR.MerchantSalt")
		require(cfg.PayTR.OKURL != "", "PayTR.OKURL")
		require(cfg.PayTR.FailURL != "", "PayTR.FailURL")
	}

	switch cfg.Email.Mode {
	case EmailModeLog:
	case EmailModeSMTP:
		require(cfg.Email.From != "", "Email.From")
		require(cfg.Email.SMTPHost != "", "Email.SMTPHost")
		require(cfg.Email.SMTPUsername != "", "Email.SMTPUsername")
		require(cfg.Email.SMTPPassword != "", "Email.SMTPPassword")
	case EmailModeResend:
		require(cfg.Email.From != "", "Email.From")
		require(cfg.Email.ResendAPIKey != "", "Email.ResendAPIKey")
	case EmailModePubSub:
		require(cfg.PubSub.EmailTopic != "", "PubSub.EmailTopic")
		require(cfg.PubSub.EmailSubscription != "", "PubSub.EmailSubscription")
		require(cfg.Email.Transport == EmailModeSMTP || cfg.Email.Transport == EmailModeResend, "Email.Transport")
	default:
		missing = append(missing, "Email.Mode")
	}

	require(len(cfg.Checkout.Currency) == 3, "Checkout.Currency")
	require(cfg.Checkout.ShippingFee >= 0, "Checkout.ShippingFee")
	require(cfg.Checkout.FreeShippingMinimum >= 0, "Checkout.FreeShippingMinimum")
	require(cfg.Checkout.ReturnWindowDays > 0, "Checkout.ReturnWindowDays")

	require(strings.TrimSpace(cfg.Idempotency.Header) != "", "Idempotency.Header")
	require(cfg.Idempotency.TTL > 0, "Idempotency.TTL")
	require(cfg.Idempotency.CleanupInterval > 0, "Idempotency.CleanupInterval")
	require(cfg.Idempotency.CleanupBatchSize > 0, "Idempotency.CleanupBatchSize")

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func findMissingSecrets(required []string, resolved map[string]string) *MissingSecretsError {
	seen := make(map[string]struct{}, len(required))
	var missing []string
	for _, name := range required {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if resolved[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingSecretsError{names: missing}
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if rest, ok := strings.CutPrefix(trimmed, "sm://"); ok {
		return "secret://" + rest
	}
	return trimmed
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
