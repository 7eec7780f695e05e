package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/jewelry-storefront/api/internal/domain"
	"github.com/jewelry-storefront/api/internal/handlers"
	"github.com/jewelry-storefront/api/internal/payments"
	"github.com/jewelry-storefront/api/internal/platform/auth"
	"github.com/jewelry-storefront/api/internal/platform/config"
	"github.com/jewelry-storefront/api/internal/platform/email"
	pfirestore "github.com/jewelry-storefront/api/internal/platform/firestore"
	"github.com/jewelry-storefront/api/internal/platform/idempotency"
	"github.com/jewelry-storefront/api/internal/platform/jobs"
	"github.com/jewelry-storefront/api/internal/platform/observability"
	"github.com/jewelry-storefront/api/internal/platform/secrets"
	"github.com/jewelry-storefront/api/internal/platform/shipink"
	platformstorage "github.com/jewelry-storefront/api/internal/platform/storage"
	"github.com/jewelry-storefront/api/internal/repositories"
	firestoreRepo "github.com/jewelry-storefront/api/internal/repositories/firestore"
	"github.com/jewelry-storefront/api/internal/services"
)

const (
	idempotencyCollection = "idempotency_keys"
	shutdownTimeout       = 10 * time.Second
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}

	var pubsubClient *pubsub.Client
	if strings.TrimSpace(cfg.PubSub.ProjectID) != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.PubSub.ProjectID, firebaseClientOptions(cfg)...)
		if err != nil {
			logger.Warn("pubsub unavailable; order events and queued email disabled", zap.Error(err))
			pubsubClient = nil
		}
	}

	healthRepo, err := newHealthRepository(firestoreProvider, fetcher, pubsubClient, cfg)
	if err != nil {
		logger.Fatal("failed to initialise health checks", zap.Error(err))
	}
	registry, err := firestoreRepo.NewRegistry(firestoreProvider, healthRepo)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	// Background workers share one cancellable context.
	workerCtx, workerCancel := context.WithCancel(ctx)
	var workerWG sync.WaitGroup

	var publishers []*jobs.Publisher
	var orderEvents services.OrderEventPublisher
	if pubsubClient != nil {
		publisher, err := jobs.NewPublisher(pubsubClient.Topic(cfg.PubSub.OrdersTopic))
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		publishers = append(publishers, publisher)
		events, err := jobs.NewOrderEventPublisher(publisher)
		if err != nil {
			logger.Fatal("failed to initialise order events", zap.Error(err))
		}
		orderEvents = events
	}

	sender, emailPublisher, err := newEmailSender(workerCtx, cfg, logger, pubsubClient, &workerWG)
	if err != nil {
		logger.Fatal("failed to initialise email delivery", zap.Error(err))
	}
	if emailPublisher != nil {
		publishers = append(publishers, emailPublisher)
	}
	composer, err := email.NewComposer(cfg.Storefront.Brand, cfg.Storefront.URL)
	if err != nil {
		logger.Fatal("failed to initialise email templates", zap.Error(err))
	}
	notifier, err := services.NewEmailNotifier(services.EmailNotifierDeps{
		Composer:         composer,
		Sender:           sender,
		Users:            registry.Users(),
		ReturnWindowDays: cfg.Checkout.ReturnWindowDays,
		Logger:           observability.ServiceLogger(logger, "email"),
	})
	if err != nil {
		logger.Fatal("failed to initialise notifier", zap.Error(err))
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret,
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
		auth.WithTokenIssuer(cfg.Auth.Issuer),
	)
	if err != nil {
		logger.Fatal("failed to initialise token manager", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(tokens)

	googleVerifier, err := newGoogleVerifier(ctx, cfg, logger.Named("auth"))
	if err != nil {
		logger.Warn("google sign-in disabled", zap.Error(err))
	}

	authDeps := services.AuthServiceDeps{
		Users:    registry.Users(),
		Codes:    registry.PasswordCodes(),
		Tokens:   tokens,
		Notifier: notifier,
		Logger:   observability.ServiceLogger(logger, "auth"),
	}
	if googleVerifier != nil {
		authDeps.Google = googleVerifier
	}
	authService, err := services.NewAuthService(authDeps)
	if err != nil {
		logger.Fatal("failed to initialise auth service", zap.Error(err))
	}

	imageStore, err := newImageStore(ctx, cfg)
	if err != nil {
		logger.Warn("product image uploads disabled", zap.Error(err))
	}
	catalogDeps := services.CatalogServiceDeps{
		Products: registry.Products(),
		Currency: cfg.Checkout.Currency,
		Logger:   observability.ServiceLogger(logger, "catalog"),
	}
	if imageStore != nil {
		catalogDeps.Images = imageStore
	}
	catalogService, err := services.NewCatalogService(catalogDeps)
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: registry.Carts(),
		Products:   registry.Products(),
		Clock:      time.Now,
		Logger:     observability.ServiceLogger(logger, "cart"),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   registry.Orders(),
		Counters: registry.Counters(),
		Shipping: domain.ShippingPolicy{
			Fee:                 cfg.Checkout.ShippingFee,
			FreeShippingMinimum: cfg.Checkout.FreeShippingMinimum,
		},
		Currency: cfg.Checkout.Currency,
		Events:   orderEvents,
		Notifier: notifier,
		Logger:   observability.ServiceLogger(logger, "order"),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	paymentManager, err := newPaymentManager(cfg, logger)
	if err != nil {
		logger.Warn("payments disabled; checkout will report unavailable", zap.Error(err))
	}

	var checkoutService services.CheckoutService
	if paymentManager != nil {
		checkoutMetrics, err := observability.NewCheckoutMetrics(otel.GetMeterProvider().Meter("jewelry-storefront/checkout"))
		if err != nil {
			logger.Warn("checkout metrics disabled", zap.Error(err))
		}
		checkoutDeps := services.CheckoutServiceDeps{
			Sessions:  registry.CheckoutSessions(),
			Carts:     cartService,
			Orders:    orderService,
			Users:     registry.Users(),
			Payments:  paymentManager,
			Currency:  cfg.Checkout.Currency,
			ReturnURL: cfg.Storefront.CheckoutReturnURL(),
			Logger:    observability.ServiceLogger(logger, "checkout"),
		}
		if checkoutMetrics != nil {
			checkoutDeps.Metrics = checkoutMetrics
		}
		checkoutService, err = services.NewCheckoutService(checkoutDeps)
		if err != nil {
			logger.Fatal("failed to initialise checkout service", zap.Error(err))
		}
	}

	returnDeps := services.ReturnServiceDeps{
		Returns:    registry.Returns(),
		Orders:     orderService,
		Notifier:   notifier,
		WindowDays: cfg.Checkout.ReturnWindowDays,
		Logger:     observability.ServiceLogger(logger, "return"),
	}
	if paymentManager != nil {
		returnDeps.Payments = paymentManager
	}
	returnService, err := services.NewReturnService(returnDeps)
	if err != nil {
		logger.Fatal("failed to initialise return service", zap.Error(err))
	}

	shippingDeps := services.ShippingServiceDeps{
		Orders: orderService,
		Logger: observability.ServiceLogger(logger, "shipping"),
	}
	if strings.TrimSpace(cfg.Shipink.APIKey) != "" {
		carrier, err := shipink.NewClient(cfg.Shipink.BaseURL, cfg.Shipink.APIKey, shipink.WithTimeout(cfg.Shipink.Timeout))
		if err != nil {
			logger.Fatal("failed to initialise shipink client", zap.Error(err))
		}
		shippingDeps.Carrier = carrier
	}
	shippingService, err := services.NewShippingService(shippingDeps)
	if err != nil {
		logger.Fatal("failed to initialise shipping service", zap.Error(err))
	}

	countryService, err := services.NewCountryService()
	if err != nil {
		logger.Fatal("failed to load country dataset", zap.Error(err))
	}

	systemService, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: registry.Health(),
		Clock:            time.Now,
		Build:            buildInfo,
	})
	if err != nil {
		logger.Warn("health: system service init failed", zap.Error(err))
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreProvider, idempotencyCollection)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
	)
	workerWG.Add(1)
	go func() {
		defer workerWG.Done()
		idempotency.RunCleanup(workerCtx, idempotencyStore, cfg.Idempotency.CleanupInterval, cfg.Idempotency.CleanupBatchSize, logger.Named("idempotency"))
	}()

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger),
		observability.TraceMiddleware(projectID),
		observability.RequestLoggerMiddleware(projectID),
		observability.RecoveryMiddleware(logger),
	}
	if cfg.Server.RequestTimeout > 0 {
		middlewares = append(middlewares, middleware.Timeout(cfg.Server.RequestTimeout))
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(systemService),
	)
	checkoutHandlers := handlers.NewCheckoutHandlers(authenticator, checkoutService,
		handlers.WithPaymentIdempotency(idempotencyMiddleware))

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCORS(cfg.CORS.AllowedOrigins),
		handlers.WithAuthRoutes(handlers.NewAuthHandlers(authenticator, authService).Routes),
		handlers.WithProductRoutes(handlers.NewProductHandlers(authenticator, catalogService).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(authenticator, cartService).Routes),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithPaymentRoutes(checkoutHandlers.PaymentRoutes),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(authenticator, orderService, returnService).Routes),
		handlers.WithReturnRoutes(handlers.NewReturnHandlers(authenticator, returnService).Routes),
		handlers.WithShippingRoutes(handlers.NewShippingHandlers(authenticator, shippingService).Routes),
		handlers.WithCountryRoutes(handlers.NewCountryHandlers(countryService).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront api listening", zap.String("environment", buildInfo.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	workerCancel()
	workerWG.Wait()
	for _, p := range publishers {
		p.Stop()
	}
	if pubsubClient != nil {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Server.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

// newHealthRepository checks Firestore, Secret Manager and, when configured,
// the orders topic.
func newHealthRepository(provider *pfirestore.Provider, fetcher *secrets.Fetcher, ps *pubsub.Client, cfg config.Config) (repositories.HealthRepository, error) {
	checks := []repositories.DependencyCheck{
		{Name: "firestore", Timeout: 1500 * time.Millisecond, Check: provider.Ping},
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	if ps != nil {
		topic := ps.Topic(cfg.PubSub.OrdersTopic)
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", cfg.PubSub.OrdersTopic)
				}
				return nil
			},
		})
	}
	return repositories.NewDependencyHealthRepository(checks)
}

// newEmailSender returns the sender services use. In pubsub mode messages are
// queued and a worker drains them into the configured transport.
func newEmailSender(workerCtx context.Context, cfg config.Config, logger *zap.Logger, ps *pubsub.Client, wg *sync.WaitGroup) (email.Sender, *jobs.Publisher, error) {
	if cfg.Email.Mode != config.EmailModePubSub {
		sender, err := newEmailTransport(cfg.Email.Mode, cfg, logger)
		return sender, nil, err
	}
	if ps == nil {
		return nil, nil, errors.New("email mode pubsub requires a pubsub project")
	}
	transport, err := newEmailTransport(cfg.Email.Transport, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	publisher, err := jobs.NewPublisher(ps.Topic(cfg.PubSub.EmailTopic))
	if err != nil {
		return nil, nil, err
	}
	queue, err := email.NewQueueSender(publisher)
	if err != nil {
		return nil, nil, err
	}
	worker, err := jobs.NewWorker(ps.Subscription(cfg.PubSub.EmailSubscription), email.QueueHandler(transport),
		jobs.WithWorkerLogger(logger.Named("email-worker")),
	)
	if err != nil {
		return nil, nil, err
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := worker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("email worker stopped", zap.Error(err))
		}
	}()
	return queue, publisher, nil
}

func newEmailTransport(mode string, cfg config.Config, logger *zap.Logger) (email.Sender, error) {
	switch mode {
	case config.EmailModeSMTP:
		sender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		})
		if err != nil {
			return nil, err
		}
		return sender, nil
	case config.EmailModeResend:
		sender, err := email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.FromName)
		if err != nil {
			return nil, err
		}
		return sender, nil
	case config.EmailModeLog, "":
		return email.NewLogSender(logger.Named("email")), nil
	default:
		return nil, fmt.Errorf("unsupported email transport %q", mode)
	}
}

func newGoogleVerifier(ctx context.Context, cfg config.Config, logger *zap.Logger) (auth.GoogleVerifier, error) {
	switch cfg.Auth.GoogleVerifier {
	case "firebase":
		verifier, err := auth.NewFirebaseGoogleVerifier(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return verifier, nil
	default:
		clientID := strings.TrimSpace(cfg.Auth.GoogleClientID)
		if clientID == "" {
			return nil, errors.New("google client id is not configured")
		}
		cache := auth.NewJWKSCache(auth.GoogleJWKSURL, auth.WithJWKSLogger(logger))
		verifier, err := auth.NewJWKSGoogleVerifier(cache, clientID)
		if err != nil {
			return nil, err
		}
		return verifier, nil
	}
}

func newImageStore(ctx context.Context, cfg config.Config) (platformstorage.ImageStore, error) {
	if url := strings.TrimSpace(cfg.Storage.CloudinaryURL); url != "" {
		store, err := platformstorage.NewCloudinaryStore(url)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	bucket := strings.TrimSpace(cfg.Storage.ImagesBucket)
	if bucket == "" {
		return nil, errors.New("no image bucket or cloudinary url configured")
	}
	client, err := cloudstorage.NewClient(ctx, firebaseClientOptions(cfg)...)
	if err != nil {
		return nil, err
	}
	store, err := platformstorage.NewGCSStore(client, bucket)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// newPaymentManager registers PayTR for TRY and Stripe for everything else.
func newPaymentManager(cfg config.Config, logger *zap.Logger) (*payments.Manager, error) {
	providers := make(map[string]payments.Provider)
	routes := make(map[string]string)
	if cfg.PayTR.Enabled() {
		paytr, err := payments.NewPayTRProvider(payments.PayTRConfig{
			MerchantID:   cfg.PayTR.MerchantID,
			MerchantKey:  cfg.PayTR.MerchantKey,
			MerchantSalt: cfg.PayTR.MerchantSalt,
			BaseURL:      cfg.PayTR.BaseURL,
			TestMode:     cfg.PayTR.TestMode,
			OKURL:        cfg.PayTR.OKURL,
			FailURL:      cfg.PayTR.FailURL,
			Currency:     cfg.PayTR.Currency,
			TimeoutLimit: cfg.PayTR.TimeoutLimit,
			HTTPClient:   &http.Client{Timeout: cfg.PayTR.Timeout},
			Logger:       observability.ServiceLogger(logger, "paytr"),
		})
		if err != nil {
			return nil, err
		}
		providers[payments.ProviderPayTR] = paytr
		routes[domain.DefaultCurrency] = payments.ProviderPayTR
	}
	if key := strings.TrimSpace(cfg.Stripe.APIKey); key != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: key,
			Logger: observability.ServiceLogger(logger, "stripe"),
		})
		if err != nil {
			return nil, err
		}
		providers[payments.ProviderStripe] = stripeProvider
	}
	if len(providers) == 0 {
		return nil, errors.New("no payment provider configured")
	}
	return payments.NewManager(providers, payments.WithCurrencyRoutes(routes))
}

func firebaseClientOptions(cfg config.Config) []option.ClientOption {
	if file := strings.TrimSpace(cfg.Firebase.CredentialsFile); file != "" {
		return []option.ClientOption{option.WithCredentialsFile(file)}
	}
	return nil
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}
	project := lookup("API_SECRET_PROJECT_ID")
	if project == "" {
		project = lookup("API_FIREBASE_PROJECT_ID")
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
	}
	if project != "" {
		opts = append(opts, secrets.WithProject(project))
	}
	if path := lookup("API_SECRET_FALLBACK_FILE"); path != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	if file := lookup("API_FIREBASE_CREDENTIALS_FILE"); file != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(file)))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames lists the secrets that must resolve to a value. Payment
// and delivery credentials are only required once their feature is switched on.
func requiredSecretNames(env map[string]string) []string {
	required := []string{"Auth.JWTSecret"}
	if strings.TrimSpace(env["API_PAYTR_MERCHANT_ID"]) != "" {
		required = append(required, "PayTR.MerchantKey", "PayTR.MerchantSalt")
	}
	switch strings.ToLower(strings.TrimSpace(env["API_EMAIL_MODE"])) {
	case config.EmailModeSMTP:
		required = append(required, "Email.SMTPPassword")
	case config.EmailModeResend:
		required = append(required, "Email.ResendAPIKey")
	}
	return required
}
