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

	"go.uber.org/zap"

	"github.com/gohaste/storefront/internal/commerce"
	"github.com/gohaste/storefront/internal/delivery"
	"github.com/gohaste/storefront/internal/handlers"
	"github.com/gohaste/storefront/internal/payments"
	"github.com/gohaste/storefront/internal/platform/auth"
	"github.com/gohaste/storefront/internal/platform/config"
	"github.com/gohaste/storefront/internal/platform/idempotency"
	"github.com/gohaste/storefront/internal/platform/observability"
	"github.com/gohaste/storefront/internal/repositories/memory"
	"github.com/gohaste/storefront/internal/services"
)

const contactMessageCapacity = 1000

func main() {
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

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(startedAt)

	commerceClient, err := commerce.NewClient(commerce.Config{
		BaseURL:  cfg.Commerce.BaseURL,
		Token:    cfg.Commerce.Token,
		Currency: cfg.Pricing.Currency,
		Timeout:  cfg.Commerce.Timeout,
		Logger:   observability.EventLogger(logger.Named("commerce")),
	})
	if err != nil {
		logger.Fatal("failed to initialise commerce client", zap.Error(err))
	}

	var rules []services.DiscountRule
	if cfg.Features.EnablePromotions && strings.TrimSpace(cfg.Promotions.RulesFile) != "" {
		rules, err = services.LoadPromotionRules(cfg.Promotions.RulesFile)
		if err != nil {
			logger.Fatal("failed to load promotion rules", zap.Error(err), zap.String("file", cfg.Promotions.RulesFile))
		}
		logger.Info("promotion rules loaded", zap.Int("count", len(rules)))
	}

	pricingEngine, err := services.NewPricingEngine(services.PricingEngineDeps{
		Currency:              cfg.Pricing.Currency,
		TaxRateBasisPoints:    cfg.Pricing.TaxRateBasisPoints,
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		ShippingFlatFee:       cfg.Pricing.ShippingFlatFee,
		Rules:                 rules,
		Now:                   time.Now,
		Logger:                observability.EventLogger(logger.Named("pricing")),
	})
	if err != nil {
		logger.Fatal("failed to initialise pricing engine", zap.Error(err))
	}

	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: memory.NewCartRepository(),
		Pricing:    pricingEngine,
		Clock:      time.Now,
		Logger:     observability.EventLogger(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Client: commerceClient,
		Logger: observability.EventLogger(logger.Named("catalog")),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Client: commerceClient,
		Logger: observability.EventLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	var paymentVerifier services.PaymentVerifier
	if strings.TrimSpace(cfg.PSP.StripeAPIKey) != "" {
		stripeVerifier, err := payments.NewStripeVerifier(payments.StripeVerifierConfig{
			APIKey: cfg.PSP.StripeAPIKey,
			Logger: payments.StripeLogger(observability.EventLogger(logger.Named("payments"))),
			Clock:  time.Now,
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe verifier", zap.Error(err))
		}
		paymentVerifier = stripeVerifier
	} else {
		logger.Warn("stripe api key not configured; payment tokens will not be verified")
	}

	var deliveryBooker services.DeliveryBooker
	if cfg.Features.EnableDelivery {
		deliveryClient, err := delivery.NewClient(delivery.Config{
			BaseURL: cfg.Delivery.BaseURL,
			APIKey:  cfg.Delivery.APIKey,
			Enabled: cfg.Delivery.Enabled,
			Timeout: cfg.Delivery.Timeout,
			Logger:  observability.EventLogger(logger.Named("delivery")),
		})
		if err != nil {
			logger.Fatal("failed to initialise delivery client", zap.Error(err))
		}
		deliveryBooker, err = delivery.NewBooker(deliveryClient, pickupLocation(cfg.Delivery))
		if err != nil {
			logger.Fatal("failed to initialise delivery booker", zap.Error(err))
		}
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Cart:     cartService,
		Client:   commerceClient,
		Payments: paymentVerifier,
		Delivery: deliveryBooker,
		Clock:    time.Now,
		Logger:   observability.EventLogger(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	dashboardService, err := services.NewDashboardService(services.DashboardServiceDeps{
		Catalog:         catalogService,
		Orders:          orderService,
		DefaultCurrency: cfg.Pricing.Currency,
		Clock:           time.Now,
		Logger:          observability.EventLogger(logger.Named("dashboard")),
	})
	if err != nil {
		logger.Fatal("failed to initialise dashboard service", zap.Error(err))
	}

	contactService, err := services.NewContactService(services.ContactServiceDeps{
		Repo:   memory.NewContactRepository(contactMessageCapacity),
		Clock:  time.Now,
		Logger: observability.EventLogger(logger.Named("contact")),
	})
	if err != nil {
		logger.Fatal("failed to initialise contact service", zap.Error(err))
	}

	idempotencyStore := idempotency.NewMemoryStore()
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.EventLogger(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					removed, err := idempotencyStore.CleanupExpired(cleanupCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	sessioner := auth.NewSessioner(
		auth.WithJWTSecret(cfg.Session.JWTSecret),
		auth.WithSessionLogger(logger.Named("auth")),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
		observability.MetricsMiddleware(),
		sessioner.Middleware(),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithReadinessCheck("commerce", func(ctx context.Context) error {
			probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_, err := commerceClient.ListProducts(probeCtx)
			return err
		}),
	)

	contactLimiter := handlers.NewRateLimiter(cfg.RateLimits.ContactPerMinute, time.Minute)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithMetricsHandler(observability.MetricsHandler()),
		handlers.WithProductRoutes(handlers.NewCatalogHandlers(catalogService).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(cartService).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(checkoutService).Routes),
		handlers.WithCheckoutMiddlewares(idempotencyMiddleware),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(orderService).Routes),
		handlers.WithDashboardRoutes(handlers.NewDashboardHandlers(dashboardService).Routes),
		handlers.WithContactRoutes(handlers.NewContactHandlers(contactService, contactLimiter).Routes),
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
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(started time.Time) handlers.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(os.Getenv("API_ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return handlers.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func pickupLocation(cfg config.DeliveryConfig) delivery.Location {
	location := delivery.Location{
		Address:    cfg.PickupAddress,
		PostalCode: cfg.PickupPostalCode,
		City:       cfg.PickupCity,
		Country:    cfg.PickupCountry,
	}
	if cfg.PickupName != "" || cfg.PickupPhone != "" {
		location.Contact = &delivery.Contact{
			FirstName: cfg.PickupName,
			Phone:     cfg.PickupPhone,
		}
	}
	return location
}
