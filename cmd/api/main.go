package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/backend-pizza/internal/analytics"
	"github.com/noah-isme/backend-pizza/internal/audit"
	"github.com/noah-isme/backend-pizza/internal/auth"
	"github.com/noah-isme/backend-pizza/internal/cart"
	"github.com/noah-isme/backend-pizza/internal/catalog"
	"github.com/noah-isme/backend-pizza/internal/checkout"
	"github.com/noah-isme/backend-pizza/internal/common"
	"github.com/noah-isme/backend-pizza/internal/config"
	"github.com/noah-isme/backend-pizza/internal/db"
	"github.com/noah-isme/backend-pizza/internal/delivery"
	"github.com/noah-isme/backend-pizza/internal/events"
	"github.com/noah-isme/backend-pizza/internal/health"
	"github.com/noah-isme/backend-pizza/internal/lock"
	"github.com/noah-isme/backend-pizza/internal/notify"
	"github.com/noah-isme/backend-pizza/internal/obs"
	"github.com/noah-isme/backend-pizza/internal/order"
	"github.com/noah-isme/backend-pizza/internal/payment"
	"github.com/noah-isme/backend-pizza/internal/pricing"
	"github.com/noah-isme/backend-pizza/internal/queue"
	"github.com/noah-isme/backend-pizza/internal/ratelimit"
	"github.com/noah-isme/backend-pizza/internal/resilience"
	"github.com/noah-isme/backend-pizza/internal/security"
	"github.com/noah-isme/backend-pizza/internal/tracking"
	"github.com/noah-isme/backend-pizza/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(cfg.Obs.MetricsNamespace, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		ServiceName:   cfg.Obs.ServiceName,
		Endpoint:      cfg.Obs.TracingEndpoint,
		Exporter:      cfg.Obs.TracingExporter,
		SamplingRatio: cfg.Obs.TracingSample,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Error().Err(err).Msg("initialise tracing")
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error().Err(err).Msg("shutdown tracer")
			}
		}()
	}

	if envBool("DB_AUTO_MIGRATE", true) {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migrate database")
		}
	}
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{ApplicationName: "pizza-api"})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger, metricsEnabled)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse asynq redis url")
	}
	taskClient := asynq.NewClient(asynqOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close asynq client")
		}
	}()

	catalogRepo := catalog.NewPGRepository(pool)
	catalogCache := catalog.NewCache(redisClient, cfg.CatalogCacheTTL)
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Queries: catalogRepo,
		Cache:   catalogCache,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})
	catalogAdmin := &catalog.AdminHandler{Admin: &catalog.Admin{
		Writer: catalogRepo,
		Cache:  catalogCache,
		Logger: logger.With().Str("component", "catalog").Logger(),
	}}

	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		ClockSkew: 30 * time.Second,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	authMiddleware := auth.Middleware{Verifier: verifier, AccessCookie: cfg.AccessCookie}

	geocoderBreaker := resilience.NewBreaker(resilience.BreakerOptions{
		Target:      "geocoder",
		MinRequests: 5,
		OpenFor:     30 * time.Second,
		Logger:      &logger,
	})
	var geocoder delivery.Geocoder
	if cfg.Geocoder.URL != "" {
		geocoder = delivery.HTTPGeocoder{
			Client: resilience.HTTPClient{
				Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
				Breaker:     geocoderBreaker,
				BaseBackoff: 200 * time.Millisecond,
				MaxAttempts: cfg.Geocoder.MaxAttempts,
				Jitter:      0.2,
				Timeout:     cfg.Geocoder.Timeout,
			},
			BaseURL: cfg.Geocoder.URL,
			APIKey:  cfg.Geocoder.APIKey,
		}
	}
	quoter := delivery.NewQuoter(cfg.Store.Schedule(), geocoder, logger.With().Str("component", "delivery").Logger())

	registry := cart.NewRegistry(cart.RegistryConfig{
		Storage:   cart.NewRedisStorage(redisClient, cfg.CartTTL),
		StoreName: cfg.CartStoreKey,
		Logger:    logger.With().Str("component", "cart").Logger(),
	})
	go registry.Run(ctx, time.Minute, cfg.CartIdleEvict)
	cartHandler := cart.NewHandler(cart.HandlerConfig{
		Registry: registry,
		Catalog:  catalogService,
		Quoter:   quoter,
		Rules:    pricing.Rules{MaxToppings: cfg.MaxToppings},
	})

	bus := &events.Bus{
		Store: events.NewPGStore(pool),
		Notifiers: []events.Notifier{
			events.LogNotifier{Logger: logger.With().Str("component", "events").Logger()},
			events.Filter(queue.Enqueuer{Client: taskClient, Queue: cfg.QueueName, MaxRetry: 5, Retention: 24 * time.Hour}, events.TopicOrderPaid),
			notify.EmailNotifier{
				Mail:      notify.LogMailer{Logger: logger.With().Str("component", "mailer").Logger()},
				Enabled:   cfg.EmailNotifyEnabled,
				StoreName: cfg.Store.Name,
				// order.created precedes payment; the paid confirmation covers it.
				TopicToggles: map[string]bool{events.TopicOrderCreated: false},
			},
		},
	}

	orders := order.NewPGRepository(pool)
	paymentBreaker := func(target string) *resilience.Breaker {
		return resilience.NewBreaker(resilience.BreakerOptions{Target: target, MinRequests: 5, OpenFor: 30 * time.Second, Logger: &logger})
	}
	providers := map[string]payment.Provider{
		payment.MethodMock: payment.Guarded{Provider: payment.Mock{}, Breaker: paymentBreaker("payment-mock")},
		payment.MethodCard: payment.Guarded{Provider: payment.CardProcessor{Latency: 150 * time.Millisecond}, Breaker: paymentBreaker("payment-card")},
	}
	checkoutHandler := &checkout.Handler{Svc: &checkout.Service{
		Carts:     registry,
		Orders:    orders,
		Providers: providers,
		Events:    bus,
		Locker:    lock.Redis{R: redisClient, RetryBackoff: 100 * time.Millisecond, MaxWait: 2 * time.Second},
		LockTTL:   cfg.CheckoutLockTTL,
		Currency:  cfg.Store.Currency,
		Logger:    logger.With().Str("component", "checkout").Logger(),
	}}
	orderHandler := order.NewHandler(order.HandlerConfig{Repository: orders, Events: bus, Logger: logger})
	analyticsHandler := &analytics.Handler{Svc: &analytics.Service{
		Q:            analytics.NewPGQueries(pool),
		R:            redisClient,
		TTL:          cfg.AnalyticsCacheTTL,
		DefaultRange: cfg.AnalyticsRangeDays,
	}}
	auditStore := audit.NewPGStore(pool)
	auditRecorder := audit.HTTPRecorder{
		Service: &audit.Service{Store: auditStore, Enabled: cfg.AuditEnabled, SamplingRate: cfg.AuditSamplingRate},
		OnError: func(err error) { logger.Error().Err(err).Msg("audit_record_failed") },
	}
	auditHandler := audit.Handler{Store: auditStore}
	courierWebhook := tracking.Webhook{
		Orders:    orders,
		Events:    bus,
		Replay:    redisClient,
		ReplayTTL: cfg.TrackingReplayTTL,
		Secret:    cfg.TrackingWebhookSecret,
		Logger:    logger.With().Str("component", "tracking").Logger(),
	}
	profileHandler := &user.Handler{Service: user.NewService(user.NewPGRepository(pool), nil)}

	limiterStore, err := ratelimit.NewRedisStore(redisClient, "pizza:limiter")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise limiter store")
	}
	checkoutLimiter, err := ratelimit.NewULimiter(limiterStore, cfg.CheckoutRateLimit)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise checkout limiter")
	}
	checkoutLimit := ratelimit.Handler{
		Limiter: checkoutLimiter,
		Key:     ratelimit.ByUser("checkout"),
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate_limit_unavailable") },
	}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	csrf := security.CSRF{AccessCookie: cfg.AccessCookie}

	go func() {
		for menu := range catalogService.Watch(ctx, cfg.CatalogWatchInterval) {
			logger.Info().
				Int("ingredients", len(menu.Ingredients)).
				Int("pizzas", len(menu.Pizzas)).
				Int("drinks", len(menu.Drinks)).
				Msg("catalog_menu_refreshed")
		}
	}()

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(cfg.Obs.MetricsNamespace, obs.ParseBucketsCSV(cfg.Obs.MetricsBuckets), nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(security.BodyLimit{Max: 64 << 10}.Middleware)
	r.Use(obs.SpanNamer)
	if httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(authMiddleware.Authenticate)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), envOrDefault("PPROF_BASIC_AUTH_USER", ""), envOrDefault("PPROF_BASIC_AUTH_PASS", "")))
	}

	healthHandler := health.Handler{
		Probes: map[string]health.Probe{
			"db":    func(ctx context.Context) error { return pool.Ping(ctx) },
			"redis": func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		Timeout: 500 * time.Millisecond,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(csrf.Middleware)

		v.Route("/catalog", func(c chi.Router) {
			c.Get("/sizes", catalogHandler.Sizes)
			c.Get("/ingredients", catalogHandler.Ingredients)
			c.Get("/pizzas", catalogHandler.Pizzas)
			c.Get("/drinks", catalogHandler.Drinks)
		})
		v.Post("/pricing/custom", cartHandler.PreviewCustom)
		v.Post("/webhooks/couriers/{courier}", courierWebhook.Handle)

		v.Route("/carts", func(c chi.Router) {
			c.Post("/", cartHandler.Create)
			c.Route("/{session}", func(s chi.Router) {
				s.Get("/", cartHandler.Get)
				s.Delete("/", cartHandler.Clear)
				s.Post("/pizzas", cartHandler.AddPizza)
				s.Post("/custom-pizzas", cartHandler.AddCustomPizza)
				s.Post("/drinks", cartHandler.AddDrink)
				s.Patch("/lines/{lineID}", cartHandler.UpdateLine)
				s.Delete("/lines/{lineID}", cartHandler.RemoveLine)
				s.Put("/delivery", cartHandler.SetDelivery)
				s.With(
					authMiddleware.RequireAuth,
					checkoutLimit.Middleware,
					idem.Middleware,
					auditRecorder.Middleware(audit.HTTPConfig{Action: "order.checkout", ResourceType: "cart", ResourceIDParam: "session"}),
				).Post("/checkout", checkoutHandler.Checkout)
			})
		})

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)
			authR.Get("/orders", orderHandler.List)
			authR.Get("/orders/{id}", orderHandler.Get)
			authR.With(
				authMiddleware.RequireAdmin,
				auditRecorder.Middleware(audit.HTTPConfig{Action: "order.status", ResourceType: "order", ResourceIDParam: "id"}),
			).Patch("/orders/{id}/status", orderHandler.PatchStatus)
			authR.Get("/me/profile", profileHandler.Get)
			authR.Put("/me/profile", profileHandler.Update)

			authR.Route("/admin/analytics", func(admin chi.Router) {
				admin.Use(authMiddleware.RequireAdmin)
				admin.Get("/sales", analyticsHandler.Sales)
				admin.Get("/top-items", analyticsHandler.TopItems)
			})
			authR.With(authMiddleware.RequireAdmin).Get("/admin/audit-logs", auditHandler.List)

			authR.Route("/admin/catalog", func(admin chi.Router) {
				admin.Use(authMiddleware.RequireAdmin)
				admin.Use(auditRecorder.Middleware(audit.HTTPConfig{ResourceType: "catalog", ResourceIDParam: "id"}))
				admin.Put("/ingredients/{id}", catalogAdmin.PutIngredient)
				admin.Put("/pizzas/{id}", catalogAdmin.PutPizza)
				admin.Put("/drinks/{id}", catalogAdmin.PutDrink)
				admin.Delete("/{kind}/{id}", catalogAdmin.Delete)
			})
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           otelhttp.NewHandler(r, cfg.Obs.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		logger.Info().Msg("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Name).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics bool) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
