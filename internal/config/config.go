package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-pizza/internal/delivery"
	"github.com/noah-isme/backend-pizza/internal/money"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	AccessCookie       string
	CORSAllowedOrigins []string

	CartStoreKey         string
	CartTTL              time.Duration
	CartIdleEvict        time.Duration
	CatalogCacheTTL      time.Duration
	CatalogWatchInterval time.Duration
	MaxToppings          int

	Store    StoreConfig
	Geocoder GeocoderConfig

	CheckoutLockTTL   time.Duration
	CheckoutRateLimit string
	IdempotencyTTL    time.Duration

	AnalyticsCacheTTL  time.Duration
	AnalyticsRangeDays int

	AuditEnabled      bool
	AuditSamplingRate float64

	TrackingWebhookSecret string
	TrackingReplayTTL     time.Duration

	EmailNotifyEnabled bool

	QueueConcurrency  int
	QueueName         string
	WorkerMetricsAddr string

	Obs ObsConfig
}

// StoreConfig is the single source of the store's location and delivery
// pricing.
type StoreConfig struct {
	Name      string
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	BaseFee   money.Money
	PerKmFee  money.Money
	Currency  string
}

// Schedule converts the store settings into delivery parameters.
func (s StoreConfig) Schedule() delivery.Schedule {
	return delivery.Schedule{
		Origin:   delivery.Location{Lat: s.Latitude, Lng: s.Longitude},
		RadiusKm: s.RadiusKm,
		BaseFee:  s.BaseFee,
		PerKmFee: s.PerKmFee,
	}
}

// GeocoderConfig points at the geocoding endpoint. An empty URL disables
// geocoding; addresses must then carry coordinates.
type GeocoderConfig struct {
	URL         string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
}

// ObsConfig groups logging, metrics and tracing settings.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsBuckets   string
	TracingExporter  string
	TracingEndpoint  string
	TracingSample    float64
	ServiceName      string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var errs []error
	decimal := func(key, fallback string) money.Money {
		v, err := money.Parse(valueOrDefault(k.String(key), fallback))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return money.MustParse(fallback)
		}
		return v
	}
	float := func(key string, fallback float64) float64 {
		raw := strings.TrimSpace(k.String(key))
		if raw == "" {
			return fallback
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}
		return v
	}

	boolean := func(key string, fallback bool) bool {
		raw := strings.TrimSpace(k.String(key))
		if raw == "" {
			return fallback
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return fallback
		}
		return v
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:        strings.TrimSpace(k.String("JWT_AUDIENCE")),
		AccessCookie:       valueOrDefault(k.String("ACCESS_COOKIE_NAME"), "access_token"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		CartStoreKey:         valueOrDefault(k.String("CART_STORE_KEY"), "shopping-cart"),
		CartTTL:              parseDuration(k.String("CART_TTL"), "168h"),
		CartIdleEvict:        parseDuration(k.String("CART_IDLE_EVICT"), "30m"),
		CatalogCacheTTL:      parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogWatchInterval: parseDuration(k.String("CATALOG_WATCH_INTERVAL"), "1m"),
		MaxToppings:          parseInt(k.String("PIZZA_MAX_TOPPINGS"), 10),

		Store: StoreConfig{
			Name:      valueOrDefault(k.String("STORE_NAME"), "Pizza Store"),
			Latitude:  float("STORE_LATITUDE", 4.6097),
			Longitude: float("STORE_LONGITUDE", -74.0817),
			RadiusKm:  float("STORE_DELIVERY_RADIUS_KM", 10),
			BaseFee:   decimal("STORE_BASE_DELIVERY_FEE", "2.00"),
			PerKmFee:  decimal("STORE_PER_KM_FEE", "0.50"),
			Currency:  strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "USD")),
		},
		Geocoder: GeocoderConfig{
			URL:         strings.TrimSpace(k.String("GEOCODER_URL")),
			APIKey:      k.String("GEOCODER_API_KEY"),
			Timeout:     parseDuration(k.String("GEOCODER_TIMEOUT"), "5s"),
			MaxAttempts: parseInt(k.String("GEOCODER_MAX_ATTEMPTS"), 3),
		},

		CheckoutLockTTL:   parseDuration(k.String("CHECKOUT_LOCK_TTL"), "30s"),
		CheckoutRateLimit: valueOrDefault(k.String("CHECKOUT_RATE_LIMIT"), "10-M"),
		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		AnalyticsCacheTTL:  parseDuration(k.String("ANALYTICS_CACHE_TTL"), "5m"),
		AnalyticsRangeDays: parseInt(k.String("ANALYTICS_DEFAULT_RANGE_DAYS"), 30),

		AuditEnabled:      boolean("AUDIT_ENABLED", true),
		AuditSamplingRate: float("AUDIT_SAMPLING_RATE", 1),

		TrackingWebhookSecret: strings.TrimSpace(k.String("TRACKING_WEBHOOK_SECRET")),
		TrackingReplayTTL:     parseDuration(k.String("TRACKING_REPLAY_TTL"), "24h"),

		EmailNotifyEnabled: boolean("NOTIFY_EMAIL_ENABLED", true),

		QueueConcurrency:  parseInt(k.String("QUEUE_CONCURRENCY"), 5),
		QueueName:         valueOrDefault(k.String("QUEUE_NAME"), "kitchen"),
		WorkerMetricsAddr: valueOrDefault(k.String("WORKER_METRICS_ADDR"), ":9091"),

		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "pizza"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "none"),
			TracingEndpoint:  k.String("OBS_TRACING_ENDPOINT"),
			TracingSample:    float("OBS_TRACING_SAMPLE_RATIO", 1),
			ServiceName:      valueOrDefault(k.String("OBS_SERVICE_NAME"), "backend-pizza"),
		},
	}

	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if cfg.Store.RadiusKm <= 0 {
		errs = append(errs, errors.New("STORE_DELIVERY_RADIUS_KM must be positive"))
	}
	if cfg.Store.BaseFee.IsNegative() || cfg.Store.PerKmFee.IsNegative() {
		errs = append(errs, errors.New("delivery fees must not be negative"))
	}
	if cfg.MaxToppings <= 0 {
		errs = append(errs, errors.New("PIZZA_MAX_TOPPINGS must be positive"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

// CookieSameSite is the SameSite mode applied to the access cookie.
func (c *Config) CookieSameSite() http.SameSite {
	if c.IsProduction() {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
