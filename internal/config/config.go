package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Cart storage backends.
const (
	CartStoreSession  = "session"
	CartStorePostgres = "postgres"
)

// Tier policies for selector changes that cross a bulk price boundary.
const (
	TierPolicySplit     = "split"
	TierPolicyReconcile = "reconcile"
)

// Rate limit strategies.
const (
	RateLimitSliding = "sliding"
	RateLimitFixed   = "fixed"
	RateLimitOff     = "off"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv string
	Port   string

	BackendBaseURL     string
	BackendTimeout     time.Duration
	BackendMaxAttempts int
	BackendBreakerMin  int
	BackendBreakerOpen time.Duration

	RedisURL    string
	DatabaseURL string
	AutoMigrate bool

	CartStore       string
	CartTierPolicy  string
	CartLockTTL     time.Duration
	CartMirrorQueue string

	SessionHeader   string
	SessionCookie   string
	SessionTTL      time.Duration
	CookieDomain    string
	CookieSecure    bool
	CookieSameSite  http.SameSite
	AuthJWTSecret   string
	AuthJWTIssuer   string
	AuthJWTAudience string

	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	RateLimitStrategy string
	RateLimitWindow   time.Duration
	RateLimitMax      int

	CORSAllowedOrigins []string
	BodyLimitBytes     int64
	SecurityHeaders    bool
	EnableHSTS         bool

	WorkerConcurrency int

	LogFormat         string
	LogLevel          string
	MetricsNamespace  string
	MetricsBuckets    string
	TracingExporter   string
	TracingEndpoint   string
	TracingSampling   float64
	TracingService    string
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv: valueOrDefault(k.String("APP_ENV"), "development"),
		Port:   valueOrDefault(k.String("PORT"), "8080"),

		BackendBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("BACKEND_BASE_URL")), "/"),
		BackendTimeout:     parseDuration(k.String("BACKEND_TIMEOUT"), "5s"),
		BackendMaxAttempts: parseInt(k.String("BACKEND_MAX_ATTEMPTS"), 3),
		BackendBreakerMin:  parseInt(k.String("BACKEND_BREAKER_MIN_REQUESTS"), 10),
		BackendBreakerOpen: parseDuration(k.String("BACKEND_BREAKER_OPEN_FOR"), "30s"),

		RedisURL:    k.String("REDIS_URL"),
		DatabaseURL: k.String("DATABASE_URL"),
		AutoMigrate: parseBool(valueOrDefault(k.String("AUTO_MIGRATE"), "true")),

		CartStore:       strings.ToLower(valueOrDefault(k.String("CART_STORE"), CartStoreSession)),
		CartTierPolicy:  strings.ToLower(valueOrDefault(k.String("CART_TIER_POLICY"), TierPolicySplit)),
		CartLockTTL:     parseDuration(k.String("CART_LOCK_TTL"), "5s"),
		CartMirrorQueue: valueOrDefault(k.String("CART_MIRROR_QUEUE"), "cart"),

		SessionHeader:   valueOrDefault(k.String("SESSION_HEADER"), "X-Session-ID"),
		SessionCookie:   valueOrDefault(k.String("SESSION_COOKIE"), "sf_session"),
		SessionTTL:      parseDuration(k.String("SESSION_TTL"), "720h"),
		CookieDomain:    strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:    parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite:  parseSameSite(k.String("COOKIE_SAMESITE")),
		AuthJWTSecret:   k.String("AUTH_JWT_SECRET"),
		AuthJWTIssuer:   strings.TrimSpace(k.String("AUTH_JWT_ISSUER")),
		AuthJWTAudience: strings.TrimSpace(k.String("AUTH_JWT_AUDIENCE")),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "60s"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),

		RateLimitStrategy: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_STRATEGY"), RateLimitSliding)),
		RateLimitWindow:   parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:      parseInt(k.String("RATE_LIMIT_MAX"), 120),

		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64*1024)),
		SecurityHeaders:    parseBool(valueOrDefault(k.String("SECURITY_HEADERS"), "true")),
		EnableHSTS:         parseBool(k.String("ENABLE_HSTS")),

		WorkerConcurrency: parseInt(k.String("WORKER_CONCURRENCY"), 10),

		LogFormat:         valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:          valueOrDefault(k.String("LOG_LEVEL"), "info"),
		MetricsNamespace:  valueOrDefault(k.String("METRICS_NAMESPACE"), "storefront"),
		MetricsBuckets:    k.String("METRICS_BUCKETS_MS"),
		TracingExporter:   valueOrDefault(k.String("OTEL_TRACES_EXPORTER"), "none"),
		TracingEndpoint:   k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingSampling:   parseFloat(k.String("OTEL_TRACES_SAMPLER_RATIO"), 1),
		TracingService:    valueOrDefault(k.String("OTEL_SERVICE_NAME"), "storefront-api"),
		ShutdownTimeout:   parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		ReadHeaderTimeout: parseDuration(k.String("READ_HEADER_TIMEOUT"), "5s"),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BackendBaseURL == "" {
		return errors.New("BACKEND_BASE_URL is required")
	}
	if u, err := url.Parse(c.BackendBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute URL, got %q", c.BackendBaseURL)
	}
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	switch c.CartStore {
	case CartStoreSession:
	case CartStorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when CART_STORE=postgres")
		}
	default:
		return fmt.Errorf("CART_STORE must be %q or %q, got %q", CartStoreSession, CartStorePostgres, c.CartStore)
	}
	switch c.CartTierPolicy {
	case TierPolicySplit, TierPolicyReconcile:
	default:
		return fmt.Errorf("CART_TIER_POLICY must be %q or %q, got %q", TierPolicySplit, TierPolicyReconcile, c.CartTierPolicy)
	}
	switch c.RateLimitStrategy {
	case RateLimitSliding, RateLimitFixed, RateLimitOff:
	default:
		return fmt.Errorf("RATE_LIMIT_STRATEGY must be sliding, fixed or off, got %q", c.RateLimitStrategy)
	}
	return nil
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

// UsesPostgres reports whether any component needs the database pool.
func (c *Config) UsesPostgres() bool {
	return c.DatabaseURL != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
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
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error.
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
	var errs []error
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %w", errors.Join(errs...))
	}
	return nil
}
