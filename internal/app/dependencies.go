package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/restrobazaar/storefront/internal/auth"
	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/cart"
	"github.com/restrobazaar/storefront/internal/catalog"
	"github.com/restrobazaar/storefront/internal/config"
	"github.com/restrobazaar/storefront/internal/db/migrations"
	"github.com/restrobazaar/storefront/internal/events"
	"github.com/restrobazaar/storefront/internal/health"
	"github.com/restrobazaar/storefront/internal/lock"
	"github.com/restrobazaar/storefront/internal/obs"
	"github.com/restrobazaar/storefront/internal/ratelimit"
	"github.com/restrobazaar/storefront/internal/resilience"
	"github.com/restrobazaar/storefront/internal/session"
	"github.com/restrobazaar/storefront/internal/wishlist"
)

// Dependencies holds the shared clients and services of the storefront API.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger

	Redis      *redis.Client
	DB         *pgxpool.Pool
	TaskClient *asynq.Client
	Backend    *backend.Client
	Sessions   *session.RedisStore
	Limiter    ratelimit.Limiter
	Verifier   *auth.Verifier

	Catalog  *catalog.Service
	Cart     *cart.Service
	Wishlist *wishlist.Service
	Events   *events.Bus

	closers []func() error
}

// NewRedis connects to redisURL with tracing and metrics instrumentation.
func NewRedis(ctx context.Context, redisURL string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewPool opens the Postgres pool used for cart snapshots and events.
func NewPool(ctx context.Context, databaseURL, applicationName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewBackend builds the resilient RestroBazaar client.
func NewBackend(cfg *config.Config, logger zerolog.Logger) *backend.Client {
	breakerLogger := logger.With().Str("component", "breaker").Logger()
	return backend.New(cfg.BackendBaseURL, resilience.HTTPClient{
		Client:      backend.NewHTTPClient(cfg.BackendTimeout),
		Breaker:     resilience.NewBreaker(resilience.BreakerConfig{Target: "backend", MinRequests: cfg.BackendBreakerMin, OpenFor: cfg.BackendBreakerOpen, Logger: &breakerLogger}),
		Target:      "backend",
		MaxAttempts: cfg.BackendMaxAttempts,
		BaseBackoff: 100 * time.Millisecond,
		Jitter:      0.2,
		Timeout:     cfg.BackendTimeout,
	})
}

// New connects every dependency named by cfg and assembles the services.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Logger: logger}

	rdb, err := NewRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		return nil, err
	}
	d.Redis = rdb
	d.closers = append(d.closers, rdb.Close)

	if cfg.UsesPostgres() {
		if cfg.AutoMigrate {
			if err := migrations.Up(cfg.DatabaseURL); err != nil {
				d.Close()
				return nil, err
			}
			logger.Info().Msg("migrations_applied")
		}
		pool, err := NewPool(ctx, cfg.DatabaseURL, cfg.TracingService)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.DB = pool
		d.closers = append(d.closers, func() error { pool.Close(); return nil })
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("parse asynq redis uri: %w", err)
	}
	d.TaskClient = asynq.NewClient(redisOpt)
	d.closers = append(d.closers, d.TaskClient.Close)

	d.Limiter, err = newLimiter(cfg, rdb)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.Backend = NewBackend(cfg, logger)
	d.Sessions = session.NewRedisStore(rdb, "session:", cfg.SessionTTL)
	d.Verifier = auth.NewVerifier(auth.VerifierConfig{Secret: cfg.AuthJWTSecret, Issuer: cfg.AuthJWTIssuer, Audience: cfg.AuthJWTAudience})

	d.Catalog, err = catalog.NewService(catalog.ServiceConfig{
		Source: d.Backend,
		Cache:  catalog.NewCache(rdb, cfg.CatalogCacheTTL),
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	d.Events = &events.Bus{
		Notifiers: []events.Notifier{events.MirrorNotifier{Client: d.TaskClient, Queue: cfg.CartMirrorQueue}},
	}
	var persister cart.Persister = cart.SessionPersister{Sessions: d.Sessions}
	if d.DB != nil {
		d.Events.Store = events.PostgresStore{DB: d.DB}
		if cfg.CartStore == config.CartStorePostgres {
			persister = cart.PostgresPersister{DB: d.DB}
		}
	}
	d.Cart, err = cart.NewService(cart.ServiceConfig{
		Store:     cart.NewStore(persister),
		Catalog:   d.Catalog,
		Locker:    lock.Locker{R: rdb, Prefix: "lock:", TTL: cfg.CartLockTTL, MaxWait: cfg.CartLockTTL},
		Publisher: d.Events,
		Policy:    cfg.CartTierPolicy,
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	d.Wishlist = wishlist.NewService(d.Backend, d.Sessions)
	return d, nil
}

func newLimiter(cfg *config.Config, rdb *redis.Client) (ratelimit.Limiter, error) {
	switch cfg.RateLimitStrategy {
	case config.RateLimitFixed:
		store, err := ratelimit.NewRedisStore(rdb, "ratelimit:fixed")
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
		return ratelimit.NewFixedWindow(store, cfg.RateLimitWindow, cfg.RateLimitMax), nil
	case config.RateLimitOff:
		return nil, nil
	default:
		return ratelimit.SlidingWindow{Client: rdb, Prefix: "ratelimit:", Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax}, nil
	}
}

// Probes returns the readiness checks of the connected dependencies.
func (d *Dependencies) Probes() map[string]health.Probe {
	probes := map[string]health.Probe{}
	if d.Redis != nil {
		probes["redis"] = func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() }
	}
	if d.Backend != nil {
		probes["backend"] = d.Backend.Ping
	}
	if d.DB != nil {
		probes["postgres"] = d.DB.Ping
	}
	return probes
}

// Close releases every connection in reverse order of creation.
func (d *Dependencies) Close() error {
	var joined error
	for i := len(d.closers) - 1; i >= 0; i-- {
		joined = errors.Join(joined, d.closers[i]())
	}
	d.closers = nil
	return joined
}
