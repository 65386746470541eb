package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/restrobazaar/storefront/internal/auth"
	"github.com/restrobazaar/storefront/internal/cart"
	"github.com/restrobazaar/storefront/internal/catalog"
	"github.com/restrobazaar/storefront/internal/city"
	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/health"
	"github.com/restrobazaar/storefront/internal/obs"
	"github.com/restrobazaar/storefront/internal/ratelimit"
	"github.com/restrobazaar/storefront/internal/security"
	"github.com/restrobazaar/storefront/internal/session"
	"github.com/restrobazaar/storefront/internal/wishlist"
)

// NewRouter mounts the storefront API on a chi router. metrics may be nil.
func NewRouter(d *Dependencies, metrics *obs.HTTPMetrics) http.Handler {
	cfg := d.Config

	resolver := session.NewResolver(cfg.SessionHeader, cfg.SessionCookie, cfg.SessionTTL)
	resolver.Domain = cfg.CookieDomain
	resolver.Secure = cfg.CookieSecure
	resolver.SameSite = cfg.CookieSameSite

	authMiddleware := auth.Middleware{Verifier: d.Verifier, Sessions: d.Sessions}
	fail := auth.Responder{Sessions: d.Sessions}.Fail

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: d.Catalog, Sessions: d.Sessions, Fail: fail})
	cityHandler := city.NewHandler(city.HandlerConfig{Directory: d.Catalog, Sessions: d.Sessions, Fail: fail})
	cartHandler := cart.NewHandler(d.Cart, fail)
	wishlistHandler := wishlist.NewHandler(d.Wishlist, fail)
	authHandler := auth.NewHandler(auth.HandlerConfig{
		Verifier: d.Verifier,
		Sessions: d.Sessions,
		OnSignIn: []auth.SignInHook{d.Wishlist.ReplayPending},
	})

	limiter := ratelimit.Handler{
		Limiter: d.Limiter,
		Key:     ratelimit.ByClientIP,
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("rate_limit_unavailable") },
	}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}
	healthHandler := health.Handler{Probes: d.Probes()}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.TracingMiddleware)
	if metrics != nil {
		r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.EnableHSTS}.Middleware)
	r.Use(security.CORS(cfg.CORSAllowedOrigins, resolver.HeaderName))

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)
	if metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.Use(resolver.Middleware)
		v.Use(authMiddleware.Authenticate)
		v.Use(limiter.Middleware)
		v.Use(security.CSRF{SessionHeader: resolver.HeaderName}.Middleware)

		v.Get("/categories", catalogHandler.Categories)
		v.Get("/cities", cityHandler.List)
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.Product)
		v.Get("/products/{id}/quote", catalogHandler.Quote)

		v.Route("/session", func(s chi.Router) {
			s.Get("/city", cityHandler.Selected)
			s.Put("/city", cityHandler.Select)
			s.Put("/token", authHandler.PutToken)
			s.Delete("/token", authHandler.DeleteToken)
		})

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.With(idem.Middleware).Post("/items", cartHandler.Add)
			c.Put("/items/{vendorProductId}", cartHandler.SetQuantity)
			c.Delete("/items/{lineKey}", cartHandler.Remove)
		})

		v.Route("/wishlist", func(wl chi.Router) {
			wl.With(authMiddleware.RequireAuth).Get("/", wishlistHandler.List)
			wl.Post("/", wishlistHandler.Add)
			wl.With(authMiddleware.RequireAuth).Delete("/{productId}", wishlistHandler.Remove)
		})
	})
	return r
}
