package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PriceQuotesTotal counts price resolutions by price type and outcome (priced, on_request).
	PriceQuotesTotal *prometheus.CounterVec
	// CartMutationsTotal counts cart store dispatches by action and result.
	CartMutationsTotal *prometheus.CounterVec
	// CartTierSplitsTotal counts adds that left a product on more than one price tier line.
	CartTierSplitsTotal prometheus.Counter
	// BackendRequestsTotal counts calls to the RestroBazaar backend by endpoint and status class.
	BackendRequestsTotal *prometheus.CounterVec
	// BackendRequestDuration records backend latency in milliseconds.
	BackendRequestDuration *prometheus.HistogramVec
	// CartMirrorTasksTotal counts server-cart mirror tasks by operation and result.
	CartMirrorTasksTotal *prometheus.CounterVec
	// SessionsCreatedTotal counts newly minted storefront sessions.
	SessionsCreatedTotal prometheus.Counter
	// CatalogCacheTotal counts catalog cache lookups by result (hit, miss, error).
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers storefront collectors.
// Only the first call has an effect.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PriceQuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_quotes_total",
			Help:      "Price resolutions by price type and outcome.",
		}, []string{"price_type", "outcome"})
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart store dispatches by action and result.",
		}, []string{"action", "result"})
		CartTierSplitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_tier_splits_total",
			Help:      "Cart writes that left one vendor product on several price-tier lines.",
		})
		BackendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests sent to the RestroBazaar backend.",
		}, []string{"method", "endpoint", "status"})
		BackendRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_ms",
			Help:      "Backend request latency in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "endpoint"})
		CartMirrorTasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mirror_tasks_total",
			Help:      "Server-side cart mirror tasks by operation and result.",
		}, []string{"op", "result"})
		SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Storefront sessions minted.",
		})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Catalog cache lookups by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, PriceQuotesTotal, func(c prometheus.Collector) { PriceQuotesTotal = c.(*prometheus.CounterVec) })
		mustRegisterCollector(reg, CartMutationsTotal, func(c prometheus.Collector) { CartMutationsTotal = c.(*prometheus.CounterVec) })
		mustRegisterCollector(reg, CartTierSplitsTotal, func(c prometheus.Collector) { CartTierSplitsTotal = c.(prometheus.Counter) })
		mustRegisterCollector(reg, BackendRequestsTotal, func(c prometheus.Collector) { BackendRequestsTotal = c.(*prometheus.CounterVec) })
		mustRegisterCollector(reg, BackendRequestDuration, func(c prometheus.Collector) { BackendRequestDuration = c.(*prometheus.HistogramVec) })
		mustRegisterCollector(reg, CartMirrorTasksTotal, func(c prometheus.Collector) { CartMirrorTasksTotal = c.(*prometheus.CounterVec) })
		mustRegisterCollector(reg, SessionsCreatedTotal, func(c prometheus.Collector) { SessionsCreatedTotal = c.(prometheus.Counter) })
		mustRegisterCollector(reg, CatalogCacheTotal, func(c prometheus.Collector) { CatalogCacheTotal = c.(*prometheus.CounterVec) })
	})
}

// CountQuote records a price resolution outcome when domain metrics are registered.
func CountQuote(priceType string, available bool) {
	if PriceQuotesTotal == nil {
		return
	}
	outcome := "priced"
	if !available {
		outcome = "on_request"
	}
	PriceQuotesTotal.WithLabelValues(priceType, outcome).Inc()
}

// CountCartMutation records a cart dispatch when domain metrics are registered.
func CountCartMutation(action string, err error) {
	if CartMutationsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	CartMutationsTotal.WithLabelValues(action, result).Inc()
}

// CountCacheLookup records a catalog cache lookup when domain metrics are registered.
func CountCacheLookup(result string) {
	if CatalogCacheTotal != nil {
		CatalogCacheTotal.WithLabelValues(result).Inc()
	}
}
