package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/cart"
	"github.com/restrobazaar/storefront/internal/catalog"
	"github.com/restrobazaar/storefront/internal/config"
	"github.com/restrobazaar/storefront/internal/events"
	"github.com/restrobazaar/storefront/internal/lock"
	"github.com/restrobazaar/storefront/internal/resilience"
	"github.com/restrobazaar/storefront/internal/session"
	"github.com/restrobazaar/storefront/internal/wishlist"
)

const fakeProduct = `{"_id":"vp1","productName":"Kraft Box","priceType":"bulk","pricing":{"bulk":[{"minQty":5,"price":100},{"minQty":10,"price":90}]},"gstOrTaxPercent":18,"minimumOrderQuantity":5,"availableStock":40}`

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/products/vp1":
			_, _ = w.Write([]byte(`{"success":true,"data":` + fakeProduct + `}`))
		case r.URL.Path == "/categories":
			_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
		case strings.HasPrefix(r.URL.Path, "/wishlist"):
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"jwt expired"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"not found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testDependencies(t *testing.T) *Dependencies {
	t.Helper()
	cfg, err := config.LoadForTests(map[string]string{
		"BACKEND_BASE_URL":    "http://backend.invalid",
		"REDIS_URL":           "redis://localhost:6379/0",
		"RATE_LIMIT_STRATEGY": "off",
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv := fakeBackend(t)
	client := backend.New(srv.URL, resilience.HTTPClient{Client: srv.Client(), Timeout: time.Second})
	sessions := session.NewRedisStore(rdb, "session:", time.Hour)

	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{Source: client, Cache: catalog.NewCache(rdb, time.Minute)})
	require.NoError(t, err)
	cartSvc, err := cart.NewService(cart.ServiceConfig{
		Store:     cart.NewStore(cart.SessionPersister{Sessions: sessions}),
		Catalog:   catalogSvc,
		Locker:    lock.Locker{R: rdb, Prefix: "lock:", TTL: time.Second, MaxWait: time.Second},
		Publisher: &events.Bus{},
		Policy:    cfg.CartTierPolicy,
	})
	require.NoError(t, err)

	return &Dependencies{
		Config:   cfg,
		Logger:   zerolog.Nop(),
		Redis:    rdb,
		Backend:  client,
		Sessions: sessions,
		Catalog:  catalogSvc,
		Cart:     cartSvc,
		Wishlist: wishlist.NewService(client, sessions),
		Events:   &events.Bus{},
	}
}

func TestRouterCartFlow(t *testing.T) {
	router := NewRouter(testDependencies(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/vp1/quote?qty=12", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	sid := rr.Header().Get("X-Session-ID")
	require.NotEmpty(t, sid)

	var quote struct {
		Data struct {
			Quantity int `json:"quantity"`
			Display  struct {
				UnitPrice string `json:"unitPrice"`
			} `json:"display"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &quote))
	require.Equal(t, 10, quote.Data.Quantity)
	require.Equal(t, "₹90.00", quote.Data.Display.UnitPrice)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":"vp1","quantity":10}`))
	req.Header.Set("X-Session-ID", sid)
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("X-Session-ID", sid)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var view struct {
		Data cart.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Len(t, view.Data.Lines, 1)
	require.Equal(t, "vp1|bulk|90", view.Data.Lines[0].Key)
	require.Equal(t, "₹1,062.00", view.Data.SummaryDisplay.Total)
}

func TestRouterCookieWritesNeedCSRF(t *testing.T) {
	router := NewRouter(testDependencies(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"productId":"vp1"}`))
	req.AddCookie(&http.Cookie{Name: "sf_session", Value: "6f1c7c55-8a4b-4c1e-9b59-52a3c1f0b9c1"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRouterWishlistRequiresSignIn(t *testing.T) {
	router := NewRouter(testDependencies(t), nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "/signin")
}

func TestRouterHealth(t *testing.T) {
	router := NewRouter(testDependencies(t), nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}
