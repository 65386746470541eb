package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/restrobazaar/storefront/internal/session"
)

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	handler := Handler{
		Limiter: SlidingWindow{Client: client, Prefix: "ratelimit:", Window: time.Minute, Max: 1},
		Key:     ByClientIP,
	}
	resolver := session.NewResolver("", "", time.Hour)
	counted := resolver.Middleware(handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	send := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, req)
		return rr
	}

	rr1 := send("203.0.113.7:4100")
	if rr1.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rr1.Code)
	}

	// Each cookieless request gets a fresh session id but shares the caller address.
	for i := 0; i < 4; i++ {
		rr := send("203.0.113.7:4100")
		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("request %d: expected 429, got %d", i+2, rr.Code)
		}
		if rr.Header().Get("X-Session-ID") == rr1.Header().Get("X-Session-ID") {
			t.Fatal("expected a new session per cookieless request")
		}
		if rr.Header().Get("X-RateLimit-Limit") != "1" {
			t.Fatalf("unexpected limit header: %q", rr.Header().Get("X-RateLimit-Limit"))
		}
		if rr.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header")
		}
	}

	if rr := send("198.51.100.4:4100"); rr.Code != http.StatusOK {
		t.Fatalf("expected another caller to be unaffected, got %d", rr.Code)
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("store down")
}

func TestHandlerMiddlewareFailsOpen(t *testing.T) {
	called := false
	handler := Handler{
		Limiter: failingLimiter{},
		Key:     ByClientIP,
		OnError: func(error) { called = true },
	}
	counted := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	counted.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected handler to proceed on error, got %d", rr.Code)
	}
	if !called {
		t.Fatal("expected OnError callback to be invoked")
	}
}
