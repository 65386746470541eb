package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

func TestCSRFMiddlewareBlocksMissingToken(t *testing.T) {
	handler := CSRF{SessionHeader: "X-Session-ID"}.Middleware(okHandler(http.StatusOK))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	req.AddCookie(&http.Cookie{Name: "sf_session", Value: "abc"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCSRFMiddlewareAllowsValidToken(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler(http.StatusOK))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	req.Header.Set("X-CSRF-Token", "secure-token")
	req.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "secure-token"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestCSRFMiddlewareRejectsMismatch(t *testing.T) {
	handler := CSRF{}.Middleware(okHandler(http.StatusOK))
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil)
	req.Header.Set("X-CSRF-Token", "one")
	req.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "two"})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCSRFMiddlewareSkipsHeaderIdentifiedRequests(t *testing.T) {
	handler := CSRF{SessionHeader: "X-Session-ID"}.Middleware(okHandler(http.StatusAccepted))

	bearer := httptest.NewRequest(http.MethodPost, "/api/v1/wishlist", nil)
	bearer.Header.Set("Authorization", "Bearer abc.def")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, bearer)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for bearer request, got %d", rr.Code)
	}

	session := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
	session.Header.Set("X-Session-ID", "abc")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, session)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for session header request, got %d", rr.Code)
	}
}
