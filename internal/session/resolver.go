package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/obs"
)

// Resolver identifies the storefront session of a request, minting one when absent.
type Resolver struct {
	HeaderName string
	CookieName string
	Domain     string
	Secure     bool
	SameSite   http.SameSite
	TTL        time.Duration
}

// NewResolver returns a resolver with the given header and cookie names.
// Empty names default to "X-Session-ID" and "sf_session".
func NewResolver(headerName, cookieName string, ttl time.Duration) *Resolver {
	if headerName == "" {
		headerName = "X-Session-ID"
	}
	if cookieName == "" {
		cookieName = "sf_session"
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Resolver{HeaderName: headerName, CookieName: cookieName, SameSite: http.SameSiteLaxMode, TTL: ttl}
}

// Middleware resolves the session and injects its id into the context passed downstream.
// New sessions are announced through both the cookie and the response header.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := r.Resolve(req)
		if id == "" {
			id = uuid.NewString()
			r.issue(w, id)
			if obs.SessionsCreatedTotal != nil {
				obs.SessionsCreatedTotal.Inc()
			}
		}
		w.Header().Set(r.HeaderName, id)
		next.ServeHTTP(w, req.WithContext(common.WithSessionID(req.Context(), id)))
	})
}

// Resolve returns the session id carried by the request header or cookie.
// Values that are not UUIDs are ignored so clients cannot choose arbitrary Redis keys.
func (r *Resolver) Resolve(req *http.Request) string {
	if r == nil || req == nil {
		return ""
	}
	if id := normalizeID(req.Header.Get(r.HeaderName)); id != "" {
		return id
	}
	if c, err := req.Cookie(r.CookieName); err == nil {
		return normalizeID(c.Value)
	}
	return ""
}

func (r *Resolver) issue(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     r.CookieName,
		Value:    id,
		Path:     "/",
		Domain:   r.Domain,
		MaxAge:   int(r.TTL / time.Second),
		HttpOnly: true,
		Secure:   r.Secure,
		SameSite: r.SameSite,
	})
}

func normalizeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return ""
	}
	return id.String()
}
