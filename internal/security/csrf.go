package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/restrobazaar/storefront/internal/common"
)

// CSRF protects cookie-identified sessions with the double-submit technique.
// Requests that identify themselves by header (bearer token or explicit
// session header) are not exposed to cross-site forgery and pass through.
type CSRF struct {
	Header        string
	SessionHeader string
}

// Middleware enforces that unsafe requests echo the CSRF cookie in a header.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	headerName := strings.TrimSpace(c.Header)
	if headerName == "" {
		headerName = "X-CSRF-Token"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		if common.BearerToken(r) != "" {
			next.ServeHTTP(w, r)
			return
		}
		if c.SessionHeader != "" && strings.TrimSpace(r.Header.Get(c.SessionHeader)) != "" {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		cookie, err := r.Cookie(headerName)
		if token == "" || err != nil || strings.TrimSpace(cookie.Value) == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_MISSING", "missing csrf token", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			common.JSONError(w, http.StatusForbidden, "CSRF_INVALID", "invalid csrf token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
