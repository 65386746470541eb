package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/session"
)

// SignInPath is where shoppers are sent when the backend needs them to sign in.
const SignInPath = "/signin"

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Verifier *Verifier
	Sessions session.Store
}

// Authenticate attaches the bearer token and user id to the request context when present.
// The Authorization header takes precedence over the token stored on the session.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(m.attach(r)))
	})
}

// RequireAuth rejects requests without a usable token with a sign-in redirect.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := common.Token(ctx); !ok {
			ctx = m.attach(r)
		}
		if _, ok := common.Token(ctx); !ok {
			WriteSignInRequired(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WriteSignInRequired renders the 401 answer that tells the client to sign in.
func WriteSignInRequired(w http.ResponseWriter) {
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required", map[string]string{"redirect": SignInPath})
}

func (m Middleware) attach(r *http.Request) context.Context {
	ctx := r.Context()
	token := common.BearerToken(r)
	if token == "" {
		token = m.sessionToken(ctx)
	}
	if token == "" {
		return ctx
	}
	if m.Verifier == nil {
		return common.WithToken(ctx, token)
	}
	userID, err := m.Verifier.Verify(token)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("token_rejected")
		return ctx
	}
	return common.WithUserID(common.WithToken(ctx, token), userID)
}

func (m Middleware) sessionToken(ctx context.Context) string {
	sid, ok := common.SessionID(ctx)
	if !ok || m.Sessions == nil {
		return ""
	}
	token, _, err := m.Sessions.Get(ctx, sid, session.KeyToken)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("session_token_read_failed")
		return ""
	}
	return token
}
