package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/session"
)

// Responder renders handler errors. A backend 401 also signs the session out.
type Responder struct {
	Sessions session.Store
}

// Fail writes err to w.
func (rs Responder) Fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, backend.ErrUnauthorized) {
		rs.signOut(r.Context())
		WriteSignInRequired(w)
		return
	}
	appErr := backend.AsAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", appErr.Code).Msg("request_failed")
	}
	common.WriteError(w, appErr)
}

func (rs Responder) signOut(ctx context.Context) {
	sid, ok := common.SessionID(ctx)
	if !ok || rs.Sessions == nil {
		return
	}
	if err := rs.Sessions.Delete(context.WithoutCancel(ctx), sid, session.KeyToken); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("session_token_clear_failed")
		return
	}
	zerolog.Ctx(ctx).Info().Msg("session_signed_out_after_backend_401")
}
