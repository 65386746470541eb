package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/session"
)

// SignInHook runs after a token has been stored. ctx carries the new token.
type SignInHook func(ctx context.Context, sessionID string) error

// Handler stores and clears the backend token of a session.
type Handler struct {
	verifier *Verifier
	sessions session.Store
	hooks    []SignInHook
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Verifier *Verifier
	Sessions session.Store
	OnSignIn []SignInHook
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{verifier: cfg.Verifier, sessions: cfg.Sessions, hooks: cfg.OnSignIn}
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type tokenResponse struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
}

// PutToken handles PUT /api/v1/session/token.
func (h *Handler) PutToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	sid, ok := common.SessionID(r.Context())
	if !ok {
		common.WriteError(w, session.ErrNoSession)
		return
	}
	var userID string
	if h.verifier != nil {
		id, err := h.verifier.Verify(req.Token)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		userID = id
	}
	if err := h.sessions.Set(r.Context(), sid, session.KeyToken, req.Token); err != nil {
		common.WriteError(w, err)
		return
	}

	ctx := common.WithToken(r.Context(), req.Token)
	if userID != "" {
		ctx = common.WithUserID(ctx, userID)
	}
	for _, hook := range h.hooks {
		if err := hook(ctx, sid); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("sign_in_hook_failed")
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": tokenResponse{Authenticated: true, UserID: userID}})
}

// DeleteToken handles DELETE /api/v1/session/token.
func (h *Handler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	sid, ok := common.SessionID(r.Context())
	if !ok {
		common.WriteError(w, session.ErrNoSession)
		return
	}
	if err := h.sessions.Delete(r.Context(), sid, session.KeyToken); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
