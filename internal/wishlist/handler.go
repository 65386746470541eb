package wishlist

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/restrobazaar/storefront/internal/auth"
	"github.com/restrobazaar/storefront/internal/catalog"
	"github.com/restrobazaar/storefront/internal/common"
)

// Handler serves the wishlist endpoints.
type Handler struct {
	svc  *Service
	fail catalog.FailFunc
}

// NewHandler constructs a Handler. fail renders service errors.
func NewHandler(svc *Service, fail catalog.FailFunc) *Handler {
	if fail == nil {
		fail = catalog.WriteBackendError
	}
	return &Handler{svc: svc, fail: fail}
}

type addRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

// List handles GET /api/v1/wishlist.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Add handles POST /api/v1/wishlist.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	sid, _ := common.SessionID(r.Context())
	if err := h.svc.Add(r.Context(), sid, req.ProductID); err != nil {
		if errors.Is(err, ErrSignInRequired) {
			auth.WriteSignInRequired(w)
			return
		}
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"productId": req.ProductID}})
}

// Remove handles DELETE /api/v1/wishlist/{productId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Remove(r.Context(), chi.URLParam(r, "productId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
