package cart

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/restrobazaar/storefront/internal/catalog"
	"github.com/restrobazaar/storefront/internal/common"
)

// Handler exposes cart endpoints for the current session.
type Handler struct {
	service *Service
	fail    catalog.FailFunc
}

// NewHandler constructs a Handler. fail renders service errors.
func NewHandler(service *Service, fail catalog.FailFunc) *Handler {
	if fail == nil {
		fail = catalog.WriteBackendError
	}
	return &Handler{service: service, fail: fail}
}

type addRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// Get handles GET /api/v1/cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sid, _ := common.SessionID(r.Context())
	view, err := h.service.Get(r.Context(), sid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Add handles POST /api/v1/cart/items. A zero quantity adds the minimum order quantity.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	sid, _ := common.SessionID(r.Context())
	view, err := h.service.Add(r.Context(), sid, req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// SetQuantity handles PUT /api/v1/cart/items/{vendorProductId}.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	sid, _ := common.SessionID(r.Context())
	view, err := h.service.SetQuantity(r.Context(), sid, chi.URLParam(r, "vendorProductId"), req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Remove handles DELETE /api/v1/cart/items/{lineKey}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "lineKey"))
	if err != nil || key == "" {
		common.JSONError(w, http.StatusBadRequest, "INVALID_LINE_KEY", "invalid cart line key", nil)
		return
	}
	sid, _ := common.SessionID(r.Context())
	view, err := h.service.Remove(r.Context(), sid, key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Clear handles DELETE /api/v1/cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	sid, _ := common.SessionID(r.Context())
	view, err := h.service.Clear(r.Context(), sid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}
