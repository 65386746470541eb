package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/session"
)

// FailFunc renders an error for a request.
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

// WriteBackendError renders err using the backend error mapping.
func WriteBackendError(w http.ResponseWriter, _ *http.Request, err error) {
	common.WriteError(w, backend.AsAppError(err))
}

// Handler exposes public catalog endpoints.
type Handler struct {
	service  *Service
	sessions session.Store
	fail     FailFunc
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service  *Service
	Sessions session.Store
	Fail     FailFunc
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	fail := cfg.Fail
	if fail == nil {
		fail = WriteBackendError
	}
	return &Handler{service: cfg.Service, sessions: cfg.Sessions, fail: fail}
}

// Categories handles GET /api/v1/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Products handles GET /api/v1/products, scoped to the session's selected city.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	params := ListParams{Category: r.URL.Query().Get("category"), CityID: h.selectedCity(r)}
	rows, err := h.service.Products(r.Context(), params)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Product handles GET /api/v1/products/{id}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": View(p)})
}

// Quote handles GET /api/v1/products/{id}/quote?qty=N.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	qty := common.AtoiDefault(r.URL.Query().Get("qty"), 0)
	view, err := h.service.Quote(r.Context(), chi.URLParam(r, "id"), qty)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) selectedCity(r *http.Request) string {
	if h.sessions == nil {
		return ""
	}
	sid, ok := common.SessionID(r.Context())
	if !ok {
		return ""
	}
	cityID, _, err := h.sessions.Get(r.Context(), sid, session.KeySelectedCityID)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("selected_city_read_failed")
		return ""
	}
	return cityID
}
