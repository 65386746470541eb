package city

import (
	"context"
	"net/http"

	"github.com/restrobazaar/storefront/internal/catalog"
	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/session"
)

// Directory resolves serviceable cities.
type Directory interface {
	Cities(ctx context.Context) ([]catalog.City, error)
	City(ctx context.Context, id string) (catalog.City, error)
}

// Selection is the city stored on a session.
type Selection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Handler serves city listing and selection.
type Handler struct {
	dir      Directory
	sessions session.Store
	fail     catalog.FailFunc
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Directory Directory
	Sessions  session.Store
	Fail      catalog.FailFunc
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	fail := cfg.Fail
	if fail == nil {
		fail = catalog.WriteBackendError
	}
	return &Handler{dir: cfg.Directory, sessions: cfg.Sessions, fail: fail}
}

type selectRequest struct {
	CityID string `json:"cityId" validate:"required"`
}

// List handles GET /api/v1/cities.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cities, err := h.dir.Cities(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cities})
}

// Selected handles GET /api/v1/session/city.
func (h *Handler) Selected(w http.ResponseWriter, r *http.Request) {
	sel, err := Current(r.Context(), h.sessions)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sel})
}

// Select handles PUT /api/v1/session/city.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.dir.City(r.Context(), req.CityID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sid, ok := common.SessionID(r.Context())
	if !ok {
		common.WriteError(w, session.ErrNoSession)
		return
	}
	if err := h.sessions.Set(r.Context(), sid, session.KeySelectedCityID, c.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.sessions.Set(r.Context(), sid, session.KeySelectedCity, c.DisplayName); err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": Selection{ID: c.ID, Name: c.DisplayName}})
}

// Current reads the city selected on the session of ctx. A missing selection yields a zero Selection.
func Current(ctx context.Context, sessions session.Store) (Selection, error) {
	sid, ok := common.SessionID(ctx)
	if !ok || sessions == nil {
		return Selection{}, nil
	}
	id, _, err := sessions.Get(ctx, sid, session.KeySelectedCityID)
	if err != nil {
		return Selection{}, err
	}
	name, _, err := sessions.Get(ctx, sid, session.KeySelectedCity)
	if err != nil {
		return Selection{}, err
	}
	return Selection{ID: id, Name: name}, nil
}
