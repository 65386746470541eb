package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/common"
	"github.com/restrobazaar/storefront/internal/pricing"
)

// Source is the subset of the backend client the catalog reads from.
type Source interface {
	Categories(ctx context.Context) ([]backend.Category, error)
	Cities(ctx context.Context, active, serviceable bool) ([]backend.City, error)
	Products(ctx context.Context, cityID string) ([]backend.Product, error)
	ProductsByCategory(ctx context.Context, slug, cityID string) ([]backend.Product, error)
	Product(ctx context.Context, id string) (backend.Product, error)
}

// Service normalizes backend catalog data and caches it.
type Service struct {
	source Source
	cache  *Cache
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source Source
	Cache  *Cache
}

// NewService constructs a catalog Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog source is required")
	}
	return &Service{source: cfg.Source, cache: cfg.Cache}, nil
}

// ListParams filters product listings.
type ListParams struct {
	Category string
	CityID   string
}

// Display carries preformatted rupee amounts for a quote.
type Display struct {
	UnitPrice string `json:"unitPrice"`
	Base      string `json:"base"`
	Tax       string `json:"tax"`
	Total     string `json:"total"`
}

// ProductView is a product with its quote at the minimum order quantity.
type ProductView struct {
	Product
	Discount int           `json:"discountPercent"`
	Quote    pricing.Quote `json:"quote"`
	Display  Display       `json:"display"`
}

// QuoteView is the outcome of pricing a requested quantity.
type QuoteView struct {
	ProductID    string        `json:"productId"`
	Requested    int           `json:"requested"`
	Quantity     int           `json:"quantity"`
	MinimumQty   int           `json:"minimumOrderQuantity"`
	MaxOrderable int           `json:"maxOrderable"`
	Quote        pricing.Quote `json:"quote"`
	Display      Display       `json:"display"`
}

// DisplayOf formats the amounts of q. Unavailable quotes show PriceOnRequest.
func DisplayOf(q pricing.Quote) Display {
	if !q.Available {
		return Display{UnitPrice: pricing.PriceOnRequest, Base: pricing.PriceOnRequest, Tax: pricing.PriceOnRequest, Total: pricing.PriceOnRequest}
	}
	return Display{
		UnitPrice: pricing.FormatINR(q.UnitPrice),
		Base:      pricing.FormatINR(q.BasePrice),
		Tax:       pricing.FormatINR(q.Tax.Amount),
		Total:     pricing.FormatINR(q.Total),
	}
}

// View prices p at its minimum order quantity.
func View(p Product) ProductView {
	q := p.Quote(p.Pricing.MinimumOrderQuantity)
	return ProductView{Product: p, Discount: p.DiscountPercent(), Quote: q, Display: DisplayOf(q)}
}

// Categories returns active categories ordered by priority.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if s.cachedGet(ctx, "categories", &out) {
		return out, nil
	}
	raw, err := s.source.Categories(ctx)
	if err != nil {
		return nil, err
	}
	out = NormalizeCategories(raw)
	s.cachedSet(ctx, "categories", out)
	return out, nil
}

// Cities returns active, serviceable cities.
func (s *Service) Cities(ctx context.Context) ([]City, error) {
	var out []City
	if s.cachedGet(ctx, "cities", &out) {
		return out, nil
	}
	raw, err := s.source.Cities(ctx, true, true)
	if err != nil {
		return nil, err
	}
	out = make([]City, 0, len(raw))
	for _, c := range raw {
		out = append(out, NormalizeCity(c))
	}
	s.cachedSet(ctx, "cities", out)
	return out, nil
}

// City looks up a serviceable city by id.
func (s *Service) City(ctx context.Context, id string) (City, error) {
	cities, err := s.Cities(ctx)
	if err != nil {
		return City{}, err
	}
	for _, c := range cities {
		if c.ID == id {
			return c, nil
		}
	}
	return City{}, common.NewAppError("CITY_NOT_SERVICEABLE", "city is not serviceable", http.StatusUnprocessableEntity, nil)
}

// Products lists active products, optionally restricted to a category and city.
func (s *Service) Products(ctx context.Context, params ListParams) ([]ProductView, error) {
	params.Category = strings.TrimSpace(params.Category)
	key := "products:" + params.Category + ":" + params.CityID
	var products []Product
	if !s.cachedGet(ctx, key, &products) {
		var (
			raw []backend.Product
			err error
		)
		if params.Category != "" {
			raw, err = s.source.ProductsByCategory(ctx, params.Category, params.CityID)
		} else {
			raw, err = s.source.Products(ctx, params.CityID)
		}
		if err != nil {
			return nil, err
		}
		products = make([]Product, 0, len(raw))
		for _, r := range raw {
			p := Normalize(r)
			if !p.IsActive || p.ID == "" {
				continue
			}
			products = append(products, p)
		}
		s.cachedSet(ctx, key, products)
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, View(p))
	}
	return views, nil
}

// Product fetches one normalized product.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, common.NewAppError("INVALID_PRODUCT", "product id is required", http.StatusBadRequest, nil)
	}
	var p Product
	if s.cachedGet(ctx, "product:"+id, &p) {
		return p, nil
	}
	raw, err := s.source.Product(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p = Normalize(raw)
	if p.ID == "" {
		p.ID = id
	}
	s.cachedSet(ctx, "product:"+id, p)
	return p, nil
}

// Quote normalizes requested to the product's order multiple and stock, then prices it.
func (s *Service) Quote(ctx context.Context, id string, requested int) (QuoteView, error) {
	p, err := s.Product(ctx, id)
	if err != nil {
		return QuoteView{}, err
	}
	moq, stock := p.Pricing.MinimumOrderQuantity, p.Pricing.AvailableStock
	if requested <= 0 {
		requested = moq
	}
	qty, err := pricing.NormalizeQuantity(requested, moq, stock)
	if err != nil {
		return QuoteView{}, OutOfStock(err)
	}
	q := p.Quote(qty)
	return QuoteView{
		ProductID:    p.ID,
		Requested:    requested,
		Quantity:     qty,
		MinimumQty:   moq,
		MaxOrderable: pricing.MaxOrderable(moq, stock),
		Quote:        q,
		Display:      DisplayOf(q),
	}, nil
}

// OutOfStock wraps a stock error as the HTTP error reported to shoppers.
func OutOfStock(err error) *common.AppError {
	return common.NewAppError("OUT_OF_STOCK", "not enough stock for the minimum order quantity", http.StatusConflict, err)
}

func (s *Service) cachedGet(ctx context.Context, key string, dst any) bool {
	ok, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog_cache_read_failed")
		return false
	}
	return ok
}

func (s *Service) cachedSet(ctx context.Context, key string, v any) {
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog_cache_write_failed")
	}
}
