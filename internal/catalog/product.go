package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/obs"
	"github.com/restrobazaar/storefront/internal/pricing"
)

// RawProduct is a product document as the backend sends it.
type RawProduct = backend.Product

// CategoryRef identifies the category a product belongs to.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Slug string `json:"slug,omitempty"`
}

// Product is the single normalized product shape used by the storefront.
// ID is the vendor product id, which is what carts and wishlists reference.
type Product struct {
	ID            string          `json:"id"`
	CatalogID     string          `json:"catalogId,omitempty"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug,omitempty"`
	Images        []string        `json:"images"`
	Category      CategoryRef     `json:"category"`
	CityID        string          `json:"cityId,omitempty"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Pricing       pricing.Config  `json:"pricing"`
	PriceMissing  bool            `json:"priceMissing,omitempty"`
	IsActive      bool            `json:"isActive"`
}

// Category is an active catalog category.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Image    string `json:"image,omitempty"`
	IsActive bool   `json:"isActive"`
	Priority int    `json:"priority"`
}

// City is a serviceable delivery city.
type City struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	State       string `json:"state,omitempty"`
}

// Normalize maps any of the backend's product shapes onto Product.
func Normalize(raw RawProduct) Product {
	p := Product{
		ID:        strings.TrimSpace(raw.ID),
		CatalogID: strings.TrimSpace(raw.ProductID.ID),
		Name:      firstNonEmpty(raw.ProductName, raw.Name, raw.ProductID.Name),
		Slug:      firstNonEmpty(raw.Slug, raw.ProductID.Slug),
		Category:  CategoryRef{ID: raw.Category.ID, Name: raw.Category.Name, Slug: raw.Category.Slug},
		CityID:    raw.CityID.ID,
		IsActive:  raw.IsActive == nil || *raw.IsActive,
	}
	p.Images = append([]string{}, raw.Images...)
	if len(p.Images) == 0 {
		p.Images = append(p.Images, raw.ProductID.Images...)
	}

	cfg := pricing.Config{
		PriceType:            pricing.ParsePriceType(raw.PriceType),
		SinglePrice:          raw.Price.Or(decimal.Zero),
		MinimumOrderQuantity: raw.MinimumOrderQuantity.Value,
		AvailableStock:       raw.AvailableStock.Value,
		Tax: pricing.TaxConfig{
			IGST:            raw.IGST.Or(decimal.Zero),
			CGST:            raw.CGST.Or(decimal.Zero),
			SGST:            raw.SGST.Or(decimal.Zero),
			GSTOrTaxPercent: raw.GSTOrTaxPercent.Or(decimal.Zero),
		},
	}
	if cfg.MinimumOrderQuantity <= 0 {
		cfg.MinimumOrderQuantity = 1
	}
	if cfg.AvailableStock < 0 {
		cfg.AvailableStock = 0
	}
	if raw.Pricing != nil {
		if raw.Pricing.Single != nil && raw.Pricing.Single.Price.Valid && raw.Pricing.Single.Price.Value.IsPositive() {
			cfg.SinglePrice = raw.Pricing.Single.Price.Value
		}
		for _, t := range raw.Pricing.Bulk {
			if !t.Price.Valid || !t.Price.Value.IsPositive() {
				continue
			}
			minQty := t.MinQty.Value
			if minQty <= 0 {
				minQty = 1
			}
			cfg.Tiers = append(cfg.Tiers, pricing.Tier{MinQty: minQty, MaxQty: t.MaxQty.Value, Price: t.Price.Value})
		}
		if strings.TrimSpace(raw.PriceType) == "" && len(cfg.Tiers) > 0 && !cfg.SinglePrice.IsPositive() {
			cfg.PriceType = pricing.PriceBulk
		}
	}
	sort.SliceStable(cfg.Tiers, func(i, j int) bool { return cfg.Tiers[i].MinQty < cfg.Tiers[j].MinQty })
	p.Pricing = cfg

	switch cfg.PriceType {
	case pricing.PriceBulk:
		p.PriceMissing = len(cfg.Tiers) == 0
		if !p.PriceMissing {
			p.Price = cfg.Tiers[0].Price
		}
	default:
		p.PriceMissing = !cfg.SinglePrice.IsPositive()
		p.Price = cfg.SinglePrice
	}
	p.OriginalPrice = raw.OriginalPrice.Or(decimal.Zero)
	return p
}

// Quote resolves the price of qty units. Products without a usable price
// quote as PriceOnRequest instead of zero.
func (p Product) Quote(qty int) pricing.Quote {
	var q pricing.Quote
	if p.PriceMissing {
		q = pricing.OnRequest(p.Pricing.PriceType, qty)
	} else {
		q = pricing.Resolve(p.Pricing, qty)
	}
	obs.CountQuote(string(q.PriceType), q.Available)
	return q
}

// DiscountPercent is the whole-percent markdown against the original price.
func (p Product) DiscountPercent() int {
	return pricing.DiscountPercent(p.Price, p.OriginalPrice)
}

// NormalizeCategories keeps active categories ordered by priority, then name.
func NormalizeCategories(raw []backend.Category) []Category {
	out := make([]Category, 0, len(raw))
	for _, c := range raw {
		if c.IsActive != nil && !*c.IsActive {
			continue
		}
		out = append(out, Category{
			ID:       c.ID,
			Name:     strings.TrimSpace(c.Name),
			Slug:     strings.TrimSpace(c.Slug),
			Image:    c.Image,
			IsActive: true,
			Priority: c.Priority.Value,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// NormalizeCity maps a backend city.
func NormalizeCity(raw backend.City) City {
	return City{ID: raw.ID, DisplayName: firstNonEmpty(raw.DisplayName, raw.Name), State: raw.State}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
