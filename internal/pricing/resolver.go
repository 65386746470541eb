package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PriceOnRequest is the label shown when no price applies to the requested quantity.
const PriceOnRequest = "Price on request"

// PriceType selects the pricing path of a product.
type PriceType string

const (
	PriceSingle PriceType = "single"
	PriceBulk   PriceType = "bulk"
)

// ParsePriceType maps a backend price type onto a PriceType. Unknown values fall back to single.
func ParsePriceType(value string) PriceType {
	if strings.EqualFold(strings.TrimSpace(value), string(PriceBulk)) {
		return PriceBulk
	}
	return PriceSingle
}

// Config is the pricing view of a product. It is read-only once fetched.
type Config struct {
	PriceType            PriceType       `json:"priceType"`
	SinglePrice          decimal.Decimal `json:"singlePrice"`
	Tiers                []Tier          `json:"tiers,omitempty"`
	MinimumOrderQuantity int             `json:"minimumOrderQuantity"`
	AvailableStock       int             `json:"availableStock"`
	Tax                  TaxConfig       `json:"tax"`
}

// Quote is the resolved price of a product at a quantity.
type Quote struct {
	Quantity  int             `json:"quantity"`
	Available bool            `json:"available"`
	PriceType PriceType       `json:"priceType"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	BasePrice decimal.Decimal `json:"basePrice"`
	Tax       TaxResult       `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Tier      *Tier           `json:"tier,omitempty"`
	Label     string          `json:"label,omitempty"`
}

// Resolve determines the unit price for qty and the resulting tax and total.
// A bulk product with no qualifying tier yields an unavailable quote labelled
// PriceOnRequest rather than a zero price.
func Resolve(cfg Config, qty int) Quote {
	switch cfg.PriceType {
	case PriceBulk:
		tier := ResolveTier(cfg.Tiers, qty)
		if tier == nil {
			return OnRequest(PriceBulk, qty)
		}
		quote := QuoteAt(PriceBulk, tier.Price, qty, cfg.Tax)
		quote.Tier = tier
		return quote
	default:
		return QuoteAt(PriceSingle, cfg.SinglePrice, qty, cfg.Tax)
	}
}

// QuoteAt prices qty units at a fixed unit price. Cart lines use it to re-total
// at the price their identity was created with.
func QuoteAt(priceType PriceType, unit decimal.Decimal, qty int, tax TaxConfig) Quote {
	base := unit.Mul(decimal.NewFromInt(int64(qty)))
	taxResult := ComputeTax(base, tax)
	return Quote{
		Quantity:  qty,
		Available: true,
		PriceType: priceType,
		UnitPrice: unit,
		BasePrice: base,
		Tax:       taxResult,
		Total:     base.Add(taxResult.Amount),
	}
}

// OnRequest is the quote of a product that has no price for qty.
func OnRequest(priceType PriceType, qty int) Quote {
	return Quote{
		Quantity:  qty,
		PriceType: priceType,
		UnitPrice: decimal.Zero,
		BasePrice: decimal.Zero,
		Tax:       TaxResult{Type: TaxNone, Rate: decimal.Zero, Amount: decimal.Zero},
		Total:     decimal.Zero,
		Label:     PriceOnRequest,
	}
}
