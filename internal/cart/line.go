package cart

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/restrobazaar/storefront/internal/pricing"
)

const keySep = "|"

// Identity is what distinguishes two cart lines. The same vendor product
// bought at two different unit prices occupies two lines.
type Identity struct {
	VendorProductID string
	PriceType       pricing.PriceType
	UnitPrice       decimal.Decimal
}

// Key renders the identity canonically, e.g. "vp1|bulk|90".
func (id Identity) Key() string {
	return id.VendorProductID + keySep + string(id.PriceType) + keySep + id.UnitPrice.String()
}

// VendorProductOfKey returns the vendor product id encoded in a line key.
func VendorProductOfKey(key string) string {
	vpid, _, _ := strings.Cut(key, keySep)
	return vpid
}

// Line is one cart entry plus the product snapshot needed to re-price it offline.
type Line struct {
	VendorProductID      string            `json:"vendorProductId"`
	ProductID            string            `json:"productId,omitempty"`
	Name                 string            `json:"name"`
	Image                string            `json:"image,omitempty"`
	PriceType            pricing.PriceType `json:"priceType"`
	UnitPrice            decimal.Decimal   `json:"unitPrice"`
	Quantity             int               `json:"quantity"`
	MinimumOrderQuantity int               `json:"minimumOrderQuantity"`
	AvailableStock       int               `json:"availableStock"`
	Tax                  pricing.TaxConfig `json:"tax"`
	Tier                 *pricing.Tier     `json:"tier,omitempty"`
	AddedAt              time.Time         `json:"addedAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// Identity returns the line's identity triple.
func (l Line) Identity() Identity {
	return Identity{VendorProductID: l.VendorProductID, PriceType: l.PriceType, UnitPrice: l.UnitPrice}
}

// Key returns the canonical key of the line's identity.
func (l Line) Key() string {
	return l.Identity().Key()
}

// Quote re-prices the line at the unit price it was added with.
func (l Line) Quote() pricing.Quote {
	q := pricing.QuoteAt(l.PriceType, l.UnitPrice, l.Quantity, l.Tax)
	q.Tier = l.Tier
	return q
}
