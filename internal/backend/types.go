package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var jsonNull = []byte("null")

// FlexDecimal decodes a number that the backend may send as a JSON number,
// a numeric string, an empty string or null. Anything unparseable leaves it unset.
type FlexDecimal struct {
	Value decimal.Decimal
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexDecimal) UnmarshalJSON(data []byte) error {
	*f = FlexDecimal{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	f.Value, f.Valid = d, true
	return nil
}

// Decimal wraps d as a set FlexDecimal.
func Decimal(d decimal.Decimal) FlexDecimal {
	return FlexDecimal{Value: d, Valid: true}
}

// MarshalJSON implements json.Marshaler. Set values are written as bare JSON numbers.
func (f FlexDecimal) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return jsonNull, nil
	}
	return []byte(f.Value.String()), nil
}

// Or returns the value when set and fallback otherwise.
func (f FlexDecimal) Or(fallback decimal.Decimal) decimal.Decimal {
	if f.Valid {
		return f.Value
	}
	return fallback
}

// FlexInt decodes an integer sent as a number or numeric string. Fractions are truncated.
type FlexInt struct {
	Value int
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var d FlexDecimal
	if err := d.UnmarshalJSON(data); err != nil || !d.Valid {
		*f = FlexInt{}
		return nil
	}
	*f = FlexInt{Value: int(d.Value.IntPart()), Valid: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return jsonNull, nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// Images accepts a list whose entries are URLs or objects carrying a url field.
type Images []string

// UnmarshalJSON implements json.Unmarshaler.
func (im *Images) UnmarshalJSON(data []byte) error {
	*im = nil
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		var single string
		if json.Unmarshal(data, &single) == nil && strings.TrimSpace(single) != "" {
			*im = Images{strings.TrimSpace(single)}
		}
		return nil
	}
	for _, entry := range entries {
		var url string
		if json.Unmarshal(entry, &url) == nil {
			if url = strings.TrimSpace(url); url != "" {
				*im = append(*im, url)
			}
			continue
		}
		var obj struct {
			URL string `json:"url"`
		}
		if json.Unmarshal(entry, &obj) == nil && strings.TrimSpace(obj.URL) != "" {
			*im = append(*im, strings.TrimSpace(obj.URL))
		}
	}
	return nil
}

// Ref is a reference the backend sends either as a bare id or as a populated document.
type Ref struct {
	ID     string `json:"_id"`
	Name   string `json:"name,omitempty"`
	Slug   string `json:"slug,omitempty"`
	Images Images `json:"images,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(data []byte) error {
	*r = Ref{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var doc struct {
		ID          string `json:"_id"`
		Name        string `json:"name"`
		ProductName string `json:"productName"`
		DisplayName string `json:"displayName"`
		Slug        string `json:"slug"`
		Images      Images `json:"images"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.ID = doc.ID
	r.Name = firstNonEmpty(doc.ProductName, doc.Name, doc.DisplayName)
	r.Slug = doc.Slug
	r.Images = doc.Images
	return nil
}

// BulkTier is a bulk price slab as sent by the backend.
type BulkTier struct {
	MinQty FlexInt     `json:"minQty"`
	MaxQty FlexInt     `json:"maxQty"`
	Price  FlexDecimal `json:"price"`
}

// Pricing is the nested pricing document of a vendor product.
type Pricing struct {
	Single *struct {
		Price FlexDecimal `json:"price"`
	} `json:"single"`
	Bulk []BulkTier `json:"bulk"`
}

// Product is a vendor product document. Listing and detail endpoints populate
// different subsets of these fields.
type Product struct {
	ID                   string      `json:"_id"`
	ProductID            Ref         `json:"productId"`
	Name                 string      `json:"name"`
	ProductName          string      `json:"productName"`
	Slug                 string      `json:"slug"`
	Images               Images      `json:"images"`
	Category             Ref         `json:"category"`
	CityID               Ref         `json:"cityId"`
	Price                FlexDecimal `json:"price"`
	OriginalPrice        FlexDecimal `json:"originalPrice"`
	PriceType            string      `json:"priceType"`
	Pricing              *Pricing    `json:"pricing"`
	IGST                 FlexDecimal `json:"igst"`
	CGST                 FlexDecimal `json:"cgst"`
	SGST                 FlexDecimal `json:"sgst"`
	GSTOrTaxPercent      FlexDecimal `json:"gstOrTaxPercent"`
	MinimumOrderQuantity FlexInt     `json:"minimumOrderQuantity"`
	AvailableStock       FlexInt     `json:"availableStock"`
	IsActive             *bool       `json:"isActive"`
}

// Category is a catalog category.
type Category struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	Image    string  `json:"image"`
	IsActive *bool   `json:"isActive"`
	Priority FlexInt `json:"priority"`
}

// City is a serviceable delivery city.
type City struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	State       string `json:"state"`
}

// WishlistItem is one entry of the signed-in user's wishlist.
type WishlistItem struct {
	ID        string `json:"_id"`
	ProductID Ref    `json:"productId"`
}

// CartItemRequest adds a product to the server-side cart.
type CartItemRequest struct {
	ProductID string      `json:"productId"`
	Quantity  int         `json:"quantity"`
	PriceType string      `json:"priceType"`
	Price     FlexDecimal `json:"price"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
