package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TaxType names the GST regime applied to a price.
type TaxType string

const (
	TaxIGST     TaxType = "IGST"
	TaxCGSTSGST TaxType = "CGST+SGST"
	TaxCGST     TaxType = "CGST"
	TaxSGST     TaxType = "SGST"
	TaxGST      TaxType = "GST"
	TaxNone     TaxType = "NONE"
)

// TaxConfig carries the optional tax percentages of a product. Zero means absent.
type TaxConfig struct {
	IGST            decimal.Decimal `json:"igst"`
	CGST            decimal.Decimal `json:"cgst"`
	SGST            decimal.Decimal `json:"sgst"`
	GSTOrTaxPercent decimal.Decimal `json:"gstOrTaxPercent"`
}

// TaxComponent is one named share of a tax amount, e.g. the CGST half of an intra-state split.
type TaxComponent struct {
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// TaxResult is the outcome of applying a TaxConfig to a base price.
type TaxResult struct {
	Type       TaxType         `json:"type"`
	Rate       decimal.Decimal `json:"rate"`
	Amount     decimal.Decimal `json:"amount"`
	Breakdown  string          `json:"breakdown"`
	Components []TaxComponent  `json:"components,omitempty"`
}

type rate struct {
	name  string
	value decimal.Decimal
}

// regime picks the authoritative tax combination. The first match wins:
// IGST, then CGST with SGST, CGST alone, SGST alone, the generic GST percent, and finally none.
func (c TaxConfig) regime() (TaxType, []rate) {
	switch {
	case c.IGST.IsPositive():
		return TaxIGST, []rate{{"IGST", c.IGST}}
	case c.CGST.IsPositive() && c.SGST.IsPositive():
		return TaxCGSTSGST, []rate{{"CGST", c.CGST}, {"SGST", c.SGST}}
	case c.CGST.IsPositive():
		return TaxCGST, []rate{{"CGST", c.CGST}}
	case c.SGST.IsPositive():
		return TaxSGST, []rate{{"SGST", c.SGST}}
	case c.GSTOrTaxPercent.IsPositive():
		return TaxGST, []rate{{"GST", c.GSTOrTaxPercent}}
	default:
		return TaxNone, nil
	}
}

// ComputeTax applies the product's tax regime to base: amount = base * rate / 100.
func ComputeTax(base decimal.Decimal, cfg TaxConfig) TaxResult {
	taxType, rates := cfg.regime()
	result := TaxResult{Type: taxType, Rate: decimal.Zero, Amount: decimal.Zero}
	if len(rates) == 0 {
		return result
	}
	labels := make([]string, 0, len(rates))
	result.Components = make([]TaxComponent, 0, len(rates))
	for _, r := range rates {
		amount := percentOf(base, r.value)
		result.Rate = result.Rate.Add(r.value)
		result.Amount = result.Amount.Add(amount)
		result.Components = append(result.Components, TaxComponent{Name: r.name, Rate: r.value, Amount: amount})
		labels = append(labels, r.name+" "+r.value.String()+"%")
	}
	result.Breakdown = strings.Join(labels, " + ")
	return result
}

func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Shift(-2)
}
