package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary aggregates the quotes of a cart.
type Summary struct {
	Lines      int             `json:"lines"`
	Quantity   int             `json:"quantity"`
	Unpriced   int             `json:"unpriced"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Components []TaxComponent  `json:"components"`
}

var componentOrder = map[string]int{"IGST": 0, "CGST": 1, "SGST": 2, "GST": 3}

// Summarize totals quotes. Unavailable quotes are counted but contribute nothing.
// Components are summed per tax name; their Rate is left zero since rates differ per line.
func Summarize(quotes []Quote) Summary {
	summary := Summary{
		Subtotal:   decimal.Zero,
		Tax:        decimal.Zero,
		Total:      decimal.Zero,
		Components: []TaxComponent{},
	}
	byName := map[string]decimal.Decimal{}
	for _, q := range quotes {
		summary.Lines++
		if !q.Available || q.Quantity <= 0 {
			summary.Unpriced++
			continue
		}
		summary.Quantity += q.Quantity
		summary.Subtotal = summary.Subtotal.Add(q.BasePrice)
		summary.Tax = summary.Tax.Add(q.Tax.Amount)
		for _, c := range q.Tax.Components {
			prev, ok := byName[c.Name]
			if !ok {
				prev = decimal.Zero
			}
			byName[c.Name] = prev.Add(c.Amount)
		}
	}
	summary.Total = summary.Subtotal.Add(summary.Tax)
	for name, amount := range byName {
		summary.Components = append(summary.Components, TaxComponent{Name: name, Rate: decimal.Zero, Amount: amount})
	}
	sort.Slice(summary.Components, func(i, j int) bool {
		return componentOrder[summary.Components[i].Name] < componentOrder[summary.Components[j].Name]
	})
	return summary
}
