package cart

import (
	"time"

	"github.com/restrobazaar/storefront/internal/catalog"
	"github.com/restrobazaar/storefront/internal/pricing"
)

// LineView is a line with its current totals.
type LineView struct {
	Line
	Key     string          `json:"key"`
	Quote   pricing.Quote   `json:"quote"`
	Display catalog.Display `json:"display"`
}

// SummaryDisplay is the formatted form of a cart summary.
type SummaryDisplay struct {
	Subtotal string `json:"subtotal"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// View is the response shape of a cart.
type View struct {
	Lines          []LineView      `json:"lines"`
	Summary        pricing.Summary `json:"summary"`
	SummaryDisplay SummaryDisplay  `json:"summaryDisplay"`
	UpdatedAt      time.Time       `json:"updatedAt,omitempty"`
}

// NewView re-prices every line of st at its own unit price and totals the cart.
func NewView(st State) View {
	v := View{Lines: make([]LineView, 0, len(st.Lines)), UpdatedAt: st.UpdatedAt}
	quotes := make([]pricing.Quote, 0, len(st.Lines))
	for _, l := range st.Lines {
		q := l.Quote()
		quotes = append(quotes, q)
		v.Lines = append(v.Lines, LineView{Line: l, Key: l.Key(), Quote: q, Display: catalog.DisplayOf(q)})
	}
	v.Summary = pricing.Summarize(quotes)
	v.SummaryDisplay = SummaryDisplay{
		Subtotal: pricing.FormatINR(v.Summary.Subtotal),
		Tax:      pricing.FormatINR(v.Summary.Tax),
		Total:    pricing.FormatINR(v.Summary.Total),
	}
	return v
}
