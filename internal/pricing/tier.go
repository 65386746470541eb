package pricing

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// Tier is a bulk price slab: the per-unit price for orders of at least MinQty units.
// MaxQty is kept for display only and never excludes a quantity.
type Tier struct {
	MinQty int             `json:"minQty"`
	MaxQty int             `json:"maxQty"`
	Price  decimal.Decimal `json:"price"`
}

// ResolveTier returns the tier with the highest MinQty that qty qualifies for.
// It returns nil when tiers is empty or qty is below every tier's MinQty.
// The input slice is not reordered.
func ResolveTier(tiers []Tier, qty int) *Tier {
	if len(tiers) == 0 {
		return nil
	}
	sorted := slices.Clone(tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinQty < sorted[j].MinQty })

	var match *Tier
	for i := range sorted {
		if qty < sorted[i].MinQty {
			break
		}
		tier := sorted[i]
		match = &tier
	}
	return match
}
