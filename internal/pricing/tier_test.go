package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func tiers(specs ...[3]int64) []Tier {
	out := make([]Tier, 0, len(specs))
	for _, s := range specs {
		out = append(out, Tier{MinQty: int(s[0]), MaxQty: int(s[1]), Price: decimal.NewFromInt(s[2])})
	}
	return out
}

func TestResolveTierPicksHighestQualifyingMinQty(t *testing.T) {
	slabs := tiers([3]int64{1, 9, 100}, [3]int64{10, 99, 90}, [3]int64{100, 499, 80})

	for qty, wantMin := range map[int]int{1: 1, 9: 1, 10: 10, 99: 10, 100: 100, 250: 100} {
		tier := ResolveTier(slabs, qty)
		require.NotNil(t, tier, "qty %d", qty)
		require.Equal(t, wantMin, tier.MinQty, "qty %d", qty)
	}
}

func TestResolveTierBelowEveryTier(t *testing.T) {
	slabs := tiers([3]int64{5, 9, 100}, [3]int64{10, 99, 90})
	require.Nil(t, ResolveTier(slabs, 4))
	require.Nil(t, ResolveTier(nil, 10))
	require.Nil(t, ResolveTier([]Tier{}, 10))
}

func TestResolveTierIgnoresMaxQtyAsBound(t *testing.T) {
	slabs := tiers([3]int64{1, 9, 100}, [3]int64{10, 99, 90})
	tier := ResolveTier(slabs, 5000)
	require.NotNil(t, tier)
	require.Equal(t, 10, tier.MinQty)
	require.True(t, tier.Price.Equal(decimal.NewFromInt(90)))
}

func TestResolveTierUnsortedInputIsNotMutated(t *testing.T) {
	slabs := tiers([3]int64{50, 0, 70}, [3]int64{1, 9, 100}, [3]int64{10, 49, 90})
	tier := ResolveTier(slabs, 12)
	require.NotNil(t, tier)
	require.Equal(t, 10, tier.MinQty)
	require.Equal(t, 50, slabs[0].MinQty, "input order must be preserved")

	tier.Price = decimal.NewFromInt(1)
	require.True(t, slabs[2].Price.Equal(decimal.NewFromInt(90)), "returned tier must be a copy")
}
