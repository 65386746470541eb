package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func bulkProduct() Config {
	return Config{
		PriceType:            PriceBulk,
		Tiers:                tiers([3]int64{1, 9, 100}, [3]int64{10, 99, 90}),
		MinimumOrderQuantity: 1,
		AvailableStock:       500,
		Tax:                  TaxConfig{CGST: pct("9"), SGST: pct("9")},
	}
}

func TestResolveBulkCrossesIntoCheaperTier(t *testing.T) {
	quote := Resolve(bulkProduct(), 10)
	require.True(t, quote.Available)
	require.NotNil(t, quote.Tier)
	require.Equal(t, 10, quote.Tier.MinQty)
	require.True(t, quote.BasePrice.Equal(pct("900")), "base %s", quote.BasePrice)
	require.True(t, quote.Tax.Amount.Equal(pct("162")), "tax %s", quote.Tax.Amount)
	require.True(t, quote.Total.Equal(pct("1062")), "total %s", quote.Total)
	require.True(t, quote.UnitPrice.Equal(pct("90")))
}

func TestResolveBulkFirstTier(t *testing.T) {
	quote := Resolve(bulkProduct(), 5)
	require.NotNil(t, quote.Tier)
	require.Equal(t, 1, quote.Tier.MinQty)
	require.True(t, quote.BasePrice.Equal(pct("500")))
	require.True(t, quote.Tax.Amount.Equal(pct("90")))
	require.True(t, quote.Total.Equal(pct("590")))
}

func TestResolveBulkWithoutTierIsPriceOnRequest(t *testing.T) {
	cfg := bulkProduct()
	cfg.Tiers = tiers([3]int64{10, 99, 90})
	quote := Resolve(cfg, 5)
	require.False(t, quote.Available)
	require.Nil(t, quote.Tier)
	require.Equal(t, PriceOnRequest, quote.Label)
	require.True(t, quote.Total.IsZero())

	cfg.Tiers = nil
	require.Equal(t, PriceOnRequest, Resolve(cfg, 50).Label)
}

func TestResolveSingle(t *testing.T) {
	cfg := Config{PriceType: PriceSingle, SinglePrice: pct("12.50"), Tax: TaxConfig{IGST: pct("12")}}
	quote := Resolve(cfg, 4)
	require.True(t, quote.Available)
	require.Nil(t, quote.Tier)
	require.True(t, quote.BasePrice.Equal(pct("50")))
	require.True(t, quote.Tax.Amount.Equal(pct("6")))
	require.True(t, quote.Total.Equal(pct("56")))
	require.Equal(t, TaxIGST, quote.Tax.Type)
}

func TestResolveIsIdempotent(t *testing.T) {
	cfg := bulkProduct()
	first := Resolve(cfg, 37)
	second := Resolve(cfg, 37)
	require.Equal(t, first.Total.String(), second.Total.String())
	require.Equal(t, first.Tax.Breakdown, second.Tax.Breakdown)
	require.Equal(t, *first.Tier, *second.Tier)
	require.Equal(t, 1, cfg.Tiers[0].MinQty)
}

func TestParsePriceType(t *testing.T) {
	require.Equal(t, PriceBulk, ParsePriceType(" Bulk "))
	require.Equal(t, PriceSingle, ParsePriceType("single"))
	require.Equal(t, PriceSingle, ParsePriceType(""))
}

func TestQuoteAtUsesFixedUnitPrice(t *testing.T) {
	quote := QuoteAt(PriceBulk, decimal.NewFromInt(100), 15, TaxConfig{GSTOrTaxPercent: pct("5")})
	require.True(t, quote.BasePrice.Equal(pct("1500")))
	require.True(t, quote.Total.Equal(pct("1575")))
}
