package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func pct(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeTaxRegimes(t *testing.T) {
	base := decimal.NewFromInt(1000)
	cases := []struct {
		name      string
		cfg       TaxConfig
		wantType  TaxType
		wantRate  string
		wantAmt   string
		breakdown string
	}{
		{"igst", TaxConfig{IGST: pct("18")}, TaxIGST, "18", "180", "IGST 18%"},
		{"split", TaxConfig{CGST: pct("9"), SGST: pct("9")}, TaxCGSTSGST, "18", "180", "CGST 9% + SGST 9%"},
		{"cgst only", TaxConfig{CGST: pct("6")}, TaxCGST, "6", "60", "CGST 6%"},
		{"sgst only", TaxConfig{SGST: pct("2.5")}, TaxSGST, "2.5", "25", "SGST 2.5%"},
		{"generic", TaxConfig{GSTOrTaxPercent: pct("12")}, TaxGST, "12", "120", "GST 12%"},
		{"none", TaxConfig{}, TaxNone, "0", "0", ""},
		{"igst wins over split", TaxConfig{IGST: pct("5"), CGST: pct("9"), SGST: pct("9"), GSTOrTaxPercent: pct("28")}, TaxIGST, "5", "50", "IGST 5%"},
		{"split wins over generic", TaxConfig{CGST: pct("2.5"), SGST: pct("2.5"), GSTOrTaxPercent: pct("18")}, TaxCGSTSGST, "5", "50", "CGST 2.5% + SGST 2.5%"},
		{"zero igst falls through", TaxConfig{IGST: pct("0"), GSTOrTaxPercent: pct("18")}, TaxGST, "18", "180", "GST 18%"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ComputeTax(base, tc.cfg)
			require.Equal(t, tc.wantType, res.Type)
			require.True(t, res.Rate.Equal(pct(tc.wantRate)), "rate %s", res.Rate)
			require.True(t, res.Amount.Equal(pct(tc.wantAmt)), "amount %s", res.Amount)
			require.Equal(t, tc.breakdown, res.Breakdown)
		})
	}
}

func TestComputeTaxSplitComponents(t *testing.T) {
	res := ComputeTax(decimal.NewFromInt(900), TaxConfig{CGST: pct("9"), SGST: pct("9")})
	require.Len(t, res.Components, 2)
	require.Equal(t, "CGST", res.Components[0].Name)
	require.True(t, res.Components[0].Amount.Equal(pct("81")))
	require.Equal(t, "SGST", res.Components[1].Name)
	require.True(t, res.Components[1].Amount.Equal(pct("81")))
	require.True(t, res.Amount.Equal(pct("162")))
}

func TestComputeTaxEquivalentCombinedRates(t *testing.T) {
	base := decimal.NewFromInt(1000)
	igst := ComputeTax(base, TaxConfig{IGST: pct("18")})
	split := ComputeTax(base, TaxConfig{CGST: pct("9"), SGST: pct("9")})
	require.True(t, igst.Amount.Equal(split.Amount))
	require.NotEqual(t, igst.Type, split.Type)
}
