package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const fixture = `
- _id: vp1
  productName: Paper Cup 250ml
  priceType: bulk
  pricing:
    bulk:
      - minQty: 1
        price: 100
      - minQty: 10
        price: 90
  gstOrTaxPercent: 18
  availableStock: 40
- _id: vp2
  name: Napkin Pack
  price: 40
  minimumOrderQuantity: 5
  availableStock: 50
  cgst: 6
  sgst: 6
- _id: vp3
  name: Steel Ladle
  availableStock: 3
`

func TestLoadProductsNormalizesBackendShapes(t *testing.T) {
	products, err := loadProducts(strings.NewReader(fixture))
	require.NoError(t, err)
	require.Len(t, products, 3)
	require.Equal(t, "Paper Cup 250ml", products[0].Name)
	require.Len(t, products[0].Pricing.Tiers, 2)
	require.Equal(t, 5, products[1].Pricing.MinimumOrderQuantity)
	require.True(t, products[2].PriceMissing)
}

func TestQuoteAllRoundsAndPrices(t *testing.T) {
	products, err := loadProducts(strings.NewReader(fixture))
	require.NoError(t, err)

	rows := quoteAll(products, 12)
	require.Equal(t, 12, rows[0].Quantity)
	require.Equal(t, "₹1,080.00", rows[0].Display.Base)
	require.Equal(t, "₹1,274.40", rows[0].Display.Total)

	require.Equal(t, 10, rows[1].Quantity)
	require.Equal(t, "₹448.00", rows[1].Display.Total)

	require.False(t, rows[2].Quote.Available)

	var out bytes.Buffer
	require.NoError(t, writeQuotes(&out, rows))
	require.Contains(t, out.String(), "CGST+SGST 12%")
	require.Contains(t, out.String(), "Price on request")
}

func TestRootCommandQuote(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"quote", "7", "-f", path, "-p", "vp2"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "Napkin Pack")
	require.NotContains(t, out.String(), "Paper Cup")

	cmd = rootCmd()
	out.Reset()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"tiers", "-f", path})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "₹90.00")

	cmd = rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"quote", "x", "-f", path})
	require.Error(t, cmd.Execute())
}
