// Command pricequote prices catalog products offline with the storefront resolver.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/restrobazaar/storefront/internal/backend"
	"github.com/restrobazaar/storefront/internal/catalog"
	"github.com/restrobazaar/storefront/internal/pricing"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		file      string
		productID string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "pricequote",
		Short: "Resolve storefront prices from a product fixture",
		Long: `pricequote loads products in any of the backend's shapes from a YAML
(or JSON) fixture and prints what the storefront would charge.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&file, "file", "f", "products.yaml", "Product fixture (YAML or JSON)")
	cmd.PersistentFlags().StringVarP(&productID, "product", "p", "", "Only this vendor product id")
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")

	quote := &cobra.Command{
		Use:   "quote QTY",
		Short: "Normalize QTY per product and print its quote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("quantity %q is not a number", args[0])
			}
			products, err := loadFile(file, productID)
			if err != nil {
				return err
			}
			rows := quoteAll(products, qty)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return writeQuotes(cmd.OutOrStdout(), rows)
		},
	}

	tiers := &cobra.Command{
		Use:   "tiers",
		Short: "List the bulk tiers of each product",
		RunE: func(cmd *cobra.Command, _ []string) error {
			products, err := loadFile(file, productID)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), products)
			}
			return writeTiers(cmd.OutOrStdout(), products)
		},
	}

	cmd.AddCommand(quote, tiers)
	return cmd
}

type quoteRow struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Requested int             `json:"requested"`
	Quantity  int             `json:"quantity"`
	Quote     pricing.Quote   `json:"quote"`
	Display   catalog.Display `json:"display"`
	Error     string          `json:"error,omitempty"`
}

func loadFile(path, productID string) ([]catalog.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	products, err := loadProducts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if productID == "" {
		return products, nil
	}
	for _, p := range products {
		if p.ID == productID {
			return []catalog.Product{p}, nil
		}
	}
	return nil, fmt.Errorf("product %q not found in %s", productID, path)
}

// loadProducts decodes a YAML list of raw backend products. YAML is a JSON
// superset, so the document is re-encoded as JSON to reuse the backend decoders.
func loadProducts(r io.Reader) ([]catalog.Product, error) {
	var doc []any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("re-encode fixture: %w", err)
	}
	var items []backend.Product
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	out := make([]catalog.Product, 0, len(items))
	for _, item := range items {
		out = append(out, catalog.Normalize(item))
	}
	return out, nil
}

func quoteAll(products []catalog.Product, requested int) []quoteRow {
	rows := make([]quoteRow, 0, len(products))
	for _, p := range products {
		row := quoteRow{ProductID: p.ID, Name: p.Name, Requested: requested}
		want := requested
		if want <= 0 {
			want = p.Pricing.MinimumOrderQuantity
		}
		qty, err := pricing.NormalizeQuantity(want, p.Pricing.MinimumOrderQuantity, p.Pricing.AvailableStock)
		if err != nil {
			row.Error = "out of stock"
			rows = append(rows, row)
			continue
		}
		row.Quantity = qty
		row.Quote = p.Quote(qty)
		row.Display = catalog.DisplayOf(row.Quote)
		rows = append(rows, row)
	}
	return rows
}

func writeQuotes(w io.Writer, rows []quoteRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tQTY\tUNIT\tBASE\tTAX\tTOTAL")
	for _, row := range rows {
		if row.Error != "" {
			fmt.Fprintf(tw, "%s\t%s\t-\t%s\t\t\t\n", row.ProductID, row.Name, row.Error)
			continue
		}
		tax := row.Display.Tax
		if row.Quote.Available && row.Quote.Tax.Type != pricing.TaxNone {
			tax += " (" + string(row.Quote.Tax.Type) + " " + row.Quote.Tax.Rate.String() + "%)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			row.ProductID, row.Name, row.Quantity, row.Display.UnitPrice, row.Display.Base, tax, row.Display.Total)
	}
	return tw.Flush()
}

func writeTiers(w io.Writer, products []catalog.Product) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tTYPE\tMOQ\tSTOCK\tFROM\tPRICE")
	for _, p := range products {
		cfg := p.Pricing
		if cfg.PriceType != pricing.PriceBulk || len(cfg.Tiers) == 0 {
			price := pricing.PriceOnRequest
			if !p.PriceMissing {
				price = pricing.FormatINR(cfg.SinglePrice)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t-\t%s\n", p.ID, cfg.PriceType, cfg.MinimumOrderQuantity, cfg.AvailableStock, price)
			continue
		}
		for _, t := range cfg.Tiers {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", p.ID, cfg.PriceType, cfg.MinimumOrderQuantity, cfg.AvailableStock, t.MinQty, pricing.FormatINR(t.Price))
		}
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
