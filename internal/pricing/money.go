package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FormatINR renders an amount in rupees with Indian digit grouping, e.g. ₹1,23,456.50.
func FormatINR(amount decimal.Decimal) string {
	fixed := amount.Round(2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + "₹" + groupIndian(whole) + "." + frac
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(groups, ",") + "," + tail
}

// DiscountPercent returns the whole-percent markdown of price against originalPrice,
// or 0 when there is no markdown.
func DiscountPercent(price, originalPrice decimal.Decimal) int {
	if !originalPrice.IsPositive() || !price.LessThan(originalPrice) {
		return 0
	}
	off := originalPrice.Sub(price).Div(originalPrice).Mul(hundred)
	return int(off.Round(0).IntPart())
}
