package helpers

import (
	"github.com/shopspring/decimal"
)

// FormatChangePercent renders a percentage with two decimals and an explicit sign,
// e.g. "+0.00%", "+2.35%", "-1.50%". The sign follows the unrounded value and zero
// counts as positive.
func FormatChangePercent(pct decimal.Decimal) string {
	if pct.IsNegative() {
		return "-" + pct.Abs().StringFixed(2) + "%"
	}
	return "+" + pct.StringFixed(2) + "%"
}

// RoundPrice rounds a price to cents for display.
func RoundPrice(price decimal.Decimal) float64 {
	f, _ := price.Round(2).Float64()
	return f
}
