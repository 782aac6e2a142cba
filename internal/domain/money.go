package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatNaira renders an amount the way the receipts do: ₦ prefix, comma
// thousands separators and no trailing fractional zeros.
func FormatNaira(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	text := amount.String()
	whole, frac, _ := strings.Cut(text, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac = strings.TrimRight(frac, "0"); frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + "₦" + b.String()
}
