package market

import (
	"strings"

	"github.com/shopspring/decimal"
)

const unknownChange = "N/A"

// FormattedPrice renders the price as US dollars, e.g. "$65,000.12".
func (c Coin) FormattedPrice() string {
	return FormatUSD(decimal.NewFromFloat(c.CurrentPrice))
}

// FormattedPriceChange renders the 24h change with a sign and at most two
// fraction digits, e.g. "+2.5%". Unknown changes render as "N/A".
func (c Coin) FormattedPriceChange() string {
	if c.PriceChangePercent24h == nil {
		return unknownChange
	}

	d := decimal.NewFromFloat(*c.PriceChangePercent24h)
	sign := "+"
	if d.IsNegative() {
		sign = "-"
	}
	return sign + d.Abs().Round(2).String() + "%"
}

// FormatUSD formats an amount with a dollar sign, thousands separators
// and two fraction digits.
func FormatUSD(amount decimal.Decimal) string {
	neg := amount.IsNegative()
	fixed := amount.Abs().StringFixed(2)

	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
