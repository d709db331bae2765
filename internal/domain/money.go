// internal/domain/money.go
package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// The exchange rate is pinned to 1,983,711 µPatrons = $8,185.96.
var (
	rateMicropatrons = decimal.NewFromInt(1983711)
	rateDollars      = decimal.RequireFromString("8185.96")
)

// ToDollars converts a µPatron amount into dollars, rounded to cents.
func ToDollars(micropatrons int64) decimal.Decimal {
	return decimal.NewFromInt(micropatrons).Mul(rateDollars).Div(rateMicropatrons).Round(2)
}

// FormatNumber groups digits in thousands, e.g. "20,000".
func FormatNumber(amount int64) string {
	return groupThousands(decimal.NewFromInt(amount).String())
}

// FormatMicropatrons renders e.g. "200,000 µPatrons".
func FormatMicropatrons(amount int64) string {
	return FormatNumber(amount) + " µPatrons"
}

// FormatDollars renders e.g. "$825.32".
func FormatDollars(micropatrons int64) string {
	s := ToDollars(micropatrons).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

// FormatWithDollars renders e.g. "200,000 µPatrons ($825.32)".
func FormatWithDollars(micropatrons int64) string {
	return FormatMicropatrons(micropatrons) + " (" + FormatDollars(micropatrons) + ")"
}

func groupThousands(digits string) string {
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if len(digits) <= 3 {
		return sign + digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return sign + b.String()
}
