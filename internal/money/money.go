// Package money handles amount parsing, currency rounding, and balance
// tolerances for bill amounts.
//
// Amounts are decimal.Decimal values, never floats: bill math has to be
// exact to the minor unit of the currency (cent, yen, ...). User-typed
// amounts arrive as free-text strings and are parsed leniently — garbage
// never crashes, but the parse result is typed so callers can tell
// "entered zero" apart from "not a number".
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies are ISO 4217 codes with no minor unit.
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true,
	"JPY": true, "KMF": true, "KRW": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

// Exponent returns the number of minor-unit digits for a currency code
// (2 for most currencies, 0 for zero-decimal currencies like JPY).
// Unknown or empty codes default to 2.
func Exponent(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// Tolerance returns one minor unit of the currency, the maximum difference
// at which two amounts are still considered equal for balancing.
func Tolerance(currency string) decimal.Decimal {
	return decimal.New(1, -Exponent(currency))
}

// ParseAmount parses a user-typed amount string. It trims whitespace and
// accepts a comma as the decimal separator. Returns (0, false) for empty
// or unparsable input; it never panics or errors on malformed text.
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	// Users on comma-decimal locales type "12,50".
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// RoundAmount rounds an amount to the currency's minor unit.
func RoundAmount(d decimal.Decimal, currency string) decimal.Decimal {
	return d.Round(Exponent(currency))
}

// FormatAmount renders an amount with the currency's minor-unit digits
// ("33.33" for USD, "500" for JPY).
func FormatAmount(d decimal.Decimal, currency string) string {
	return d.StringFixed(Exponent(currency))
}

// WithinTolerance reports whether a and b differ by strictly less than
// one minor unit of the currency.
func WithinTolerance(a, b decimal.Decimal, currency string) bool {
	return a.Sub(b).Abs().Cmp(Tolerance(currency)) < 0
}

// SplitEvenly divides total into n amounts that sum exactly to total.
// The division happens in minor units; leftover units go to the first
// len(total minor units) mod n amounts, so the allocation is
// deterministic and never drifts by a penny. Returns nil when n <= 0 or
// total is negative.
func SplitEvenly(total decimal.Decimal, n int, currency string) []decimal.Decimal {
	if n <= 0 || total.IsNegative() {
		return nil
	}
	exp := Exponent(currency)
	minor := total.Shift(exp).IntPart()
	base := minor / int64(n)
	remainder := minor % int64(n)

	amounts := make([]decimal.Decimal, n)
	for i := 0; i < n; i++ {
		units := base
		if int64(i) < remainder {
			units++
		}
		amounts[i] = decimal.New(units, -exp)
	}
	return amounts
}
