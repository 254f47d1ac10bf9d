// Package price turns scraped price strings into comparable numbers.
package price

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Unknown is the price text used when no strategy produced a confident value.
const Unknown = "unknown"

// Normalize parses a human-readable price such as "$1,299.00" or "EGP749.29".
// Everything except digits, commas and dots is dropped, commas are treated as
// thousands separators and only the last dot is kept as the decimal point.
// The boolean is false when no digits remain, the remainder does not parse
// or the value does not fit a finite float64.
func Normalize(text string) (float64, bool) {
	cleaned := Digits(text, true)
	if !strings.ContainsAny(cleaned, "0123456789") {
		return 0, false
	}

	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if i := strings.LastIndex(cleaned, "."); i >= 0 {
		cleaned = strings.ReplaceAll(cleaned[:i], ".", "") + cleaned[i:]
	}
	cleaned = strings.TrimSuffix(cleaned, ".")
	if strings.HasPrefix(cleaned, ".") {
		cleaned = "0" + cleaned
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Digits strips text down to ASCII digits. With separators set, commas and
// dots are kept as well.
func Digits(text string, separators bool) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case separators && (r == ',' || r == '.'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsZeroOrEmpty reports whether the digit-only content of text is empty or
// numerically zero.
func IsZeroOrEmpty(text string) bool {
	return strings.Trim(Digits(text, false), "0") == ""
}
