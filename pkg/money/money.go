package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance is the maximum absolute difference at which two monetary amounts
// are still considered equal. Journal entries are balanced to the cent.
var Tolerance = decimal.NewFromFloat(0.01)

// Zero is the zero amount.
var Zero = decimal.Zero

// Parse parses a monetary amount from its string form.
// Amounts are stored with two decimal places of precision.
func Parse(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Round(2), nil
}

// MustParse parses an amount and panics on failure. For fixtures and seed data only.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Equal reports whether a and b differ by less than Tolerance.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// IsZero reports whether the amount is zero within Tolerance.
func IsZero(a decimal.Decimal) bool {
	return a.Abs().LessThan(Tolerance)
}

// Format renders an amount with two decimal places.
func Format(a decimal.Decimal) string {
	return a.StringFixed(2)
}
