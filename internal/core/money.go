// Package core money handling.
//
// Amounts are stored as integer cents everywhere; decimal arithmetic is
// confined to the string boundary so balances compare exactly in tests.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmountToCents converts a decimal amount string to cents.
//
// It accepts both dot (12.34) and comma (12,34) separators and rounds
// half away from zero at the third decimal. Only strictly positive
// amounts are accepted.
//
// Examples:
//
//	ParseAmountToCents("12.34")  -> 1234, nil
//	ParseAmountToCents("12,345") -> 1235, nil (rounds up)
func ParseAmountToCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	v := cents.IntPart()
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// Decimal returns the amount as an exact two-decimal value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Cents).Div(hundred)
}

// String formats the amount as a plain decimal string, e.g. "12.34".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// FormatAmount renders cents with an ISO currency code, e.g. "EUR 12.34".
// Negative amounts keep the sign in front of the number.
func FormatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%s %s", currency, Money{Cents: cents}.String())
}
