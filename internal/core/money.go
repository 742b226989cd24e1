// Package core holds the domain model for the bulk entry engine.
//
// This file contains money parsing and formatting helpers. All monetary
// arithmetic goes through shopspring/decimal; running totals are re-rounded
// to two places after every accumulation step so repeated addition of cent
// fractions never drifts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RoundMoney rounds to two decimal places, half away from zero. Every
// accumulation step in the aggregator passes through here, not just display.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount converts a user-entered amount cell to a decimal. Both dot
// and comma decimal separators are accepted; thousands separators are not.
// Negative and signed values are rejected, the entry kind already carries
// the direction.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return RoundMoney(d), nil
}

// FormatMoney renders an amount with the tenant currency symbol for
// operator-facing messages, e.g. "$1234.50". No thousands grouping.
func FormatMoney(symbol string, d decimal.Decimal) string {
	return symbol + d.StringFixed(2)
}
