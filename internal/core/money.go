// Package core provides money parsing and handling utilities.
//
// Amounts are shopspring decimals. They are stored as canonical strings and
// serialized as bare JSON numbers.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied decimal string to an amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Negative values
// are rejected since the direction of a transaction lives in IsIncome.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrInvalidArgument)
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", ErrInvalidArgument, s)
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// SumAmounts adds the amounts of txs, ignoring direction.
func SumAmounts(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}

// FormatAmount renders an amount with two decimals for tables and sheets.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
