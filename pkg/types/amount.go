package types

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount is a human-scaled asset quantity (e.g. 1.5 coins, not wei).
// Conversion to and from smallest units goes through the asset's decimal
// exponent, which lives in configuration.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal value.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{d}
}

// ParseAmount parses a decimal string. Negative amounts are rejected.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("amount must not be negative: %s", s)
	}
	return Amount{d}, nil
}

// AmountFromWei converts a smallest-unit quantity into a human-scaled one.
func AmountFromWei(wei *big.Int, decimals int32) Amount {
	return Amount{decimal.NewFromBigInt(wei, -decimals)}
}

// ToWei converts the amount into smallest units, truncating any precision
// beyond the asset's decimals.
func (a Amount) ToWei(decimals int32) *big.Int {
	return a.Shift(decimals).BigInt()
}

// Cmp compares two amounts: -1 if a < b, 0 if equal, 1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.Decimal.Cmp(b.Decimal)
}

// IsZero returns true for a zero amount.
func (a Amount) IsZero() bool {
	return a.Decimal.IsZero()
}
