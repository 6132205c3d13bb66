package token

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var maxAmount = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// UIAmount converts base units into a decimal amount using the mint decimals.
func UIAmount(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

// FormatAmount renders base units with exactly decimals fractional digits.
func FormatAmount(amount uint64, decimals uint8) string {
	return UIAmount(amount, decimals).StringFixed(int32(decimals))
}

// ParseUIAmount converts a decimal string such as "12.50" into base units.
// The value must be non-negative, representable in uint64, and carry no
// more fractional digits than decimals.
func ParseUIAmount(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("parse amount %q: negative", s)
	}
	units := d.Shift(int32(decimals))
	if !units.IsInteger() {
		return 0, fmt.Errorf("parse amount %q: more than %d decimal places", s, decimals)
	}
	if units.GreaterThan(maxAmount) {
		return 0, fmt.Errorf("parse amount %q: %w", s, ErrOverflow)
	}
	return units.BigInt().Uint64(), nil
}
