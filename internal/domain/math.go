package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// PrimaryDecimals is the precision of the primary coin and of every token
// minted through the launch contract.
const PrimaryDecimals int32 = 9

// IsBlankAmount reports whether text is empty or parses to zero.
// Unparsable text is not blank; it is reported by ParseAmount instead.
func IsBlankAmount(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return true
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return false
	}
	return d.IsZero()
}

// ParseAmount converts human decimal text into base units at the given precision.
// Digits beyond the precision are truncated.
func ParseAmount(text string, decimals int32) (*big.Int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, text)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, text)
	}
	return d.Shift(decimals).Truncate(0).BigInt(), nil
}

// FormatAmount renders base units as human decimal text, without trailing zeros.
func FormatAmount(units *big.Int, decimals int32) string {
	if units == nil {
		return "0"
	}
	return decimal.NewFromBigInt(units, -decimals).String()
}

// SumAmounts adds amounts; nil entries count as zero.
func SumAmounts(amounts ...*big.Int) *big.Int {
	return lo.Reduce(amounts, func(acc *big.Int, a *big.Int, _ int) *big.Int {
		if a == nil {
			return acc
		}
		return acc.Add(acc, a)
	}, new(big.Int))
}
