package domain

import (
	"fmt"
	"strings"
)

// CoinType is a fully qualified Move coin type such as "0x2::sui::SUI".
type CoinType string

// SUICoinType is the native gas coin.
const SUICoinType CoinType = "0x2::sui::SUI"

// Parts splits the type into its package address, module and struct name.
func (t CoinType) Parts() (address, module, name string, err error) {
	parts := strings.SplitN(string(t), "::", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed coin type %q", string(t))
	}
	return parts[0], parts[1], parts[2], nil
}

// Symbol returns the struct name, e.g. "TESTSUI" for "0x..::testsui::TESTSUI".
func (t CoinType) Symbol() string {
	_, _, name, err := t.Parts()
	if err != nil {
		return string(t)
	}
	return name
}

// Canonical returns the type with its address normalized to 32 bytes of lowercase hex.
func (t CoinType) Canonical() CoinType {
	addr, module, name, err := t.Parts()
	if err != nil {
		return t
	}
	return CoinType(NormalizeAddress(addr) + "::" + module + "::" + name)
}

// Equal compares two coin types after normalization.
func (t CoinType) Equal(other CoinType) bool {
	return t.Canonical() == other.Canonical()
}

// IsSUI reports whether this is the native gas coin.
func (t CoinType) IsSUI() bool {
	return t.Equal(SUICoinType)
}

// SortsAfter reports whether t orders after other when both are compared
// case-insensitively as written. The lending market registers a pair's
// assets in this order.
func (t CoinType) SortsAfter(other CoinType) bool {
	return strings.ToLower(string(t)) > strings.ToLower(string(other))
}

// NormalizeAddress lowercases a hex address and left-pads it to 64 hex digits.
func NormalizeAddress(addr string) string {
	hex := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(addr)), "0x")
	if len(hex) < 64 {
		hex = strings.Repeat("0", 64-len(hex)) + hex
	}
	return "0x" + hex
}

// Direction is the side of a trade from the user's point of view.
type Direction string

const (
	// DirectionBuy pays the primary coin and receives the token.
	DirectionBuy Direction = "buy"
	// DirectionSell pays the token and receives the primary coin.
	DirectionSell Direction = "sell"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Pair resolves the paid and received coin types for a trade against token.
func (d Direction) Pair(primary, token CoinType) (pay, receive CoinType) {
	if d == DirectionSell {
		return token, primary
	}
	return primary, token
}
