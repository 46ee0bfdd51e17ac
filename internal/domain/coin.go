package domain

import "math/big"

// ObjectRef identifies one version of a ledger object.
type ObjectRef struct {
	ID      string `json:"objectId"`
	Version uint64 `json:"version"`
	Digest  string `json:"digest"`
}

// Coin is an owned value object holding Amount base units of Type.
// Coins are snapshots; only the ledger creates, merges or destroys them.
type Coin struct {
	ObjectRef
	Type   CoinType `json:"coinType"`
	Amount *big.Int `json:"amount"`
}

// TotalBalance sums the amounts of coins.
func TotalBalance(coins []Coin) *big.Int {
	total := new(big.Int)
	for _, c := range coins {
		if c.Amount != nil {
			total.Add(total, c.Amount)
		}
	}
	return total
}

// BalanceChange is the signed change of one owner's holdings of a coin type.
type BalanceChange struct {
	Owner    string   `json:"owner"`
	CoinType CoinType `json:"coinType"`
	Amount   *big.Int `json:"amount"`
}
