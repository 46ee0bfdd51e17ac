// Package lending builds and submits lending market transactions and reads
// lending pool state.
package lending

import (
	"fmt"
	"math/big"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/pump"
	"github.com/mtlprog/swapkit/internal/txn"
)

const module = "lending_core"

// Action is a position-changing operation on the lending market.
type Action string

const (
	ActionSupply   Action = "supply"
	ActionWithdraw Action = "withdraw"
	ActionBorrow   Action = "borrow"
	ActionRepay    Action = "repay"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionSupply, ActionWithdraw, ActionBorrow, ActionRepay:
		return true
	}
	return false
}

// Funded reports whether the action pays a coin into the market.
func (a Action) Funded() bool {
	return a == ActionSupply || a == ActionRepay
}

// Market holds the lending deployment's ids.
type Market struct {
	Package   string
	StorageID string
	Primary   domain.CoinType
}

// Call returns the move call for action on asset. Funded actions take the
// payment coin followed by the amount; the others take the amount only.
func (m Market) Call(action Action, asset domain.Lending, amount *big.Int) (txn.Call, error) {
	if !action.Valid() {
		return txn.Call{}, fmt.Errorf("unknown lending action %q", action)
	}
	if asset.LendingPoolID == "" {
		return txn.Call{}, fmt.Errorf("%w: %s has no lending pool", domain.ErrIncompleteAssetMetadata, asset.Symbol)
	}

	call := txn.Call{
		Arguments: []txn.CallArg{
			txn.ReadOnly(pump.ClockID),
			txn.Obj(m.StorageID),
			txn.Obj(asset.LendingPoolID),
		},
	}
	if asset.Type.Equal(m.Primary) {
		call.Target = m.target(string(action) + "_testsui")
	} else {
		call.Target = m.target(string(action) + "_token")
		call.TypeArguments = []string{string(asset.Type)}
	}
	if action.Funded() {
		call.Arguments = append(call.Arguments, txn.Payment())
	}
	call.Arguments = append(call.Arguments, txn.U64(amount))
	return call, nil
}

// AddAssetCall lists coinType in the market. Tokens are added as the A or
// B side of their pair with the primary coin by case-insensitive type order;
// bondingPoolID is the token's launch pool.
func (m Market) AddAssetCall(coinType domain.CoinType, bondingPoolID string) (txn.Call, error) {
	if coinType.Equal(m.Primary) {
		return txn.Call{
			Target:    m.target("add_testsui_asset"),
			Arguments: []txn.CallArg{txn.Obj(m.StorageID), txn.ReadOnly(pump.ClockID)},
		}, nil
	}
	if bondingPoolID == "" {
		return txn.Call{}, fmt.Errorf("%w: %s has no launch pool", domain.ErrIncompleteAssetMetadata, coinType.Symbol())
	}
	function := "add_token_asset_b"
	if coinType.SortsAfter(m.Primary) {
		function = "add_token_asset_a"
	}
	return txn.Call{
		Target:        m.target(function),
		TypeArguments: []string{string(coinType)},
		Arguments:     []txn.CallArg{txn.Obj(m.StorageID), txn.Obj(bondingPoolID), txn.ReadOnly(pump.ClockID)},
	}, nil
}

func (m Market) target(function string) string {
	return m.Package + "::" + module + "::" + function
}
