// Package coinselect turns a set of owned coins into a plan that realises an
// exact payment amount through merges and at most one split.
package coinselect

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/samber/lo"

	"github.com/mtlprog/swapkit/internal/domain"
)

// ErrInvalidTarget means the target amount is nil or not positive.
var ErrInvalidTarget = errors.New("invalid target amount")

// Plan describes how to obtain one coin holding exactly Target.
// Primary absorbs MergeSources (in order); if Change is non-nil, Target is
// then split off Primary and Change stays behind with the owner.
type Plan struct {
	Primary      domain.ObjectRef
	MergeSources []domain.ObjectRef
	Change       *big.Int
	Target       *big.Int
	CoinType     domain.CoinType
}

// NeedsSplit reports whether the plan splits the exact amount off the primary coin.
func (p Plan) NeedsSplit() bool {
	return p.Change != nil
}

// Consumed returns the ids of every coin the plan touches, primary first.
func (p Plan) Consumed() []string {
	ids := make([]string, 0, 1+len(p.MergeSources))
	ids = append(ids, p.Primary.ID)
	for _, ref := range p.MergeSources {
		ids = append(ids, ref.ID)
	}
	return ids
}

// Realized returns the amount the funded coin will hold.
func (p Plan) Realized(coins []domain.Coin) *big.Int {
	byID := make(map[string]*big.Int, len(coins))
	for _, c := range coins {
		byID[c.ID] = c.Amount
	}
	total := new(big.Int)
	for _, id := range p.Consumed() {
		if amt, ok := byID[id]; ok {
			total.Add(total, amt)
		}
	}
	if p.Change != nil {
		total.Sub(total, p.Change)
	}
	return total
}

// Select builds a plan for target from coins, considered in the given order:
//  1. a coin holding exactly target is used as is;
//  2. otherwise the first coin holding more than target is split;
//  3. otherwise coins are merged into the first one until the total covers
//     target, and any excess is split off.
func Select(coins []domain.Coin, target *big.Int) (Plan, error) {
	if target == nil || target.Sign() <= 0 {
		return Plan{}, ErrInvalidTarget
	}

	usable := lo.Filter(coins, func(c domain.Coin, _ int) bool {
		return c.Amount != nil && c.Amount.Sign() > 0
	})

	available := domain.TotalBalance(usable)
	if available.Cmp(target) < 0 {
		return Plan{}, fmt.Errorf("%w: need %s, have %s", domain.ErrInsufficientBalance, target, available)
	}

	coinType := usable[0].Type

	if c, ok := lo.Find(usable, func(c domain.Coin) bool { return c.Amount.Cmp(target) == 0 }); ok {
		return Plan{Primary: c.ObjectRef, Target: new(big.Int).Set(target), CoinType: coinType}, nil
	}

	if c, ok := lo.Find(usable, func(c domain.Coin) bool { return c.Amount.Cmp(target) > 0 }); ok {
		return Plan{
			Primary:  c.ObjectRef,
			Change:   new(big.Int).Sub(c.Amount, target),
			Target:   new(big.Int).Set(target),
			CoinType: coinType,
		}, nil
	}

	return accumulate(usable, target, coinType), nil
}

// accumulate merges coins in order until their total reaches target.
// The caller has already checked that the full set suffices.
func accumulate(coins []domain.Coin, target *big.Int, coinType domain.CoinType) Plan {
	plan := Plan{
		Primary:  coins[0].ObjectRef,
		Target:   new(big.Int).Set(target),
		CoinType: coinType,
	}
	total := new(big.Int).Set(coins[0].Amount)

	for _, c := range coins[1:] {
		if total.Cmp(target) >= 0 {
			break
		}
		plan.MergeSources = append(plan.MergeSources, c.ObjectRef)
		total.Add(total, c.Amount)
	}

	if total.Cmp(target) > 0 {
		plan.Change = new(big.Int).Sub(total, target)
	}
	return plan
}
