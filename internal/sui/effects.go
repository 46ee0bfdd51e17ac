package sui

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/swapkit/internal/domain"
)

// ErrExecutionFailed means the transaction ran and failed for a reason other
// than a Move abort, e.g. running out of gas.
var ErrExecutionFailed = errors.New("execution failed")

// ObjectChange is an object created, mutated or deleted by a transaction.
type ObjectChange struct {
	Type       string `json:"type"`
	ObjectID   string `json:"objectId"`
	ObjectType string `json:"objectType"`
}

// Effects are the observable results of a simulated or executed transaction.
type Effects struct {
	Success        bool
	Error          string
	Abort          *domain.AbortError
	BalanceChanges []domain.BalanceChange
	Events         []domain.Event
	ObjectChanges  []ObjectChange
}

// Err returns the abort, a generic execution failure, or nil on success.
func (e Effects) Err() error {
	if e.Success {
		return nil
	}
	if e.Abort != nil {
		return e.Abort
	}
	return fmt.Errorf("%w: %s", ErrExecutionFailed, e.Error)
}

// BalanceChange returns the net change of owner's holdings of coinType.
func (e Effects) BalanceChange(owner string, coinType domain.CoinType) *big.Int {
	total := new(big.Int)
	for _, bc := range e.BalanceChanges {
		if domain.NormalizeAddress(bc.Owner) == domain.NormalizeAddress(owner) && bc.CoinType.Equal(coinType) {
			total.Add(total, bc.Amount)
		}
	}
	return total
}

// Created returns the created objects whose type contains typeFragment.
func (e Effects) Created(typeFragment string) []ObjectChange {
	return lo.Filter(e.ObjectChanges, func(oc ObjectChange, _ int) bool {
		return oc.Type == "created" && strings.Contains(oc.ObjectType, typeFragment)
	})
}

// buildEffects converts the node's raw effect records into Effects,
// parsing the abort out of a failed status.
func buildEffects(status executionStatus, events []rawEvent, balances []rawBalanceChange, objects []rawObjectChange) (Effects, error) {
	eff := Effects{
		Success: status.Status == "success",
		Error:   status.Error,
		Events:  decodeEvents(events),
	}
	if !eff.Success {
		eff.Abort = parseAbort(status.Error)
	}

	for _, b := range balances {
		owner, err := parseOwner(b.Owner)
		if err != nil {
			return Effects{}, fmt.Errorf("balance change owner: %w", err)
		}
		amount, ok := new(big.Int).SetString(b.Amount, 10)
		if !ok {
			return Effects{}, fmt.Errorf("parsing balance change %q", b.Amount)
		}
		eff.BalanceChanges = append(eff.BalanceChanges, domain.BalanceChange{
			Owner:    owner.Address,
			CoinType: domain.CoinType(b.CoinType),
			Amount:   amount,
		})
	}
	for _, o := range objects {
		eff.ObjectChanges = append(eff.ObjectChanges, ObjectChange{Type: o.Type, ObjectID: o.ObjectID, ObjectType: o.ObjectType})
	}
	return eff, nil
}
