// Package pump describes the calls and on-chain state of the bonding-curve
// launch contract.
package pump

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/samber/lo"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/txn"
)

const (
	module = "pumpsui_core"

	// ClockID is the shared system clock object.
	ClockID = "0x6"
)

// ErrGraduationNotConfigured means the AMM object ids needed to open a
// liquidity pool are missing.
var ErrGraduationNotConfigured = errors.New("liquidity pool objects not configured")

// Contract holds the package and shared object ids of a deployment.
type Contract struct {
	Package             string
	CetusGlobalConfigID string
	CetusPoolsID        string
}

// TradeCall returns the buy or sell call against token's bonding pool. Its
// payment argument is the funded coin.
func (c Contract) TradeCall(token domain.Token, dir domain.Direction) (txn.Call, error) {
	if err := token.RequireTradeObjects(); err != nil {
		return txn.Call{}, err
	}
	if !dir.Valid() {
		return txn.Call{}, fmt.Errorf("unknown direction %q", dir)
	}
	return txn.Call{
		Target:        c.target(string(dir)),
		TypeArguments: []string{string(token.Type)},
		Arguments: []txn.CallArg{
			txn.Obj(token.PoolID),
			txn.Obj(token.TreasuryCapHolderID),
			txn.Payment(),
		},
	}, nil
}

// CreatePoolCall opens the AMM liquidity pool for a token whose funding goal
// has been reached.
func (c Contract) CreatePoolCall(token domain.Token) (txn.Call, error) {
	if err := token.RequireTradeObjects(); err != nil {
		return txn.Call{}, err
	}
	if c.CetusGlobalConfigID == "" || c.CetusPoolsID == "" {
		return txn.Call{}, ErrGraduationNotConfigured
	}
	return txn.Call{
		Target:        c.target("create_cetus_pool"),
		TypeArguments: []string{string(token.Type)},
		Arguments: []txn.CallArg{
			txn.Obj(c.CetusGlobalConfigID),
			txn.Obj(c.CetusPoolsID),
			txn.Obj(token.PoolID),
			txn.Obj(token.TreasuryCapHolderID),
			txn.ReadOnly(ClockID),
		},
	}, nil
}

func (c Contract) target(function string) string {
	return c.Package + "::" + module + "::" + function
}

// Fields is the subset of an object's Move fields this package reads.
type Fields interface {
	StringField(name string) (string, bool)
}

// DecodeState reads total supply, collected primary coin and status from a
// bonding pool object.
func DecodeState(pool Fields) (domain.TokenState, error) {
	supply, err := bigField(pool, "total_supply")
	if err != nil {
		return domain.TokenState{}, err
	}
	collected, err := bigField(pool, "collected_sui")
	if err != nil {
		return domain.TokenState{}, err
	}
	raw, ok := pool.StringField("status")
	if !ok {
		return domain.TokenState{}, errors.New("pool has no status field")
	}
	status, err := domain.ParseTokenStatus(raw)
	if err != nil {
		return domain.TokenState{}, err
	}
	return domain.TokenState{TotalSupply: supply, CollectedSUI: collected, Status: status}, nil
}

func bigField(f Fields, name string) (*big.Int, error) {
	s, ok := f.StringField(name)
	if !ok {
		return nil, fmt.Errorf("pool has no %s field", name)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("pool field %s: invalid integer %q", name, s)
	}
	return v, nil
}

// CrossesThreshold reports whether events announce a status other than
// current for token.
func CrossesThreshold(events []domain.Event, token domain.Token) bool {
	current := token.Status
	if current == "" {
		current = domain.TokenStatusFunding
	}
	return lo.ContainsBy(events, func(ev domain.Event) bool {
		se, ok := ev.(domain.StatusEvent)
		if !ok || (se.TokenType != "" && !se.TokenType.Equal(token.Type)) {
			return false
		}
		return se.Status != current
	})
}
