package lending

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Fields is the subset of an object's Move fields this package reads.
type Fields interface {
	StringField(name string) (string, bool)
}

// PoolStats is the decoded state of a lending pool object.
type PoolStats struct {
	Reserves      *big.Int
	TotalSupplies *big.Int
	TotalBorrows  *big.Int
	BorrowIndex   string
	SupplyIndex   string
	// Rates are annual percentages.
	BorrowRate decimal.Decimal
	SupplyRate decimal.Decimal
	LastUpdate time.Time
}

// rateScale is the on-chain denominator of rate fields (basis points of 1).
var rateScale = decimal.NewFromInt(10_000)

// DecodePool reads a lending pool's fields. Missing amounts read as zero.
func DecodePool(pool Fields) (PoolStats, error) {
	var stats PoolStats
	var err error
	if stats.Reserves, err = amountField(pool, "reserves"); err != nil {
		return PoolStats{}, err
	}
	if stats.TotalSupplies, err = amountField(pool, "total_supplies"); err != nil {
		return PoolStats{}, err
	}
	if stats.TotalBorrows, err = amountField(pool, "total_borrows"); err != nil {
		return PoolStats{}, err
	}
	stats.BorrowIndex, _ = pool.StringField("borrow_index")
	stats.SupplyIndex, _ = pool.StringField("supply_index")

	if stats.BorrowRate, err = rateField(pool, "borrow_rate"); err != nil {
		return PoolStats{}, err
	}
	if stats.SupplyRate, err = rateField(pool, "supply_rate"); err != nil {
		return PoolStats{}, err
	}

	if s, ok := pool.StringField("last_update_time"); ok && s != "" {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return PoolStats{}, fmt.Errorf("last_update_time: %w", err)
		}
		stats.LastUpdate = time.UnixMilli(ms).UTC()
	}
	return stats, nil
}

// Utilization is borrows over supplies as a percentage.
func (p PoolStats) Utilization() decimal.Decimal {
	if p.TotalSupplies == nil || p.TotalSupplies.Sign() == 0 || p.TotalBorrows == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(p.TotalBorrows, 0).
		Div(decimal.NewFromBigInt(p.TotalSupplies, 0)).
		Mul(decimal.NewFromInt(100))
}

func amountField(f Fields, name string) (*big.Int, error) {
	s, ok := f.StringField(name)
	if !ok || s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q", name, s)
	}
	return v, nil
}

func rateField(f Fields, name string) (decimal.Decimal, error) {
	s, ok := f.StringField(name)
	if !ok || s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	return d.Div(rateScale).Mul(decimal.NewFromInt(100)), nil
}
