// Package export writes token and lending status reports to spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/lending"
)

// Report is one export run.
type Report struct {
	At       time.Time
	Primary  string
	Decimals int32
	Tokens   []domain.Token
	Lendings []LendingRow
}

// LendingRow is a listed asset with its pool state, when it could be read.
type LendingRow struct {
	domain.Lending
	Stats *lending.PoolStats
}

// SheetWriter writes a report to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, report Report) error
}

// Registry is the metadata store the report is read from.
type Registry interface {
	ListTokens(ctx context.Context) ([]domain.Token, error)
	ListLendings(ctx context.Context) ([]domain.Lending, error)
}

// PoolReader reads a lending pool. *lending.Service implements it.
type PoolReader interface {
	Pool(ctx context.Context, asset domain.Lending) (lending.PoolStats, error)
}

// Service assembles reports and delegates writing to a SheetWriter.
type Service struct {
	registry Registry
	pools    PoolReader // optional
	writer   SheetWriter
	primary  domain.CoinType
	now      func() time.Time
}

// NewService creates a new export Service. pools may be nil.
func NewService(registry Registry, pools PoolReader, writer SheetWriter, primary domain.CoinType) *Service {
	if registry == nil || writer == nil {
		panic("export: nil registry or writer")
	}
	return &Service{registry: registry, pools: pools, writer: writer, primary: primary, now: time.Now}
}

// Export reads the registry and writes a full report.
func (s *Service) Export(ctx context.Context) error {
	tokens, err := s.registry.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("listing tokens: %w", err)
	}
	return s.ExportTokens(ctx, tokens)
}

// ExportTokens writes a report for tokens, already reconciled by the caller.
// Implements worker.AfterSyncHook.
func (s *Service) ExportTokens(ctx context.Context, tokens []domain.Token) error {
	lendings, err := s.registry.ListLendings(ctx)
	if err != nil {
		return fmt.Errorf("listing lendings: %w", err)
	}

	rows := lo.Map(lendings, func(l domain.Lending, _ int) LendingRow {
		row := LendingRow{Lending: l}
		if s.pools == nil || l.LendingPoolID == "" {
			return row
		}
		stats, err := s.pools.Pool(ctx, l)
		if err != nil {
			slog.Warn("export: lending pool unavailable", "asset", l.Symbol, "error", err)
			return row
		}
		row.Stats = &stats
		return row
	})

	return s.writer.Write(ctx, Report{
		At:       s.now().UTC(),
		Primary:  s.primary.Symbol(),
		Decimals: domain.PrimaryDecimals,
		Tokens:   tokens,
		Lendings: rows,
	})
}

const (
	tokensSheet   = "TOKENS"
	lendingsSheet = "LENDINGS"
)

// tokenTable builds the TOKENS sheet.
// Columns: Symbol | Name | Type | Status | Collected | Supply | Bonding Pool | AMM Pool | Position | Liquidity
func tokenTable(r Report) [][]any {
	data := make([][]any, 0, len(r.Tokens)+1)
	data = append(data, []any{
		"Symbol", "Name", "Type", "Status",
		"Collected " + r.Primary, "Supply",
		"Bonding Pool", "AMM Pool", "Position", "Liquidity",
	})
	for _, t := range r.Tokens {
		var ammPool, position, liquidity any
		if t.Liquidity != nil {
			ammPool, position, liquidity = t.Liquidity.PoolID, t.Liquidity.PositionID, t.Liquidity.Liquidity
		}
		data = append(data, []any{
			t.Symbol, t.Name, string(t.Type), string(t.Status),
			toFloat(t.CollectedSUI, r.Decimals), toFloat(t.TotalSupply, decimalsOr(t.Decimals, r.Decimals)),
			t.PoolID, ammPool, position, liquidity,
		})
	}
	return data
}

// lendingTable builds the LENDINGS sheet.
// Columns: Symbol | Type | Lending Pool | LTV | Liq. Threshold | Reserves | Supplied | Borrowed | Supply APR % | Borrow APR %
func lendingTable(r Report) [][]any {
	data := make([][]any, 0, len(r.Lendings)+1)
	data = append(data, []any{
		"Symbol", "Type", "Lending Pool", "LTV", "Liq. Threshold",
		"Reserves", "Supplied", "Borrowed", "Supply APR %", "Borrow APR %",
	})
	for _, l := range r.Lendings {
		row := []any{l.Symbol, string(l.Type), l.LendingPoolID, l.LTV, l.LiquidationThreshold}
		if l.Stats == nil {
			row = append(row, nil, nil, nil, nil, nil)
		} else {
			dec := decimalsOr(l.Decimals, r.Decimals)
			row = append(row,
				toFloat(l.Stats.Reserves, dec),
				toFloat(l.Stats.TotalSupplies, dec),
				toFloat(l.Stats.TotalBorrows, dec),
				decFloat(l.Stats.SupplyRate),
				decFloat(l.Stats.BorrowRate),
			)
		}
		data = append(data, row)
	}
	return data
}

func decimalsOr(d, fallback int32) int32 {
	if d > 0 {
		return d
	}
	return fallback
}

func toFloat(units *big.Int, decimals int32) float64 {
	if units == nil {
		return 0
	}
	return decFloat(decimal.NewFromBigInt(units, -decimals))
}

func decFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
