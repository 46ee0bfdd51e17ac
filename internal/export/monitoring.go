package export

import (
	"math/big"

	"github.com/samber/lo"

	"github.com/mtlprog/swapkit/internal/domain"
)

// monitoringRow summarizes a report as one dated row.
// Columns: Date | Funding | Pool Pending | Pool Created | Total Collected | Lending Assets
func monitoringRow(r Report) (header, row []any) {
	header = []any{"Date", "Funding", "Pool Pending", "Pool Created", "Total Collected " + r.Primary, "Lending Assets"}

	byStatus := lo.CountValuesBy(r.Tokens, func(t domain.Token) domain.TokenStatus { return t.Status })
	collected := domain.SumAmounts(lo.Map(r.Tokens, func(t domain.Token, _ int) *big.Int { return t.CollectedSUI })...)

	row = []any{
		r.At.UTC().Format("02.01.2006 15:04"),
		byStatus[domain.TokenStatusFunding],
		byStatus[domain.TokenStatusLiquidityPoolPending],
		byStatus[domain.TokenStatusLiquidityPoolCreated],
		toFloat(collected, r.Decimals),
		len(r.Lendings),
	}
	return header, row
}
