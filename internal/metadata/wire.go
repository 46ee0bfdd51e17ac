package metadata

import (
	"fmt"
	"math/big"

	"github.com/mtlprog/swapkit/internal/domain"
)

// tokenRecord is a token as the registry service serializes it: amounts as
// decimal strings and the AMM position fields flattened into the record.
type tokenRecord struct {
	ID                  string  `json:"id,omitempty"`
	Name                string  `json:"name"`
	Symbol              string  `json:"symbol"`
	Type                string  `json:"type"`
	Icon                string  `json:"icon"`
	Decimals            int32   `json:"decimals"`
	TreasuryCapHolderID string  `json:"treasuryCapHolderId"`
	CollateralID        string  `json:"collateralId"`
	MetadataID          string  `json:"metadataId"`
	PoolID              string  `json:"poolId,omitempty"`
	TotalSupply         string  `json:"totalSupply"`
	CollectedSUI        string  `json:"collectedSui"`
	Status              string  `json:"status"`
	PositionID          *string `json:"positionId,omitempty"`
	TickLower           *int32  `json:"tickLower,omitempty"`
	TickUpper           *int32  `json:"tickUpper,omitempty"`
	Liquidity           *string `json:"liquidity,omitempty"`
}

func (r tokenRecord) token() (domain.Token, error) {
	t := domain.Token{
		ID:                  r.ID,
		Name:                r.Name,
		Symbol:              r.Symbol,
		Type:                domain.CoinType(r.Type),
		Icon:                r.Icon,
		Decimals:            r.Decimals,
		TreasuryCapHolderID: r.TreasuryCapHolderID,
		CollateralID:        r.CollateralID,
		MetadataID:          r.MetadataID,
		PoolID:              r.PoolID,
		Status:              domain.TokenStatus(r.Status),
	}
	var err error
	if t.TotalSupply, err = parseAmount(r.TotalSupply); err != nil {
		return domain.Token{}, fmt.Errorf("token %s total supply: %w", r.Type, err)
	}
	if t.CollectedSUI, err = parseAmount(r.CollectedSUI); err != nil {
		return domain.Token{}, fmt.Errorf("token %s collected: %w", r.Type, err)
	}
	if r.PositionID != nil {
		t.Liquidity = &domain.PoolInfo{PoolID: r.PoolID, PositionID: *r.PositionID}
		if r.TickLower != nil {
			t.Liquidity.TickLower = *r.TickLower
		}
		if r.TickUpper != nil {
			t.Liquidity.TickUpper = *r.TickUpper
		}
		if r.Liquidity != nil {
			t.Liquidity.Liquidity = *r.Liquidity
		}
	}
	return t, nil
}

func recordFromToken(t domain.Token) tokenRecord {
	return tokenRecord{
		Name:                t.Name,
		Symbol:              t.Symbol,
		Type:                string(t.Type),
		Icon:                t.Icon,
		Decimals:            t.Decimals,
		TreasuryCapHolderID: t.TreasuryCapHolderID,
		CollateralID:        t.CollateralID,
		MetadataID:          t.MetadataID,
		PoolID:              t.PoolID,
		TotalSupply:         amountString(t.TotalSupply),
		CollectedSUI:        amountString(t.CollectedSUI),
		Status:              string(t.Status),
	}
}

// statusRecord is the body of a status update.
type statusRecord struct {
	TotalSupply  string `json:"totalSupply"`
	CollectedSUI string `json:"collectedSui"`
	Status       string `json:"status"`
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
