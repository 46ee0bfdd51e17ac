package domain

import (
	"fmt"
	"math/big"
)

// TokenStatus is the lifecycle stage of a launched token.
type TokenStatus string

const (
	TokenStatusFunding              TokenStatus = "FUNDING"
	TokenStatusLiquidityPoolPending TokenStatus = "LIQUIDITY_POOL_PENDING"
	TokenStatusLiquidityPoolCreated TokenStatus = "LIQUIDITY_POOL_CREATED"
)

// Token is the metadata record of a launched token.
type Token struct {
	ID                  string      `json:"id,omitempty"`
	Name                string      `json:"name"`
	Symbol              string      `json:"symbol"`
	Type                CoinType    `json:"type"`
	Icon                string      `json:"icon"`
	Decimals            int32       `json:"decimals"`
	TreasuryCapHolderID string      `json:"treasuryCapHolderId,omitempty"`
	CollateralID        string      `json:"collateralId,omitempty"`
	MetadataID          string      `json:"metadataId,omitempty"`
	PoolID              string      `json:"poolId,omitempty"`
	Status              TokenStatus `json:"status"`
	TotalSupply         *big.Int    `json:"-"`
	CollectedSUI        *big.Int    `json:"-"`
	Liquidity           *PoolInfo   `json:"liquidity,omitempty"`
}

// RequireTradeObjects checks that the bonding-curve pool and treasury cap
// holder identifiers are present.
func (t Token) RequireTradeObjects() error {
	if t.TreasuryCapHolderID == "" || t.PoolID == "" {
		return fmt.Errorf("%w: %s has no pool or treasury cap holder", ErrIncompleteAssetMetadata, t.Symbol)
	}
	return nil
}

// TokenState is the authoritative post-trade state read back from the ledger.
type TokenState struct {
	TotalSupply  *big.Int
	CollectedSUI *big.Int
	Status       TokenStatus
}

// PoolInfo describes the AMM position opened when a token graduates.
type PoolInfo struct {
	PoolID     string `json:"poolId"`
	PositionID string `json:"positionId"`
	TickLower  int32  `json:"tickLower"`
	TickUpper  int32  `json:"tickUpper"`
	Liquidity  string `json:"liquidity"`
}

// Lending is the metadata record of an asset listed in the lending market.
type Lending struct {
	ID                   string   `json:"id,omitempty"`
	Name                 string   `json:"name"`
	Symbol               string   `json:"symbol"`
	Type                 CoinType `json:"type"`
	Icon                 string   `json:"icon"`
	Decimals             int32    `json:"decimals"`
	MetadataID           string   `json:"metadataId"`
	LendingPoolID        string   `json:"lendingPoolId"`
	LTV                  int      `json:"ltv"`
	LiquidationThreshold int      `json:"liquidation_threshold"`
}

// ParseTokenStatus accepts the on-chain status code (0, 1, 2) or its name.
func ParseTokenStatus(s string) (TokenStatus, error) {
	switch s {
	case "0", string(TokenStatusFunding):
		return TokenStatusFunding, nil
	case "1", string(TokenStatusLiquidityPoolPending):
		return TokenStatusLiquidityPoolPending, nil
	case "2", string(TokenStatusLiquidityPoolCreated):
		return TokenStatusLiquidityPoolCreated, nil
	}
	return "", fmt.Errorf("unknown token status %q", s)
}
