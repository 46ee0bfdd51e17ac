package sui

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/mtlprog/swapkit/internal/domain"
)

const coinPageLimit = 50

// ListCoins returns every coin of coinType owned by owner, in the order the
// node reports them. Each call reads current ownership; nothing is cached.
func (c *Client) ListCoins(ctx context.Context, owner string, coinType domain.CoinType) ([]domain.Coin, error) {
	var coins []domain.Coin
	var cursor *string

	for {
		var page coinPage
		params := []any{owner, string(coinType), cursor, coinPageLimit}
		if err := c.call(ctx, "suix_getCoins", params, &page); err != nil {
			return nil, fmt.Errorf("listing %s coins of %s: %w", coinType.Symbol(), owner, err)
		}

		for _, raw := range page.Data {
			amount, ok := new(big.Int).SetString(raw.Balance, 10)
			if !ok {
				return nil, fmt.Errorf("parsing balance of coin %s: %q", raw.CoinObjectID, raw.Balance)
			}
			version, err := strconv.ParseUint(raw.Version, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing version of coin %s: %w", raw.CoinObjectID, err)
			}
			coins = append(coins, domain.Coin{
				ObjectRef: domain.ObjectRef{ID: raw.CoinObjectID, Version: version, Digest: raw.Digest},
				Type:      domain.CoinType(raw.CoinType),
				Amount:    amount,
			})
		}

		if !page.HasNextPage || page.NextCursor == nil {
			return coins, nil
		}
		cursor = page.NextCursor
	}
}

// Balance returns the total of owner's coins of coinType.
func (c *Client) Balance(ctx context.Context, owner string, coinType domain.CoinType) (*big.Int, error) {
	var resp struct {
		TotalBalance string `json:"totalBalance"`
	}
	if err := c.call(ctx, "suix_getBalance", []any{owner, string(coinType)}, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s balance of %s: %w", coinType.Symbol(), owner, err)
	}
	total, ok := new(big.Int).SetString(resp.TotalBalance, 10)
	if !ok {
		return nil, fmt.Errorf("parsing total balance %q", resp.TotalBalance)
	}
	return total, nil
}

// ReferenceGasPrice returns the current epoch's reference gas price.
func (c *Client) ReferenceGasPrice(ctx context.Context) (uint64, error) {
	var raw string
	if err := c.call(ctx, "suix_getReferenceGasPrice", nil, &raw); err != nil {
		return 0, fmt.Errorf("fetching reference gas price: %w", err)
	}
	price, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing reference gas price %q: %w", raw, err)
	}
	return price, nil
}
