// Package metadata keeps the off-chain registry of launched tokens and listed
// lending assets, keyed by coin type.
package metadata

import (
	"context"
	"errors"

	"github.com/mtlprog/swapkit/internal/domain"
)

// ErrNotFound indicates that no record exists for the coin type.
var ErrNotFound = errors.New("metadata record not found")

// ErrExists indicates that a record already exists for the coin type.
var ErrExists = errors.New("metadata record already exists")

// Store is the registry. Implementations give no transactional guarantees;
// callers treat writes as best-effort.
type Store interface {
	CreateToken(ctx context.Context, t domain.Token) error
	ListTokens(ctx context.Context) ([]domain.Token, error)
	GetToken(ctx context.Context, coinType domain.CoinType) (domain.Token, error)
	UpdateTokenStatus(ctx context.Context, coinType domain.CoinType, state domain.TokenState) error
	UpdateTokenPool(ctx context.Context, coinType domain.CoinType, pool domain.PoolInfo) error
	GetTokenPool(ctx context.Context, coinType domain.CoinType) (domain.PoolInfo, error)

	CreateLending(ctx context.Context, l domain.Lending) error
	ListLendings(ctx context.Context) ([]domain.Lending, error)
	GetLending(ctx context.Context, coinType domain.CoinType) (domain.Lending, error)
}
