package lending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/mtlprog/swapkit/internal/coinselect"
	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/sui"
	"github.com/mtlprog/swapkit/internal/txn"
)

// ErrPoolNotCreated means an add-asset transaction committed without
// creating a lending pool object.
var ErrPoolNotCreated = errors.New("lending pool not created")

// Ledger is the subset of the ledger client lending needs.
type Ledger interface {
	ListCoins(ctx context.Context, owner string, coinType domain.CoinType) ([]domain.Coin, error)
	Execute(ctx context.Context, intent *txn.Intent, signer sui.Signer) (sui.Receipt, error)
	WaitForTransaction(ctx context.Context, digest string) (sui.Receipt, error)
	GetObject(ctx context.Context, id string) (sui.Object, error)
}

// Registry records listed assets.
type Registry interface {
	CreateLending(ctx context.Context, l domain.Lending) error
}

// Service submits lending transactions for one signer.
type Service struct {
	ledger   Ledger
	registry Registry
	signer   sui.Signer
	market   Market
}

// NewService creates a lending Service. registry may be nil.
func NewService(ledger Ledger, signer sui.Signer, market Market, registry Registry) *Service {
	if ledger == nil {
		panic("lending.NewService: ledger must not be nil")
	}
	if signer == nil {
		panic("lending.NewService: signer must not be nil")
	}
	return &Service{ledger: ledger, registry: registry, signer: signer, market: market}
}

// Compose builds the transaction for action. Supply and repay are funded
// from the sender's coins of the asset.
func (s *Service) Compose(ctx context.Context, action Action, asset domain.Lending, amount *big.Int) (*txn.Intent, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidAmount)
	}
	call, err := s.market.Call(action, asset, amount)
	if err != nil {
		return nil, err
	}
	sender := s.signer.Address()
	if !action.Funded() {
		return txn.ComposeCalls(sender, call)
	}

	coins, err := s.ledger.ListCoins(ctx, sender, asset.Type)
	if err != nil {
		return nil, fmt.Errorf("listing %s coins: %w", asset.Symbol, err)
	}
	plan, err := coinselect.Select(coins, amount)
	if err != nil {
		return nil, err
	}
	return txn.Compose(sender, plan, call)
}

// Do composes and submits action and waits for finality.
func (s *Service) Do(ctx context.Context, action Action, asset domain.Lending, amount *big.Int) (sui.Receipt, error) {
	intent, err := s.Compose(ctx, action, asset, amount)
	if err != nil {
		return sui.Receipt{}, err
	}
	receipt, err := s.submit(ctx, intent)
	if err != nil {
		return sui.Receipt{}, fmt.Errorf("%s %s: %w", action, asset.Symbol, err)
	}
	slog.Info("Lending: committed", "action", action, "asset", asset.Symbol, "amount", amount, "digest", receipt.Digest)
	return receipt, nil
}

// AddAsset lists asset in the market and records the created lending pool.
// A registry failure is logged; the returned record is still complete.
func (s *Service) AddAsset(ctx context.Context, asset domain.Lending, bondingPoolID string) (domain.Lending, error) {
	call, err := s.market.AddAssetCall(asset.Type, bondingPoolID)
	if err != nil {
		return domain.Lending{}, err
	}
	intent, err := txn.ComposeCalls(s.signer.Address(), call)
	if err != nil {
		return domain.Lending{}, err
	}
	receipt, err := s.submit(ctx, intent)
	if err != nil {
		return domain.Lending{}, fmt.Errorf("adding %s: %w", asset.Symbol, err)
	}

	created := receipt.Created("::LendingPool<")
	if len(created) == 0 {
		return domain.Lending{}, fmt.Errorf("%w: transaction %s", ErrPoolNotCreated, receipt.Digest)
	}
	asset.LendingPoolID = created[0].ObjectID

	if s.registry != nil {
		if err := s.registry.CreateLending(context.WithoutCancel(ctx), asset); err != nil {
			slog.Warn("Lending: recording lending pool failed", "asset", asset.Symbol, "pool", asset.LendingPoolID, "error", err)
		}
	}
	slog.Info("Lending: asset added", "asset", asset.Symbol, "pool", asset.LendingPoolID, "digest", receipt.Digest)
	return asset, nil
}

// Pool reads the current state of asset's lending pool.
func (s *Service) Pool(ctx context.Context, asset domain.Lending) (PoolStats, error) {
	if asset.LendingPoolID == "" {
		return PoolStats{}, fmt.Errorf("%w: %s has no lending pool", domain.ErrIncompleteAssetMetadata, asset.Symbol)
	}
	obj, err := s.ledger.GetObject(ctx, asset.LendingPoolID)
	if err != nil {
		return PoolStats{}, err
	}
	stats, err := DecodePool(obj)
	if err != nil {
		return PoolStats{}, fmt.Errorf("decoding lending pool %s: %w", asset.LendingPoolID, err)
	}
	return stats, nil
}

func (s *Service) submit(ctx context.Context, intent *txn.Intent) (sui.Receipt, error) {
	receipt, err := s.ledger.Execute(ctx, intent, s.signer)
	if err != nil {
		return sui.Receipt{}, err
	}
	final, err := s.ledger.WaitForTransaction(context.WithoutCancel(ctx), receipt.Digest)
	if err != nil {
		slog.Warn("Lending: finality wait failed, using execution receipt", "digest", receipt.Digest, "error", err)
		final = receipt
	}
	if err := final.Err(); err != nil {
		return final, err
	}
	return final, nil
}
