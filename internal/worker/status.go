package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/pump"
	"github.com/mtlprog/swapkit/internal/sui"
)

// ObjectReader reads ledger objects.
type ObjectReader interface {
	GetObject(ctx context.Context, id string) (sui.Object, error)
}

// TokenStore is the registry the worker reconciles.
type TokenStore interface {
	ListTokens(ctx context.Context) ([]domain.Token, error)
	UpdateTokenStatus(ctx context.Context, coinType domain.CoinType, state domain.TokenState) error
}

// TokenObserver receives the reconciled token list. *metrics.Collectors implements it.
type TokenObserver interface {
	ObserveTokens(tokens []domain.Token)
}

// AfterSyncHook is called after each sync with the reconciled token list.
type AfterSyncHook interface {
	ExportTokens(ctx context.Context, tokens []domain.Token) error
}

// StatusWorker periodically re-reads the bonding pool of every token that has
// not yet graduated and writes the on-chain state back to the registry.
type StatusWorker struct {
	ledger   ObjectReader
	store    TokenStore
	interval time.Duration
	observer TokenObserver // optional
	hook     AfterSyncHook // optional
}

// NewStatusWorker creates a StatusWorker. observer and hook may be nil.
func NewStatusWorker(ledger ObjectReader, store TokenStore, interval time.Duration, observer TokenObserver, hook AfterSyncHook) *StatusWorker {
	if ledger == nil || store == nil {
		panic("worker: nil ledger or store")
	}
	return &StatusWorker{
		ledger:   ledger,
		store:    store,
		interval: interval,
		observer: observer,
		hook:     hook,
	}
}

// Run starts the status worker loop. It blocks until the context is cancelled.
func (w *StatusWorker) Run(ctx context.Context) {
	slog.Info("StatusWorker: starting", "interval", w.interval)

	// Sync immediately on startup
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("StatusWorker: shutting down")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *StatusWorker) runOnce(ctx context.Context) {
	tokens, err := w.Sync(ctx)
	if err != nil {
		slog.Error("StatusWorker: sync failed", "error", err)
		return
	}
	slog.Info("StatusWorker: sync completed", "tokens", len(tokens))
	w.runHook(ctx, tokens)
}

func (w *StatusWorker) runHook(ctx context.Context, tokens []domain.Token) {
	if w.hook == nil {
		return
	}
	if err := w.hook.ExportTokens(ctx, tokens); err != nil {
		slog.Error("StatusWorker: export hook failed", "error", err)
	} else {
		slog.Info("StatusWorker: export hook completed")
	}
}

// Sync reconciles every token still funding or awaiting its pool and returns
// the token list with the refreshed state applied. Per-token failures are
// logged and leave that token unchanged.
func (w *StatusWorker) Sync(ctx context.Context) ([]domain.Token, error) {
	tokens, err := w.store.ListTokens(ctx)
	if err != nil {
		return nil, err
	}

	pending := lo.Filter(tokens, func(t domain.Token, _ int) bool {
		return t.Status != domain.TokenStatusLiquidityPoolCreated && t.PoolID != ""
	})
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, err := w.readState(ctx, t)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Warn("StatusWorker: reading pool failed", "token", t.Symbol, "pool", t.PoolID, "error", err)
			}
			continue
		}
		if err := w.store.UpdateTokenStatus(ctx, t.Type, state); err != nil {
			slog.Warn("StatusWorker: writing status failed", "token", t.Symbol, "error", err)
			continue
		}
		if state.Status != t.Status {
			slog.Info("StatusWorker: status changed", "token", t.Symbol, "from", t.Status, "to", state.Status)
		}
		for i := range tokens {
			if tokens[i].Type.Equal(t.Type) {
				tokens[i].Status = state.Status
				tokens[i].TotalSupply = state.TotalSupply
				tokens[i].CollectedSUI = state.CollectedSUI
			}
		}
	}

	if w.observer != nil {
		w.observer.ObserveTokens(tokens)
	}
	return tokens, nil
}

func (w *StatusWorker) readState(ctx context.Context, t domain.Token) (domain.TokenState, error) {
	obj, err := w.ledger.GetObject(ctx, t.PoolID)
	if err != nil {
		return domain.TokenState{}, err
	}
	return pump.DecodeState(obj)
}
