// Package trade submits buy and sell transactions and reconciles the token
// registry with the authoritative post-trade state.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mtlprog/swapkit/internal/coinselect"
	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/pump"
	"github.com/mtlprog/swapkit/internal/sui"
	"github.com/mtlprog/swapkit/internal/txn"
)

// ErrTradeInFlight means the sender already has a submission in progress.
var ErrTradeInFlight = errors.New("trade already in flight for sender")

// Ledger is the subset of the ledger client a trade needs.
type Ledger interface {
	ListCoins(ctx context.Context, owner string, coinType domain.CoinType) ([]domain.Coin, error)
	Execute(ctx context.Context, intent *txn.Intent, signer sui.Signer) (sui.Receipt, error)
	WaitForTransaction(ctx context.Context, digest string) (sui.Receipt, error)
	GetObject(ctx context.Context, id string) (sui.Object, error)
}

// StatusWriter receives reconciled token state. Writes are best-effort.
type StatusWriter interface {
	UpdateTokenStatus(ctx context.Context, coinType domain.CoinType, state domain.TokenState) error
	UpdateTokenPool(ctx context.Context, coinType domain.CoinType, pool domain.PoolInfo) error
}

// Recorder receives trade outcomes. *metrics.Collectors implements it.
type Recorder interface {
	TradeFinished(dir domain.Direction, outcome string)
}

// Order is a request to trade Amount base units of the input coin. Sender is
// the address the order was previewed for and must be the signer's.
type Order struct {
	Sender    string
	Token     domain.Token
	Direction domain.Direction
	Amount    *big.Int
	// CreatePool appends the liquidity pool creation call, for trades a
	// preview showed will complete the funding goal.
	CreatePool bool
}

// Outcome is a committed trade.
type Outcome struct {
	ID         string             `json:"id"`
	Digest     string             `json:"digest"`
	Checkpoint string             `json:"checkpoint"`
	Paid       *big.Int           `json:"-"`
	Received   *big.Int           `json:"-"`
	State      *domain.TokenState `json:"-"`
	PoolID     string             `json:"poolId,omitempty"`
}

// Executor builds, signs and submits trades.
type Executor struct {
	ledger   Ledger
	store    StatusWriter
	signer   sui.Signer
	contract pump.Contract
	primary  domain.CoinType
	recorder Recorder

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewExecutor creates an Executor. store and recorder may be nil.
func NewExecutor(ledger Ledger, signer sui.Signer, contract pump.Contract, primary domain.CoinType, store StatusWriter, recorder Recorder) *Executor {
	if ledger == nil {
		panic("trade.NewExecutor: ledger must not be nil")
	}
	if signer == nil {
		panic("trade.NewExecutor: signer must not be nil")
	}
	return &Executor{
		ledger:   ledger,
		store:    store,
		signer:   signer,
		contract: contract,
		primary:  primary,
		recorder: recorder,
		inFlight: make(map[string]bool),
	}
}

// Execute funds, composes, signs and submits order, then waits for finality
// and reconciles the registry. Once submitted, the trade is followed to
// completion even if ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, order Order) (Outcome, error) {
	sender := e.signer.Address()
	if !e.acquire(sender) {
		return Outcome{}, fmt.Errorf("%w: %s", ErrTradeInFlight, sender)
	}
	defer e.release(sender)

	out, err := e.execute(ctx, sender, order)
	if e.recorder != nil {
		e.recorder.TradeFinished(order.Direction, outcomeLabel(err))
	}
	return out, err
}

func (e *Executor) execute(ctx context.Context, sender string, order Order) (Outcome, error) {
	id := uuid.NewString()
	log := slog.With("trade", id, "token", order.Token.Symbol, "direction", order.Direction)

	if domain.NormalizeAddress(order.Sender) != domain.NormalizeAddress(sender) {
		return Outcome{}, fmt.Errorf("%w: order for %q cannot be signed by %s", domain.ErrSubmissionRejected, order.Sender, sender)
	}
	if order.Amount == nil || order.Amount.Sign() <= 0 {
		return Outcome{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidAmount)
	}
	intent, err := e.compose(ctx, sender, order)
	if err != nil {
		return Outcome{}, err
	}

	log.Info("TradeExecutor: submitting", "calls", intent.MoveCalls())
	receipt, err := e.ledger.Execute(ctx, intent, e.signer)
	if err != nil {
		log.Error("TradeExecutor: submission failed", "error", err)
		return Outcome{}, fmt.Errorf("submitting trade: %w", err)
	}

	// Submitted: nothing below may be abandoned because the caller went away.
	ctx = context.WithoutCancel(ctx)

	final, err := e.ledger.WaitForTransaction(ctx, receipt.Digest)
	if err != nil {
		log.Warn("TradeExecutor: finality wait failed, using execution receipt", "digest", receipt.Digest, "error", err)
		final = receipt
	}
	if err := final.Err(); err != nil {
		log.Error("TradeExecutor: transaction failed on chain", "digest", final.Digest, "error", err)
		return Outcome{ID: id, Digest: final.Digest}, err
	}

	pay, receive := order.Direction.Pair(e.primary, order.Token.Type)
	out := Outcome{
		ID:         id,
		Digest:     final.Digest,
		Checkpoint: final.Checkpoint,
		Paid:       new(big.Int).Neg(final.BalanceChange(sender, pay)),
		Received:   final.BalanceChange(sender, receive),
	}
	e.reconcile(ctx, log, order.Token, final, &out)
	log.Info("TradeExecutor: committed", "digest", out.Digest, "paid", out.Paid, "received", out.Received)
	return out, nil
}

func (e *Executor) compose(ctx context.Context, sender string, order Order) (*txn.Intent, error) {
	call, err := e.contract.TradeCall(order.Token, order.Direction)
	if err != nil {
		return nil, err
	}
	var extra []txn.Call
	if order.CreatePool {
		createPool, err := e.contract.CreatePoolCall(order.Token)
		if err != nil {
			return nil, err
		}
		extra = append(extra, createPool)
	}

	pay, _ := order.Direction.Pair(e.primary, order.Token.Type)
	coins, err := e.ledger.ListCoins(ctx, sender, pay)
	if err != nil {
		return nil, fmt.Errorf("listing %s coins: %w", pay.Symbol(), err)
	}
	plan, err := coinselect.Select(coins, order.Amount)
	if err != nil {
		return nil, err
	}
	intent, err := txn.Compose(sender, plan, call, extra...)
	if err != nil {
		return nil, fmt.Errorf("composing trade: %w", err)
	}
	return intent, nil
}

// reconcile re-reads the bonding pool and writes its state back to the
// registry. Failures are logged and never fail the trade.
func (e *Executor) reconcile(ctx context.Context, log *slog.Logger, token domain.Token, receipt sui.Receipt, out *Outcome) {
	obj, err := e.ledger.GetObject(ctx, token.PoolID)
	if err != nil {
		log.Warn("TradeExecutor: reading pool after trade failed", "pool", token.PoolID, "error", err)
	} else if state, err := pump.DecodeState(obj); err != nil {
		log.Warn("TradeExecutor: decoding pool state failed", "pool", token.PoolID, "error", err)
	} else {
		out.State = &state
		if e.store != nil {
			if err := e.store.UpdateTokenStatus(ctx, token.Type, state); err != nil {
				log.Warn("TradeExecutor: status write-back failed", "error", err)
			}
		}
	}

	out.PoolID = createdPool(receipt)
	if out.PoolID == "" || e.store == nil {
		return
	}
	if err := e.store.UpdateTokenPool(ctx, token.Type, domain.PoolInfo{PoolID: out.PoolID}); err != nil {
		log.Warn("TradeExecutor: pool write-back failed", "pool", out.PoolID, "error", err)
	}
}

// createdPool finds the AMM pool opened by the transaction, if any.
func createdPool(receipt sui.Receipt) string {
	for _, ev := range receipt.Events {
		if pc, ok := ev.(domain.PoolCreatedEvent); ok {
			return pc.PoolID
		}
	}
	for _, oc := range receipt.Created("::pool::Pool<") {
		if !strings.Contains(oc.ObjectType, "pumpsui_core") {
			return oc.ObjectID
		}
	}
	return ""
}

func (e *Executor) acquire(sender string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[sender] {
		return false
	}
	e.inFlight[sender] = true
	return true
}

func (e *Executor) release(sender string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inFlight, sender)
}

func outcomeLabel(err error) string {
	var abort *domain.AbortError
	switch {
	case err == nil:
		return "committed"
	case errors.As(err, &abort):
		return "aborted"
	case errors.Is(err, domain.ErrSubmissionRejected):
		return "rejected"
	case errors.Is(err, ErrTradeInFlight):
		return "busy"
	}
	return "error"
}
