package sui

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/txn"
)

// maxGasCoins is the protocol limit on gas payment objects.
const maxGasCoins = 255

// Signer signs transaction bytes on behalf of Address.
type Signer interface {
	Address() string
	Sign(txBytes []byte) (string, error)
}

// Receipt is a committed transaction.
type Receipt struct {
	Digest     string
	Checkpoint string
	Effects
}

var responseOptions = map[string]bool{
	"showEffects":        true,
	"showEvents":         true,
	"showBalanceChanges": true,
	"showObjectChanges":  true,
}

// Execute signs intent with signer and submits it once. The request is never
// retried; a refusal by the signer or the node is ErrSubmissionRejected.
func (c *Client) Execute(ctx context.Context, intent *txn.Intent, signer Signer) (Receipt, error) {
	if domain.NormalizeAddress(signer.Address()) != domain.NormalizeAddress(intent.Sender()) {
		return Receipt{}, fmt.Errorf("%w: signer %s is not the sender %s", domain.ErrSubmissionRejected, signer.Address(), intent.Sender())
	}

	inputs, err := c.resolveInputs(ctx, intent)
	if err != nil {
		return Receipt{}, err
	}
	payment, err := c.gasPayment(ctx, intent)
	if err != nil {
		return Receipt{}, err
	}
	price, err := c.ReferenceGasPrice(ctx)
	if err != nil {
		return Receipt{}, err
	}

	txBytes, err := encodeTransaction(intent.Sender(), inputs, intent.Commands(), gasData{
		payment: payment,
		owner:   intent.Sender(),
		price:   price,
		budget:  c.gasBudget,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("encoding transaction: %w", err)
	}
	sig, err := signer.Sign(txBytes)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: signing: %w", domain.ErrSubmissionRejected, err)
	}

	var resp txBlockResponse
	params := []any{base64.StdEncoding.EncodeToString(txBytes), []string{sig}, responseOptions, "WaitForLocalExecution"}
	if err := c.callOnce(ctx, "sui_executeTransactionBlock", params, &resp); err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return Receipt{}, fmt.Errorf("%w: %w", domain.ErrSubmissionRejected, err)
		}
		return Receipt{}, fmt.Errorf("executing transaction: %w", err)
	}
	return receiptFrom(resp)
}

// gasPayment picks primary-gas coins of the sender that the transaction does
// not already use as inputs, until the budget is covered.
func (c *Client) gasPayment(ctx context.Context, intent *txn.Intent) ([]domain.ObjectRef, error) {
	used := make(map[string]bool)
	for _, in := range intent.Inputs() {
		if in.Object != nil {
			used[in.Object.ID] = true
		}
	}

	coins, err := c.ListCoins(ctx, intent.Sender(), domain.SUICoinType)
	if err != nil {
		return nil, fmt.Errorf("listing gas coins: %w", err)
	}

	budget := new(big.Int).SetUint64(c.gasBudget)
	total := new(big.Int)
	var payment []domain.ObjectRef
	for _, coin := range coins {
		if used[coin.ID] {
			continue
		}
		payment = append(payment, coin.ObjectRef)
		total.Add(total, coin.Amount)
		if total.Cmp(budget) >= 0 || len(payment) == maxGasCoins {
			break
		}
	}
	if total.Cmp(budget) < 0 {
		return nil, fmt.Errorf("%w: gas coins hold %s of %s MIST budget", domain.ErrInsufficientBalance, total, budget)
	}
	return payment, nil
}

// ErrFinalityTimeout means a submitted transaction did not become visible
// with effects within the finality timeout.
var ErrFinalityTimeout = errors.New("finality wait timed out")

// WaitForTransaction polls until digest is visible on the node with effects,
// for at most the client's finality timeout.
func (c *Client) WaitForTransaction(ctx context.Context, digest string) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.finality)
	defer cancel()
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		var resp txBlockResponse
		err := c.call(ctx, "sui_getTransactionBlock", []any{digest, responseOptions}, &resp)
		if err == nil && resp.Effects != nil {
			return receiptFrom(resp)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Receipt{}, fmt.Errorf("%w: %s after %d polls", ErrFinalityTimeout, digest, polls)
		}
		var rpcErr *RPCError
		if err != nil && !errors.As(err, &rpcErr) {
			return Receipt{}, fmt.Errorf("waiting for %s: %w", digest, err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return Receipt{}, fmt.Errorf("%w: %s after %d polls", ErrFinalityTimeout, digest, polls)
			}
			return Receipt{}, fmt.Errorf("waiting for %s: %w", digest, ctx.Err())
		case <-ticker.C:
		}
	}
}

func receiptFrom(resp txBlockResponse) (Receipt, error) {
	if resp.Effects == nil {
		return Receipt{}, fmt.Errorf("%w: transaction %s has no effects", domain.ErrSubmissionRejected, resp.Digest)
	}
	eff, err := buildEffects(resp.Effects.Status, resp.Events, resp.BalanceChanges, resp.ObjectChanges)
	if err != nil {
		return Receipt{}, fmt.Errorf("transaction %s: %w", resp.Digest, err)
	}
	return Receipt{Digest: resp.Digest, Checkpoint: resp.Checkpoint, Effects: eff}, nil
}
