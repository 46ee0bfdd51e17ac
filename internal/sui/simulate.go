package sui

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mtlprog/swapkit/internal/txn"
)

// DryRun simulates intent against current ledger state without committing.
// A transaction that runs and aborts is not an error: the abort is reported
// in the returned Effects.
func (c *Client) DryRun(ctx context.Context, intent *txn.Intent) (Effects, error) {
	inputs, err := c.resolveInputs(ctx, intent)
	if err != nil {
		return Effects{}, err
	}
	price, err := c.ReferenceGasPrice(ctx)
	if err != nil {
		return Effects{}, err
	}

	// The node substitutes a mock gas coin when the payment list is empty.
	txBytes, err := encodeTransaction(intent.Sender(), inputs, intent.Commands(), gasData{
		owner:  intent.Sender(),
		price:  price,
		budget: c.gasBudget,
	})
	if err != nil {
		return Effects{}, fmt.Errorf("encoding transaction: %w", err)
	}

	var resp dryRunResponse
	if err := c.call(ctx, "sui_dryRunTransactionBlock", []any{base64.StdEncoding.EncodeToString(txBytes)}, &resp); err != nil {
		return Effects{}, fmt.Errorf("dry run: %w", err)
	}
	eff, err := buildEffects(resp.Effects.Status, resp.Events, resp.BalanceChanges, resp.ObjectChanges)
	if err != nil {
		return Effects{}, fmt.Errorf("dry run: %w", err)
	}
	return eff, nil
}
