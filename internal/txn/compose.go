package txn

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mtlprog/swapkit/internal/coinselect"
)

// ErrPaymentReused means a call other than the funded one asked for the payment coin.
var ErrPaymentReused = errors.New("payment coin can only be consumed by the primary call")

type callArgKind int

const (
	callArgObject callArgKind = iota
	callArgPureU64
	callArgPayment
)

// CallArg is an argument of a Call before it is bound to transaction inputs.
type CallArg struct {
	kind     callArgKind
	objectID string
	mutable  bool
	amount   *big.Int
}

// Obj passes a mutable object by id.
func Obj(id string) CallArg { return CallArg{kind: callArgObject, objectID: id, mutable: true} }

// ReadOnly passes an object by immutable reference.
func ReadOnly(id string) CallArg { return CallArg{kind: callArgObject, objectID: id} }

// U64 passes an amount as a u64.
func U64(v *big.Int) CallArg { return CallArg{kind: callArgPureU64, amount: v} }

// Payment stands for the exact-amount coin produced by the funding plan.
func Payment() CallArg { return CallArg{kind: callArgPayment} }

// Call is a domain move call described independently of any transaction.
type Call struct {
	Target        string
	TypeArguments []string
	Arguments     []CallArg
}

func (c Call) usesPayment() bool {
	for _, a := range c.Arguments {
		if a.kind == callArgPayment {
			return true
		}
	}
	return false
}

// Compose emits the plan's merge and split, then call consuming the funded
// coin, then extra calls in order.
func Compose(sender string, plan coinselect.Plan, call Call, extra ...Call) (*Intent, error) {
	for _, c := range extra {
		if c.usesPayment() {
			return nil, fmt.Errorf("%s: %w", c.Target, ErrPaymentReused)
		}
	}

	b := NewBuilder(sender)
	payment, err := Fund(b, plan)
	if err != nil {
		return nil, err
	}

	if err := b.AppendCall(call, &payment); err != nil {
		return nil, err
	}
	for _, c := range extra {
		if err := b.AppendCall(c, nil); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// ComposeCalls builds a transaction of calls that need no payment coin.
func ComposeCalls(sender string, calls ...Call) (*Intent, error) {
	if len(calls) == 0 {
		return nil, errors.New("no calls to compose")
	}
	b := NewBuilder(sender)
	for _, c := range calls {
		if err := b.AppendCall(c, nil); err != nil {
			return nil, err
		}
	}
	return b.Build(), nil
}

// Fund emits the commands that realise plan and returns the exact-amount coin.
func Fund(b *Builder, plan coinselect.Plan) (Argument, error) {
	if plan.Primary.ID == "" {
		return Argument{}, errors.New("funding plan has no primary coin")
	}

	primary := b.OwnedObject(plan.Primary)
	if len(plan.MergeSources) > 0 {
		sources := make([]Argument, 0, len(plan.MergeSources))
		for _, ref := range plan.MergeSources {
			sources = append(sources, b.OwnedObject(ref))
		}
		b.MergeCoins(primary, sources)
	}

	if !plan.NeedsSplit() {
		return primary, nil
	}
	amount, err := b.PureAmount(plan.Target)
	if err != nil {
		return Argument{}, fmt.Errorf("split amount: %w", err)
	}
	return b.SplitCoins(primary, amount), nil
}

// AppendCall binds call's arguments and appends it. payment is the funded
// coin, or nil when the call must not take one.
func (b *Builder) AppendCall(call Call, payment *Argument) error {
	pkg, module, function, err := ParseTarget(call.Target)
	if err != nil {
		return err
	}

	args := make([]Argument, 0, len(call.Arguments))
	for _, a := range call.Arguments {
		switch a.kind {
		case callArgObject:
			if a.objectID == "" {
				return fmt.Errorf("%s: empty object id", call.Target)
			}
			args = append(args, b.Object(a.objectID, a.mutable))
		case callArgPureU64:
			arg, err := b.PureAmount(a.amount)
			if err != nil {
				return fmt.Errorf("%s: %w", call.Target, err)
			}
			args = append(args, arg)
		case callArgPayment:
			if payment == nil {
				return fmt.Errorf("%s: %w", call.Target, ErrPaymentReused)
			}
			args = append(args, *payment)
		}
	}

	b.MoveCall(MoveCall{
		Package:       pkg,
		Module:        module,
		Function:      function,
		TypeArguments: call.TypeArguments,
		Arguments:     args,
	})
	return nil
}
