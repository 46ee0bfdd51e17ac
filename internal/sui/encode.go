package sui

import (
	"context"
	"fmt"

	"github.com/fardream/go-bcs/bcs"
	"github.com/samber/lo"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/txn"
)

// resolvedInput is an object input with the reference the node expects.
type resolvedInput struct {
	pure                 []byte
	object               bool
	shared               bool
	ref                  domain.ObjectRef
	initialSharedVersion uint64
	mutable              bool
}

// gasData is the payment section of a transaction.
type gasData struct {
	payment []domain.ObjectRef
	owner   string
	price   uint64
	budget  uint64
}

// resolveInputs looks up the current reference of every object input that
// was added by id only. Owned coins already carry their reference.
func (c *Client) resolveInputs(ctx context.Context, intent *txn.Intent) ([]resolvedInput, error) {
	inputs := intent.Inputs()

	var pending []string
	for _, in := range inputs {
		if in.Object != nil && in.Object.Ref == nil {
			pending = append(pending, in.Object.ID)
		}
	}
	objects, err := c.MultiGetObjects(ctx, pending)
	if err != nil {
		return nil, fmt.Errorf("resolving transaction inputs: %w", err)
	}
	byID := make(map[string]Object, len(objects))
	for i, obj := range objects {
		byID[pending[i]] = obj
	}

	resolved := make([]resolvedInput, len(inputs))
	for i, in := range inputs {
		if in.Object == nil {
			resolved[i] = resolvedInput{pure: in.Pure}
			continue
		}
		if in.Object.Ref != nil {
			resolved[i] = resolvedInput{object: true, ref: *in.Object.Ref, mutable: in.Object.Mutable}
			continue
		}
		obj := byID[in.Object.ID]
		resolved[i] = resolvedInput{
			object:               true,
			shared:               obj.Shared,
			ref:                  obj.Ref,
			initialSharedVersion: obj.InitialSharedVersion,
			mutable:              in.Object.Mutable,
		}
	}
	return resolved, nil
}

// encodeTransaction serializes a V1 programmable transaction.
func encodeTransaction(sender string, inputs []resolvedInput, commands []txn.Command, gas gasData) ([]byte, error) {
	var ptx programmableTransaction
	for i, in := range inputs {
		arg, err := wireInput(in)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		ptx.Inputs = append(ptx.Inputs, arg)
	}
	for i, cmd := range commands {
		c, err := wireCommand(cmd)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		ptx.Commands = append(ptx.Commands, c)
	}

	from, err := parseAddress(sender)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	owner, err := parseAddress(gas.owner)
	if err != nil {
		return nil, fmt.Errorf("gas owner: %w", err)
	}
	payment := make([]objectRef, len(gas.payment))
	for i, ref := range gas.payment {
		if payment[i], err = wireObjectRef(ref); err != nil {
			return nil, fmt.Errorf("gas payment: %w", err)
		}
	}

	data := transactionData{V1: &transactionDataV1{
		Kind:       transactionKind{ProgrammableTransaction: &ptx},
		Sender:     from,
		GasData:    gasObjects{Payment: payment, Owner: owner, Price: gas.price, Budget: gas.budget},
		Expiration: transactionExpiration{None: &unit{}},
	}}
	raw, err := bcs.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("serializing transaction: %w", err)
	}
	return raw, nil
}

func wireInput(in resolvedInput) (callArg, error) {
	if !in.object {
		pure := in.pure
		if pure == nil {
			pure = []byte{}
		}
		return callArg{Pure: &pure}, nil
	}
	if in.shared {
		id, err := parseAddress(in.ref.ID)
		if err != nil {
			return callArg{}, err
		}
		return callArg{Object: &objectArg{SharedObject: &sharedObject{
			ID:                   id,
			InitialSharedVersion: in.initialSharedVersion,
			Mutable:              in.mutable,
		}}}, nil
	}
	ref, err := wireObjectRef(in.ref)
	if err != nil {
		return callArg{}, err
	}
	return callArg{Object: &objectArg{ImmOrOwnedObject: &ref}}, nil
}

func wireObjectRef(ref domain.ObjectRef) (objectRef, error) {
	id, err := parseAddress(ref.ID)
	if err != nil {
		return objectRef{}, err
	}
	digest, err := parseDigest(ref.Digest)
	if err != nil {
		return objectRef{}, err
	}
	return objectRef{ID: id, Version: ref.Version, Digest: digest}, nil
}

func wireCommand(cmd txn.Command) (command, error) {
	switch cmd.Kind {
	case txn.CommandMoveCall:
		call := cmd.Call
		pkg, err := parseAddress(call.Package)
		if err != nil {
			return command{}, err
		}
		typeArgs := make([]wireTypeTag, len(call.TypeArguments))
		for i, ta := range call.TypeArguments {
			tag, err := parseTypeTag(ta)
			if err != nil {
				return command{}, err
			}
			if typeArgs[i], err = tag.wire(); err != nil {
				return command{}, err
			}
		}
		return command{MoveCall: &moveCall{
			Package:       pkg,
			Module:        call.Module,
			Function:      call.Function,
			TypeArguments: typeArgs,
			Arguments:     lo.Map(call.Arguments, wireArgument),
		}}, nil
	case txn.CommandSplitCoins:
		return command{SplitCoins: &splitCoins{
			Coin:    wireArgument(cmd.Coin, 0),
			Amounts: lo.Map(cmd.Amounts, wireArgument),
		}}, nil
	case txn.CommandMergeCoins:
		return command{MergeCoins: &mergeCoins{
			Destination: wireArgument(cmd.Coin, 0),
			Sources:     lo.Map(cmd.Sources, wireArgument),
		}}, nil
	default:
		return command{}, fmt.Errorf("unsupported command kind %d", cmd.Kind)
	}
}

func wireArgument(a txn.Argument, _ int) argument {
	switch a.Kind {
	case txn.ArgInput:
		idx := a.Index
		return argument{Input: &idx}
	case txn.ArgResult:
		idx := a.Index
		return argument{Result: &idx}
	case txn.ArgNestedResult:
		return argument{NestedResult: &nestedResult{Command: a.Index, Result: a.Nested}}
	default:
		return argument{GasCoin: &unit{}}
	}
}
