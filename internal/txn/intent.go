// Package txn assembles programmable transactions from merge, split and
// move-call commands. It performs no I/O; object inputs without a known
// reference are resolved by the ledger client when the intent is encoded.
package txn

import (
	"slices"

	"github.com/samber/lo"

	"github.com/mtlprog/swapkit/internal/domain"
)

// ArgKind discriminates Argument.
type ArgKind int

const (
	ArgGasCoin ArgKind = iota
	ArgInput
	ArgResult
	ArgNestedResult
)

// Argument references a transaction input or the result of an earlier command.
type Argument struct {
	Kind   ArgKind
	Index  uint16
	Nested uint16
}

// ObjectInput is an object passed to the transaction. Ref is set for owned
// coins read from the ledger; a nil Ref is resolved at encode time.
type ObjectInput struct {
	ID      string
	Ref     *domain.ObjectRef
	Mutable bool
}

// Input is either an object or a BCS-encoded pure value.
type Input struct {
	Object *ObjectInput
	Pure   []byte
}

// CommandKind discriminates Command.
type CommandKind int

const (
	CommandMoveCall CommandKind = iota
	CommandSplitCoins
	CommandMergeCoins
)

// MoveCall is a call into a published package.
type MoveCall struct {
	Package       string
	Module        string
	Function      string
	TypeArguments []string
	Arguments     []Argument
}

// Command is one step of a programmable transaction.
type Command struct {
	Kind CommandKind

	// MergeCoins: Sources are absorbed into Coin.
	// SplitCoins: Amounts are split off Coin.
	Coin    Argument
	Sources []Argument
	Amounts []Argument

	Call *MoveCall
}

// Intent is a sealed transaction. It is only produced by Builder.Build and
// its accessors return copies.
type Intent struct {
	sender   string
	inputs   []Input
	commands []Command
}

// Sender returns the declared sender address.
func (i *Intent) Sender() string { return i.sender }

// Inputs returns a deep copy of the transaction inputs.
func (i *Intent) Inputs() []Input { return lo.Map(i.inputs, cloneInput) }

// Commands returns a deep copy of the commands in execution order.
func (i *Intent) Commands() []Command { return lo.Map(i.commands, cloneCommand) }

func cloneInput(in Input, _ int) Input {
	out := Input{Pure: slices.Clone(in.Pure)}
	if in.Object != nil {
		obj := *in.Object
		if obj.Ref != nil {
			ref := *obj.Ref
			obj.Ref = &ref
		}
		out.Object = &obj
	}
	return out
}

func cloneCommand(c Command, _ int) Command {
	out := c
	out.Sources = slices.Clone(c.Sources)
	out.Amounts = slices.Clone(c.Amounts)
	if c.Call != nil {
		call := *c.Call
		call.TypeArguments = slices.Clone(c.Call.TypeArguments)
		call.Arguments = slices.Clone(c.Call.Arguments)
		out.Call = &call
	}
	return out
}

// MoveCalls returns the targets of every move call, in order, as "module::function".
func (i *Intent) MoveCalls() []string {
	var out []string
	for _, c := range i.commands {
		if c.Kind == CommandMoveCall {
			out = append(out, c.Call.Module+"::"+c.Call.Function)
		}
	}
	return out
}
