package txn

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/swapkit/internal/domain"
)

// Builder accumulates inputs and commands. It is not safe for concurrent use.
type Builder struct {
	sender   string
	inputs   []Input
	commands []Command
	objects  map[string]uint16
	sealed   bool
}

// NewBuilder starts a transaction sent by sender.
func NewBuilder(sender string) *Builder {
	return &Builder{sender: sender, objects: make(map[string]uint16)}
}

// Object adds a shared or owned object whose reference is resolved at encode time.
// The same id always maps to the same input.
func (b *Builder) Object(id string, mutable bool) Argument {
	if idx, ok := b.objects[id]; ok {
		if mutable {
			b.inputs[idx].Object.Mutable = true
		}
		return Argument{Kind: ArgInput, Index: idx}
	}
	return b.addObject(ObjectInput{ID: id, Mutable: mutable})
}

// OwnedObject adds an owned object at a known version.
func (b *Builder) OwnedObject(ref domain.ObjectRef) Argument {
	if idx, ok := b.objects[ref.ID]; ok {
		return Argument{Kind: ArgInput, Index: idx}
	}
	r := ref
	return b.addObject(ObjectInput{ID: ref.ID, Ref: &r, Mutable: true})
}

func (b *Builder) addObject(in ObjectInput) Argument {
	idx := uint16(len(b.inputs))
	b.inputs = append(b.inputs, Input{Object: &in})
	b.objects[in.ID] = idx
	return Argument{Kind: ArgInput, Index: idx}
}

// PureU64 adds a u64 pure input.
func (b *Builder) PureU64(v uint64) Argument {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	idx := uint16(len(b.inputs))
	b.inputs = append(b.inputs, Input{Pure: buf})
	return Argument{Kind: ArgInput, Index: idx}
}

// PureAmount adds a base-unit amount as a u64 pure input.
func (b *Builder) PureAmount(v *big.Int) (Argument, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return Argument{}, fmt.Errorf("amount %v does not fit in u64", v)
	}
	return b.PureU64(v.Uint64()), nil
}

// MergeCoins absorbs sources into dst.
func (b *Builder) MergeCoins(dst Argument, sources []Argument) {
	b.commands = append(b.commands, Command{Kind: CommandMergeCoins, Coin: dst, Sources: slices.Clone(sources)})
}

// SplitCoins splits one new coin per amount off coin and returns the first.
func (b *Builder) SplitCoins(coin Argument, amounts ...Argument) Argument {
	idx := uint16(len(b.commands))
	b.commands = append(b.commands, Command{Kind: CommandSplitCoins, Coin: coin, Amounts: slices.Clone(amounts)})
	return Argument{Kind: ArgNestedResult, Index: idx, Nested: 0}
}

// MoveCall appends a call and returns its result.
func (b *Builder) MoveCall(call MoveCall) Argument {
	idx := uint16(len(b.commands))
	c := call
	c.TypeArguments = slices.Clone(call.TypeArguments)
	c.Arguments = slices.Clone(call.Arguments)
	b.commands = append(b.commands, Command{Kind: CommandMoveCall, Call: &c})
	return Argument{Kind: ArgResult, Index: idx}
}

// Build seals the builder into an Intent. The intent shares no memory with
// the builder; calling Build twice panics.
func (b *Builder) Build() *Intent {
	if b.sealed {
		panic("txn: Build called twice")
	}
	b.sealed = true

	return &Intent{
		sender:   b.sender,
		inputs:   lo.Map(b.inputs, cloneInput),
		commands: lo.Map(b.commands, cloneCommand),
	}
}

// ParseTarget splits "package::module::function".
func ParseTarget(target string) (pkg, module, function string, err error) {
	parts := strings.Split(target, "::")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("malformed call target %q", target)
	}
	return parts[0], parts[1], parts[2], nil
}
