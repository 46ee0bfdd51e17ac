package txn

import (
	"encoding/binary"
	"errors"
	"math/big"
	"testing"

	"github.com/mtlprog/swapkit/internal/coinselect"
	"github.com/mtlprog/swapkit/internal/domain"
)

const sender = "0x00000000000000000000000000000000000000000000000000000000000000aa"

func ref(id string) domain.ObjectRef {
	return domain.ObjectRef{ID: id, Version: 7, Digest: "digest-" + id}
}

func buyCall() Call {
	return Call{
		Target:        "0xpump::pumpsui_core::buy",
		TypeArguments: []string{"0xabc::meme::MEME"},
		Arguments:     []CallArg{Obj("0xpool"), Obj("0xcap"), Payment()},
	}
}

func TestComposeMergeSplitCall(t *testing.T) {
	plan := coinselect.Plan{
		Primary:      ref("a"),
		MergeSources: []domain.ObjectRef{ref("b")},
		Change:       big.NewInt(30),
		Target:       big.NewInt(120),
	}

	intent, err := Compose(sender, plan, buyCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cmds := intent.Commands()
	if len(cmds) != 3 {
		t.Fatalf("commands = %d, want 3", len(cmds))
	}
	if cmds[0].Kind != CommandMergeCoins || cmds[1].Kind != CommandSplitCoins || cmds[2].Kind != CommandMoveCall {
		t.Fatalf("command order = %v/%v/%v, want merge/split/call", cmds[0].Kind, cmds[1].Kind, cmds[2].Kind)
	}

	// The call's payment argument is the split result.
	payment := cmds[2].Call.Arguments[2]
	if payment.Kind != ArgNestedResult || payment.Index != 1 || payment.Nested != 0 {
		t.Errorf("payment argument = %+v, want NestedResult(1,0)", payment)
	}

	// The split amount is the target, little-endian u64.
	amountArg := cmds[1].Amounts[0]
	pure := intent.Inputs()[amountArg.Index].Pure
	if got := binary.LittleEndian.Uint64(pure); got != 120 {
		t.Errorf("split amount = %d, want 120", got)
	}

	if intent.Sender() != sender {
		t.Errorf("sender = %q", intent.Sender())
	}
}

func TestComposeExactCoinPassesPrimaryDirectly(t *testing.T) {
	plan := coinselect.Plan{Primary: ref("a"), Target: big.NewInt(100)}

	intent, err := Compose(sender, plan, buyCall())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmds := intent.Commands()
	if len(cmds) != 1 || cmds[0].Kind != CommandMoveCall {
		t.Fatalf("commands = %+v, want single move call", cmds)
	}
	payment := cmds[0].Call.Arguments[2]
	in := intent.Inputs()[payment.Index]
	if in.Object == nil || in.Object.Ref == nil || in.Object.Ref.ID != "a" {
		t.Errorf("payment input = %+v, want owned coin a", in)
	}
}

func TestComposeAppendsExtraCallsLast(t *testing.T) {
	plan := coinselect.Plan{Primary: ref("a"), Target: big.NewInt(100)}
	createPool := Call{
		Target:        "0xpump::pumpsui_core::create_pool",
		TypeArguments: []string{"0xabc::meme::MEME"},
		Arguments:     []CallArg{Obj("0xconfig"), Obj("0xpools"), Obj("0xpool"), ReadOnly("0x6")},
	}

	intent, err := Compose(sender, plan, buyCall(), createPool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := intent.MoveCalls()
	if len(calls) != 2 || calls[0] != "pumpsui_core::buy" || calls[1] != "pumpsui_core::create_pool" {
		t.Errorf("move calls = %v", calls)
	}

	// The pool object is shared by both calls and appears once.
	seen := 0
	for _, in := range intent.Inputs() {
		if in.Object != nil && in.Object.ID == "0xpool" {
			seen++
		}
	}
	if seen != 1 {
		t.Errorf("pool input appears %d times, want 1", seen)
	}
}

func TestComposeRejectsPaymentInExtraCall(t *testing.T) {
	plan := coinselect.Plan{Primary: ref("a"), Target: big.NewInt(100)}
	_, err := Compose(sender, plan, buyCall(), buyCall())
	if !errors.Is(err, ErrPaymentReused) {
		t.Fatalf("error = %v, want ErrPaymentReused", err)
	}
}

func TestComposeCallsWithoutPayment(t *testing.T) {
	withdraw := Call{
		Target:    "0xlend::lending_core::withdraw_testsui",
		Arguments: []CallArg{ReadOnly("0x6"), Obj("0xstorage"), Obj("0xlp"), U64(big.NewInt(5))},
	}
	intent, err := ComposeCalls(sender, withdraw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(intent.Inputs()) != 4 {
		t.Errorf("inputs = %d, want 4", len(intent.Inputs()))
	}

	bad := Call{Target: "0xlend::lending_core::supply_testsui", Arguments: []CallArg{Payment()}}
	if _, err := ComposeCalls(sender, bad); !errors.Is(err, ErrPaymentReused) {
		t.Errorf("error = %v, want ErrPaymentReused", err)
	}
}

func TestComposeRejectsMalformedTarget(t *testing.T) {
	plan := coinselect.Plan{Primary: ref("a"), Target: big.NewInt(1)}
	if _, err := Compose(sender, plan, Call{Target: "buy"}); err == nil {
		t.Fatal("expected error for malformed target")
	}
}

func TestIntentIsWriteOnce(t *testing.T) {
	b := NewBuilder(sender)
	b.PureU64(1)
	intent := b.Build()

	inputs := intent.Inputs()
	inputs[0].Pure[0] = 0xff
	inputs[0].Pure = nil
	if got := intent.Inputs()[0].Pure; got == nil || got[0] != 1 {
		t.Errorf("mutating the returned inputs changed the intent: %v", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on second Build")
		}
	}()
	b.Build()
}

func TestIntentAccessorsDeepCopy(t *testing.T) {
	plan := coinselect.Plan{
		Primary: domain.ObjectRef{ID: "0xa", Version: 1, Digest: "d"},
		Target:  big.NewInt(10),
		Change:  big.NewInt(5),
	}
	intent, err := Compose(sender, plan, Call{
		Target:        "0x2::pool::buy",
		TypeArguments: []string{"0x7::tok::TOK"},
		Arguments:     []CallArg{Obj("0xb001"), Payment()},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, in := range intent.Inputs() {
		if in.Object != nil {
			in.Object.ID = "0xevil"
			in.Object.Mutable = false
			if in.Object.Ref != nil {
				in.Object.Ref.Version = 99
			}
		}
	}
	for _, c := range intent.Commands() {
		if c.Call != nil {
			c.Call.Function = "sell"
			c.Call.TypeArguments[0] = "0x9::x::X"
			c.Call.Arguments[0] = Argument{Kind: ArgGasCoin}
		}
		if len(c.Amounts) > 0 {
			c.Amounts[0] = Argument{Kind: ArgGasCoin}
		}
	}

	for _, in := range intent.Inputs() {
		if in.Object == nil {
			continue
		}
		if in.Object.ID == "0xevil" || (in.Object.Ref != nil && in.Object.Ref.Version != 1) {
			t.Errorf("object input changed through an accessor: %+v", in.Object)
		}
	}
	for _, c := range intent.Commands() {
		if c.Call != nil && (c.Call.Function != "buy" || c.Call.TypeArguments[0] != "0x7::tok::TOK" || c.Call.Arguments[0].Kind == ArgGasCoin) {
			t.Errorf("move call changed through an accessor: %+v", c.Call)
		}
		if len(c.Amounts) > 0 && c.Amounts[0].Kind == ArgGasCoin {
			t.Errorf("split amounts changed through an accessor: %+v", c.Amounts)
		}
	}
}
