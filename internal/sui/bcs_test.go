package sui

import (
	"bytes"
	"testing"

	"github.com/fardream/go-bcs/bcs"

	"github.com/mtlprog/swapkit/internal/domain"
	"github.com/mtlprog/swapkit/internal/txn"
)

func TestPureInputLengthPrefix(t *testing.T) {
	tests := []struct {
		size   int
		prefix []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
	}
	for _, tt := range tests {
		arg, err := wireInput(resolvedInput{pure: make([]byte, tt.size)})
		if err != nil {
			t.Fatal(err)
		}
		raw, err := bcs.Marshal(arg)
		if err != nil {
			t.Fatalf("marshal %d bytes: %v", tt.size, err)
		}
		want := append([]byte{0x00}, tt.prefix...)
		if !bytes.HasPrefix(raw, want) || len(raw) != len(want)+tt.size {
			t.Errorf("pure(%d) = %x..., want prefix %x", tt.size, raw[:min(len(raw), 4)], want)
		}
	}
}

func TestArgumentEncoding(t *testing.T) {
	tests := []struct {
		arg  txn.Argument
		want []byte
	}{
		{txn.Argument{Kind: txn.ArgGasCoin}, []byte{0x00}},
		{txn.Argument{Kind: txn.ArgInput, Index: 258}, []byte{0x01, 0x02, 0x01}},
		{txn.Argument{Kind: txn.ArgResult, Index: 4}, []byte{0x02, 0x04, 0x00}},
		{txn.Argument{Kind: txn.ArgNestedResult, Index: 3, Nested: 1}, []byte{0x03, 0x03, 0x00, 0x01, 0x00}},
	}
	for _, tt := range tests {
		raw, err := bcs.Marshal(wireArgument(tt.arg, 0))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(raw, tt.want) {
			t.Errorf("argument %+v = %x, want %x", tt.arg, raw, tt.want)
		}
	}
}

func TestSharedObjectInputEncoding(t *testing.T) {
	arg, err := wireInput(resolvedInput{
		object:               true,
		shared:               true,
		ref:                  domain.ObjectRef{ID: "0x6"},
		initialSharedVersion: 1,
		mutable:              true,
	})
	if err != nil {
		t.Fatal(err)
	}
	raw, err := bcs.Marshal(arg)
	if err != nil {
		t.Fatal(err)
	}

	// CallArg::Object, ObjectArg::SharedObject, id, version, mutable.
	want := []byte{0x01, 0x01}
	want = append(want, make([]byte, 31)...)
	want = append(want, 0x06)
	want = append(want, 1, 0, 0, 0, 0, 0, 0, 0, 0x01)
	if !bytes.Equal(raw, want) {
		t.Errorf("encoding = %x, want %x", raw, want)
	}
}

func TestParseTypeTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"u64", "u64"},
		{"0x2::sui::SUI", "0x2::sui::SUI"},
		{"0x2::coin::Coin<0x2::sui::SUI>", "0x2::coin::Coin<0x2::sui::SUI>"},
		{"vector<u8>", "vector<u8>"},
		{"0x1::m::Pair<0xa::a::A, vector<0xb::b::B>>", "0x1::m::Pair<0xa::a::A, vector<0xb::b::B>>"},
	}
	for _, tt := range tests {
		tag, err := parseTypeTag(tt.in)
		if err != nil {
			t.Errorf("parseTypeTag(%q) error: %v", tt.in, err)
			continue
		}
		if got := tag.String(); got != tt.want {
			t.Errorf("parseTypeTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "0x2::sui", "0x2::coin::Coin<0x2::sui::SUI", "vector<u8"} {
		if _, err := parseTypeTag(bad); err == nil {
			t.Errorf("parseTypeTag(%q) expected error", bad)
		}
	}
}

func TestTypeTagEncoding(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"u8", []byte{1}},
		{"u16", []byte{8}},
		{"vector<u64>", []byte{6, 2}},
		{"0x2::sui::SUI", append(append(append([]byte{7}, make([]byte, 31)...), 0x02), 3, 's', 'u', 'i', 3, 'S', 'U', 'I', 0)},
	}
	for _, tt := range tests {
		tag, err := parseTypeTag(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		w, err := tag.wire()
		if err != nil {
			t.Fatal(err)
		}
		got, err := bcs.Marshal(w)
		if err != nil {
			t.Fatalf("marshal %q: %v", tt.in, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("encoding %q = %x, want %x", tt.in, got, tt.want)
		}
	}
}

func TestEncodeTransactionLayout(t *testing.T) {
	b := txn.NewBuilder("0x1")
	coin := b.OwnedObject(domain.ObjectRef{ID: "0x5", Version: 7, Digest: zeroDigest})
	amount := b.PureU64(480)
	split := b.SplitCoins(coin, amount)
	intent := b.Build()

	inputs := []resolvedInput{
		{object: true, ref: domain.ObjectRef{ID: "0x5", Version: 7, Digest: zeroDigest}, mutable: true},
		{pure: intent.Inputs()[1].Pure},
	}
	raw, err := encodeTransaction("0x1", inputs, intent.Commands(), gasData{owner: "0x1", price: 1000, budget: 5000})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if split.Kind != txn.ArgNestedResult {
		t.Fatalf("split result kind = %v", split.Kind)
	}

	// V1, ProgrammableTransaction, 2 inputs, input 0 is CallArg::Object(ImmOrOwned).
	if !bytes.HasPrefix(raw, []byte{0x00, 0x00, 0x02, 0x01, 0x00}) {
		t.Errorf("prefix = %x", raw[:5])
	}
	// Trailer: budget 5000 little endian, then Expiration::None.
	tail := raw[len(raw)-9:]
	if !bytes.Equal(tail, []byte{0x88, 0x13, 0, 0, 0, 0, 0, 0, 0x00}) {
		t.Errorf("tail = %x", tail)
	}
}

func TestEncodeRejectsBadDigest(t *testing.T) {
	inputs := []resolvedInput{{object: true, ref: domain.ObjectRef{ID: "0x5", Version: 1, Digest: "not-base58-0OIl"}}}
	if _, err := encodeTransaction("0x1", inputs, nil, gasData{owner: "0x1"}); err == nil {
		t.Fatal("expected error for malformed digest")
	}
}
