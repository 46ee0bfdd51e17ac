package sui

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/mtlprog/swapkit/internal/domain"
)

// The types below mirror the node's transaction data layout and are
// serialized with bcs.Marshal. Structs implementing bcs.Enum encode the
// index of their single non-nil field followed by its value.

type unit struct{}

type address [32]byte

func parseAddress(addr string) (address, error) {
	var a address
	raw, err := hex.DecodeString(strings.TrimPrefix(domain.NormalizeAddress(addr), "0x"))
	if err != nil || len(raw) != len(a) {
		return a, fmt.Errorf("invalid address %q", addr)
	}
	copy(a[:], raw)
	return a, nil
}

// parseDigest decodes a base58 object or transaction digest.
func parseDigest(d string) ([]byte, error) {
	raw, err := base58.Decode(d)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("invalid digest %q", d)
	}
	return raw, nil
}

type transactionData struct {
	V1 *transactionDataV1
}

func (transactionData) IsBcsEnum() {}

type transactionDataV1 struct {
	Kind       transactionKind
	Sender     address
	GasData    gasObjects
	Expiration transactionExpiration
}

// transactionKind only carries the variant this client builds.
type transactionKind struct {
	ProgrammableTransaction *programmableTransaction
}

func (transactionKind) IsBcsEnum() {}

type transactionExpiration struct {
	None  *unit
	Epoch *uint64
}

func (transactionExpiration) IsBcsEnum() {}

type gasObjects struct {
	Payment []objectRef
	Owner   address
	Price   uint64
	Budget  uint64
}

type programmableTransaction struct {
	Inputs   []callArg
	Commands []command
}

type callArg struct {
	Pure   *[]byte
	Object *objectArg
}

func (callArg) IsBcsEnum() {}

type objectArg struct {
	ImmOrOwnedObject *objectRef
	SharedObject     *sharedObject
}

func (objectArg) IsBcsEnum() {}

type objectRef struct {
	ID      address
	Version uint64
	Digest  []byte
}

type sharedObject struct {
	ID                   address
	InitialSharedVersion uint64
	Mutable              bool
}

type command struct {
	MoveCall        *moveCall
	TransferObjects *transferObjects
	SplitCoins      *splitCoins
	MergeCoins      *mergeCoins
}

func (command) IsBcsEnum() {}

type moveCall struct {
	Package       address
	Module        string
	Function      string
	TypeArguments []wireTypeTag
	Arguments     []argument
}

type transferObjects struct {
	Objects []argument
	Address argument
}

type splitCoins struct {
	Coin    argument
	Amounts []argument
}

type mergeCoins struct {
	Destination argument
	Sources     []argument
}

type argument struct {
	GasCoin      *unit
	Input        *uint16
	Result       *uint16
	NestedResult *nestedResult
}

func (argument) IsBcsEnum() {}

type nestedResult struct {
	Command uint16
	Result  uint16
}

// wireTypeTag is the serialized form of a Move type. Variant order is fixed
// by the node, including u16 and later widths appended after struct.
type wireTypeTag struct {
	Bool    *unit
	U8      *unit
	U64     *unit
	U128    *unit
	Address *unit
	Signer  *unit
	Vector  *wireTypeTag
	Struct  *wireStructTag
	U16     *unit
	U32     *unit
	U256    *unit
}

func (wireTypeTag) IsBcsEnum() {}

type wireStructTag struct {
	Address    address
	Module     string
	Name       string
	TypeParams []wireTypeTag
}

// typeTag is a parsed Move type.
type typeTag struct {
	kind    string // "bool", "u8", ..., "vector", "struct"
	elem    *typeTag
	address string
	module  string
	name    string
	params  []typeTag
}

var primitiveTags = map[string]func(*wireTypeTag){
	"bool":    func(t *wireTypeTag) { t.Bool = &unit{} },
	"u8":      func(t *wireTypeTag) { t.U8 = &unit{} },
	"u16":     func(t *wireTypeTag) { t.U16 = &unit{} },
	"u32":     func(t *wireTypeTag) { t.U32 = &unit{} },
	"u64":     func(t *wireTypeTag) { t.U64 = &unit{} },
	"u128":    func(t *wireTypeTag) { t.U128 = &unit{} },
	"u256":    func(t *wireTypeTag) { t.U256 = &unit{} },
	"address": func(t *wireTypeTag) { t.Address = &unit{} },
	"signer":  func(t *wireTypeTag) { t.Signer = &unit{} },
}

// parseTypeTag parses a Move type such as "0x2::coin::Coin<0x2::sui::SUI>".
func parseTypeTag(s string) (typeTag, error) {
	tag, rest, err := parseTypeTagPrefix(strings.TrimSpace(s))
	if err != nil {
		return typeTag{}, err
	}
	if strings.TrimSpace(rest) != "" {
		return typeTag{}, fmt.Errorf("trailing input %q in type %q", rest, s)
	}
	return tag, nil
}

func parseTypeTagPrefix(s string) (typeTag, string, error) {
	s = strings.TrimLeft(s, " ")
	end := strings.IndexAny(s, "<>, ")
	head := s
	if end >= 0 {
		head = s[:end]
	}
	rest := s[len(head):]

	if _, ok := primitiveTags[head]; ok {
		return typeTag{kind: head}, rest, nil
	}
	if head == "vector" {
		if !strings.HasPrefix(rest, "<") {
			return typeTag{}, "", fmt.Errorf("vector without element type in %q", s)
		}
		elem, after, err := parseTypeTagPrefix(rest[1:])
		if err != nil {
			return typeTag{}, "", err
		}
		after = strings.TrimLeft(after, " ")
		if !strings.HasPrefix(after, ">") {
			return typeTag{}, "", fmt.Errorf("unclosed vector in %q", s)
		}
		return typeTag{kind: "vector", elem: &elem}, after[1:], nil
	}

	parts := strings.Split(head, "::")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return typeTag{}, "", fmt.Errorf("malformed type %q", head)
	}
	tag := typeTag{kind: "struct", address: parts[0], module: parts[1], name: parts[2]}
	if !strings.HasPrefix(rest, "<") {
		return tag, rest, nil
	}
	rest = rest[1:]
	for {
		param, after, err := parseTypeTagPrefix(rest)
		if err != nil {
			return typeTag{}, "", err
		}
		tag.params = append(tag.params, param)
		after = strings.TrimLeft(after, " ")
		switch {
		case strings.HasPrefix(after, ","):
			rest = after[1:]
		case strings.HasPrefix(after, ">"):
			return tag, after[1:], nil
		default:
			return typeTag{}, "", fmt.Errorf("unclosed type parameters in %q", s)
		}
	}
}

// wire converts the parsed tag into its serialized form.
func (t typeTag) wire() (wireTypeTag, error) {
	var out wireTypeTag
	switch t.kind {
	case "vector":
		elem, err := t.elem.wire()
		if err != nil {
			return out, err
		}
		out.Vector = &elem
	case "struct":
		addr, err := parseAddress(t.address)
		if err != nil {
			return out, err
		}
		params := make([]wireTypeTag, len(t.params))
		for i, p := range t.params {
			if params[i], err = p.wire(); err != nil {
				return out, err
			}
		}
		out.Struct = &wireStructTag{Address: addr, Module: t.module, Name: t.name, TypeParams: params}
	default:
		set, ok := primitiveTags[t.kind]
		if !ok {
			return out, fmt.Errorf("unknown type kind %q", t.kind)
		}
		set(&out)
	}
	return out, nil
}

// String renders the tag back into Move syntax.
func (t typeTag) String() string {
	switch t.kind {
	case "vector":
		return "vector<" + t.elem.String() + ">"
	case "struct":
		s := t.address + "::" + t.module + "::" + t.name
		if len(t.params) == 0 {
			return s
		}
		params := make([]string, len(t.params))
		for i, p := range t.params {
			params[i] = p.String()
		}
		return s + "<" + strings.Join(params, ", ") + ">"
	default:
		return t.kind
	}
}
