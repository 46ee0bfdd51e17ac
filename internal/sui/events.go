package sui

import (
	"encoding/json"
	"strings"

	"github.com/mtlprog/swapkit/internal/domain"
)

// Event struct names emitted by the launch module. Matching is on the struct
// name so that upgraded packages keep decoding.
const (
	eventTokenStatus = "TokenStatusEvent"
	eventTrade       = "TradeEvent"
	eventSwap        = "SwapEvent"
	eventPoolCreated = "PoolCreatedEvent"
)

// decodeEvents turns raw node events into typed domain events. Shapes that do
// not match their declared kind fall back to UnknownEvent.
func decodeEvents(raw []rawEvent) []domain.Event {
	events := make([]domain.Event, 0, len(raw))
	for _, e := range raw {
		events = append(events, decodeEvent(e))
	}
	return events
}

func decodeEvent(e rawEvent) domain.Event {
	name, typeArg := eventName(e.Type)
	var (
		ev domain.Event
		ok bool
	)
	switch name {
	case eventTokenStatus:
		ev, ok = decodeStatusEvent(e, typeArg)
	case eventTrade, eventSwap:
		ev, ok = decodeTradeEvent(e, typeArg)
	case eventPoolCreated:
		ev, ok = decodePoolCreatedEvent(e, typeArg)
	}
	if !ok {
		return domain.UnknownEvent{Type: e.Type, Raw: e.ParsedJSON}
	}
	return ev
}

// eventName returns the struct name and the first type argument of an event
// type such as "0xpkg::pumpsui_core::TokenStatusEvent<0xabc::tok::TOK>".
func eventName(typ string) (name string, typeArg domain.CoinType) {
	base := typ
	if i := strings.Index(typ, "<"); i >= 0 && strings.HasSuffix(typ, ">") {
		base = typ[:i]
		typeArg = domain.CoinType(strings.TrimSpace(typ[i+1 : len(typ)-1]))
	}
	if i := strings.LastIndex(base, "::"); i >= 0 {
		name = base[i+2:]
	}
	return name, typeArg
}

type eventFields map[string]json.RawMessage

func (f eventFields) text(keys ...string) (string, bool) {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String(), true
		}
		var nested struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil && nested.Name != "" {
			return nested.Name, true
		}
	}
	return "", false
}

func (f eventFields) coinType(fallback domain.CoinType) domain.CoinType {
	if s, ok := f.text("token_type", "coin_type"); ok && s != "" {
		if !strings.HasPrefix(s, "0x") {
			s = "0x" + s
		}
		return domain.CoinType(s)
	}
	return fallback
}

func decodeStatusEvent(e rawEvent, typeArg domain.CoinType) (domain.Event, bool) {
	var f eventFields
	if err := json.Unmarshal(e.ParsedJSON, &f); err != nil {
		return nil, false
	}
	s, ok := f.text("status")
	if !ok {
		return nil, false
	}
	status, err := domain.ParseTokenStatus(s)
	if err != nil {
		return nil, false
	}
	ev := domain.StatusEvent{Type: e.Type, TokenType: f.coinType(typeArg), Status: status}
	if raw, ok := f["total_supply"]; ok {
		ev.TotalSupply, _ = parseBigInt(raw)
	}
	if raw, ok := f["collected_sui"]; ok {
		ev.CollectedSUI, _ = parseBigInt(raw)
	}
	return ev, true
}

func decodeTradeEvent(e rawEvent, typeArg domain.CoinType) (domain.Event, bool) {
	var f struct {
		IsBuy     *bool           `json:"is_buy"`
		AmountIn  json.RawMessage `json:"amount_in"`
		AmountOut json.RawMessage `json:"amount_out"`
	}
	if err := json.Unmarshal(e.ParsedJSON, &f); err != nil || f.IsBuy == nil {
		return nil, false
	}
	in, err := parseBigInt(f.AmountIn)
	if err != nil {
		return nil, false
	}
	out, err := parseBigInt(f.AmountOut)
	if err != nil {
		return nil, false
	}
	var all eventFields
	_ = json.Unmarshal(e.ParsedJSON, &all)
	return domain.TradeEvent{
		Type:      e.Type,
		TokenType: all.coinType(typeArg),
		IsBuy:     *f.IsBuy,
		AmountIn:  in,
		AmountOut: out,
	}, true
}

func decodePoolCreatedEvent(e rawEvent, typeArg domain.CoinType) (domain.Event, bool) {
	var f eventFields
	if err := json.Unmarshal(e.ParsedJSON, &f); err != nil {
		return nil, false
	}
	id, ok := f.text("pool_id")
	if !ok || id == "" {
		return nil, false
	}
	return domain.PoolCreatedEvent{Type: e.Type, TokenType: f.coinType(typeArg), PoolID: id}, true
}
