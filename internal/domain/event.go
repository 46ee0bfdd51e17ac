package domain

import (
	"encoding/json"
	"math/big"
)

// Event is a decoded ledger event. The concrete types below are the only
// implementations; anything else decodes to UnknownEvent.
type Event interface {
	EventType() string
}

// StatusEvent reports a token's lifecycle status after a call.
type StatusEvent struct {
	Type         string
	TokenType    CoinType
	Status       TokenStatus
	TotalSupply  *big.Int
	CollectedSUI *big.Int
}

func (e StatusEvent) EventType() string { return e.Type }

// TradeEvent reports the amounts exchanged by a buy or sell.
type TradeEvent struct {
	Type      string
	TokenType CoinType
	IsBuy     bool
	AmountIn  *big.Int
	AmountOut *big.Int
}

func (e TradeEvent) EventType() string { return e.Type }

// PoolCreatedEvent reports an AMM pool opened for a graduated token.
type PoolCreatedEvent struct {
	Type      string
	TokenType CoinType
	PoolID    string
}

func (e PoolCreatedEvent) EventType() string { return e.Type }

// UnknownEvent keeps an event whose shape is not recognised.
type UnknownEvent struct {
	Type string
	Raw  json.RawMessage
}

func (e UnknownEvent) EventType() string { return e.Type }
