package domain

import "fmt"

// abortMessages maps Move abort codes of the launch and lending modules to
// user-facing messages. Codes are scoped by module name.
var abortMessages = map[string]map[uint64]string{
	"pumpsui_core": {
		0: "token pool is not accepting trades",
		1: "payment amount must be greater than zero",
		2: "amount exceeds the remaining token supply",
		3: "pool does not hold enough primary coin for this sale",
		4: "funding goal already reached; liquidity pool is pending",
		5: "liquidity pool has already been created",
		6: "caller is not authorized for this pool",
	},
	"lending_core": {
		0: "asset is not registered in the lending market",
		1: "asset is already registered in the lending market",
		2: "amount must be greater than zero",
		3: "insufficient supplied balance to withdraw",
		4: "borrow exceeds the collateral limit",
		5: "insufficient liquidity in the lending pool",
		6: "repayment exceeds the outstanding debt",
		7: "withdrawal would leave the position unhealthy",
	},
}

// LookupAbort returns the message registered for code raised by module.
func LookupAbort(module string, code uint64) (string, bool) {
	msg, ok := abortMessages[module][code]
	return msg, ok
}

// NewAbortError maps a raised abort through the message table.
func NewAbortError(module, function string, code uint64) *AbortError {
	msg, ok := LookupAbort(module, code)
	if !ok {
		msg = fmt.Sprintf("transaction aborted with code %d", code)
	}
	return &AbortError{Module: module, Function: function, Code: code, Message: msg, Known: ok}
}
