package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance means the owner's coins cannot cover the target amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrIncompleteAssetMetadata means on-chain identifiers required for the asset are missing.
	ErrIncompleteAssetMetadata = errors.New("incomplete asset metadata")

	// ErrNetwork wraps collaborator I/O failures.
	ErrNetwork = errors.New("network error")

	// ErrStaleRequest marks preview work superseded by a newer request.
	ErrStaleRequest = errors.New("stale request")

	// ErrSubmissionRejected means the signer or the node refused the transaction.
	ErrSubmissionRejected = errors.New("submission rejected")

	// ErrInvalidAmount means the amount text could not be parsed.
	ErrInvalidAmount = errors.New("invalid amount")
)

// AbortError is a Move abort raised by a simulated or executed call.
// Known is false when the code has no entry in the message table.
type AbortError struct {
	Module   string
	Function string
	Code     uint64
	Message  string
	Known    bool
}

func (e *AbortError) Error() string {
	if !e.Known {
		return fmt.Sprintf("unknown abort %d in %s", e.Code, e.Module)
	}
	return fmt.Sprintf("%s (abort %d in %s)", e.Message, e.Code, e.Module)
}

// IsUnknownAbort reports whether err carries an abort code without a mapped message.
func IsUnknownAbort(err error) bool {
	var abort *AbortError
	return errors.As(err, &abort) && !abort.Known
}
