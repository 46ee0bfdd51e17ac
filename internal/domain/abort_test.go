package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewAbortError_Known(t *testing.T) {
	err := NewAbortError("pumpsui_core", "sell", 3)
	if !err.Known {
		t.Fatal("expected known abort")
	}
	if err.Message != "pool does not hold enough primary coin for this sale" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if IsUnknownAbort(err) {
		t.Error("IsUnknownAbort should be false for a mapped code")
	}
}

func TestNewAbortError_Unknown(t *testing.T) {
	err := NewAbortError("pumpsui_core", "buy", 999)
	if err.Known {
		t.Fatal("expected unknown abort")
	}
	wrapped := fmt.Errorf("simulating: %w", err)
	if !IsUnknownAbort(wrapped) {
		t.Error("IsUnknownAbort should see through wrapping")
	}
	var abort *AbortError
	if !errors.As(wrapped, &abort) || abort.Code != 999 {
		t.Errorf("errors.As failed or wrong code: %+v", abort)
	}
}

func TestLookupAbort_ScopedByModule(t *testing.T) {
	a, _ := LookupAbort("pumpsui_core", 2)
	b, _ := LookupAbort("lending_core", 2)
	if a == b {
		t.Errorf("codes should be scoped per module, both %q", a)
	}
	if _, ok := LookupAbort("other", 0); ok {
		t.Error("unknown module should not resolve")
	}
}
