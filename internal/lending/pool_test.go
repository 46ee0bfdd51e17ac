package lending

import (
	"testing"
	"time"
)

type fields map[string]string

func (f fields) StringField(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

func TestDecodePool(t *testing.T) {
	stats, err := DecodePool(fields{
		"reserves":         "1000",
		"total_supplies":   "5000",
		"total_borrows":    "1250",
		"borrow_index":     "1000000000",
		"supply_index":     "1000000000",
		"borrow_rate":      "525",
		"supply_rate":      "130",
		"last_update_time": "1700000000000",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stats.BorrowRate.String(); got != "5.25" {
		t.Errorf("borrow rate = %s, want 5.25", got)
	}
	if got := stats.SupplyRate.String(); got != "1.3" {
		t.Errorf("supply rate = %s, want 1.3", got)
	}
	if got := stats.Utilization().String(); got != "25" {
		t.Errorf("utilization = %s, want 25", got)
	}
	if !stats.LastUpdate.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("last update = %v", stats.LastUpdate)
	}
}

func TestDecodePoolDefaults(t *testing.T) {
	stats, err := DecodePool(fields{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Reserves.Sign() != 0 || !stats.BorrowRate.IsZero() || !stats.Utilization().IsZero() {
		t.Errorf("stats = %+v", stats)
	}

	if _, err := DecodePool(fields{"reserves": "many"}); err == nil {
		t.Error("expected error for invalid reserves")
	}
}
