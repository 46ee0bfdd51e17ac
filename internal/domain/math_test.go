package domain

import (
	"errors"
	"math/big"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"integer", "1", "1000000000", false},
		{"decimal", "1.5", "1500000000", false},
		{"smallest unit", "0.000000001", "1", false},
		{"truncates extra digits", "0.0000000019", "1", false},
		{"whitespace", "  2 ", "2000000000", false},
		{"zero", "0", "0", false},
		{"empty", "", "", true},
		{"letters", "abc", "", true},
		{"negative", "-1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input, PrimaryDecimals)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("error = %v, want ErrInvalidAmount", err)
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		units int64
		want  string
	}{
		{1500000000, "1.5"},
		{1, "0.000000001"},
		{0, "0"},
		{123000000000, "123"},
	}

	for _, tt := range tests {
		if got := FormatAmount(big.NewInt(tt.units), PrimaryDecimals); got != tt.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tt.units, got, tt.want)
		}
	}

	if got := FormatAmount(nil, PrimaryDecimals); got != "0" {
		t.Errorf("FormatAmount(nil) = %q, want 0", got)
	}
}

func TestIsBlankAmount(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"0", true},
		{"0.000", true},
		{"0.1", false},
		{"abc", false},
	}

	for _, tt := range tests {
		if got := IsBlankAmount(tt.input); got != tt.want {
			t.Errorf("IsBlankAmount(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSumAmounts(t *testing.T) {
	got := SumAmounts(big.NewInt(100), nil, big.NewInt(50))
	if got.Int64() != 150 {
		t.Errorf("SumAmounts = %s, want 150", got)
	}
}

func TestTotalBalance(t *testing.T) {
	coins := []Coin{
		{ObjectRef: ObjectRef{ID: "a"}, Amount: big.NewInt(100)},
		{ObjectRef: ObjectRef{ID: "b"}, Amount: big.NewInt(50)},
	}
	if got := TotalBalance(coins); got.Int64() != 150 {
		t.Errorf("TotalBalance = %s, want 150", got)
	}
}
