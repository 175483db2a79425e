package core

import (
	"errors"
	"testing"
)

func TestParseAmountToCents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "plain", input: "12.34", want: 1234},
		{name: "comma separator", input: "12,34", want: 1234},
		{name: "integer", input: "100", want: 10000},
		{name: "one decimal", input: "0.5", want: 50},
		{name: "rounds half up", input: "12.345", want: 1235},
		{name: "rounds down", input: "12.344", want: 1234},
		{name: "surrounding spaces", input: "  7.50 ", want: 750},
		{name: "smallest", input: "0.01", want: 1},
		{name: "empty", input: "", wantErr: true},
		{name: "zero", input: "0", wantErr: true},
		{name: "negative", input: "-5.00", wantErr: true},
		{name: "explicit plus", input: "+5.00", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "two separators", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountToCents(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ParseAmountToCents(%q) err = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmountToCents(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAmountToCents(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1234, "12.34"},
		{100, "1.00"},
		{1, "0.01"},
		{0, "0.00"},
		{-350, "-3.50"},
		{333333, "3333.33"},
	}
	for _, tt := range tests {
		if got := (Money{Cents: tt.cents}).String(); got != tt.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(6666, "EUR"); got != "EUR 66.66" {
		t.Errorf("FormatAmount = %q, want EUR 66.66", got)
	}
	if got := FormatAmount(-3333, "USD"); got != "USD -33.33" {
		t.Errorf("FormatAmount = %q, want USD -33.33", got)
	}
}
