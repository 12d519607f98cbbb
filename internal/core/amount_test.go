package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain decimal", in: "12.34", want: "12.34"},
		{name: "decimal comma", in: "12,34", want: "12.34"},
		{name: "integer", in: "500", want: "500.00"},
		{name: "negative", in: "-3.50", want: "-3.50"},
		{name: "surrounding whitespace", in: " 7.25 ", want: "7.25"},
		{name: "long fraction kept exact", in: "0.005", want: "0.01"}, // StringFixed rounds for display only
		{name: "empty", in: "", wantErr: true},
		{name: "non numeric", in: "abc", wantErr: true},
		{name: "two separators", in: "1.2.3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) expected error, got %s", tt.in, got)
				}
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("error should wrap ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.in, err)
			}
			if FormatAmount(got) != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, FormatAmount(got), tt.want)
			}
		})
	}
}

func TestParsePositiveAmount(t *testing.T) {
	if _, err := ParsePositiveAmount("0"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero should be rejected, got %v", err)
	}
	if _, err := ParsePositiveAmount("-1.00"); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative should be rejected, got %v", err)
	}
	if d, err := ParsePositiveAmount("99,90"); err != nil || FormatAmount(d) != "99.90" {
		t.Errorf("ParsePositiveAmount(99,90) = %s, %v", FormatAmount(d), err)
	}
}

func TestParseAmountExactSummation(t *testing.T) {
	// 0.1 summed 1000 times must be exactly 100, not 100.000000000000xyz.
	sum, _ := ParseAmount("0")
	tenth, err := ParseAmount("0.10")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		sum = sum.Add(tenth)
	}
	if FormatAmount(sum) != "100.00" {
		t.Errorf("1000 * 0.10 = %s, want 100.00", FormatAmount(sum))
	}
}
