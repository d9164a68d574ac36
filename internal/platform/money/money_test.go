package money

import (
	"strings"
	"testing"
)

func TestScale(t *testing.T) {
	cases := []struct {
		code string
		want int
	}{
		{"GBP", 2},
		{"usd", 2},
		{" JPY ", 0},
	}
	for _, tc := range cases {
		got, err := Scale(tc.code)
		if err != nil {
			t.Fatalf("Scale(%q) returned error: %v", tc.code, err)
		}
		if got != tc.want {
			t.Errorf("Scale(%q) = %d, want %d", tc.code, got, tc.want)
		}
	}

	if _, err := Scale("POUNDS"); err == nil {
		t.Error("expected error for unknown currency code")
	}
}

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount float64
		code   string
		want   int64
	}{
		{189.97, "GBP", 18997},
		{10, "GBP", 1000},
		{0.005, "GBP", 1},
		{1250, "JPY", 1250},
	}
	for _, tc := range cases {
		got, err := ToMinorUnits(tc.amount, tc.code)
		if err != nil {
			t.Fatalf("ToMinorUnits(%v, %q) returned error: %v", tc.amount, tc.code, err)
		}
		if got != tc.want {
			t.Errorf("ToMinorUnits(%v, %q) = %d, want %d", tc.amount, tc.code, got, tc.want)
		}
	}
}

func TestFromMinorUnits(t *testing.T) {
	got, err := FromMinorUnits(18997, "GBP")
	if err != nil {
		t.Fatalf("FromMinorUnits returned error: %v", err)
	}
	if got != 189.97 {
		t.Errorf("FromMinorUnits(18997, GBP) = %v, want 189.97", got)
	}
}

func TestFormat(t *testing.T) {
	out, err := Format(18997, "GBP", "en-GB")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty formatted amount")
	}
	if !strings.ContainsAny(out, "0123456789") {
		t.Errorf("expected digits in formatted amount, got %q", out)
	}
}

func TestFormatFallsBackOnBadLocale(t *testing.T) {
	want, err := Format(1000, "GBP", "en")
	if err != nil {
		t.Fatalf("Format returned error: %v", err)
	}
	got, err := Format(1000, "GBP", "not-a-locale!!")
	if err != nil {
		t.Fatalf("Format with bad locale returned error: %v", err)
	}
	if got != want {
		t.Errorf("expected fallback locale output %q, got %q", want, got)
	}
}

func TestFormatUnknownCurrency(t *testing.T) {
	if _, err := Format(100, "???", "en"); err == nil {
		t.Error("expected error for unknown currency")
	}
}
