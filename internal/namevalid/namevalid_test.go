package namevalid

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		valid      bool
		normalized string
		errSubstr  string
	}{
		{"simple", "monday-restock", true, "monday-restock", ""},
		{"mixed case folded", "Monday-Restock", true, "monday-restock", ""},
		{"surrounding whitespace trimmed", "  Monday-Restock  ", true, "monday-restock", ""},
		{"underscores ok", "aisle_7_refill", true, "aisle_7_refill", ""},
		{"min length 3", "abc", true, "abc", ""},
		{"length 2 rejected", "ab", false, "", "at least 3"},
		{"max length 50", "a" + strings.Repeat("b", 49), true, "a" + strings.Repeat("b", 49), ""},
		{"length 51 rejected", "a" + strings.Repeat("b", 50), false, "", "at most 50"},
		{"empty", "", false, "", "required"},
		{"internal space", "a b", false, "", "spaces"},
		{"leading digit", "1abc", false, "", "start with a letter"},
		{"leading underscore", "_abc", false, "", "start with a letter"},
		{"illegal char", "abc!def", false, "", "letters, numbers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateName(tt.input)
			if res.Valid != tt.valid {
				t.Fatalf("ValidateName(%q).Valid = %v, want %v (err: %s)",
					tt.input, res.Valid, tt.valid, res.Error)
			}
			if tt.valid && res.Normalized != tt.normalized {
				t.Errorf("Normalized = %q, want %q", res.Normalized, tt.normalized)
			}
			if !tt.valid && !strings.Contains(res.Error, tt.errSubstr) {
				t.Errorf("Error = %q, want it to contain %q", res.Error, tt.errSubstr)
			}
		})
	}
}

// Canonicalization is idempotent: validating a normalized name yields
// the same normalized name.
func TestValidateNameIdempotent(t *testing.T) {
	first := ValidateName("  Monday-Restock  ")
	if !first.Valid {
		t.Fatalf("unexpected error: %s", first.Error)
	}
	second := ValidateName(first.Normalized)
	if !second.Valid || second.Normalized != first.Normalized {
		t.Errorf("normalization not idempotent: %q vs %q", first.Normalized, second.Normalized)
	}
}

func TestValidateUPC(t *testing.T) {
	valid := []string{"29456086", "ABC-1234", "1234", strings.Repeat("9", 20)}
	for _, upc := range valid {
		if err := ValidateUPC(upc); err != nil {
			t.Errorf("ValidateUPC(%q) = %v, want nil", upc, err)
		}
	}
	invalid := []string{"", "   ", "123", strings.Repeat("9", 21), "12 34", "12#45"}
	for _, upc := range invalid {
		if err := ValidateUPC(upc); err == nil {
			t.Errorf("ValidateUPC(%q) = nil, want error", upc)
		}
	}
}

func TestValidateQuantity(t *testing.T) {
	if err := ValidateQuantity(0, 0); err != nil {
		t.Errorf("zero quantity should be allowed: %v", err)
	}
	if err := ValidateQuantity(9999, 0); err != nil {
		t.Errorf("max quantity should be allowed: %v", err)
	}
	if err := ValidateQuantity(10000, 0); err == nil {
		t.Error("expected error above default max")
	}
	if err := ValidateQuantity(-1, 0); err == nil {
		t.Error("expected error for negative quantity")
	}
	if err := ValidateQuantity(6, 5); err == nil {
		t.Error("expected error above explicit max")
	}
}
