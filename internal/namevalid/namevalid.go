// Package namevalid validates and normalizes pick request names,
// UPC codes, and quantities.
package namevalid

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Name constraints. Names are stored lowercased.
const (
	MinNameLength = 3
	MaxNameLength = 50
)

// UPC constraints.
const (
	MinUPCLength = 4
	MaxUPCLength = 20
)

// MaxQuantity bounds a single item's requested quantity.
const MaxQuantity = 9999

var namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{2,49}$`)

// NameResult is the outcome of validating a request name.
type NameResult struct {
	Valid      bool
	Normalized string
	Error      string
}

// ValidateName checks a raw request name and returns the lowercased
// canonical form. Validation order matters: the error messages are part
// of the API surface.
func ValidateName(raw string) NameResult {
	if raw == "" {
		return NameResult{Error: "Name is required"}
	}

	name := strings.TrimSpace(raw)

	if strings.Contains(name, " ") {
		return NameResult{Error: "Name cannot contain spaces"}
	}
	if len(name) < MinNameLength {
		return NameResult{Error: fmt.Sprintf("Name must be at least %d characters", MinNameLength)}
	}
	if len(name) > MaxNameLength {
		return NameResult{Error: fmt.Sprintf("Name must be at most %d characters", MaxNameLength)}
	}
	if !unicode.IsLetter(rune(name[0])) {
		return NameResult{Error: "Name must start with a letter"}
	}
	if !namePattern.MatchString(name) {
		return NameResult{Error: "Name can only contain letters, numbers, underscores, and hyphens"}
	}

	return NameResult{Valid: true, Normalized: strings.ToLower(name)}
}

// ValidateUPC checks a UPC/barcode string. Hyphens are allowed as
// separators and ignored for the alphanumeric check.
func ValidateUPC(upc string) error {
	if upc == "" {
		return fmt.Errorf("UPC is required")
	}
	upc = strings.TrimSpace(upc)
	if upc == "" {
		return fmt.Errorf("UPC cannot be empty")
	}
	stripped := strings.ReplaceAll(upc, "-", "")
	for _, r := range stripped {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("UPC must be alphanumeric")
		}
	}
	if stripped == "" {
		return fmt.Errorf("UPC must be alphanumeric")
	}
	if len(upc) < MinUPCLength || len(upc) > MaxUPCLength {
		return fmt.Errorf("UPC must be %d-%d characters", MinUPCLength, MaxUPCLength)
	}
	return nil
}

// ValidateQuantity checks a quantity against [0, max]. A max of 0 means
// the package default.
func ValidateQuantity(qty, max int) error {
	if max <= 0 {
		max = MaxQuantity
	}
	if qty < 0 {
		return fmt.Errorf("Quantity cannot be negative")
	}
	if qty > max {
		return fmt.Errorf("Quantity cannot exceed %d", max)
	}
	return nil
}
