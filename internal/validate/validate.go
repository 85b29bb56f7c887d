// Package validate holds the pure input predicates the billing flow and
// session mutators gate on. Each function returns nil for valid input or an
// error whose message is specific enough to surface to the operator
// unchanged. Callers reject the whole operation on failure; nothing clamps.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

func PositiveNumber(v float64) error {
	if math.IsNaN(v) || v <= 0 {
		return fmt.Errorf("value must be greater than zero")
	}
	return nil
}

func NonNegativeNumber(v float64) error {
	if math.IsNaN(v) || v < 0 {
		return fmt.Errorf("value must not be negative")
	}
	return nil
}

func NonEmptyString(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("value must not be empty")
	}
	return nil
}

func Percentage(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return fmt.Errorf("percentage must be between 0 and 100")
	}
	return nil
}

// DiscountAmount checks a fixed discount against the bill subtotal. Both
// arguments are decimal currency values.
func DiscountAmount(discount float64, subtotal float64) error {
	if err := NonNegativeNumber(discount); err != nil {
		return fmt.Errorf("discount must not be negative")
	}
	if discount > subtotal {
		return fmt.Errorf("discount cannot exceed subtotal (%.2f)", subtotal)
	}
	return nil
}

var (
	phonePattern = regexp.MustCompile(`^[+\-\d\s()]{10,}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// PhoneNumber validates an optional phone field. An empty string means
// "not provided" and is valid.
func PhoneNumber(v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	if !phonePattern.MatchString(strings.TrimSpace(v)) {
		return fmt.Errorf("phone number must have at least 10 digits")
	}
	return nil
}

// Email validates an optional email field with a simple local@domain.tld
// shape check. An empty string is valid.
func Email(v string) error {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	if !emailPattern.MatchString(strings.TrimSpace(v)) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}
