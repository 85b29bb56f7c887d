package validate

import "testing"

func TestPositiveNumber(t *testing.T) {
	if err := PositiveNumber(0.01); err != nil {
		t.Fatalf("expected 0.01 to be valid, got %v", err)
	}
	if err := PositiveNumber(0); err == nil {
		t.Fatalf("expected zero to be rejected")
	}
	if err := PositiveNumber(-5); err == nil {
		t.Fatalf("expected negative to be rejected")
	}
}

func TestNonNegativeNumber(t *testing.T) {
	if err := NonNegativeNumber(0); err != nil {
		t.Fatalf("expected zero to be valid, got %v", err)
	}
	if err := NonNegativeNumber(-0.01); err == nil {
		t.Fatalf("expected negative to be rejected")
	}
}

func TestNonEmptyString(t *testing.T) {
	if err := NonEmptyString("Arjun"); err != nil {
		t.Fatalf("expected non-empty string to be valid, got %v", err)
	}
	if err := NonEmptyString("   "); err == nil {
		t.Fatalf("expected whitespace-only string to be rejected")
	}
}

func TestPercentageBounds(t *testing.T) {
	for _, v := range []float64{0, 10, 100} {
		if err := Percentage(v); err != nil {
			t.Fatalf("expected %v to be a valid percentage, got %v", v, err)
		}
	}
	for _, v := range []float64{-1, 100.01} {
		if err := Percentage(v); err == nil {
			t.Fatalf("expected %v to be rejected", v)
		}
	}
}

func TestDiscountAmountAgainstSubtotal(t *testing.T) {
	if err := DiscountAmount(100, 100); err != nil {
		t.Fatalf("expected discount equal to subtotal to be valid, got %v", err)
	}
	if err := DiscountAmount(120, 100); err == nil {
		t.Fatalf("expected discount above subtotal to be rejected")
	}
	if err := DiscountAmount(-1, 100); err == nil {
		t.Fatalf("expected negative discount to be rejected")
	}
}

func TestPhoneNumber(t *testing.T) {
	if err := PhoneNumber(""); err != nil {
		t.Fatalf("expected empty phone to be valid, got %v", err)
	}
	if err := PhoneNumber("+91 98765 43210"); err != nil {
		t.Fatalf("expected formatted phone to be valid, got %v", err)
	}
	if err := PhoneNumber("12345"); err == nil {
		t.Fatalf("expected short phone to be rejected")
	}
	if err := PhoneNumber("not-a-number!"); err == nil {
		t.Fatalf("expected letters to be rejected")
	}
}

func TestEmail(t *testing.T) {
	if err := Email(""); err != nil {
		t.Fatalf("expected empty email to be valid, got %v", err)
	}
	if err := Email("ops@cueclub.example"); err != nil {
		t.Fatalf("expected well-formed email to be valid, got %v", err)
	}
	if err := Email("nope@"); err == nil {
		t.Fatalf("expected malformed email to be rejected")
	}
}
