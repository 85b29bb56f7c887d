package billing

import (
	"testing"
	"time"

	"cueclub/backend/internal/domain"
)

var billingEpoch = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

func testSession(foodItems ...domain.FoodItem) *domain.Session {
	return &domain.Session{
		ID:              "session-test",
		TableID:         1,
		CustomerName:    "Arjun",
		StartTime:       billingEpoch,
		HourlyRateCents: 1500,
		FoodItems:       foodItems,
	}
}

func TestComputeWithinGracePeriodBillsZeroTableTime(t *testing.T) {
	session := testSession()

	b := Compute(session, billingEpoch.Add(5*time.Minute))
	if b.TableCharge != 0 {
		t.Fatalf("expected zero table charge at exactly the grace period, got %v", b.TableCharge)
	}
	if b.BillableMinutes() != 0 {
		t.Fatalf("expected zero billable minutes, got %d", b.BillableMinutes())
	}
	if b.DurationMinutes() != 5 {
		t.Fatalf("expected recorded duration of 5 minutes, got %d", b.DurationMinutes())
	}
}

func TestComputeJustPastGraceRoundsToZeroCharge(t *testing.T) {
	session := testSession()

	b := Compute(session, billingEpoch.Add(5*time.Minute+time.Second))
	if b.BillableDuration != time.Second {
		t.Fatalf("expected one billable second, got %v", b.BillableDuration)
	}
	if b.TableCharge != 0 {
		t.Fatalf("expected one second at 15.00/hr to round to 0.00, got %v", b.TableCharge)
	}
}

func TestComputeGraceStillChargesFood(t *testing.T) {
	session := testSession(domain.FoodItem{ID: "line-1", Name: "Tea", PriceCents: 300, Quantity: 2})

	b := Compute(session, billingEpoch.Add(3*time.Minute))
	if b.TableCharge != 0 {
		t.Fatalf("expected zero table charge, got %v", b.TableCharge)
	}
	if b.FoodCharge != 6.00 {
		t.Fatalf("expected food charge 6.00, got %v", b.FoodCharge)
	}
	if b.Total != 6.00 {
		t.Fatalf("expected total 6.00, got %v", b.Total)
	}
}

func TestComputeEndToEndWithDiscount(t *testing.T) {
	session := testSession(domain.FoodItem{ID: "line-1", Name: "Fries", PriceCents: 500, Quantity: 2})

	// 65 minutes on the clock, 60 billable after grace.
	b := Compute(session, billingEpoch.Add(65*time.Minute))
	if b.TableCharge != 15.00 {
		t.Fatalf("expected table charge 15.00, got %v", b.TableCharge)
	}
	if b.FoodCharge != 10.00 {
		t.Fatalf("expected food charge 10.00, got %v", b.FoodCharge)
	}
	if b.Subtotal != 25.00 {
		t.Fatalf("expected subtotal 25.00, got %v", b.Subtotal)
	}

	err := ApplyDiscount(&b, domain.DiscountInput{Kind: domain.DiscountPercentage, Value: 10, Reason: "loyalty"})
	if err != nil {
		t.Fatalf("apply discount failed: %v", err)
	}
	if b.DiscountAmount != 2.50 {
		t.Fatalf("expected discount 2.50, got %v", b.DiscountAmount)
	}
	if b.Total != 22.50 {
		t.Fatalf("expected total 22.50, got %v", b.Total)
	}
}

func TestApplyDiscountRequiresReason(t *testing.T) {
	session := testSession()
	b := Compute(session, billingEpoch.Add(65*time.Minute))

	err := ApplyDiscount(&b, domain.DiscountInput{Kind: domain.DiscountPercentage, Value: 10})
	if err == nil {
		t.Fatalf("expected non-zero discount without a reason to be rejected")
	}
	if b.DiscountAmount != 0 || b.Total != b.Subtotal {
		t.Fatalf("expected breakdown to be unchanged after rejected discount")
	}
}

func TestApplyDiscountFixedCannotExceedSubtotal(t *testing.T) {
	session := testSession()
	b := Compute(session, billingEpoch.Add(65*time.Minute))

	err := ApplyDiscount(&b, domain.DiscountInput{Kind: domain.DiscountFixed, Value: 999, Reason: "comp"})
	if err == nil {
		t.Fatalf("expected fixed discount above subtotal to be rejected")
	}
}

func TestApplyDiscountRejectsUnknownKind(t *testing.T) {
	session := testSession()
	b := Compute(session, billingEpoch.Add(10*time.Minute))

	if err := ApplyDiscount(&b, domain.DiscountInput{Kind: "bogo", Value: 1, Reason: "x"}); err == nil {
		t.Fatalf("expected unknown discount kind to be rejected")
	}
}

func TestBuildPaymentCashAndCard(t *testing.T) {
	cash, err := BuildPayment(domain.PaymentInput{Method: domain.PaymentCash}, 22.50)
	if err != nil {
		t.Fatalf("cash payment failed: %v", err)
	}
	if cash.Kind != domain.PaymentCash || cash.CashCents != 2250 || cash.CardCents != 0 {
		t.Fatalf("unexpected cash payment: %+v", cash)
	}

	card, err := BuildPayment(domain.PaymentInput{Method: domain.PaymentCard}, 22.50)
	if err != nil {
		t.Fatalf("card payment failed: %v", err)
	}
	if card.Kind != domain.PaymentCard || card.CardCents != 2250 || card.CashCents != 0 {
		t.Fatalf("unexpected card payment: %+v", card)
	}
}

func TestBuildPaymentSplitMustSumToTotal(t *testing.T) {
	payment, err := BuildPayment(domain.PaymentInput{Method: domain.PaymentSplit, Cash: 12.50, Card: 10.00}, 22.50)
	if err != nil {
		t.Fatalf("split payment failed: %v", err)
	}
	if payment.CashCents != 1250 || payment.CardCents != 1000 {
		t.Fatalf("unexpected split breakdown: %+v", payment)
	}

	_, err = BuildPayment(domain.PaymentInput{Method: domain.PaymentSplit, Cash: 60.00, Card: 40.01}, 100.00)
	if err == nil {
		t.Fatalf("expected mismatched split to be rejected")
	}

	_, err = BuildPayment(domain.PaymentInput{Method: domain.PaymentSplit, Cash: 0, Card: 22.50}, 22.50)
	if err == nil {
		t.Fatalf("expected zero cash leg to be rejected")
	}
}

func TestBuildPaymentRejectsUnknownMethod(t *testing.T) {
	if _, err := BuildPayment(domain.PaymentInput{Method: "upi"}, 10.00); err == nil {
		t.Fatalf("expected unknown payment method to be rejected")
	}
}

func TestEstimateLiveAmountTiers(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		want    float64
	}{
		{0, 0},
		{10 * time.Minute, 15.00},
		{time.Hour, 15.00},
		{time.Hour + time.Minute, 22.50},
		{90 * time.Minute, 22.50},
		{91 * time.Minute, 30.00},
		{2 * time.Hour, 30.00},
	}
	for _, tc := range cases {
		if got := EstimateLiveAmount(1500, tc.elapsed); got != tc.want {
			t.Fatalf("EstimateLiveAmount(1500, %v) = %v, want %v", tc.elapsed, got, tc.want)
		}
	}
}

func TestEstimateDivergesFromFinalBill(t *testing.T) {
	session := testSession()
	now := billingEpoch.Add(30 * time.Minute)

	estimate := EstimateLiveAmount(session.HourlyRateCents, session.Elapsed(now))
	final := Compute(session, now).Total
	if estimate == final {
		t.Fatalf("expected display estimate %v to differ from final bill %v", estimate, final)
	}
}
