// Package billing derives the bill for a completed (or in-progress) table
// session. Compute is a pure function of the session and a caller-supplied
// "now", so the grace-period and duration math is deterministic under test.
package billing

import (
	"fmt"
	"time"

	"cueclub/backend/internal/domain"
	"cueclub/backend/internal/money"
	"cueclub/backend/internal/validate"
)

// GracePeriod is shaved off the front of every session before table time is
// charged. A session shorter than the grace period bills zero table time;
// food charges still apply.
const GracePeriod = 5 * time.Minute

// Breakdown is the money-rounded result of billing a session. Amounts are
// decimal currency values that have each passed through the money package.
type Breakdown struct {
	RawDuration      time.Duration
	BillableDuration time.Duration
	Hours            float64
	TableCharge      float64
	FoodCharge       float64
	Subtotal         float64
	DiscountAmount   float64
	DiscountReason   string
	Total            float64
}

// DurationMinutes is the actual session length in whole minutes, not
// grace-adjusted. This is what the transaction records.
func (b Breakdown) DurationMinutes() int {
	return int(b.RawDuration / time.Minute)
}

// BillableMinutes is the grace-adjusted length in whole minutes, for
// display alongside the charge.
func (b Breakdown) BillableMinutes() int {
	return int(b.BillableDuration / time.Minute)
}

// Compute bills a session as of now: raw duration minus accumulated pauses,
// grace period off the front, straight proportional rate-times-hours table
// charge, plus the food lines. Every intermediate figure is rounded at the
// cent; fractional cents never accumulate across steps.
func Compute(session *domain.Session, now time.Time) Breakdown {
	raw := session.Elapsed(now)

	billable := raw - GracePeriod
	if billable < 0 {
		billable = 0
	}

	hours := float64(billable) / float64(time.Hour)
	rate := money.FromCents(session.HourlyRateCents)
	tableCharge := money.Round(money.Multiply(rate, hours))

	lineTotals := make([]float64, 0, len(session.FoodItems))
	for _, line := range session.FoodItems {
		lineTotals = append(lineTotals, money.Multiply(money.FromCents(line.PriceCents), float64(line.Quantity)))
	}
	foodCharge := money.Round(money.Sum(lineTotals))

	subtotal := money.Round(money.Add(tableCharge, foodCharge))

	return Breakdown{
		RawDuration:      raw,
		BillableDuration: billable,
		Hours:            hours,
		TableCharge:      tableCharge,
		FoodCharge:       foodCharge,
		Subtotal:         subtotal,
		Total:            subtotal,
	}
}

// ApplyDiscount validates and applies an operator discount to a computed
// breakdown. A non-zero discount requires a non-empty reason. The input is
// rejected whole on any failure; the breakdown is only modified on success.
func ApplyDiscount(b *Breakdown, input domain.DiscountInput) error {
	var amount float64

	switch input.Kind {
	case "", domain.DiscountNone:
		amount = 0
	case domain.DiscountPercentage:
		if err := validate.Percentage(input.Value); err != nil {
			return err
		}
		amount = money.Round(money.PercentageOf(b.Subtotal, input.Value))
	case domain.DiscountFixed:
		if err := validate.DiscountAmount(input.Value, b.Subtotal); err != nil {
			return err
		}
		amount = money.Round(input.Value)
	default:
		return fmt.Errorf("unknown discount kind %q", input.Kind)
	}

	if amount > 0 {
		if err := validate.NonEmptyString(input.Reason); err != nil {
			return fmt.Errorf("discount requires a reason")
		}
	}

	total := money.Round(money.Subtract(b.Subtotal, amount))
	if total < 0 {
		total = 0
	}

	b.DiscountAmount = amount
	b.DiscountReason = input.Reason
	b.Total = total
	return nil
}

// BuildPayment validates the operator's payment input against the bill
// total and returns the tagged payment record. Split amounts must both be
// positive and sum to the total within the money tolerance.
func BuildPayment(input domain.PaymentInput, total float64) (domain.Payment, error) {
	switch input.Method {
	case domain.PaymentCash:
		return domain.Payment{Kind: domain.PaymentCash, CashCents: money.ToCents(total)}, nil
	case domain.PaymentCard:
		return domain.Payment{Kind: domain.PaymentCard, CardCents: money.ToCents(total)}, nil
	case domain.PaymentSplit:
		if err := validate.PositiveNumber(input.Cash); err != nil {
			return domain.Payment{}, fmt.Errorf("split cash amount must be greater than zero")
		}
		if err := validate.PositiveNumber(input.Card); err != nil {
			return domain.Payment{}, fmt.Errorf("split card amount must be greater than zero")
		}
		combined := money.Round(money.Add(input.Cash, input.Card))
		if !money.Equals(combined, total) {
			return domain.Payment{}, fmt.Errorf("split amounts (%.2f) must equal total (%.2f)", combined, total)
		}
		return domain.Payment{
			Kind:      domain.PaymentSplit,
			CashCents: money.ToCents(input.Cash),
			CardCents: money.ToCents(input.Card),
		}, nil
	default:
		return domain.Payment{}, fmt.Errorf("unknown payment method %q", input.Method)
	}
}

// EstimateLiveAmount is the tiered on-screen running amount: the first hour
// charges the full hourly rate flat, then each started half hour adds half
// the hourly rate. This intentionally diverges from the proportional
// final-bill rule in Compute; it is a display estimate, never the billed
// amount. See DESIGN.md before unifying the two.
func EstimateLiveAmount(hourlyRateCents int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	rate := money.FromCents(hourlyRateCents)
	if elapsed <= time.Hour {
		return money.Round(rate)
	}

	extra := elapsed - time.Hour
	halfHours := int64(extra / (30 * time.Minute))
	if extra%(30*time.Minute) > 0 {
		halfHours++
	}
	increments := money.Multiply(money.Multiply(rate, 0.5), float64(halfHours))
	return money.Round(money.Add(rate, increments))
}
