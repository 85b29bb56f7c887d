package domain

import "time"

// Activity is a bookable table category (snooker, pool, console) with a
// configured hourly rate. Tables are generated from activities at store
// construction time.
type Activity struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
	TableCount      int    `json:"table_count"`
}

const (
	TableAvailable   = "available"
	TableOccupied    = "occupied"
	TablePaused      = "paused"
	TableMaintenance = "maintenance"
)

// Table is a physical bookable resource. Session is non-nil exactly when
// Status is occupied or paused.
type Table struct {
	ID              int      `json:"id"`
	Number          string   `json:"number"`
	ActivityID      int      `json:"activity_id"`
	ActivityName    string   `json:"activity_name"`
	HourlyRateCents int64    `json:"hourly_rate_cents"`
	Status          string   `json:"status"`
	Session         *Session `json:"session,omitempty"`
}

// Session is one customer occupation of a table. HourlyRateCents is a
// snapshot of the table rate at start and does not track later rate edits.
type Session struct {
	ID              string        `json:"id"`
	TableID         int           `json:"table_id"`
	CustomerName    string        `json:"customer_name"`
	CustomerPhone   string        `json:"customer_phone,omitempty"`
	CustomerEmail   string        `json:"customer_email,omitempty"`
	StartTime       time.Time     `json:"start_time"`
	PausedAt        *time.Time    `json:"paused_at,omitempty"`
	PausedDuration  time.Duration `json:"paused_duration_ns"`
	HourlyRateCents int64         `json:"hourly_rate_cents"`
	FoodItems       []FoodItem    `json:"food_items"`
	StartedBy       string        `json:"started_by,omitempty"`
}

// FoodItem is one F&B line on a session: a single menu item or an expanded
// bundle. MenuItemID/BundleID are the source references used to merge
// repeated additions into one line.
type FoodItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PriceCents  int64    `json:"price_cents"`
	Quantity    int      `json:"quantity"`
	IsBundle    bool     `json:"is_bundle,omitempty"`
	BundleItems []string `json:"bundle_items,omitempty"`
	MenuItemID  string   `json:"menu_item_id,omitempty"`
	BundleID    string   `json:"bundle_id,omitempty"`
}

type MenuItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	Active     bool   `json:"active"`
}

// Bundle is a pre-configured group of menu items sold at a discounted
// combined price. Items holds the human-readable component labels that
// expand onto receipts.
type Bundle struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	PriceCents int64    `json:"price_cents"`
	Items      []string `json:"items"`
	Active     bool     `json:"active"`
}

const (
	PaymentCash  = "cash"
	PaymentCard  = "card"
	PaymentSplit = "split"
)

// Payment is the tagged payment breakdown of a transaction. For cash and
// card, CashCents or CardCents carries the full total; for split, both are
// set and must sum to the total.
type Payment struct {
	Kind      string `json:"kind"`
	CashCents int64  `json:"cash_cents,omitempty"`
	CardCents int64  `json:"card_cents,omitempty"`
}

// LegacyMethod reports the flat payment-method tag older aggregates expect.
// Split transactions report as cash so their totals are not dropped from
// cash reconciliation, matching the historical records this system inherits.
func (p Payment) LegacyMethod() string {
	if p.Kind == PaymentSplit {
		return PaymentCash
	}
	return p.Kind
}

// SplitPayment is the cash/card sub-object attached to split transactions.
type SplitPayment struct {
	CashCents int64 `json:"cash_cents"`
	CardCents int64 `json:"card_cents"`
}

// Split returns the split sub-object, or nil for single-instrument payments.
func (p Payment) Split() *SplitPayment {
	if p.Kind != PaymentSplit {
		return nil
	}
	return &SplitPayment{CashCents: p.CashCents, CardCents: p.CardCents}
}

// SalesTransaction is the immutable output of billing a completed session.
// Locked is set at creation and never unset; the store exposes no update.
type SalesTransaction struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Date            string    `json:"date"`
	TableID         int       `json:"table_id"`
	TableNumber     string    `json:"table_number"`
	ActivityName    string    `json:"activity_name"`
	CustomerName    string    `json:"customer_name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
	BillableMinutes int       `json:"billable_minutes"`
	HourlyRateCents int64     `json:"hourly_rate_cents"`

	TableChargeCents int64  `json:"table_charge_cents"`
	FoodChargeCents  int64  `json:"food_charge_cents"`
	SubtotalCents    int64  `json:"subtotal_cents"`
	DiscountCents    int64  `json:"discount_cents"`
	DiscountReason   string `json:"discount_reason,omitempty"`
	DiscountApprover string `json:"discount_approved_by,omitempty"`
	TotalCents       int64  `json:"total_cents"`

	Payment   Payment    `json:"payment"`
	FoodItems []FoodItem `json:"food_items"`

	StartedBy string    `json:"started_by,omitempty"`
	EndedBy   string    `json:"ended_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Locked    bool      `json:"locked"`
}

// DayClosureRecord reconciles one calendar date: system-expected payment
// totals against physically counted amounts. Locked once saved.
type DayClosureRecord struct {
	ID                 string    `json:"id"`
	Date               string    `json:"date"`
	ExpectedCashCents  int64     `json:"expected_cash_cents"`
	ExpectedCardCents  int64     `json:"expected_card_cents"`
	ExpectedUpiCents   int64     `json:"expected_upi_cents"`
	CountedCashCents   int64     `json:"counted_cash_cents"`
	CountedCardCents   int64     `json:"counted_card_cents"`
	CountedUpiCents    int64     `json:"counted_upi_cents"`
	CashVarianceCents  int64     `json:"cash_variance_cents"`
	CardVarianceCents  int64     `json:"card_variance_cents"`
	UpiVarianceCents   int64     `json:"upi_variance_cents"`
	Balanced           bool      `json:"balanced"`
	AutoGenerated      bool      `json:"auto_generated"`
	Notes              string    `json:"notes,omitempty"`
	ClosedBy           string    `json:"closed_by,omitempty"`
	TransactionCount   int       `json:"transaction_count"`
	GrossRevenueCents  int64     `json:"gross_revenue_cents"`
	TotalDiscountCents int64     `json:"total_discount_cents"`
	CreatedAt          time.Time `json:"created_at"`
	Locked             bool      `json:"locked"`
}

// DailySummary aggregates one date's transactions for reconciliation.
// Expected totals are derived from the tagged payment breakdown: a split
// transaction contributes its cash part to ExpectedCash and its card part
// to ExpectedCard.
type DailySummary struct {
	Date               string `json:"date"`
	TransactionCount   int    `json:"transaction_count"`
	GrossRevenueCents  int64  `json:"gross_revenue_cents"`
	TotalDiscountCents int64  `json:"total_discount_cents"`
	NetRevenueCents    int64  `json:"net_revenue_cents"`
	ExpectedCashCents  int64  `json:"expected_cash_cents"`
	ExpectedCardCents  int64  `json:"expected_card_cents"`
	ExpectedUpiCents   int64  `json:"expected_upi_cents"`
}

type StartSessionRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type AddFoodRequest struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   int    `json:"quantity"`
}

type AddBundleRequest struct {
	BundleID string `json:"bundle_id"`
	Quantity int    `json:"quantity"`
}

const (
	DiscountNone       = "none"
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"
)

// DiscountInput is the operator-entered discount. Value is a decimal: a
// percentage in [0,100] for kind percentage, a currency amount for fixed.
type DiscountInput struct {
	Kind   string  `json:"kind"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason,omitempty"`
}

// PaymentInput is the operator-entered payment. Amounts are decimal
// currency values; Cash/Card are only read for split payments.
type PaymentInput struct {
	Method string  `json:"method"`
	Cash   float64 `json:"cash,omitempty"`
	Card   float64 `json:"card,omitempty"`
}

type ConfirmBillRequest struct {
	Discount DiscountInput `json:"discount"`
	Payment  PaymentInput  `json:"payment"`
}

type PreviewBillRequest struct {
	Discount DiscountInput `json:"discount"`
}

// BillPreview is the computed breakdown shown to the operator before
// confirmation. Decimal amounts, already rounded through the money package.
type BillPreview struct {
	SessionID       string  `json:"session_id"`
	TableNumber     string  `json:"table_number"`
	DurationMinutes int     `json:"duration_minutes"`
	BillableMinutes int     `json:"billable_minutes"`
	TableCharge     float64 `json:"table_charge"`
	FoodCharge      float64 `json:"food_charge"`
	Subtotal        float64 `json:"subtotal"`
	DiscountAmount  float64 `json:"discount_amount"`
	Total           float64 `json:"total"`
}

// LiveEstimate is the on-screen running amount for an active table. It uses
// the tiered display rule and is an estimate only; the billed amount at
// session end comes from the proportional final-bill calculator.
type LiveEstimate struct {
	TableID        int     `json:"table_id"`
	ElapsedMinutes int     `json:"elapsed_minutes"`
	Amount         float64 `json:"amount"`
	FoodAmount     float64 `json:"food_amount"`
}

type CloseDayRequest struct {
	Date        string  `json:"date"`
	CountedCash float64 `json:"counted_cash"`
	CountedCard float64 `json:"counted_card"`
	CountedUpi  float64 `json:"counted_upi"`
	Notes       string  `json:"notes,omitempty"`
}

type ReceiptResponse struct {
	TransactionID string `json:"transaction_id"`
	EscposBase64  string `json:"escpos_base64"`
	PreviewText   string `json:"preview_text"`
	FileName      string `json:"file_name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type OperatorCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OperatorUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}
