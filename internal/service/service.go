package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cueclub/backend/internal/billing"
	"cueclub/backend/internal/cache"
	"cueclub/backend/internal/domain"
	"cueclub/backend/internal/money"
	"cueclub/backend/internal/store"
	"cueclub/backend/internal/validate"
	"cueclub/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const dateLayout = "2006-01-02"

type Service struct {
	repo      store.Repository
	estimates cache.EstimateCache

	estimateTTL  time.Duration
	paymentDelay time.Duration
	now          func() time.Time
}

func New(repo store.Repository, estimates cache.EstimateCache, estimateTTL time.Duration, paymentDelay time.Duration) *Service {
	if estimates == nil {
		estimates = cache.NoopEstimateCache{}
	}
	if estimateTTL <= 0 {
		estimateTTL = 15 * time.Second
	}

	return &Service{
		repo:         repo,
		estimates:    estimates,
		estimateTTL:  estimateTTL,
		paymentDelay: paymentDelay,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	return s.repo.ListActivities(ctx)
}

func (s *Service) ListTables(ctx context.Context) ([]domain.Table, error) {
	return s.repo.ListTables(ctx)
}

func (s *Service) GetTable(ctx context.Context, tableID int) (domain.Table, error) {
	table, err := s.repo.GetTable(ctx, tableID)
	if err != nil {
		return domain.Table{}, err
	}
	return *table, nil
}

func (s *Service) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	return s.repo.ListMenuItems(ctx)
}

func (s *Service) ListBundles(ctx context.Context) ([]domain.Bundle, error) {
	return s.repo.ListBundles(ctx)
}

func (s *Service) StartSession(ctx context.Context, tableID int, req domain.StartSessionRequest) (domain.Table, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if err := validate.NonEmptyString(req.CustomerName); err != nil {
		return domain.Table{}, fmt.Errorf("customer name is required")
	}
	if err := validate.PhoneNumber(req.CustomerPhone); err != nil {
		return domain.Table{}, err
	}
	if err := validate.Email(req.CustomerEmail); err != nil {
		return domain.Table{}, err
	}

	actor, _ := ActorFromContext(ctx)
	sessionID := xid.New("session")
	startedAt := s.now()

	table, err := s.repo.MutateTable(ctx, tableID, func(t *domain.Table) error {
		return t.StartSession(sessionID, req.CustomerName, req.CustomerPhone, req.CustomerEmail, actor.Username, startedAt)
	})
	if err != nil {
		return domain.Table{}, err
	}

	log.Printf("[service] session started table=%s session=%s customer=%s", table.Number, sessionID, req.CustomerName)
	return *table, nil
}

func (s *Service) PauseSession(ctx context.Context, tableID int) (domain.Table, error) {
	pausedAt := s.now()
	table, err := s.repo.MutateTable(ctx, tableID, func(t *domain.Table) error {
		return t.Pause(pausedAt)
	})
	if err != nil {
		return domain.Table{}, err
	}
	s.dropEstimate(ctx, table)
	return *table, nil
}

func (s *Service) ResumeSession(ctx context.Context, tableID int) (domain.Table, error) {
	resumedAt := s.now()
	table, err := s.repo.MutateTable(ctx, tableID, func(t *domain.Table) error {
		return t.Resume(resumedAt)
	})
	if err != nil {
		return domain.Table{}, err
	}
	s.dropEstimate(ctx, table)
	return *table, nil
}

func (s *Service) AddFoodItem(ctx context.Context, tableID int, req domain.AddFoodRequest) (domain.Table, error) {
	if req.Quantity < 1 {
		return domain.Table{}, fmt.Errorf("quantity must be at least 1")
	}

	item, err := s.repo.GetMenuItem(ctx, req.MenuItemID)
	if err != nil {
		return domain.Table{}, err
	}

	lineID := xid.New("line")
	table, err := s.repo.MutateTable(ctx, tableID, func(t *domain.Table) error {
		return t.AddFood(lineID, *item, req.Quantity)
	})
	if err != nil {
		return domain.Table{}, err
	}
	s.dropEstimate(ctx, table)
	return *table, nil
}

func (s *Service) AddBundle(ctx context.Context, tableID int, req domain.AddBundleRequest) (domain.Table, error) {
	if req.Quantity < 1 {
		return domain.Table{}, fmt.Errorf("quantity must be at least 1")
	}

	bundle, err := s.repo.GetBundle(ctx, req.BundleID)
	if err != nil {
		return domain.Table{}, err
	}

	lineID := xid.New("line")
	table, err := s.repo.MutateTable(ctx, tableID, func(t *domain.Table) error {
		return t.AddBundle(lineID, *bundle, req.Quantity)
	})
	if err != nil {
		return domain.Table{}, err
	}
	s.dropEstimate(ctx, table)
	return *table, nil
}

func (s *Service) RemoveFoodItem(ctx context.Context, tableID int, lineID string) (domain.Table, error) {
	if strings.TrimSpace(lineID) == "" {
		return domain.Table{}, store.ErrInvalidInput
	}

	table, err := s.repo.MutateTable(ctx, tableID, func(t *domain.Table) error {
		return t.RemoveFood(lineID)
	})
	if err != nil {
		return domain.Table{}, err
	}
	s.dropEstimate(ctx, table)
	return *table, nil
}

// LiveEstimate is the polled on-screen running amount for an active table.
// Results are cached per session for a short TTL so a wall of polling floor
// displays does not hammer the store.
func (s *Service) LiveEstimate(ctx context.Context, tableID int) (domain.LiveEstimate, error) {
	table, err := s.repo.GetTable(ctx, tableID)
	if err != nil {
		return domain.LiveEstimate{}, err
	}
	if table.Session == nil {
		return domain.LiveEstimate{}, store.ErrInvalidState
	}

	key := estimateKey(table)
	if cached, found, err := s.estimates.Get(ctx, key); err == nil && found {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: estimate cache get table=%d: %v", tableID, err)
	}

	elapsed := table.Session.Elapsed(s.now())
	estimate := domain.LiveEstimate{
		TableID:        table.ID,
		ElapsedMinutes: int(elapsed / time.Minute),
		Amount:         billing.EstimateLiveAmount(table.Session.HourlyRateCents, elapsed),
		FoodAmount:     money.FromCents(table.Session.FoodTotalCents()),
	}

	if err := s.estimates.Set(ctx, key, &estimate, s.estimateTTL); err != nil {
		log.Printf("[service] WARN: estimate cache set table=%d: %v", tableID, err)
	}
	return estimate, nil
}

func (s *Service) PreviewBill(ctx context.Context, tableID int, req domain.PreviewBillRequest) (domain.BillPreview, error) {
	table, err := s.repo.GetTable(ctx, tableID)
	if err != nil {
		return domain.BillPreview{}, err
	}
	if table.Session == nil {
		return domain.BillPreview{}, store.ErrInvalidState
	}

	breakdown := billing.Compute(table.Session, s.now())
	if err := billing.ApplyDiscount(&breakdown, req.Discount); err != nil {
		return domain.BillPreview{}, err
	}

	return domain.BillPreview{
		SessionID:       table.Session.ID,
		TableNumber:     table.Number,
		DurationMinutes: breakdown.DurationMinutes(),
		BillableMinutes: breakdown.BillableMinutes(),
		TableCharge:     breakdown.TableCharge,
		FoodCharge:      breakdown.FoodCharge,
		Subtotal:        breakdown.Subtotal,
		DiscountAmount:  breakdown.DiscountAmount,
		Total:           breakdown.Total,
	}, nil
}

// ConfirmBill settles an active session: the bill is computed and the
// payment validated before anything mutates, then the payment delay runs,
// and only after it completes does the session end and the transaction
// land in the ledger. A context cancelled during the delay commits nothing;
// the session keeps running and can be confirmed again. Food lines added or
// removed while the payment is in flight also abort the settle, so the
// recorded figures always match the recorded lines.
func (s *Service) ConfirmBill(ctx context.Context, tableID int, req domain.ConfirmBillRequest) (domain.SalesTransaction, error) {
	table, err := s.repo.GetTable(ctx, tableID)
	if err != nil {
		return domain.SalesTransaction{}, err
	}
	if table.Session == nil {
		return domain.SalesTransaction{}, store.ErrInvalidState
	}
	billedSessionID := table.Session.ID
	billedFoodCents := table.Session.FoodTotalCents()
	billedFoodLines := len(table.Session.FoodItems)

	endTime := s.now()
	breakdown := billing.Compute(table.Session, endTime)
	if err := billing.ApplyDiscount(&breakdown, req.Discount); err != nil {
		return domain.SalesTransaction{}, err
	}

	payment, err := billing.BuildPayment(req.Payment, breakdown.Total)
	if err != nil {
		return domain.SalesTransaction{}, err
	}

	if err := s.waitPayment(ctx); err != nil {
		return domain.SalesTransaction{}, err
	}

	var ended *domain.Session
	mutated, err := s.repo.MutateTable(ctx, tableID, func(t *domain.Table) error {
		if t.Session == nil || t.Session.ID != billedSessionID {
			return store.ErrInvalidState
		}
		if t.Session.FoodTotalCents() != billedFoodCents || len(t.Session.FoodItems) != billedFoodLines {
			return store.ErrInvalidState
		}
		session, endErr := t.EndSession(endTime)
		if endErr != nil {
			return endErr
		}
		ended = session
		return nil
	})
	if err != nil {
		return domain.SalesTransaction{}, err
	}

	actor, _ := ActorFromContext(ctx)
	approver := ""
	if breakdown.DiscountAmount > 0 {
		approver = actor.Username
	}

	tx := domain.SalesTransaction{
		ID:               xid.New("tx"),
		SessionID:        ended.ID,
		Date:             endTime.Format(dateLayout),
		TableID:          mutated.ID,
		TableNumber:      mutated.Number,
		ActivityName:     mutated.ActivityName,
		CustomerName:     ended.CustomerName,
		StartTime:        ended.StartTime,
		EndTime:          endTime,
		DurationMinutes:  breakdown.DurationMinutes(),
		BillableMinutes:  breakdown.BillableMinutes(),
		HourlyRateCents:  ended.HourlyRateCents,
		TableChargeCents: money.ToCents(breakdown.TableCharge),
		FoodChargeCents:  money.ToCents(breakdown.FoodCharge),
		SubtotalCents:    money.ToCents(breakdown.Subtotal),
		DiscountCents:    money.ToCents(breakdown.DiscountAmount),
		DiscountReason:   breakdown.DiscountReason,
		DiscountApprover: approver,
		TotalCents:       money.ToCents(breakdown.Total),
		Payment:          payment,
		FoodItems:        ended.FoodItems,
		StartedBy:        ended.StartedBy,
		EndedBy:          actor.Username,
		CreatedAt:        endTime,
	}

	created, err := s.repo.AppendTransaction(ctx, tx)
	if err != nil {
		return domain.SalesTransaction{}, err
	}

	_ = s.estimates.Invalidate(ctx, estimateKeyFor(mutated.ID, ended.ID))
	log.Printf("[service] bill confirmed table=%s session=%s total_cents=%d payment=%s", mutated.Number, ended.ID, created.TotalCents, created.Payment.Kind)

	return *created, nil
}

// waitPayment simulates the card-terminal round trip. Zero delay skips the
// timer entirely so tests stay instant.
func (s *Service) waitPayment(ctx context.Context) error {
	if s.paymentDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.paymentDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) TransactionsByDate(ctx context.Context, date string) ([]domain.SalesTransaction, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListTransactionsByDate(ctx, date)
}

func (s *Service) TransactionsByRange(ctx context.Context, from string, to string) ([]domain.SalesTransaction, error) {
	if _, err := time.Parse(dateLayout, from); err != nil {
		return nil, store.ErrInvalidInput
	}
	if _, err := time.Parse(dateLayout, to); err != nil {
		return nil, store.ErrInvalidInput
	}
	if from > to {
		return nil, store.ErrInvalidInput
	}
	return s.repo.ListTransactionsByDateRange(ctx, from, to)
}

func (s *Service) DailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	if strings.TrimSpace(date) == "" {
		date = s.now().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return domain.DailySummary{}, store.ErrInvalidInput
	}
	return s.repo.GetDailySummary(ctx, date)
}

// CloseDay reconciles one date: expected totals come from the ledger's
// tagged payment breakdowns, counted totals from the operator's drawer
// count. A date closes exactly once; the record locks on save even when
// the variance is non-zero.
func (s *Service) CloseDay(ctx context.Context, req domain.CloseDayRequest) (domain.DayClosureRecord, error) {
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		return domain.DayClosureRecord{}, store.ErrInvalidInput
	}
	for _, counted := range []float64{req.CountedCash, req.CountedCard, req.CountedUpi} {
		if err := validate.NonNegativeNumber(counted); err != nil {
			return domain.DayClosureRecord{}, err
		}
	}

	summary, err := s.repo.GetDailySummary(ctx, req.Date)
	if err != nil {
		return domain.DayClosureRecord{}, err
	}

	actor, _ := ActorFromContext(ctx)
	record := buildClosure(req, summary, actor.Username, s.now())

	created, err := s.repo.CreateDayClosure(ctx, record)
	if err != nil {
		return domain.DayClosureRecord{}, err
	}

	log.Printf("[service] day closed date=%s balanced=%t variance_cash=%d variance_card=%d", created.Date, created.Balanced, created.CashVarianceCents, created.CardVarianceCents)
	return *created, nil
}

func buildClosure(req domain.CloseDayRequest, summary domain.DailySummary, closedBy string, at time.Time) domain.DayClosureRecord {
	record := domain.DayClosureRecord{
		Date:               req.Date,
		ExpectedCashCents:  summary.ExpectedCashCents,
		ExpectedCardCents:  summary.ExpectedCardCents,
		ExpectedUpiCents:   summary.ExpectedUpiCents,
		CountedCashCents:   money.ToCents(req.CountedCash),
		CountedCardCents:   money.ToCents(req.CountedCard),
		CountedUpiCents:    money.ToCents(req.CountedUpi),
		Notes:              strings.TrimSpace(req.Notes),
		ClosedBy:           closedBy,
		TransactionCount:   summary.TransactionCount,
		GrossRevenueCents:  summary.GrossRevenueCents,
		TotalDiscountCents: summary.TotalDiscountCents,
		CreatedAt:          at,
	}
	record.CashVarianceCents = record.CountedCashCents - record.ExpectedCashCents
	record.CardVarianceCents = record.CountedCardCents - record.ExpectedCardCents
	record.UpiVarianceCents = record.CountedUpiCents - record.ExpectedUpiCents
	record.Balanced = record.CashVarianceCents == 0 && record.CardVarianceCents == 0 && record.UpiVarianceCents == 0
	return record
}

func (s *Service) GetDayClosure(ctx context.Context, date string) (domain.DayClosureRecord, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return domain.DayClosureRecord{}, store.ErrInvalidInput
	}
	record, err := s.repo.GetDayClosure(ctx, date)
	if err != nil {
		return domain.DayClosureRecord{}, err
	}
	return *record, nil
}

func (s *Service) ListDayClosures(ctx context.Context, limit int) ([]domain.DayClosureRecord, error) {
	return s.repo.ListDayClosures(ctx, limit)
}

// SweepOpenDays closes every past date that has transactions but no closure
// record, with zero counted amounts. The generated records are flagged so
// reports can tell a forgotten closure from a real drawer count.
func (s *Service) SweepOpenDays(ctx context.Context) ([]domain.DayClosureRecord, error) {
	dates, err := s.repo.ListTransactionDates(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().Format(dateLayout)
	created := make([]domain.DayClosureRecord, 0, 4)
	for _, date := range dates {
		if date >= today {
			continue
		}
		if _, err := s.repo.GetDayClosure(ctx, date); err == nil {
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}

		summary, err := s.repo.GetDailySummary(ctx, date)
		if err != nil {
			return nil, err
		}

		record := buildClosure(domain.CloseDayRequest{Date: date, Notes: "auto-generated by day sweep"}, summary, "system", s.now())
		record.AutoGenerated = true
		// Nobody counted a drawer, so the record stays unbalanced until
		// someone corrects it, even when the expected totals are zero.
		record.Balanced = false

		saved, err := s.repo.CreateDayClosure(ctx, record)
		if err != nil {
			if errors.Is(err, store.ErrDayClosed) {
				continue
			}
			return nil, err
		}
		log.Printf("[service] auto-closed open day date=%s expected_cash=%d", saved.Date, saved.ExpectedCashCents)
		created = append(created, *saved)
	}
	return created, nil
}

func (s *Service) BuildReceipt(ctx context.Context, transactionID string) (domain.ReceiptResponse, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.ReceiptResponse{}, store.ErrInvalidInput
	}
	tx, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	lines := []string{
		"CueClub",
		"========================",
		"TX: " + tx.ID,
		"Table: " + tx.TableNumber + " (" + tx.ActivityName + ")",
		"Customer: " + tx.CustomerName,
		"Start: " + tx.StartTime.Format("2006-01-02 15:04:05"),
		"End:   " + tx.EndTime.Format("2006-01-02 15:04:05"),
		fmt.Sprintf("Played: %d min (billed %d min)", tx.DurationMinutes, tx.BillableMinutes),
		"------------------------",
		fmt.Sprintf("Table time     %8.2f", money.FromCents(tx.TableChargeCents)),
	}
	for _, line := range tx.FoodItems {
		lines = append(lines, fmt.Sprintf("%s x%d", line.Name, line.Quantity))
		for _, component := range line.BundleItems {
			lines = append(lines, "  - "+component)
		}
		lines = append(lines, fmt.Sprintf("  %14.2f", money.Multiply(money.FromCents(line.PriceCents), float64(line.Quantity))))
	}
	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Subtotal %13.2f", money.FromCents(tx.SubtotalCents)),
	)
	if tx.DiscountCents > 0 {
		lines = append(lines, fmt.Sprintf("Discount %13.2f", money.FromCents(tx.DiscountCents)))
		if tx.DiscountReason != "" {
			lines = append(lines, "  ("+tx.DiscountReason+")")
		}
	}
	lines = append(lines, fmt.Sprintf("Total    %13.2f", money.FromCents(tx.TotalCents)))
	switch tx.Payment.Kind {
	case domain.PaymentSplit:
		lines = append(lines,
			fmt.Sprintf("Cash     %13.2f", money.FromCents(tx.Payment.CashCents)),
			fmt.Sprintf("Card     %13.2f", money.FromCents(tx.Payment.CardCents)),
		)
	default:
		lines = append(lines, "Paid by "+tx.Payment.Kind)
	}
	lines = append(lines,
		"========================",
		"Thank you, see you again",
		"",
	)

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.ReceiptResponse{
		TransactionID: tx.ID,
		EscposBase64:  base64.StdEncoding.EncodeToString(escpos),
		PreviewText:   strings.Join(lines, "\n"),
		FileName:      fmt.Sprintf("receipt-%s.bin", tx.ID),
	}, nil
}

func estimateKey(table *domain.Table) string {
	return estimateKeyFor(table.ID, table.Session.ID)
}

func estimateKeyFor(tableID int, sessionID string) string {
	return fmt.Sprintf("estimate:%d:%s", tableID, sessionID)
}

func (s *Service) dropEstimate(ctx context.Context, table *domain.Table) {
	if table == nil || table.Session == nil {
		return
	}
	if err := s.estimates.Invalidate(ctx, estimateKey(table)); err != nil {
		log.Printf("[service] WARN: estimate cache invalidate table=%d: %v", table.ID, err)
	}
}
