package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"cueclub/backend/internal/domain"
	"cueclub/backend/internal/store"
	"cueclub/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, hourly_rate_cents, table_count
		FROM activities
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0, 8)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.HourlyRateCents, &a.TableCount); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return activities, nil
}

func (s *Store) ListTables(ctx context.Context) ([]domain.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.number, t.activity_id, a.name, a.hourly_rate_cents, t.status, t.session
		FROM club_tables t
		JOIN activities a ON a.id = t.activity_id
		ORDER BY t.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make([]domain.Table, 0, 16)
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *table)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(row rowScanner) (*domain.Table, error) {
	var table domain.Table
	var sessionRaw []byte
	if err := row.Scan(&table.ID, &table.Number, &table.ActivityID, &table.ActivityName, &table.HourlyRateCents, &table.Status, &sessionRaw); err != nil {
		return nil, err
	}
	if len(sessionRaw) > 0 {
		var session domain.Session
		if err := json.Unmarshal(sessionRaw, &session); err != nil {
			return nil, err
		}
		table.Session = &session
	}
	return &table, nil
}

func (s *Store) GetTable(ctx context.Context, tableID int) (*domain.Table, error) {
	table, err := scanTable(s.db.QueryRowContext(ctx, `
		SELECT t.id, t.number, t.activity_id, a.name, a.hourly_rate_cents, t.status, t.session
		FROM club_tables t
		JOIN activities a ON a.id = t.activity_id
		WHERE t.id = $1
	`, tableID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return table, nil
}

// MutateTable runs fn against the table row under a row lock so concurrent
// transitions on the same table serialize. The session is stored as JSONB
// alongside the status column.
func (s *Store) MutateTable(ctx context.Context, tableID int, fn func(*domain.Table) error) (*domain.Table, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	table, err := scanTable(tx.QueryRowContext(ctx, `
		SELECT t.id, t.number, t.activity_id, a.name, a.hourly_rate_cents, t.status, t.session
		FROM club_tables t
		JOIN activities a ON a.id = t.activity_id
		WHERE t.id = $1
		FOR UPDATE OF t
	`, tableID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if err := fn(table); err != nil {
		return nil, err
	}

	var sessionRaw any
	if table.Session != nil {
		encoded, err := json.Marshal(table.Session)
		if err != nil {
			return nil, err
		}
		sessionRaw = encoded
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE club_tables
		SET status = $2, session = $3, updated_at = now()
		WHERE id = $1
	`, tableID, table.Status, sessionRaw)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return table, nil
}

func (s *Store) ListMenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, price_cents, active
		FROM menu_items
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0, 32)
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.PriceCents, &item.Active); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetMenuItem(ctx context.Context, menuItemID string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, price_cents, active
		FROM menu_items
		WHERE id = $1 AND active = true
	`, menuItemID).Scan(&item.ID, &item.Name, &item.Category, &item.PriceCents, &item.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBundles(ctx context.Context) ([]domain.Bundle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price_cents, items, active
		FROM bundles
		WHERE active = true
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bundles := make([]domain.Bundle, 0, 8)
	for rows.Next() {
		var bundle domain.Bundle
		var itemsRaw []byte
		if err := rows.Scan(&bundle.ID, &bundle.Name, &bundle.PriceCents, &itemsRaw, &bundle.Active); err != nil {
			return nil, err
		}
		if len(itemsRaw) > 0 {
			if err := json.Unmarshal(itemsRaw, &bundle.Items); err != nil {
				return nil, err
			}
		}
		bundles = append(bundles, bundle)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bundles, nil
}

func (s *Store) GetBundle(ctx context.Context, bundleID string) (*domain.Bundle, error) {
	var bundle domain.Bundle
	var itemsRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, price_cents, items, active
		FROM bundles
		WHERE id = $1 AND active = true
	`, bundleID).Scan(&bundle.ID, &bundle.Name, &bundle.PriceCents, &itemsRaw, &bundle.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &bundle.Items); err != nil {
			return nil, err
		}
	}
	return &bundle, nil
}

func (s *Store) AppendTransaction(ctx context.Context, tx domain.SalesTransaction) (*domain.SalesTransaction, error) {
	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.Date == "" || tx.SessionID == "" {
		return nil, store.ErrInvalidInput
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.Locked = true

	itemsJSON, err := json.Marshal(tx.FoodItems)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales_transactions (
			id, date, session_id, table_id, table_number, activity_name, customer_name,
			start_time, end_time, duration_minutes, billable_minutes, hourly_rate_cents,
			table_charge_cents, food_charge_cents, subtotal_cents,
			discount_cents, discount_reason, discount_approver, total_cents,
			payment_kind, payment_cash_cents, payment_card_cents,
			food_items, started_by, ended_by, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
	`, tx.ID, tx.Date, tx.SessionID, tx.TableID, tx.TableNumber, tx.ActivityName, tx.CustomerName,
		tx.StartTime, tx.EndTime, tx.DurationMinutes, tx.BillableMinutes, tx.HourlyRateCents,
		tx.TableChargeCents, tx.FoodChargeCents, tx.SubtotalCents,
		tx.DiscountCents, nullIfEmpty(tx.DiscountReason), nullIfEmpty(tx.DiscountApprover), tx.TotalCents,
		tx.Payment.Kind, tx.Payment.CashCents, tx.Payment.CardCents,
		itemsJSON, tx.StartedBy, nullIfEmpty(tx.EndedBy), tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	saved := tx
	return &saved, nil
}

const transactionColumns = `
	id, date, session_id, table_id, table_number, activity_name, customer_name,
	start_time, end_time, duration_minutes, billable_minutes, hourly_rate_cents,
	table_charge_cents, food_charge_cents, subtotal_cents,
	discount_cents, COALESCE(discount_reason,''), COALESCE(discount_approver,''), total_cents,
	payment_kind, payment_cash_cents, payment_card_cents,
	food_items, started_by, COALESCE(ended_by,''), created_at
`

func scanTransaction(row rowScanner) (*domain.SalesTransaction, error) {
	var tx domain.SalesTransaction
	var itemsRaw []byte
	err := row.Scan(
		&tx.ID,
		&tx.Date,
		&tx.SessionID,
		&tx.TableID,
		&tx.TableNumber,
		&tx.ActivityName,
		&tx.CustomerName,
		&tx.StartTime,
		&tx.EndTime,
		&tx.DurationMinutes,
		&tx.BillableMinutes,
		&tx.HourlyRateCents,
		&tx.TableChargeCents,
		&tx.FoodChargeCents,
		&tx.SubtotalCents,
		&tx.DiscountCents,
		&tx.DiscountReason,
		&tx.DiscountApprover,
		&tx.TotalCents,
		&tx.Payment.Kind,
		&tx.Payment.CashCents,
		&tx.Payment.CardCents,
		&itemsRaw,
		&tx.StartedBy,
		&tx.EndedBy,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &tx.FoodItems); err != nil {
			return nil, err
		}
	}
	tx.StartTime = tx.StartTime.UTC()
	tx.EndTime = tx.EndTime.UTC()
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.Locked = true
	return &tx, nil
}

func (s *Store) FindTransactionByID(ctx context.Context, id string) (*domain.SalesTransaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM sales_transactions
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (s *Store) ListTransactionsByDate(ctx context.Context, date string) ([]domain.SalesTransaction, error) {
	return s.ListTransactionsByDateRange(ctx, date, date)
}

func (s *Store) ListTransactionsByDateRange(ctx context.Context, from string, to string) ([]domain.SalesTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM sales_transactions
		WHERE date >= $1 AND date <= $2
		ORDER BY created_at ASC, id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.SalesTransaction, 0, 32)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (s *Store) ListTransactionDates(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date
		FROM sales_transactions
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dates := make([]string, 0, 32)
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}

func (s *Store) GetDailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	summary := domain.DailySummary{Date: date}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*)::bigint,
			COALESCE(SUM(subtotal_cents),0)::bigint,
			COALESCE(SUM(discount_cents),0)::bigint,
			COALESCE(SUM(payment_cash_cents),0)::bigint,
			COALESCE(SUM(payment_card_cents),0)::bigint
		FROM sales_transactions
		WHERE date = $1
	`, date).Scan(
		&summary.TransactionCount,
		&summary.GrossRevenueCents,
		&summary.TotalDiscountCents,
		&summary.ExpectedCashCents,
		&summary.ExpectedCardCents,
	)
	if err != nil {
		return summary, err
	}
	summary.NetRevenueCents = summary.GrossRevenueCents - summary.TotalDiscountCents
	return summary, nil
}

func (s *Store) CreateDayClosure(ctx context.Context, record domain.DayClosureRecord) (*domain.DayClosureRecord, error) {
	if strings.TrimSpace(record.Date) == "" {
		return nil, store.ErrInvalidInput
	}
	if record.ID == "" {
		record.ID = xid.New("closure")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.Locked = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO day_closures (
			id, date, expected_cash_cents, expected_card_cents, expected_upi_cents,
			counted_cash_cents, counted_card_cents, counted_upi_cents,
			variance_cash_cents, variance_card_cents, variance_upi_cents,
			balanced, auto_generated, notes, closed_by,
			transaction_count, gross_revenue_cents, total_discount_cents, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`, record.ID, record.Date, record.ExpectedCashCents, record.ExpectedCardCents, record.ExpectedUpiCents,
		record.CountedCashCents, record.CountedCardCents, record.CountedUpiCents,
		record.CashVarianceCents, record.CardVarianceCents, record.UpiVarianceCents,
		record.Balanced, record.AutoGenerated, strings.TrimSpace(record.Notes), record.ClosedBy,
		record.TransactionCount, record.GrossRevenueCents, record.TotalDiscountCents, record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDayClosed
		}
		return nil, err
	}

	saved := record
	return &saved, nil
}

const closureColumns = `
	id, date, expected_cash_cents, expected_card_cents, expected_upi_cents,
	counted_cash_cents, counted_card_cents, counted_upi_cents,
	variance_cash_cents, variance_card_cents, variance_upi_cents,
	balanced, auto_generated, notes, closed_by,
	transaction_count, gross_revenue_cents, total_discount_cents, created_at
`

func scanClosure(row rowScanner) (*domain.DayClosureRecord, error) {
	var record domain.DayClosureRecord
	err := row.Scan(
		&record.ID,
		&record.Date,
		&record.ExpectedCashCents,
		&record.ExpectedCardCents,
		&record.ExpectedUpiCents,
		&record.CountedCashCents,
		&record.CountedCardCents,
		&record.CountedUpiCents,
		&record.CashVarianceCents,
		&record.CardVarianceCents,
		&record.UpiVarianceCents,
		&record.Balanced,
		&record.AutoGenerated,
		&record.Notes,
		&record.ClosedBy,
		&record.TransactionCount,
		&record.GrossRevenueCents,
		&record.TotalDiscountCents,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.Locked = true
	return &record, nil
}

func (s *Store) GetDayClosure(ctx context.Context, date string) (*domain.DayClosureRecord, error) {
	record, err := scanClosure(s.db.QueryRowContext(ctx, `
		SELECT `+closureColumns+`
		FROM day_closures
		WHERE date = $1
	`, date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *Store) ListDayClosures(ctx context.Context, limit int) ([]domain.DayClosureRecord, error) {
	if limit < 1 {
		limit = 60
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+closureColumns+`
		FROM day_closures
		ORDER BY date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closures := make([]domain.DayClosureRecord, 0, limit)
	for rows.Next() {
		record, err := scanClosure(rows)
		if err != nil {
			return nil, err
		}
		closures = append(closures, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return closures, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "operator"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
