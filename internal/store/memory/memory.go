package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cueclub/backend/internal/domain"
	"cueclub/backend/internal/store"
	"cueclub/backend/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	activities       []domain.Activity
	tablesByID       map[int]*domain.Table
	menuItemsByID    map[string]domain.MenuItem
	bundlesByID      map[string]domain.Bundle
	transactionsByID map[string]*domain.SalesTransaction
	transactionDates map[string][]string
	closuresByDate   map[string]domain.DayClosureRecord
	usersByUsername  map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory operator accounts for dev/demo
// mode. Credentials come from SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD;
// hardcoded dev defaults apply when unset, with a warning. Production
// deployments use PostgreSQL (DATABASE_URL) and never touch these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	operatorPwd := envOr("SEED_OPERATOR_PASSWORD", "operator123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_OPERATOR_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"operator", operatorPwd, "operator"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded builds a store with the club's default floor: activities with
// their hourly rates, tables generated per activity, and the F&B catalog.
func NewSeeded() *Store {
	activities := []domain.Activity{
		{ID: 1, Name: "Snooker", HourlyRateCents: 30000, TableCount: 4},
		{ID: 2, Name: "Pool", HourlyRateCents: 20000, TableCount: 4},
		{ID: 3, Name: "PlayStation", HourlyRateCents: 15000, TableCount: 2},
	}

	menuItems := []domain.MenuItem{
		{ID: "menu-tea", Name: "Masala Tea", Category: "beverage", PriceCents: 300, Active: true},
		{ID: "menu-coffee", Name: "Cold Coffee", Category: "beverage", PriceCents: 800, Active: true},
		{ID: "menu-cola", Name: "Cola 300ml", Category: "beverage", PriceCents: 500, Active: true},
		{ID: "menu-water", Name: "Mineral Water", Category: "beverage", PriceCents: 200, Active: true},
		{ID: "menu-fries", Name: "French Fries", Category: "snack", PriceCents: 1200, Active: true},
		{ID: "menu-sandwich", Name: "Club Sandwich", Category: "snack", PriceCents: 1800, Active: true},
		{ID: "menu-maggi", Name: "Maggi", Category: "snack", PriceCents: 900, Active: true},
		{ID: "menu-nachos", Name: "Nachos", Category: "snack", PriceCents: 1500, Active: true},
	}

	bundles := []domain.Bundle{
		{ID: "bundle-combo-1", Name: "Snack Combo", PriceCents: 2500, Items: []string{"French Fries", "Cola 300ml", "Masala Tea"}, Active: true},
		{ID: "bundle-combo-2", Name: "Match Night", PriceCents: 3800, Items: []string{"Club Sandwich", "Nachos", "Cold Coffee"}, Active: true},
	}

	tables := make(map[int]*domain.Table)
	tableID := 0
	for _, activity := range activities {
		for i := 1; i <= activity.TableCount; i++ {
			tableID++
			tables[tableID] = &domain.Table{
				ID:              tableID,
				Number:          fmt.Sprintf("%s-%d", strings.ToUpper(activity.Name[:1]), i),
				ActivityID:      activity.ID,
				ActivityName:    activity.Name,
				HourlyRateCents: activity.HourlyRateCents,
				Status:          domain.TableAvailable,
			}
		}
	}

	menuMap := make(map[string]domain.MenuItem, len(menuItems))
	for _, item := range menuItems {
		menuMap[item.ID] = item
	}
	bundleMap := make(map[string]domain.Bundle, len(bundles))
	for _, bundle := range bundles {
		bundleMap[bundle.ID] = bundle
	}

	return &Store{
		activities:       activities,
		tablesByID:       tables,
		menuItemsByID:    menuMap,
		bundlesByID:      bundleMap,
		transactionsByID: make(map[string]*domain.SalesTransaction),
		transactionDates: make(map[string][]string),
		closuresByDate:   make(map[string]domain.DayClosureRecord),
		usersByUsername:  seedUsers(),
	}
}

func (s *Store) ListActivities(_ context.Context) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	activities := make([]domain.Activity, len(s.activities))
	copy(activities, s.activities)
	return activities, nil
}

func (s *Store) ListTables(_ context.Context) ([]domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := make([]domain.Table, 0, len(s.tablesByID))
	for _, table := range s.tablesByID {
		tables = append(tables, *table.CloneTable())
	}
	slices.SortFunc(tables, func(a, b domain.Table) int {
		return a.ID - b.ID
	})
	return tables, nil
}

func (s *Store) GetTable(_ context.Context, tableID int) (*domain.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, exists := s.tablesByID[tableID]
	if !exists {
		return nil, store.ErrNotFound
	}
	return table.CloneTable(), nil
}

func (s *Store) MutateTable(_ context.Context, tableID int, fn func(*domain.Table) error) (*domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, exists := s.tablesByID[tableID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Mutate a clone so a failing fn leaves the stored table untouched.
	working := table.CloneTable()
	if err := fn(working); err != nil {
		return nil, err
	}

	s.tablesByID[tableID] = working
	return working.CloneTable(), nil
}

func (s *Store) ListMenuItems(_ context.Context) ([]domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.MenuItem, 0, len(s.menuItemsByID))
	for _, item := range s.menuItemsByID {
		if !item.Active {
			continue
		}
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b domain.MenuItem) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	return items, nil
}

func (s *Store) GetMenuItem(_ context.Context, menuItemID string) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.menuItemsByID[menuItemID]
	if !exists || !item.Active {
		return nil, store.ErrNotFound
	}
	copyItem := item
	return &copyItem, nil
}

func (s *Store) ListBundles(_ context.Context) ([]domain.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bundles := make([]domain.Bundle, 0, len(s.bundlesByID))
	for _, bundle := range s.bundlesByID {
		if !bundle.Active {
			continue
		}
		bundles = append(bundles, cloneBundle(bundle))
	}
	slices.SortFunc(bundles, func(a, b domain.Bundle) int {
		return cmpString(a.Name, b.Name)
	})
	return bundles, nil
}

func (s *Store) GetBundle(_ context.Context, bundleID string) (*domain.Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bundle, exists := s.bundlesByID[bundleID]
	if !exists || !bundle.Active {
		return nil, store.ErrNotFound
	}
	copyBundle := cloneBundle(bundle)
	return &copyBundle, nil
}

func (s *Store) AppendTransaction(_ context.Context, tx domain.SalesTransaction) (*domain.SalesTransaction, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactionsByID[tx.ID]; exists {
		return nil, store.ErrInvalidInput
	}

	stored := cloneTransaction(&tx)
	s.transactionsByID[tx.ID] = stored
	s.transactionDates[tx.Date] = append(s.transactionDates[tx.Date], tx.ID)

	return cloneTransaction(stored), nil
}

func (s *Store) FindTransactionByID(_ context.Context, id string) (*domain.SalesTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *Store) ListTransactionsByDate(_ context.Context, date string) ([]domain.SalesTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectByDateLocked(date, date), nil
}

// ListTransactionsByDateRange is inclusive on both ends. Plain string
// comparison is correct here because YYYY-MM-DD sorts chronologically.
func (s *Store) ListTransactionsByDateRange(_ context.Context, from string, to string) ([]domain.SalesTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectByDateLocked(from, to), nil
}

func (s *Store) collectByDateLocked(from string, to string) []domain.SalesTransaction {
	result := make([]domain.SalesTransaction, 0, 32)
	for date, ids := range s.transactionDates {
		if date < from || date > to {
			continue
		}
		for _, id := range ids {
			if tx, ok := s.transactionsByID[id]; ok {
				result = append(result, *cloneTransaction(tx))
			}
		}
	}
	slices.SortFunc(result, func(a, b domain.SalesTransaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result
}

func (s *Store) ListTransactionDates(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, 0, len(s.transactionDates))
	for date := range s.transactionDates {
		dates = append(dates, date)
	}
	slices.Sort(dates)
	return dates, nil
}

func (s *Store) GetDailySummary(_ context.Context, date string) (domain.DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.DailySummary{Date: date}
	for _, id := range s.transactionDates[date] {
		tx, ok := s.transactionsByID[id]
		if !ok {
			continue
		}
		summary.TransactionCount++
		summary.GrossRevenueCents += tx.SubtotalCents
		summary.TotalDiscountCents += tx.DiscountCents
		summary.ExpectedCashCents += tx.Payment.CashCents
		summary.ExpectedCardCents += tx.Payment.CardCents
	}
	summary.NetRevenueCents = summary.GrossRevenueCents - summary.TotalDiscountCents
	return summary, nil
}

func (s *Store) CreateDayClosure(_ context.Context, record domain.DayClosureRecord) (*domain.DayClosureRecord, error) {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.closuresByDate[record.Date]; exists {
		return nil, store.ErrDayClosed
	}

	s.closuresByDate[record.Date] = record
	saved := record
	return &saved, nil
}

func (s *Store) GetDayClosure(_ context.Context, date string) (*domain.DayClosureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.closuresByDate[date]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyRecord := record
	return &copyRecord, nil
}

func (s *Store) ListDayClosures(_ context.Context, limit int) ([]domain.DayClosureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DayClosureRecord, 0, len(s.closuresByDate))
	for _, record := range s.closuresByDate {
		result = append(result, record)
	}
	slices.SortFunc(result, func(a, b domain.DayClosureRecord) int {
		return cmpString(b.Date, a.Date)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "operator"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneTransaction(src *domain.SalesTransaction) *domain.SalesTransaction {
	if src == nil {
		return nil
	}
	dup := *src
	items := make([]domain.FoodItem, len(src.FoodItems))
	copy(items, src.FoodItems)
	for i, line := range items {
		if len(line.BundleItems) > 0 {
			components := make([]string, len(line.BundleItems))
			copy(components, line.BundleItems)
			items[i].BundleItems = components
		}
	}
	dup.FoodItems = items
	return &dup
}

func cloneBundle(src domain.Bundle) domain.Bundle {
	dup := src
	items := make([]string, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	return dup
}
