package store

import (
	"context"
	"errors"

	"cueclub/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrDayClosed    = errors.New("day already closed")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the persistence contract for the club floor, the catalog,
// the transaction ledger and the closure records. The ledger is append-only
// by construction: there is no update or delete for transactions, and a
// saved closure record is never rewritten.
type Repository interface {
	ListActivities(ctx context.Context) ([]domain.Activity, error)
	ListTables(ctx context.Context) ([]domain.Table, error)
	GetTable(ctx context.Context, tableID int) (*domain.Table, error)
	// MutateTable applies fn to the table under the store's write lock (a
	// row-locked transaction in Postgres). fn returning an error aborts the
	// mutation with the table unchanged.
	MutateTable(ctx context.Context, tableID int, fn func(*domain.Table) error) (*domain.Table, error)

	ListMenuItems(ctx context.Context) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, menuItemID string) (*domain.MenuItem, error)
	ListBundles(ctx context.Context) ([]domain.Bundle, error)
	GetBundle(ctx context.Context, bundleID string) (*domain.Bundle, error)

	AppendTransaction(ctx context.Context, tx domain.SalesTransaction) (*domain.SalesTransaction, error)
	FindTransactionByID(ctx context.Context, id string) (*domain.SalesTransaction, error)
	ListTransactionsByDate(ctx context.Context, date string) ([]domain.SalesTransaction, error)
	ListTransactionsByDateRange(ctx context.Context, from string, to string) ([]domain.SalesTransaction, error)
	ListTransactionDates(ctx context.Context) ([]string, error)
	GetDailySummary(ctx context.Context, date string) (domain.DailySummary, error)

	CreateDayClosure(ctx context.Context, record domain.DayClosureRecord) (*domain.DayClosureRecord, error)
	GetDayClosure(ctx context.Context, date string) (*domain.DayClosureRecord, error)
	ListDayClosures(ctx context.Context, limit int) ([]domain.DayClosureRecord, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
