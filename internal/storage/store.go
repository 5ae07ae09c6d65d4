// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the persistence operations the application needs.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the engine or the handlers. Single calls are
// atomic at the record level; cross-record consistency is the engine's
// responsibility via its per-key locks.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Expenses. Create and Update persist the expense together with its
	// split shares (empty for personal expenses) in one transaction.
	CreateExpense(ctx context.Context, expense *models.Expense, shares []models.SplitShare) error
	GetExpense(ctx context.Context, id string) (*models.Expense, []models.SplitShare, error)
	UpdateExpense(ctx context.Context, expense *models.Expense, shares []models.SplitShare) error
	DeleteExpense(ctx context.Context, id string) error
	ListExpensesByUser(ctx context.Context, userID string) ([]*models.Expense, error)

	// WindowAmounts returns the user's effective spend amounts for
	// expenses in the given category (empty = all) whose occurrence time
	// falls in [start, end] (end 0 = open). For a group expense the
	// user's split share counts, not the gross amount.
	WindowAmounts(ctx context.Context, userID, category string, start, end int64) ([]decimal.Decimal, error)

	// Budgets
	CreateBudget(ctx context.Context, budget *models.Budget) error
	GetBudget(ctx context.Context, id string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, budget *models.Budget) error
	DeleteBudget(ctx context.Context, id string) error
	ListBudgetsByUser(ctx context.Context, userID string) ([]*models.Budget, error)

	// BudgetsMatching returns the user's budgets whose category and
	// window contain an expense at the given occurrence time.
	BudgetsMatching(ctx context.Context, userID, category string, occurredAt int64) ([]*models.Budget, error)

	// UpdateBudgetAlert persists a new alert state and notified ratio.
	UpdateBudgetAlert(ctx context.Context, budgetID string, state models.AlertState, notifiedRatio decimal.Decimal) error

	// RecurringBudgetsDue returns recurring budgets whose window closed
	// at or before now.
	RecurringBudgetsDue(ctx context.Context, now int64) ([]*models.Budget, error)

	// UpdateBudgetWindow moves a budget to a new period and resets its
	// alert state.
	UpdateBudgetWindow(ctx context.Context, budgetID string, start, end int64) error

	// Groups
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	AddGroupMembers(ctx context.Context, groupID string, memberIDs []string) error
	ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error)

	// Debts. DebtBetween returns the single entry for the pair in either
	// direction, or ErrNotFound.
	DebtBetween(ctx context.Context, userA, userB string) (*models.DebtEntry, error)
	UpsertDebtEntry(ctx context.Context, entry *models.DebtEntry) error
	ListDebtsForUser(ctx context.Context, userID string) ([]*models.DebtEntry, error)

	// Settlements
	CreateSettlement(ctx context.Context, settlement *models.Settlement) error
	ListSettlementsForUser(ctx context.Context, userID string) ([]*models.Settlement, error)

	// Close releases any resources held by the store.
	Close() error
}
