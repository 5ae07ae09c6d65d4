package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage"
)

const budgetColumns = `id, user_id, category, limit_amount, period_start, period_end, recurrence, alert_state, notified_ratio, created_at, updated_at`

// CreateBudget persists a new budget.
func (s *SQLiteStore) CreateBudget(ctx context.Context, budget *models.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if budget.CreatedAt == 0 {
		budget.CreatedAt = now
	}
	budget.UpdatedAt = now
	if budget.AlertState == "" {
		budget.AlertState = models.AlertNone
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (`+budgetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		budget.ID, budget.UserID, budget.Category, budget.LimitAmount.String(),
		budget.PeriodStart, budget.PeriodEnd, string(budget.Recurrence),
		string(budget.AlertState), budget.NotifiedRatio.String(),
		budget.CreatedAt, budget.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

// GetBudget retrieves a budget by ID.
func (s *SQLiteStore) GetBudget(ctx context.Context, id string) (*models.Budget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	budget, err := scanBudget(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return budget, nil
}

// UpdateBudget rewrites a budget's configurable fields.
func (s *SQLiteStore) UpdateBudget(ctx context.Context, budget *models.Budget) error {
	budget.UpdatedAt = time.Now().Unix()

	res, err := s.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, limit_amount = ?, period_start = ?, period_end = ?,
		 recurrence = ?, alert_state = ?, notified_ratio = ?, updated_at = ?
		 WHERE id = ?`,
		budget.Category, budget.LimitAmount.String(), budget.PeriodStart, budget.PeriodEnd,
		string(budget.Recurrence), string(budget.AlertState), budget.NotifiedRatio.String(),
		budget.UpdatedAt, budget.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteBudget removes a budget by ID.
func (s *SQLiteStore) DeleteBudget(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListBudgetsByUser retrieves all budgets owned by a user.
func (s *SQLiteStore) ListBudgetsByUser(ctx context.Context, userID string) ([]*models.Budget, error) {
	return s.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = ? ORDER BY created_at`,
		userID)
}

// BudgetsMatching returns the user's budgets whose category and window
// contain an expense occurring at the given time.
func (s *SQLiteStore) BudgetsMatching(ctx context.Context, userID, category string, occurredAt int64) ([]*models.Budget, error) {
	return s.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE user_id = ?
		   AND (category = '' OR category = ?)
		   AND period_start <= ?
		   AND (period_end = 0 OR period_end >= ?)`,
		userID, category, occurredAt, occurredAt)
}

// UpdateBudgetAlert persists the alert state after an evaluation.
func (s *SQLiteStore) UpdateBudgetAlert(ctx context.Context, budgetID string, state models.AlertState, notifiedRatio decimal.Decimal) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE budgets SET alert_state = ?, notified_ratio = ?, updated_at = ? WHERE id = ?",
		string(state), notifiedRatio.String(), time.Now().Unix(), budgetID,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget alert state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// RecurringBudgetsDue returns recurring budgets whose window closed at
// or before now.
func (s *SQLiteStore) RecurringBudgetsDue(ctx context.Context, now int64) ([]*models.Budget, error) {
	return s.queryBudgets(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE recurrence != '' AND period_end != 0 AND period_end <= ?`,
		now)
}

// UpdateBudgetWindow moves a budget to a new period and resets the
// alert state for the fresh window.
func (s *SQLiteStore) UpdateBudgetWindow(ctx context.Context, budgetID string, start, end int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE budgets SET period_start = ?, period_end = ?, alert_state = ?, notified_ratio = '0', updated_at = ?
		 WHERE id = ?`,
		start, end, string(models.AlertNone), time.Now().Unix(), budgetID,
	)
	if err != nil {
		return fmt.Errorf("failed to update budget window: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) queryBudgets(ctx context.Context, query string, args ...interface{}) ([]*models.Budget, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*models.Budget
	for rows.Next() {
		budget, err := scanBudget(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, budget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}
	return budgets, nil
}

func scanBudget(scan func(dest ...interface{}) error) (*models.Budget, error) {
	budget := &models.Budget{}
	var limit, notified, recurrence, state string
	err := scan(&budget.ID, &budget.UserID, &budget.Category, &limit,
		&budget.PeriodStart, &budget.PeriodEnd, &recurrence, &state,
		&notified, &budget.CreatedAt, &budget.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if budget.LimitAmount, err = parseAmount(limit); err != nil {
		return nil, err
	}
	if budget.NotifiedRatio, err = parseAmount(notified); err != nil {
		return nil, err
	}
	budget.Recurrence = models.Recurrence(recurrence)
	budget.AlertState = models.AlertState(state)
	return budget, nil
}
