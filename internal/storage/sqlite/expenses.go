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

// CreateExpense persists an expense and its split shares in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, shares []models.SplitShare) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = now
	if expense.OccurredAt == 0 {
		expense.OccurredAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, amount, category, description, group_id, occurred_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.UserID, expense.Amount.String(), expense.Category,
		expense.Description, nullableString(expense.GroupID),
		expense.OccurredAt, expense.CreatedAt, expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertShares(ctx, tx, expense.ID, shares); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense and its split shares by ID.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, []models.SplitShare, error) {
	expense := &models.Expense{}
	var amount string
	var groupID sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, category, description, group_id, occurred_at, created_at, updated_at
		 FROM expenses WHERE id = ?`,
		id,
	).Scan(&expense.ID, &expense.UserID, &amount, &expense.Category,
		&expense.Description, &groupID, &expense.OccurredAt,
		&expense.CreatedAt, &expense.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if expense.Amount, err = parseAmount(amount); err != nil {
		return nil, nil, err
	}
	if groupID.Valid {
		expense.GroupID = groupID.String
	}

	shares, err := s.sharesForExpense(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return expense, shares, nil
}

// UpdateExpense rewrites an expense and replaces its split shares.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense, shares []models.SplitShare) error {
	expense.UpdatedAt = time.Now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, category = ?, description = ?, group_id = ?, occurred_at = ?, updated_at = ?
		 WHERE id = ?`,
		expense.Amount.String(), expense.Category, expense.Description,
		nullableString(expense.GroupID), expense.OccurredAt, expense.UpdatedAt,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM split_shares WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to clear split shares: %w", err)
	}
	if err := insertShares(ctx, tx, expense.ID, shares); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteExpense removes an expense; its split shares cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListExpensesByUser retrieves all expenses owned by a user, newest first.
func (s *SQLiteStore) ListExpensesByUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, amount, category, description, group_id, occurred_at, created_at, updated_at
		 FROM expenses WHERE user_id = ? ORDER BY occurred_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense := &models.Expense{}
		var amount string
		var groupID sql.NullString
		if err := rows.Scan(&expense.ID, &expense.UserID, &amount, &expense.Category,
			&expense.Description, &groupID, &expense.OccurredAt,
			&expense.CreatedAt, &expense.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if expense.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		if groupID.Valid {
			expense.GroupID = groupID.String
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

// WindowAmounts returns the user's effective spend amounts inside a
// budget window. Personal expenses count at their gross amount; group
// expenses count at the user's split share (zero if the user has none).
func (s *SQLiteStore) WindowAmounts(ctx context.Context, userID, category string, start, end int64) ([]decimal.Decimal, error) {
	query := `
		SELECT CASE WHEN e.group_id IS NULL THEN e.amount ELSE COALESCE(s.amount, '0') END
		FROM expenses e
		LEFT JOIN split_shares s ON s.expense_id = e.id AND s.user_id = e.user_id
		WHERE e.user_id = ?
		  AND (? = '' OR e.category = ?)
		  AND e.occurred_at >= ?
		  AND (? = 0 OR e.occurred_at <= ?)
	`
	rows, err := s.db.QueryContext(ctx, query, userID, category, category, start, end, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query window amounts: %w", err)
	}
	defer rows.Close()

	var amounts []decimal.Decimal
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan window amount: %w", err)
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate window amounts: %w", err)
	}
	return amounts, nil
}

func (s *SQLiteStore) sharesForExpense(ctx context.Context, expenseID string) ([]models.SplitShare, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, user_id, amount FROM split_shares WHERE expense_id = ? ORDER BY user_id",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get split shares: %w", err)
	}
	defer rows.Close()

	var shares []models.SplitShare
	for rows.Next() {
		var share models.SplitShare
		var amount string
		if err := rows.Scan(&share.ExpenseID, &share.UserID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan split share: %w", err)
		}
		if share.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate split shares: %w", err)
	}
	return shares, nil
}

func insertShares(ctx context.Context, tx *sql.Tx, expenseID string, shares []models.SplitShare) error {
	for _, share := range shares {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO split_shares (expense_id, user_id, amount) VALUES (?, ?, ?)",
			expenseID, share.UserID, share.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split share: %w", err)
		}
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
