package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage"
)

const debtColumns = `id, debtor_id, creditor_id, amount, status, created_at, updated_at`

// DebtBetween returns the single debt entry for a pair of users, in
// whichever direction it currently points, or storage.ErrNotFound.
func (s *SQLiteStore) DebtBetween(ctx context.Context, userA, userB string) (*models.DebtEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+debtColumns+` FROM debt_entries
		 WHERE (debtor_id = ? AND creditor_id = ?) OR (debtor_id = ? AND creditor_id = ?)`,
		userA, userB, userB, userA,
	)
	entry, err := scanDebt(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt entry: %w", err)
	}
	return entry, nil
}

// UpsertDebtEntry inserts a new entry or rewrites the existing one for
// the pair. The netting logic produces entries whose direction may have
// flipped, so the whole row is replaced.
func (s *SQLiteStore) UpsertDebtEntry(ctx context.Context, entry *models.DebtEntry) error {
	now := time.Now().Unix()
	if entry.UpdatedAt == 0 {
		entry.UpdatedAt = now
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
		entry.CreatedAt = now
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO debt_entries (`+debtColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID, entry.DebtorID, entry.CreditorID, entry.Amount.String(),
			string(entry.Status), entry.CreatedAt, entry.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert debt entry: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE debt_entries SET debtor_id = ?, creditor_id = ?, amount = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		entry.DebtorID, entry.CreditorID, entry.Amount.String(),
		string(entry.Status), entry.UpdatedAt, entry.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update debt entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListDebtsForUser retrieves all debt entries the user appears in, on
// either side, pending first.
func (s *SQLiteStore) ListDebtsForUser(ctx context.Context, userID string) ([]*models.DebtEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+debtColumns+` FROM debt_entries
		 WHERE debtor_id = ? OR creditor_id = ?
		 ORDER BY status DESC, updated_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list debt entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.DebtEntry
	for rows.Next() {
		entry, err := scanDebt(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debt entries: %w", err)
	}
	return entries, nil
}

// CreateSettlement records a settlement payment.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}

	var note interface{}
	if settlement.Note != "" {
		note = settlement.Note
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, debtor_id, creditor_id, amount, created_by, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		settlement.ID, settlement.DebtorID, settlement.CreditorID,
		settlement.Amount.String(), settlement.CreatedBy, note, settlement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}
	return nil
}

// ListSettlementsForUser retrieves settlements the user took part in,
// newest first.
func (s *SQLiteStore) ListSettlementsForUser(ctx context.Context, userID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, debtor_id, creditor_id, amount, created_by, note, created_at
		 FROM settlements WHERE debtor_id = ? OR creditor_id = ?
		 ORDER BY created_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		var amount string
		var note sql.NullString
		if err := rows.Scan(&settlement.ID, &settlement.DebtorID, &settlement.CreditorID,
			&amount, &settlement.CreatedBy, &note, &settlement.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		if settlement.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		if note.Valid {
			settlement.Note = note.String
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}

func scanDebt(scan func(dest ...interface{}) error) (*models.DebtEntry, error) {
	entry := &models.DebtEntry{}
	var amount, status string
	err := scan(&entry.ID, &entry.DebtorID, &entry.CreditorID, &amount,
		&status, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if entry.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	entry.Status = models.DebtStatus(status)
	return entry, nil
}
