package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
)

// Delta is a change to the debt one user owes another. A negative amount
// compensates a previously recorded debt (expense updated or deleted).
type Delta struct {
	DebtorID   string
	CreditorID string
	Amount     decimal.Decimal
}

// Net applies a delta to the existing pending entry between two users and
// returns the resulting entry. existing may be nil (no prior debt) and may
// point in either direction; the result is always the minimal
// representation: a single entry whose amount is non-negative, flipped to
// the opposite direction when the delta overshoots the prior balance.
func Net(existing *models.DebtEntry, delta Delta) *models.DebtEntry {
	// Signed balance in the delta's direction.
	balance := decimal.Zero
	if existing != nil && existing.Status == models.DebtPending {
		if existing.DebtorID == delta.DebtorID {
			balance = existing.Amount
		} else {
			balance = existing.Amount.Neg()
		}
	}
	balance = balance.Add(delta.Amount)

	entry := &models.DebtEntry{
		DebtorID:   delta.DebtorID,
		CreditorID: delta.CreditorID,
		Amount:     balance,
		Status:     models.DebtPending,
		UpdatedAt:  time.Now().Unix(),
	}
	if existing != nil {
		entry.ID = existing.ID
		entry.CreatedAt = existing.CreatedAt
	}

	if balance.IsNegative() {
		// Direction flipped: the former creditor now owes.
		entry.DebtorID, entry.CreditorID = delta.CreditorID, delta.DebtorID
		entry.Amount = balance.Neg()
	}
	if entry.Amount.IsZero() {
		entry.Amount = decimal.Zero
		entry.Status = models.DebtSettled
	}
	return entry
}

// SignedBalance collapses an entry to one signed amount from the
// perspective of userID: positive means userID is owed, negative means
// userID owes.
func SignedBalance(entry *models.DebtEntry, userID string) decimal.Decimal {
	if entry == nil || entry.Status != models.DebtPending {
		return decimal.Zero
	}
	if entry.CreditorID == userID {
		return entry.Amount
	}
	return entry.Amount.Neg()
}

// Settle reduces the entry's outstanding balance by amount, marking it
// settled when the balance reaches exactly zero. The entry is mutated
// only on success.
func Settle(entry *models.DebtEntry, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: settlement amount must be positive, got %s", ErrValidation, amount)
	}
	if entry.Status != models.DebtPending {
		return fmt.Errorf("%w: debt between %s and %s is already settled", ErrValidation, entry.DebtorID, entry.CreditorID)
	}
	if amount.GreaterThan(entry.Amount) {
		return fmt.Errorf("%w: paying %s against outstanding %s", ErrOverpayment, amount, entry.Amount)
	}
	entry.Amount = entry.Amount.Sub(amount)
	if entry.Amount.IsZero() {
		entry.Status = models.DebtSettled
	}
	entry.UpdatedAt = time.Now().Unix()
	return nil
}
