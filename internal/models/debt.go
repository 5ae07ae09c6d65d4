package models

import "github.com/shopspring/decimal"

// DebtStatus marks whether a debt entry still has an outstanding balance.
type DebtStatus string

const (
	DebtPending DebtStatus = "pending"
	DebtSettled DebtStatus = "settled"
)

// DebtEntry is the net pending debt between two users.
//
// For any pair of users at most one direction carries a nonzero amount:
// new debts in the opposite direction net against the existing entry,
// flipping it when they overshoot. The amount is never negative.
type DebtEntry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string

	// DebtorID is the user who owes.
	DebtorID string

	// CreditorID is the user who is owed.
	CreditorID string

	// Amount is the outstanding balance. Zero only when settled.
	Amount decimal.Decimal

	// Status is pending while any balance remains, settled otherwise.
	Status DebtStatus

	// CreatedAt is the Unix timestamp when the entry was first created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last balance change.
	UpdatedAt int64
}

// Settlement records a payment between two users that reduced a debt.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// DebtorID is the user who paid.
	DebtorID string

	// CreditorID is the user who received the payment.
	CreditorID string

	// Amount is the payment amount.
	Amount decimal.Decimal

	// CreatedBy is the user who recorded the settlement.
	CreatedBy string

	// Note is an optional description.
	Note string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}
