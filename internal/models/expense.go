package models

import "github.com/shopspring/decimal"

// ChangeType identifies the kind of mutation applied to an expense.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Expense represents a single spend record.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// UserID is the owner (and, for group expenses, the payer).
	UserID string

	// Amount is the gross amount of the expense.
	Amount decimal.Decimal

	// Category classifies the expense for budget matching (e.g. "food").
	Category string

	// Description is an optional free-form note.
	Description string

	// GroupID links the expense to a group when it is shared.
	// Empty for personal expenses.
	GroupID string

	// OccurredAt is the Unix timestamp the expense applies to.
	// Budgets match on this, not on CreatedAt.
	OccurredAt int64

	// CreatedAt is the Unix timestamp when the record was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64
}

// SplitShare is one participant's owed portion of a group expense.
// The shares of an expense always sum exactly to its amount.
type SplitShare struct {
	// ExpenseID is the group expense this share belongs to.
	ExpenseID string

	// UserID is the participant who owes this share.
	UserID string

	// Amount is the participant's portion of the expense total.
	Amount decimal.Decimal
}
