package models

import "github.com/shopspring/decimal"

// AlertState is the budget's current position relative to its thresholds.
type AlertState string

const (
	AlertNone     AlertState = "none"
	AlertWarning  AlertState = "warning"
	AlertExceeded AlertState = "exceeded"
)

// Recurrence describes how a budget window repeats.
type Recurrence string

const (
	RecurrenceNone    Recurrence = ""
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Budget is a spending limit for one user over a time window.
//
// The consumed amount is not stored: it is recomputed from the expenses
// inside the window on every mutation, so it can never drift from the
// source records.
type Budget struct {
	// ID is the unique identifier for the budget (UUID format).
	ID string

	// UserID is the owner of the budget.
	UserID string

	// Category restricts the budget to expenses of one category.
	// Empty means the budget covers all of the user's expenses.
	Category string

	// LimitAmount is the spending limit for the window. Always positive.
	LimitAmount decimal.Decimal

	// PeriodStart is the Unix timestamp the window opens (inclusive).
	PeriodStart int64

	// PeriodEnd is the Unix timestamp the window closes (inclusive).
	// Zero means the window is open-ended.
	PeriodEnd int64

	// Recurrence makes the window advance automatically when it expires.
	Recurrence Recurrence

	// AlertState is the threshold band the budget last settled in.
	AlertState AlertState

	// NotifiedRatio is the consumption ratio at the time of the last
	// "entered" alert. Kept for display; transition logic runs off
	// AlertState alone.
	NotifiedRatio decimal.Decimal

	// CreatedAt is the Unix timestamp when the budget was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last modification.
	UpdatedAt int64
}

// Contains reports whether an expense with the given category and
// occurrence time falls inside this budget's scope.
func (b *Budget) Contains(category string, occurredAt int64) bool {
	if b.Category != "" && b.Category != category {
		return false
	}
	if occurredAt < b.PeriodStart {
		return false
	}
	if b.PeriodEnd != 0 && occurredAt > b.PeriodEnd {
		return false
	}
	return true
}
