package notify

import "github.com/shopspring/decimal"

// Event is a tagged notification variant addressed to one user.
type Event interface {
	// EventType is the wire "type" tag, stable for client compatibility.
	EventType() string
	// Recipient is the user the event is addressed to.
	Recipient() string
	// Data is the event-specific payload, serialized under "data".
	Data() any
}

// BudgetAlert notifies a user that one of their budgets crossed (or
// dropped back below) an alert threshold.
type BudgetAlert struct {
	UserID   string          `json:"-"` // carried in the envelope, not the data
	BudgetID string          `json:"budgetId"`
	Category string          `json:"category"`
	Outcome  string          `json:"outcome"`
	State    string          `json:"state"`
	Limit    decimal.Decimal `json:"limit"`
	Consumed decimal.Decimal `json:"consumed"`
	Ratio    decimal.Decimal `json:"ratio"`
}

func (e BudgetAlert) EventType() string { return "budget_alert" }
func (e BudgetAlert) Recipient() string { return e.UserID }
func (e BudgetAlert) Data() any         { return e }

// DebtUpdate notifies a user that their net balance with a counterparty
// changed because a group expense was created, updated or deleted.
type DebtUpdate struct {
	UserID         string          `json:"-"`
	CounterpartyID string          `json:"counterpartyId"`
	ExpenseID      string          `json:"expenseId"`
	Delta          decimal.Decimal `json:"delta"`
	NewBalance     decimal.Decimal `json:"newBalance"`
}

func (e DebtUpdate) EventType() string { return "debt_update" }
func (e DebtUpdate) Recipient() string { return e.UserID }
func (e DebtUpdate) Data() any         { return e }

// SettlementConfirmed notifies both sides that a settlement was recorded.
type SettlementConfirmed struct {
	UserID         string          `json:"-"`
	CounterpartyID string          `json:"counterpartyId"`
	Amount         decimal.Decimal `json:"amount"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	Settled        bool            `json:"settled"`
}

func (e SettlementConfirmed) EventType() string { return "settlement" }
func (e SettlementConfirmed) Recipient() string { return e.UserID }
func (e SettlementConfirmed) Data() any         { return e }
