// Package engine orchestrates expense mutations.
//
// Every create, update or delete of an expense flows through here:
// the mutation is persisted, the affected debt balances and budget
// aggregates are recomputed, and live notifications are dispatched.
// Persistence failures abort the mutation; failures in the recompute or
// notify stages are logged and surfaced as warnings, never rolled back,
// because alerting is auxiliary behavior layered over the core data.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/alerting"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/ledger"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/metrics"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/notify"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage"
)

// SplitPolicy selects how a group expense is divided.
type SplitPolicy string

const (
	SplitEqual SplitPolicy = "equal"
	SplitExact SplitPolicy = "exact"
)

// SplitSpec describes the requested split for a group expense.
// A nil spec defaults to an equal split across all group members.
type SplitSpec struct {
	Policy SplitPolicy
	// Shares maps participant user ids to owed amounts; only used by
	// the exact policy, where they must sum to the expense total.
	Shares map[string]decimal.Decimal
}

// Engine coordinates persistence, aggregate recomputation and
// notification dispatch for expense mutations.
type Engine struct {
	store      storage.Store
	evaluator  *alerting.Evaluator
	dispatcher *notify.Dispatcher
	locks      *keyedMutex
}

// New creates an engine.
func New(store storage.Store, evaluator *alerting.Evaluator, dispatcher *notify.Dispatcher) *Engine {
	return &Engine{
		store:      store,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		locks:      newKeyedMutex(),
	}
}

// CreateExpense validates, persists and processes a new expense.
func (e *Engine) CreateExpense(ctx context.Context, expense *models.Expense, split *SplitSpec) (*Result, error) {
	if err := validateAmount(expense.Amount); err != nil {
		return nil, err
	}
	shares, err := e.computeShares(ctx, expense, split)
	if err != nil {
		return nil, err
	}

	if err := e.store.CreateExpense(ctx, expense, shares); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	metrics.ExpenseMutations.WithLabelValues(string(models.ChangeCreated)).Inc()
	slog.Info("Expense created",
		"expense_id", expense.ID,
		"user_id", expense.UserID,
		"amount", expense.Amount,
		"group_id", expense.GroupID,
	)

	res := &Result{}
	// Split before threshold evaluation: the payer's budget consumption
	// reflects only their net share of a group expense.
	e.applyDebtDeltas(ctx, res, expense, nil, shares)
	e.reevaluateBudgets(ctx, res, expense.UserID, expense.Category, expense.OccurredAt)
	return res, nil
}

// UpdateExpense rewrites an expense, recomputing its split from scratch
// and emitting compensating debt deltas for the previous state.
func (e *Engine) UpdateExpense(ctx context.Context, expense *models.Expense, split *SplitSpec) (*Result, error) {
	if err := validateAmount(expense.Amount); err != nil {
		return nil, err
	}
	prev, prevShares, err := e.store.GetExpense(ctx, expense.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	shares, err := e.computeShares(ctx, expense, split)
	if err != nil {
		return nil, err
	}

	if err := e.store.UpdateExpense(ctx, expense, shares); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	metrics.ExpenseMutations.WithLabelValues(string(models.ChangeUpdated)).Inc()
	slog.Info("Expense updated", "expense_id", expense.ID, "user_id", expense.UserID)

	res := &Result{}
	e.applyDebtDeltas(ctx, res, expense, prevShares, shares)
	e.reevaluateBudgets(ctx, res, expense.UserID, expense.Category, expense.OccurredAt)
	if prev.Category != expense.Category || prev.OccurredAt != expense.OccurredAt {
		// The expense may have left other budgets' windows.
		e.reevaluateBudgets(ctx, res, expense.UserID, prev.Category, prev.OccurredAt)
	}
	return res, nil
}

// DeleteExpense removes an expense and compensates its split.
func (e *Engine) DeleteExpense(ctx context.Context, id string) (*models.Expense, *Result, error) {
	prev, prevShares, err := e.store.GetExpense(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := e.store.DeleteExpense(ctx, id); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	metrics.ExpenseMutations.WithLabelValues(string(models.ChangeDeleted)).Inc()
	slog.Info("Expense deleted", "expense_id", id, "user_id", prev.UserID)

	res := &Result{}
	e.applyDebtDeltas(ctx, res, prev, prevShares, nil)
	e.reevaluateBudgets(ctx, res, prev.UserID, prev.Category, prev.OccurredAt)
	return prev, res, nil
}

// validateAmount rejects non-positive expense amounts. The group path
// gets the same check from the split math; this guards the personal
// path so a bad amount can never drive a budget's consumption negative.
func validateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: expense amount must be positive, got %s", ledger.ErrValidation, amount)
	}
	return nil
}

// computeShares resolves the split shares for a group expense. Returns
// nil shares for personal expenses. All validation happens here, before
// anything is written.
func (e *Engine) computeShares(ctx context.Context, expense *models.Expense, split *SplitSpec) ([]models.SplitShare, error) {
	if expense.GroupID == "" {
		return nil, nil
	}

	group, err := e.store.GetGroup(ctx, expense.GroupID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: group %s does not exist", ledger.ErrValidation, expense.GroupID)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !group.HasMember(expense.UserID) {
		return nil, fmt.Errorf("%w: payer %s is not a member of group %s", ledger.ErrValidation, expense.UserID, group.ID)
	}

	var shareMap map[string]decimal.Decimal
	if split == nil || split.Policy == "" || split.Policy == SplitEqual {
		shareMap, err = ledger.EqualShares(expense.Amount, group.Members)
	} else if split.Policy == SplitExact {
		for userID := range split.Shares {
			if !group.HasMember(userID) {
				return nil, fmt.Errorf("%w: participant %s is not a member of group %s", ledger.ErrValidation, userID, group.ID)
			}
		}
		shareMap, err = ledger.ExactShares(expense.Amount, split.Shares)
	} else {
		return nil, fmt.Errorf("%w: unknown split policy %q", ledger.ErrValidation, split.Policy)
	}
	if err != nil {
		return nil, err
	}

	shares := make([]models.SplitShare, 0, len(shareMap))
	for userID, amount := range shareMap {
		shares = append(shares, models.SplitShare{
			ExpenseID: expense.ID,
			UserID:    userID,
			Amount:    amount,
		})
	}
	sort.Slice(shares, func(i, j int) bool { return shares[i].UserID < shares[j].UserID })
	return shares, nil
}

// applyDebtDeltas nets the difference between an expense's previous and
// new shares into the pairwise debt entries and notifies both sides of
// each changed pair. Failures are recorded as warnings; the persisted
// expense mutation is never rolled back from here.
func (e *Engine) applyDebtDeltas(ctx context.Context, res *Result, expense *models.Expense, prevShares, newShares []models.SplitShare) {
	deltas := diffShares(expense.UserID, prevShares, newShares)
	if len(deltas) == 0 {
		return
	}

	// One pair at a time; locks never nest, so ordering cannot deadlock.
	for _, delta := range deltas {
		unlock := e.locks.Lock(pairKey(delta.DebtorID, delta.CreditorID))

		existing, err := e.store.DebtBetween(ctx, delta.DebtorID, delta.CreditorID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			unlock()
			slog.Error("Failed to load debt entry", "debtor", delta.DebtorID, "creditor", delta.CreditorID, "error", err)
			res.warn("debt between %s and %s not updated: %v", delta.DebtorID, delta.CreditorID, err)
			continue
		}

		entry := ledger.Net(existing, delta)
		if err := e.store.UpsertDebtEntry(ctx, entry); err != nil {
			unlock()
			slog.Error("Failed to persist debt entry", "debtor", entry.DebtorID, "creditor", entry.CreditorID, "error", err)
			res.warn("debt between %s and %s not updated: %v", delta.DebtorID, delta.CreditorID, err)
			continue
		}
		unlock()

		member, payer := delta.DebtorID, delta.CreditorID
		if member == expense.UserID {
			member, payer = payer, member
		}
		e.dispatcher.Dispatch(notify.DebtUpdate{
			UserID:         member,
			CounterpartyID: payer,
			ExpenseID:      expense.ID,
			Delta:          ledgerDeltaFor(member, delta),
			NewBalance:     ledger.SignedBalance(entry, member),
		})
		e.dispatcher.Dispatch(notify.DebtUpdate{
			UserID:         payer,
			CounterpartyID: member,
			ExpenseID:      expense.ID,
			Delta:          ledgerDeltaFor(payer, delta),
			NewBalance:     ledger.SignedBalance(entry, payer),
		})
	}
}

// diffShares turns the old and new shares of an expense into net debt
// deltas against the payer, one per counterparty.
func diffShares(payerID string, prevShares, newShares []models.SplitShare) []ledger.Delta {
	byUser := make(map[string]decimal.Decimal)
	for _, share := range prevShares {
		if share.UserID == payerID {
			continue
		}
		byUser[share.UserID] = byUser[share.UserID].Sub(share.Amount)
	}
	for _, share := range newShares {
		if share.UserID == payerID {
			continue
		}
		byUser[share.UserID] = byUser[share.UserID].Add(share.Amount)
	}

	users := make([]string, 0, len(byUser))
	for userID := range byUser {
		users = append(users, userID)
	}
	sort.Strings(users)

	deltas := make([]ledger.Delta, 0, len(users))
	for _, userID := range users {
		amount := byUser[userID]
		if amount.IsZero() {
			continue
		}
		deltas = append(deltas, ledger.Delta{
			DebtorID:   userID,
			CreditorID: payerID,
			Amount:     amount,
		})
	}
	return deltas
}

// ledgerDeltaFor converts a debt delta into the change in a user's
// signed net balance: positive when they are owed more, negative when
// they owe more.
func ledgerDeltaFor(userID string, delta ledger.Delta) decimal.Decimal {
	if delta.CreditorID == userID {
		return delta.Amount
	}
	return delta.Amount.Neg()
}

// reevaluateBudgets recomputes consumption for every budget containing
// the mutated expense and dispatches alerts for threshold transitions.
func (e *Engine) reevaluateBudgets(ctx context.Context, res *Result, userID, category string, occurredAt int64) {
	budgets, err := e.store.BudgetsMatching(ctx, userID, category, occurredAt)
	if err != nil {
		slog.Error("Failed to load matching budgets", "user_id", userID, "error", err)
		res.warn("budgets not re-evaluated: %v", err)
		return
	}

	for _, budget := range budgets {
		unlock := e.locks.Lock(budgetKey(budget.ID))
		e.evaluateBudget(ctx, res, budget)
		unlock()
	}
}

// evaluateBudget recomputes one budget's consumed amount from its
// matching expenses and applies the threshold decision. Caller holds
// the budget lock.
func (e *Engine) evaluateBudget(ctx context.Context, res *Result, budget *models.Budget) {
	amounts, err := e.store.WindowAmounts(ctx, budget.UserID, budget.Category, budget.PeriodStart, budget.PeriodEnd)
	if err != nil {
		slog.Error("Failed to recompute budget consumption", "budget_id", budget.ID, "error", err)
		res.warn("budget %s not re-evaluated: %v", budget.ID, err)
		return
	}
	consumed := decimal.Zero
	for _, amount := range amounts {
		consumed = consumed.Add(amount)
	}

	decision, err := e.evaluator.Evaluate(budget, consumed)
	if err != nil {
		// Invariant and configuration failures must not block the
		// mutation; they indicate an upstream bug and are logged loudly.
		slog.Error("Budget evaluation failed", "budget_id", budget.ID, "consumed", consumed, "error", err)
		res.warn("budget %s not evaluated: %v", budget.ID, err)
		return
	}
	if !decision.Notifiable() {
		return
	}

	if err := e.store.UpdateBudgetAlert(ctx, budget.ID, decision.State, decision.Ratio); err != nil {
		slog.Error("Failed to persist alert state", "budget_id", budget.ID, "error", err)
		res.warn("alert state for budget %s not persisted: %v", budget.ID, err)
		return
	}
	metrics.BudgetAlerts.WithLabelValues(string(decision.Outcome)).Inc()
	slog.Info("Budget alert",
		"budget_id", budget.ID,
		"user_id", budget.UserID,
		"outcome", decision.Outcome,
		"consumed", consumed,
		"limit", budget.LimitAmount,
	)

	e.dispatcher.Dispatch(notify.BudgetAlert{
		UserID:   budget.UserID,
		BudgetID: budget.ID,
		Category: budget.Category,
		Outcome:  string(decision.Outcome),
		State:    string(decision.State),
		Limit:    budget.LimitAmount,
		Consumed: consumed,
		Ratio:    decision.Ratio,
	})
}
