// Package alerting decides when budget threshold notifications fire.
//
// The evaluator is a pure computation: it takes a budget's previous alert
// state and its freshly recomputed consumption, and returns at most one
// transition. Crossing a threshold that was already notified produces no
// new decision until the consumption drops back below it.
package alerting

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
)

var (
	// ErrConfiguration indicates an invalid budget setup, such as a
	// non-positive limit. Budgets are validated at creation, so hitting
	// this at evaluation time means a bad row got past validation.
	ErrConfiguration = errors.New("invalid budget configuration")

	// ErrInvariant indicates an impossible input, such as a negative
	// consumed amount. This is an upstream bug, not a user error.
	ErrInvariant = errors.New("budget invariant violated")
)

// Outcome is the transition an evaluation produced.
type Outcome string

const (
	NoChange        Outcome = "no_change"
	WarningEntered  Outcome = "warning_entered"
	ExceededEntered Outcome = "exceeded_entered"
	ExceededCleared Outcome = "exceeded_cleared"
	WarningCleared  Outcome = "warning_cleared"
)

// Decision is the result of evaluating a budget against its new consumption.
type Decision struct {
	Outcome  Outcome
	State    models.AlertState
	Ratio    decimal.Decimal
	Consumed decimal.Decimal
}

// Notifiable reports whether the decision should produce a notification.
func (d Decision) Notifiable() bool {
	return d.Outcome != NoChange
}

// Evaluator computes alert transitions for budgets.
type Evaluator struct {
	warnRatio decimal.Decimal
}

// NewEvaluator creates an evaluator that warns at the given consumption
// fraction (e.g. 0.8 warns at 80% of the limit).
func NewEvaluator(warnRatio decimal.Decimal) *Evaluator {
	return &Evaluator{warnRatio: warnRatio}
}

// Evaluate computes the alert transition for a budget whose consumed
// amount just changed. It does not mutate the budget; the caller persists
// the returned state under the per-budget lock.
func (ev *Evaluator) Evaluate(budget *models.Budget, consumed decimal.Decimal) (Decision, error) {
	if budget.LimitAmount.LessThanOrEqual(decimal.Zero) {
		return Decision{}, fmt.Errorf("%w: limit %s for budget %s", ErrConfiguration, budget.LimitAmount, budget.ID)
	}
	if consumed.IsNegative() {
		return Decision{}, fmt.Errorf("%w: negative consumed amount %s for budget %s", ErrInvariant, consumed, budget.ID)
	}

	ratio := consumed.Div(budget.LimitAmount)
	state := ev.stateFor(consumed, budget.LimitAmount, ratio)
	decision := Decision{
		Outcome:  transition(budget.AlertState, state),
		State:    state,
		Ratio:    ratio,
		Consumed: consumed,
	}
	return decision, nil
}

func (ev *Evaluator) stateFor(consumed, limit, ratio decimal.Decimal) models.AlertState {
	switch {
	case consumed.GreaterThanOrEqual(limit):
		return models.AlertExceeded
	case ratio.GreaterThanOrEqual(ev.warnRatio):
		return models.AlertWarning
	default:
		return models.AlertNone
	}
}

// transition maps a (previous, new) state pair to an outcome. Monotonic:
// the same "entered" outcome cannot fire twice without the consumption
// dropping below the threshold in between, because the previous state
// already reflects the earlier crossing.
func transition(prev, next models.AlertState) Outcome {
	pr, nr := stateRank(prev), stateRank(next)
	switch {
	case nr > pr && next == models.AlertExceeded:
		return ExceededEntered
	case nr > pr:
		return WarningEntered
	case nr < pr && prev == models.AlertExceeded:
		return ExceededCleared
	case nr < pr:
		return WarningCleared
	default:
		return NoChange
	}
}

func stateRank(s models.AlertState) int {
	switch s {
	case models.AlertWarning:
		return 1
	case models.AlertExceeded:
		return 2
	default:
		return 0
	}
}
