package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
)

// RunRollover periodically advances expired recurring budget windows.
// It blocks until ctx is cancelled.
func (e *Engine) RunRollover(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.rolloverDue(ctx, time.Now())
		}
	}
}

// rolloverDue advances every recurring budget whose window has closed,
// repeating until the window contains now. A budget that was ignored for
// several periods catches up in one pass.
func (e *Engine) rolloverDue(ctx context.Context, now time.Time) {
	budgets, err := e.store.RecurringBudgetsDue(ctx, now.Unix())
	if err != nil {
		slog.Error("Failed to load recurring budgets", "error", err)
		return
	}

	for _, budget := range budgets {
		unlock := e.locks.Lock(budgetKey(budget.ID))

		start, end := budget.PeriodStart, budget.PeriodEnd
		for end != 0 && end < now.Unix() {
			nextStart, nextEnd := nextWindow(budget.Recurrence, start, end)
			if nextStart == start {
				// Unknown recurrence in the row; advancing would loop.
				slog.Error("Cannot advance budget window",
					"budget_id", budget.ID,
					"recurrence", budget.Recurrence,
				)
				break
			}
			start, end = nextStart, nextEnd
		}
		if start == budget.PeriodStart {
			unlock()
			continue
		}

		if err := e.store.UpdateBudgetWindow(ctx, budget.ID, start, end); err != nil {
			slog.Error("Failed to advance budget window", "budget_id", budget.ID, "error", err)
			unlock()
			continue
		}
		slog.Info("Budget window advanced",
			"budget_id", budget.ID,
			"user_id", budget.UserID,
			"recurrence", budget.Recurrence,
			"period_start", start,
			"period_end", end,
		)

		// Re-evaluate against whatever already landed in the new window.
		fresh := *budget
		fresh.PeriodStart, fresh.PeriodEnd = start, end
		fresh.AlertState = models.AlertNone
		fresh.NotifiedRatio = decimal.Zero
		e.evaluateBudget(ctx, &Result{}, &fresh)
		unlock()
	}
}

// nextWindow returns the window immediately following [start, end].
func nextWindow(recurrence models.Recurrence, start, end int64) (int64, int64) {
	from := time.Unix(start, 0).UTC()
	switch recurrence {
	case models.RecurrenceWeekly:
		next := from.AddDate(0, 0, 7)
		return next.Unix(), next.AddDate(0, 0, 7).Unix() - 1
	case models.RecurrenceMonthly:
		next := from.AddDate(0, 1, 0)
		return next.Unix(), next.AddDate(0, 1, 0).Unix() - 1
	default:
		return start, end
	}
}
