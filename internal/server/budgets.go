package server

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/ledger"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/middleware"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage"
)

type budgetRequest struct {
	Category    string          `json:"category"`
	LimitAmount decimal.Decimal `json:"limitAmount"`
	PeriodStart int64           `json:"periodStart"`
	PeriodEnd   int64           `json:"periodEnd"`
	Recurrence  string          `json:"recurrence"`
}

type budgetView struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Category      string          `json:"category"`
	LimitAmount   decimal.Decimal `json:"limitAmount"`
	PeriodStart   int64           `json:"periodStart"`
	PeriodEnd     int64           `json:"periodEnd"`
	Recurrence    string          `json:"recurrence,omitempty"`
	AlertState    string          `json:"alertState"`
	NotifiedRatio decimal.Decimal `json:"notifiedRatio"`
	CreatedAt     int64           `json:"createdAt"`
	UpdatedAt     int64           `json:"updatedAt"`
}

func viewBudget(b *models.Budget) budgetView {
	return budgetView{
		ID:            b.ID,
		UserID:        b.UserID,
		Category:      b.Category,
		LimitAmount:   b.LimitAmount,
		PeriodStart:   b.PeriodStart,
		PeriodEnd:     b.PeriodEnd,
		Recurrence:    string(b.Recurrence),
		AlertState:    string(b.AlertState),
		NotifiedRatio: b.NotifiedRatio,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func (r budgetRequest) validate() error {
	if r.LimitAmount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: budget limit must be positive", ledger.ErrValidation)
	}
	switch models.Recurrence(r.Recurrence) {
	case models.RecurrenceNone, models.RecurrenceWeekly, models.RecurrenceMonthly:
	default:
		return fmt.Errorf("%w: unknown recurrence %q", ledger.ErrValidation, r.Recurrence)
	}
	if r.Recurrence != "" && r.PeriodEnd == 0 {
		return fmt.Errorf("%w: a recurring budget needs a closed period", ledger.ErrValidation)
	}
	if r.PeriodEnd != 0 && r.PeriodEnd <= r.PeriodStart {
		return fmt.Errorf("%w: period end must be after period start", ledger.ErrValidation)
	}
	return nil
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}

	budget := &models.Budget{
		UserID:      middleware.GetUserID(r.Context()),
		Category:    req.Category,
		LimitAmount: req.LimitAmount,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		Recurrence:  models.Recurrence(req.Recurrence),
	}
	if err := s.store.CreateBudget(r.Context(), budget); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, viewBudget(budget))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgetsByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	views := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, viewBudget(b))
	}
	respondJSON(w, http.StatusOK, map[string]any{"budgets": views})
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.ownedBudget(r)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewBudget(budget))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.ownedBudget(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, err)
		return
	}

	budget.Category = req.Category
	budget.LimitAmount = req.LimitAmount
	budget.PeriodStart = req.PeriodStart
	budget.PeriodEnd = req.PeriodEnd
	budget.Recurrence = models.Recurrence(req.Recurrence)
	if err := s.store.UpdateBudget(r.Context(), budget); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewBudget(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ownedBudget(r); err != nil {
		respondError(w, err)
		return
	}
	if err := s.store.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) ownedBudget(r *http.Request) (*models.Budget, error) {
	budget, err := s.store.GetBudget(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if budget.UserID != middleware.GetUserID(r.Context()) {
		return nil, storage.ErrNotFound
	}
	return budget, nil
}
