package server

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/engine"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/ledger"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/middleware"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage"
)

type expenseRequest struct {
	Amount      decimal.Decimal            `json:"amount"`
	Category    string                     `json:"category"`
	Description string                     `json:"description"`
	GroupID     string                     `json:"groupId"`
	OccurredAt  int64                      `json:"occurredAt"`
	SplitPolicy string                     `json:"splitPolicy"`
	SplitShares map[string]decimal.Decimal `json:"splitShares"`
}

type expenseView struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	GroupID     string          `json:"groupId,omitempty"`
	OccurredAt  int64           `json:"occurredAt"`
	CreatedAt   int64           `json:"createdAt"`
	UpdatedAt   int64           `json:"updatedAt"`
}

// expenseResponse carries the expense plus any warnings from the
// auxiliary stages of the mutation.
type expenseResponse struct {
	Expense  expenseView `json:"expense"`
	Warnings []string    `json:"warnings,omitempty"`
}

func viewExpense(e *models.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		UserID:      e.UserID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		GroupID:     e.GroupID,
		OccurredAt:  e.OccurredAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (r expenseRequest) split() (*engine.SplitSpec, error) {
	if r.SplitPolicy == "" && len(r.SplitShares) == 0 {
		return nil, nil
	}
	spec := &engine.SplitSpec{
		Policy: engine.SplitPolicy(r.SplitPolicy),
		Shares: r.SplitShares,
	}
	if spec.Policy == engine.SplitExact && len(spec.Shares) == 0 {
		return nil, fmt.Errorf("%w: exact split requires shares", ledger.ErrValidation)
	}
	return spec, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	split, err := req.split()
	if err != nil {
		respondError(w, err)
		return
	}

	expense := &models.Expense{
		UserID:      middleware.GetUserID(r.Context()),
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		GroupID:     req.GroupID,
		OccurredAt:  req.OccurredAt,
	}
	res, err := s.engine.CreateExpense(r.Context(), expense, split)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, expenseResponse{Expense: viewExpense(expense), Warnings: res.Warnings})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.store.ListExpensesByUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, viewExpense(e))
	}
	respondJSON(w, http.StatusOK, map[string]any{"expenses": views})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.ownedExpense(r)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, expenseResponse{Expense: viewExpense(expense)})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	existing, err := s.ownedExpense(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	split, err := req.split()
	if err != nil {
		respondError(w, err)
		return
	}

	expense := &models.Expense{
		ID:          existing.ID,
		UserID:      existing.UserID,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		GroupID:     req.GroupID,
		OccurredAt:  req.OccurredAt,
		CreatedAt:   existing.CreatedAt,
	}
	res, err := s.engine.UpdateExpense(r.Context(), expense, split)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, expenseResponse{Expense: viewExpense(expense), Warnings: res.Warnings})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ownedExpense(r); err != nil {
		respondError(w, err)
		return
	}

	_, res, err := s.engine.DeleteExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"warnings": res.Warnings})
}

// ownedExpense loads the path expense and verifies it belongs to the
// authenticated user. Foreign expenses read as not found.
func (s *Server) ownedExpense(r *http.Request) (*models.Expense, error) {
	expense, _, err := s.store.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if expense.UserID != middleware.GetUserID(r.Context()) {
		return nil, storage.ErrNotFound
	}
	return expense, nil
}
