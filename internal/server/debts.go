package server

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/ledger"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/middleware"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
)

type debtView struct {
	ID         string          `json:"id"`
	DebtorID   string          `json:"debtorId"`
	CreditorID string          `json:"creditorId"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	UpdatedAt  int64           `json:"updatedAt"`
}

func viewDebt(d *models.DebtEntry) debtView {
	return debtView{
		ID:         d.ID,
		DebtorID:   d.DebtorID,
		CreditorID: d.CreditorID,
		Amount:     d.Amount,
		Status:     string(d.Status),
		UpdatedAt:  d.UpdatedAt,
	}
}

type settleRequest struct {
	CounterpartyID string          `json:"counterpartyId"`
	Amount         decimal.Decimal `json:"amount"`
	Note           string          `json:"note"`
}

type settlementView struct {
	ID         string          `json:"id"`
	DebtorID   string          `json:"debtorId"`
	CreditorID string          `json:"creditorId"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
	CreatedAt  int64           `json:"createdAt"`
}

func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListDebtsForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	views := make([]debtView, 0, len(entries))
	for _, d := range entries {
		views = append(views, viewDebt(d))
	}
	respondJSON(w, http.StatusOK, map[string]any{"debts": views})
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := s.store.ListSettlementsForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	views := make([]settlementView, 0, len(settlements))
	for _, st := range settlements {
		views = append(views, settlementView{
			ID:         st.ID,
			DebtorID:   st.DebtorID,
			CreditorID: st.CreditorID,
			Amount:     st.Amount,
			Note:       st.Note,
			CreatedAt:  st.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"settlements": views})
}

// handleSettle records a payment from the authenticated user to the
// counterparty they owe.
func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.CounterpartyID == "" {
		respondError(w, fmt.Errorf("%w: counterpartyId required", ledger.ErrValidation))
		return
	}

	userID := middleware.GetUserID(r.Context())
	entry, err := s.engine.Settle(r.Context(), &models.Settlement{
		DebtorID:   userID,
		CreditorID: req.CounterpartyID,
		Amount:     req.Amount,
		CreatedBy:  userID,
		Note:       req.Note,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewDebt(entry))
}
