// Package server exposes the REST and WebSocket API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/auth"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/engine"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/ledger"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/middleware"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/notify"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage"
)

// Server holds the API dependencies and builds the route table.
type Server struct {
	store         storage.Store
	engine        *engine.Engine
	authenticator auth.Authenticator
	jwt           *auth.JWTManager
	registry      *notify.Registry
}

// New creates a server.
func New(store storage.Store, eng *engine.Engine, authenticator auth.Authenticator, jwt *auth.JWTManager, registry *notify.Registry) *Server {
	return &Server{
		store:         store,
		engine:        eng,
		authenticator: authenticator,
		jwt:           jwt,
		registry:      registry,
	}
}

// Routes builds the route table. Everything under /api except auth
// requires a valid token; so does the WebSocket upgrade.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAuth(s.jwt, h)
	}

	mux.Handle("POST /api/expenses", authed(s.handleCreateExpense))
	mux.Handle("GET /api/expenses", authed(s.handleListExpenses))
	mux.Handle("GET /api/expenses/{id}", authed(s.handleGetExpense))
	mux.Handle("PUT /api/expenses/{id}", authed(s.handleUpdateExpense))
	mux.Handle("DELETE /api/expenses/{id}", authed(s.handleDeleteExpense))

	mux.Handle("POST /api/budgets", authed(s.handleCreateBudget))
	mux.Handle("GET /api/budgets", authed(s.handleListBudgets))
	mux.Handle("GET /api/budgets/{id}", authed(s.handleGetBudget))
	mux.Handle("PUT /api/budgets/{id}", authed(s.handleUpdateBudget))
	mux.Handle("DELETE /api/budgets/{id}", authed(s.handleDeleteBudget))

	mux.Handle("POST /api/groups", authed(s.handleCreateGroup))
	mux.Handle("GET /api/groups", authed(s.handleListGroups))
	mux.Handle("GET /api/groups/{id}", authed(s.handleGetGroup))
	mux.Handle("POST /api/groups/{id}/members", authed(s.handleAddGroupMembers))

	mux.Handle("GET /api/debts", authed(s.handleListDebts))
	mux.Handle("GET /api/settlements", authed(s.handleListSettlements))
	mux.Handle("POST /api/debts/settle", authed(s.handleSettle))

	mux.Handle("GET /ws", authed(s.handleWebSocket))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps a domain error to an HTTP status and writes it as
// a JSON error body.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrOverpayment):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrEmailExists):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, auth.ErrWeakPassword):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON parses a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", ledger.ErrValidation, err)
	}
	return nil
}
