package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/alerting"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/auth"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/engine"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/notify"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "expense-tracker-server-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry := notify.NewRegistry()
	dispatcher := notify.NewDispatcher(registry)
	warnRatio, _ := decimal.NewFromString("0.8")
	eng := engine.New(store, alerting.NewEvaluator(warnRatio), dispatcher)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	srv := New(store, eng, auth.NewPasswordAuthenticator(store), jwtManager, registry)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

// doJSON performs a request and decodes the JSON response body.
func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode, decoded
}

// registerUser creates an account and returns its token and user id.
func registerUser(t *testing.T, ts *httptest.Server, email string) (string, string) {
	t.Helper()
	status, body := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":       email,
		"displayName": strings.Split(email, "@")[0],
		"password":    "hunter22secret",
	})
	if status != http.StatusCreated {
		t.Fatalf("register returned %d: %v", status, body)
	}
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	return token, user["id"].(string)
}

func TestAuthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	t.Run("register and login", func(t *testing.T) {
		registerUser(t, ts, "alice@example.com")

		status, body := doJSON(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "alice@example.com", "password": "hunter22secret",
		})
		if status != http.StatusOK {
			t.Fatalf("login returned %d: %v", status, body)
		}
		if body["token"] == "" {
			t.Error("expected a token")
		}
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		status, _ := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email": "alice@example.com", "displayName": "alice", "password": "hunter22secret",
		})
		if status != http.StatusConflict {
			t.Errorf("duplicate register returned %d, want 409", status)
		}
	})

	t.Run("weak password rejected", func(t *testing.T) {
		status, _ := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email": "bob@example.com", "displayName": "bob", "password": "short",
		})
		if status != http.StatusBadRequest {
			t.Errorf("weak password returned %d, want 400", status)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		status, _ := doJSON(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "alice@example.com", "password": "wrong-password",
		})
		if status != http.StatusUnauthorized {
			t.Errorf("bad login returned %d, want 401", status)
		}
	})

	t.Run("protected route requires token", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/expenses", nil)
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("unauthenticated request returned %d, want 401", resp.StatusCode)
		}
	})
}

func TestExpenseEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts, "carol@example.com")

	var expenseID string

	t.Run("create", func(t *testing.T) {
		status, body := doJSON(t, ts, http.MethodPost, "/api/expenses", token, map[string]any{
			"amount": "42.50", "category": "food", "description": "groceries",
		})
		if status != http.StatusCreated {
			t.Fatalf("create returned %d: %v", status, body)
		}
		expense := body["expense"].(map[string]any)
		expenseID = expense["id"].(string)
		if expense["amount"] != "42.5" {
			t.Errorf("amount = %v, want 42.5", expense["amount"])
		}
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		for _, amount := range []string{"-50", "0"} {
			status, _ := doJSON(t, ts, http.MethodPost, "/api/expenses", token, map[string]any{
				"amount": amount, "category": "food",
			})
			if status != http.StatusBadRequest {
				t.Errorf("amount %s returned %d, want 400", amount, status)
			}
		}
	})

	t.Run("list and get", func(t *testing.T) {
		status, body := doJSON(t, ts, http.MethodGet, "/api/expenses", token, nil)
		if status != http.StatusOK {
			t.Fatalf("list returned %d", status)
		}
		if n := len(body["expenses"].([]any)); n != 1 {
			t.Errorf("listed %d expenses, want 1", n)
		}

		status, _ = doJSON(t, ts, http.MethodGet, "/api/expenses/"+expenseID, token, nil)
		if status != http.StatusOK {
			t.Errorf("get returned %d", status)
		}
	})

	t.Run("update", func(t *testing.T) {
		status, body := doJSON(t, ts, http.MethodPut, "/api/expenses/"+expenseID, token, map[string]any{
			"amount": "50", "category": "food", "description": "groceries and wine",
		})
		if status != http.StatusOK {
			t.Fatalf("update returned %d: %v", status, body)
		}
	})

	t.Run("foreign expense reads as not found", func(t *testing.T) {
		otherToken, _ := registerUser(t, ts, "dave@example.com")
		status, _ := doJSON(t, ts, http.MethodGet, "/api/expenses/"+expenseID, otherToken, nil)
		if status != http.StatusNotFound {
			t.Errorf("foreign get returned %d, want 404", status)
		}
	})

	t.Run("delete", func(t *testing.T) {
		status, _ := doJSON(t, ts, http.MethodDelete, "/api/expenses/"+expenseID, token, nil)
		if status != http.StatusOK {
			t.Fatalf("delete returned %d", status)
		}
		status, _ = doJSON(t, ts, http.MethodGet, "/api/expenses/"+expenseID, token, nil)
		if status != http.StatusNotFound {
			t.Errorf("get after delete returned %d, want 404", status)
		}
	})
}

func TestBudgetEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts, "erin@example.com")

	t.Run("non-positive limit rejected", func(t *testing.T) {
		status, _ := doJSON(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
			"category": "food", "limitAmount": "0",
		})
		if status != http.StatusBadRequest {
			t.Errorf("zero limit returned %d, want 400", status)
		}
	})

	t.Run("create and alert state after spending", func(t *testing.T) {
		status, body := doJSON(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
			"category": "food", "limitAmount": "100",
		})
		if status != http.StatusCreated {
			t.Fatalf("create returned %d: %v", status, body)
		}
		budgetID := body["id"].(string)

		status, body = doJSON(t, ts, http.MethodPost, "/api/expenses", token, map[string]any{
			"amount": "120", "category": "food",
		})
		if status != http.StatusCreated {
			t.Fatalf("expense returned %d: %v", status, body)
		}
		if body["warnings"] != nil {
			t.Errorf("unexpected warnings: %v", body["warnings"])
		}

		status, body = doJSON(t, ts, http.MethodGet, "/api/budgets/"+budgetID, token, nil)
		if status != http.StatusOK {
			t.Fatalf("get returned %d", status)
		}
		if body["alertState"] != "exceeded" {
			t.Errorf("alertState = %v, want exceeded", body["alertState"])
		}
	})
}

func TestGroupAndDebtEndpoints(t *testing.T) {
	ts := newTestServer(t)
	payerToken, payerID := registerUser(t, ts, "frank@example.com")
	memberToken, memberID := registerUser(t, ts, "grace@example.com")

	status, body := doJSON(t, ts, http.MethodPost, "/api/groups", payerToken, map[string]any{
		"name": "apartment", "members": []string{memberID},
	})
	if status != http.StatusCreated {
		t.Fatalf("create group returned %d: %v", status, body)
	}
	groupID := body["id"].(string)
	if n := len(body["members"].([]any)); n != 2 {
		t.Fatalf("group has %d members, want 2 (creator auto-added)", n)
	}

	status, body = doJSON(t, ts, http.MethodPost, "/api/expenses", payerToken, map[string]any{
		"amount": "20", "category": "rent", "groupId": groupID,
	})
	if status != http.StatusCreated {
		t.Fatalf("group expense returned %d: %v", status, body)
	}

	t.Run("debts visible to both sides", func(t *testing.T) {
		for _, token := range []string{payerToken, memberToken} {
			status, body := doJSON(t, ts, http.MethodGet, "/api/debts", token, nil)
			if status != http.StatusOK {
				t.Fatalf("list debts returned %d", status)
			}
			debts := body["debts"].([]any)
			if len(debts) != 1 {
				t.Fatalf("listed %d debts, want 1", len(debts))
			}
			debt := debts[0].(map[string]any)
			if debt["debtorId"] != memberID || debt["creditorId"] != payerID {
				t.Errorf("debt direction = %v->%v, want member->payer", debt["debtorId"], debt["creditorId"])
			}
			if debt["amount"] != "10" {
				t.Errorf("debt amount = %v, want 10", debt["amount"])
			}
		}
	})

	t.Run("overpayment conflicts", func(t *testing.T) {
		status, _ := doJSON(t, ts, http.MethodPost, "/api/debts/settle", memberToken, map[string]any{
			"counterpartyId": payerID, "amount": "10.01",
		})
		if status != http.StatusConflict {
			t.Errorf("overpayment returned %d, want 409", status)
		}
	})

	t.Run("settle in full", func(t *testing.T) {
		status, body := doJSON(t, ts, http.MethodPost, "/api/debts/settle", memberToken, map[string]any{
			"counterpartyId": payerID, "amount": "10", "note": "venmo",
		})
		if status != http.StatusOK {
			t.Fatalf("settle returned %d: %v", status, body)
		}
		if body["status"] != "settled" {
			t.Errorf("status = %v, want settled", body["status"])
		}

		status, body = doJSON(t, ts, http.MethodGet, "/api/settlements", memberToken, nil)
		if status != http.StatusOK {
			t.Fatalf("list settlements returned %d", status)
		}
		if n := len(body["settlements"].([]any)); n != 1 {
			t.Errorf("listed %d settlements, want 1", n)
		}
	})

	t.Run("settling in the wrong direction rejected", func(t *testing.T) {
		status, _ := doJSON(t, ts, http.MethodPost, "/api/debts/settle", payerToken, map[string]any{
			"counterpartyId": memberID, "amount": "1",
		})
		if status != http.StatusBadRequest {
			t.Errorf("wrong direction returned %d, want 400", status)
		}
	})
}

func TestWebSocketNotifications(t *testing.T) {
	ts := newTestServer(t)
	token, _ := registerUser(t, ts, "heidi@example.com")

	status, _ := doJSON(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
		"category": "food", "limitAmount": "100",
	})
	if status != http.StatusCreated {
		t.Fatalf("create budget returned %d", status)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket dial failed: %v (resp %v)", err, resp)
	}
	defer conn.Close()

	status, _ = doJSON(t, ts, http.MethodPost, "/api/expenses", token, map[string]any{
		"amount": "120", "category": "food",
	})
	if status != http.StatusCreated {
		t.Fatalf("expense returned %d", status)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var env struct {
		Type      string          `json:"type"`
		UserID    string          `json:"userId"`
		Timestamp int64           `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("Failed to decode envelope %s: %v", payload, err)
	}
	if env.Type != "budget_alert" {
		t.Errorf("type = %s, want budget_alert", env.Type)
	}
	if env.Timestamp == 0 {
		t.Error("expected a timestamp")
	}

	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if data["outcome"] != "exceeded_entered" {
		t.Errorf("outcome = %v, want exceeded_entered", data["outcome"])
	}
	if data["consumed"] != "120" {
		t.Errorf("consumed = %v, want 120", data["consumed"])
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz returned %d, want 200", resp.StatusCode)
	}
}
