package notify

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// fakeChannel records sent payloads and optionally fails every send.
type fakeChannel struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func (c *fakeChannel) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection gone")
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *fakeChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	ch1 := &fakeChannel{}
	ch2 := &fakeChannel{}

	if got := r.ChannelsFor("u1"); got != nil {
		t.Errorf("expected nil channels for unknown user, got %v", got)
	}

	r.Register("u1", ch1)
	r.Register("u1", ch2)
	if got := len(r.ChannelsFor("u1")); got != 2 {
		t.Errorf("expected 2 channels, got %d", got)
	}

	r.Unregister("u1", ch1)
	if got := len(r.ChannelsFor("u1")); got != 1 {
		t.Errorf("expected 1 channel after unregister, got %d", got)
	}

	// Unregistering twice is harmless.
	r.Unregister("u1", ch1)
	r.Unregister("u1", ch2)
	if got := r.ChannelsFor("u1"); got != nil {
		t.Errorf("expected no channels, got %v", got)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := &fakeChannel{}
			r.Register("u1", ch)
			r.ChannelsFor("u1")
			r.Unregister("u1", ch)
		}()
	}
	wg.Wait()
	if got := r.ChannelsFor("u1"); got != nil {
		t.Errorf("expected empty registry after churn, got %d channels", len(got))
	}
}

func TestDispatch_Broadcast(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r)
	ch1 := &fakeChannel{}
	ch2 := &fakeChannel{}
	r.Register("u1", ch1)
	r.Register("u1", ch2)

	d.Dispatch(BudgetAlert{
		UserID:   "u1",
		BudgetID: "b1",
		Category: "food",
		Outcome:  "warning_entered",
		State:    "warning",
		Limit:    decimal.NewFromInt(100),
		Consumed: decimal.NewFromInt(85),
		Ratio:    decimal.NewFromFloat(0.85),
	})

	if ch1.count() != 1 || ch2.count() != 1 {
		t.Fatalf("expected both channels to receive the event, got %d and %d", ch1.count(), ch2.count())
	}

	var env struct {
		Type      string          `json:"type"`
		UserID    string          `json:"userId"`
		Timestamp int64           `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(ch1.payloads[0], &env); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if env.Type != "budget_alert" {
		t.Errorf("type = %s, want budget_alert", env.Type)
	}
	if env.UserID != "u1" {
		t.Errorf("userId = %s, want u1", env.UserID)
	}
	if env.Timestamp == 0 {
		t.Error("timestamp must be set")
	}

	var data map[string]any
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("data is not valid JSON: %v", err)
	}
	if data["budgetId"] != "b1" {
		t.Errorf("data.budgetId = %v, want b1", data["budgetId"])
	}
	if _, leaked := data["UserID"]; leaked {
		t.Error("recipient id must not leak into data")
	}
}

func TestDispatch_NoChannels(t *testing.T) {
	d := NewDispatcher(NewRegistry())
	// Must complete without error and without panicking.
	d.Dispatch(DebtUpdate{
		UserID:         "nobody",
		CounterpartyID: "u1",
		Delta:          decimal.NewFromInt(10),
		NewBalance:     decimal.NewFromInt(-10),
	})
}

func TestDispatch_FailingChannelDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry()
	d := NewDispatcher(r)
	broken := &fakeChannel{fail: true}
	healthy := &fakeChannel{}
	r.Register("u1", broken)
	r.Register("u1", healthy)

	d.Dispatch(SettlementConfirmed{
		UserID:         "u1",
		CounterpartyID: "u2",
		Amount:         decimal.NewFromInt(5),
		Outstanding:    decimal.Zero,
		Settled:        true,
	})

	if healthy.count() != 1 {
		t.Errorf("healthy channel should still receive the event, got %d", healthy.count())
	}
}
