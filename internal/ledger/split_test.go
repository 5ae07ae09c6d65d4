package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEqualShares(t *testing.T) {
	tests := []struct {
		name         string
		total        string
		participants []string
		want         map[string]string
		wantErr      error
	}{
		{
			name:         "even split",
			total:        "30",
			participants: []string{"u1", "u2", "u3"},
			want:         map[string]string{"u1": "10", "u2": "10", "u3": "10"},
		},
		{
			name:         "remainder cents go to lowest ids first",
			total:        "10.01",
			participants: []string{"u3", "u1", "u2"}, // order must not matter
			want:         map[string]string{"u1": "3.34", "u2": "3.34", "u3": "3.33"},
		},
		{
			name:         "two remainder cents",
			total:        "1.00",
			participants: []string{"a", "b", "c", "d", "e", "f", "g"},
			want: map[string]string{
				"a": "0.15", "b": "0.15", "c": "0.14", "d": "0.14",
				"e": "0.14", "f": "0.14", "g": "0.14",
			},
		},
		{
			name:         "single participant",
			total:        "42.42",
			participants: []string{"u1"},
			want:         map[string]string{"u1": "42.42"},
		},
		{
			name:         "no participants",
			total:        "10",
			participants: nil,
			wantErr:      ErrValidation,
		},
		{
			name:         "zero total",
			total:        "0",
			participants: []string{"u1"},
			wantErr:      ErrValidation,
		},
		{
			name:         "sub-cent total",
			total:        "10.001",
			participants: []string{"u1", "u2"},
			wantErr:      ErrValidation,
		},
		{
			name:         "duplicate participant",
			total:        "10",
			participants: []string{"u1", "u1"},
			wantErr:      ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := EqualShares(dec(tt.total), tt.participants)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("EqualShares failed: %v", err)
			}

			sum := decimal.Zero
			for id, wantStr := range tt.want {
				got, ok := shares[id]
				if !ok {
					t.Fatalf("missing share for %s", id)
				}
				if !got.Equal(dec(wantStr)) {
					t.Errorf("share for %s = %s, want %s", id, got, wantStr)
				}
			}
			for _, share := range shares {
				sum = sum.Add(share)
			}
			if !sum.Equal(dec(tt.total)) {
				t.Errorf("shares sum to %s, want %s", sum, tt.total)
			}
		})
	}
}

func TestExactShares(t *testing.T) {
	t.Run("valid shares pass through", func(t *testing.T) {
		shares, err := ExactShares(dec("30"), map[string]decimal.Decimal{
			"u1": dec("20"),
			"u2": dec("10"),
		})
		if err != nil {
			t.Fatalf("ExactShares failed: %v", err)
		}
		if !shares["u1"].Equal(dec("20")) || !shares["u2"].Equal(dec("10")) {
			t.Errorf("unexpected shares: %v", shares)
		}
	})

	t.Run("sum mismatch rejected", func(t *testing.T) {
		_, err := ExactShares(dec("30"), map[string]decimal.Decimal{
			"u1": dec("20"),
			"u2": dec("9.99"),
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("negative share rejected", func(t *testing.T) {
		_, err := ExactShares(dec("10"), map[string]decimal.Decimal{
			"u1": dec("20"),
			"u2": dec("-10"),
		})
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("empty shares rejected", func(t *testing.T) {
		_, err := ExactShares(dec("10"), nil)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}
