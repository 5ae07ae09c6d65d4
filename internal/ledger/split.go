// Package ledger computes group expense splits and pairwise debt balances.
//
// All arithmetic runs on decimal cents. Shares of an expense always sum
// exactly to its total, and for any pair of users at most one direction
// of debt is ever nonzero.
package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrValidation indicates malformed split input: explicit shares that
	// do not sum to the total, sub-cent amounts, or an empty participant
	// list. Nothing is written when it is returned.
	ErrValidation = errors.New("invalid split")

	// ErrOverpayment indicates a settlement larger than the outstanding
	// balance. The entry is left unchanged.
	ErrOverpayment = errors.New("settlement exceeds outstanding balance")
)

var centFactor = decimal.New(1, 2) // 100

// EqualShares divides total equally among the participants.
//
// The total is split at cent precision; any remainder cents are handed
// out one at a time to participants in ascending user-id order, so the
// shares always sum exactly to the total and the distribution is
// deterministic. E.g. 10.01 across [u1, u2, u3] gives 3.34, 3.34, 3.33.
func EqualShares(total decimal.Decimal, participantIDs []string) (map[string]decimal.Decimal, error) {
	if len(participantIDs) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrValidation)
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: total must be positive, got %s", ErrValidation, total)
	}
	cents, err := toCents(total)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(participantIDs))
	copy(ids, participantIDs)
	sort.Strings(ids)

	n := int64(len(ids))
	base := cents / n
	remainder := cents % n

	shares := make(map[string]decimal.Decimal, len(ids))
	for i, id := range ids {
		if _, dup := shares[id]; dup {
			return nil, fmt.Errorf("%w: duplicate participant %s", ErrValidation, id)
		}
		c := base
		if int64(i) < remainder {
			c++
		}
		shares[id] = fromCents(c)
	}
	return shares, nil
}

// ExactShares validates explicit per-member shares against the total.
// The shares must sum exactly to the total and none may be negative.
func ExactShares(total decimal.Decimal, shares map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: no participants", ErrValidation)
	}
	sum := decimal.Zero
	out := make(map[string]decimal.Decimal, len(shares))
	for id, share := range shares {
		if share.IsNegative() {
			return nil, fmt.Errorf("%w: negative share %s for %s", ErrValidation, share, id)
		}
		if _, err := toCents(share); err != nil {
			return nil, err
		}
		sum = sum.Add(share)
		out[id] = share
	}
	if !sum.Equal(total) {
		return nil, fmt.Errorf("%w: shares sum to %s, expense total is %s", ErrValidation, sum, total)
	}
	return out, nil
}

func toCents(d decimal.Decimal) (int64, error) {
	c := d.Mul(centFactor)
	if !c.IsInteger() {
		return 0, fmt.Errorf("%w: %s has sub-cent precision", ErrValidation, d)
	}
	return c.IntPart(), nil
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}
