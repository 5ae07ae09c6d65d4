package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/OsatohanmwenT/expense-tracker-api/internal/ledger"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/models"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/notify"
	"github.com/OsatohanmwenT/expense-tracker-api/internal/storage"
)

// Settle records a payment from the settlement's debtor to its creditor,
// reducing the pending debt between them. The payment must match the
// direction of the outstanding debt and may not exceed it.
func (e *Engine) Settle(ctx context.Context, settlement *models.Settlement) (*models.DebtEntry, error) {
	unlock := e.locks.Lock(pairKey(settlement.DebtorID, settlement.CreditorID))
	defer unlock()

	entry, err := e.store.DebtBetween(ctx, settlement.DebtorID, settlement.CreditorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: no debt between %s and %s", ledger.ErrValidation, settlement.DebtorID, settlement.CreditorID)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if entry.DebtorID != settlement.DebtorID {
		return nil, fmt.Errorf("%w: %s does not owe %s", ledger.ErrValidation, settlement.DebtorID, settlement.CreditorID)
	}

	if err := ledger.Settle(entry, settlement.Amount); err != nil {
		return nil, err
	}

	if err := e.store.UpsertDebtEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := e.store.CreateSettlement(ctx, settlement); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	slog.Info("Settlement recorded",
		"settlement_id", settlement.ID,
		"debtor", settlement.DebtorID,
		"creditor", settlement.CreditorID,
		"amount", settlement.Amount,
		"settled", entry.Status == models.DebtSettled,
	)

	for _, pair := range [][2]string{
		{settlement.DebtorID, settlement.CreditorID},
		{settlement.CreditorID, settlement.DebtorID},
	} {
		e.dispatcher.Dispatch(notify.SettlementConfirmed{
			UserID:         pair[0],
			CounterpartyID: pair[1],
			Amount:         settlement.Amount,
			Outstanding:    entry.Amount,
			Settled:        entry.Status == models.DebtSettled,
		})
	}
	return entry, nil
}
