/*
engine.go - Inventory journal operations

PURPOSE:
  ApplyTransaction records a manual stock movement (purchase intake,
  wastage, manual correction) and adjusts the cached balance in the same
  database transaction. Compensate writes the counter-entry for a past
  mistake. Reconcile resums the journal per item and reports drift against
  the cached projection.

EXAMPLE FLOW:
  1. Purchase 100 yards at 2000/yard:  IN  +100, costPerUnit -> 2000
  2. Production consumes 15 yards:     OUT -15 (written by production engine)
  3. 15 was wrong, should have been 5: Compensate -> IN +15 ref(2), then
     a fresh OUT -5. History preserved, net effect corrected.
*/
package inventory

import (
	"context"
	"time"

	"github.com/nexus-erp/factory-ledger/ledger"
)

type Engine struct {
	store TxStore
	now   func() time.Time
}

func NewEngine(store TxStore) *Engine {
	return &Engine{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// APPLY TRANSACTION
// =============================================================================

// ApplyRequest describes one manual stock movement.
type ApplyRequest struct {
	ItemID      ledger.ItemID
	Type        TxType
	Quantity    ledger.Quantity
	Reason      string
	ReferenceID string
	CostPerUnit *ledger.Money // IN only; becomes the item's new last-cost
	Date        ledger.Date
	PerformedBy string

	// IdempotencyKey guards against double-submission. Optional.
	IdempotencyKey string
}

// ApplyResult is returned on success. Warning is advisory: the movement
// committed even when stock went negative.
type ApplyResult struct {
	Transaction Transaction
	NewBalance  ledger.Quantity
	Warning     *LowStockWarning
}

// ApplyTransaction validates the movement, then commits the journal entry
// and the balance adjustment as one atomic unit.
func (e *Engine) ApplyTransaction(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	if err := validateApply(req); err != nil {
		return nil, err
	}

	item, err := e.store.GetItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ledger.ErrItemNotFound
	}

	date := req.Date
	if date.IsZero() {
		date = ledger.Today()
	}

	entry := Transaction{
		ID:             ledger.TxID(ledger.NewID()),
		ItemID:         item.ID,
		ItemName:       item.Name,
		Type:           req.Type,
		Quantity:       req.Quantity,
		CostPerUnit:    req.CostPerUnit,
		Reason:         req.Reason,
		ReferenceID:    req.ReferenceID,
		Date:           date,
		PerformedBy:    req.PerformedBy,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      e.now(),
	}

	var warning *LowStockWarning
	if req.Type == TxOut {
		warning = CheckStock(item, req.Quantity)
	}

	var newBalance ledger.Quantity
	err = e.store.WithTx(ctx, func(s Store) error {
		if err := s.AppendEntry(ctx, entry); err != nil {
			return err
		}
		if err := s.AdjustStock(ctx, item.ID, entry.SignedQuantity()); err != nil {
			return err
		}
		if req.Type == TxIn && req.CostPerUnit != nil {
			if err := s.SetCostPerUnit(ctx, item.ID, *req.CostPerUnit); err != nil {
				return err
			}
		}
		// Balance is read back inside the transaction so concurrent
		// movements never report each other's stale pre-write stock.
		updated, err := s.GetItem(ctx, item.ID)
		if err != nil {
			return err
		}
		newBalance = updated.CurrentStock
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ApplyResult{
		Transaction: entry,
		NewBalance:  newBalance,
		Warning:     warning,
	}, nil
}

func validateApply(req ApplyRequest) error {
	if req.Type != TxIn && req.Type != TxOut {
		return ledger.Invalid("type", "must be IN or OUT")
	}
	if !req.Quantity.IsPositive() {
		return ledger.Invalid("quantity", "must be greater than zero")
	}
	if req.Reason == "" {
		return ledger.Invalid("reason", "required")
	}
	if req.CostPerUnit != nil {
		if req.Type != TxIn {
			return ledger.Invalid("costPerUnit", "only valid on IN transactions")
		}
		if !req.CostPerUnit.IsPositive() {
			return ledger.Invalid("costPerUnit", "must be greater than zero")
		}
	}
	return nil
}

// =============================================================================
// COMPENSATE - Manual counter-entry for an existing journal entry
// =============================================================================

// Compensate writes the opposite-direction entry for a past transaction,
// referencing it. A given entry can be compensated at most once; further
// corrections start from a fresh manual transaction.
func (e *Engine) Compensate(ctx context.Context, txID ledger.TxID, performedBy, reason string) (*ApplyResult, error) {
	original, err := e.store.GetEntry(ctx, txID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ledger.ErrTransactionNotFound
	}

	counterType := TxIn
	if original.Type == TxIn {
		counterType = TxOut
	}
	if reason == "" {
		reason = "Compensation for " + string(txID)
	}

	entry := Transaction{
		ID:          ledger.TxID(ledger.NewID()),
		ItemID:      original.ItemID,
		ItemName:    original.ItemName,
		Type:        counterType,
		Quantity:    original.Quantity,
		Reason:      reason,
		ReferenceID: string(txID),
		Date:        ledger.Today(),
		PerformedBy: performedBy,
		CreatedAt:   e.now(),
	}

	var (
		newBalance ledger.Quantity
		warning    *LowStockWarning
	)
	// The at-most-once check and the counter-entry commit together, so two
	// racing compensations cannot both pass the check.
	err = e.store.WithTx(ctx, func(s Store) error {
		done, err := s.HasCompensation(ctx, txID)
		if err != nil {
			return err
		}
		if done {
			return ledger.ErrAlreadyCompensated
		}

		item, err := s.GetItem(ctx, original.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ledger.ErrItemNotFound
		}
		if counterType == TxOut {
			warning = CheckStock(item, entry.Quantity)
		}

		if err := s.AppendEntry(ctx, entry); err != nil {
			return err
		}
		if err := s.AdjustStock(ctx, item.ID, entry.SignedQuantity()); err != nil {
			return err
		}
		updated, err := s.GetItem(ctx, item.ID)
		if err != nil {
			return err
		}
		newBalance = updated.CurrentStock
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ApplyResult{
		Transaction: entry,
		NewBalance:  newBalance,
		Warning:     warning,
	}, nil
}

// =============================================================================
// RECONCILE - Journal vs projection audit
// =============================================================================

// Drift reports one item whose cached balance disagrees with the journal.
type Drift struct {
	ItemID        ledger.ItemID
	ItemName      string
	CachedBalance ledger.Quantity
	JournalSum    ledger.Quantity
	Delta         ledger.Quantity // cached - journal
}

// Reconcile resums the journal for every item and returns the items whose
// cached balance has drifted. With repair=true the cached balance is reset
// to the journal sum (recovery path); otherwise nothing is mutated.
func (e *Engine) Reconcile(ctx context.Context, repair bool) ([]Drift, error) {
	items, err := e.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for i := range items {
		id := items[i].ID
		// Each item's check-and-repair runs in one transaction. A movement
		// landing between the projection read and the journal resum would
		// otherwise look like drift, and repairing it would corrupt a
		// correct balance.
		err := e.store.WithTx(ctx, func(s Store) error {
			item, err := s.GetItem(ctx, id)
			if err != nil {
				return err
			}
			if item == nil {
				return nil
			}
			sum, err := s.SumEntries(ctx, item.ID)
			if err != nil {
				return err
			}
			if item.CurrentStock.Equal(sum) {
				return nil
			}
			drifts = append(drifts, Drift{
				ItemID:        item.ID,
				ItemName:      item.Name,
				CachedBalance: item.CurrentStock,
				JournalSum:    sum,
				Delta:         item.CurrentStock.Sub(sum),
			})
			if repair {
				return s.AdjustStock(ctx, item.ID, sum.Sub(item.CurrentStock))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return drifts, nil
}
