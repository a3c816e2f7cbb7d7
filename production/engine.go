/*
engine.go - Production log engine

PURPOSE:
  AddLog is the heart of the ledger: it validates, snapshots the rate,
  resolves the BOM, and commits the log row, one OUT journal entry per
  material, and the matching stock decrements as a SINGLE atomic batch.
  If anything in the batch fails, nothing is visible: no log, no journal
  entry, no stock change.

DEDUCTION POLICY:
  Materials are consumed for the GROSS quantity (defects included) —
  defective output used material too. Pay is computed on NET quantity.

CORRECTION POLICY:
  Editing a log recomputes pay at the snapshotted price but never
  re-touches inventory. Deleting a log is a hard delete that does not
  reverse consumption. Stock corrections go through the inventory engine's
  compensating entries.
*/
package production

import (
	"context"
	"fmt"
	"time"

	"github.com/nexus-erp/factory-ledger/inventory"
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
// ADD LOG
// =============================================================================

type AddLogInput struct {
	WorkerID  ledger.WorkerID
	RateID    ledger.RateID
	Quantity  ledger.Quantity
	DefectQty ledger.Quantity
	Date      ledger.Date
	Shift     Shift
	CreatedBy string

	// IdempotencyKey guards against double-submission of the whole batch.
	// Optional.
	IdempotencyKey string
}

type AddLogResult struct {
	Log               WorkerLog
	MaterialsDeducted int
	Warnings          []inventory.LowStockWarning
}

// AddLog records one unit of work. See the file header for the atomicity
// and deduction policies.
func (e *Engine) AddLog(ctx context.Context, in AddLogInput) (*AddLogResult, error) {
	if err := validateAddLog(in); err != nil {
		return nil, err
	}

	worker, err := e.store.GetWorker(ctx, in.WorkerID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, ledger.ErrWorkerNotFound
	}

	rate, err := e.store.GetRate(ctx, in.RateID)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, ledger.ErrRateNotFound
	}
	if rate.Status == RateArchived {
		return nil, ledger.Invalid("rateId", "rate is archived")
	}
	if !rate.PricePerUnit.IsPositive() {
		return nil, ledger.Invalid("rateId", "rate has no positive price per unit")
	}

	date := in.Date
	if date.IsZero() {
		date = ledger.Today()
	}
	shift := in.Shift
	if shift == "" {
		shift = ShiftDay
	}

	netQty := in.Quantity.Sub(in.DefectQty)
	log := WorkerLog{
		ID:           ledger.LogID(ledger.NewID()),
		WorkerID:     worker.ID,
		WorkerName:   worker.Name,
		RateID:       rate.ID,
		TaskName:     rate.TaskName,
		PricePerUnit: rate.PricePerUnit,
		Quantity:     in.Quantity,
		DefectQty:    in.DefectQty,
		TotalPay:     rate.PricePerUnit.MulQty(netQty),
		Date:         date,
		Shift:        shift,
		Status:       StatusPending,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    e.now(),
	}

	// Resolve the BOM on gross quantity and precompute warnings from the
	// cached balances. Warnings are advisory; the batch commits regardless.
	demands := ResolveBOM(rate, in.Quantity)
	entries := make([]inventory.Transaction, 0, len(demands))
	var warnings []inventory.LowStockWarning

	for i, d := range demands {
		item, err := e.store.GetItem(ctx, d.ItemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, fmt.Errorf("bom material %s: %w", d.ItemID, ledger.ErrItemNotFound)
		}
		if w := inventory.CheckStock(item, d.Required); w != nil {
			warnings = append(warnings, *w)
		}

		key := ""
		if in.IdempotencyKey != "" {
			key = fmt.Sprintf("%s-material-%d", in.IdempotencyKey, i)
		}
		entries = append(entries, inventory.Transaction{
			ID:             ledger.TxID(ledger.NewID()),
			ItemID:         item.ID,
			ItemName:       item.Name,
			Type:           inventory.TxOut,
			Quantity:       d.Required,
			Reason:         fmt.Sprintf("Production: %s (%s %s)", rate.TaskName, in.Quantity, rate.Unit),
			ReferenceID:    string(log.ID),
			Date:           date,
			PerformedBy:    in.CreatedBy,
			IdempotencyKey: key,
			CreatedAt:      log.CreatedAt,
		})
	}

	// One all-or-nothing batch: log row, journal entries, stock decrements.
	err = e.store.WithTx(ctx, func(s Store) error {
		if err := s.InsertLog(ctx, log); err != nil {
			return err
		}
		for _, entry := range entries {
			if err := s.AppendEntry(ctx, entry); err != nil {
				return err
			}
			if err := s.AdjustStock(ctx, entry.ItemID, entry.SignedQuantity()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AddLogResult{
		Log:               log,
		MaterialsDeducted: len(entries),
		Warnings:          warnings,
	}, nil
}

func validateAddLog(in AddLogInput) error {
	if in.WorkerID == "" {
		return ledger.Invalid("workerId", "required")
	}
	if in.RateID == "" {
		return ledger.Invalid("rateId", "required")
	}
	if !in.Quantity.IsPositive() {
		return ledger.Invalid("quantity", "must be greater than zero")
	}
	if in.DefectQty.IsNegative() {
		return ledger.Invalid("defectQty", "cannot be negative")
	}
	if in.DefectQty.GreaterThan(in.Quantity) {
		return ledger.Invalid("defectQty", "cannot exceed quantity")
	}
	if in.Shift != "" && in.Shift != ShiftDay && in.Shift != ShiftNight {
		return ledger.Invalid("shift", "must be Day or Night")
	}
	return nil
}

// =============================================================================
// UPDATE / APPROVE / DELETE
// =============================================================================

// UpdateLog rewrites quantity and defect and recomputes pay at the
// SNAPSHOTTED price. Inventory is deliberately untouched: corrections to
// already-consumed material require compensating journal entries.
func (e *Engine) UpdateLog(ctx context.Context, id ledger.LogID, quantity, defect ledger.Quantity) (*WorkerLog, error) {
	if !quantity.IsPositive() {
		return nil, ledger.Invalid("quantity", "must be greater than zero")
	}
	if defect.IsNegative() || defect.GreaterThan(quantity) {
		return nil, ledger.Invalid("defectQty", "must be between zero and quantity")
	}

	log, err := e.store.GetLog(ctx, id)
	if err != nil {
		return nil, err
	}
	if log == nil {
		return nil, ledger.ErrLogNotFound
	}
	if log.Locked() {
		return nil, ledger.ErrLogLocked
	}

	totalPay := log.PricePerUnit.MulQty(quantity.Sub(defect))
	if err := e.store.UpdateLogQuantities(ctx, id, quantity, defect, totalPay); err != nil {
		return nil, err
	}

	log.Quantity = quantity
	log.DefectQty = defect
	log.TotalPay = totalPay
	return log, nil
}

// Approve transitions a log Pending -> Approved. Forward-only.
func (e *Engine) Approve(ctx context.Context, id ledger.LogID) error {
	log, err := e.store.GetLog(ctx, id)
	if err != nil {
		return err
	}
	if log == nil {
		return ledger.ErrLogNotFound
	}
	if log.Locked() {
		return ledger.ErrLogLocked
	}
	return e.store.ApproveLog(ctx, id)
}

// DeleteLog hard-deletes an unsettled log. The material it consumed stays
// consumed; the journal keeps the audit trail.
func (e *Engine) DeleteLog(ctx context.Context, id ledger.LogID) error {
	log, err := e.store.GetLog(ctx, id)
	if err != nil {
		return err
	}
	if log == nil {
		return ledger.ErrLogNotFound
	}
	if log.Locked() {
		return ledger.ErrLogLocked
	}
	return e.store.DeleteLog(ctx, id)
}

// LogsByDate returns the day's logs, newest first.
func (e *Engine) LogsByDate(ctx context.Context, date ledger.Date) ([]WorkerLog, error) {
	return e.store.LogsByDate(ctx, date)
}
