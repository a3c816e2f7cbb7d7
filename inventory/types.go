/*
Package inventory provides the inventory journal and stock store engine.

PURPOSE:
  Tracks raw-material stock through an append-only journal of IN/OUT
  movements. The journal is the source of truth; the per-item currentStock
  column is a materialized projection that must always be recomputable by
  resumming the journal.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: Journal entries are never updated or deleted.
  2. CONSERVATION: currentStock == signed sum of all journal entries
     for the item, at every commit boundary.
  3. NO DIRECT MUTATION: currentStock changes only through ApplyTransaction
     (or a production batch going through the same primitives).
  4. NEVER BLOCK PRODUCTION: an OUT that drives stock negative still
     commits; the caller receives a LowStockWarning instead of an error.

CORRECTIONS:
  Mistakes are fixed with compensating counter-entries (Compensate), never
  by editing history.

SEE ALSO:
  - engine.go: ApplyTransaction / Compensate / Reconcile
  - store/sqlite: persistence, including the commutative stock adjustment
*/
package inventory

import (
	"fmt"
	"time"

	"github.com/nexus-erp/factory-ledger/ledger"
)

// =============================================================================
// ITEM - Stock record (projection over the journal)
// =============================================================================

type Item struct {
	ID            ledger.ItemID
	Name          string
	Category      string
	Unit          string // e.g. "yards", "kg", "pcs"
	CurrentStock  ledger.Quantity
	MinStockLevel ledger.Quantity
	CostPerUnit   ledger.Money // last purchase price
	LastUpdated   time.Time
	CreatedAt     time.Time
}

// BelowMinimum reports whether the cached balance is under the reorder
// threshold.
func (i Item) BelowMinimum() bool {
	return i.CurrentStock.LessThan(i.MinStockLevel)
}

// =============================================================================
// TRANSACTION - Immutable journal entry
// =============================================================================

type TxType string

const (
	TxIn  TxType = "IN"  // purchase / stock intake
	TxOut TxType = "OUT" // consumption / usage
)

// Transaction is one journal entry. Immutable once written; corrections are
// new compensating entries.
type Transaction struct {
	ID       ledger.TxID
	ItemID   ledger.ItemID
	ItemName string // denormalized snapshot for display and audit
	Type     TxType
	Quantity ledger.Quantity // always > 0; sign comes from Type

	// CostPerUnit is set on IN entries only and becomes the item's new
	// last-cost.
	CostPerUnit *ledger.Money

	Reason      string
	ReferenceID string // e.g. the production log id, or the compensated tx id
	Date        ledger.Date
	PerformedBy string

	IdempotencyKey string
	CreatedAt      time.Time
}

// SignedQuantity returns the stock delta this entry applies: positive for
// IN, negative for OUT.
func (t Transaction) SignedQuantity() ledger.Quantity {
	if t.Type == TxOut {
		return t.Quantity.Neg()
	}
	return t.Quantity
}

// =============================================================================
// LOW STOCK WARNING - Advisory data, never an error
// =============================================================================

// LowStockWarning accompanies a successful OUT whose projected balance went
// negative or under the item's reorder threshold.
type LowStockWarning struct {
	ItemID    ledger.ItemID
	ItemName  string
	Requested ledger.Quantity
	Available ledger.Quantity
	Projected ledger.Quantity
	BelowZero bool
}

func (w LowStockWarning) String() string {
	if w.BelowZero {
		return fmt.Sprintf("%s: need %s, only %s available",
			w.ItemName, w.Requested.StringFixed(2), w.Available.StringFixed(2))
	}
	return fmt.Sprintf("%s: stock %s below minimum after deduction",
		w.ItemName, w.Projected.StringFixed(2))
}

// CheckStock builds the warning for deducting requested from the item, or
// nil if the projected balance stays healthy.
func CheckStock(item *Item, requested ledger.Quantity) *LowStockWarning {
	projected := item.CurrentStock.Sub(requested)
	if !projected.IsNegative() && !projected.LessThan(item.MinStockLevel) {
		return nil
	}
	return &LowStockWarning{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Requested: requested,
		Available: item.CurrentStock,
		Projected: projected,
		BelowZero: projected.IsNegative(),
	}
}
