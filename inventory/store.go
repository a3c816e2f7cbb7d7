/*
store.go - Persistence interface for the inventory journal and stock store

PURPOSE:
  Defines what the engine needs from the database. The concrete
  implementation lives in store/sqlite and also backs the production and
  payroll engines, so a production batch can mix log and journal writes in
  one transaction.

APPEND-ONLY CONTRACT:
  AppendEntry is the only journal write; there is no update or delete.
  AdjustStock is the only stock mutation and must be commutative
  (increment/decrement in place, not read-compute-write), so concurrent
  deductions against the same item compose in any order.
*/
package inventory

import (
	"context"

	"github.com/nexus-erp/factory-ledger/ledger"
)

// Store is the persistence surface for the inventory engine.
// Read methods return (nil, nil) when the record does not exist.
type Store interface {
	GetItem(ctx context.Context, id ledger.ItemID) (*Item, error)
	ListItems(ctx context.Context) ([]Item, error)

	// SaveItem creates or updates item metadata (name, category, unit,
	// minStockLevel). It never writes CurrentStock: stock is journal-only.
	SaveItem(ctx context.Context, item Item) error

	// AppendEntry writes a journal entry. Fails with
	// ledger.ErrDuplicateIdempotencyKey if the key was seen before.
	AppendEntry(ctx context.Context, tx Transaction) error

	// AdjustStock applies a signed delta to the cached balance as a single
	// commutative in-place update.
	AdjustStock(ctx context.Context, id ledger.ItemID, delta ledger.Quantity) error

	// SetCostPerUnit records the latest purchase price (last-cost policy).
	SetCostPerUnit(ctx context.Context, id ledger.ItemID, cost ledger.Money) error

	GetEntry(ctx context.Context, id ledger.TxID) (*Transaction, error)
	EntriesByItem(ctx context.Context, id ledger.ItemID) ([]Transaction, error)
	ListEntries(ctx context.Context, limit int) ([]Transaction, error)

	// SumEntries resums the journal for one item. Audit/recovery path only;
	// the hot path reads the cached projection.
	SumEntries(ctx context.Context, id ledger.ItemID) (ledger.Quantity, error)

	// HasCompensation reports whether a counter-entry referencing the given
	// entry already exists.
	HasCompensation(ctx context.Context, id ledger.TxID) (bool, error)
}

// TxStore adds the unit-of-work primitive. If fn returns an error the
// transaction rolls back and none of its writes are observable.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
