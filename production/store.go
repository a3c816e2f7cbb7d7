package production

import (
	"context"

	"github.com/nexus-erp/factory-ledger/inventory"
	"github.com/nexus-erp/factory-ledger/ledger"
)

// Store is the persistence surface for the production engine. It includes
// the inventory journal primitives because a production log and its
// material deductions commit as one transaction.
// Read methods return (nil, nil) when the record does not exist.
type Store interface {
	GetWorker(ctx context.Context, id ledger.WorkerID) (*Worker, error)
	GetRate(ctx context.Context, id ledger.RateID) (*Rate, error)

	GetLog(ctx context.Context, id ledger.LogID) (*WorkerLog, error)
	LogsByDate(ctx context.Context, date ledger.Date) ([]WorkerLog, error)
	InsertLog(ctx context.Context, log WorkerLog) error

	// UpdateLogQuantities rewrites quantity, defect, and the recomputed pay.
	// Status and snapshots are untouched. Inventory is NEVER touched here.
	UpdateLogQuantities(ctx context.Context, id ledger.LogID, quantity, defect ledger.Quantity, totalPay ledger.Money) error

	// ApproveLog stamps Approved. No-op if already Approved;
	// ledger.ErrLogLocked if the log is Locked, even when the caller's
	// pre-check raced a settlement.
	ApproveLog(ctx context.Context, id ledger.LogID) error

	// DeleteLog hard-deletes the row. The caller has already verified the
	// log is not Locked. Inventory consumption is NOT reversed.
	DeleteLog(ctx context.Context, id ledger.LogID) error

	// Inventory primitives used inside the atomic batch.
	GetItem(ctx context.Context, id ledger.ItemID) (*inventory.Item, error)
	AppendEntry(ctx context.Context, tx inventory.Transaction) error
	AdjustStock(ctx context.Context, id ledger.ItemID, delta ledger.Quantity) error
}

// TxStore adds the unit-of-work primitive over the same surface.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
