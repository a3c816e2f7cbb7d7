package payroll

import (
	"context"

	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/production"
)

// Store is the persistence surface for the settlement engine.
// Read methods return (nil, nil) when the record does not exist.
type Store interface {
	GetWorker(ctx context.Context, id ledger.WorkerID) (*production.Worker, error)
	ListWorkers(ctx context.Context) ([]production.Worker, error)

	// UnsettledLogsInPeriod returns logs dated inside the period whose
	// status is not Locked, ordered by date then creation time.
	UnsettledLogsInPeriod(ctx context.Context, p ledger.Period) ([]production.WorkerLog, error)

	// UnsettledDeductionsInPeriod returns deductions dated inside the
	// period with settled = false.
	UnsettledDeductionsInPeriod(ctx context.Context, p ledger.Period) ([]Deduction, error)

	GetDeduction(ctx context.Context, id ledger.DeductionID) (*Deduction, error)
	ListDeductions(ctx context.Context, workerID ledger.WorkerID) ([]Deduction, error)
	InsertDeduction(ctx context.Context, d Deduction) error
	DeleteDeduction(ctx context.Context, id ledger.DeductionID) error

	// LockLog is a compare-and-set: it stamps status=Locked and the run id
	// only if the log is still unlocked. A miss (the log was locked by a
	// concurrent run) returns ledger.ErrAlreadySettled.
	LockLog(ctx context.Context, id ledger.LogID, runID ledger.RunID) error

	// LockDeduction is the deduction-side compare-and-set, same contract.
	LockDeduction(ctx context.Context, id ledger.DeductionID, runID ledger.RunID) error

	InsertRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id ledger.RunID) (*Run, error)
	ListRuns(ctx context.Context) ([]Run, error)
}

// TxStore adds the unit-of-work primitive over the same surface.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}
