/*
Package payroll provides the deduction ledger and the settlement engine.

PURPOSE:
  A payroll run settles a period: it gathers every unsettled production
  log and every unsettled deduction for each worker, computes
  gross - deductions = net, and LOCKS everything it consumed so no record
  is ever paid twice.

EXACTLY-ONCE RULE:
  Settlement state lives ON the records themselves (log status, deduction
  settled flag), not in a separate checklist. Locking is a compare-and-set
  per record inside one transaction; any miss aborts the whole run.

SEE ALSO:
  - engine.go: Preview (read-only) and Finalize (the one-shot settlement)
  - production: WorkerLog and its Locked status
*/
package payroll

import (
	"time"

	"github.com/nexus-erp/factory-ledger/ledger"
)

// =============================================================================
// DEDUCTION - One entry in the deduction ledger
// =============================================================================

type DeductionType string

const (
	DeductionAdvance DeductionType = "advance"
	DeductionLoan    DeductionType = "loan"
	DeductionPenalty DeductionType = "penalty"
	DeductionTax     DeductionType = "tax"
	DeductionOther   DeductionType = "other"
)

// ValidDeductionType reports whether t is one of the known kinds.
func ValidDeductionType(t DeductionType) bool {
	switch t {
	case DeductionAdvance, DeductionLoan, DeductionPenalty, DeductionTax, DeductionOther:
		return true
	}
	return false
}

type Deduction struct {
	ID         ledger.DeductionID
	WorkerID   ledger.WorkerID
	WorkerName string // denormalized snapshot
	Type       DeductionType
	Amount     ledger.Money
	Reason     string
	Date       ledger.Date

	// Recurring deductions (e.g. a loan installment) are cloned forward by
	// the caller each period; the engine settles whatever rows exist.
	Recurring bool

	// Settled + PayrollRunID are stamped together when a finalized run
	// consumes this deduction.
	Settled      bool
	PayrollRunID ledger.RunID

	CreatedBy string
	CreatedAt time.Time
}

// =============================================================================
// RUN - A settled period
// =============================================================================

// Line is one worker's settlement inside a run.
type Line struct {
	WorkerID   ledger.WorkerID
	WorkerName string
	SalaryType string

	BaseSalary      ledger.Money // salaried workers only
	Bonus           ledger.Money // discretionary extras; zero until recorded
	ProductionPay   ledger.Money // sum of consumed log TotalPay
	GrossPay        ledger.Money // BaseSalary + Bonus + ProductionPay
	TotalDeductions ledger.Money
	NetPay          ledger.Money // GrossPay - TotalDeductions

	LogIDs       []ledger.LogID
	DeductionIDs []ledger.DeductionID
	UnitsLogged  ledger.Quantity // net payable units across consumed logs
}

type RunStatus string

const (
	RunFinalized RunStatus = "Finalized"
)

type Run struct {
	ID     ledger.RunID
	Period ledger.Period
	Status RunStatus

	Lines []Line

	TotalGross      ledger.Money
	TotalDeductions ledger.Money
	TotalNet        ledger.Money
	WorkerCount     int
	LogCount        int
	DeductionCount  int

	FinalizedBy string
	FinalizedAt time.Time
}

// Preview is the dry-run view of a period: the same lines a Finalize would
// produce right now, with nothing locked.
type Preview struct {
	Period ledger.Period
	Lines  []Line

	TotalGross      ledger.Money
	TotalDeductions ledger.Money
	TotalNet        ledger.Money
}
