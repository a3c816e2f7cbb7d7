/*
Package production provides the production log engine.

PURPOSE:
  Records a unit of completed piece-rate work: who produced what, against
  which rate, with how many defects, and what it pays. A rate may carry a
  bill of materials (BOM); logging production then consumes raw materials
  through the inventory journal, in the same database transaction as the
  log itself.

KEY CONCEPTS IN THIS FILE (types.go):
  - Worker: directory record; BaseSalary matters only for salaried workers
  - Rate: a task definition with price-per-unit and an optional BOM
  - WorkerLog: one unit of recorded work, with SNAPSHOTTED task name and
    price so later rate edits never change historical pay

SNAPSHOT RULE:
  WorkerLog.TaskName and WorkerLog.PricePerUnit are captured at write time.
  The rate reference is kept for traceability only; pay math never reads
  back through it.

SEE ALSO:
  - bom.go: material requirement resolution (pure)
  - engine.go: AddLog and the atomic deduction batch
*/
package production

import (
	"time"

	"github.com/nexus-erp/factory-ledger/ledger"
)

// =============================================================================
// WORKER - Directory record
// =============================================================================

type SalaryType string

const (
	SalaryPieceRate SalaryType = "PieceRate"
	SalaryMonthly   SalaryType = "Monthly"
	SalaryDaily     SalaryType = "Daily"
)

type WorkerStatus string

const (
	WorkerActive   WorkerStatus = "Active"
	WorkerInactive WorkerStatus = "Inactive"
)

type Worker struct {
	ID         ledger.WorkerID
	Name       string
	Phone      string
	Role       string // e.g. "Weaver", "Helper", "Supervisor"
	SalaryType SalaryType
	BaseSalary ledger.Money // zero for pure piece-rate workers
	JoinedDate ledger.Date
	Status     WorkerStatus
	CreatedAt  time.Time
}

// Salaried reports whether the worker earns a base salary on top of
// production pay.
func (w Worker) Salaried() bool { return w.SalaryType != SalaryPieceRate }

// =============================================================================
// RATE - Task definition with price snapshot source and optional BOM
// =============================================================================

type RateStatus string

const (
	RateActive   RateStatus = "Active"
	RateArchived RateStatus = "Archived"
)

// MaterialRequirement is one BOM line: producing one unit of output
// consumes QuantityPerUnit of the item.
type MaterialRequirement struct {
	ItemID          ledger.ItemID
	ItemName        string // denormalized for display
	QuantityPerUnit ledger.Quantity
}

type Rate struct {
	ID                ledger.RateID
	TaskName          string // e.g. "Sewing Grade A", "Ironing"
	PricePerUnit      ledger.Money
	Unit              string // e.g. "pcs", "yards"
	Currency          string
	Status            RateStatus
	Description       string
	RequiredMaterials []MaterialRequirement // empty = no BOM
	CreatedAt         time.Time
}

// =============================================================================
// WORKER LOG - One unit of recorded work
// =============================================================================

type LogStatus string

const (
	StatusPending  LogStatus = "Pending"
	StatusApproved LogStatus = "Approved"
	StatusLocked   LogStatus = "Locked" // consumed by a finalized payroll run
)

type Shift string

const (
	ShiftDay   Shift = "Day"
	ShiftNight Shift = "Night"
)

type WorkerLog struct {
	ID         ledger.LogID
	WorkerID   ledger.WorkerID
	WorkerName string // denormalized snapshot

	RateID       ledger.RateID
	TaskName     string       // snapshot, immune to later rate edits
	PricePerUnit ledger.Money // snapshot, immune to later rate edits

	Quantity  ledger.Quantity
	DefectQty ledger.Quantity
	TotalPay  ledger.Money // (Quantity - DefectQty) * PricePerUnit

	Date   ledger.Date
	Shift  Shift
	Status LogStatus

	// PayrollRunID is stamped when a finalized run locks this log.
	PayrollRunID ledger.RunID

	CreatedBy string
	CreatedAt time.Time
}

// NetQuantity is the payable output: gross quantity minus defects.
func (l WorkerLog) NetQuantity() ledger.Quantity { return l.Quantity.Sub(l.DefectQty) }

// Locked reports whether the log has been consumed by a payroll run and is
// therefore immutable.
func (l WorkerLog) Locked() bool { return l.Status == StatusLocked }
