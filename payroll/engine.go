/*
engine.go - Settlement engine

PURPOSE:
  Preview computes a period's settlement without writing anything.
  Finalize computes the SAME settlement and commits it in one transaction,
  compare-and-set locking every consumed log and deduction. Any lock miss
  aborts the whole run: either every record is settled exactly once or the
  run never happened.

LINE COMPOSITION:
  - Piece-rate workers appear when they have unsettled logs or deductions
    in the period. Gross = production pay.
  - Salaried workers (Monthly/Daily) additionally earn their base salary
    for the period, and appear even with no logged production.
*/
package payroll

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/production"
)

type Engine struct {
	store TxStore
	now   func() time.Time
}

func NewEngine(store TxStore) *Engine {
	return &Engine{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// DEDUCTION LEDGER
// =============================================================================

type AddDeductionInput struct {
	WorkerID  ledger.WorkerID
	Type      DeductionType
	Amount    ledger.Money
	Reason    string
	Date      ledger.Date
	Recurring bool
	CreatedBy string
}

// AddDeduction records an unsettled deduction against a worker.
func (e *Engine) AddDeduction(ctx context.Context, in AddDeductionInput) (*Deduction, error) {
	if in.WorkerID == "" {
		return nil, ledger.Invalid("workerId", "required")
	}
	if !ValidDeductionType(in.Type) {
		return nil, ledger.Invalid("type", "must be advance, loan, penalty, tax, or other")
	}
	if !in.Amount.IsPositive() {
		return nil, ledger.Invalid("amount", "must be greater than zero")
	}

	worker, err := e.store.GetWorker(ctx, in.WorkerID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, ledger.ErrWorkerNotFound
	}

	date := in.Date
	if date.IsZero() {
		date = ledger.Today()
	}

	d := Deduction{
		ID:         ledger.DeductionID(ledger.NewID()),
		WorkerID:   worker.ID,
		WorkerName: worker.Name,
		Type:       in.Type,
		Amount:     in.Amount,
		Reason:     in.Reason,
		Date:       date,
		Recurring:  in.Recurring,
		CreatedBy:  in.CreatedBy,
		CreatedAt:  e.now(),
	}
	if err := e.store.InsertDeduction(ctx, d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDeduction removes an unsettled deduction. Settled deductions are
// part of a finalized run and immutable.
func (e *Engine) DeleteDeduction(ctx context.Context, id ledger.DeductionID) error {
	d, err := e.store.GetDeduction(ctx, id)
	if err != nil {
		return err
	}
	if d == nil {
		return ledger.ErrDeductionNotFound
	}
	if d.Settled {
		return ledger.ErrAlreadySettled
	}
	return e.store.DeleteDeduction(ctx, id)
}

// ListDeductions returns a worker's deduction history, newest first.
func (e *Engine) ListDeductions(ctx context.Context, workerID ledger.WorkerID) ([]Deduction, error) {
	return e.store.ListDeductions(ctx, workerID)
}

// =============================================================================
// PREVIEW
// =============================================================================

// PreviewPeriod computes the settlement for a period without locking
// anything. Re-previewing after a Finalize returns empty lines: the
// consumed records no longer qualify as unsettled.
func (e *Engine) PreviewPeriod(ctx context.Context, p ledger.Period) (*Preview, error) {
	if !p.Valid() {
		return nil, ledger.Invalid("period", "start must not be after end")
	}
	lines, err := e.computeLines(ctx, p)
	if err != nil {
		return nil, err
	}
	pv := &Preview{Period: p, Lines: lines}
	pv.TotalGross, pv.TotalDeductions, pv.TotalNet = sumLines(lines)
	return pv, nil
}

// =============================================================================
// FINALIZE
// =============================================================================

// FinalizeInput describes one settlement request.
type FinalizeInput struct {
	Period      ledger.Period
	FinalizedBy string

	// ExpectedLogIDs / ExpectedDeductionIDs pin the run to a reviewed
	// preview. When set, the finalize conflicts if the unsettled set
	// changed since that preview was taken, so the operator never approves
	// one settlement and pays another.
	ExpectedLogIDs       []ledger.LogID
	ExpectedDeductionIDs []ledger.DeductionID
}

// Finalize settles the period: it recomputes the lines, then in ONE
// transaction locks every consumed log and deduction (compare-and-set) and
// records the run. A period overlapping an already-finalized run is
// rejected with ledger.ErrAlreadySettled — base salary is owed once per
// period, so re-settling the same days would pay it twice. A concurrent
// run that already locked any record aborts this one the same way; nothing
// is partially settled.
func (e *Engine) Finalize(ctx context.Context, in FinalizeInput) (*Run, error) {
	if !in.Period.Valid() {
		return nil, ledger.Invalid("period", "start must not be after end")
	}

	runID := ledger.RunID(ledger.NewID())
	var run *Run

	err := e.store.WithTx(ctx, func(s Store) error {
		prior, err := s.ListRuns(ctx)
		if err != nil {
			return err
		}
		for i := range prior {
			if prior[i].Period.Overlaps(in.Period) {
				return fmt.Errorf("period %s overlaps finalized run %s: %w",
					in.Period, prior[i].ID, ledger.ErrAlreadySettled)
			}
		}

		lines, err := e.computeLinesOn(ctx, s, in.Period)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ledger.Invalid("period", "nothing to settle in this period")
		}
		if err := verifyExpected(lines, in.ExpectedLogIDs, in.ExpectedDeductionIDs); err != nil {
			return err
		}

		logCount, dedCount := 0, 0
		for _, line := range lines {
			for _, logID := range line.LogIDs {
				if err := s.LockLog(ctx, logID, runID); err != nil {
					return err
				}
				logCount++
			}
			for _, dedID := range line.DeductionIDs {
				if err := s.LockDeduction(ctx, dedID, runID); err != nil {
					return err
				}
				dedCount++
			}
		}

		r := Run{
			ID:             runID,
			Period:         in.Period,
			Status:         RunFinalized,
			Lines:          lines,
			WorkerCount:    len(lines),
			LogCount:       logCount,
			DeductionCount: dedCount,
			FinalizedBy:    in.FinalizedBy,
			FinalizedAt:    e.now(),
		}
		r.TotalGross, r.TotalDeductions, r.TotalNet = sumLines(lines)
		if err := s.InsertRun(ctx, r); err != nil {
			return err
		}
		run = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// verifyExpected compares the recomputed settlement set against the set the
// operator previewed. Any difference means the unsettled records changed
// between preview and finalize, and the run must not proceed.
func verifyExpected(lines []Line, wantLogs []ledger.LogID, wantDeds []ledger.DeductionID) error {
	if len(wantLogs) == 0 && len(wantDeds) == 0 {
		return nil
	}

	gotLogs := map[ledger.LogID]bool{}
	gotDeds := map[ledger.DeductionID]bool{}
	for _, l := range lines {
		for _, id := range l.LogIDs {
			gotLogs[id] = true
		}
		for _, id := range l.DeductionIDs {
			gotDeds[id] = true
		}
	}

	for _, id := range wantLogs {
		if !gotLogs[id] {
			// The previewed log is gone: another run locked it.
			return &ledger.SettlementConflictError{Kind: "log", ID: string(id)}
		}
		delete(gotLogs, id)
	}
	for _, id := range wantDeds {
		if !gotDeds[id] {
			return &ledger.SettlementConflictError{Kind: "deduction", ID: string(id)}
		}
		delete(gotDeds, id)
	}
	if len(gotLogs) > 0 || len(gotDeds) > 0 {
		return fmt.Errorf("unsettled records changed since preview: %w", ledger.ErrAlreadySettled)
	}
	return nil
}

// GetRun returns a finalized run by id.
func (e *Engine) GetRun(ctx context.Context, id ledger.RunID) (*Run, error) {
	run, err := e.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ledger.ErrRunNotFound
	}
	return run, nil
}

// ListRuns returns the settlement history, newest first.
func (e *Engine) ListRuns(ctx context.Context) ([]Run, error) {
	return e.store.ListRuns(ctx)
}

// =============================================================================
// LINE COMPUTATION
// =============================================================================

func (e *Engine) computeLines(ctx context.Context, p ledger.Period) ([]Line, error) {
	return e.computeLinesOn(ctx, e.store, p)
}

// computeLinesOn groups the period's unsettled logs and deductions by
// worker. It runs against the ambient store for previews and against the
// transaction view during a finalize, so a run settles exactly the rows it
// saw.
func (e *Engine) computeLinesOn(ctx context.Context, s Store, p ledger.Period) ([]Line, error) {
	logs, err := s.UnsettledLogsInPeriod(ctx, p)
	if err != nil {
		return nil, err
	}
	deductions, err := s.UnsettledDeductionsInPeriod(ctx, p)
	if err != nil {
		return nil, err
	}

	byWorker := map[ledger.WorkerID]*Line{}
	ensure := func(w *production.Worker) *Line {
		line, ok := byWorker[w.ID]
		if !ok {
			line = &Line{
				WorkerID:   w.ID,
				WorkerName: w.Name,
				SalaryType: string(w.SalaryType),
			}
			if w.Salaried() {
				line.BaseSalary = w.BaseSalary
			}
			byWorker[w.ID] = line
		}
		return line
	}

	workerCache := map[ledger.WorkerID]*production.Worker{}
	lookup := func(id ledger.WorkerID) (*production.Worker, error) {
		if w, ok := workerCache[id]; ok {
			return w, nil
		}
		w, err := s.GetWorker(ctx, id)
		if err != nil {
			return nil, err
		}
		workerCache[id] = w
		return w, nil
	}

	for _, log := range logs {
		w, err := lookup(log.WorkerID)
		if err != nil {
			return nil, err
		}
		if w == nil {
			// Orphaned log; the worker row was removed. Skip rather than
			// block the whole run.
			continue
		}
		line := ensure(w)
		line.ProductionPay = line.ProductionPay.Add(log.TotalPay)
		line.UnitsLogged = line.UnitsLogged.Add(log.NetQuantity())
		line.LogIDs = append(line.LogIDs, log.ID)
	}

	for _, d := range deductions {
		w, err := lookup(d.WorkerID)
		if err != nil {
			return nil, err
		}
		if w == nil {
			continue
		}
		line := ensure(w)
		line.TotalDeductions = line.TotalDeductions.Add(d.Amount)
		line.DeductionIDs = append(line.DeductionIDs, d.ID)
	}

	// Salaried workers are owed base pay for the period even with no
	// logged production.
	workers, err := s.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range workers {
		w := &workers[i]
		if w.Status == production.WorkerActive && w.Salaried() {
			ensure(w)
		}
	}

	lines := make([]Line, 0, len(byWorker))
	for _, line := range byWorker {
		line.GrossPay = line.BaseSalary.Add(line.Bonus).Add(line.ProductionPay)
		line.NetPay = line.GrossPay.Sub(line.TotalDeductions)
		lines = append(lines, *line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].WorkerName < lines[j].WorkerName })
	return lines, nil
}

func sumLines(lines []Line) (gross, deductions, net ledger.Money) {
	for _, l := range lines {
		gross = gross.Add(l.GrossPay)
		deductions = deductions.Add(l.TotalDeductions)
		net = net.Add(l.NetPay)
	}
	return gross, deductions, net
}
