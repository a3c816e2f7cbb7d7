/*
payroll.go - Deduction ledger, settlement locks, and run records

Settlement state lives on the consumed rows themselves: worker_logs.status
and deductions.settled. LockLog / LockDeduction are single-statement
compare-and-sets; a zero row count means another run already won.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/payroll"
	"github.com/nexus-erp/factory-ledger/production"
)

// =============================================================================
// STORE WRAPPERS
// =============================================================================

func (s *Store) UnsettledLogsInPeriod(ctx context.Context, p ledger.Period) ([]production.WorkerLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().UnsettledLogsInPeriod(ctx, p)
}

func (s *Store) UnsettledDeductionsInPeriod(ctx context.Context, p ledger.Period) ([]payroll.Deduction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().UnsettledDeductionsInPeriod(ctx, p)
}

func (s *Store) GetDeduction(ctx context.Context, id ledger.DeductionID) (*payroll.Deduction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().GetDeduction(ctx, id)
}

func (s *Store) ListDeductions(ctx context.Context, workerID ledger.WorkerID) ([]payroll.Deduction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().ListDeductions(ctx, workerID)
}

func (s *Store) InsertDeduction(ctx context.Context, d payroll.Deduction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().InsertDeduction(ctx, d)
}

func (s *Store) DeleteDeduction(ctx context.Context, id ledger.DeductionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().DeleteDeduction(ctx, id)
}

func (s *Store) LockLog(ctx context.Context, id ledger.LogID, runID ledger.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().LockLog(ctx, id, runID)
}

func (s *Store) LockDeduction(ctx context.Context, id ledger.DeductionID, runID ledger.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().LockDeduction(ctx, id, runID)
}

func (s *Store) InsertRun(ctx context.Context, run payroll.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().InsertRun(ctx, run)
}

func (s *Store) GetRun(ctx context.Context, id ledger.RunID) (*payroll.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().GetRun(ctx, id)
}

func (s *Store) ListRuns(ctx context.Context) ([]payroll.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().ListRuns(ctx)
}

// =============================================================================
// DEDUCTIONS
// =============================================================================

const deductionColumns = `id, worker_id, worker_name, type, amount, reason, date, recurring, settled, payroll_run_id, created_by, created_at`

func (sess *session) GetDeduction(ctx context.Context, id ledger.DeductionID) (*payroll.Deduction, error) {
	ds, err := sess.queryDeductions(ctx,
		"SELECT "+deductionColumns+" FROM deductions WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(ds) == 0 {
		return nil, nil
	}
	return &ds[0], nil
}

func (sess *session) ListDeductions(ctx context.Context, workerID ledger.WorkerID) ([]payroll.Deduction, error) {
	return sess.queryDeductions(ctx,
		"SELECT "+deductionColumns+` FROM deductions
		 WHERE worker_id = ? ORDER BY date DESC, created_at DESC`, workerID)
}

func (sess *session) UnsettledDeductionsInPeriod(ctx context.Context, p ledger.Period) ([]payroll.Deduction, error) {
	return sess.queryDeductions(ctx,
		"SELECT "+deductionColumns+` FROM deductions
		 WHERE date >= ? AND date <= ? AND settled = FALSE
		 ORDER BY date ASC, created_at ASC`,
		p.Start.String(), p.End.String())
}

func (sess *session) InsertDeduction(ctx context.Context, d payroll.Deduction) error {
	query := `
		INSERT INTO deductions (` + deductionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := sess.q.ExecContext(ctx, query,
		d.ID, d.WorkerID, d.WorkerName, d.Type,
		d.Amount.String(), d.Reason, d.Date.String(),
		d.Recurring, d.Settled, string(d.PayrollRunID), d.CreatedBy,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return &ledger.StorageError{Op: "insert deduction", Err: err}
	}
	return nil
}

func (sess *session) DeleteDeduction(ctx context.Context, id ledger.DeductionID) error {
	res, err := sess.q.ExecContext(ctx,
		"DELETE FROM deductions WHERE id = ? AND settled = FALSE", id)
	if err != nil {
		return &ledger.StorageError{Op: "delete deduction", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "delete deduction", Err: err}
	}
	if n == 0 {
		return ledger.ErrDeductionNotFound
	}
	return nil
}

// LockDeduction is the deduction-side settlement compare-and-set.
func (sess *session) LockDeduction(ctx context.Context, id ledger.DeductionID, runID ledger.RunID) error {
	res, err := sess.q.ExecContext(ctx, `
		UPDATE deductions SET settled = TRUE, payroll_run_id = ?
		WHERE id = ? AND settled = FALSE`,
		string(runID), id,
	)
	if err != nil {
		return &ledger.StorageError{Op: "lock deduction", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "lock deduction", Err: err}
	}
	if n == 0 {
		return &ledger.SettlementConflictError{Kind: "deduction", ID: string(id)}
	}
	return nil
}

func (sess *session) queryDeductions(ctx context.Context, query string, args ...any) ([]payroll.Deduction, error) {
	rows, err := sess.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.StorageError{Op: "query deductions", Err: err}
	}
	defer rows.Close()

	var ds []payroll.Deduction
	for rows.Next() {
		var (
			d         payroll.Deduction
			amount    string
			date      string
			runID     string
			createdAt string
		)
		err := rows.Scan(&d.ID, &d.WorkerID, &d.WorkerName, &d.Type,
			&amount, &d.Reason, &date,
			&d.Recurring, &d.Settled, &runID, &d.CreatedBy, &createdAt)
		if err != nil {
			return nil, &ledger.StorageError{Op: "scan deduction", Err: err}
		}
		d.Amount = ledger.ParseMoney(amount)
		d.Date, _ = ledger.ParseDate(date)
		d.PayrollRunID = ledger.RunID(runID)
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		ds = append(ds, d)
	}
	return ds, rows.Err()
}

// =============================================================================
// RUNS
// =============================================================================

const runColumns = `id, period_start, period_end, status, lines_json, total_gross, total_deductions, total_net, worker_count, log_count, deduction_count, finalized_by, finalized_at`

func (sess *session) InsertRun(ctx context.Context, run payroll.Run) error {
	linesJSON, err := json.Marshal(run.Lines)
	if err != nil {
		return &ledger.StorageError{Op: "encode run lines", Err: err}
	}

	query := `
		INSERT INTO payroll_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = sess.q.ExecContext(ctx, query,
		run.ID, run.Period.Start.String(), run.Period.End.String(), run.Status,
		string(linesJSON),
		run.TotalGross.String(), run.TotalDeductions.String(), run.TotalNet.String(),
		run.WorkerCount, run.LogCount, run.DeductionCount,
		run.FinalizedBy, run.FinalizedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return &ledger.StorageError{Op: "insert run", Err: err}
	}
	return nil
}

func (sess *session) GetRun(ctx context.Context, id ledger.RunID) (*payroll.Run, error) {
	row := sess.q.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM payroll_runs WHERE id = ?", id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "get run", Err: err}
	}
	return run, nil
}

func (sess *session) ListRuns(ctx context.Context) ([]payroll.Run, error) {
	rows, err := sess.q.QueryContext(ctx,
		"SELECT "+runColumns+" FROM payroll_runs ORDER BY finalized_at DESC")
	if err != nil {
		return nil, &ledger.StorageError{Op: "list runs", Err: err}
	}
	defer rows.Close()

	var runs []payroll.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, &ledger.StorageError{Op: "scan run", Err: err}
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*payroll.Run, error) {
	var (
		run                    payroll.Run
		periodStart, periodEnd string
		linesJSON              string
		gross, deductions, net string
		finalizedAt            string
	)
	err := row.Scan(&run.ID, &periodStart, &periodEnd, &run.Status,
		&linesJSON, &gross, &deductions, &net,
		&run.WorkerCount, &run.LogCount, &run.DeductionCount,
		&run.FinalizedBy, &finalizedAt)
	if err != nil {
		return nil, err
	}
	run.Period.Start, _ = ledger.ParseDate(periodStart)
	run.Period.End, _ = ledger.ParseDate(periodEnd)
	if err := json.Unmarshal([]byte(linesJSON), &run.Lines); err != nil {
		return nil, fmt.Errorf("decode run lines: %w", err)
	}
	run.TotalGross = ledger.ParseMoney(gross)
	run.TotalDeductions = ledger.ParseMoney(deductions)
	run.TotalNet = ledger.ParseMoney(net)
	run.FinalizedAt, _ = time.Parse(time.RFC3339Nano, finalizedAt)
	return &run, nil
}
