/*
production.go - Worker log persistence

Snapshot columns (worker_name, task_name, price_per_unit) are written once
at insert and never recomputed from the directory tables.
*/
package sqlite

import (
	"context"
	"time"

	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/production"
)

// =============================================================================
// STORE WRAPPERS
// =============================================================================

func (s *Store) GetLog(ctx context.Context, id ledger.LogID) (*production.WorkerLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().GetLog(ctx, id)
}

func (s *Store) LogsByDate(ctx context.Context, date ledger.Date) ([]production.WorkerLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().LogsByDate(ctx, date)
}

func (s *Store) InsertLog(ctx context.Context, log production.WorkerLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().InsertLog(ctx, log)
}

func (s *Store) UpdateLogQuantities(ctx context.Context, id ledger.LogID, quantity, defect ledger.Quantity, totalPay ledger.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().UpdateLogQuantities(ctx, id, quantity, defect, totalPay)
}

func (s *Store) ApproveLog(ctx context.Context, id ledger.LogID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().ApproveLog(ctx, id)
}

func (s *Store) DeleteLog(ctx context.Context, id ledger.LogID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().DeleteLog(ctx, id)
}

// =============================================================================
// WORKER LOGS
// =============================================================================

const logColumns = `id, worker_id, worker_name, rate_id, task_name, price_per_unit, quantity, defect_qty, total_pay, date, shift, status, payroll_run_id, created_by, created_at`

func (sess *session) GetLog(ctx context.Context, id ledger.LogID) (*production.WorkerLog, error) {
	logs, err := sess.queryLogs(ctx,
		"SELECT "+logColumns+" FROM worker_logs WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return nil, nil
	}
	return &logs[0], nil
}

func (sess *session) LogsByDate(ctx context.Context, date ledger.Date) ([]production.WorkerLog, error) {
	return sess.queryLogs(ctx,
		"SELECT "+logColumns+` FROM worker_logs
		 WHERE date = ? ORDER BY created_at DESC`, date.String())
}

func (sess *session) UnsettledLogsInPeriod(ctx context.Context, p ledger.Period) ([]production.WorkerLog, error) {
	return sess.queryLogs(ctx,
		"SELECT "+logColumns+` FROM worker_logs
		 WHERE date >= ? AND date <= ? AND status != 'Locked'
		 ORDER BY date ASC, created_at ASC`,
		p.Start.String(), p.End.String())
}

func (sess *session) InsertLog(ctx context.Context, log production.WorkerLog) error {
	query := `
		INSERT INTO worker_logs (` + logColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := log.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := sess.q.ExecContext(ctx, query,
		log.ID, log.WorkerID, log.WorkerName,
		log.RateID, log.TaskName, log.PricePerUnit.String(),
		qtyToUnits(log.Quantity), qtyToUnits(log.DefectQty),
		log.TotalPay.String(),
		log.Date.String(), log.Shift, log.Status,
		string(log.PayrollRunID), log.CreatedBy,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return &ledger.StorageError{Op: "insert log", Err: err}
	}
	return nil
}

func (sess *session) UpdateLogQuantities(ctx context.Context, id ledger.LogID, quantity, defect ledger.Quantity, totalPay ledger.Money) error {
	res, err := sess.q.ExecContext(ctx, `
		UPDATE worker_logs SET quantity = ?, defect_qty = ?, total_pay = ?
		WHERE id = ? AND status != 'Locked'`,
		qtyToUnits(quantity), qtyToUnits(defect), totalPay.String(), id,
	)
	if err != nil {
		return &ledger.StorageError{Op: "update log", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "update log", Err: err}
	}
	if n == 0 {
		return ledger.ErrLogNotFound
	}
	return nil
}

func (sess *session) ApproveLog(ctx context.Context, id ledger.LogID) error {
	// Approving an already-Approved log is a no-op; a Locked log conflicts
	// even when the engine's pre-check raced a settlement.
	res, err := sess.q.ExecContext(ctx,
		"UPDATE worker_logs SET status = 'Approved' WHERE id = ? AND status != 'Locked'", id)
	if err != nil {
		return &ledger.StorageError{Op: "approve log", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "approve log", Err: err}
	}
	if n == 0 {
		return ledger.ErrLogLocked
	}
	return nil
}

func (sess *session) DeleteLog(ctx context.Context, id ledger.LogID) error {
	res, err := sess.q.ExecContext(ctx,
		"DELETE FROM worker_logs WHERE id = ? AND status != 'Locked'", id)
	if err != nil {
		return &ledger.StorageError{Op: "delete log", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "delete log", Err: err}
	}
	if n == 0 {
		return ledger.ErrLogNotFound
	}
	return nil
}

// LockLog is the settlement compare-and-set: Locked wins exactly once.
func (sess *session) LockLog(ctx context.Context, id ledger.LogID, runID ledger.RunID) error {
	res, err := sess.q.ExecContext(ctx, `
		UPDATE worker_logs SET status = 'Locked', payroll_run_id = ?
		WHERE id = ? AND status != 'Locked'`,
		string(runID), id,
	)
	if err != nil {
		return &ledger.StorageError{Op: "lock log", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "lock log", Err: err}
	}
	if n == 0 {
		return &ledger.SettlementConflictError{Kind: "log", ID: string(id)}
	}
	return nil
}

func (sess *session) queryLogs(ctx context.Context, query string, args ...any) ([]production.WorkerLog, error) {
	rows, err := sess.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.StorageError{Op: "query logs", Err: err}
	}
	defer rows.Close()

	var logs []production.WorkerLog
	for rows.Next() {
		var (
			log           production.WorkerLog
			price         string
			qty, defect   int64
			totalPay      string
			date          string
			runID         string
			createdAt     string
		)
		err := rows.Scan(&log.ID, &log.WorkerID, &log.WorkerName,
			&log.RateID, &log.TaskName, &price,
			&qty, &defect, &totalPay,
			&date, &log.Shift, &log.Status,
			&runID, &log.CreatedBy, &createdAt)
		if err != nil {
			return nil, &ledger.StorageError{Op: "scan log", Err: err}
		}
		log.PricePerUnit = ledger.ParseMoney(price)
		log.Quantity = unitsToQty(qty)
		log.DefectQty = unitsToQty(defect)
		log.TotalPay = ledger.ParseMoney(totalPay)
		log.Date, _ = ledger.ParseDate(date)
		log.PayrollRunID = ledger.RunID(runID)
		log.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
