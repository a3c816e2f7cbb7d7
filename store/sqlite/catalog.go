/*
catalog.go - Worker directory and rate card persistence

Rates carry their bill of materials as a JSON column; the BOM is read and
written whole, never queried into.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/production"
)

// =============================================================================
// STORE WRAPPERS
// =============================================================================

func (s *Store) GetWorker(ctx context.Context, id ledger.WorkerID) (*production.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().GetWorker(ctx, id)
}

func (s *Store) ListWorkers(ctx context.Context) ([]production.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().ListWorkers(ctx)
}

func (s *Store) SaveWorker(ctx context.Context, w production.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().SaveWorker(ctx, w)
}

func (s *Store) GetRate(ctx context.Context, id ledger.RateID) (*production.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().GetRate(ctx, id)
}

func (s *Store) ListRates(ctx context.Context) ([]production.Rate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().ListRates(ctx)
}

func (s *Store) SaveRate(ctx context.Context, r production.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().SaveRate(ctx, r)
}

// =============================================================================
// WORKERS
// =============================================================================

const workerColumns = `id, name, phone, role, salary_type, base_salary, joined_date, status, created_at`

func (sess *session) GetWorker(ctx context.Context, id ledger.WorkerID) (*production.Worker, error) {
	row := sess.q.QueryRowContext(ctx,
		"SELECT "+workerColumns+" FROM workers WHERE id = ?", id)

	w, err := scanWorker(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "get worker", Err: err}
	}
	return w, nil
}

func (sess *session) ListWorkers(ctx context.Context) ([]production.Worker, error) {
	rows, err := sess.q.QueryContext(ctx,
		"SELECT "+workerColumns+" FROM workers ORDER BY name")
	if err != nil {
		return nil, &ledger.StorageError{Op: "list workers", Err: err}
	}
	defer rows.Close()

	var workers []production.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, &ledger.StorageError{Op: "scan worker", Err: err}
		}
		workers = append(workers, *w)
	}
	return workers, rows.Err()
}

func (sess *session) SaveWorker(ctx context.Context, w production.Worker) error {
	query := `
		INSERT INTO workers (` + workerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			role = excluded.role,
			salary_type = excluded.salary_type,
			base_salary = excluded.base_salary,
			joined_date = excluded.joined_date,
			status = excluded.status
	`

	createdAt := w.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	joined := ""
	if !w.JoinedDate.IsZero() {
		joined = w.JoinedDate.String()
	}

	_, err := sess.q.ExecContext(ctx, query,
		w.ID, w.Name, w.Phone, w.Role,
		w.SalaryType, w.BaseSalary.String(), joined, w.Status,
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return &ledger.StorageError{Op: "save worker", Err: err}
	}
	return nil
}

func scanWorker(row rowScanner) (*production.Worker, error) {
	var (
		w          production.Worker
		baseSalary string
		joined     string
		createdAt  string
	)
	err := row.Scan(&w.ID, &w.Name, &w.Phone, &w.Role,
		&w.SalaryType, &baseSalary, &joined, &w.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	w.BaseSalary = ledger.ParseMoney(baseSalary)
	if joined != "" {
		w.JoinedDate, _ = ledger.ParseDate(joined)
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &w, nil
}

// =============================================================================
// RATES
// =============================================================================

const rateColumns = `id, task_name, price_per_unit, unit, currency, status, description, materials_json, created_at`

func (sess *session) GetRate(ctx context.Context, id ledger.RateID) (*production.Rate, error) {
	row := sess.q.QueryRowContext(ctx,
		"SELECT "+rateColumns+" FROM rates WHERE id = ?", id)

	r, err := scanRate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "get rate", Err: err}
	}
	return r, nil
}

func (sess *session) ListRates(ctx context.Context) ([]production.Rate, error) {
	rows, err := sess.q.QueryContext(ctx,
		"SELECT "+rateColumns+" FROM rates ORDER BY task_name")
	if err != nil {
		return nil, &ledger.StorageError{Op: "list rates", Err: err}
	}
	defer rows.Close()

	var rates []production.Rate
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, &ledger.StorageError{Op: "scan rate", Err: err}
		}
		rates = append(rates, *r)
	}
	return rates, rows.Err()
}

func (sess *session) SaveRate(ctx context.Context, r production.Rate) error {
	materialsJSON, err := json.Marshal(r.RequiredMaterials)
	if err != nil {
		return &ledger.StorageError{Op: "encode rate materials", Err: err}
	}

	query := `
		INSERT INTO rates (` + rateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			task_name = excluded.task_name,
			price_per_unit = excluded.price_per_unit,
			unit = excluded.unit,
			currency = excluded.currency,
			status = excluded.status,
			description = excluded.description,
			materials_json = excluded.materials_json
	`

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = sess.q.ExecContext(ctx, query,
		r.ID, r.TaskName, r.PricePerUnit.String(), r.Unit, r.Currency,
		r.Status, r.Description, string(materialsJSON),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return &ledger.StorageError{Op: "save rate", Err: err}
	}
	return nil
}

func scanRate(row rowScanner) (*production.Rate, error) {
	var (
		r             production.Rate
		price         string
		materialsJSON string
		createdAt     string
	)
	err := row.Scan(&r.ID, &r.TaskName, &price, &r.Unit, &r.Currency,
		&r.Status, &r.Description, &materialsJSON, &createdAt)
	if err != nil {
		return nil, err
	}
	r.PricePerUnit = ledger.ParseMoney(price)
	if materialsJSON != "" && materialsJSON != "[]" {
		json.Unmarshal([]byte(materialsJSON), &r.RequiredMaterials)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}
