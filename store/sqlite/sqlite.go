/*
Package sqlite provides the SQLite-backed implementation of every storage
interface in the ledger.

PURPOSE:
  One database, one Store. The inventory, production, and payroll engines
  each see their own interface over the same connection, which is what lets
  a production batch write a log row, journal entries, and stock decrements
  in a single transaction.

INTERFACES IMPLEMENTED:
  inventory.TxStore:  journal + cached stock projection
  production.TxStore: worker logs + the inventory primitives for batches
  payroll.TxStore:    deduction ledger, settlement locks, run records

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements touch inventory_transactions
  - current_stock changes only through AdjustStock's commutative increment
  - Settlement locks are single-statement compare-and-set updates

NUMERIC REPRESENTATION:
  Quantities are stored as integers scaled by 10^4 so the commutative
  `current_stock = current_stock + ?` update and SUM() aggregation stay
  exact. Money is stored as decimal TEXT and never enters SQL arithmetic.

CONCURRENCY:
  sync.RWMutex serializes writers over the single SQLite connection. WAL
  mode keeps readers unblocked. With PostgreSQL the database's own
  concurrency control would replace the mutex; the SQL is already written
  to be safe under row-level locking.

USAGE:
  store, err := sqlite.New("./data/factory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  inv := inventory.NewEngine(store.Inventory())
  prod := production.NewEngine(store.Production())
  pay := payroll.NewEngine(store.Payroll())

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - inventory/store.go, production/store.go, payroll/store.go: interfaces
  - inventory.go / production.go / payroll.go here: per-concern queries
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/nexus-erp/factory-ledger/inventory"
	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/payroll"
	"github.com/nexus-erp/factory-ledger/production"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection avoids SQLITE_BUSY under the write mutex and keeps
	// ":memory:" databases from silently forking per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Workers (directory)
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		salary_type TEXT NOT NULL,
		base_salary TEXT NOT NULL DEFAULT '0',
		joined_date TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Active',
		created_at TEXT NOT NULL
	);

	-- Rates (task definitions; BOM serialized as JSON)
	CREATE TABLE IF NOT EXISTS rates (
		id TEXT PRIMARY KEY,
		task_name TEXT NOT NULL,
		price_per_unit TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT 'pcs',
		currency TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'Active',
		description TEXT NOT NULL DEFAULT '',
		materials_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	);

	-- Inventory items: current_stock is a PROJECTION over the journal,
	-- stored as an integer scaled by 10^4 so increments stay exact.
	CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		unit TEXT NOT NULL DEFAULT '',
		current_stock INTEGER NOT NULL DEFAULT 0,
		min_stock_level INTEGER NOT NULL DEFAULT 0,
		cost_per_unit TEXT NOT NULL DEFAULT '0',
		last_updated TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	-- Inventory journal (append-only ledger; quantity scaled by 10^4)
	CREATE TABLE IF NOT EXISTS inventory_transactions (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('IN', 'OUT')),
		quantity INTEGER NOT NULL,
		cost_per_unit TEXT,
		reason TEXT NOT NULL DEFAULT '',
		reference_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		performed_by TEXT NOT NULL DEFAULT '',
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_item_date
		ON inventory_transactions(item_id, date);
	CREATE INDEX IF NOT EXISTS idx_journal_reference
		ON inventory_transactions(reference_id) WHERE reference_id != '';
	CREATE INDEX IF NOT EXISTS idx_journal_created
		ON inventory_transactions(created_at DESC);

	-- Production logs (quantities scaled by 10^4, money as TEXT)
	CREATE TABLE IF NOT EXISTS worker_logs (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		worker_name TEXT NOT NULL,
		rate_id TEXT NOT NULL,
		task_name TEXT NOT NULL,
		price_per_unit TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		defect_qty INTEGER NOT NULL DEFAULT 0,
		total_pay TEXT NOT NULL,
		date TEXT NOT NULL,
		shift TEXT NOT NULL DEFAULT 'Day',
		status TEXT NOT NULL DEFAULT 'Pending',
		payroll_run_id TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_logs_date
		ON worker_logs(date);
	CREATE INDEX IF NOT EXISTS idx_logs_worker
		ON worker_logs(worker_id, date);
	-- Settlement hot path: unsettled logs in a date range
	CREATE INDEX IF NOT EXISTS idx_logs_status_date
		ON worker_logs(status, date);

	-- Deduction ledger
	CREATE TABLE IF NOT EXISTS deductions (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		worker_name TEXT NOT NULL,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT FALSE,
		settled BOOLEAN NOT NULL DEFAULT FALSE,
		payroll_run_id TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deductions_worker
		ON deductions(worker_id, date);
	CREATE INDEX IF NOT EXISTS idx_deductions_settled_date
		ON deductions(settled, date);

	-- Finalized payroll runs (lines serialized as JSON)
	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		status TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		total_gross TEXT NOT NULL,
		total_deductions TEXT NOT NULL,
		total_net TEXT NOT NULL,
		worker_count INTEGER NOT NULL,
		log_count INTEGER NOT NULL,
		deduction_count INTEGER NOT NULL,
		finalized_by TEXT NOT NULL DEFAULT '',
		finalized_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_finalized
		ON payroll_runs(finalized_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSION - All queries run through one of these, bound to the db or a tx
// =============================================================================

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// session implements every data-access method against an executor, which is
// either the shared *sql.DB or an open *sql.Tx. The per-concern files
// (inventory.go, production.go, payroll.go, catalog.go) hold the methods.
type session struct {
	q executor
}

func (s *Store) session() *session { return &session{q: s.db} }

// =============================================================================
// UNIT OF WORK
// =============================================================================

// withTx runs fn inside a database transaction. If fn returns an error the
// transaction rolls back and none of its writes are observable.
func (s *Store) withTx(ctx context.Context, fn func(*session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.StorageError{Op: "begin transaction", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&session{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return &ledger.StorageError{Op: "commit transaction", Err: err}
	}
	return nil
}

// =============================================================================
// ENGINE FACADES - One typed view per engine over the same Store
// =============================================================================
//
// Each engine's TxStore declares its own WithTx signature, so the Store
// cannot satisfy all three directly. These zero-cost wrappers embed the
// Store (inheriting every data method) and pin WithTx to one interface.

type inventoryView struct{ *Store }
type productionView struct{ *Store }
type payrollView struct{ *Store }

// Inventory returns the store as seen by the inventory engine.
func (s *Store) Inventory() inventory.TxStore { return inventoryView{s} }

// Production returns the store as seen by the production engine.
func (s *Store) Production() production.TxStore { return productionView{s} }

// Payroll returns the store as seen by the payroll engine.
func (s *Store) Payroll() payroll.TxStore { return payrollView{s} }

func (v inventoryView) WithTx(ctx context.Context, fn func(inventory.Store) error) error {
	return v.Store.withTx(ctx, func(sess *session) error { return fn(sess) })
}

func (v productionView) WithTx(ctx context.Context, fn func(production.Store) error) error {
	return v.Store.withTx(ctx, func(sess *session) error { return fn(sess) })
}

func (v payrollView) WithTx(ctx context.Context, fn func(payroll.Store) error) error {
	return v.Store.withTx(ctx, func(sess *session) error { return fn(sess) })
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo seeding).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"inventory_transactions", "worker_logs", "deductions",
		"payroll_runs", "inventory_items", "rates", "workers",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Quantities are persisted as integers scaled by 10^4. Four fractional
// digits cover every unit in use (yards, kg, pcs) and keep SQL arithmetic
// on stock exact.
const qtyScale = 4

func qtyToUnits(q ledger.Quantity) int64 {
	return q.Value.Shift(qtyScale).IntPart()
}

func unitsToQty(n int64) ledger.Quantity {
	return ledger.Quantity{Value: decimal.New(n, -qtyScale)}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
