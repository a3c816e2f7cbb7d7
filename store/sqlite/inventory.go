/*
inventory.go - Journal and stock projection queries

APPEND-ONLY:
  appendEntry is the only statement that writes inventory_transactions.
  There is no UPDATE or DELETE on that table anywhere in this package;
  corrections are new compensating entries.

COMMUTATIVE ADJUSTMENT:
  AdjustStock is `current_stock = current_stock + ?`, a blind in-place
  increment. Two concurrent deductions compose in either order without a
  read-compute-write race.
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nexus-erp/factory-ledger/inventory"
	"github.com/nexus-erp/factory-ledger/ledger"
)

// =============================================================================
// STORE WRAPPERS - Lock, then delegate to the session
// =============================================================================

func (s *Store) GetItem(ctx context.Context, id ledger.ItemID) (*inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().GetItem(ctx, id)
}

func (s *Store) ListItems(ctx context.Context) ([]inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().ListItems(ctx)
}

func (s *Store) SaveItem(ctx context.Context, item inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().SaveItem(ctx, item)
}

func (s *Store) AppendEntry(ctx context.Context, tx inventory.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().AppendEntry(ctx, tx)
}

func (s *Store) AdjustStock(ctx context.Context, id ledger.ItemID, delta ledger.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().AdjustStock(ctx, id, delta)
}

func (s *Store) SetCostPerUnit(ctx context.Context, id ledger.ItemID, cost ledger.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session().SetCostPerUnit(ctx, id, cost)
}

func (s *Store) GetEntry(ctx context.Context, id ledger.TxID) (*inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().GetEntry(ctx, id)
}

func (s *Store) EntriesByItem(ctx context.Context, id ledger.ItemID) ([]inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().EntriesByItem(ctx, id)
}

func (s *Store) ListEntries(ctx context.Context, limit int) ([]inventory.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().ListEntries(ctx, limit)
}

func (s *Store) SumEntries(ctx context.Context, id ledger.ItemID) (ledger.Quantity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().SumEntries(ctx, id)
}

func (s *Store) HasCompensation(ctx context.Context, id ledger.TxID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session().HasCompensation(ctx, id)
}

// =============================================================================
// ITEMS
// =============================================================================

const itemColumns = `id, name, category, unit, current_stock, min_stock_level, cost_per_unit, last_updated, created_at`

func (sess *session) GetItem(ctx context.Context, id ledger.ItemID) (*inventory.Item, error) {
	row := sess.q.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM inventory_items WHERE id = ?", id)

	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "get item", Err: err}
	}
	return item, nil
}

func (sess *session) ListItems(ctx context.Context) ([]inventory.Item, error) {
	rows, err := sess.q.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM inventory_items ORDER BY name")
	if err != nil {
		return nil, &ledger.StorageError{Op: "list items", Err: err}
	}
	defer rows.Close()

	var items []inventory.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, &ledger.StorageError{Op: "scan item", Err: err}
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// SaveItem creates or updates item metadata. current_stock is deliberately
// absent from the conflict clause: stock only moves through AdjustStock.
func (sess *session) SaveItem(ctx context.Context, item inventory.Item) error {
	query := `
		INSERT INTO inventory_items
		(id, name, category, unit, current_stock, min_stock_level, cost_per_unit, last_updated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			unit = excluded.unit,
			min_stock_level = excluded.min_stock_level,
			last_updated = excluded.last_updated
	`

	now := time.Now().UTC().Format(time.RFC3339)
	createdAt := now
	if !item.CreatedAt.IsZero() {
		createdAt = item.CreatedAt.UTC().Format(time.RFC3339)
	}

	_, err := sess.q.ExecContext(ctx, query,
		item.ID, item.Name, item.Category, item.Unit,
		qtyToUnits(item.CurrentStock),
		qtyToUnits(item.MinStockLevel),
		item.CostPerUnit.String(),
		now, createdAt,
	)
	if err != nil {
		return &ledger.StorageError{Op: "save item", Err: err}
	}
	return nil
}

func (sess *session) AdjustStock(ctx context.Context, id ledger.ItemID, delta ledger.Quantity) error {
	res, err := sess.q.ExecContext(ctx,
		"UPDATE inventory_items SET current_stock = current_stock + ?, last_updated = ? WHERE id = ?",
		qtyToUnits(delta), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return &ledger.StorageError{Op: "adjust stock", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "adjust stock", Err: err}
	}
	if n == 0 {
		return ledger.ErrItemNotFound
	}
	return nil
}

func (sess *session) SetCostPerUnit(ctx context.Context, id ledger.ItemID, cost ledger.Money) error {
	res, err := sess.q.ExecContext(ctx,
		"UPDATE inventory_items SET cost_per_unit = ?, last_updated = ? WHERE id = ?",
		cost.String(), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return &ledger.StorageError{Op: "set cost per unit", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "set cost per unit", Err: err}
	}
	if n == 0 {
		return ledger.ErrItemNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*inventory.Item, error) {
	var (
		item          inventory.Item
		stock, minLvl int64
		cost          string
		lastUpdated   string
		createdAt     string
	)
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Unit,
		&stock, &minLvl, &cost, &lastUpdated, &createdAt)
	if err != nil {
		return nil, err
	}
	item.CurrentStock = unitsToQty(stock)
	item.MinStockLevel = unitsToQty(minLvl)
	item.CostPerUnit = ledger.ParseMoney(cost)
	item.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &item, nil
}

// =============================================================================
// JOURNAL
// =============================================================================

const entryColumns = `id, item_id, item_name, type, quantity, cost_per_unit, reason, reference_id, date, performed_by, idempotency_key, created_at`

func (sess *session) AppendEntry(ctx context.Context, tx inventory.Transaction) error {
	query := `
		INSERT INTO inventory_transactions
		(` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var cost *string
	if tx.CostPerUnit != nil {
		c := tx.CostPerUnit.String()
		cost = &c
	}

	createdAt := tx.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := sess.q.ExecContext(ctx, query,
		tx.ID, tx.ItemID, tx.ItemName, tx.Type,
		qtyToUnits(tx.Quantity),
		cost,
		tx.Reason, tx.ReferenceID,
		tx.Date.String(),
		tx.PerformedBy,
		nullString(tx.IdempotencyKey),
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateIdempotencyKey
		}
		return &ledger.StorageError{Op: "append journal entry", Err: err}
	}
	return nil
}

func (sess *session) GetEntry(ctx context.Context, id ledger.TxID) (*inventory.Transaction, error) {
	txs, err := sess.queryEntries(ctx,
		"SELECT "+entryColumns+" FROM inventory_transactions WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func (sess *session) EntriesByItem(ctx context.Context, id ledger.ItemID) ([]inventory.Transaction, error) {
	return sess.queryEntries(ctx,
		"SELECT "+entryColumns+` FROM inventory_transactions
		 WHERE item_id = ? ORDER BY date DESC, created_at DESC`, id)
}

func (sess *session) ListEntries(ctx context.Context, limit int) ([]inventory.Transaction, error) {
	return sess.queryEntries(ctx,
		"SELECT "+entryColumns+` FROM inventory_transactions
		 ORDER BY created_at DESC LIMIT ?`, limit)
}

// SumEntries recomputes the signed journal total for one item. Integer SUM
// over scaled quantities, so the result is exact.
func (sess *session) SumEntries(ctx context.Context, id ledger.ItemID) (ledger.Quantity, error) {
	var units int64
	err := sess.q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'IN' THEN quantity ELSE -quantity END), 0)
		FROM inventory_transactions WHERE item_id = ?`, id,
	).Scan(&units)
	if err != nil {
		return ledger.ZeroQuantity(), &ledger.StorageError{Op: "sum journal", Err: err}
	}
	return unitsToQty(units), nil
}

func (sess *session) HasCompensation(ctx context.Context, id ledger.TxID) (bool, error) {
	var count int
	err := sess.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM inventory_transactions WHERE reference_id = ?", string(id),
	).Scan(&count)
	if err != nil {
		return false, &ledger.StorageError{Op: "check compensation", Err: err}
	}
	return count > 0, nil
}

func (sess *session) queryEntries(ctx context.Context, query string, args ...any) ([]inventory.Transaction, error) {
	rows, err := sess.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.StorageError{Op: "query journal", Err: err}
	}
	defer rows.Close()

	var txs []inventory.Transaction
	for rows.Next() {
		var (
			tx             inventory.Transaction
			units          int64
			cost           sql.NullString
			date           string
			idempotencyKey sql.NullString
			createdAt      string
		)
		err := rows.Scan(&tx.ID, &tx.ItemID, &tx.ItemName, &tx.Type,
			&units, &cost, &tx.Reason, &tx.ReferenceID,
			&date, &tx.PerformedBy, &idempotencyKey, &createdAt)
		if err != nil {
			return nil, &ledger.StorageError{Op: "scan journal entry", Err: err}
		}
		tx.Quantity = unitsToQty(units)
		if cost.Valid {
			m := ledger.ParseMoney(cost.String)
			tx.CostPerUnit = &m
		}
		tx.Date, _ = ledger.ParseDate(date)
		tx.IdempotencyKey = idempotencyKey.String
		tx.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
