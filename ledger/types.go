/*
Package ledger provides the shared vocabulary of the factory operations ledger.

PURPOSE:
  This package contains the domain-agnostic building blocks used by every
  engine: exact money and quantity arithmetic, civil dates and settlement
  periods, type-safe identifiers, and the centralized error taxonomy.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: An exact monetary amount (pay, cost, deductions)
  - Quantity: An exact physical quantity (units produced, stock on hand)
  - Typed IDs: Prevent mixing a worker id with a rate id at compile time

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors.
     Floats exist only at the JSON boundary, never in domain code.
  2. Type Safety: Money and Quantity are distinct types; multiplying a
     price by a quantity is the only sanctioned way to cross them.
  3. Auditability: Every generated identity is a UUID, stamped once.

SEE ALSO:
  - date.go: Civil dates and settlement periods
  - errors.go: Error taxonomy shared by all engines
*/
package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Exact monetary amount
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money        { return Money{Value: decimal.NewFromFloat(value)} }
func NewMoneyFromInt(value int64) Money   { return Money{Value: decimal.NewFromInt(value)} }
func ZeroMoney() Money                    { return Money{Value: decimal.Zero} }

// ParseMoney parses a decimal string. Invalid input yields zero, which is
// safe for database round-trips where the value was written by us.
func ParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money          { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money          { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Neg() Money                 { return Money{Value: m.Value.Neg()} }
func (m Money) MulQty(q Quantity) Money    { return Money{Value: m.Value.Mul(q.Value)} }
func (m Money) IsZero() bool               { return m.Value.IsZero() }
func (m Money) IsNegative() bool           { return m.Value.IsNegative() }
func (m Money) IsPositive() bool           { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool         { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool   { return m.Value.GreaterThan(o.Value) }
func (m Money) String() string             { return m.Value.String() }
func (m Money) Float64() float64           { f, _ := m.Value.Float64(); return f }

// =============================================================================
// QUANTITY - Exact physical quantity
// =============================================================================

type Quantity struct {
	Value decimal.Decimal
}

func NewQuantity(value float64) Quantity      { return Quantity{Value: decimal.NewFromFloat(value)} }
func NewQuantityFromInt(value int64) Quantity { return Quantity{Value: decimal.NewFromInt(value)} }
func ZeroQuantity() Quantity                  { return Quantity{Value: decimal.Zero} }

func ParseQuantity(s string) Quantity {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroQuantity()
	}
	return Quantity{Value: d}
}

func (q Quantity) Add(o Quantity) Quantity        { return Quantity{Value: q.Value.Add(o.Value)} }
func (q Quantity) Sub(o Quantity) Quantity        { return Quantity{Value: q.Value.Sub(o.Value)} }
func (q Quantity) Neg() Quantity                  { return Quantity{Value: q.Value.Neg()} }
func (q Quantity) Mul(o Quantity) Quantity        { return Quantity{Value: q.Value.Mul(o.Value)} }
func (q Quantity) IsZero() bool                   { return q.Value.IsZero() }
func (q Quantity) IsNegative() bool               { return q.Value.IsNegative() }
func (q Quantity) IsPositive() bool               { return q.Value.IsPositive() }
func (q Quantity) Equal(o Quantity) bool          { return q.Value.Equal(o.Value) }
func (q Quantity) GreaterThan(o Quantity) bool    { return q.Value.GreaterThan(o.Value) }
func (q Quantity) LessThan(o Quantity) bool       { return q.Value.LessThan(o.Value) }
func (q Quantity) String() string                 { return q.Value.String() }
func (q Quantity) StringFixed(places int32) string { return q.Value.StringFixed(places) }
func (q Quantity) Float64() float64               { f, _ := q.Value.Float64(); return f }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	ItemID      string // inventory item
	TxID        string // inventory journal entry
	WorkerID    string
	RateID      string
	LogID       string // production log
	DeductionID string
	RunID       string // finalized payroll run
)

// NewID returns a fresh UUID string for any identity type.
func NewID() string { return uuid.NewString() }
