package ledger

import "time"

// =============================================================================
// DATE - Day-granular civil date
// =============================================================================

// Date is a calendar day in UTC. Production logs, journal entries, and
// deductions are all keyed by day; finer granularity lives in CreatedAt
// timestamps, never in settlement logic.
type Date struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(o Date) bool        { return d.normalize().Before(o.normalize()) }
func (d Date) After(o Date) bool         { return d.normalize().After(o.normalize()) }
func (d Date) Equal(o Date) bool         { return d.normalize().Equal(o.normalize()) }
func (d Date) BeforeOrEqual(o Date) bool { return d.Before(o) || d.Equal(o) }
func (d Date) AfterOrEqual(o Date) bool  { return d.After(o) || d.Equal(o) }
func (d Date) AddDays(n int) Date        { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) IsZero() bool              { return d.Time.IsZero() }
func (d Date) String() string            { return d.Time.Format(dateLayout) }

// =============================================================================
// PERIOD - Closed settlement range [Start, End]
// =============================================================================

// Period is the date boundary of a payroll settlement. Both endpoints are
// inclusive.
type Period struct {
	Start Date
	End   Date
}

func NewPeriod(start, end Date) Period { return Period{Start: start, End: end} }

// Valid reports whether the period is well-formed (end not before start).
func (p Period) Valid() bool { return !p.End.Before(p.Start) }

// Contains returns true if the date falls within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps returns true if two periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return p.Start.BeforeOrEqual(o.End) && o.Start.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
