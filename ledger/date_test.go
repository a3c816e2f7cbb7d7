package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-erp/factory-ledger/ledger"
)

func TestDate_ParseAndString(t *testing.T) {
	d, err := ledger.ParseDate("2026-08-15")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-15", d.String())
	assert.True(t, d.Equal(ledger.NewDate(2026, time.August, 15)))

	_, err = ledger.ParseDate("15/08/2026")
	assert.Error(t, err)
}

func TestPeriod_Contains(t *testing.T) {
	p := ledger.NewPeriod(ledger.NewDate(2026, time.August, 1), ledger.NewDate(2026, time.August, 31))

	assert.True(t, p.Contains(ledger.NewDate(2026, time.August, 1)), "start is inclusive")
	assert.True(t, p.Contains(ledger.NewDate(2026, time.August, 31)), "end is inclusive")
	assert.True(t, p.Contains(ledger.NewDate(2026, time.August, 15)))
	assert.False(t, p.Contains(ledger.NewDate(2026, time.July, 31)))
	assert.False(t, p.Contains(ledger.NewDate(2026, time.September, 1)))
}

func TestPeriod_Overlaps(t *testing.T) {
	august := ledger.NewPeriod(ledger.NewDate(2026, time.August, 1), ledger.NewDate(2026, time.August, 31))

	cases := []struct {
		name string
		p    ledger.Period
		want bool
	}{
		{"identical", august, true},
		{"shares one day", ledger.NewPeriod(ledger.NewDate(2026, time.August, 31), ledger.NewDate(2026, time.September, 30)), true},
		{"fully inside", ledger.NewPeriod(ledger.NewDate(2026, time.August, 10), ledger.NewDate(2026, time.August, 20)), true},
		{"before", ledger.NewPeriod(ledger.NewDate(2026, time.July, 1), ledger.NewDate(2026, time.July, 31)), false},
		{"after", ledger.NewPeriod(ledger.NewDate(2026, time.September, 1), ledger.NewDate(2026, time.September, 30)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, august.Overlaps(tc.p))
			assert.Equal(t, tc.want, tc.p.Overlaps(august))
		})
	}
}

func TestPeriod_Valid(t *testing.T) {
	assert.True(t, ledger.NewPeriod(ledger.NewDate(2026, time.August, 1), ledger.NewDate(2026, time.August, 1)).Valid(),
		"single-day period is valid")
	assert.False(t, ledger.NewPeriod(ledger.NewDate(2026, time.August, 2), ledger.NewDate(2026, time.August, 1)).Valid())
}

func TestMoney_ExactArithmetic(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3; float64 would miss.
	sum := ledger.NewMoney(0.1).Add(ledger.NewMoney(0.2))
	assert.True(t, sum.Equal(ledger.NewMoney(0.3)))

	// Pay math: price 12.5 over 40 net units
	pay := ledger.NewMoney(12.5).MulQty(ledger.NewQuantity(40))
	assert.True(t, pay.Equal(ledger.NewMoney(500)))
	assert.Equal(t, "500", pay.String())
}
