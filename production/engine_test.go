package production_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-erp/factory-ledger/inventory"
	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/production"
	"github.com/nexus-erp/factory-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*production.Engine, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return production.NewEngine(store.Production()), store
}

// seedFloor sets up a worker, a yarn item with the given stock, and a rate
// consuming 0.5 kg of yarn per unit.
func seedFloor(t *testing.T, store *sqlite.Store, stock float64) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveWorker(ctx, production.Worker{
		ID: "w1", Name: "Rahima Begum", SalaryType: production.SalaryPieceRate,
		Status: production.WorkerActive, JoinedDate: ledger.Today(),
	}))
	require.NoError(t, store.SaveItem(ctx, inventory.Item{
		ID: "yarn", Name: "Cotton Yarn", Category: "Raw Material", Unit: "kg",
	}))
	require.NoError(t, store.AdjustStock(ctx, "yarn", ledger.NewQuantity(stock)))
	require.NoError(t, store.SaveRate(ctx, production.Rate{
		ID: "r1", TaskName: "Weaving", PricePerUnit: ledger.NewMoney(10),
		Unit: "pcs", Status: production.RateActive,
		RequiredMaterials: []production.MaterialRequirement{
			{ItemID: "yarn", ItemName: "Cotton Yarn", QuantityPerUnit: ledger.NewQuantity(0.5)},
		},
	}))
}

func yarnStock(t *testing.T, store *sqlite.Store) float64 {
	t.Helper()
	item, err := store.GetItem(context.Background(), "yarn")
	require.NoError(t, err)
	require.NotNil(t, item)
	return item.CurrentStock.Float64()
}

// =============================================================================
// ADD LOG - BOM deduction
// =============================================================================

func TestAddLog_BOMDeduction_ExactDepletion(t *testing.T) {
	// GIVEN: 10 kg of yarn and a rate consuming 0.5 kg per unit
	// WHEN: Logging 20 units
	// THEN: Stock is exactly 0, one OUT entry references the log, no warning

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 10)

	result, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "r1", Quantity: ledger.NewQuantity(20), CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MaterialsDeducted)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 0.0, yarnStock(t, store))

	entries, err := store.EntriesByItem(ctx, "yarn")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, inventory.TxOut, entries[0].Type)
	assert.Equal(t, 10.0, entries[0].Quantity.Float64())
	assert.Equal(t, string(result.Log.ID), entries[0].ReferenceID)
}

func TestAddLog_Overdraw_CommitsWithWarning(t *testing.T) {
	// GIVEN: 10 kg of yarn on hand
	// WHEN: Logging 30 units (needs 15 kg)
	// THEN: The log commits anyway, stock goes to -5, and the result carries
	//       the shortage warning

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 10)

	result, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "r1", Quantity: ledger.NewQuantity(30), CreatedBy: "tester",
	})
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "Cotton Yarn: need 15.00, only 10.00 available", result.Warnings[0].String())
	assert.Equal(t, -5.0, yarnStock(t, store))

	saved, err := store.GetLog(ctx, result.Log.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, production.StatusPending, saved.Status)
}

func TestAddLog_GrossQuantityConsumesMaterial(t *testing.T) {
	// GIVEN: A rate consuming 0.5 kg per unit
	// WHEN: Logging 20 units with 4 defects
	// THEN: Material is consumed for the GROSS 20 units (10 kg), while pay
	//       covers only the net 16

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 50)

	result, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "r1",
		Quantity: ledger.NewQuantity(20), DefectQty: ledger.NewQuantity(4),
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, 40.0, yarnStock(t, store))
	assert.Equal(t, 160.0, result.Log.TotalPay.Float64()) // 16 * 10
}

func TestAddLog_PayOnNetQuantity(t *testing.T) {
	// GIVEN: A rate priced at 500 per unit with no BOM
	// WHEN: Logging 100 units with 10 defects
	// THEN: Total pay is (100-10) * 500 = 45000

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 0)
	require.NoError(t, store.SaveRate(ctx, production.Rate{
		ID: "r2", TaskName: "Stitching", PricePerUnit: ledger.NewMoney(500),
		Unit: "pcs", Status: production.RateActive,
	}))

	result, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "r2",
		Quantity: ledger.NewQuantity(100), DefectQty: ledger.NewQuantity(10),
		CreatedBy: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, 45000.0, result.Log.TotalPay.Float64())
	assert.Equal(t, 0, result.MaterialsDeducted)
}

// =============================================================================
// ADD LOG - atomicity and snapshots
// =============================================================================

func TestAddLog_MissingBOMItem_NothingWritten(t *testing.T) {
	// GIVEN: A rate whose BOM references an item that does not exist
	// WHEN: Logging production against it
	// THEN: The call fails and neither a log nor any stock change is visible

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 10)
	require.NoError(t, store.SaveRate(ctx, production.Rate{
		ID: "r-broken", TaskName: "Dyeing", PricePerUnit: ledger.NewMoney(8),
		Unit: "pcs", Status: production.RateActive,
		RequiredMaterials: []production.MaterialRequirement{
			{ItemID: "ghost-dye", QuantityPerUnit: ledger.NewQuantity(1)},
		},
	}))

	_, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "r-broken", Quantity: ledger.NewQuantity(5), CreatedBy: "tester",
	})
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)

	logs, err := engine.LogsByDate(ctx, ledger.Today())
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Equal(t, 10.0, yarnStock(t, store))
}

func TestAddLog_SnapshotsSurviveRateEdits(t *testing.T) {
	// GIVEN: A log recorded at price 10
	// WHEN: The rate's price and task name change afterwards
	// THEN: The stored log still carries the original snapshot and pay

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 50)

	result, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "r1", Quantity: ledger.NewQuantity(10), CreatedBy: "tester",
	})
	require.NoError(t, err)

	require.NoError(t, store.SaveRate(ctx, production.Rate{
		ID: "r1", TaskName: "Weaving Premium", PricePerUnit: ledger.NewMoney(99),
		Unit: "pcs", Status: production.RateActive,
	}))

	saved, err := store.GetLog(ctx, result.Log.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Weaving", saved.TaskName)
	assert.Equal(t, 10.0, saved.PricePerUnit.Float64())
	assert.Equal(t, 100.0, saved.TotalPay.Float64())
}

func TestAddLog_Validation(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 10)

	cases := []struct {
		name string
		in   production.AddLogInput
	}{
		{"missing worker", production.AddLogInput{RateID: "r1", Quantity: ledger.NewQuantity(1)}},
		{"missing rate", production.AddLogInput{WorkerID: "w1", Quantity: ledger.NewQuantity(1)}},
		{"zero quantity", production.AddLogInput{WorkerID: "w1", RateID: "r1"}},
		{"defects exceed quantity", production.AddLogInput{WorkerID: "w1", RateID: "r1",
			Quantity: ledger.NewQuantity(5), DefectQty: ledger.NewQuantity(6)}},
		{"bad shift", production.AddLogInput{WorkerID: "w1", RateID: "r1",
			Quantity: ledger.NewQuantity(5), Shift: "Evening"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.AddLog(ctx, tc.in)
			assert.ErrorIs(t, err, ledger.ErrValidation)
		})
	}

	_, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "nobody", RateID: "r1", Quantity: ledger.NewQuantity(1),
	})
	assert.ErrorIs(t, err, ledger.ErrWorkerNotFound)

	_, err = engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "no-rate", Quantity: ledger.NewQuantity(1),
	})
	assert.ErrorIs(t, err, ledger.ErrRateNotFound)
}

// =============================================================================
// UPDATE / APPROVE / DELETE
// =============================================================================

func TestUpdateLog_RecomputesAtSnapshottedPrice(t *testing.T) {
	// GIVEN: A log at snapshotted price 10, whose rate later jumps to 99
	// WHEN: Correcting the quantities
	// THEN: Pay is recomputed at the ORIGINAL price

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 50)

	result, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "r1", Quantity: ledger.NewQuantity(10), CreatedBy: "tester",
	})
	require.NoError(t, err)

	require.NoError(t, store.SaveRate(ctx, production.Rate{
		ID: "r1", TaskName: "Weaving", PricePerUnit: ledger.NewMoney(99),
		Unit: "pcs", Status: production.RateActive,
	}))

	updated, err := engine.UpdateLog(ctx, result.Log.ID, ledger.NewQuantity(12), ledger.NewQuantity(2))
	require.NoError(t, err)
	assert.Equal(t, 100.0, updated.TotalPay.Float64()) // (12-2) * 10

	// Inventory is untouched by corrections
	assert.Equal(t, 45.0, yarnStock(t, store))
}

func TestLockedLog_IsImmutable(t *testing.T) {
	// GIVEN: A log locked by a payroll run
	// THEN: Update, approve, and delete are all refused

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 50)

	result, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "r1", Quantity: ledger.NewQuantity(10), CreatedBy: "tester",
	})
	require.NoError(t, err)
	require.NoError(t, store.LockLog(ctx, result.Log.ID, "run-1"))

	_, err = engine.UpdateLog(ctx, result.Log.ID, ledger.NewQuantity(5), ledger.ZeroQuantity())
	assert.ErrorIs(t, err, ledger.ErrLogLocked)
	assert.ErrorIs(t, engine.Approve(ctx, result.Log.ID), ledger.ErrLogLocked)
	assert.ErrorIs(t, engine.DeleteLog(ctx, result.Log.ID), ledger.ErrLogLocked)
}

func TestApproveAndDelete(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 50)

	result, err := engine.AddLog(ctx, production.AddLogInput{
		WorkerID: "w1", RateID: "r1", Quantity: ledger.NewQuantity(10), CreatedBy: "tester",
	})
	require.NoError(t, err)

	require.NoError(t, engine.Approve(ctx, result.Log.ID))
	saved, err := store.GetLog(ctx, result.Log.ID)
	require.NoError(t, err)
	assert.Equal(t, production.StatusApproved, saved.Status)

	// Deleting does not return consumed material
	require.NoError(t, engine.DeleteLog(ctx, result.Log.ID))
	saved, err = store.GetLog(ctx, result.Log.ID)
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Equal(t, 45.0, yarnStock(t, store))

	assert.ErrorIs(t, engine.DeleteLog(ctx, result.Log.ID), ledger.ErrLogNotFound)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestAddLog_ConcurrentDeductionsAreExact(t *testing.T) {
	// GIVEN: 10 kg of yarn and two submissions each consuming 5 kg
	// WHEN: They run concurrently
	// THEN: Both commit and the final stock is exactly 0 — no lost update

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedFloor(t, store, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.AddLog(ctx, production.AddLogInput{
				WorkerID: "w1", RateID: "r1", Quantity: ledger.NewQuantity(10), CreatedBy: "tester",
			})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 0.0, yarnStock(t, store))

	sum, err := store.SumEntries(ctx, "yarn")
	require.NoError(t, err)
	assert.Equal(t, -10.0, sum.Float64())
}
