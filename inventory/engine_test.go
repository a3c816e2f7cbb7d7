package inventory_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-erp/factory-ledger/inventory"
	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*inventory.Engine, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return inventory.NewEngine(store.Inventory()), store
}

func seedItem(t *testing.T, store *sqlite.Store, id, name string, minLevel float64) {
	t.Helper()
	err := store.SaveItem(context.Background(), inventory.Item{
		ID:            ledger.ItemID(id),
		Name:          name,
		Category:      "Raw Material",
		Unit:          "kg",
		MinStockLevel: ledger.NewQuantity(minLevel),
	})
	require.NoError(t, err)
}

func stockOf(t *testing.T, store *sqlite.Store, id string) float64 {
	t.Helper()
	item, err := store.GetItem(context.Background(), ledger.ItemID(id))
	require.NoError(t, err)
	require.NotNil(t, item)
	return item.CurrentStock.Float64()
}

// =============================================================================
// APPLY TRANSACTION
// =============================================================================

func TestApplyTransaction_InIncreasesStockAndSetsCost(t *testing.T) {
	// GIVEN: An item with zero stock
	// WHEN: Recording an IN of 100 at cost 450
	// THEN: Stock becomes 100 and the last-cost is updated

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	cost := ledger.NewMoney(450)
	result, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID:      "yarn",
		Type:        inventory.TxIn,
		Quantity:    ledger.NewQuantity(100),
		Reason:      "Purchase",
		CostPerUnit: &cost,
		PerformedBy: "tester",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Warning)
	assert.Equal(t, 100.0, result.NewBalance.Float64())

	item, err := store.GetItem(ctx, "yarn")
	require.NoError(t, err)
	assert.Equal(t, 100.0, item.CurrentStock.Float64())
	assert.True(t, item.CostPerUnit.Equal(cost), "last-cost should track the latest IN")
}

func TestApplyTransaction_ExactDepletion_NoWarning(t *testing.T) {
	// GIVEN: 10 units on hand, no minimum level
	// WHEN: An OUT of exactly 10
	// THEN: Stock is 0 and no warning is raised

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	_, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.NewQuantity(10), Reason: "intake",
	})
	require.NoError(t, err)

	result, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxOut, Quantity: ledger.NewQuantity(10), Reason: "used",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Warning, "exact depletion is healthy")
	assert.Equal(t, 0.0, stockOf(t, store, "yarn"))
}

func TestApplyTransaction_NegativeStock_CommitsWithWarning(t *testing.T) {
	// GIVEN: 10 units on hand
	// WHEN: An OUT of 15
	// THEN: The movement still commits (production never blocks), stock
	//       goes to -5, and the caller gets the advisory warning

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	_, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.NewQuantity(10), Reason: "intake",
	})
	require.NoError(t, err)

	result, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxOut, Quantity: ledger.NewQuantity(15), Reason: "used",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Warning)
	assert.Equal(t, "Cotton Yarn: need 15.00, only 10.00 available", result.Warning.String())
	assert.Equal(t, -5.0, stockOf(t, store, "yarn"))
}

func TestApplyTransaction_Validation(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	cases := []struct {
		name string
		req  inventory.ApplyRequest
	}{
		{"zero quantity", inventory.ApplyRequest{ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.ZeroQuantity(), Reason: "x"}},
		{"negative quantity", inventory.ApplyRequest{ItemID: "yarn", Type: inventory.TxOut, Quantity: ledger.NewQuantity(-3), Reason: "x"}},
		{"bad type", inventory.ApplyRequest{ItemID: "yarn", Type: "SIDEWAYS", Quantity: ledger.NewQuantity(1), Reason: "x"}},
		{"missing reason", inventory.ApplyRequest{ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.NewQuantity(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.ApplyTransaction(ctx, tc.req)
			assert.ErrorIs(t, err, ledger.ErrValidation)
		})
	}

	// Nothing was written by any rejected request
	assert.Equal(t, 0.0, stockOf(t, store, "yarn"))
	entries, err := store.EntriesByItem(ctx, "yarn")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApplyTransaction_UnknownItem(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.ApplyTransaction(context.Background(), inventory.ApplyRequest{
		ItemID: "ghost", Type: inventory.TxIn, Quantity: ledger.NewQuantity(1), Reason: "x",
	})
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
}

func TestApplyTransaction_DuplicateIdempotencyKey(t *testing.T) {
	// GIVEN: A movement committed with an idempotency key
	// WHEN: The same key is submitted again
	// THEN: The retry is rejected and stock is unchanged

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	req := inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.NewQuantity(5),
		Reason: "intake", IdempotencyKey: "intake-001",
	}
	_, err := engine.ApplyTransaction(ctx, req)
	require.NoError(t, err)

	_, err = engine.ApplyTransaction(ctx, req)
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)
	assert.Equal(t, 5.0, stockOf(t, store, "yarn"))
}

func TestApplyTransaction_ConcurrentBalancesAreCommitted(t *testing.T) {
	// GIVEN: Two concurrent INs of 5 on an empty item
	// WHEN: Both commit
	// THEN: Each result reports the balance its own transaction left behind
	//       (5 then 10, in commit order), never a stale pre-write read

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	balances := make([]float64, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
				ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.NewQuantity(5), Reason: "intake",
			})
			assert.NoError(t, err)
			balances[i] = result.NewBalance.Float64()
		}(i)
	}
	wg.Wait()

	sort.Float64s(balances)
	assert.Equal(t, []float64{5, 10}, balances)
	assert.Equal(t, 10.0, stockOf(t, store, "yarn"))
}

// =============================================================================
// CONSERVATION
// =============================================================================

func TestConservation_StockEqualsJournalSum(t *testing.T) {
	// GIVEN: An arbitrary sequence of movements, including fractions
	// THEN: The cached balance always equals the signed journal sum

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "fabric", "Denim Fabric", 0)

	moves := []struct {
		txType inventory.TxType
		qty    float64
	}{
		{inventory.TxIn, 100},
		{inventory.TxOut, 33.25},
		{inventory.TxOut, 0.75},
		{inventory.TxIn, 12.5},
		{inventory.TxOut, 78.5},
	}
	for _, m := range moves {
		_, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
			ItemID: "fabric", Type: m.txType, Quantity: ledger.NewQuantity(m.qty), Reason: "move",
		})
		require.NoError(t, err)

		sum, err := store.SumEntries(ctx, "fabric")
		require.NoError(t, err)
		item, err := store.GetItem(ctx, "fabric")
		require.NoError(t, err)
		assert.True(t, item.CurrentStock.Equal(sum),
			"cached %s != journal %s", item.CurrentStock, sum)
	}

	// 100 - 33.25 - 0.75 + 12.5 - 78.5 = 0, exactly
	assert.Equal(t, 0.0, stockOf(t, store, "fabric"))

	drifts, err := engine.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts, "a clean history reconciles clean")
}

// =============================================================================
// COMPENSATION
// =============================================================================

func TestCompensate_ReversesAndIsOneShot(t *testing.T) {
	// GIVEN: A committed OUT of 15 that should have been 5
	// WHEN: Compensating it
	// THEN: An IN of 15 referencing it restores the balance; a second
	//       compensation of the same entry is rejected

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	_, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.NewQuantity(20), Reason: "intake",
	})
	require.NoError(t, err)

	out, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxOut, Quantity: ledger.NewQuantity(15), Reason: "mistake",
	})
	require.NoError(t, err)

	comp, err := engine.Compensate(ctx, out.Transaction.ID, "tester", "")
	require.NoError(t, err)
	assert.Equal(t, inventory.TxIn, comp.Transaction.Type)
	assert.Equal(t, string(out.Transaction.ID), comp.Transaction.ReferenceID)
	assert.Equal(t, 20.0, stockOf(t, store, "yarn"))

	_, err = engine.Compensate(ctx, out.Transaction.ID, "tester", "")
	assert.ErrorIs(t, err, ledger.ErrAlreadyCompensated)

	_, err = engine.Compensate(ctx, "no-such-tx", "tester", "")
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func TestCompensate_ConcurrentOnlyOneWins(t *testing.T) {
	// GIVEN: Two compensations of the same entry racing each other
	// WHEN: Both run
	// THEN: Exactly one counter-entry commits; the balance is restored once

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	_, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.NewQuantity(20), Reason: "intake",
	})
	require.NoError(t, err)
	out, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxOut, Quantity: ledger.NewQuantity(15), Reason: "mistake",
	})
	require.NoError(t, err)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Compensate(ctx, out.Transaction.ID, "tester", "")
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ledger.ErrAlreadyCompensated)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
	assert.Equal(t, 20.0, stockOf(t, store, "yarn"))

	entries, err := store.EntriesByItem(ctx, "yarn")
	require.NoError(t, err)
	assert.Len(t, entries, 3, "intake, mistake, one compensation")
}

// =============================================================================
// RECONCILE
// =============================================================================

func TestReconcile_DetectsAndRepairsDrift(t *testing.T) {
	// GIVEN: A cached balance corrupted out-of-band
	// WHEN: Reconciling with repair=true
	// THEN: The drift is reported and the projection reset to the journal

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	_, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
		ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.NewQuantity(50), Reason: "intake",
	})
	require.NoError(t, err)

	// Corrupt the projection without a journal entry
	require.NoError(t, store.AdjustStock(ctx, "yarn", ledger.NewQuantity(7)))

	drifts, err := engine.Reconcile(ctx, true)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, 57.0, drifts[0].CachedBalance.Float64())
	assert.Equal(t, 50.0, drifts[0].JournalSum.Float64())
	assert.Equal(t, 7.0, drifts[0].Delta.Float64())

	assert.Equal(t, 50.0, stockOf(t, store, "yarn"))

	drifts, err = engine.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestReconcile_RepairUnderConcurrentMovements(t *testing.T) {
	// GIVEN: Movements landing while a repairing reconcile runs
	// WHEN: Both finish
	// THEN: No movement was mistaken for drift; the balance still equals the
	//       journal sum

	engine, store := newTestEngine(t)
	ctx := context.Background()
	seedItem(t, store, "yarn", "Cotton Yarn", 0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, err := engine.ApplyTransaction(ctx, inventory.ApplyRequest{
				ItemID: "yarn", Type: inventory.TxIn, Quantity: ledger.NewQuantity(1), Reason: "intake",
			})
			assert.NoError(t, err)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			_, err := engine.Reconcile(ctx, true)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	sum, err := store.SumEntries(ctx, "yarn")
	require.NoError(t, err)
	assert.Equal(t, 20.0, sum.Float64())
	assert.Equal(t, 20.0, stockOf(t, store, "yarn"))

	drifts, err := engine.Reconcile(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
