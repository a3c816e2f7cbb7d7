package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-erp/factory-ledger/api"
	"github.com/nexus-erp/factory-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)

	handler := api.NewHandler(store, zerolog.Nop())
	server := httptest.NewServer(api.NewRouter(handler, []string{"*"}))
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})
	return server
}

// do sends a JSON request and decodes the JSON response into out (when the
// status carries a body and out is non-nil).
func do(t *testing.T, server *httptest.Server, method, path string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "tester")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func seedFactory(t *testing.T, server *httptest.Server) {
	t.Helper()

	status := do(t, server, "POST", "/api/inventory/items", map[string]any{
		"id": "item-yarn", "name": "Cotton Yarn", "category": "Raw Material",
		"unit": "kg", "minStockLevel": 20,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = do(t, server, "POST", "/api/inventory/transactions", map[string]any{
		"itemId": "item-yarn", "type": "IN", "quantity": 10,
		"costPerUnit": 450, "reason": "Opening stock",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = do(t, server, "POST", "/api/workers", map[string]any{
		"id": "w1", "name": "Rahima Begum", "salaryType": "PieceRate",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = do(t, server, "POST", "/api/rates", map[string]any{
		"id": "r1", "taskName": "Weaving", "pricePerUnit": 10, "unit": "pcs",
		"requiredMaterials": []map[string]any{
			{"itemId": "item-yarn", "quantityPerUnit": 0.5},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, status)
}

// =============================================================================
// END-TO-END FLOW
// =============================================================================

func TestProductionFlow_LogDeductPreviewFinalize(t *testing.T) {
	// GIVEN: A seeded factory with 10 kg of yarn
	// WHEN: Logging 30 units (needs 15 kg), then settling the period
	// THEN: The log commits with a shortage warning, stock shows -5, and the
	//       finalize locks the log so a re-preview is empty

	server := newTestServer(t)
	seedFactory(t, server)

	var logResult api.AddLogResultDTO
	status := do(t, server, "POST", "/api/production/logs", map[string]any{
		"workerId": "w1", "rateId": "r1", "quantity": 30, "defectQty": 2,
		"date": "2026-08-10",
	}, &logResult)
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, 1, logResult.MaterialsDeducted)
	require.Len(t, logResult.Warnings, 1)
	assert.Equal(t, "Cotton Yarn: need 15.00, only 10.00 available", logResult.Warnings[0])
	assert.Equal(t, 280.0, logResult.Log.TotalPay) // (30-2) * 10
	assert.Equal(t, "Pending", logResult.Log.Status)

	var item api.ItemDTO
	status = do(t, server, "GET", "/api/inventory/items/item-yarn", nil, &item)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, -5.0, item.CurrentStock)
	assert.True(t, item.LowStock)

	status = do(t, server, "POST", "/api/payroll/deductions", map[string]any{
		"workerId": "w1", "type": "advance", "amount": 80, "date": "2026-08-12",
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var preview api.PreviewDTO
	status = do(t, server, "GET", "/api/payroll/preview?start=2026-08-01&end=2026-08-31", nil, &preview)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, preview.Lines, 1)
	assert.Equal(t, 280.0, preview.TotalGross)
	assert.Equal(t, 80.0, preview.TotalDeductions)
	assert.Equal(t, 200.0, preview.TotalNet)

	// Finalize pinned to the previewed settlement set
	var run api.RunDTO
	status = do(t, server, "POST", "/api/payroll/finalize", map[string]any{
		"periodStart": "2026-08-01", "periodEnd": "2026-08-31",
		"expectedLogIds":       preview.Lines[0].LogIDs,
		"expectedDeductionIds": preview.Lines[0].DeductionIDs,
	}, &run)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Finalized", run.Status)
	assert.Equal(t, 200.0, run.TotalNet)
	assert.Equal(t, "tester", run.FinalizedBy)

	// Settling the same period again conflicts instead of double-paying
	status = do(t, server, "POST", "/api/payroll/finalize", map[string]any{
		"periodStart": "2026-08-01", "periodEnd": "2026-08-31",
	}, nil)
	assert.Equal(t, http.StatusConflict, status)

	status = do(t, server, "GET", "/api/payroll/preview?start=2026-08-01&end=2026-08-31", nil, &preview)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, preview.Lines)
	assert.Zero(t, preview.TotalNet)

	var logs []api.ProductionLogDTO
	status = do(t, server, "GET", "/api/production/logs?date=2026-08-10", nil, &logs)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, logs, 1)
	assert.Equal(t, "Locked", logs[0].Status)
	assert.Equal(t, run.ID, logs[0].PayrollRunID)

	// The settled log is immutable: edits and deletes now conflict
	status = do(t, server, "PATCH", "/api/production/logs/"+logs[0].ID, map[string]any{
		"quantity": 10, "defectQty": 0,
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	status = do(t, server, "DELETE", "/api/production/logs/"+logs[0].ID, nil, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestCompensation_RestoresBalanceOverHTTP(t *testing.T) {
	server := newTestServer(t)
	seedFactory(t, server)

	var out api.TransactionResultDTO
	status := do(t, server, "POST", "/api/inventory/transactions", map[string]any{
		"itemId": "item-yarn", "type": "OUT", "quantity": 4, "reason": "wastage, wrong count",
	}, &out)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, 6.0, out.NewBalance)

	var comp api.TransactionResultDTO
	path := fmt.Sprintf("/api/inventory/transactions/%s/compensate", out.Transaction.ID)
	status = do(t, server, "POST", path, map[string]any{"reason": "count was right"}, &comp)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "IN", comp.Transaction.Type)
	assert.Equal(t, 10.0, comp.NewBalance)

	// One compensation per entry
	status = do(t, server, "POST", path, nil, nil)
	assert.Equal(t, http.StatusConflict, status)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestErrorStatuses(t *testing.T) {
	server := newTestServer(t)
	seedFactory(t, server)

	t.Run("unknown worker is 404", func(t *testing.T) {
		status := do(t, server, "GET", "/api/workers/nobody", nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("structurally invalid body is 400", func(t *testing.T) {
		status := do(t, server, "POST", "/api/production/logs", map[string]any{
			"workerId": "w1", "rateId": "r1", "quantity": -3,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("domain validation is 400", func(t *testing.T) {
		status := do(t, server, "POST", "/api/production/logs", map[string]any{
			"workerId": "w1", "rateId": "r1", "quantity": 5, "defectQty": 6,
		}, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown rate is 404", func(t *testing.T) {
		status := do(t, server, "POST", "/api/production/logs", map[string]any{
			"workerId": "w1", "rateId": "no-rate", "quantity": 5,
		}, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("duplicate idempotency key is 409", func(t *testing.T) {
		body := map[string]any{
			"itemId": "item-yarn", "type": "IN", "quantity": 1,
			"reason": "retry test", "idempotencyKey": "once-only",
		}
		status := do(t, server, "POST", "/api/inventory/transactions", body, nil)
		require.Equal(t, http.StatusCreated, status)
		status = do(t, server, "POST", "/api/inventory/transactions", body, nil)
		assert.Equal(t, http.StatusConflict, status)
	})

	t.Run("empty settlement period is 400", func(t *testing.T) {
		status := do(t, server, "POST", "/api/payroll/finalize", map[string]any{
			"periodStart": "2031-01-01", "periodEnd": "2031-01-31",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

// =============================================================================
// ADMIN
// =============================================================================

func TestReconcileEndpoint_CleanAfterSeed(t *testing.T) {
	server := newTestServer(t)

	status := do(t, server, "POST", "/api/admin/seed", nil, nil)
	require.Equal(t, http.StatusOK, status)

	var result api.ReconcileResultDTO
	status = do(t, server, "POST", "/api/admin/reconcile", nil, &result)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, result.Drifts, "seeded data flows through the journal")

	var items []api.ItemDTO
	status = do(t, server, "GET", "/api/inventory/items", nil, &items)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items, 3)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
