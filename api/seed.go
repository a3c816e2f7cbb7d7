/*
seed.go - Demo dataset

PURPOSE:
  Loads a small garment-factory dataset so the API is explorable without
  a client: raw materials with stock intake, piece-rate and salaried
  workers, rates with and without BOMs, a day of production logs, and an
  unsettled advance.

  Everything goes through the normal engines, so the seeded state obeys
  the same invariants as real data (the journal explains every balance).
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nexus-erp/factory-ledger/inventory"
	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/payroll"
	"github.com/nexus-erp/factory-ledger/production"
)

// SeedDemo wipes the database and loads the demo dataset.
// POST /api/admin/seed
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Store.Reset(ctx); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.loadDemoData(ctx); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.log.Info().Msg("demo dataset loaded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}

func (h *Handler) loadDemoData(ctx context.Context) error {
	// Raw materials
	items := []inventory.Item{
		{ID: "item-cotton", Name: "Cotton Yarn", Category: "Raw Material", Unit: "kg",
			MinStockLevel: ledger.NewQuantity(20)},
		{ID: "item-fabric", Name: "Denim Fabric", Category: "Raw Material", Unit: "yards",
			MinStockLevel: ledger.NewQuantity(50)},
		{ID: "item-buttons", Name: "Metal Buttons", Category: "Accessories", Unit: "pcs",
			MinStockLevel: ledger.NewQuantity(500)},
	}
	for _, item := range items {
		if err := h.Store.SaveItem(ctx, item); err != nil {
			return err
		}
	}

	// Opening stock through the journal, so balances stay explainable
	intakes := []struct {
		item ledger.ItemID
		qty  float64
		cost float64
	}{
		{"item-cotton", 100, 450},
		{"item-fabric", 300, 220},
		{"item-buttons", 5000, 1.5},
	}
	for _, in := range intakes {
		cost := ledger.NewMoney(in.cost)
		_, err := h.Inventory.ApplyTransaction(ctx, inventory.ApplyRequest{
			ItemID:      in.item,
			Type:        inventory.TxIn,
			Quantity:    ledger.NewQuantity(in.qty),
			Reason:      "Opening stock",
			CostPerUnit: &cost,
			PerformedBy: "seed",
		})
		if err != nil {
			return fmt.Errorf("seed intake %s: %w", in.item, err)
		}
	}

	// Workers
	workers := []production.Worker{
		{ID: "worker-rahima", Name: "Rahima Begum", Role: "Sewing Operator",
			SalaryType: production.SalaryPieceRate, Status: production.WorkerActive,
			JoinedDate: ledger.NewDate(2024, 3, 11)},
		{ID: "worker-karim", Name: "Karim Uddin", Role: "Finishing",
			SalaryType: production.SalaryPieceRate, Status: production.WorkerActive,
			JoinedDate: ledger.NewDate(2023, 11, 2)},
		{ID: "worker-salma", Name: "Salma Khatun", Role: "Supervisor",
			SalaryType: production.SalaryMonthly, BaseSalary: ledger.NewMoney(18000),
			Status: production.WorkerActive, JoinedDate: ledger.NewDate(2022, 6, 20)},
	}
	for _, wk := range workers {
		if err := h.Store.SaveWorker(ctx, wk); err != nil {
			return err
		}
	}

	// Rates; sewing consumes materials, ironing does not
	rates := []production.Rate{
		{ID: "rate-sewing", TaskName: "Sewing Grade A", PricePerUnit: ledger.NewMoney(12.5),
			Unit: "pcs", Status: production.RateActive,
			RequiredMaterials: []production.MaterialRequirement{
				{ItemID: "item-fabric", ItemName: "Denim Fabric", QuantityPerUnit: ledger.NewQuantity(1.5)},
				{ItemID: "item-buttons", ItemName: "Metal Buttons", QuantityPerUnit: ledger.NewQuantity(6)},
			}},
		{ID: "rate-ironing", TaskName: "Ironing", PricePerUnit: ledger.NewMoney(3),
			Unit: "pcs", Status: production.RateActive},
	}
	for _, rate := range rates {
		if err := h.Store.SaveRate(ctx, rate); err != nil {
			return err
		}
	}

	// A day of production
	logs := []production.AddLogInput{
		{WorkerID: "worker-rahima", RateID: "rate-sewing",
			Quantity: ledger.NewQuantity(40), DefectQty: ledger.NewQuantity(2),
			Shift: production.ShiftDay, CreatedBy: "seed"},
		{WorkerID: "worker-karim", RateID: "rate-ironing",
			Quantity: ledger.NewQuantity(120),
			Shift: production.ShiftDay, CreatedBy: "seed"},
	}
	for _, in := range logs {
		if _, err := h.Production.AddLog(ctx, in); err != nil {
			return fmt.Errorf("seed log for %s: %w", in.WorkerID, err)
		}
	}

	// An unsettled advance waiting for the next payroll run
	_, err := h.Payroll.AddDeduction(ctx, payroll.AddDeductionInput{
		WorkerID:  "worker-rahima",
		Type:      payroll.DeductionAdvance,
		Amount:    ledger.NewMoney(500),
		Reason:    "Salary advance",
		CreatedBy: "seed",
	})
	return err
}
