/*
handlers.go - HTTP API handlers for the factory operations ledger

PURPOSE:
  Exposes the inventory, production, and payroll engines via REST API.
  Handles HTTP request/response, JSON serialization, structural
  validation, and delegates every decision to domain logic.

ENDPOINTS:
  Workers:
    GET    /api/workers                    List workers
    POST   /api/workers                    Create/update worker
    GET    /api/workers/{id}               Get worker
    GET    /api/workers/{id}/deductions    Worker's deduction history

  Rates:
    GET    /api/rates                      List rates
    POST   /api/rates                      Create/update rate (with BOM)

  Inventory:
    GET    /api/inventory/items            List items with stock
    POST   /api/inventory/items            Create/update item metadata
    GET    /api/inventory/items/{id}       Get item
    GET    /api/inventory/items/{id}/transactions  Item journal history
    GET    /api/inventory/transactions     Recent journal entries
    POST   /api/inventory/transactions     Record manual IN/OUT movement
    POST   /api/inventory/transactions/{id}/compensate  Counter-entry

  Production:
    GET    /api/production/logs            Logs for a day (?date=)
    POST   /api/production/logs            Record work + deduct materials
    PATCH  /api/production/logs/{id}       Edit quantities, recompute pay
    POST   /api/production/logs/{id}/approve
    DELETE /api/production/logs/{id}

  Payroll:
    POST   /api/payroll/deductions         Record a deduction
    DELETE /api/payroll/deductions/{id}
    GET    /api/payroll/preview            Dry-run settlement (?start=&end=)
    POST   /api/payroll/finalize           One-shot settlement
    GET    /api/payroll/runs               Settlement history
    GET    /api/payroll/runs/{id}          Run with per-worker lines

  Admin:
    POST   /api/admin/reconcile            Journal-vs-projection audit
    POST   /api/admin/seed                 Load the demo dataset

AUDIT STAMP:
  The X-Actor header names who performed the action and is stamped onto
  journal entries, logs, deductions, and runs. Defaults to "system".

ERROR HANDLING:
  Domain errors map through the ledger classifiers:
  - 400: validation failures (nothing was written)
  - 404: referenced record does not exist
  - 409: a concurrent actor won (locked log, settled record, dup key)
  - 503: the transactional batch failed; safe to retry as-is
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo dataset
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/nexus-erp/factory-ledger/inventory"
	"github.com/nexus-erp/factory-ledger/ledger"
	"github.com/nexus-erp/factory-ledger/payroll"
	"github.com/nexus-erp/factory-ledger/production"
	"github.com/nexus-erp/factory-ledger/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Inventory  *inventory.Engine
	Production *production.Engine
	Payroll    *payroll.Engine

	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler wires the engines over a shared store.
func NewHandler(store *sqlite.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Store:      store,
		Inventory:  inventory.NewEngine(store.Inventory()),
		Production: production.NewEngine(store.Production()),
		Payroll:    payroll.NewEngine(store.Payroll()),
		validate:   validator.New(),
		log:        log,
	}
}

// decode parses and structurally validates a JSON request body.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// actor returns the audit identity for the request.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "system"
}

func parseOptionalDate(s string) (ledger.Date, error) {
	if s == "" {
		return ledger.Date{}, nil
	}
	return ledger.ParseDate(s)
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ListWorkers returns the worker directory.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := h.Store.ListWorkers(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]WorkerDTO, len(workers))
	for i, wk := range workers {
		dtos[i] = toWorkerDTO(wk)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetWorker returns one worker.
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	id := ledger.WorkerID(chi.URLParam(r, "id"))

	wk, err := h.Store.GetWorker(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if wk == nil {
		h.writeDomainError(w, r, ledger.ErrWorkerNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*wk))
}

// SaveWorker creates or updates a worker.
func (h *Handler) SaveWorker(w http.ResponseWriter, r *http.Request) {
	var req SaveWorkerRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	joined, err := parseOptionalDate(req.JoinedDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid joinedDate format (use YYYY-MM-DD)", err)
		return
	}

	wk := production.Worker{
		ID:         ledger.WorkerID(req.ID),
		Name:       req.Name,
		Phone:      req.Phone,
		Role:       req.Role,
		SalaryType: production.SalaryType(req.SalaryType),
		BaseSalary: ledger.NewMoney(req.BaseSalary),
		JoinedDate: joined,
		Status:     production.WorkerStatus(req.Status),
	}
	if wk.ID == "" {
		wk.ID = ledger.WorkerID(ledger.NewID())
	}
	if wk.Status == "" {
		wk.Status = production.WorkerActive
	}

	if err := h.Store.SaveWorker(r.Context(), wk); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkerDTO(wk))
}

// GetWorkerDeductions returns a worker's deduction history.
func (h *Handler) GetWorkerDeductions(w http.ResponseWriter, r *http.Request) {
	id := ledger.WorkerID(chi.URLParam(r, "id"))

	ds, err := h.Payroll.ListDeductions(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]DeductionDTO, len(ds))
	for i, d := range ds {
		dtos[i] = toDeductionDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RATE HANDLERS
// =============================================================================

// ListRates returns the rate card.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.Store.ListRates(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]RateDTO, len(rates))
	for i, rt := range rates {
		dtos[i] = toRateDTO(rt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveRate creates or updates a rate, resolving BOM item names from the
// inventory so clients only need to send item ids.
func (h *Handler) SaveRate(w http.ResponseWriter, r *http.Request) {
	var req SaveRateRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rate := production.Rate{
		ID:           ledger.RateID(req.ID),
		TaskName:     req.TaskName,
		PricePerUnit: ledger.NewMoney(req.PricePerUnit),
		Unit:         req.Unit,
		Currency:     req.Currency,
		Status:       production.RateStatus(req.Status),
		Description:  req.Description,
	}
	if rate.ID == "" {
		rate.ID = ledger.RateID(ledger.NewID())
	}
	if rate.Status == "" {
		rate.Status = production.RateActive
	}
	if rate.Unit == "" {
		rate.Unit = "pcs"
	}

	for _, m := range req.RequiredMaterials {
		item, err := h.Store.GetItem(r.Context(), ledger.ItemID(m.ItemID))
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		if item == nil {
			h.writeDomainError(w, r, ledger.ErrItemNotFound)
			return
		}
		rate.RequiredMaterials = append(rate.RequiredMaterials, production.MaterialRequirement{
			ItemID:          item.ID,
			ItemName:        item.Name,
			QuantityPerUnit: ledger.NewQuantity(m.QuantityPerUnit),
		})
	}

	if err := h.Store.SaveRate(r.Context(), rate); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRateDTO(rate))
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// ListItems returns all items with their cached balances.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListItems(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]ItemDTO, len(items))
	for i, it := range items {
		dtos[i] = toItemDTO(it)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetItem returns one item.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := ledger.ItemID(chi.URLParam(r, "id"))

	item, err := h.Store.GetItem(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if item == nil {
		h.writeDomainError(w, r, ledger.ErrItemNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(*item))
}

// SaveItem creates or updates item metadata. Stock never moves here.
func (h *Handler) SaveItem(w http.ResponseWriter, r *http.Request) {
	var req SaveItemRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	item := inventory.Item{
		ID:            ledger.ItemID(req.ID),
		Name:          req.Name,
		Category:      req.Category,
		Unit:          req.Unit,
		MinStockLevel: ledger.NewQuantity(req.MinStockLevel),
		CostPerUnit:   ledger.NewMoney(req.CostPerUnit),
	}
	if item.ID == "" {
		item.ID = ledger.ItemID(ledger.NewID())
	}

	if err := h.Store.SaveItem(r.Context(), item); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	// Re-read so the response carries the authoritative stock balance.
	saved, err := h.Store.GetItem(r.Context(), item.ID)
	if err != nil || saved == nil {
		writeJSON(w, http.StatusCreated, toItemDTO(item))
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(*saved))
}

// GetItemTransactions returns the journal history for one item.
func (h *Handler) GetItemTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.ItemID(chi.URLParam(r, "id"))

	txs, err := h.Store.EntriesByItem(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryTxDTOs(txs))
}

// ListTransactions returns recent journal entries across all items.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	txs, err := h.Store.ListEntries(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryTxDTOs(txs))
}

// CreateTransaction records a manual stock movement.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	apply := inventory.ApplyRequest{
		ItemID:         ledger.ItemID(req.ItemID),
		Type:           inventory.TxType(req.Type),
		Quantity:       ledger.NewQuantity(req.Quantity),
		Reason:         req.Reason,
		ReferenceID:    req.ReferenceID,
		Date:           date,
		PerformedBy:    actor(r),
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.CostPerUnit != nil {
		cost := ledger.NewMoney(*req.CostPerUnit)
		apply.CostPerUnit = &cost
	}

	result, err := h.Inventory.ApplyTransaction(r.Context(), apply)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dto := TransactionResultDTO{
		Transaction: toInventoryTxDTO(result.Transaction),
		NewBalance:  result.NewBalance.Float64(),
	}
	if result.Warning != nil {
		msg := result.Warning.String()
		dto.Warning = &msg
	}
	writeJSON(w, http.StatusCreated, dto)
}

// CompensateTransaction writes the counter-entry for a past movement.
func (h *Handler) CompensateTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TxID(chi.URLParam(r, "id"))

	var req CompensateRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	result, err := h.Inventory.Compensate(r.Context(), id, actor(r), req.Reason)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, TransactionResultDTO{
		Transaction: toInventoryTxDTO(result.Transaction),
		NewBalance:  result.NewBalance.Float64(),
	})
}

// =============================================================================
// PRODUCTION HANDLERS
// =============================================================================

// ListLogs returns the production logs for a day (default: today).
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	date := ledger.Today()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := ledger.ParseDate(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		date = parsed
	}

	logs, err := h.Production.LogsByDate(r.Context(), date)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]ProductionLogDTO, len(logs))
	for i, l := range logs {
		dtos[i] = toLogDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLog records a unit of work and deducts BOM materials atomically.
func (h *Handler) CreateLog(w http.ResponseWriter, r *http.Request) {
	var req CreateLogRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Production.AddLog(r.Context(), production.AddLogInput{
		WorkerID:       ledger.WorkerID(req.WorkerID),
		RateID:         ledger.RateID(req.RateID),
		Quantity:       ledger.NewQuantity(req.Quantity),
		DefectQty:      ledger.NewQuantity(req.DefectQty),
		Date:           date,
		Shift:          production.Shift(req.Shift),
		CreatedBy:      actor(r),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dto := AddLogResultDTO{
		Log:               toLogDTO(result.Log),
		MaterialsDeducted: result.MaterialsDeducted,
	}
	for _, warning := range result.Warnings {
		dto.Warnings = append(dto.Warnings, warning.String())
	}
	if len(dto.Warnings) > 0 {
		h.log.Warn().
			Str("log_id", string(result.Log.ID)).
			Strs("warnings", dto.Warnings).
			Msg("production committed with low stock")
	}
	writeJSON(w, http.StatusCreated, dto)
}

// UpdateLog edits quantities on an unsettled log and recomputes pay.
func (h *Handler) UpdateLog(w http.ResponseWriter, r *http.Request) {
	id := ledger.LogID(chi.URLParam(r, "id"))

	var req UpdateLogRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	log, err := h.Production.UpdateLog(r.Context(), id,
		ledger.NewQuantity(req.Quantity), ledger.NewQuantity(req.DefectQty))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLogDTO(*log))
}

// ApproveLog transitions a log Pending -> Approved.
func (h *Handler) ApproveLog(w http.ResponseWriter, r *http.Request) {
	id := ledger.LogID(chi.URLParam(r, "id"))

	if err := h.Production.Approve(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Approved"})
}

// DeleteLog hard-deletes an unsettled log.
func (h *Handler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	id := ledger.LogID(chi.URLParam(r, "id"))

	if err := h.Production.DeleteLog(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// CreateDeduction records a deduction against a worker.
func (h *Handler) CreateDeduction(w http.ResponseWriter, r *http.Request) {
	var req CreateDeductionRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	d, err := h.Payroll.AddDeduction(r.Context(), payroll.AddDeductionInput{
		WorkerID:  ledger.WorkerID(req.WorkerID),
		Type:      payroll.DeductionType(req.Type),
		Amount:    ledger.NewMoney(req.Amount),
		Reason:    req.Reason,
		Date:      date,
		Recurring: req.Recurring,
		CreatedBy: actor(r),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeductionDTO(*d))
}

// DeleteDeduction removes an unsettled deduction.
func (h *Handler) DeleteDeduction(w http.ResponseWriter, r *http.Request) {
	id := ledger.DeductionID(chi.URLParam(r, "id"))

	if err := h.Payroll.DeleteDeduction(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parsePeriod(start, end string) (ledger.Period, error) {
	s, err := ledger.ParseDate(start)
	if err != nil {
		return ledger.Period{}, ledger.Invalid("periodStart", "use YYYY-MM-DD")
	}
	e, err := ledger.ParseDate(end)
	if err != nil {
		return ledger.Period{}, ledger.Invalid("periodEnd", "use YYYY-MM-DD")
	}
	return ledger.NewPeriod(s, e), nil
}

// PreviewPayroll returns the dry-run settlement for a period.
func (h *Handler) PreviewPayroll(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	preview, err := h.Payroll.PreviewPeriod(r.Context(), period)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PreviewDTO{
		PeriodStart:     preview.Period.Start.String(),
		PeriodEnd:       preview.Period.End.String(),
		Lines:           toLineDTOs(preview.Lines),
		TotalGross:      preview.TotalGross.Float64(),
		TotalDeductions: preview.TotalDeductions.Float64(),
		TotalNet:        preview.TotalNet.Float64(),
	})
}

// FinalizePayroll settles a period: locks every consumed log and deduction
// and records the run, all-or-nothing.
func (h *Handler) FinalizePayroll(w http.ResponseWriter, r *http.Request) {
	var req FinalizeRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	period, err := parsePeriod(req.PeriodStart, req.PeriodEnd)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	in := payroll.FinalizeInput{Period: period, FinalizedBy: actor(r)}
	for _, id := range req.ExpectedLogIDs {
		in.ExpectedLogIDs = append(in.ExpectedLogIDs, ledger.LogID(id))
	}
	for _, id := range req.ExpectedDeductionIDs {
		in.ExpectedDeductionIDs = append(in.ExpectedDeductionIDs, ledger.DeductionID(id))
	}

	run, err := h.Payroll.Finalize(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.log.Info().
		Str("run_id", string(run.ID)).
		Str("period", run.Period.String()).
		Int("workers", run.WorkerCount).
		Str("total_net", run.TotalNet.String()).
		Msg("payroll run finalized")
	writeJSON(w, http.StatusCreated, toRunDTO(*run, true))
}

// ListRuns returns the settlement history (without per-worker lines).
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Payroll.ListRuns(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRun returns one finalized run including its lines.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := ledger.RunID(chi.URLParam(r, "id"))

	run, err := h.Payroll.GetRun(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run, true))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Reconcile audits every item's cached balance against the journal.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req ReconcileRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	drifts, err := h.Inventory.Reconcile(r.Context(), req.Repair)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	result := ReconcileResultDTO{Drifts: []DriftDTO{}, Repaired: req.Repair}
	for _, d := range drifts {
		result.Drifts = append(result.Drifts, DriftDTO{
			ItemID:        string(d.ItemID),
			ItemName:      d.ItemName,
			CachedBalance: d.CachedBalance.Float64(),
			JournalSum:    d.JournalSum.Float64(),
			Delta:         d.Delta.Float64(),
		})
	}
	if len(drifts) > 0 {
		h.log.Warn().Int("drifted_items", len(drifts)).Bool("repaired", req.Repair).
			Msg("inventory projection drift detected")
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps ledger errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case ledger.IsConflict(err),
		errors.Is(err, ledger.ErrDuplicateIdempotencyKey),
		errors.Is(err, ledger.ErrAlreadyCompensated):
		writeError(w, http.StatusConflict, "Conflict", err)
	case ledger.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, "Storage failure, retry the operation", err)
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
