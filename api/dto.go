/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

NUMBERS AT THE BOUNDARY:
  Quantities and money cross the wire as JSON numbers for client
  convenience. They are converted to exact decimals immediately on entry
  and back to floats only on exit; no domain arithmetic ever touches a
  float.

VALIDATION:
  Structural validation (required, oneof, gt) lives in struct tags and
  runs through go-playground/validator in the handlers. Domain rules
  (defect <= quantity, archived rates) stay in the engines.

SEE ALSO:
  - handlers.go: Uses these types
  - inventory/types.go, production/types.go, payroll/types.go
*/
package api

import (
	"time"

	"github.com/nexus-erp/factory-ledger/inventory"
	"github.com/nexus-erp/factory-ledger/payroll"
	"github.com/nexus-erp/factory-ledger/production"
)

// =============================================================================
// WORKERS
// =============================================================================

type WorkerDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone,omitempty"`
	Role       string  `json:"role,omitempty"`
	SalaryType string  `json:"salaryType"`
	BaseSalary float64 `json:"baseSalary"`
	JoinedDate string  `json:"joinedDate,omitempty"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"createdAt,omitempty"`
}

type SaveWorkerRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name" validate:"required"`
	Phone      string  `json:"phone"`
	Role       string  `json:"role"`
	SalaryType string  `json:"salaryType" validate:"required,oneof=PieceRate Monthly Daily"`
	BaseSalary float64 `json:"baseSalary" validate:"gte=0"`
	JoinedDate string  `json:"joinedDate"`
	Status     string  `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

// =============================================================================
// RATES
// =============================================================================

type MaterialRequirementDTO struct {
	ItemID          string  `json:"itemId" validate:"required"`
	ItemName        string  `json:"itemName,omitempty"`
	QuantityPerUnit float64 `json:"quantityPerUnit" validate:"gt=0"`
}

type RateDTO struct {
	ID                string                   `json:"id"`
	TaskName          string                   `json:"taskName"`
	PricePerUnit      float64                  `json:"pricePerUnit"`
	Unit              string                   `json:"unit"`
	Currency          string                   `json:"currency,omitempty"`
	Status            string                   `json:"status"`
	Description       string                   `json:"description,omitempty"`
	RequiredMaterials []MaterialRequirementDTO `json:"requiredMaterials,omitempty"`
	CreatedAt         string                   `json:"createdAt,omitempty"`
}

type SaveRateRequest struct {
	ID                string                   `json:"id"`
	TaskName          string                   `json:"taskName" validate:"required"`
	PricePerUnit      float64                  `json:"pricePerUnit" validate:"gt=0"`
	Unit              string                   `json:"unit"`
	Currency          string                   `json:"currency"`
	Status            string                   `json:"status" validate:"omitempty,oneof=Active Archived"`
	Description       string                   `json:"description"`
	RequiredMaterials []MaterialRequirementDTO `json:"requiredMaterials" validate:"dive"`
}

// =============================================================================
// INVENTORY
// =============================================================================

type ItemDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category,omitempty"`
	Unit          string  `json:"unit,omitempty"`
	CurrentStock  float64 `json:"currentStock"`
	MinStockLevel float64 `json:"minStockLevel"`
	CostPerUnit   float64 `json:"costPerUnit"`
	LowStock      bool    `json:"lowStock"`
	LastUpdated   string  `json:"lastUpdated,omitempty"`
	CreatedAt     string  `json:"createdAt,omitempty"`
}

type SaveItemRequest struct {
	ID            string  `json:"id"`
	Name          string  `json:"name" validate:"required"`
	Category      string  `json:"category"`
	Unit          string  `json:"unit"`
	MinStockLevel float64 `json:"minStockLevel" validate:"gte=0"`
	CostPerUnit   float64 `json:"costPerUnit" validate:"gte=0"`
}

type InventoryTxDTO struct {
	ID             string   `json:"id"`
	ItemID         string   `json:"itemId"`
	ItemName       string   `json:"itemName"`
	Type           string   `json:"type"`
	Quantity       float64  `json:"quantity"`
	CostPerUnit    *float64 `json:"costPerUnit,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	ReferenceID    string   `json:"referenceId,omitempty"`
	Date           string   `json:"date"`
	PerformedBy    string   `json:"performedBy,omitempty"`
	CreatedAt      string   `json:"createdAt,omitempty"`
}

type CreateTransactionRequest struct {
	ItemID         string   `json:"itemId" validate:"required"`
	Type           string   `json:"type" validate:"required,oneof=IN OUT"`
	Quantity       float64  `json:"quantity" validate:"gt=0"`
	CostPerUnit    *float64 `json:"costPerUnit,omitempty" validate:"omitempty,gt=0"`
	Reason         string   `json:"reason" validate:"required"`
	ReferenceID    string   `json:"referenceId"`
	Date           string   `json:"date"`
	IdempotencyKey string   `json:"idempotencyKey"`
}

type TransactionResultDTO struct {
	Transaction InventoryTxDTO `json:"transaction"`
	NewBalance  float64        `json:"newBalance"`
	Warning     *string        `json:"warning,omitempty"`
}

type CompensateRequest struct {
	Reason string `json:"reason"`
}

type DriftDTO struct {
	ItemID        string  `json:"itemId"`
	ItemName      string  `json:"itemName"`
	CachedBalance float64 `json:"cachedBalance"`
	JournalSum    float64 `json:"journalSum"`
	Delta         float64 `json:"delta"`
}

type ReconcileRequest struct {
	Repair bool `json:"repair"`
}

type ReconcileResultDTO struct {
	Drifts   []DriftDTO `json:"drifts"`
	Repaired bool       `json:"repaired"`
}

// =============================================================================
// PRODUCTION LOGS
// =============================================================================

type ProductionLogDTO struct {
	ID           string  `json:"id"`
	WorkerID     string  `json:"workerId"`
	WorkerName   string  `json:"workerName"`
	RateID       string  `json:"rateId"`
	TaskName     string  `json:"taskName"`
	PricePerUnit float64 `json:"pricePerUnit"`
	Quantity     float64 `json:"quantity"`
	DefectQty    float64 `json:"defectQty"`
	TotalPay     float64 `json:"totalPay"`
	Date         string  `json:"date"`
	Shift        string  `json:"shift"`
	Status       string  `json:"status"`
	PayrollRunID string  `json:"payrollRunId,omitempty"`
	CreatedAt    string  `json:"createdAt,omitempty"`
}

type CreateLogRequest struct {
	WorkerID       string  `json:"workerId" validate:"required"`
	RateID         string  `json:"rateId" validate:"required"`
	Quantity       float64 `json:"quantity" validate:"gt=0"`
	DefectQty      float64 `json:"defectQty" validate:"gte=0"`
	Date           string  `json:"date"`
	Shift          string  `json:"shift" validate:"omitempty,oneof=Day Night"`
	IdempotencyKey string  `json:"idempotencyKey"`
}

type UpdateLogRequest struct {
	Quantity  float64 `json:"quantity" validate:"gt=0"`
	DefectQty float64 `json:"defectQty" validate:"gte=0"`
}

type AddLogResultDTO struct {
	Log               ProductionLogDTO `json:"log"`
	MaterialsDeducted int              `json:"materialsDeducted"`
	Warnings          []string         `json:"warnings,omitempty"`
}

// =============================================================================
// PAYROLL
// =============================================================================

type DeductionDTO struct {
	ID           string  `json:"id"`
	WorkerID     string  `json:"workerId"`
	WorkerName   string  `json:"workerName"`
	Type         string  `json:"type"`
	Amount       float64 `json:"amount"`
	Reason       string  `json:"reason,omitempty"`
	Date         string  `json:"date"`
	Recurring    bool    `json:"recurring"`
	Settled      bool    `json:"settled"`
	PayrollRunID string  `json:"payrollRunId,omitempty"`
	CreatedAt    string  `json:"createdAt,omitempty"`
}

type CreateDeductionRequest struct {
	WorkerID  string  `json:"workerId" validate:"required"`
	Type      string  `json:"type" validate:"required,oneof=advance loan penalty tax other"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Reason    string  `json:"reason"`
	Date      string  `json:"date"`
	Recurring bool    `json:"recurring"`
}

type PayrollLineDTO struct {
	WorkerID        string   `json:"workerId"`
	WorkerName      string   `json:"workerName"`
	SalaryType      string   `json:"salaryType"`
	BaseSalary      float64  `json:"baseSalary"`
	Bonus           float64  `json:"bonus"`
	ProductionPay   float64  `json:"productionPay"`
	GrossPay        float64  `json:"grossPay"`
	TotalDeductions float64  `json:"totalDeductions"`
	NetPay          float64  `json:"netPay"`
	UnitsLogged     float64  `json:"unitsLogged"`
	LogCount        int      `json:"logCount"`
	DeductionCount  int      `json:"deductionCount"`
	LogIDs          []string `json:"logIds,omitempty"`
	DeductionIDs    []string `json:"deductionIds,omitempty"`
}

type PreviewDTO struct {
	PeriodStart     string           `json:"periodStart"`
	PeriodEnd       string           `json:"periodEnd"`
	Lines           []PayrollLineDTO `json:"lines"`
	TotalGross      float64          `json:"totalGross"`
	TotalDeductions float64          `json:"totalDeductions"`
	TotalNet        float64          `json:"totalNet"`
}

type FinalizeRequest struct {
	PeriodStart string `json:"periodStart" validate:"required"`
	PeriodEnd   string `json:"periodEnd" validate:"required"`

	// ExpectedLogIDs / ExpectedDeductionIDs echo the previewed settlement
	// set. When sent, the finalize conflicts (409) if the unsettled records
	// changed since the preview was taken.
	ExpectedLogIDs       []string `json:"expectedLogIds"`
	ExpectedDeductionIDs []string `json:"expectedDeductionIds"`
}

type RunDTO struct {
	ID              string           `json:"id"`
	PeriodStart     string           `json:"periodStart"`
	PeriodEnd       string           `json:"periodEnd"`
	Status          string           `json:"status"`
	Lines           []PayrollLineDTO `json:"lines,omitempty"`
	TotalGross      float64          `json:"totalGross"`
	TotalDeductions float64          `json:"totalDeductions"`
	TotalNet        float64          `json:"totalNet"`
	WorkerCount     int              `json:"workerCount"`
	LogCount        int              `json:"logCount"`
	DeductionCount  int              `json:"deductionCount"`
	FinalizedBy     string           `json:"finalizedBy,omitempty"`
	FinalizedAt     string           `json:"finalizedAt"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toWorkerDTO(w production.Worker) WorkerDTO {
	dto := WorkerDTO{
		ID:         string(w.ID),
		Name:       w.Name,
		Phone:      w.Phone,
		Role:       w.Role,
		SalaryType: string(w.SalaryType),
		BaseSalary: w.BaseSalary.Float64(),
		Status:     string(w.Status),
		CreatedAt:  w.CreatedAt.Format(time.RFC3339),
	}
	if !w.JoinedDate.IsZero() {
		dto.JoinedDate = w.JoinedDate.String()
	}
	return dto
}

func toRateDTO(r production.Rate) RateDTO {
	dto := RateDTO{
		ID:           string(r.ID),
		TaskName:     r.TaskName,
		PricePerUnit: r.PricePerUnit.Float64(),
		Unit:         r.Unit,
		Currency:     r.Currency,
		Status:       string(r.Status),
		Description:  r.Description,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
	for _, m := range r.RequiredMaterials {
		dto.RequiredMaterials = append(dto.RequiredMaterials, MaterialRequirementDTO{
			ItemID:          string(m.ItemID),
			ItemName:        m.ItemName,
			QuantityPerUnit: m.QuantityPerUnit.Float64(),
		})
	}
	return dto
}

func toItemDTO(i inventory.Item) ItemDTO {
	return ItemDTO{
		ID:            string(i.ID),
		Name:          i.Name,
		Category:      i.Category,
		Unit:          i.Unit,
		CurrentStock:  i.CurrentStock.Float64(),
		MinStockLevel: i.MinStockLevel.Float64(),
		CostPerUnit:   i.CostPerUnit.Float64(),
		LowStock:      i.BelowMinimum(),
		LastUpdated:   i.LastUpdated.Format(time.RFC3339),
		CreatedAt:     i.CreatedAt.Format(time.RFC3339),
	}
}

func toInventoryTxDTO(tx inventory.Transaction) InventoryTxDTO {
	dto := InventoryTxDTO{
		ID:          string(tx.ID),
		ItemID:      string(tx.ItemID),
		ItemName:    tx.ItemName,
		Type:        string(tx.Type),
		Quantity:    tx.Quantity.Float64(),
		Reason:      tx.Reason,
		ReferenceID: tx.ReferenceID,
		Date:        tx.Date.String(),
		PerformedBy: tx.PerformedBy,
		CreatedAt:   tx.CreatedAt.Format(time.RFC3339),
	}
	if tx.CostPerUnit != nil {
		c := tx.CostPerUnit.Float64()
		dto.CostPerUnit = &c
	}
	return dto
}

func toInventoryTxDTOs(txs []inventory.Transaction) []InventoryTxDTO {
	dtos := make([]InventoryTxDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toInventoryTxDTO(tx)
	}
	return dtos
}

func toLogDTO(l production.WorkerLog) ProductionLogDTO {
	return ProductionLogDTO{
		ID:           string(l.ID),
		WorkerID:     string(l.WorkerID),
		WorkerName:   l.WorkerName,
		RateID:       string(l.RateID),
		TaskName:     l.TaskName,
		PricePerUnit: l.PricePerUnit.Float64(),
		Quantity:     l.Quantity.Float64(),
		DefectQty:    l.DefectQty.Float64(),
		TotalPay:     l.TotalPay.Float64(),
		Date:         l.Date.String(),
		Shift:        string(l.Shift),
		Status:       string(l.Status),
		PayrollRunID: string(l.PayrollRunID),
		CreatedAt:    l.CreatedAt.Format(time.RFC3339),
	}
}

func toDeductionDTO(d payroll.Deduction) DeductionDTO {
	return DeductionDTO{
		ID:           string(d.ID),
		WorkerID:     string(d.WorkerID),
		WorkerName:   d.WorkerName,
		Type:         string(d.Type),
		Amount:       d.Amount.Float64(),
		Reason:       d.Reason,
		Date:         d.Date.String(),
		Recurring:    d.Recurring,
		Settled:      d.Settled,
		PayrollRunID: string(d.PayrollRunID),
		CreatedAt:    d.CreatedAt.Format(time.RFC3339),
	}
}

func toLineDTO(l payroll.Line) PayrollLineDTO {
	dto := PayrollLineDTO{
		WorkerID:        string(l.WorkerID),
		WorkerName:      l.WorkerName,
		SalaryType:      l.SalaryType,
		BaseSalary:      l.BaseSalary.Float64(),
		Bonus:           l.Bonus.Float64(),
		ProductionPay:   l.ProductionPay.Float64(),
		GrossPay:        l.GrossPay.Float64(),
		TotalDeductions: l.TotalDeductions.Float64(),
		NetPay:          l.NetPay.Float64(),
		UnitsLogged:     l.UnitsLogged.Float64(),
		LogCount:        len(l.LogIDs),
		DeductionCount:  len(l.DeductionIDs),
	}
	for _, id := range l.LogIDs {
		dto.LogIDs = append(dto.LogIDs, string(id))
	}
	for _, id := range l.DeductionIDs {
		dto.DeductionIDs = append(dto.DeductionIDs, string(id))
	}
	return dto
}

func toLineDTOs(lines []payroll.Line) []PayrollLineDTO {
	dtos := make([]PayrollLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = toLineDTO(l)
	}
	return dtos
}

func toRunDTO(run payroll.Run, includeLines bool) RunDTO {
	dto := RunDTO{
		ID:              string(run.ID),
		PeriodStart:     run.Period.Start.String(),
		PeriodEnd:       run.Period.End.String(),
		Status:          string(run.Status),
		TotalGross:      run.TotalGross.Float64(),
		TotalDeductions: run.TotalDeductions.Float64(),
		TotalNet:        run.TotalNet.Float64(),
		WorkerCount:     run.WorkerCount,
		LogCount:        run.LogCount,
		DeductionCount:  run.DeductionCount,
		FinalizedBy:     run.FinalizedBy,
		FinalizedAt:     run.FinalizedAt.Format(time.RFC3339),
	}
	if includeLines {
		dto.Lines = toLineDTOs(run.Lines)
	}
	return dto
}
