package production

import "github.com/nexus-erp/factory-ledger/ledger"

// =============================================================================
// BOM RESOLUTION - Pure, no stock knowledge
// =============================================================================

// MaterialDemand is one resolved BOM line for a concrete production
// quantity.
type MaterialDemand struct {
	ItemID   ledger.ItemID
	ItemName string
	Required ledger.Quantity
}

// ResolveBOM expands a rate's bill of materials for the given produced
// quantity: required = produced * quantityPerUnit per line. Returns an
// empty slice when the rate carries no BOM.
//
// The produced quantity is the GROSS quantity including defects: defective
// output consumed material too.
func ResolveBOM(rate *Rate, produced ledger.Quantity) []MaterialDemand {
	if rate == nil || len(rate.RequiredMaterials) == 0 {
		return nil
	}
	demands := make([]MaterialDemand, 0, len(rate.RequiredMaterials))
	for _, m := range rate.RequiredMaterials {
		demands = append(demands, MaterialDemand{
			ItemID:   m.ItemID,
			ItemName: m.ItemName,
			Required: produced.Mul(m.QuantityPerUnit),
		})
	}
	return demands
}
