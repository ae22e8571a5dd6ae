package entities

// MaterialRequirement is the total quantity of a material needed to build
// every current order, compared against live stock.
type MaterialRequirement struct {
	MaterialID           MaterialID
	Required             Quantity
	CurrentStock         Quantity
	RemainingRequirement Quantity
}

// RequiredByMaterial explodes order quantities through the BOM:
// required_total(material) = sum over orders of qty_per_unit * order.Quantity
func RequiredByMaterial(orders []*Order, bomByProduct map[ProductID][]*BOMItem) map[MaterialID]Quantity {
	qtyByProduct := make(map[ProductID]Quantity)
	for _, o := range orders {
		qtyByProduct[o.ProductID] += o.Quantity
	}

	required := make(map[MaterialID]Quantity)
	for productID, total := range qtyByProduct {
		for _, b := range bomByProduct[productID] {
			required[b.MaterialID] += b.QuantityPerUnit * total
		}
	}
	return required
}

// RemainingRequirement is max(0, required - current)
func RemainingRequirement(required, current Quantity) Quantity {
	if rem := required - current; rem > 0 {
		return rem
	}
	return 0
}
