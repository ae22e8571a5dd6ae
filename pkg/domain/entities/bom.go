package entities

import "fmt"

// BOMItem is one material requirement of a product: QuantityPerUnit of
// MaterialID is consumed for every unit of ProductID built.
type BOMItem struct {
	ProductID       ProductID
	MaterialID      MaterialID
	QuantityPerUnit Quantity
}

// NewBOMItem creates a validated BOMItem
func NewBOMItem(productID ProductID, materialID MaterialID, qtyPerUnit Quantity) (*BOMItem, error) {
	if string(productID) == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if string(materialID) == "" {
		return nil, fmt.Errorf("material id cannot be empty")
	}
	if qtyPerUnit <= 0 {
		return nil, fmt.Errorf("quantity per unit must be positive, got %d", qtyPerUnit)
	}

	return &BOMItem{
		ProductID:       productID,
		MaterialID:      materialID,
		QuantityPerUnit: qtyPerUnit,
	}, nil
}

// GroupBOMByProduct indexes BOM rows by product, preserving input order
func GroupBOMByProduct(items []*BOMItem) map[ProductID][]*BOMItem {
	byProduct := make(map[ProductID][]*BOMItem)
	for _, b := range items {
		byProduct[b.ProductID] = append(byProduct[b.ProductID], b)
	}
	return byProduct
}
