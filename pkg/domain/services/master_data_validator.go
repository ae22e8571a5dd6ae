package services

import (
	"fmt"

	"github.com/vsinha/plantsim/pkg/domain/entities"
)

// MasterDataValidator checks a scenario's master data for gaps that would
// silently leave orders unplanned or materials unreplenished
type MasterDataValidator struct{}

// NewMasterDataValidator creates a new master data validator
func NewMasterDataValidator() *MasterDataValidator {
	return &MasterDataValidator{}
}

// MasterData is the static input of a plant
type MasterData struct {
	Lines     []*entities.Line
	BOM       []*entities.BOMItem
	Inventory []*entities.InventoryItem
	Suppliers []*entities.Supplier
	Orders    []*entities.Order
}

// ValidationResult contains the results of master data validation
type ValidationResult struct {
	DuplicateBOMItems    []entities.BOMItem
	ProductsWithoutLines []entities.ProductID
	MaterialsWithoutRows []entities.MaterialID
	MissingSuppliers     []entities.MaterialID
	Errors               []string
	Warnings             []string
}

// HasErrors reports whether validation found blocking problems
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Validate performs all master data checks
func (v *MasterDataValidator) Validate(data MasterData) *ValidationResult {
	result := &ValidationResult{
		DuplicateBOMItems:    make([]entities.BOMItem, 0),
		ProductsWithoutLines: make([]entities.ProductID, 0),
		MaterialsWithoutRows: make([]entities.MaterialID, 0),
		MissingSuppliers:     make([]entities.MaterialID, 0),
		Errors:               make([]string, 0),
		Warnings:             make([]string, 0),
	}

	result.DuplicateBOMItems = v.detectDuplicateBOMItems(data.BOM)
	if len(result.DuplicateBOMItems) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate BOM items", len(result.DuplicateBOMItems)))
	}

	v.checkDuplicateIDs(data, result)

	// Orders for products nobody builds are skipped by every planning pass
	linesByProduct := entities.GroupLinesByProduct(data.Lines)
	seenProduct := make(map[entities.ProductID]bool)
	for _, o := range data.Orders {
		if seenProduct[o.ProductID] {
			continue
		}
		seenProduct[o.ProductID] = true
		if len(linesByProduct[o.ProductID]) == 0 {
			result.ProductsWithoutLines = append(result.ProductsWithoutLines, o.ProductID)
			result.Warnings = append(result.Warnings, fmt.Sprintf("No line builds product %s", o.ProductID))
		}
	}

	rows := make(map[entities.MaterialID]*entities.InventoryItem, len(data.Inventory))
	for _, item := range data.Inventory {
		rows[item.MaterialID] = item
	}
	suppliers := make(map[string]bool, len(data.Suppliers))
	for _, s := range data.Suppliers {
		suppliers[s.SupplierID] = true
	}

	seenMaterial := make(map[entities.MaterialID]bool)
	for _, b := range data.BOM {
		if seenMaterial[b.MaterialID] {
			continue
		}
		seenMaterial[b.MaterialID] = true

		row, ok := rows[b.MaterialID]
		if !ok {
			result.MaterialsWithoutRows = append(result.MaterialsWithoutRows, b.MaterialID)
			result.Warnings = append(result.Warnings, fmt.Sprintf("Material %s has no inventory master row", b.MaterialID))
			continue
		}
		if !suppliers[row.SupplierID] {
			result.MissingSuppliers = append(result.MissingSuppliers, b.MaterialID)
			result.Warnings = append(result.Warnings, fmt.Sprintf("Material %s has no resolvable supplier %q", b.MaterialID, row.SupplierID))
		}
	}

	return result
}

// detectDuplicateBOMItems finds BOM rows repeating the same (product, material) pair
func (v *MasterDataValidator) detectDuplicateBOMItems(items []*entities.BOMItem) []entities.BOMItem {
	seen := make(map[string]entities.BOMItem)
	duplicates := make([]entities.BOMItem, 0)

	for _, item := range items {
		key := fmt.Sprintf("%s|%s", item.ProductID, item.MaterialID)
		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, *item, existing)
		} else {
			seen[key] = *item
		}
	}

	return duplicates
}

func (v *MasterDataValidator) checkDuplicateIDs(data MasterData, result *ValidationResult) {
	lineIDs := make(map[entities.LineID]bool)
	for _, ln := range data.Lines {
		if lineIDs[ln.LineID] {
			result.Errors = append(result.Errors, fmt.Sprintf("Duplicate line id %s", ln.LineID))
		}
		lineIDs[ln.LineID] = true
	}

	orderIDs := make(map[string]bool)
	for _, o := range data.Orders {
		if orderIDs[o.OrderID] {
			result.Errors = append(result.Errors, fmt.Sprintf("Duplicate order id %s", o.OrderID))
		}
		orderIDs[o.OrderID] = true
	}

	materialIDs := make(map[entities.MaterialID]bool)
	for _, item := range data.Inventory {
		if materialIDs[item.MaterialID] {
			result.Errors = append(result.Errors, fmt.Sprintf("Duplicate material id %s", item.MaterialID))
		}
		materialIDs[item.MaterialID] = true
	}
}
