package testing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/infrastructure/repositories/memory"
)

// MasterData is a complete set of plant master rows
type MasterData struct {
	Lines     []*entities.Line
	BOM       []*entities.BOMItem
	Inventory []*entities.InventoryItem
	Suppliers []*entities.Supplier
}

// mustCreateLine is a helper for tests - panics on validation error
func mustCreateLine(lineID, productID string, dailyCapacity entities.Quantity, oee float64) *entities.Line {
	line, err := entities.NewLine(entities.LineID(lineID), entities.ProductID(productID), dailyCapacity, oee)
	if err != nil {
		panic(err)
	}
	return line
}

// mustCreateBOMItem is a helper for tests - panics on validation error
func mustCreateBOMItem(productID, materialID string, qtyPerUnit entities.Quantity) *entities.BOMItem {
	item, err := entities.NewBOMItem(entities.ProductID(productID), entities.MaterialID(materialID), qtyPerUnit)
	if err != nil {
		panic(err)
	}
	return item
}

// mustCreateInventoryItem is a helper for tests - panics on validation error
func mustCreateInventoryItem(materialID, supplierID string, stock, reorderPoint entities.Quantity, unitCost string) *entities.InventoryItem {
	item, err := entities.NewInventoryItem(entities.MaterialID(materialID), supplierID, stock, decimal.RequireFromString(unitCost))
	if err != nil {
		panic(err)
	}
	item.ReorderPoint = reorderPoint
	item.SafetyStock = reorderPoint / 2
	return item
}

// mustCreateSupplier is a helper for tests - panics on validation error
func mustCreateSupplier(supplierID, name string, leadTimeDays int) *entities.Supplier {
	supplier, err := entities.NewSupplier(supplierID, name, leadTimeDays)
	if err != nil {
		panic(err)
	}
	return supplier
}

// BuildTwoLineData builds the two-line single-product plant: L1 (50/day, OEE 1.0)
// and L2 (50/day, OEE 0.9) both build P-HE, whose BOM uses two materials.
func BuildTwoLineData() *MasterData {
	return &MasterData{
		Lines: []*entities.Line{
			mustCreateLine("L1", "P-HE", 50, 1.0),
			mustCreateLine("L2", "P-HE", 50, 0.9),
		},
		BOM: []*entities.BOMItem{
			mustCreateBOMItem("P-HE", "M014", 1),
			mustCreateBOMItem("P-HE", "M200", 2),
		},
		Inventory: []*entities.InventoryItem{
			mustCreateInventoryItem("M014", "SUP-A", 10000, 200, "12.50"),
			mustCreateInventoryItem("M200", "SUP-B", 20000, 400, "0.75"),
		},
		Suppliers: []*entities.Supplier{
			mustCreateSupplier("SUP-A", "Alpha Semiconductors", 3),
			mustCreateSupplier("SUP-B", "Beta Metals", 5),
		},
	}
}

// BuildSimpleTestData builds a single-line plant with one material of the
// given stock and reorder point, qty-per-unit 1
func BuildSimpleTestData(stock, reorderPoint entities.Quantity) *MasterData {
	return &MasterData{
		Lines: []*entities.Line{
			mustCreateLine("L1", "P-A", 100, 1.0),
		},
		BOM: []*entities.BOMItem{
			mustCreateBOMItem("P-A", "M001", 1),
		},
		Inventory: []*entities.InventoryItem{
			mustCreateInventoryItem("M001", "SUP-A", stock, reorderPoint, "4.00"),
		},
		Suppliers: []*entities.Supplier{
			mustCreateSupplier("SUP-A", "Alpha Semiconductors", 3),
		},
	}
}

// Load writes the master data into a unit of work
func (d *MasterData) Load(uow repositories.UnitOfWork) error {
	if err := uow.Lines().LoadLines(d.Lines); err != nil {
		return err
	}
	if err := uow.BOM().LoadBOMItems(d.BOM); err != nil {
		return err
	}
	if err := uow.Inventory().LoadInventoryItems(d.Inventory); err != nil {
		return err
	}
	return uow.Suppliers().LoadSuppliers(d.Suppliers)
}

// NewStore returns a memory store seeded with the master data - panics on error
func (d *MasterData) NewStore() *memory.Store {
	store := memory.NewStore()
	if err := store.WithinTx(context.Background(), d.Load); err != nil {
		panic(err)
	}
	return store
}
