package repositories

import "github.com/vsinha/plantsim/pkg/domain/entities"

// InventoryRepository provides access to material master rows and their stock
type InventoryRepository interface {
	GetInventoryItem(materialID entities.MaterialID) (*entities.InventoryItem, error)
	// GetAllInventoryItems returns every row sorted by material id
	GetAllInventoryItems() ([]*entities.InventoryItem, error)
	SaveInventoryItem(item *entities.InventoryItem) error
	LoadInventoryItems(items []*entities.InventoryItem) error
}

// SupplierRepository provides access to supplier master data
type SupplierRepository interface {
	GetSupplier(supplierID string) (*entities.Supplier, error)
	GetAllSuppliers() ([]*entities.Supplier, error)
	LoadSuppliers(suppliers []*entities.Supplier) error
}

// PurchaseOrderRepository provides access to replenishment orders
type PurchaseOrderRepository interface {
	GetPurchaseOrder(poID string) (*entities.PurchaseOrder, error)
	// GetAllPurchaseOrders returns every purchase order sorted by id
	GetAllPurchaseOrders() ([]*entities.PurchaseOrder, error)
	// GetOpenPurchaseOrder returns the non-delivered order for a material, or ErrNotFound
	GetOpenPurchaseOrder(materialID entities.MaterialID) (*entities.PurchaseOrder, error)
	SavePurchaseOrder(po *entities.PurchaseOrder) error
}
