package memory

import (
	"fmt"
	"sort"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// InventoryRepository provides in-memory material master storage
type InventoryRepository struct {
	uow *unitOfWork
}

// Verify interface compliance
var _ repositories.InventoryRepository = (*InventoryRepository)(nil)
var _ repositories.SupplierRepository = (*SupplierRepository)(nil)
var _ repositories.PurchaseOrderRepository = (*PurchaseOrderRepository)(nil)

func (r *InventoryRepository) GetInventoryItem(materialID entities.MaterialID) (*entities.InventoryItem, error) {
	item, ok := r.uow.t.inventory[materialID]
	if !ok {
		return nil, fmt.Errorf("inventory item %s: %w", materialID, repositories.ErrNotFound)
	}
	return item.Clone(), nil
}

func (r *InventoryRepository) GetAllInventoryItems() ([]*entities.InventoryItem, error) {
	items := make([]*entities.InventoryItem, 0, len(r.uow.t.inventory))
	for _, item := range r.uow.t.inventory {
		items = append(items, item.Clone())
	}
	sort.Slice(items, func(i, j int) bool { return items[i].MaterialID < items[j].MaterialID })
	return items, nil
}

func (r *InventoryRepository) SaveInventoryItem(item *entities.InventoryItem) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	r.uow.t.inventory[item.MaterialID] = item.Clone()
	return nil
}

func (r *InventoryRepository) LoadInventoryItems(items []*entities.InventoryItem) error {
	for _, item := range items {
		if err := r.SaveInventoryItem(item); err != nil {
			return err
		}
	}
	return nil
}

// SupplierRepository provides in-memory supplier storage
type SupplierRepository struct {
	uow *unitOfWork
}

func (r *SupplierRepository) GetSupplier(supplierID string) (*entities.Supplier, error) {
	s, ok := r.uow.t.suppliers[supplierID]
	if !ok {
		return nil, fmt.Errorf("supplier %s: %w", supplierID, repositories.ErrNotFound)
	}
	return cloneOf(s), nil
}

func (r *SupplierRepository) GetAllSuppliers() ([]*entities.Supplier, error) {
	out := make([]*entities.Supplier, 0, len(r.uow.t.suppliers))
	for _, s := range r.uow.t.suppliers {
		out = append(out, cloneOf(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SupplierID < out[j].SupplierID })
	return out, nil
}

func (r *SupplierRepository) LoadSuppliers(suppliers []*entities.Supplier) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	for _, s := range suppliers {
		r.uow.t.suppliers[s.SupplierID] = cloneOf(s)
	}
	return nil
}

// PurchaseOrderRepository provides in-memory purchase order storage
type PurchaseOrderRepository struct {
	uow *unitOfWork
}

func (r *PurchaseOrderRepository) GetPurchaseOrder(poID string) (*entities.PurchaseOrder, error) {
	po, ok := r.uow.t.pos[poID]
	if !ok {
		return nil, fmt.Errorf("purchase order %s: %w", poID, repositories.ErrNotFound)
	}
	return po.Clone(), nil
}

func (r *PurchaseOrderRepository) GetAllPurchaseOrders() ([]*entities.PurchaseOrder, error) {
	out := make([]*entities.PurchaseOrder, 0, len(r.uow.t.pos))
	for _, po := range r.uow.t.pos {
		out = append(out, po.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].POID < out[j].POID })
	return out, nil
}

// GetOpenPurchaseOrder returns the open order for the material with the earliest ETA
func (r *PurchaseOrderRepository) GetOpenPurchaseOrder(materialID entities.MaterialID) (*entities.PurchaseOrder, error) {
	var open *entities.PurchaseOrder
	for _, po := range r.uow.t.pos {
		if po.MaterialID != materialID || !po.IsOpen() {
			continue
		}
		if open == nil || po.ETA.Before(open.ETA) || (po.ETA.Equal(open.ETA) && po.POID < open.POID) {
			open = po
		}
	}
	if open == nil {
		return nil, fmt.Errorf("open purchase order for %s: %w", materialID, repositories.ErrNotFound)
	}
	return open.Clone(), nil
}

// SavePurchaseOrder inserts or replaces a purchase order. A second open order
// for the same material is rejected.
func (r *PurchaseOrderRepository) SavePurchaseOrder(po *entities.PurchaseOrder) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	if po.IsOpen() {
		for _, existing := range r.uow.t.pos {
			if existing.POID != po.POID && existing.MaterialID == po.MaterialID && existing.IsOpen() {
				return fmt.Errorf("material %s already has open purchase order %s", po.MaterialID, existing.POID)
			}
		}
	}
	r.uow.t.pos[po.POID] = po.Clone()
	return nil
}
