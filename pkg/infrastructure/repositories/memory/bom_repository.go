package memory

import (
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// BOMRepository provides in-memory Bill of Materials storage
type BOMRepository struct {
	uow *unitOfWork
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

// GetBOMItems returns the product's BOM rows in load order
func (r *BOMRepository) GetBOMItems(productID entities.ProductID) ([]*entities.BOMItem, error) {
	var items []*entities.BOMItem
	for _, b := range r.uow.t.bom {
		if b.ProductID == productID {
			items = append(items, cloneOf(b))
		}
	}
	return items, nil
}

// GetAllBOMItems returns every BOM row in load order
func (r *BOMRepository) GetAllBOMItems() ([]*entities.BOMItem, error) {
	items := make([]*entities.BOMItem, 0, len(r.uow.t.bom))
	for _, b := range r.uow.t.bom {
		items = append(items, cloneOf(b))
	}
	return items, nil
}

// LoadBOMItems appends BOM rows
func (r *BOMRepository) LoadBOMItems(items []*entities.BOMItem) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	for _, b := range items {
		r.uow.t.bom = append(r.uow.t.bom, cloneOf(b))
	}
	return nil
}
