package repositories

import "github.com/vsinha/plantsim/pkg/domain/entities"

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	GetBOMItems(productID entities.ProductID) ([]*entities.BOMItem, error)
	GetAllBOMItems() ([]*entities.BOMItem, error)
	LoadBOMItems(items []*entities.BOMItem) error
}
