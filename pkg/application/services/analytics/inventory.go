package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// StockSource is the live stock the read views are computed against
type StockSource interface {
	Stock(materialID entities.MaterialID) (entities.Quantity, bool)
	Seed(materialID entities.MaterialID) (entities.Quantity, bool)
}

// OpenPO summarizes the outstanding purchase order of a material
type OpenPO struct {
	POID     string
	Quantity entities.Quantity
	ETA      time.Time
	Status   entities.PurchaseOrderStatus
}

// InventoryRow is one material of the inventory view
type InventoryRow struct {
	MaterialID           entities.MaterialID
	Description          string
	Required             entities.Quantity
	Consumed             entities.Quantity
	CurrentStock         entities.Quantity
	SeedStock            entities.Quantity
	RemainingRequirement entities.Quantity
	UnitCost             decimal.Decimal
	TotalCostRemaining   decimal.Decimal
	PO                   *OpenPO
}

// InventoryView lists every material some current order requires, sorted by
// material id. Materials without a master row are left out.
func InventoryView(uow repositories.UnitOfWork, stock StockSource) ([]InventoryRow, error) {
	orders, err := uow.Orders().GetAllOrders()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}
	bom, err := uow.BOM().GetAllBOMItems()
	if err != nil {
		return nil, fmt.Errorf("load bom: %w", err)
	}
	required := entities.RequiredByMaterial(orders, entities.GroupBOMByProduct(bom))

	items, err := uow.Inventory().GetAllInventoryItems()
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}

	var rows []InventoryRow
	for _, item := range items {
		req, ok := required[item.MaterialID]
		if !ok {
			continue
		}
		seed, current := stockOf(stock, item)
		remaining := entities.RemainingRequirement(req, current)

		row := InventoryRow{
			MaterialID:           item.MaterialID,
			Description:          item.Description,
			Required:             req,
			Consumed:             entities.Quantity(max(0, int64(seed-current))),
			CurrentStock:         current,
			SeedStock:            seed,
			RemainingRequirement: remaining,
			UnitCost:             item.UnitCost,
			TotalCostRemaining:   item.UnitCost.Mul(decimal.NewFromInt(int64(remaining))),
		}
		po, err := openPO(uow.PurchaseOrders(), item.MaterialID)
		if err != nil {
			return nil, err
		}
		row.PO = po
		rows = append(rows, row)
	}
	return rows, nil
}

// stockOf returns seed and live stock, falling back to the master row
func stockOf(stock StockSource, item *entities.InventoryItem) (seed, current entities.Quantity) {
	seed, ok := stock.Seed(item.MaterialID)
	if !ok {
		seed = item.CurrentStock
	}
	current, ok = stock.Stock(item.MaterialID)
	if !ok {
		current = seed
	}
	return seed, current
}

func openPO(pos repositories.PurchaseOrderRepository, materialID entities.MaterialID) (*OpenPO, error) {
	po, err := pos.GetOpenPurchaseOrder(materialID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load open purchase order for %s: %w", materialID, err)
	}
	return &OpenPO{POID: po.POID, Quantity: po.Quantity, ETA: po.ETA, Status: po.Status}, nil
}
