package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

var (
	// ErrUnknownOrder is returned when an order id does not exist
	ErrUnknownOrder = errors.New("unknown order")
	// ErrNoPlanRun is returned by order views before the first planning pass
	ErrNoPlanRun = errors.New("no plan run")
)

// TimelineItem is one scheduled segment of an order
type TimelineItem struct {
	LineID       entities.LineID
	AllocatedQty entities.Quantity
	Start        time.Time
	End          time.Time
	Status       entities.PlanStatus
}

// MaterialStatus compares an order's need for a material with live stock
type MaterialStatus struct {
	MaterialID   entities.MaterialID
	Required     entities.Quantity
	CurrentStock entities.Quantity
	PO           *OpenPO
}

// Timeline is the full planned and actual picture of one order
type Timeline struct {
	Order     *entities.Order
	Items     []TimelineItem
	Materials []MaterialStatus
	Progress  *entities.OrderProgress // nil before the first produced unit
}

// OrderTimeline assembles an order's schedule, materials and progress in the latest run
func OrderTimeline(uow repositories.UnitOfWork, stock StockSource, orderID string) (*Timeline, error) {
	order, err := uow.Orders().GetOrder(orderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}

	run, err := uow.Plans().GetLatestRun()
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNoPlanRun
	}
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}

	tl := &Timeline{Order: order}

	allocs, err := uow.Plans().GetAllocationsForOrder(run.RunID, orderID)
	if err != nil {
		return nil, fmt.Errorf("load allocations of %s: %w", orderID, err)
	}
	items, err := uow.Plans().GetPlanItemsForPlan(entities.ProductPlanID(run.RunID, orderID))
	if err != nil {
		return nil, fmt.Errorf("load plan items of %s: %w", orderID, err)
	}
	itemsByID := make(map[int64]*entities.PlanItem, len(items))
	for _, item := range items {
		itemsByID[item.ItemID] = item
	}
	for _, a := range allocs {
		item, ok := itemsByID[a.PlanItemID]
		if !ok {
			continue
		}
		tl.Items = append(tl.Items, TimelineItem{
			LineID:       a.LineID,
			AllocatedQty: a.AllocatedQty,
			Start:        item.StartTS,
			End:          item.EndTS,
			Status:       item.Status,
		})
	}

	bom, err := uow.BOM().GetBOMItems(order.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load bom of %s: %w", order.ProductID, err)
	}
	for _, b := range bom {
		current, _ := stock.Stock(b.MaterialID)
		po, err := openPO(uow.PurchaseOrders(), b.MaterialID)
		if err != nil {
			return nil, err
		}
		tl.Materials = append(tl.Materials, MaterialStatus{
			MaterialID:   b.MaterialID,
			Required:     b.QuantityPerUnit * order.Quantity,
			CurrentStock: current,
			PO:           po,
		})
	}

	progress, err := uow.Simulation().GetLatestProgress(run.RunID, orderID)
	switch {
	case err == nil:
		tl.Progress = progress
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("load progress of %s: %w", orderID, err)
	}
	return tl, nil
}
