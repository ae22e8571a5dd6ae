package planning

import (
	"fmt"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/domain/services/occupancy"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
)

// Preempt frees capacity for a spike order: every other non-spike OPEN or
// ON_HOLD order of the same product loses its allocations, plan items and
// product plan in the run and is put ON_HOLD. Occupancy is rebuilt from what
// remains. Returns the ids of the held orders.
func Preempt(uow repositories.UnitOfWork, runID string, spike *entities.Order, rec *events.Recorder) (*occupancy.Tracker, []string, error) {
	orders, err := uow.Orders().GetAllOrders()
	if err != nil {
		return nil, nil, fmt.Errorf("load orders: %w", err)
	}

	var held []string
	for _, order := range orders {
		if order.OrderID == spike.OrderID || order.IsSpike || order.ProductID != spike.ProductID {
			continue
		}
		if order.Status != entities.OrderOpen && order.Status != entities.OrderOnHold {
			continue
		}

		released, err := releaseOrder(uow.Plans(), runID, order.OrderID)
		if err != nil {
			return nil, nil, err
		}

		order.Status = entities.OrderOnHold
		if err := uow.Orders().SaveOrder(order); err != nil {
			return nil, nil, fmt.Errorf("hold order %s: %w", order.OrderID, err)
		}
		held = append(held, order.OrderID)

		rec.Record(events.NewOrderPreemptedEvent(events.OrderPreempted{
			OrderID:      order.OrderID,
			SpikeOrderID: spike.OrderID,
			ProductID:    order.ProductID,
			ReleasedQty:  released,
		}))
	}

	items, err := uow.Plans().GetPlanItemsForRun(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("load plan items: %w", err)
	}
	return occupancy.FromPlanItems(items), held, nil
}

// releaseOrder deletes an order's allocations, their plan items and its product plan
func releaseOrder(plans repositories.PlanRepository, runID, orderID string) (entities.Quantity, error) {
	allocs, err := plans.DeleteAllocationsForOrder(runID, orderID)
	if err != nil {
		return 0, fmt.Errorf("delete allocations of %s: %w", orderID, err)
	}

	var released entities.Quantity
	itemIDs := make([]int64, 0, len(allocs))
	for _, a := range allocs {
		itemIDs = append(itemIDs, a.PlanItemID)
		released += a.AllocatedQty
	}

	// Plan items of the order's plan that lost their allocation link go too
	planID := entities.ProductPlanID(runID, orderID)
	items, err := plans.GetPlanItemsForPlan(planID)
	if err != nil {
		return 0, fmt.Errorf("load plan items of %s: %w", planID, err)
	}
	for _, item := range items {
		itemIDs = append(itemIDs, item.ItemID)
	}

	if err := plans.DeletePlanItems(itemIDs); err != nil {
		return 0, fmt.Errorf("delete plan items of %s: %w", orderID, err)
	}
	if err := plans.DeleteProductPlan(planID); err != nil {
		return 0, fmt.Errorf("delete plan %s: %w", planID, err)
	}
	return released, nil
}

// Resume flips ON_HOLD non-spike orders of a product back to OPEN
func Resume(orders repositories.OrderRepository, productID entities.ProductID, rec *events.Recorder) ([]string, error) {
	all, err := orders.GetAllOrders()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	var resumed []string
	for _, order := range all {
		if order.ProductID != productID || order.IsSpike || order.Status != entities.OrderOnHold {
			continue
		}
		order.Status = entities.OrderOpen
		if err := orders.SaveOrder(order); err != nil {
			return nil, fmt.Errorf("resume order %s: %w", order.OrderID, err)
		}
		resumed = append(resumed, order.OrderID)
		rec.Record(events.NewOrderResumedEvent(events.OrderResumed{OrderID: order.OrderID, ProductID: productID}))
	}
	return resumed, nil
}
