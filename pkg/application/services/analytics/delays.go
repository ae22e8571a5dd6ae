package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// DelayStatus classifies an order's planned completion against its dispatch date
type DelayStatus string

const (
	NotPlanned DelayStatus = "NOT_PLANNED"
	Unknown    DelayStatus = "UNKNOWN"
	Delayed    DelayStatus = "DELAYED"
	AtRisk     DelayStatus = "AT_RISK" // due today or tomorrow
	OnTime     DelayStatus = "ON_TIME"
)

// RootCause explains why an order is or may be late
type RootCause string

const (
	CauseCapacityShortfall RootCause = "CAPACITY_SHORTFALL"
	CauseInventoryShortage RootCause = "INVENTORY_SHORTAGE"
	CauseSupplierDelay     RootCause = "SUPPLIER_DELAY"
)

// OrderDelay is the delay analysis of one order in the latest run
type OrderDelay struct {
	OrderID           string
	ProductID         entities.ProductID
	Quantity          entities.Quantity
	DispatchDate      time.Time
	PlannedCompletion time.Time // zero when nothing is scheduled
	DelayDays         *int      // nil when unknown
	Status            DelayStatus
	RootCauses        []RootCause
	AllocatedQty      entities.Quantity
	ShortfallQty      entities.Quantity
}

// HasCause reports whether cause is among the order's root causes
func (d *OrderDelay) HasCause(cause RootCause) bool {
	for _, c := range d.RootCauses {
		if c == cause {
			return true
		}
	}
	return false
}

// OrderDelays analyzes every order against the latest run
func OrderDelays(uow repositories.UnitOfWork, stock StockSource, now time.Time) ([]OrderDelay, error) {
	run, err := uow.Plans().GetLatestRun()
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}

	orders, err := uow.Orders().GetAllOrders()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	items, err := uow.Plans().GetPlanItemsForRun(run.RunID)
	if err != nil {
		return nil, fmt.Errorf("load plan items: %w", err)
	}
	itemsByID := make(map[int64]*entities.PlanItem, len(items))
	for _, item := range items {
		itemsByID[item.ItemID] = item
	}
	bom, err := uow.BOM().GetAllBOMItems()
	if err != nil {
		return nil, fmt.Errorf("load bom: %w", err)
	}
	bomByProduct := entities.GroupBOMByProduct(bom)

	out := make([]OrderDelay, 0, len(orders))
	for _, order := range orders {
		d, err := analyzeOrder(uow, run.RunID, order, itemsByID, bomByProduct[order.ProductID], stock, now)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func analyzeOrder(
	uow repositories.UnitOfWork,
	runID string,
	order *entities.Order,
	itemsByID map[int64]*entities.PlanItem,
	bom []*entities.BOMItem,
	stock StockSource,
	now time.Time,
) (OrderDelay, error) {
	d := OrderDelay{
		OrderID:      order.OrderID,
		ProductID:    order.ProductID,
		Quantity:     order.Quantity,
		DispatchDate: order.DispatchDate,
	}

	allocs, err := uow.Plans().GetAllocationsForOrder(runID, order.OrderID)
	if err != nil {
		return d, fmt.Errorf("load allocations of %s: %w", order.OrderID, err)
	}
	if len(allocs) == 0 {
		d.Status = NotPlanned
		d.RootCauses = []RootCause{CauseCapacityShortfall}
		d.ShortfallQty = order.Quantity
		return d, nil
	}

	for _, a := range allocs {
		d.AllocatedQty += a.AllocatedQty
		if item, ok := itemsByID[a.PlanItemID]; ok && item.EndTS.After(d.PlannedCompletion) {
			d.PlannedCompletion = item.EndTS
		}
	}
	d.ShortfallQty = entities.RemainingRequirement(order.Quantity, d.AllocatedQty)

	switch {
	case d.PlannedCompletion.IsZero() || order.DispatchDate.IsZero():
		d.Status = Unknown
	default:
		days := entities.DaysBetween(order.DispatchDate, d.PlannedCompletion)
		d.DelayDays = &days
		switch {
		case days > 0:
			d.Status = Delayed
		case days == 0 || days == -1:
			d.Status = AtRisk
		default:
			d.Status = OnTime
		}
	}

	if d.ShortfallQty > 0 {
		d.RootCauses = append(d.RootCauses, CauseCapacityShortfall)
	}
	if buildableUnits(bom, stock) < order.Quantity {
		d.RootCauses = append(d.RootCauses, CauseInventoryShortage)
	}
	late, err := overduePurchaseOrders(uow.PurchaseOrders(), bom, now)
	if err != nil {
		return d, err
	}
	if len(late) > 0 {
		d.RootCauses = append(d.RootCauses, CauseSupplierDelay)
	}
	return d, nil
}

// buildableUnits is how many units live stock supports, ignoring reservations
func buildableUnits(bom []*entities.BOMItem, stock StockSource) entities.Quantity {
	limit := entities.Unbounded
	for _, b := range bom {
		if b.QuantityPerUnit <= 0 {
			continue
		}
		current, _ := stock.Stock(b.MaterialID)
		limit = entities.MinQuantity(limit, current/b.QuantityPerUnit)
	}
	return limit
}

// overduePurchaseOrders lists open purchase orders past their ETA for the BOM materials
func overduePurchaseOrders(pos repositories.PurchaseOrderRepository, bom []*entities.BOMItem, now time.Time) ([]*entities.PurchaseOrder, error) {
	today := entities.DateOf(now)
	var late []*entities.PurchaseOrder
	for _, b := range bom {
		po, err := pos.GetOpenPurchaseOrder(b.MaterialID)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load open purchase order for %s: %w", b.MaterialID, err)
		}
		if entities.DateOf(po.ETA).Before(today) {
			late = append(late, po)
		}
	}
	return late, nil
}
