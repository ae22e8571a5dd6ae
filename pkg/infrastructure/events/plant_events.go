package events

import (
	"fmt"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
)

const (
	CapacityShortfallEvent  = "CAPACITY_SHORTFALL"
	InventoryShortfallEvent = "INVENTORY_SHORTFALL"
	NoLineForProductEvent   = "NO_LINE_FOR_PRODUCT"
	SupplierMissingEvent    = "SUPPLIER_MISSING"

	OrderCreatedEvent   = "ORDER_CREATED"
	OrderPreemptedEvent = "ORDER_PREEMPTED"
	OrderResumedEvent   = "ORDER_RESUMED"
	OrderAtRiskEvent    = "ORDER_AT_RISK"
	OrderCompletedEvent = "ORDER_COMPLETED"
	PlanCompletedEvent  = "PLAN_COMPLETED"

	MaintenanceRiskEvent = "MAINTENANCE_RISK"
	SupplyIssueEvent     = "SUPPLY_ISSUE"

	POCreatedEvent   = "PO_CREATED"
	PODeliveredEvent = "PO_DELIVERED"
	POExpeditedEvent = "PO_EXPEDITED"
	PODelayedEvent   = "PO_DELAYED"
)

type CapacityShortfall struct {
	OrderID   string             `json:"order_id"`
	ProductID entities.ProductID `json:"product_id"`
	Requested entities.Quantity  `json:"requested"`
	Capacity  entities.Quantity  `json:"capacity"`
	Shortfall entities.Quantity  `json:"shortfall"`
}

type InventoryShortfall struct {
	OrderID        string             `json:"order_id"`
	ProductID      entities.ProductID `json:"product_id"`
	Requested      entities.Quantity  `json:"requested"`
	InventoryLimit entities.Quantity  `json:"inventory_limit"`
	Shortfall      entities.Quantity  `json:"shortfall"`
}

type NoLineForProduct struct {
	OrderID   string             `json:"order_id"`
	ProductID entities.ProductID `json:"product_id"`
}

type SupplierMissing struct {
	MaterialID entities.MaterialID `json:"material_id"`
	SupplierID string              `json:"supplier_id,omitempty"`
	Reason     string              `json:"reason"`
}

type OrderCreated struct {
	OrderID   string             `json:"order_id"`
	ProductID entities.ProductID `json:"product_id"`
	Quantity  entities.Quantity  `json:"quantity"`
	Priority  int                `json:"priority"`
	IsSpike   bool               `json:"is_spike"`
}

type OrderPreempted struct {
	OrderID      string             `json:"order_id"`
	SpikeOrderID string             `json:"spike_order_id"`
	ProductID    entities.ProductID `json:"product_id"`
	ReleasedQty  entities.Quantity  `json:"released_qty"`
}

type OrderResumed struct {
	OrderID   string             `json:"order_id"`
	ProductID entities.ProductID `json:"product_id"`
}

type OrderAtRisk struct {
	OrderID             string    `json:"order_id"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
	DispatchDate        time.Time `json:"dispatch_date"`
	DelayDays           int       `json:"delay_days"`
}

type OrderCompleted struct {
	OrderID      string            `json:"order_id"`
	CompletedQty entities.Quantity `json:"completed_qty"`
}

type PlanCompleted struct {
	RunID          string            `json:"run_id"`
	CompletedUnits entities.Quantity `json:"completed_units"`
	OrderedUnits   entities.Quantity `json:"ordered_units"`
}

type MaintenanceRisk struct {
	LineID    entities.LineID `json:"line_id"`
	UptimePct float64         `json:"uptime_pct"`
}

type SupplyIssue struct {
	LineID       entities.LineID                    `json:"line_id"`
	Status       entities.SemiconductorAvailability `json:"status"`
	InventoryPct float64                            `json:"inventory_pct"`
}

type PurchaseOrderChanged struct {
	POID        string              `json:"po_id"`
	MaterialID  entities.MaterialID `json:"material_id"`
	SupplierID  string              `json:"supplier_id"`
	Quantity    entities.Quantity   `json:"quantity"`
	ETA         time.Time           `json:"eta"`
	PreviousETA time.Time           `json:"previous_eta,omitempty"`
}

func NewCapacityShortfallEvent(data CapacityShortfall) Event {
	return NewEvent(CapacityShortfallEvent, data.OrderID, fmt.Sprintf(
		"Order %s for %s: capacity %d short of %d requested (shortfall %d).",
		data.OrderID, data.ProductID, data.Capacity, data.Requested, data.Shortfall,
	), data)
}

func NewInventoryShortfallEvent(data InventoryShortfall) Event {
	return NewEvent(InventoryShortfallEvent, data.OrderID, fmt.Sprintf(
		"Order %s for %s: inventory supports %d of %d requested (shortfall %d).",
		data.OrderID, data.ProductID, data.InventoryLimit, data.Requested, data.Shortfall,
	), data)
}

func NewNoLineForProductEvent(data NoLineForProduct) Event {
	return NewEvent(NoLineForProductEvent, data.OrderID, fmt.Sprintf(
		"No production line configured for product %s (order %s).", data.ProductID, data.OrderID,
	), data)
}

func NewSupplierMissingEvent(data SupplierMissing) Event {
	return NewEvent(SupplierMissingEvent, string(data.MaterialID), fmt.Sprintf(
		"Cannot replenish %s: %s.", data.MaterialID, data.Reason,
	), data)
}

func NewOrderCreatedEvent(data OrderCreated) Event {
	return NewEvent(OrderCreatedEvent, data.OrderID, fmt.Sprintf(
		"Order %s created for %d x %s (priority %d, spike=%t).",
		data.OrderID, data.Quantity, data.ProductID, data.Priority, data.IsSpike,
	), data)
}

func NewOrderPreemptedEvent(data OrderPreempted) Event {
	return NewEvent(OrderPreemptedEvent, data.OrderID, fmt.Sprintf(
		"Order %s put ON_HOLD due to spike order %s (released %d units).",
		data.OrderID, data.SpikeOrderID, data.ReleasedQty,
	), data)
}

func NewOrderResumedEvent(data OrderResumed) Event {
	return NewEvent(OrderResumedEvent, data.OrderID, fmt.Sprintf(
		"Order %s for %s resumed to OPEN.", data.OrderID, data.ProductID,
	), data)
}

func NewOrderAtRiskEvent(data OrderAtRisk) Event {
	return NewEvent(OrderAtRiskEvent, data.OrderID, fmt.Sprintf(
		"Order %s projected to finish %s, %d day(s) after dispatch %s.",
		data.OrderID, data.EstimatedCompletion.Format("2006-01-02"), data.DelayDays, data.DispatchDate.Format("2006-01-02"),
	), data)
}

func NewOrderCompletedEvent(data OrderCompleted) Event {
	return NewEvent(OrderCompletedEvent, data.OrderID, fmt.Sprintf(
		"Order %s completed (%d units).", data.OrderID, data.CompletedQty,
	), data)
}

func NewPlanCompletedEvent(data PlanCompleted) Event {
	return NewEvent(PlanCompletedEvent, data.RunID, fmt.Sprintf(
		"All orders completed for run %s (%d/%d units). Simulation stopped.",
		data.RunID, data.CompletedUnits, data.OrderedUnits,
	), data)
}

func NewMaintenanceRiskEvent(data MaintenanceRisk) Event {
	return NewEvent(MaintenanceRiskEvent, string(data.LineID), fmt.Sprintf(
		"Line %s uptime %.2f%% below maintenance threshold.", data.LineID, data.UptimePct,
	), data)
}

func NewSupplyIssueEvent(data SupplyIssue) Event {
	return NewEvent(SupplyIssueEvent, string(data.LineID), fmt.Sprintf(
		"Line %s semiconductor supply %s (inventory %.2f%%).", data.LineID, data.Status, data.InventoryPct,
	), data)
}

func NewPOCreatedEvent(data PurchaseOrderChanged) Event {
	return NewEvent(POCreatedEvent, data.POID, fmt.Sprintf(
		"PO %s placed for %d x %s from %s, ETA %s.",
		data.POID, data.Quantity, data.MaterialID, data.SupplierID, data.ETA.Format("2006-01-02"),
	), data)
}

func NewPODeliveredEvent(data PurchaseOrderChanged) Event {
	return NewEvent(PODeliveredEvent, data.POID, fmt.Sprintf(
		"PO %s delivered: %d x %s added to stock.", data.POID, data.Quantity, data.MaterialID,
	), data)
}

func NewPOExpeditedEvent(data PurchaseOrderChanged) Event {
	return NewEvent(POExpeditedEvent, data.POID, fmt.Sprintf(
		"PO %s expedited: ETA %s -> %s.",
		data.POID, data.PreviousETA.Format("2006-01-02"), data.ETA.Format("2006-01-02"),
	), data)
}

func NewPODelayedEvent(data PurchaseOrderChanged) Event {
	return NewEvent(PODelayedEvent, data.POID, fmt.Sprintf(
		"PO %s delayed: ETA %s -> %s.",
		data.POID, data.PreviousETA.Format("2006-01-02"), data.ETA.Format("2006-01-02"),
	), data)
}
