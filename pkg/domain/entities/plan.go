package entities

import (
	"fmt"
	"time"
)

// BaselineScenario tags the single long-lived incremental planning run
const BaselineScenario = "BASELINE"

// PlanRun is one incremental planning epoch
type PlanRun struct {
	RunID     string
	Scenario  string
	CreatedAt time.Time
}

// PlanStatus represents the state of a plan or plan item
type PlanStatus string

const (
	PlanPlanned PlanStatus = "PLANNED"
)

// ProductPlan is one order's plan container within a run
type ProductPlan struct {
	PlanID   string
	RunID    string
	OrderID  string
	PlanDate time.Time
	Status   PlanStatus
}

// ProductPlanID is the deterministic plan id for an order within a run
func ProductPlanID(runID, orderID string) string {
	return fmt.Sprintf("PLAN-%s-%s", runID, orderID)
}

// PlanItem is a scheduled (line, product, qty, time window) segment
type PlanItem struct {
	ItemID     int64
	PlanID     string
	LineID     LineID
	ProductID  ProductID
	PlannedQty Quantity
	StartTS    time.Time
	EndTS      time.Time
	Status     PlanStatus
}

// NewPlanItem creates a validated PlanItem; ItemID is assigned by the repository
func NewPlanItem(planID string, lineID LineID, productID ProductID, qty Quantity, start, end time.Time) (*PlanItem, error) {
	if planID == "" {
		return nil, fmt.Errorf("plan id cannot be empty")
	}
	if qty <= 0 {
		return nil, fmt.Errorf("planned quantity must be positive, got %d", qty)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end %v cannot be before start %v", end, start)
	}
	return &PlanItem{
		PlanID:     planID,
		LineID:     lineID,
		ProductID:  productID,
		PlannedQty: qty,
		StartTS:    start,
		EndTS:      end,
		Status:     PlanPlanned,
	}, nil
}

// OrderAllocation links part of an order to a PlanItem on a line
type OrderAllocation struct {
	ID           int64
	RunID        string
	PlanID       string
	OrderID      string
	LineID       LineID
	ProductID    ProductID
	AllocatedQty Quantity
	PlanItemID   int64
}

// SumAllocated totals allocated quantity per order id
func SumAllocated(allocs []*OrderAllocation) map[string]Quantity {
	byOrder := make(map[string]Quantity)
	for _, a := range allocs {
		byOrder[a.OrderID] += a.AllocatedQty
	}
	return byOrder
}
