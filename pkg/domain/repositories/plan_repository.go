package repositories

import "github.com/vsinha/plantsim/pkg/domain/entities"

// PlanRepository provides access to plan runs and everything scheduled within them
type PlanRepository interface {
	// FindRunByScenario returns the oldest run with the scenario tag, or ErrNotFound
	FindRunByScenario(scenario string) (*entities.PlanRun, error)
	// GetLatestRun returns the most recently created run, or ErrNotFound
	GetLatestRun() (*entities.PlanRun, error)
	SaveRun(run *entities.PlanRun) error

	GetProductPlan(planID string) (*entities.ProductPlan, error)
	// GetLatestProductPlan returns the most recently saved plan of a run, or ErrNotFound
	GetLatestProductPlan(runID string) (*entities.ProductPlan, error)
	SaveProductPlan(plan *entities.ProductPlan) error
	DeleteProductPlan(planID string) error

	// AddPlanItem stores the item and assigns its ItemID
	AddPlanItem(item *entities.PlanItem) error
	GetPlanItemsForRun(runID string) ([]*entities.PlanItem, error)
	GetPlanItemsForPlan(planID string) ([]*entities.PlanItem, error)
	DeletePlanItems(itemIDs []int64) error

	// AddAllocation stores the allocation and assigns its ID
	AddAllocation(alloc *entities.OrderAllocation) error
	GetAllocationsForRun(runID string) ([]*entities.OrderAllocation, error)
	GetAllocationsForOrder(runID, orderID string) ([]*entities.OrderAllocation, error)
	// DeleteAllocationsForOrder removes and returns the order's allocations in the run
	DeleteAllocationsForOrder(runID, orderID string) ([]*entities.OrderAllocation, error)
}
