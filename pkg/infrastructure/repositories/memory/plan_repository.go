package memory

import (
	"fmt"
	"sort"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// PlanRepository provides in-memory storage for runs, plans, plan items and allocations
type PlanRepository struct {
	uow *unitOfWork
}

// Verify interface compliance
var _ repositories.PlanRepository = (*PlanRepository)(nil)

func (r *PlanRepository) FindRunByScenario(scenario string) (*entities.PlanRun, error) {
	for _, id := range r.uow.t.runOrder {
		if run := r.uow.t.runs[id]; run.Scenario == scenario {
			return cloneOf(run), nil
		}
	}
	return nil, fmt.Errorf("run with scenario %s: %w", scenario, repositories.ErrNotFound)
}

func (r *PlanRepository) GetLatestRun() (*entities.PlanRun, error) {
	if n := len(r.uow.t.runOrder); n > 0 {
		return cloneOf(r.uow.t.runs[r.uow.t.runOrder[n-1]]), nil
	}
	return nil, fmt.Errorf("latest run: %w", repositories.ErrNotFound)
}

func (r *PlanRepository) SaveRun(run *entities.PlanRun) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	if _, exists := r.uow.t.runs[run.RunID]; !exists {
		r.uow.t.runOrder = append(r.uow.t.runOrder, run.RunID)
	}
	r.uow.t.runs[run.RunID] = cloneOf(run)
	return nil
}

func (r *PlanRepository) GetProductPlan(planID string) (*entities.ProductPlan, error) {
	plan, ok := r.uow.t.plans[planID]
	if !ok {
		return nil, fmt.Errorf("product plan %s: %w", planID, repositories.ErrNotFound)
	}
	return cloneOf(plan), nil
}

func (r *PlanRepository) GetLatestProductPlan(runID string) (*entities.ProductPlan, error) {
	var latest *entities.ProductPlan
	var latestSeq int64 = -1
	for id, plan := range r.uow.t.plans {
		if plan.RunID != runID {
			continue
		}
		if seq := r.uow.t.planOrder[id]; seq > latestSeq {
			latest, latestSeq = plan, seq
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("latest plan of run %s: %w", runID, repositories.ErrNotFound)
	}
	return cloneOf(latest), nil
}

func (r *PlanRepository) SaveProductPlan(plan *entities.ProductPlan) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	if _, exists := r.uow.t.plans[plan.PlanID]; !exists {
		r.uow.t.nextPlanSeq++
		r.uow.t.planOrder[plan.PlanID] = r.uow.t.nextPlanSeq
	}
	r.uow.t.plans[plan.PlanID] = cloneOf(plan)
	return nil
}

func (r *PlanRepository) DeleteProductPlan(planID string) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	delete(r.uow.t.plans, planID)
	delete(r.uow.t.planOrder, planID)
	return nil
}

func (r *PlanRepository) AddPlanItem(item *entities.PlanItem) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	r.uow.t.nextPlanItemID++
	item.ItemID = r.uow.t.nextPlanItemID
	r.uow.t.planItems[item.ItemID] = cloneOf(item)
	return nil
}

// GetPlanItemsForRun returns the run's plan items ordered by id
func (r *PlanRepository) GetPlanItemsForRun(runID string) ([]*entities.PlanItem, error) {
	return r.planItems(func(item *entities.PlanItem) bool {
		plan, ok := r.uow.t.plans[item.PlanID]
		return ok && plan.RunID == runID
	}), nil
}

func (r *PlanRepository) GetPlanItemsForPlan(planID string) ([]*entities.PlanItem, error) {
	return r.planItems(func(item *entities.PlanItem) bool { return item.PlanID == planID }), nil
}

func (r *PlanRepository) planItems(match func(*entities.PlanItem) bool) []*entities.PlanItem {
	var items []*entities.PlanItem
	for _, item := range r.uow.t.planItems {
		if match(item) {
			items = append(items, cloneOf(item))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	return items
}

func (r *PlanRepository) DeletePlanItems(itemIDs []int64) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	for _, id := range itemIDs {
		delete(r.uow.t.planItems, id)
	}
	return nil
}

func (r *PlanRepository) AddAllocation(alloc *entities.OrderAllocation) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	r.uow.t.nextAllocID++
	alloc.ID = r.uow.t.nextAllocID
	r.uow.t.allocs[alloc.ID] = cloneOf(alloc)
	return nil
}

// GetAllocationsForRun returns the run's allocations ordered by id
func (r *PlanRepository) GetAllocationsForRun(runID string) ([]*entities.OrderAllocation, error) {
	return r.allocations(func(a *entities.OrderAllocation) bool { return a.RunID == runID }), nil
}

func (r *PlanRepository) GetAllocationsForOrder(runID, orderID string) ([]*entities.OrderAllocation, error) {
	return r.allocations(func(a *entities.OrderAllocation) bool {
		return a.RunID == runID && a.OrderID == orderID
	}), nil
}

func (r *PlanRepository) DeleteAllocationsForOrder(runID, orderID string) ([]*entities.OrderAllocation, error) {
	if err := r.uow.writable(); err != nil {
		return nil, err
	}
	deleted, _ := r.GetAllocationsForOrder(runID, orderID)
	for _, a := range deleted {
		delete(r.uow.t.allocs, a.ID)
	}
	return deleted, nil
}

func (r *PlanRepository) allocations(match func(*entities.OrderAllocation) bool) []*entities.OrderAllocation {
	var out []*entities.OrderAllocation
	for _, a := range r.uow.t.allocs {
		if match(a) {
			out = append(out, cloneOf(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
