package testing

import (
	"context"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// Today is the fixed planning date used across service tests
var Today = time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)

// MustCreateOrder is a helper for tests - panics on validation error.
// dispatchInDays <= 0 leaves the dispatch date unset.
func MustCreateOrder(orderID, productID string, qty entities.Quantity, dispatchInDays, priority int, isSpike bool) *entities.Order {
	var dispatch time.Time
	if dispatchInDays > 0 {
		dispatch = entities.AddDays(Today, dispatchInDays)
	}
	order, err := entities.NewOrder(orderID, entities.ProductID(productID), qty, time.Time{}, dispatch, priority, isSpike)
	if err != nil {
		panic(err)
	}
	return order
}

// SaveOrders stores orders in a single transaction - panics on error
func SaveOrders(store repositories.Store, orders ...*entities.Order) {
	err := store.WithinTx(context.Background(), func(uow repositories.UnitOfWork) error {
		for _, o := range orders {
			if err := uow.Orders().SaveOrder(o); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Snapshot is what a test usually inspects after a planning pass
type Snapshot struct {
	Orders      map[string]*entities.Order
	Allocations []*entities.OrderAllocation
	PlanItems   []*entities.PlanItem
	Run         *entities.PlanRun
}

// Allocated returns the total allocated quantity of an order
func (s *Snapshot) Allocated(orderID string) entities.Quantity {
	return entities.SumAllocated(s.Allocations)[orderID]
}

// Take reads the baseline run with its orders, allocations and plan items - panics on error
func Take(store repositories.Store) *Snapshot {
	snap := &Snapshot{Orders: map[string]*entities.Order{}}
	err := store.View(context.Background(), func(uow repositories.UnitOfWork) error {
		orders, err := uow.Orders().GetAllOrders()
		if err != nil {
			return err
		}
		for _, o := range orders {
			snap.Orders[o.OrderID] = o
		}
		run, err := uow.Plans().FindRunByScenario(entities.BaselineScenario)
		if err != nil {
			return err
		}
		snap.Run = run
		if snap.Allocations, err = uow.Plans().GetAllocationsForRun(run.RunID); err != nil {
			return err
		}
		snap.PlanItems, err = uow.Plans().GetPlanItemsForRun(run.RunID)
		return err
	})
	if err != nil {
		panic(err)
	}
	return snap
}
