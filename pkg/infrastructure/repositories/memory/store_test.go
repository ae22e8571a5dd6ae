package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

var testDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestStore_CommitMakesWritesVisible(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, func(uow repositories.UnitOfWork) error {
		return uow.Orders().SaveOrder(&entities.Order{OrderID: "O1", ProductID: "P1", Quantity: 10, Status: entities.OrderOpen})
	})
	if err != nil {
		t.Fatalf("Expected commit to succeed: %v", err)
	}

	err = store.View(ctx, func(uow repositories.UnitOfWork) error {
		order, err := uow.Orders().GetOrder("O1")
		if err != nil {
			return err
		}
		if order.Quantity != 10 {
			t.Errorf("Expected quantity 10, got %d", order.Quantity)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestStore_RollbackDiscardsEverything(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	boom := errors.New("journal unavailable")

	err := store.WithinTx(ctx, func(uow repositories.UnitOfWork) error {
		if err := uow.Orders().SaveOrder(&entities.Order{OrderID: "O1", ProductID: "P1", Quantity: 10}); err != nil {
			return err
		}
		if err := uow.Plans().SaveRun(&entities.PlanRun{RunID: "RUN-1", Scenario: entities.BaselineScenario}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the callback error, got %v", err)
	}

	_ = store.View(ctx, func(uow repositories.UnitOfWork) error {
		if _, err := uow.Orders().GetOrder("O1"); !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("Expected rolled back order to be absent, got %v", err)
		}
		if _, err := uow.Plans().GetLatestRun(); !errors.Is(err, repositories.ErrNotFound) {
			t.Errorf("Expected rolled back run to be absent, got %v", err)
		}
		return nil
	})
}

func TestStore_ViewIsReadOnly(t *testing.T) {
	store := NewStore()
	err := store.View(context.Background(), func(uow repositories.UnitOfWork) error {
		return uow.Orders().SaveOrder(&entities.Order{OrderID: "O1"})
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly, got %v", err)
	}
}

func TestStore_ReturnedRowsAreCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	mustTx(t, store, func(uow repositories.UnitOfWork) error {
		return uow.Orders().SaveOrder(&entities.Order{OrderID: "O1", Status: entities.OrderOpen})
	})

	mustTx(t, store, func(uow repositories.UnitOfWork) error {
		order, _ := uow.Orders().GetOrder("O1")
		order.Status = entities.OrderOnHold // mutated but never saved
		return nil
	})

	_ = store.View(ctx, func(uow repositories.UnitOfWork) error {
		order, _ := uow.Orders().GetOrder("O1")
		if order.Status != entities.OrderOpen {
			t.Errorf("Expected unsaved mutation to be invisible, got %s", order.Status)
		}
		return nil
	})
}

func TestStore_CancelledContext(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.WithinTx(ctx, func(repositories.UnitOfWork) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("Expected cancelled context to skip the unit of work, got err=%v called=%v", err, called)
	}
}

func TestPlanRepository_RunsPlansAndAllocations(t *testing.T) {
	store := NewStore()

	mustTx(t, store, func(uow repositories.UnitOfWork) error {
		plans := uow.Plans()
		if err := plans.SaveRun(&entities.PlanRun{RunID: "RUN-1", Scenario: entities.BaselineScenario, CreatedAt: testDate}); err != nil {
			return err
		}
		if err := plans.SaveRun(&entities.PlanRun{RunID: "RUN-2", Scenario: "WHATIF", CreatedAt: testDate}); err != nil {
			return err
		}
		for _, orderID := range []string{"O1", "O2"} {
			planID := entities.ProductPlanID("RUN-1", orderID)
			if err := plans.SaveProductPlan(&entities.ProductPlan{PlanID: planID, RunID: "RUN-1", OrderID: orderID}); err != nil {
				return err
			}
			item := &entities.PlanItem{PlanID: planID, LineID: "L1", PlannedQty: 5, StartTS: testDate, EndTS: testDate}
			if err := plans.AddPlanItem(item); err != nil {
				return err
			}
			if err := plans.AddAllocation(&entities.OrderAllocation{RunID: "RUN-1", PlanID: planID, OrderID: orderID, LineID: "L1", AllocatedQty: 5, PlanItemID: item.ItemID}); err != nil {
				return err
			}
		}
		return nil
	})

	_ = store.View(context.Background(), func(uow repositories.UnitOfWork) error {
		plans := uow.Plans()
		run, err := plans.FindRunByScenario(entities.BaselineScenario)
		if err != nil || run.RunID != "RUN-1" {
			t.Errorf("Expected baseline RUN-1, got %v %v", run, err)
		}
		latest, _ := plans.GetLatestRun()
		if latest.RunID != "RUN-2" {
			t.Errorf("Expected latest run RUN-2, got %s", latest.RunID)
		}
		latestPlan, _ := plans.GetLatestProductPlan("RUN-1")
		if latestPlan.OrderID != "O2" {
			t.Errorf("Expected latest plan for O2, got %s", latestPlan.OrderID)
		}
		items, _ := plans.GetPlanItemsForRun("RUN-1")
		if len(items) != 2 || items[0].ItemID != 1 || items[1].ItemID != 2 {
			t.Errorf("Expected 2 plan items with ids 1,2, got %v", items)
		}
		return nil
	})

	mustTx(t, store, func(uow repositories.UnitOfWork) error {
		deleted, err := uow.Plans().DeleteAllocationsForOrder("RUN-1", "O1")
		if err != nil {
			return err
		}
		if len(deleted) != 1 || deleted[0].PlanItemID != 1 {
			t.Errorf("Expected O1's single allocation to be returned, got %v", deleted)
		}
		return nil
	})

	_ = store.View(context.Background(), func(uow repositories.UnitOfWork) error {
		allocs, _ := uow.Plans().GetAllocationsForRun("RUN-1")
		if len(allocs) != 1 || allocs[0].OrderID != "O2" {
			t.Errorf("Expected only O2's allocation to remain, got %v", allocs)
		}
		return nil
	})
}

func TestPurchaseOrderRepository_SingleOpenPerMaterial(t *testing.T) {
	store := NewStore()
	eta := testDate.AddDate(0, 0, 5)

	mustTx(t, store, func(uow repositories.UnitOfWork) error {
		return uow.PurchaseOrders().SavePurchaseOrder(&entities.PurchaseOrder{POID: "PO-1", MaterialID: "M1", Quantity: 10, ETA: eta, Status: entities.POPlaced})
	})

	err := store.WithinTx(context.Background(), func(uow repositories.UnitOfWork) error {
		return uow.PurchaseOrders().SavePurchaseOrder(&entities.PurchaseOrder{POID: "PO-2", MaterialID: "M1", Quantity: 10, ETA: eta, Status: entities.POPlaced})
	})
	if err == nil {
		t.Fatal("Expected second open purchase order to be rejected")
	}

	mustTx(t, store, func(uow repositories.UnitOfWork) error {
		po, err := uow.PurchaseOrders().GetOpenPurchaseOrder("M1")
		if err != nil {
			return err
		}
		po.Status = entities.PODelivered
		if err := uow.PurchaseOrders().SavePurchaseOrder(po); err != nil {
			return err
		}
		return uow.PurchaseOrders().SavePurchaseOrder(&entities.PurchaseOrder{POID: "PO-2", MaterialID: "M1", Quantity: 10, ETA: eta, Status: entities.POPlaced})
	})
}

func TestSimulationRepository_LatestRows(t *testing.T) {
	store := NewStore()

	mustTx(t, store, func(uow repositories.UnitOfWork) error {
		sim := uow.Simulation()
		for i, out := range []entities.Quantity{1, 2, 3} {
			if err := sim.SaveLatestTelemetry(&entities.ProductionRealtime{LineID: "L1", ProductionOutputCum: out, TS: testDate.Add(time.Duration(i) * time.Second)}); err != nil {
				return err
			}
		}
		if err := sim.SaveLatestProgress(&entities.OrderProgress{RunID: "RUN-1", OrderID: "O1", CompletedQty: 2}); err != nil {
			return err
		}
		return sim.SaveLatestProgress(&entities.OrderProgress{RunID: "RUN-1", OrderID: "O1", CompletedQty: 4})
	})

	_ = store.View(context.Background(), func(uow repositories.UnitOfWork) error {
		latest, _ := uow.Simulation().GetLatestTelemetry()
		if len(latest) != 1 || latest[0].ProductionOutputCum != 3 {
			t.Errorf("Expected latest L1 telemetry with output 3, got %v", latest)
		}
		progress, err := uow.Simulation().GetLatestProgress("RUN-1", "O1")
		if err != nil || progress.CompletedQty != 4 {
			t.Errorf("Expected latest progress 4, got %v %v", progress, err)
		}
		return nil
	})
}

func mustTx(t *testing.T, store *Store, fn func(uow repositories.UnitOfWork) error) {
	t.Helper()
	if err := store.WithinTx(context.Background(), fn); err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
}
