package planning

import (
	"context"
	"testing"
	"time"

	"github.com/vsinha/plantsim/pkg/application/services/ledger"
	testhelpers "github.com/vsinha/plantsim/pkg/application/services/testing"
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/infrastructure/config"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
	fixtures "github.com/vsinha/plantsim/pkg/infrastructure/testing"
)

type planFixture struct {
	data    *fixtures.MasterData
	store   repositories.Store
	ledger  *ledger.Ledger
	manager *Manager
}

func newPlanFixture(data *fixtures.MasterData) *planFixture {
	l := ledger.New()
	l.Load(data.Inventory, data.BOM)
	return &planFixture{
		data:    data,
		store:   data.NewStore(),
		ledger:  l,
		manager: NewManager(config.Default().Planning.Profiles, nil),
	}
}

func (f *planFixture) plan(t *testing.T) (*PassResult, []events.Event) {
	t.Helper()
	rec := events.NewRecorder()
	var result *PassResult
	err := f.store.WithinTx(context.Background(), func(uow repositories.UnitOfWork) error {
		var err error
		result, err = f.manager.Plan(uow, f.ledger, 9, testhelpers.Today, rec)
		return err
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	return result, rec.Events()
}

func countEvents(evts []events.Event, eventType string) int {
	n := 0
	for _, e := range evts {
		if e.Type() == eventType {
			n++
		}
	}
	return n
}

func TestPlan_ProportionalSplitAcrossLines(t *testing.T) {
	f := newPlanFixture(fixtures.BuildTwoLineData())
	testhelpers.SaveOrders(f.store, testhelpers.MustCreateOrder("O1", "P-HE", 500, 0, 5, false))

	result, evts := f.plan(t)

	if !result.NewRun {
		t.Errorf("Expected the first pass to create the baseline run")
	}
	if result.Allocated["O1"] != 500 {
		t.Errorf("Expected 500 allocated, got %d", result.Allocated["O1"])
	}
	if n := countEvents(evts, events.CapacityShortfallEvent) + countEvents(evts, events.InventoryShortfallEvent); n != 0 {
		t.Errorf("Expected no shortfall events, got %d", n)
	}

	snap := testhelpers.Take(f.store)
	byLine := map[entities.LineID]entities.Quantity{}
	for _, a := range snap.Allocations {
		byLine[a.LineID] += a.AllocatedQty
	}
	if byLine["L1"] != 263 || byLine["L2"] != 237 {
		t.Errorf("Expected L1=263 L2=237, got L1=%d L2=%d", byLine["L1"], byLine["L2"])
	}

	start := entities.DateOf(testhelpers.Today)
	for _, item := range snap.PlanItems {
		if !item.StartTS.Equal(start) {
			t.Errorf("Expected %s to start at %v, got %v", item.LineID, start, item.StartTS)
		}
	}
}

func TestPlan_CreatesProfilesOnlyForNewRun(t *testing.T) {
	f := newPlanFixture(fixtures.BuildTwoLineData())
	f.plan(t)
	second, _ := f.plan(t)

	if second.NewRun {
		t.Errorf("Expected the second pass to reuse the baseline run")
	}
	_ = f.store.View(context.Background(), func(uow repositories.UnitOfWork) error {
		profiles, err := uow.Simulation().GetProfilesForRun(second.RunID)
		if err != nil {
			t.Fatalf("GetProfilesForRun failed: %v", err)
		}
		if len(profiles) != 2 {
			t.Errorf("Expected 2 profiles, got %d", len(profiles))
		}
		return nil
	})
}

func TestPlan_IsIdempotent(t *testing.T) {
	f := newPlanFixture(fixtures.BuildTwoLineData())
	testhelpers.SaveOrders(f.store, testhelpers.MustCreateOrder("O1", "P-HE", 500, 0, 5, false))

	f.plan(t)
	before := testhelpers.Take(f.store)
	second, evts := f.plan(t)
	after := testhelpers.Take(f.store)

	if len(second.Allocated) != 0 {
		t.Errorf("Expected nothing allocated on re-plan, got %v", second.Allocated)
	}
	if len(evts) != 0 {
		t.Errorf("Expected no events on re-plan, got %d", len(evts))
	}
	if len(after.Allocations) != len(before.Allocations) || len(after.PlanItems) != len(before.PlanItems) {
		t.Errorf("Expected unchanged plan, got %d/%d allocations and %d/%d items",
			len(after.Allocations), len(before.Allocations), len(after.PlanItems), len(before.PlanItems))
	}
}

func TestPlan_SpikePreemptsAndResumes(t *testing.T) {
	f := newPlanFixture(fixtures.BuildTwoLineData())
	testhelpers.SaveOrders(f.store, testhelpers.MustCreateOrder("O1", "P-HE", 500, 0, 5, false))
	f.plan(t)

	testhelpers.SaveOrders(f.store, testhelpers.MustCreateOrder("S1", "P-HE", 300, 0, 0, true))
	result, evts := f.plan(t)

	if len(result.Held) != 1 || result.Held[0] != "O1" {
		t.Fatalf("Expected O1 held, got %v", result.Held)
	}
	if countEvents(evts, events.OrderPreemptedEvent) != 1 {
		t.Errorf("Expected one ORDER_PREEMPTED event")
	}

	snap := testhelpers.Take(f.store)
	if snap.Orders["O1"].Status != entities.OrderOnHold {
		t.Errorf("Expected O1 ON_HOLD, got %s", snap.Orders["O1"].Status)
	}
	if got := snap.Allocated("O1"); got != 0 {
		t.Errorf("Expected O1 allocations released, got %d", got)
	}
	if got := snap.Allocated("S1"); got != 300 {
		t.Errorf("Expected spike fully allocated, got %d", got)
	}
	start := entities.DateOf(testhelpers.Today)
	for _, item := range snap.PlanItems {
		if !item.StartTS.Equal(start) {
			t.Errorf("Expected spike item on %s to start at the freed horizon start, got %v", item.LineID, item.StartTS)
		}
	}

	rec := events.NewRecorder()
	err := f.store.WithinTx(context.Background(), func(uow repositories.UnitOfWork) error {
		resumed, err := Resume(uow.Orders(), "P-HE", rec)
		if len(resumed) != 1 {
			t.Errorf("Expected one resumed order, got %v", resumed)
		}
		return err
	})
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if countEvents(rec.Events(), events.OrderResumedEvent) != 1 {
		t.Errorf("Expected one ORDER_RESUMED event")
	}

	f.plan(t)
	snap = testhelpers.Take(f.store)
	if got := snap.Allocated("O1"); got != 500 {
		t.Errorf("Expected resumed O1 re-planned in full, got %d", got)
	}
	for _, item := range snap.PlanItems {
		if item.PlanID != entities.ProductPlanID(snap.Run.RunID, "O1") {
			continue
		}
		if item.StartTS.Equal(start) {
			t.Errorf("Expected resumed O1 on %s queued after the spike", item.LineID)
		}
	}
}

func TestPlan_InventoryBoundsAllocation(t *testing.T) {
	f := newPlanFixture(fixtures.BuildSimpleTestData(50, 10))
	testhelpers.SaveOrders(f.store, testhelpers.MustCreateOrder("O1", "P-A", 200, 0, 5, false))

	result, evts := f.plan(t)

	if result.Allocated["O1"] != 50 {
		t.Errorf("Expected allocation bounded by stock at 50, got %d", result.Allocated["O1"])
	}
	if countEvents(evts, events.InventoryShortfallEvent) != 1 {
		t.Errorf("Expected one INVENTORY_SHORTFALL event")
	}
	if countEvents(evts, events.CapacityShortfallEvent) != 1 {
		t.Errorf("Expected a final CAPACITY_SHORTFALL for the unallocated remainder")
	}
}

func TestPlan_SharesStockAcrossOrdersInOnePass(t *testing.T) {
	f := newPlanFixture(fixtures.BuildSimpleTestData(150, 10))
	testhelpers.SaveOrders(f.store,
		testhelpers.MustCreateOrder("O1", "P-A", 100, 0, 1, false),
		testhelpers.MustCreateOrder("O2", "P-A", 100, 0, 2, false),
	)

	result, _ := f.plan(t)

	if result.Allocated["O1"] != 100 {
		t.Errorf("Expected higher priority O1 fully planned, got %d", result.Allocated["O1"])
	}
	if result.Allocated["O2"] != 50 {
		t.Errorf("Expected O2 limited to remaining 50, got %d", result.Allocated["O2"])
	}
}

func TestPlan_NoLineForProduct(t *testing.T) {
	f := newPlanFixture(fixtures.BuildTwoLineData())
	testhelpers.SaveOrders(f.store, testhelpers.MustCreateOrder("O1", "P-XX", 10, 0, 5, false))

	result, evts := f.plan(t)

	if len(result.Allocated) != 0 {
		t.Errorf("Expected nothing allocated, got %v", result.Allocated)
	}
	if countEvents(evts, events.NoLineForProductEvent) != 1 {
		t.Errorf("Expected one NO_LINE_FOR_PRODUCT event")
	}
}

func TestSplit(t *testing.T) {
	l1 := &entities.Line{LineID: "L1"}
	l2 := &entities.Line{LineID: "L2"}
	l3 := &entities.Line{LineID: "L3"}

	testCases := []struct {
		name     string
		target   entities.Quantity
		caps     []LineCapacity
		expected map[entities.LineID]entities.Quantity
	}{
		{
			name:     "proportional",
			target:   500,
			caps:     []LineCapacity{{l1, 450}, {l2, 405}},
			expected: map[entities.LineID]entities.Quantity{"L1": 263, "L2": 237},
		},
		{
			name:     "round half to even then top-up",
			target:   5,
			caps:     []LineCapacity{{l1, 10}, {l2, 10}},
			expected: map[entities.LineID]entities.Quantity{"L1": 3, "L2": 2},
		},
		{
			name:     "small lines keep their share",
			target:   10,
			caps:     []LineCapacity{{l1, 1}, {l2, 1}, {l3, 8.5}},
			expected: map[entities.LineID]entities.Quantity{"L1": 1, "L2": 1, "L3": 8},
		},
		{
			name:     "capped at floor of capacity",
			target:   10,
			caps:     []LineCapacity{{l1, 4.9}, {l2, 4.9}},
			expected: map[entities.LineID]entities.Quantity{"L1": 4, "L2": 4},
		},
		{
			name:     "zero target",
			target:   0,
			caps:     []LineCapacity{{l1, 10}},
			expected: map[entities.LineID]entities.Quantity{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Split(tc.target, tc.caps)
			for id, want := range tc.expected {
				if got[id] != want {
					t.Errorf("Expected %s=%d, got %d (%v)", id, want, got[id], got)
				}
			}
			var total entities.Quantity
			for _, q := range got {
				total += q
			}
			if total > tc.target {
				t.Errorf("Expected at most %d split, got %d", tc.target, total)
			}
		})
	}
}

func TestHorizon(t *testing.T) {
	a := &Allocator{HorizonDaysDefault: 9}
	today := time.Date(2025, 3, 3, 15, 0, 0, 0, time.UTC)

	testCases := []struct {
		name         string
		start        time.Time
		dispatch     time.Time
		expectedDays int
	}{
		{"defaults", time.Time{}, time.Time{}, 9},
		{"dispatch date", time.Time{}, entities.AddDays(today, 4), 4},
		{"same day dispatch is at least one day", time.Time{}, today, 1},
		{"explicit start", entities.AddDays(today, 2), entities.AddDays(today, 5), 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			order := &entities.Order{OrderID: "O1", StartDate: tc.start, DispatchDate: tc.dispatch}
			_, _, days := a.Horizon(order, today)
			if days != tc.expectedDays {
				t.Errorf("Expected %d days, got %d", tc.expectedDays, days)
			}
		})
	}
}
