package analytics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/plantsim/pkg/application/services/ledger"
	"github.com/vsinha/plantsim/pkg/application/services/planning"
	testhelpers "github.com/vsinha/plantsim/pkg/application/services/testing"
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/infrastructure/config"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
	fixtures "github.com/vsinha/plantsim/pkg/infrastructure/testing"
)

var today = testhelpers.Today

func setup(data *fixtures.MasterData, orders ...*entities.Order) (repositories.Store, *ledger.Ledger) {
	store := data.NewStore()
	if len(orders) > 0 {
		testhelpers.SaveOrders(store, orders...)
	}
	l := ledger.New()
	l.Load(data.Inventory, data.BOM)
	return store, l
}

func mustPlan(t *testing.T, store repositories.Store, l *ledger.Ledger) {
	t.Helper()
	manager := planning.NewManager(config.Default().Planning.Profiles, nil)
	err := store.WithinTx(context.Background(), func(uow repositories.UnitOfWork) error {
		_, err := manager.Plan(uow, l, 9, today, events.NewRecorder())
		return err
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
}

func view[T any](t *testing.T, store repositories.Store, fn func(uow repositories.UnitOfWork) (T, error)) T {
	t.Helper()
	var out T
	err := store.View(context.Background(), func(uow repositories.UnitOfWork) error {
		var err error
		out, err = fn(uow)
		return err
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	return out
}

func TestInventoryView(t *testing.T) {
	store, l := setup(fixtures.BuildSimpleTestData(80, 10), testhelpers.MustCreateOrder("O1", "P-A", 200, 0, 5, false))
	l.Consume("P-A", 30)

	po, err := entities.NewPurchaseOrder("PO-M001-2025-03-03", "M001", "SUP-A", 120, today, entities.AddDays(today, 3))
	if err != nil {
		t.Fatalf("NewPurchaseOrder failed: %v", err)
	}
	if err := store.WithinTx(context.Background(), func(uow repositories.UnitOfWork) error {
		return uow.PurchaseOrders().SavePurchaseOrder(po)
	}); err != nil {
		t.Fatalf("SavePurchaseOrder failed: %v", err)
	}

	rows := view(t, store, func(uow repositories.UnitOfWork) ([]InventoryRow, error) { return InventoryView(uow, l) })
	if len(rows) != 1 {
		t.Fatalf("Expected one row, got %d", len(rows))
	}
	row := rows[0]
	if row.Required != 200 || row.SeedStock != 80 || row.CurrentStock != 50 || row.Consumed != 30 || row.RemainingRequirement != 150 {
		t.Errorf("Unexpected quantities: %+v", row)
	}
	if !row.TotalCostRemaining.Equal(decimal.RequireFromString("600")) {
		t.Errorf("Expected remaining cost 600, got %s", row.TotalCostRemaining)
	}
	if row.PO == nil || row.PO.Quantity != 120 || row.PO.Status != entities.POPlaced {
		t.Errorf("Expected open PO info, got %+v", row.PO)
	}
}

func TestInventoryView_EmptyWithoutOrders(t *testing.T) {
	store, l := setup(fixtures.BuildSimpleTestData(80, 10))

	rows := view(t, store, func(uow repositories.UnitOfWork) ([]InventoryRow, error) { return InventoryView(uow, l) })
	if len(rows) != 0 {
		t.Errorf("Expected no rows without orders, got %d", len(rows))
	}
}

func TestComputeKPIs_EmptyWithoutRun(t *testing.T) {
	store, l := setup(fixtures.BuildTwoLineData(), testhelpers.MustCreateOrder("O1", "P-HE", 100, 0, 5, false))

	kpis := view(t, store, func(uow repositories.UnitOfWork) ([]KPI, error) { return ComputeKPIs(uow, l) })
	if len(kpis) != 0 {
		t.Errorf("Expected no KPIs without a plan run, got %d", len(kpis))
	}
}

func TestComputeKPIs(t *testing.T) {
	store, l := setup(fixtures.BuildTwoLineData(), testhelpers.MustCreateOrder("O1", "P-HE", 1000, 0, 5, false))
	mustPlan(t, store, l)

	run := view(t, store, func(uow repositories.UnitOfWork) (*entities.PlanRun, error) { return uow.Plans().GetLatestRun() })
	err := store.WithinTx(context.Background(), func(uow repositories.UnitOfWork) error {
		for _, rt := range []*entities.ProductionRealtime{
			{RunID: run.RunID, TS: today, LineID: "L1", ProductionOutputCum: 300, MachineUptimePct: 90, DefectRatePct: 10},
			{RunID: run.RunID, TS: today, LineID: "L2", ProductionOutputCum: 200, MachineUptimePct: 100, DefectRatePct: 0},
		} {
			if err := uow.Simulation().SaveLatestTelemetry(rt); err != nil {
				return err
			}
		}
		return uow.Simulation().LoadMachineParameters([]*entities.MachineParameter{
			{MachineID: "MC1", LineID: "L1", Parameter: "spindle_temp", Threshold: 100, CurrentValue: 90},
			{MachineID: "MC2", LineID: "L2", Parameter: "vibration", Threshold: 50, CurrentValue: 40},
			{MachineID: "MC3", LineID: "L2", Parameter: "ignored", Threshold: 0, CurrentValue: 7},
		})
	})
	if err != nil {
		t.Fatalf("seeding failed: %v", err)
	}

	kpis := view(t, store, func(uow repositories.UnitOfWork) ([]KPI, error) { return ComputeKPIs(uow, l) })
	if len(kpis) != 4 {
		t.Fatalf("Expected 4 KPIs, got %d", len(kpis))
	}

	expected := []struct {
		value  float64
		status AlertLevel
	}{
		{50, Red},
		{100, Green},
		{90.5, Green},
		{85, Amber},
	}
	for i, want := range expected {
		if kpis[i].Value != want.value || kpis[i].Status != want.status {
			t.Errorf("Expected %s = %v %s, got %v %s", kpis[i].Name, want.value, want.status, kpis[i].Value, kpis[i].Status)
		}
	}
}

func TestOrderDelays(t *testing.T) {
	store, l := setup(fixtures.BuildTwoLineData(),
		testhelpers.MustCreateOrder("O1", "P-HE", 500, 3, 5, false),
		testhelpers.MustCreateOrder("O2", "P-XX", 100, 3, 5, false),
	)
	mustPlan(t, store, l)

	delays := view(t, store, func(uow repositories.UnitOfWork) ([]OrderDelay, error) { return OrderDelays(uow, l, today) })
	if len(delays) != 2 {
		t.Fatalf("Expected 2 delay rows, got %d", len(delays))
	}

	o1 := delays[0]
	if o1.AllocatedQty != 285 || o1.ShortfallQty != 215 {
		t.Errorf("Expected 285 allocated and 215 short, got %d and %d", o1.AllocatedQty, o1.ShortfallQty)
	}
	if o1.Status != AtRisk || o1.DelayDays == nil || *o1.DelayDays != 0 {
		t.Errorf("Expected AT_RISK finishing on the dispatch date, got %s %v", o1.Status, o1.DelayDays)
	}
	if !o1.HasCause(CauseCapacityShortfall) || o1.HasCause(CauseInventoryShortage) {
		t.Errorf("Expected only a capacity root cause, got %v", o1.RootCauses)
	}

	o2 := delays[1]
	if o2.Status != NotPlanned || o2.ShortfallQty != 100 || o2.DelayDays != nil {
		t.Errorf("Expected O2 NOT_PLANNED, got %+v", o2)
	}
}

func TestOrderDelays_SupplierDelay(t *testing.T) {
	store, l := setup(fixtures.BuildTwoLineData(), testhelpers.MustCreateOrder("O1", "P-HE", 100, 5, 5, false))
	mustPlan(t, store, l)

	po, err := entities.NewPurchaseOrder("PO-M014-2025-02-20", "M014", "SUP-A", 50, entities.AddDays(today, -12), entities.AddDays(today, -2))
	if err != nil {
		t.Fatalf("NewPurchaseOrder failed: %v", err)
	}
	if err := store.WithinTx(context.Background(), func(uow repositories.UnitOfWork) error {
		return uow.PurchaseOrders().SavePurchaseOrder(po)
	}); err != nil {
		t.Fatalf("SavePurchaseOrder failed: %v", err)
	}

	delays := view(t, store, func(uow repositories.UnitOfWork) ([]OrderDelay, error) { return OrderDelays(uow, l, today) })
	if !delays[0].HasCause(CauseSupplierDelay) {
		t.Errorf("Expected SUPPLIER_DELAY for an overdue purchase order, got %v", delays[0].RootCauses)
	}
}

func TestOrderTimeline(t *testing.T) {
	store, l := setup(fixtures.BuildTwoLineData(), testhelpers.MustCreateOrder("O1", "P-HE", 500, 0, 5, false))
	mustPlan(t, store, l)

	tl := view(t, store, func(uow repositories.UnitOfWork) (*Timeline, error) { return OrderTimeline(uow, l, "O1") })
	if len(tl.Items) != 2 {
		t.Errorf("Expected 2 scheduled segments, got %d", len(tl.Items))
	}
	if len(tl.Materials) != 2 || tl.Materials[1].Required != 1000 {
		t.Errorf("Expected M200 to need 1000, got %+v", tl.Materials)
	}
	if tl.Progress != nil {
		t.Errorf("Expected no progress before simulation")
	}

	err := store.View(context.Background(), func(uow repositories.UnitOfWork) error {
		_, err := OrderTimeline(uow, l, "NOPE")
		return err
	})
	if !errors.Is(err, ErrUnknownOrder) {
		t.Errorf("Expected ErrUnknownOrder, got %v", err)
	}
}

func TestDelayRecommendations(t *testing.T) {
	testCases := []struct {
		name     string
		data     *fixtures.MasterData
		order    *entities.Order
		status   DelayStatus
		category Category
		priority Priority
	}{
		{
			name:     "capacity shortfall",
			data:     fixtures.BuildTwoLineData(),
			order:    testhelpers.MustCreateOrder("O1", "P-HE", 500, 3, 5, false),
			status:   AtRisk,
			category: CategoryCapacity,
			priority: PriorityHigh,
		},
		{
			name:     "on track",
			data:     fixtures.BuildSimpleTestData(1000, 10),
			order:    testhelpers.MustCreateOrder("O1", "P-A", 100, 5, 5, false),
			status:   OnTime,
			category: CategoryPreventive,
			priority: PriorityLow,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store, l := setup(tc.data, tc.order)
			mustPlan(t, store, l)

			report := view(t, store, func(uow repositories.UnitOfWork) (*RecommendationReport, error) {
				return DelayRecommendations(uow, l, "O1", today)
			})
			if report.Status != tc.status {
				t.Errorf("Expected %s, got %s", tc.status, report.Status)
			}
			if len(report.Recommendations) == 0 {
				t.Fatalf("Expected at least one recommendation")
			}
			first := report.Recommendations[0]
			if first.Category != tc.category || first.Priority != tc.priority {
				t.Errorf("Expected %s/%s, got %s/%s", tc.priority, tc.category, first.Priority, first.Category)
			}
		})
	}
}

func TestDelayRecommendations_NamesAlternateSuppliers(t *testing.T) {
	data := fixtures.BuildTwoLineData()
	for _, s := range data.Suppliers {
		s.AlternateSupplier = true
	}
	store, l := setup(data, testhelpers.MustCreateOrder("O1", "P-HE", 100, 5, 5, false))
	mustPlan(t, store, l)

	po, err := entities.NewPurchaseOrder("PO-M014-2025-02-20", "M014", "SUP-A", 50, entities.AddDays(today, -12), entities.AddDays(today, -2))
	if err != nil {
		t.Fatalf("NewPurchaseOrder failed: %v", err)
	}
	if err := store.WithinTx(context.Background(), func(uow repositories.UnitOfWork) error {
		return uow.PurchaseOrders().SavePurchaseOrder(po)
	}); err != nil {
		t.Fatalf("SavePurchaseOrder failed: %v", err)
	}

	report := view(t, store, func(uow repositories.UnitOfWork) (*RecommendationReport, error) {
		return DelayRecommendations(uow, l, "O1", today)
	})

	var supplier *Recommendation
	for i := range report.Recommendations {
		if report.Recommendations[i].Category == CategorySupplier {
			supplier = &report.Recommendations[i]
		}
	}
	if supplier == nil {
		t.Fatalf("Expected a SUPPLIER recommendation, got %+v", report.Recommendations)
	}
	if !strings.Contains(supplier.Details, "PO-M014-2025-02-20 from SUP-A") {
		t.Errorf("Expected the overdue PO in details, got %q", supplier.Details)
	}
	if !strings.Contains(supplier.Details, "Alternate suppliers: SUP-B") {
		t.Errorf("Expected SUP-B as the alternate, got %q", supplier.Details)
	}
	if strings.Contains(supplier.Details, "Alternate suppliers: SUP-A") {
		t.Errorf("The late supplier should not be proposed as its own alternate: %q", supplier.Details)
	}
}
