package planning

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/domain/services/occupancy"
	"github.com/vsinha/plantsim/pkg/infrastructure/config"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
)

// StockSource supplies the live material stock planning reserves against
type StockSource interface {
	Snapshot() map[entities.MaterialID]entities.Quantity
}

// PassResult summarizes one planning pass
type PassResult struct {
	RunID     string
	NewRun    bool
	Held      []string
	Allocated map[string]entities.Quantity // order id -> units planned in this pass
	Skipped   []string                     // already planned in this run
}

// Manager owns the single incremental BASELINE run
type Manager struct {
	profiles config.ProfileConfig
	log      *logging.Logger
}

// NewManager creates a plan run manager
func NewManager(profiles config.ProfileConfig, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{profiles: profiles, log: log}
}

// FindOrCreateRun returns the BASELINE run, creating it together with its
// shift profiles when none exists
func (m *Manager) FindOrCreateRun(uow repositories.UnitOfWork, now time.Time) (*entities.PlanRun, bool, error) {
	run, err := uow.Plans().FindRunByScenario(entities.BaselineScenario)
	if err == nil {
		return run, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, fmt.Errorf("find baseline run: %w", err)
	}

	run = &entities.PlanRun{
		RunID:     "RUN-" + now.UTC().Format("20060102150405"),
		Scenario:  entities.BaselineScenario,
		CreatedAt: now.UTC(),
	}
	if err := uow.Plans().SaveRun(run); err != nil {
		return nil, false, fmt.Errorf("save run %s: %w", run.RunID, err)
	}

	lines, err := uow.Lines().GetAllLines()
	if err != nil {
		return nil, false, fmt.Errorf("load lines: %w", err)
	}
	for _, p := range NewShiftProfiles(run.RunID, lines, m.profiles) {
		if err := uow.Simulation().SaveProfile(p); err != nil {
			return nil, false, fmt.Errorf("save profile for %s: %w", p.LineID, err)
		}
	}
	m.log.Info("plan_run_created", "created baseline run", logging.Fields{"run_id": run.RunID, "lines": len(lines)})
	return run, true, nil
}

// Plan runs one incremental planning pass inside the caller's unit of work
func (m *Manager) Plan(
	uow repositories.UnitOfWork,
	stock StockSource,
	horizonDaysDefault int,
	now time.Time,
	rec *events.Recorder,
) (*PassResult, error) {
	run, isNew, err := m.FindOrCreateRun(uow, now)
	if err != nil {
		return nil, err
	}
	result := &PassResult{RunID: run.RunID, NewRun: isNew, Allocated: map[string]entities.Quantity{}}

	lines, err := uow.Lines().GetAllLines()
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	bom, err := uow.BOM().GetAllBOMItems()
	if err != nil {
		return nil, fmt.Errorf("load bom: %w", err)
	}
	snap := NewSnapshot(lines, bom, stock.Snapshot())

	allocs, err := uow.Plans().GetAllocationsForRun(run.RunID)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	allocated := entities.SumAllocated(allocs)

	orders, err := uow.Orders().GetAllOrders()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	var spikes, regular []*entities.Order
	for _, o := range orders {
		if o.Status != entities.OrderOpen || allocated[o.OrderID] >= o.Quantity {
			continue
		}
		if o.IsSpike {
			spikes = append(spikes, o)
		} else {
			regular = append(regular, o)
		}
	}

	items, err := uow.Plans().GetPlanItemsForRun(run.RunID)
	if err != nil {
		return nil, fmt.Errorf("load plan items: %w", err)
	}
	tracker := occupancy.FromPlanItems(items)

	held := make(map[string]bool)
	for _, spike := range spikes {
		var heldNow []string
		tracker, heldNow, err = Preempt(uow, run.RunID, spike, rec)
		if err != nil {
			return nil, err
		}
		for _, id := range heldNow {
			held[id] = true
		}
		result.Held = append(result.Held, heldNow...)
	}

	allocator := &Allocator{HorizonDaysDefault: horizonDaysDefault}
	toPlan := make([]*entities.Order, 0, len(spikes)+len(regular))
	toPlan = append(toPlan, spikes...)
	for _, o := range regular {
		if !held[o.OrderID] {
			toPlan = append(toPlan, o)
		}
	}
	sortForPlanning(toPlan, allocator, now)

	for _, order := range toPlan {
		if _, err := uow.Plans().GetProductPlan(entities.ProductPlanID(run.RunID, order.OrderID)); err == nil {
			result.Skipped = append(result.Skipped, order.OrderID)
			continue
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("load plan of %s: %w", order.OrderID, err)
		}

		res, err := allocator.Allocate(uow.Plans(), run, order, snap, tracker, now, rec)
		if err != nil {
			return nil, fmt.Errorf("allocate %s: %w", order.OrderID, err)
		}
		if res.Allocated > 0 {
			result.Allocated[order.OrderID] = res.Allocated
		}
		m.log.Debug("order_allocated", "order allocation computed", logging.Fields{
			"order_id":        order.OrderID,
			"requested":       res.Requested,
			"capacity_units":  res.CapacityUnits,
			"inventory_limit": res.InventoryLimit,
			"allocated":       res.Allocated,
		})
	}

	return result, nil
}

// sortForPlanning orders by priority, then dispatch date, then start date, then id
func sortForPlanning(orders []*entities.Order, a *Allocator, now time.Time) {
	type key struct {
		start, end time.Time
	}
	keys := make(map[string]key, len(orders))
	for _, o := range orders {
		start, end, _ := a.Horizon(o, now)
		keys[o.OrderID] = key{start: start, end: end}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		oi, oj := orders[i], orders[j]
		if oi.Priority != oj.Priority {
			return oi.Priority < oj.Priority
		}
		ki, kj := keys[oi.OrderID], keys[oj.OrderID]
		if !ki.end.Equal(kj.end) {
			return ki.end.Before(kj.end)
		}
		if !ki.start.Equal(kj.start) {
			return ki.start.Before(kj.start)
		}
		return oi.OrderID < oj.OrderID
	})
}
