package simulation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/vsinha/plantsim/pkg/application/services/ledger"
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/infrastructure/config"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
)

// secondsPerHour converts hourly profile rates to the one-second tick
const secondsPerHour = 3600.0

// Replenisher delivers due purchase orders and places new ones
type Replenisher interface {
	Deliver(uow repositories.UnitOfWork, now time.Time, rec *events.Recorder) ([]*entities.PurchaseOrder, error)
	Place(uow repositories.UnitOfWork, now time.Time, rec *events.Recorder) ([]*entities.PurchaseOrder, error)
}

// TickResult is what one tick produced
type TickResult struct {
	RunID         string
	Idle          bool // no orders, run or profiles to simulate
	PlanCompleted bool
	InventoryPct  float64
	Produced      map[entities.LineID]entities.Quantity
	Telemetry     []*entities.ProductionRealtime
	Progress      []*entities.OrderProgress
	Completed     []string
	Delivered     []*entities.PurchaseOrder
	Placed        []*entities.PurchaseOrder
}

// Checkpoint captures the simulator's mutable state
type Checkpoint struct {
	states    LineStates
	completed bool
}

// Simulator advances plant production one tick at a time. It is not safe for
// concurrent use; the plant serializes access.
type Simulator struct {
	ledger      *ledger.Ledger
	replenisher Replenisher
	cfg         config.SimulationConfig
	autoPlace   bool
	rng         *rand.Rand
	log         *logging.Logger

	states    LineStates
	completed bool
}

// NewSimulator wires a simulator. A nil rng is seeded from the clock.
func NewSimulator(
	l *ledger.Ledger,
	replenisher Replenisher,
	cfg config.SimulationConfig,
	autoPlace bool,
	rng *rand.Rand,
	log *logging.Logger,
) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Simulator{
		ledger:      l,
		replenisher: replenisher,
		cfg:         cfg,
		autoPlace:   autoPlace,
		rng:         rng,
		log:         log,
		states:      LineStates{},
	}
}

// Reset zeroes the per-line counters for a new simulation session
func (s *Simulator) Reset(lines []*entities.Line) {
	s.states = NewLineStates(lines)
	s.completed = false
}

// States returns a copy of the per-line counters
func (s *Simulator) States() LineStates {
	return s.states.clone()
}

func (s *Simulator) Checkpoint() Checkpoint {
	return Checkpoint{states: s.states.clone(), completed: s.completed}
}

func (s *Simulator) Restore(cp Checkpoint) {
	s.states = cp.states.clone()
	s.completed = cp.completed
}

// normal samples N(mean, sigma)
func (s *Simulator) normal(mean, sigma float64) float64 {
	return mean + sigma*s.rng.NormFloat64()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Tick advances production by one second of plant time inside the caller's
// unit of work. Events go to rec; nothing is published here.
func (s *Simulator) Tick(uow repositories.UnitOfWork, now time.Time, rec *events.Recorder) (*TickResult, error) {
	result := &TickResult{Produced: map[entities.LineID]entities.Quantity{}}

	orders, err := uow.Orders().GetAllOrders()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	if len(orders) == 0 {
		result.Idle = true
		return result, nil
	}
	ordersByID := make(map[string]*entities.Order, len(orders))
	var totalPlanned entities.Quantity
	for _, o := range orders {
		ordersByID[o.OrderID] = o
		totalPlanned += o.Quantity
	}

	run, err := uow.Plans().GetLatestRun()
	if errors.Is(err, repositories.ErrNotFound) {
		result.Idle = true
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	result.RunID = run.RunID

	var planID string
	if plan, err := uow.Plans().GetLatestProductPlan(run.RunID); err == nil {
		planID = plan.PlanID
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("load latest plan: %w", err)
	}

	profiles, err := uow.Simulation().GetProfilesForRun(run.RunID)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	if len(profiles) == 0 {
		result.Idle = true
		return result, nil
	}

	lines, err := uow.Lines().GetAllLines()
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	productByLine := make(map[entities.LineID]entities.ProductID, len(lines))
	for _, ln := range lines {
		productByLine[ln.LineID] = ln.ProductID
	}

	totalCompleted := s.states.TotalCompleted()
	if totalCompleted >= float64(totalPlanned) {
		result.PlanCompleted = true
		if !s.completed {
			s.completed = true
			rec.Record(events.NewPlanCompletedEvent(events.PlanCompleted{
				RunID:          run.RunID,
				CompletedUnits: entities.Quantity(totalCompleted),
				OrderedUnits:   totalPlanned,
			}))
		}
		return result, nil
	}

	result.InventoryPct = s.ledger.InventoryPct()
	shiftID := ShiftID(now)

	for _, profile := range profiles {
		productID, ok := productByLine[profile.LineID]
		if !ok {
			continue
		}
		state, ok := s.states[profile.LineID]
		if !ok {
			state = &LineState{}
			s.states[profile.LineID] = state
		}

		// All samples are drawn every tick so a seed replays identically
		factor := s.normal(1.0, profile.ThroughputSigmaPct/100)
		uptime := clamp(s.normal(profile.BaseUptimePct, profile.UptimeSigmaPct), 0, 100)
		worker := clamp(s.normal(profile.BaseWorkerAvailabilityPct, profile.WorkerAvailSigmaPct), 0, 100)
		defect := math.Max(0, s.normal(profile.BaseDefectRatePct, profile.DefectSigmaPct))
		perUnitEnergy := s.normal(profile.BaseEnergyKWhPerUnit, profile.BaseEnergyKWhPerUnit*profile.EnergySigmaPct/100)

		produced := math.Max(0, profile.BaseRateUnitsPerHour/secondsPerHour*factor)
		remaining := float64(totalPlanned) - totalCompleted
		if remaining <= 0 {
			produced = 0
		} else if produced > remaining {
			produced = remaining
		}
		totalCompleted += produced

		delta := state.advance(produced)
		if delta > 0 {
			s.ledger.Consume(productID, delta)
			result.Produced[profile.LineID] = delta

			progress, completed, err := s.attribute(uow, run.RunID, profile.LineID, delta, ordersByID, now, rec)
			if err != nil {
				return nil, err
			}
			result.Progress = append(result.Progress, progress...)
			result.Completed = append(result.Completed, completed...)
		}
		result.InventoryPct = s.ledger.InventoryPct()

		state.EnergyKWh += math.Max(0, perUnitEnergy*float64(delta))

		readings := Readings{
			UptimePct:             uptime,
			WorkerAvailabilityPct: worker,
			InventoryPct:          result.InventoryPct,
			DefectRatePct:         defect,
			Semiconductor:         ClassifySemiconductor(s.ledger.Stock, s.cfg.CriticalMaterials, s.cfg.LowStockUnits),
		}
		alerts := Classify(readings, s.cfg)
		for _, a := range alerts {
			switch a {
			case MaintenanceAlert:
				rec.Record(events.NewMaintenanceRiskEvent(events.MaintenanceRisk{LineID: profile.LineID, UptimePct: round2(uptime)}))
			case SupplyAlert:
				if readings.Semiconductor != entities.SemiAvailable {
					rec.Record(events.NewSupplyIssueEvent(events.SupplyIssue{
						LineID:       profile.LineID,
						Status:       readings.Semiconductor,
						InventoryPct: round2(result.InventoryPct),
					}))
				}
			}
		}

		record := &entities.ProductionRealtime{
			RunID:                     run.RunID,
			PlanID:                    planID,
			TS:                        now,
			LineID:                    profile.LineID,
			ShiftID:                   shiftID,
			Demand:                    totalPlanned,
			InventoryStatusPct:        round2(result.InventoryPct),
			MachineUptimePct:          round2(uptime),
			WorkerAvailabilityPct:     round2(worker),
			ProductionOutputCum:       state.UnitsCompletedInt,
			DefectRatePct:             round2(defect),
			EnergyConsumptionKWhCum:   round2(state.EnergyKWh),
			SemiconductorAvailability: readings.Semiconductor,
			AlertStatus:               AlertStatus(alerts),
		}
		if err := uow.Simulation().SaveLatestTelemetry(record); err != nil {
			return nil, fmt.Errorf("append telemetry for %s: %w", profile.LineID, err)
		}
		result.Telemetry = append(result.Telemetry, record)
	}

	if s.replenisher != nil {
		if result.Delivered, err = s.replenisher.Deliver(uow, now, rec); err != nil {
			return nil, fmt.Errorf("deliver purchase orders: %w", err)
		}
		if s.autoPlace {
			if result.Placed, err = s.replenisher.Place(uow, now, rec); err != nil {
				return nil, fmt.Errorf("place purchase orders: %w", err)
			}
		}
		result.InventoryPct = s.ledger.InventoryPct()
	}

	return result, nil
}

// attribute shares whole units finished on a line among the orders allocated
// to it, proportionally to allocated quantity, and snapshots their progress
func (s *Simulator) attribute(
	uow repositories.UnitOfWork,
	runID string,
	lineID entities.LineID,
	units entities.Quantity,
	orders map[string]*entities.Order,
	now time.Time,
	rec *events.Recorder,
) ([]*entities.OrderProgress, []string, error) {
	allocs, err := uow.Plans().GetAllocationsForRun(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("load allocations: %w", err)
	}
	var onLine []*entities.OrderAllocation
	var totalAllocated entities.Quantity
	for _, a := range allocs {
		if a.LineID == lineID {
			onLine = append(onLine, a)
			totalAllocated += a.AllocatedQty
		}
	}
	if totalAllocated <= 0 {
		return nil, nil, nil
	}

	var snapshots []*entities.OrderProgress
	var completed []string
	for _, a := range onLine {
		share := float64(a.AllocatedQty) / float64(totalAllocated)
		forOrder := entities.Quantity(float64(units) * share)
		if forOrder <= 0 {
			continue
		}
		order, ok := orders[a.OrderID]
		if !ok {
			continue
		}

		var prevCompleted entities.Quantity
		prev, err := uow.Simulation().GetLatestProgress(runID, a.OrderID)
		switch {
		case err == nil:
			prevCompleted = prev.CompletedQty
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, nil, fmt.Errorf("load progress of %s: %w", a.OrderID, err)
		}

		done := entities.MinQuantity(prevCompleted+forOrder, order.Quantity)
		remaining := order.Quantity - done

		// One tick is one second, so forOrder is the current rate per second
		eta := entities.DateOf(now)
		if remaining > 0 {
			seconds := float64(remaining) / float64(forOrder)
			eta = entities.DateOf(now.Add(time.Duration(seconds * float64(time.Second))))
		}

		progress := &entities.OrderProgress{
			OrderID:                 a.OrderID,
			RunID:                   runID,
			TS:                      now,
			CompletedQty:            done,
			RemainingQty:            remaining,
			EstimatedCompletionDate: eta,
		}
		if err := uow.Simulation().SaveLatestProgress(progress); err != nil {
			return nil, nil, fmt.Errorf("append progress of %s: %w", a.OrderID, err)
		}
		snapshots = append(snapshots, progress)

		if !order.DispatchDate.IsZero() && eta.After(entities.DateOf(order.DispatchDate)) {
			rec.Record(events.NewOrderAtRiskEvent(events.OrderAtRisk{
				OrderID:             a.OrderID,
				EstimatedCompletion: eta,
				DispatchDate:        entities.DateOf(order.DispatchDate),
				DelayDays:           entities.DaysBetween(order.DispatchDate, eta),
			}))
		}

		if remaining == 0 && order.Status != entities.OrderCompleted {
			order.Status = entities.OrderCompleted
			if err := uow.Orders().SaveOrder(order); err != nil {
				return nil, nil, fmt.Errorf("complete order %s: %w", order.OrderID, err)
			}
			completed = append(completed, order.OrderID)
			rec.Record(events.NewOrderCompletedEvent(events.OrderCompleted{OrderID: order.OrderID, CompletedQty: done}))
		}
	}
	return snapshots, completed, nil
}
