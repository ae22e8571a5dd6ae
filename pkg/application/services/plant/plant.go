package plant

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/plantsim/pkg/application/services/analytics"
	"github.com/vsinha/plantsim/pkg/application/services/ledger"
	"github.com/vsinha/plantsim/pkg/application/services/planning"
	"github.com/vsinha/plantsim/pkg/application/services/replenishment"
	"github.com/vsinha/plantsim/pkg/application/services/simulation"
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/infrastructure/config"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
	"github.com/vsinha/plantsim/pkg/infrastructure/metrics"
)

var (
	ErrUnknownPurchaseOrder = replenishment.ErrUnknownPurchaseOrder
	ErrPurchaseOrderClosed  = replenishment.ErrPurchaseOrderClosed
	ErrUnknownOrder         = analytics.ErrUnknownOrder
	// ErrDuplicateOrder is returned when submitting an order id that already exists
	ErrDuplicateOrder = errors.New("order already exists")
)

// Journal batch kinds
const (
	KindPlan          = "plan"
	KindTick          = "tick"
	KindReplenishment = "replenishment"
	KindPurchaseOrder = "purchase_order"
	KindOrder         = "order"
)

// Options wires a Plant. Store is required; everything else has a default.
type Options struct {
	Store   repositories.Store
	Journal repositories.Journal
	Sink    events.Sink
	Metrics *metrics.Registry
	Config  config.Config
	Now     func() time.Time
	Rand    *rand.Rand
	Log     *logging.Logger
}

// Plant is the control plane over one plant's state. Every operation takes
// the same lock, so planning, ticks and operator actions never interleave.
type Plant struct {
	mu sync.Mutex

	store   repositories.Store
	journal repositories.Journal
	sink    events.Sink
	metrics *metrics.Registry
	cfg     config.Config
	now     func() time.Time
	log     *logging.Logger

	ledger      *ledger.Ledger
	manager     *planning.Manager
	replenisher *replenishment.Controller
	simulator   *simulation.Simulator
	runner      *simulation.Runner
}

// New creates a plant over opts.Store. The ledger is loaded lazily on first use.
func New(opts Options) *Plant {
	if opts.Journal == nil {
		opts.Journal = repositories.NopJournal{}
	}
	if opts.Sink == nil {
		opts.Sink = events.NewMultiSink()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Log == nil {
		opts.Log = logging.Discard()
	}
	if opts.Rand == nil && opts.Config.Simulation.Seed != 0 {
		opts.Rand = rand.New(rand.NewSource(opts.Config.Simulation.Seed))
	}

	l := ledger.New()
	replenisher := replenishment.NewController(l, opts.Log)
	p := &Plant{
		store:       opts.Store,
		journal:     opts.Journal,
		sink:        opts.Sink,
		metrics:     opts.Metrics,
		cfg:         opts.Config,
		now:         opts.Now,
		log:         opts.Log,
		ledger:      l,
		manager:     planning.NewManager(opts.Config.Planning.Profiles, opts.Log),
		replenisher: replenisher,
		simulator: simulation.NewSimulator(
			l, replenisher, opts.Config.Simulation, opts.Config.Replenishment.AutoPlaceOnTick, opts.Rand, opts.Log,
		),
	}
	p.runner = simulation.NewRunner(opts.Config.Simulation.TickInterval.Std(), p.runTick, opts.Log)
	return p
}

// work is one mutation run inside a unit of work. It may add telemetry and
// progress to the batch; recorded events are added by transact.
type work func(uow repositories.UnitOfWork, rec *events.Recorder, batch *repositories.JournalBatch) error

// transact runs fn as one atomic unit: repository writes, ledger stock,
// simulator counters and the journal batch all commit together or not at
// all. Events reach the sink only after commit. Callers hold p.mu.
func (p *Plant) transact(ctx context.Context, kind string, fn work) error {
	rec := events.NewRecorder()
	batch := &repositories.JournalBatch{Kind: kind, At: p.now()}

	var (
		ledgerCP    ledger.Checkpoint
		simCP       simulation.Checkpoint
		checkpoints bool
	)
	err := p.store.WithinTx(ctx, func(uow repositories.UnitOfWork) error {
		if err := p.ensureLedger(uow); err != nil {
			return err
		}
		ledgerCP, simCP, checkpoints = p.ledger.Checkpoint(), p.simulator.Checkpoint(), true

		if err := fn(uow, rec, batch); err != nil {
			return err
		}
		if err := p.writeBackStock(uow); err != nil {
			return err
		}

		evts, err := events.ToJournal(rec.Events())
		if err != nil {
			return err
		}
		batch.Events = evts
		if batch.IsEmpty() {
			return nil
		}
		if err := p.journal.Commit(ctx, batch); err != nil {
			return fmt.Errorf("journal %s batch: %w", kind, err)
		}
		return nil
	})
	if err != nil {
		if checkpoints {
			p.ledger.Restore(ledgerCP)
			p.simulator.Restore(simCP)
		}
		rec.Discard()
		p.log.Error("unit_of_work_failed", err, logging.Fields{"kind": kind})
		return err
	}

	rec.Flush(p.sink)
	p.metrics.InventoryPct.Set(p.ledger.InventoryPct())
	return nil
}

// read runs fn against a read-only snapshot. Callers hold p.mu.
func (p *Plant) read(ctx context.Context, fn func(uow repositories.UnitOfWork) error) error {
	return p.store.View(ctx, func(uow repositories.UnitOfWork) error {
		if err := p.ensureLedger(uow); err != nil {
			return err
		}
		return fn(uow)
	})
}

// ensureLedger loads the ledger from master rows the first time it is needed
func (p *Plant) ensureLedger(uow repositories.UnitOfWork) error {
	if p.ledger.Loaded() {
		return nil
	}
	return p.loadLedger(uow)
}

func (p *Plant) loadLedger(uow repositories.UnitOfWork) error {
	items, err := uow.Inventory().GetAllInventoryItems()
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}
	bom, err := uow.BOM().GetAllBOMItems()
	if err != nil {
		return fmt.Errorf("load bom: %w", err)
	}
	p.ledger.Load(items, bom)
	return nil
}

// writeBackStock copies live ledger stock into the inventory master rows
func (p *Plant) writeBackStock(uow repositories.UnitOfWork) error {
	for materialID, qty := range p.ledger.Snapshot() {
		item, err := uow.Inventory().GetInventoryItem(materialID)
		if errors.Is(err, repositories.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load inventory %s: %w", materialID, err)
		}
		if item.CurrentStock == qty {
			continue
		}
		item.CurrentStock = qty
		if err := uow.Inventory().SaveInventoryItem(item); err != nil {
			return fmt.Errorf("write back stock of %s: %w", materialID, err)
		}
	}
	return nil
}

// Plan runs one incremental planning pass. horizonDays <= 0 uses the
// configured default.
func (p *Plant) Plan(ctx context.Context, horizonDays int) (*planning.PassResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if horizonDays <= 0 {
		horizonDays = p.cfg.Planning.DefaultHorizonDays
	}

	var result *planning.PassResult
	err := p.transact(ctx, KindPlan, func(uow repositories.UnitOfWork, rec *events.Recorder, batch *repositories.JournalBatch) error {
		var err error
		result, err = p.manager.Plan(uow, p.ledger, horizonDays, p.now(), rec)
		if err != nil {
			return err
		}
		batch.RunID = result.RunID
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.metrics.PlanPasses.Inc()
	p.log.Info("plan_pass", "planning pass committed", logging.Fields{
		"run_id":  result.RunID,
		"new_run": result.NewRun,
		"planned": len(result.Allocated),
		"held":    len(result.Held),
		"skipped": len(result.Skipped),
	})
	return result, nil
}

// Tick advances the simulation by one step
func (p *Plant) Tick(ctx context.Context) (*simulation.TickResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tick(ctx)
}

func (p *Plant) tick(ctx context.Context) (*simulation.TickResult, error) {
	started := time.Now()

	var result *simulation.TickResult
	err := p.transact(ctx, KindTick, func(uow repositories.UnitOfWork, rec *events.Recorder, batch *repositories.JournalBatch) error {
		var err error
		result, err = p.simulator.Tick(uow, p.now(), rec)
		if err != nil {
			return err
		}
		batch.RunID = result.RunID
		batch.Telemetry = result.Telemetry
		batch.Progress = result.Progress
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.metrics.Ticks.Inc()
	p.metrics.TickDurationSec.Observe(time.Since(started).Seconds())
	for lineID, units := range result.Produced {
		p.metrics.UnitsProduced.WithLabelValues(string(lineID)).Add(float64(units))
	}
	p.metrics.PurchaseOrdersDelivered.Add(float64(len(result.Delivered)))
	p.metrics.PurchaseOrdersPlaced.Add(float64(len(result.Placed)))
	return result, nil
}

// runTick is the runner's tick; a completed plan ends the loop. A tick whose
// session was stopped while it waited for the lock is skipped.
func (p *Plant) runTick(session context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if session.Err() != nil {
		return false, nil
	}
	result, err := p.tick(context.WithoutCancel(session))
	if err != nil {
		return false, err
	}
	if result.PlanCompleted {
		p.metrics.SimulationRunning.Set(0)
		return true, nil
	}
	return false, nil
}

// StartSimulation reloads the ledger from the master rows, zeroes the
// per-line counters and starts the tick loop. Starting while running is a
// no-op that reports simulation.StatusAlreadyRunning.
func (p *Plant) StartSimulation(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runner.Running() {
		return simulation.StatusAlreadyRunning, nil
	}

	err := p.store.View(ctx, func(uow repositories.UnitOfWork) error {
		if err := p.loadLedger(uow); err != nil {
			return err
		}
		lines, err := uow.Lines().GetAllLines()
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		p.simulator.Reset(lines)
		return nil
	})
	if err != nil {
		return "", err
	}

	status := p.runner.Start()
	p.metrics.SimulationRunning.Set(1)
	p.metrics.InventoryPct.Set(p.ledger.InventoryPct())
	p.log.Info("simulation_started", "simulation started", logging.Fields{"status": status})
	return status, nil
}

// StopSimulation asks the tick loop to stop after its current tick
func (p *Plant) StopSimulation() string {
	status := p.runner.Stop()
	p.metrics.SimulationRunning.Set(0)
	p.log.Info("simulation_stopped", "simulation stop requested", nil)
	return status
}

// Running reports whether the tick loop is active
func (p *Plant) Running() bool {
	return p.runner.Running()
}

// Done is closed when the tick loop has exited
func (p *Plant) Done() <-chan struct{} {
	return p.runner.Done()
}

// CheckAndPlacePurchaseOrders places a purchase order for every material
// whose requirement is not covered by stock or an open order
func (p *Plant) CheckAndPlacePurchaseOrders(ctx context.Context) ([]*entities.PurchaseOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var placed []*entities.PurchaseOrder
	err := p.transact(ctx, KindReplenishment, func(uow repositories.UnitOfWork, rec *events.Recorder, _ *repositories.JournalBatch) error {
		var err error
		placed, err = p.replenisher.Place(uow, p.now(), rec)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.metrics.PurchaseOrdersPlaced.Add(float64(len(placed)))
	return placed, nil
}

// ExpeditePurchaseOrder moves an open purchase order's ETA days earlier
func (p *Plant) ExpeditePurchaseOrder(ctx context.Context, poID string, days int) (*entities.PurchaseOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var po *entities.PurchaseOrder
	err := p.transact(ctx, KindPurchaseOrder, func(uow repositories.UnitOfWork, rec *events.Recorder, _ *repositories.JournalBatch) error {
		var err error
		po, err = p.replenisher.Expedite(uow, poID, days, p.now(), rec)
		return err
	})
	return po, err
}

// DelayPurchaseOrder moves an open purchase order's ETA days later
func (p *Plant) DelayPurchaseOrder(ctx context.Context, poID string, days int) (*entities.PurchaseOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var po *entities.PurchaseOrder
	err := p.transact(ctx, KindPurchaseOrder, func(uow repositories.UnitOfWork, rec *events.Recorder, _ *repositories.JournalBatch) error {
		var err error
		po, err = p.replenisher.Delay(uow, poID, days, rec)
		return err
	})
	return po, err
}

// SubmitOrder stores a new OPEN order. It is planned by the next pass.
func (p *Plant) SubmitOrder(ctx context.Context, order *entities.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.transact(ctx, KindOrder, func(uow repositories.UnitOfWork, rec *events.Recorder, _ *repositories.JournalBatch) error {
		_, err := uow.Orders().GetOrder(order.OrderID)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateOrder, order.OrderID)
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("load order %s: %w", order.OrderID, err)
		}
		if err := uow.Orders().SaveOrder(order); err != nil {
			return fmt.Errorf("save order %s: %w", order.OrderID, err)
		}
		rec.Record(events.NewOrderCreatedEvent(events.OrderCreated{
			OrderID:   order.OrderID,
			ProductID: order.ProductID,
			Quantity:  order.Quantity,
			Priority:  order.Priority,
			IsSpike:   order.IsSpike,
		}))
		return nil
	})
}

// ResumeHeldOrders reopens every ON_HOLD order of a product
func (p *Plant) ResumeHeldOrders(ctx context.Context, productID entities.ProductID) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var resumed []string
	err := p.transact(ctx, KindOrder, func(uow repositories.UnitOfWork, rec *events.Recorder, _ *repositories.JournalBatch) error {
		var err error
		resumed, err = planning.Resume(uow.Orders(), productID, rec)
		return err
	})
	return resumed, err
}

// InventoryView lists required materials with live stock and open purchase orders
func (p *Plant) InventoryView(ctx context.Context) ([]analytics.InventoryRow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var rows []analytics.InventoryRow
	err := p.read(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		rows, err = analytics.InventoryView(uow, p.ledger)
		return err
	})
	return rows, err
}

// Requirements explodes current orders into per-material requirements
func (p *Plant) Requirements(ctx context.Context) ([]entities.MaterialRequirement, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var reqs []entities.MaterialRequirement
	err := p.read(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		reqs, err = p.replenisher.Requirements(uow)
		return err
	})
	return reqs, err
}

// ComputeKPIs grades the plant against its four KPIs
func (p *Plant) ComputeKPIs(ctx context.Context) ([]analytics.KPI, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var kpis []analytics.KPI
	err := p.read(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		kpis, err = analytics.ComputeKPIs(uow, p.ledger)
		return err
	})
	return kpis, err
}

// OrderDelays analyzes every order's planned completion against its dispatch date
func (p *Plant) OrderDelays(ctx context.Context) ([]analytics.OrderDelay, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var delays []analytics.OrderDelay
	err := p.read(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		delays, err = analytics.OrderDelays(uow, p.ledger, p.now())
		return err
	})
	return delays, err
}

// OrderTimeline returns one order's schedule, materials and progress
func (p *Plant) OrderTimeline(ctx context.Context, orderID string) (*analytics.Timeline, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var tl *analytics.Timeline
	err := p.read(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		tl, err = analytics.OrderTimeline(uow, p.ledger, orderID)
		return err
	})
	return tl, err
}

// DelayRecommendations suggests mitigations for one order
func (p *Plant) DelayRecommendations(ctx context.Context, orderID string) (*analytics.RecommendationReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var report *analytics.RecommendationReport
	err := p.read(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		report, err = analytics.DelayRecommendations(uow, p.ledger, orderID, p.now())
		return err
	})
	return report, err
}

// Schedule returns the BASELINE run's plan items sorted by line and start
// time. It is empty before the first planning pass.
func (p *Plant) Schedule(ctx context.Context) ([]*entities.PlanItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var items []*entities.PlanItem
	err := p.read(ctx, func(uow repositories.UnitOfWork) error {
		run, err := uow.Plans().FindRunByScenario(entities.BaselineScenario)
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if items, err = uow.Plans().GetPlanItemsForRun(run.RunID); err != nil {
			return err
		}
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].LineID != items[j].LineID {
				return items[i].LineID < items[j].LineID
			}
			return items[i].StartTS.Before(items[j].StartTS)
		})
		return nil
	})
	return items, err
}

// PurchaseOrders returns every purchase order sorted by id
func (p *Plant) PurchaseOrders(ctx context.Context) ([]*entities.PurchaseOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pos []*entities.PurchaseOrder
	err := p.read(ctx, func(uow repositories.UnitOfWork) error {
		var err error
		pos, err = uow.PurchaseOrders().GetAllPurchaseOrders()
		return err
	})
	return pos, err
}

// LineStates returns a copy of the simulator's per-line counters
func (p *Plant) LineStates() simulation.LineStates {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.simulator.States()
}

// Close stops the tick loop, waits for it to exit and closes the journal
func (p *Plant) Close() error {
	p.runner.Stop()
	<-p.runner.Done()
	p.metrics.SimulationRunning.Set(0)
	return p.journal.Close()
}
