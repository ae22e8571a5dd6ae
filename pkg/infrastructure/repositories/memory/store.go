package memory

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// ErrReadOnly is returned by writes issued inside View
var ErrReadOnly = errors.New("read-only unit of work")

type progressKey struct {
	runID   string
	orderID string
}

// tables is one immutable version of the store. Rows are stored as private
// copies and never mutated in place, so a shallow clone isolates a transaction.
type tables struct {
	orders        map[string]*entities.Order
	lines         map[entities.LineID]*entities.Line
	bom           []*entities.BOMItem
	inventory     map[entities.MaterialID]*entities.InventoryItem
	suppliers     map[string]*entities.Supplier
	pos           map[string]*entities.PurchaseOrder
	runs          map[string]*entities.PlanRun
	runOrder      []string
	plans         map[string]*entities.ProductPlan
	planOrder     map[string]int64
	planItems     map[int64]*entities.PlanItem
	allocs        map[int64]*entities.OrderAllocation
	profiles      map[int64]*entities.LineShiftProfile
	telemetry     map[entities.LineID]*entities.ProductionRealtime
	progress      map[progressKey]*entities.OrderProgress
	machineParams []*entities.MachineParameter

	nextPlanItemID  int64
	nextAllocID     int64
	nextProfileID   int64
	nextTelemetryID int64
	nextProgressID  int64
	nextPlanSeq     int64
}

func newTables() *tables {
	return &tables{
		orders:    make(map[string]*entities.Order),
		lines:     make(map[entities.LineID]*entities.Line),
		inventory: make(map[entities.MaterialID]*entities.InventoryItem),
		suppliers: make(map[string]*entities.Supplier),
		pos:       make(map[string]*entities.PurchaseOrder),
		runs:      make(map[string]*entities.PlanRun),
		plans:     make(map[string]*entities.ProductPlan),
		planOrder: make(map[string]int64),
		planItems: make(map[int64]*entities.PlanItem),
		allocs:    make(map[int64]*entities.OrderAllocation),
		profiles:  make(map[int64]*entities.LineShiftProfile),
		telemetry: make(map[entities.LineID]*entities.ProductionRealtime),
		progress:  make(map[progressKey]*entities.OrderProgress),
	}
}

func (t *tables) clone() *tables {
	c := *t
	c.orders = maps.Clone(t.orders)
	c.lines = maps.Clone(t.lines)
	c.bom = append([]*entities.BOMItem(nil), t.bom...)
	c.inventory = maps.Clone(t.inventory)
	c.suppliers = maps.Clone(t.suppliers)
	c.pos = maps.Clone(t.pos)
	c.runs = maps.Clone(t.runs)
	c.runOrder = append([]string(nil), t.runOrder...)
	c.plans = maps.Clone(t.plans)
	c.planOrder = maps.Clone(t.planOrder)
	c.planItems = maps.Clone(t.planItems)
	c.allocs = maps.Clone(t.allocs)
	c.profiles = maps.Clone(t.profiles)
	c.telemetry = maps.Clone(t.telemetry)
	c.progress = maps.Clone(t.progress)
	c.machineParams = append([]*entities.MachineParameter(nil), t.machineParams...)
	return &c
}

// Store is a transactional in-memory implementation of repositories.Store.
// Writers are serialized; readers see the last committed version. Telemetry
// and progress keep only the newest row per key; full history belongs to the
// journal.
type Store struct {
	writeMu sync.Mutex
	stateMu sync.RWMutex
	state   *tables
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: newTables()}
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)

func (s *Store) current() *tables {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// WithinTx runs fn on a private copy of the store and publishes it only when fn succeeds
func (s *Store) WithinTx(ctx context.Context, fn func(uow repositories.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	work := s.current().clone()
	if err := fn(&unitOfWork{t: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.stateMu.Lock()
	s.state = work
	s.stateMu.Unlock()
	return nil
}

// View runs fn against the last committed version
func (s *Store) View(ctx context.Context, fn func(uow repositories.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&unitOfWork{t: s.current(), readOnly: true})
}

type unitOfWork struct {
	t        *tables
	readOnly bool
}

func (u *unitOfWork) writable() error {
	if u.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (u *unitOfWork) Orders() repositories.OrderRepository                 { return &OrderRepository{u} }
func (u *unitOfWork) Lines() repositories.LineRepository                   { return &LineRepository{u} }
func (u *unitOfWork) BOM() repositories.BOMRepository                      { return &BOMRepository{u} }
func (u *unitOfWork) Inventory() repositories.InventoryRepository          { return &InventoryRepository{u} }
func (u *unitOfWork) Suppliers() repositories.SupplierRepository           { return &SupplierRepository{u} }
func (u *unitOfWork) PurchaseOrders() repositories.PurchaseOrderRepository { return &PurchaseOrderRepository{u} }
func (u *unitOfWork) Plans() repositories.PlanRepository                   { return &PlanRepository{u} }
func (u *unitOfWork) Simulation() repositories.SimulationRepository        { return &SimulationRepository{u} }

func cloneOf[T any](p *T) *T {
	c := *p
	return &c
}
