package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
)

// ErrNotFound is returned by single-row lookups that match nothing
var ErrNotFound = errors.New("not found")

// UnitOfWork groups the repositories touched by one planning pass or tick.
// Writes become visible to other units of work only when the owning
// transaction commits.
type UnitOfWork interface {
	Orders() OrderRepository
	Lines() LineRepository
	BOM() BOMRepository
	Inventory() InventoryRepository
	Suppliers() SupplierRepository
	PurchaseOrders() PurchaseOrderRepository
	Plans() PlanRepository
	Simulation() SimulationRepository
}

// Store runs units of work. WithinTx commits when fn returns nil and
// discards every write otherwise. View runs fn against a read-only snapshot.
type Store interface {
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
	View(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// JournalEvent is the storage form of a recorded domain event
type JournalEvent struct {
	ID        string
	Type      string
	StreamID  string
	Message   string
	Payload   []byte // JSON
	Timestamp time.Time
}

// JournalBatch is everything a committed pass or tick produced
type JournalBatch struct {
	Kind      string // "plan", "tick", "replenishment", ...
	RunID     string
	At        time.Time
	Telemetry []*entities.ProductionRealtime
	Progress  []*entities.OrderProgress
	Events    []JournalEvent
}

// IsEmpty reports whether the batch carries nothing to persist
func (b *JournalBatch) IsEmpty() bool {
	return len(b.Telemetry) == 0 && len(b.Progress) == 0 && len(b.Events) == 0
}

// Journal durably records committed batches. Commit must write the whole
// batch or nothing.
type Journal interface {
	Commit(ctx context.Context, batch *JournalBatch) error
	Close() error
}

// NopJournal discards every batch
type NopJournal struct{}

func (NopJournal) Commit(context.Context, *JournalBatch) error { return nil }
func (NopJournal) Close() error                                { return nil }
