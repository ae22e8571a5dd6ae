package ledger

import (
	"maps"
	"sort"
	"sync"

	"github.com/vsinha/plantsim/pkg/domain/entities"
)

// Ledger is the live material stock used by planning and simulation, plus
// the fixed BOM index. Only materials referenced by some BOM row are tracked.
type Ledger struct {
	mu        sync.RWMutex
	stock     map[entities.MaterialID]entities.Quantity
	seed      map[entities.MaterialID]entities.Quantity
	seedTotal entities.Quantity
	bom       map[entities.ProductID][]*entities.BOMItem
	loaded    bool
}

// Checkpoint is a copy of the ledger's stock, used to undo a failed unit of work
type Checkpoint struct {
	stock map[entities.MaterialID]entities.Quantity
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{
		stock: make(map[entities.MaterialID]entities.Quantity),
		seed:  make(map[entities.MaterialID]entities.Quantity),
		bom:   make(map[entities.ProductID][]*entities.BOMItem),
	}
}

// Load resets the ledger from master rows. The loaded stock becomes the seed.
func (l *Ledger) Load(items []*entities.InventoryItem, bom []*entities.BOMItem) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.bom = entities.GroupBOMByProduct(bom)
	used := make(map[entities.MaterialID]bool)
	for _, b := range bom {
		used[b.MaterialID] = true
	}

	l.stock = make(map[entities.MaterialID]entities.Quantity, len(used))
	l.seedTotal = 0
	for _, item := range items {
		if !used[item.MaterialID] {
			continue
		}
		l.stock[item.MaterialID] = item.CurrentStock
		l.seedTotal += item.CurrentStock
	}
	l.seed = maps.Clone(l.stock)
	l.loaded = true
}

// Loaded reports whether Load has been called
func (l *Ledger) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Stock returns the live stock of a material
func (l *Ledger) Stock(materialID entities.MaterialID) (entities.Quantity, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	q, ok := l.stock[materialID]
	return q, ok
}

// Seed returns the stock of a material when the ledger was loaded
func (l *Ledger) Seed(materialID entities.MaterialID) (entities.Quantity, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	q, ok := l.seed[materialID]
	return q, ok
}

// Snapshot returns a copy of the live stock
func (l *Ledger) Snapshot() map[entities.MaterialID]entities.Quantity {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.stock)
}

// Materials returns the tracked material ids sorted
func (l *Ledger) Materials() []entities.MaterialID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]entities.MaterialID, 0, len(l.stock))
	for id := range l.stock {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// InventoryPct is total live stock as a percentage of the seeded total; 0 without a seed
func (l *Ledger) InventoryPct() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.seedTotal <= 0 {
		return 0
	}
	var total entities.Quantity
	for _, q := range l.stock {
		total += q
	}
	return float64(total) / float64(l.seedTotal) * 100
}

// BOM returns the BOM rows of a product
func (l *Ledger) BOM(productID entities.ProductID) []*entities.BOMItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*entities.BOMItem(nil), l.bom[productID]...)
}

// BOMIndex returns the full product -> BOM rows index
func (l *Ledger) BOMIndex() map[entities.ProductID][]*entities.BOMItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[entities.ProductID][]*entities.BOMItem, len(l.bom))
	for p, rows := range l.bom {
		out[p] = append([]*entities.BOMItem(nil), rows...)
	}
	return out
}

// Consume removes units × qty-per-unit of every BOM material of the product.
// Stock never goes below zero. Returns the quantity actually removed per material.
func (l *Ledger) Consume(productID entities.ProductID, units entities.Quantity) map[entities.MaterialID]entities.Quantity {
	l.mu.Lock()
	defer l.mu.Unlock()

	consumed := make(map[entities.MaterialID]entities.Quantity)
	if units <= 0 {
		return consumed
	}
	for _, b := range l.bom[productID] {
		current := l.stock[b.MaterialID]
		take := entities.MinQuantity(current, b.QuantityPerUnit*units)
		if take < 0 {
			take = 0
		}
		l.stock[b.MaterialID] = current - take
		consumed[b.MaterialID] += take
	}
	return consumed
}

// Add increases a material's stock, tracking it if it was unknown
func (l *Ledger) Add(materialID entities.MaterialID, qty entities.Quantity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[materialID] += qty
}

// Checkpoint captures the live stock
func (l *Ledger) Checkpoint() Checkpoint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Checkpoint{stock: maps.Clone(l.stock)}
}

// Restore replaces the live stock with a checkpoint
func (l *Ledger) Restore(cp Checkpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock = maps.Clone(cp.stock)
}
