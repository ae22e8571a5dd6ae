package planning

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/domain/services/occupancy"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
)

// Snapshot is the consistent view one planning pass works from. plannedUsage
// is the material reserved by earlier orders of the same pass.
type Snapshot struct {
	LinesByProduct map[entities.ProductID][]*entities.Line
	BOM            map[entities.ProductID][]*entities.BOMItem
	Stock          map[entities.MaterialID]entities.Quantity
	plannedUsage   map[entities.MaterialID]entities.Quantity
}

// NewSnapshot builds a snapshot with an empty reservation ledger
func NewSnapshot(lines []*entities.Line, bom []*entities.BOMItem, stock map[entities.MaterialID]entities.Quantity) *Snapshot {
	return &Snapshot{
		LinesByProduct: entities.GroupLinesByProduct(lines),
		BOM:            entities.GroupBOMByProduct(bom),
		Stock:          stock,
		plannedUsage:   make(map[entities.MaterialID]entities.Quantity),
	}
}

// InventoryLimit is how many units of the product the unreserved stock supports
func (s *Snapshot) InventoryLimit(productID entities.ProductID) entities.Quantity {
	rows := s.BOM[productID]
	if len(rows) == 0 {
		return entities.Unbounded
	}
	limit := entities.Unbounded
	for _, b := range rows {
		if b.QuantityPerUnit <= 0 {
			continue
		}
		available := s.Stock[b.MaterialID] - s.plannedUsage[b.MaterialID]
		units := available / b.QuantityPerUnit
		if available < 0 {
			units = 0
		}
		limit = entities.MinQuantity(limit, units)
	}
	return limit
}

// Reserve books material for units of the product
func (s *Snapshot) Reserve(productID entities.ProductID, units entities.Quantity) {
	for _, b := range s.BOM[productID] {
		s.plannedUsage[b.MaterialID] += units * b.QuantityPerUnit
	}
}

// Reserved returns the material reserved so far in this pass
func (s *Snapshot) Reserved(materialID entities.MaterialID) entities.Quantity {
	return s.plannedUsage[materialID]
}

// LineCapacity is a line's unit capacity over an order's horizon
type LineCapacity struct {
	Line     *entities.Line
	Capacity float64
}

// Result describes what one allocation did
type Result struct {
	OrderID        string
	Requested      entities.Quantity
	CapacityUnits  entities.Quantity // floor(total line capacity in horizon)
	InventoryLimit entities.Quantity
	Target         entities.Quantity
	Allocated      entities.Quantity
	ByLine         map[entities.LineID]entities.Quantity
	PlanItems      []*entities.PlanItem
}

// Allocator turns one order into plan items on its product's lines
type Allocator struct {
	HorizonDaysDefault int
}

// Horizon returns the order's planning window and its length in whole days (at least 1)
func (a *Allocator) Horizon(order *entities.Order, today time.Time) (start, end time.Time, days int) {
	start = entities.DateOf(today)
	if !order.StartDate.IsZero() {
		start = entities.DateOf(order.StartDate)
	}
	end = entities.AddDays(today, a.HorizonDaysDefault)
	if !order.DispatchDate.IsZero() {
		end = entities.DateOf(order.DispatchDate)
	}
	days = entities.DaysBetween(start, end)
	if days < 1 {
		days = 1
	}
	return start, end, days
}

// Capacities returns the lines with positive capacity over the horizon and their total
func Capacities(lines []*entities.Line, horizonDays int) ([]LineCapacity, float64) {
	caps := make([]LineCapacity, 0, len(lines))
	var total float64
	for _, ln := range lines {
		c := ln.EffectiveDailyCapacity() * float64(horizonDays)
		if c <= 0 {
			continue
		}
		caps = append(caps, LineCapacity{Line: ln, Capacity: c})
		total += c
	}
	return caps, total
}

// Split distributes target across lines proportionally to capacity. Each
// line's share is round-half-even of target × share; leftovers go one unit at
// a time to lines by capacity descending. No line exceeds floor(capacity).
func Split(target entities.Quantity, caps []LineCapacity) map[entities.LineID]entities.Quantity {
	out := make(map[entities.LineID]entities.Quantity, len(caps))
	var total float64
	for _, c := range caps {
		total += c.Capacity
	}
	if target <= 0 || total <= 0 {
		return out
	}

	remaining := target
	for _, c := range caps {
		if remaining <= 0 {
			break
		}
		q := entities.Quantity(math.RoundToEven(float64(target) * c.Capacity / total))
		q = entities.MinQuantity(q, remaining, headroom(c, 0))
		if q < 0 {
			q = 0
		}
		out[c.Line.LineID] += q
		remaining -= q
	}

	byCapacity := append([]LineCapacity(nil), caps...)
	sort.SliceStable(byCapacity, func(i, j int) bool { return byCapacity[i].Capacity > byCapacity[j].Capacity })
	for remaining > 0 {
		progressed := false
		for _, c := range byCapacity {
			if remaining <= 0 {
				break
			}
			if headroom(c, out[c.Line.LineID]) <= 0 {
				continue
			}
			out[c.Line.LineID]++
			remaining--
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return out
}

func headroom(c LineCapacity, allocated entities.Quantity) entities.Quantity {
	return entities.Quantity(math.Floor(c.Capacity)) - allocated
}

// Allocate plans one order: capacity and inventory bound the target, the
// target is split across lines, and each line's share is scheduled after the
// line's latest booking. Shortfalls are recorded as events, never returned as errors.
func (a *Allocator) Allocate(
	plans repositories.PlanRepository,
	run *entities.PlanRun,
	order *entities.Order,
	snap *Snapshot,
	tracker *occupancy.Tracker,
	today time.Time,
	rec *events.Recorder,
) (*Result, error) {
	result := &Result{OrderID: order.OrderID, Requested: order.Quantity, ByLine: map[entities.LineID]entities.Quantity{}}

	lines := snap.LinesByProduct[order.ProductID]
	if len(lines) == 0 {
		rec.Record(events.NewNoLineForProductEvent(events.NoLineForProduct{OrderID: order.OrderID, ProductID: order.ProductID}))
		return result, nil
	}

	horizonStart, _, horizonDays := a.Horizon(order, today)
	caps, total := Capacities(lines, horizonDays)
	result.CapacityUnits = entities.Quantity(math.Floor(total))
	if total <= 0 {
		rec.Record(events.NewCapacityShortfallEvent(events.CapacityShortfall{
			OrderID: order.OrderID, ProductID: order.ProductID, Requested: order.Quantity, Shortfall: order.Quantity,
		}))
		return result, nil
	}

	result.InventoryLimit = snap.InventoryLimit(order.ProductID)
	if result.InventoryLimit <= 0 {
		rec.Record(events.NewInventoryShortfallEvent(events.InventoryShortfall{
			OrderID: order.OrderID, ProductID: order.ProductID, Requested: order.Quantity, Shortfall: order.Quantity,
		}))
		return result, nil
	}

	result.Target = entities.MinQuantity(order.Quantity, result.CapacityUnits, result.InventoryLimit)
	if result.Target <= 0 {
		rec.Record(events.NewCapacityShortfallEvent(events.CapacityShortfall{
			OrderID: order.OrderID, ProductID: order.ProductID, Requested: order.Quantity,
			Capacity: result.CapacityUnits, Shortfall: order.Quantity,
		}))
		return result, nil
	}
	if result.CapacityUnits < order.Quantity {
		rec.Record(events.NewCapacityShortfallEvent(events.CapacityShortfall{
			OrderID: order.OrderID, ProductID: order.ProductID, Requested: order.Quantity,
			Capacity: result.CapacityUnits, Shortfall: order.Quantity - result.CapacityUnits,
		}))
	}
	if result.InventoryLimit < order.Quantity {
		rec.Record(events.NewInventoryShortfallEvent(events.InventoryShortfall{
			OrderID: order.OrderID, ProductID: order.ProductID, Requested: order.Quantity,
			InventoryLimit: result.InventoryLimit, Shortfall: order.Quantity - result.InventoryLimit,
		}))
	}

	split := Split(result.Target, caps)
	var planned entities.Quantity
	for _, q := range split {
		planned += q
	}
	if planned <= 0 {
		rec.Record(events.NewCapacityShortfallEvent(events.CapacityShortfall{
			OrderID: order.OrderID, ProductID: order.ProductID, Requested: order.Quantity,
			Capacity: result.CapacityUnits, Shortfall: order.Quantity,
		}))
		return result, nil
	}

	planID := entities.ProductPlanID(run.RunID, order.OrderID)
	if err := plans.SaveProductPlan(&entities.ProductPlan{
		PlanID:   planID,
		RunID:    run.RunID,
		OrderID:  order.OrderID,
		PlanDate: entities.DateOf(today),
		Status:   entities.PlanPlanned,
	}); err != nil {
		return nil, fmt.Errorf("save plan %s: %w", planID, err)
	}

	for _, c := range caps {
		qty := split[c.Line.LineID]
		if qty <= 0 {
			continue
		}
		snap.Reserve(order.ProductID, qty)

		durationDays := float64(qty) / c.Line.EffectiveDailyCapacity()
		start := tracker.NextAvailableStart(c.Line.LineID, horizonStart)
		end := start.Add(time.Duration(durationDays * float64(entities.Day)))

		item, err := entities.NewPlanItem(planID, c.Line.LineID, order.ProductID, qty, start, end)
		if err != nil {
			return nil, err
		}
		if err := plans.AddPlanItem(item); err != nil {
			return nil, fmt.Errorf("add plan item for %s on %s: %w", order.OrderID, c.Line.LineID, err)
		}
		if err := tracker.Book(c.Line.LineID, start, end); err != nil {
			return nil, err
		}
		if err := plans.AddAllocation(&entities.OrderAllocation{
			RunID:        run.RunID,
			PlanID:       planID,
			OrderID:      order.OrderID,
			LineID:       c.Line.LineID,
			ProductID:    order.ProductID,
			AllocatedQty: qty,
			PlanItemID:   item.ItemID,
		}); err != nil {
			return nil, fmt.Errorf("add allocation for %s on %s: %w", order.OrderID, c.Line.LineID, err)
		}

		result.ByLine[c.Line.LineID] = qty
		result.Allocated += qty
		result.PlanItems = append(result.PlanItems, item)
	}

	if result.Allocated < order.Quantity {
		rec.Record(events.NewCapacityShortfallEvent(events.CapacityShortfall{
			OrderID: order.OrderID, ProductID: order.ProductID, Requested: order.Quantity,
			Capacity: result.Allocated, Shortfall: order.Quantity - result.Allocated,
		}))
	}
	return result, nil
}
