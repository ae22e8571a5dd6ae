package replenishment

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/plantsim/pkg/application/services/ledger"
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
	"github.com/vsinha/plantsim/pkg/infrastructure/events"
	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
)

var (
	// ErrUnknownPurchaseOrder is returned when a purchase order id does not exist
	ErrUnknownPurchaseOrder = errors.New("unknown purchase order")
	// ErrPurchaseOrderClosed is returned when changing a delivered purchase order
	ErrPurchaseOrderClosed = errors.New("purchase order already delivered")
)

// Controller keeps material supply flowing: it delivers due purchase orders
// into the ledger and places new ones for uncovered requirements
type Controller struct {
	ledger *ledger.Ledger
	log    *logging.Logger
}

// NewController creates a replenishment controller over the live ledger
func NewController(l *ledger.Ledger, log *logging.Logger) *Controller {
	if log == nil {
		log = logging.Discard()
	}
	return &Controller{ledger: l, log: log}
}

// Deliver receives every open purchase order whose ETA is today or earlier.
// Each one adds exactly its quantity to the ledger once.
func (c *Controller) Deliver(uow repositories.UnitOfWork, now time.Time, rec *events.Recorder) ([]*entities.PurchaseOrder, error) {
	pos, err := uow.PurchaseOrders().GetAllPurchaseOrders()
	if err != nil {
		return nil, fmt.Errorf("load purchase orders: %w", err)
	}

	today := entities.DateOf(now)
	var delivered []*entities.PurchaseOrder
	for _, po := range pos {
		if !po.IsOpen() || entities.DateOf(po.ETA).After(today) {
			continue
		}
		po.Status = entities.PODelivered
		if err := uow.PurchaseOrders().SavePurchaseOrder(po); err != nil {
			return nil, fmt.Errorf("deliver %s: %w", po.POID, err)
		}
		c.ledger.Add(po.MaterialID, po.Quantity)
		delivered = append(delivered, po)

		rec.Record(events.NewPODeliveredEvent(changed(po, time.Time{})))
		c.log.Info("po_delivered", "purchase order delivered", logging.Fields{
			"po_id": po.POID, "material_id": po.MaterialID, "quantity": po.Quantity,
		})
	}
	return delivered, nil
}

// Requirements explodes every current order through the BOM and compares the
// totals with live stock, sorted by material id
func (c *Controller) Requirements(uow repositories.UnitOfWork) ([]entities.MaterialRequirement, error) {
	orders, err := uow.Orders().GetAllOrders()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	bom, err := uow.BOM().GetAllBOMItems()
	if err != nil {
		return nil, fmt.Errorf("load bom: %w", err)
	}

	required := entities.RequiredByMaterial(orders, entities.GroupBOMByProduct(bom))
	out := make([]entities.MaterialRequirement, 0, len(required))
	for materialID, qty := range required {
		current, err := c.currentStock(uow, materialID)
		if err != nil {
			return nil, err
		}
		out = append(out, entities.MaterialRequirement{
			MaterialID:           materialID,
			Required:             qty,
			CurrentStock:         current,
			RemainingRequirement: entities.RemainingRequirement(qty, current),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialID < out[j].MaterialID })
	return out, nil
}

// currentStock prefers the live ledger and falls back to the master row
func (c *Controller) currentStock(uow repositories.UnitOfWork, materialID entities.MaterialID) (entities.Quantity, error) {
	if q, ok := c.ledger.Stock(materialID); ok {
		return q, nil
	}
	item, err := uow.Inventory().GetInventoryItem(materialID)
	if errors.Is(err, repositories.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load inventory %s: %w", materialID, err)
	}
	return item.CurrentStock, nil
}

// Place creates one purchase order per material whose remaining requirement
// is positive and which has no open order yet. Materials without a master row
// or a supplier are reported and skipped.
func (c *Controller) Place(uow repositories.UnitOfWork, now time.Time, rec *events.Recorder) ([]*entities.PurchaseOrder, error) {
	reqs, err := c.Requirements(uow)
	if err != nil {
		return nil, err
	}

	today := entities.DateOf(now)
	var placed []*entities.PurchaseOrder
	for _, req := range reqs {
		item, err := uow.Inventory().GetInventoryItem(req.MaterialID)
		if errors.Is(err, repositories.ErrNotFound) {
			rec.Record(events.NewSupplierMissingEvent(events.SupplierMissing{
				MaterialID: req.MaterialID,
				Reason:     "no inventory master row",
			}))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load inventory %s: %w", req.MaterialID, err)
		}

		if req.RemainingRequirement <= 0 {
			continue
		}

		if _, err := uow.PurchaseOrders().GetOpenPurchaseOrder(req.MaterialID); err == nil {
			continue
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("load open purchase order for %s: %w", req.MaterialID, err)
		}

		supplier, err := uow.Suppliers().GetSupplier(item.SupplierID)
		if errors.Is(err, repositories.ErrNotFound) {
			rec.Record(events.NewSupplierMissingEvent(events.SupplierMissing{
				MaterialID: req.MaterialID,
				SupplierID: item.SupplierID,
				Reason:     "no supplier found",
			}))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load supplier %s: %w", item.SupplierID, err)
		}

		poID, err := nextPurchaseOrderID(uow.PurchaseOrders(), req.MaterialID, today)
		if err != nil {
			return nil, err
		}
		po, err := entities.NewPurchaseOrder(
			poID,
			req.MaterialID,
			supplier.SupplierID,
			req.RemainingRequirement,
			today,
			entities.AddDays(today, supplier.LeadTimeDays),
		)
		if err != nil {
			return nil, err
		}
		if err := uow.PurchaseOrders().SavePurchaseOrder(po); err != nil {
			return nil, fmt.Errorf("save %s: %w", po.POID, err)
		}
		placed = append(placed, po)

		rec.Record(events.NewPOCreatedEvent(changed(po, time.Time{})))
		c.log.Info("po_created", "purchase order placed", logging.Fields{
			"po_id": po.POID, "material_id": po.MaterialID, "quantity": po.Quantity, "supplier_id": po.SupplierID,
		})
	}
	return placed, nil
}

// nextPurchaseOrderID is PO-<material>-<date>, suffixed when that id is taken
func nextPurchaseOrderID(pos repositories.PurchaseOrderRepository, materialID entities.MaterialID, day time.Time) (string, error) {
	base := fmt.Sprintf("PO-%s-%s", materialID, day.Format("2006-01-02"))
	id := base
	for n := 2; ; n++ {
		_, err := pos.GetPurchaseOrder(id)
		if errors.Is(err, repositories.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("check purchase order id %s: %w", id, err)
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
}

// Expedite pulls an open order's ETA in by days, never before today
func (c *Controller) Expedite(uow repositories.UnitOfWork, poID string, days int, now time.Time, rec *events.Recorder) (*entities.PurchaseOrder, error) {
	if days <= 0 {
		return nil, fmt.Errorf("expedite days must be positive, got %d", days)
	}
	po, err := c.openPurchaseOrder(uow, poID)
	if err != nil {
		return nil, err
	}

	previous := po.ETA
	eta := entities.AddDays(po.ETA, -days)
	if today := entities.DateOf(now); eta.Before(today) {
		eta = today
	}
	po.ETA = eta
	po.Status = entities.POExpedited
	if err := uow.PurchaseOrders().SavePurchaseOrder(po); err != nil {
		return nil, fmt.Errorf("save %s: %w", po.POID, err)
	}

	rec.Record(events.NewPOExpeditedEvent(changed(po, previous)))
	return po, nil
}

// Delay pushes an open order's ETA out by days
func (c *Controller) Delay(uow repositories.UnitOfWork, poID string, days int, rec *events.Recorder) (*entities.PurchaseOrder, error) {
	if days <= 0 {
		return nil, fmt.Errorf("delay days must be positive, got %d", days)
	}
	po, err := c.openPurchaseOrder(uow, poID)
	if err != nil {
		return nil, err
	}

	previous := po.ETA
	po.ETA = entities.AddDays(po.ETA, days)
	po.Status = entities.PODelayed
	if err := uow.PurchaseOrders().SavePurchaseOrder(po); err != nil {
		return nil, fmt.Errorf("save %s: %w", po.POID, err)
	}

	rec.Record(events.NewPODelayedEvent(changed(po, previous)))
	return po, nil
}

func (c *Controller) openPurchaseOrder(uow repositories.UnitOfWork, poID string) (*entities.PurchaseOrder, error) {
	po, err := uow.PurchaseOrders().GetPurchaseOrder(poID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPurchaseOrder, poID)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", poID, err)
	}
	if !po.IsOpen() {
		return nil, fmt.Errorf("%w: %s", ErrPurchaseOrderClosed, poID)
	}
	return po, nil
}

func changed(po *entities.PurchaseOrder, previousETA time.Time) events.PurchaseOrderChanged {
	return events.PurchaseOrderChanged{
		POID:        po.POID,
		MaterialID:  po.MaterialID,
		SupplierID:  po.SupplierID,
		Quantity:    po.Quantity,
		ETA:         po.ETA,
		PreviousETA: previousETA,
	}
}
