package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/vsinha/plantsim/pkg/application/services/shared"
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// maxAlternates caps the alternate suppliers named in one recommendation
const maxAlternates = 3

// Priority ranks a recommendation
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Category names the area a recommendation acts on
type Category string

const (
	CategoryCapacity   Category = "CAPACITY"
	CategoryInventory  Category = "INVENTORY"
	CategorySupplier   Category = "SUPPLIER"
	CategoryPreventive Category = "PREVENTIVE"
)

// Recommendation is one mitigation for a late or at-risk order
type Recommendation struct {
	Priority Priority
	Category Category
	Action   string
	Details  string
}

// RecommendationReport bundles an order's delay with its mitigations
type RecommendationReport struct {
	OrderID         string
	DelayDays       *int
	Status          DelayStatus
	Recommendations []Recommendation
}

// DelayRecommendations derives mitigations from an order's root causes
func DelayRecommendations(uow repositories.UnitOfWork, stock StockSource, orderID string, now time.Time) (*RecommendationReport, error) {
	delays, err := OrderDelays(uow, stock, now)
	if err != nil {
		return nil, err
	}
	var delay *OrderDelay
	for i := range delays {
		if delays[i].OrderID == orderID {
			delay = &delays[i]
			break
		}
	}
	if delay == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}

	report := &RecommendationReport{OrderID: orderID, DelayDays: delay.DelayDays, Status: delay.Status}

	if delay.HasCause(CauseCapacityShortfall) {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: PriorityHigh,
			Category: CategoryCapacity,
			Action:   "Increase production capacity",
			Details: fmt.Sprintf("Shortfall of %d units. Consider overtime shifts, reallocating lines "+
				"from lower-priority orders, or raising OEE through maintenance.", delay.ShortfallQty),
		})
	}

	order, err := uow.Orders().GetOrder(orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}
	bom, err := uow.BOM().GetBOMItems(order.ProductID)
	if err != nil {
		return nil, fmt.Errorf("load bom of %s: %w", order.ProductID, err)
	}

	if delay.HasCause(CauseInventoryShortage) {
		var low []string
		for _, b := range bom {
			required := b.QuantityPerUnit * order.Quantity
			current, _ := stock.Stock(b.MaterialID)
			if current < required {
				low = append(low, fmt.Sprintf("%s (need %d, have %d)", b.MaterialID, required, current))
			}
		}
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: PriorityHigh,
			Category: CategoryInventory,
			Action:   "Expedite material procurement",
			Details: fmt.Sprintf("Low stock for: %s. Consider expediting open purchase orders, "+
				"placing emergency orders, or using alternate suppliers.", strings.Join(low, ", ")),
		})
	}

	if delay.HasCause(CauseSupplierDelay) {
		details, err := supplierDelayDetails(uow, bom, now)
		if err != nil {
			return nil, err
		}
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: PriorityMedium,
			Category: CategorySupplier,
			Action:   "Address supplier delays",
			Details:  details,
		})
	}

	if delay.Status == OnTime && len(report.Recommendations) == 0 {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: PriorityLow,
			Category: CategoryPreventive,
			Action:   "Monitor closely",
			Details:  "Order is on track. Keep monitoring inventory levels and production rates.",
		})
	}
	return report, nil
}

// supplierDelayDetails names the overdue purchase orders and the best
// alternate suppliers outside the late ones
func supplierDelayDetails(uow repositories.UnitOfWork, bom []*entities.BOMItem, now time.Time) (string, error) {
	late, err := overduePurchaseOrders(uow.PurchaseOrders(), bom, now)
	if err != nil {
		return "", err
	}
	suppliers, err := uow.Suppliers().GetAllSuppliers()
	if err != nil {
		return "", fmt.Errorf("load suppliers: %w", err)
	}

	lateSuppliers := make(map[string]bool, len(late))
	overdue := make([]string, 0, len(late))
	for _, po := range late {
		lateSuppliers[po.SupplierID] = true
		overdue = append(overdue, fmt.Sprintf("%s from %s (due %s)", po.POID, po.SupplierID, po.ETA.Format("2006-01-02")))
	}

	details := fmt.Sprintf("Overdue deliveries: %s. Contact suppliers to expedite or raise safety stock for critical materials.",
		strings.Join(overdue, ", "))

	alternates := shared.RankAlternateSuppliers(suppliers, lateSuppliers)
	if len(alternates) > maxAlternates {
		alternates = alternates[:maxAlternates]
	}
	if len(alternates) > 0 {
		names := make([]string, 0, len(alternates))
		for _, s := range alternates {
			names = append(names, fmt.Sprintf("%s %s (%.0f%% reliable, %dd lead time)", s.SupplierID, s.Name, s.ReliabilityPct, s.LeadTimeDays))
		}
		details += " Alternate suppliers: " + strings.Join(names, ", ") + "."
	}
	return details, nil
}
