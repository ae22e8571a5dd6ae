package simulation

import (
	"strings"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/infrastructure/config"
)

// Alert is one operational alert raised on a line during a tick
type Alert string

const (
	MaintenanceAlert Alert = "Maintenance_Alert"
	ShiftAdjustment  Alert = "ShiftAdjustment"
	SupplyAlert      Alert = "SupplyAlert"
	QualityAlert     Alert = "Quality_Alert"
)

// NormalStatus is the alert status of a line with no alerts
const NormalStatus = "Normal"

// Readings are the sampled values alerts are classified from
type Readings struct {
	UptimePct             float64
	WorkerAvailabilityPct float64
	InventoryPct          float64
	DefectRatePct         float64
	Semiconductor         entities.SemiconductorAvailability
}

// StockLookup returns the live stock of a material and whether it is tracked
type StockLookup func(entities.MaterialID) (entities.Quantity, bool)

// ClassifySemiconductor checks the critical materials in order: Shortage as
// soon as one is out of stock, Delayed if any is below lowStock units.
// Untracked materials are ignored.
func ClassifySemiconductor(stock StockLookup, critical []string, lowStock int64) entities.SemiconductorAvailability {
	status := entities.SemiAvailable
	for _, id := range critical {
		q, ok := stock(entities.MaterialID(id))
		if !ok {
			continue
		}
		if q <= 0 {
			return entities.SemiShortage
		}
		if int64(q) < lowStock {
			status = entities.SemiDelayed
		}
	}
	return status
}

// Classify returns every alert the readings raise, in a fixed order
func Classify(r Readings, cfg config.SimulationConfig) []Alert {
	var alerts []Alert
	if r.UptimePct < cfg.UptimeAlertPct {
		alerts = append(alerts, MaintenanceAlert)
	}
	if r.WorkerAvailabilityPct < cfg.WorkerAlertPct {
		alerts = append(alerts, ShiftAdjustment)
	}
	if r.InventoryPct < cfg.InventoryAlertPct || r.Semiconductor != entities.SemiAvailable {
		alerts = append(alerts, SupplyAlert)
	}
	if r.DefectRatePct > cfg.DefectAlertPct {
		alerts = append(alerts, QualityAlert)
	}
	return alerts
}

// AlertStatus joins alerts with "/", or returns NormalStatus
func AlertStatus(alerts []Alert) string {
	if len(alerts) == 0 {
		return NormalStatus
	}
	parts := make([]string, len(alerts))
	for i, a := range alerts {
		parts[i] = string(a)
	}
	return strings.Join(parts, "/")
}
