package analytics

import (
	"errors"
	"fmt"
	"math"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// AlertLevel grades a KPI against its thresholds
type AlertLevel string

const (
	Green AlertLevel = "GREEN"
	Amber AlertLevel = "AMBER"
	Red   AlertLevel = "RED"
)

// KPI is one derived plant indicator
type KPI struct {
	Name   string
	Value  float64
	Unit   string
	Target float64
	Status AlertLevel
}

type kpiSpec struct {
	name         string
	target       float64
	green, amber float64
}

var (
	scheduleConformance  = kpiSpec{"Schedule Conformance %", 95, 95, 90}
	materialAvailability = kpiSpec{"Material Availability %", 95, 95, 80}
	averageOEE           = kpiSpec{"Average Line OEE (approx)", 85, 85, 75}
	machineHealth        = kpiSpec{"Average Machine Health Index", 90, 90, 80}
)

func (s kpiSpec) grade(value float64) KPI {
	status := Red
	switch {
	case value >= s.green:
		status = Green
	case value >= s.amber:
		status = Amber
	}
	return KPI{Name: s.name, Value: math.Round(value*100) / 100, Unit: "%", Target: s.target, Status: status}
}

func mean(values []float64, empty float64) float64 {
	if len(values) == 0 {
		return empty
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// ComputeKPIs derives the four plant KPIs from stored state. Without a plan
// run there is nothing to grade and the result is empty.
func ComputeKPIs(uow repositories.UnitOfWork, stock StockSource) ([]KPI, error) {
	run, err := uow.Plans().GetLatestRun()
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}

	orders, err := uow.Orders().GetAllOrders()
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	var planned entities.Quantity
	for _, o := range orders {
		planned += o.Quantity
	}

	telemetry, err := uow.Simulation().GetLatestTelemetry()
	if err != nil {
		return nil, fmt.Errorf("load telemetry: %w", err)
	}
	var actual entities.Quantity
	var oee []float64
	for _, rt := range telemetry {
		if rt.RunID != run.RunID {
			continue
		}
		actual += rt.ProductionOutputCum
		oee = append(oee, rt.MachineUptimePct*(1-rt.DefectRatePct/100))
	}
	var conformance float64
	if planned > 0 {
		conformance = float64(actual) / float64(planned) * 100
	}

	rows, err := InventoryView(uow, stock)
	if err != nil {
		return nil, err
	}
	var availability []float64
	for _, row := range rows {
		if row.Required > 0 {
			availability = append(availability, math.Min(100, float64(row.CurrentStock)/float64(row.Required)*100))
		}
	}

	params, err := uow.Simulation().GetMachineParameters()
	if err != nil {
		return nil, fmt.Errorf("load machine parameters: %w", err)
	}
	var health []float64
	for _, p := range params {
		if p.Threshold == 0 {
			continue
		}
		deviation := math.Abs(p.CurrentValue-p.Threshold) / p.Threshold
		health = append(health, math.Max(0, 1-deviation)*100)
	}

	return []KPI{
		scheduleConformance.grade(conformance),
		materialAvailability.grade(mean(availability, 100)),
		averageOEE.grade(mean(oee, 0)),
		machineHealth.grade(mean(health, 100)),
	}, nil
}
