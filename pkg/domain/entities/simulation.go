package entities

import "time"

// LineShiftProfile holds the stochastic production parameters of a line within a run
type LineShiftProfile struct {
	ID        int64
	RunID     string
	LineID    LineID
	ShiftID   string
	ProductID ProductID

	BaseRateUnitsPerHour      float64
	BaseDefectRatePct         float64
	BaseUptimePct             float64
	BaseWorkerAvailabilityPct float64
	BaseEnergyKWhPerUnit      float64

	ThroughputSigmaPct  float64
	UptimeSigmaPct      float64
	WorkerAvailSigmaPct float64
	DefectSigmaPct      float64
	EnergySigmaPct      float64
}

// SemiconductorAvailability classifies stock of the critical materials
type SemiconductorAvailability string

const (
	SemiAvailable SemiconductorAvailability = "Available"
	SemiDelayed   SemiconductorAvailability = "Delayed"
	SemiShortage  SemiconductorAvailability = "Shortage"
)

// ProductionRealtime is one telemetry record per line per tick
type ProductionRealtime struct {
	ID         int64
	RunID      string
	PlanID     string
	PlanItemID int64
	TS         time.Time

	LineID  LineID
	ShiftID string
	Demand  Quantity

	InventoryStatusPct    float64
	MachineUptimePct      float64
	WorkerAvailabilityPct float64

	ProductionOutputCum     Quantity
	DefectRatePct           float64
	EnergyConsumptionKWhCum float64

	SemiconductorAvailability SemiconductorAvailability
	AlertStatus               string
}

// OrderProgress is a point-in-time snapshot of an order's completion
type OrderProgress struct {
	ID                      int64
	OrderID                 string
	RunID                   string
	TS                      time.Time
	CompletedQty            Quantity
	RemainingQty            Quantity
	EstimatedCompletionDate time.Time // zero = unknown
}

// MachineParameter is a monitored machine reading against its threshold
type MachineParameter struct {
	ID           int64
	MachineID    string
	LineID       LineID
	Parameter    string
	Threshold    float64
	CurrentValue float64
	OEEPct       float64
}
