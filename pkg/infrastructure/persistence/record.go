package persistence

import (
	"encoding/json"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// batchRecord is the stored form of a JournalBatch
type batchRecord struct {
	Seq       uint64            `json:"seq"`
	Kind      string            `json:"kind"`
	RunID     string            `json:"run_id,omitempty"`
	At        time.Time         `json:"at"`
	Telemetry []telemetryRecord `json:"telemetry,omitempty"`
	Progress  []progressRecord  `json:"progress,omitempty"`
	Events    []eventRecord     `json:"events,omitempty"`
}

type telemetryRecord struct {
	RunID                     string    `json:"run_id"`
	PlanID                    string    `json:"plan_id,omitempty"`
	TS                        time.Time `json:"ts"`
	LineID                    string    `json:"assembly_line"`
	ShiftID                   string    `json:"shift_id"`
	Demand                    int64     `json:"demand"`
	InventoryStatusPct        float64   `json:"inventory_status_pct"`
	MachineUptimePct          float64   `json:"machine_uptime_pct"`
	WorkerAvailabilityPct     float64   `json:"worker_availability_pct"`
	ProductionOutputCum       int64     `json:"production_output_cum"`
	DefectRatePct             float64   `json:"defect_rate_pct"`
	EnergyConsumptionKWhCum   float64   `json:"energy_consumption_kwh_cum"`
	SemiconductorAvailability string    `json:"semiconductor_availability"`
	AlertStatus               string    `json:"alert_status"`
}

type progressRecord struct {
	OrderID                 string     `json:"order_id"`
	RunID                   string     `json:"run_id"`
	TS                      time.Time  `json:"ts"`
	CompletedQty            int64      `json:"completed_qty"`
	RemainingQty            int64      `json:"remaining_qty"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date,omitempty"`
}

type eventRecord struct {
	ID        string          `json:"event_id"`
	Type      string          `json:"event_type"`
	StreamID  string          `json:"stream_id"`
	Message   string          `json:"description"`
	Payload   json.RawMessage `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"event_date"`
}

func toRecord(seq uint64, b *repositories.JournalBatch) batchRecord {
	rec := batchRecord{Seq: seq, Kind: b.Kind, RunID: b.RunID, At: b.At.UTC()}
	for _, t := range b.Telemetry {
		rec.Telemetry = append(rec.Telemetry, telemetryRecord{
			RunID:                     t.RunID,
			PlanID:                    t.PlanID,
			TS:                        t.TS.UTC(),
			LineID:                    string(t.LineID),
			ShiftID:                   t.ShiftID,
			Demand:                    int64(t.Demand),
			InventoryStatusPct:        t.InventoryStatusPct,
			MachineUptimePct:          t.MachineUptimePct,
			WorkerAvailabilityPct:     t.WorkerAvailabilityPct,
			ProductionOutputCum:       int64(t.ProductionOutputCum),
			DefectRatePct:             t.DefectRatePct,
			EnergyConsumptionKWhCum:   t.EnergyConsumptionKWhCum,
			SemiconductorAvailability: string(t.SemiconductorAvailability),
			AlertStatus:               t.AlertStatus,
		})
	}
	for _, p := range b.Progress {
		pr := progressRecord{
			OrderID:      p.OrderID,
			RunID:        p.RunID,
			TS:           p.TS.UTC(),
			CompletedQty: int64(p.CompletedQty),
			RemainingQty: int64(p.RemainingQty),
		}
		if !p.EstimatedCompletionDate.IsZero() {
			eta := p.EstimatedCompletionDate.UTC()
			pr.EstimatedCompletionDate = &eta
		}
		rec.Progress = append(rec.Progress, pr)
	}
	for _, e := range b.Events {
		rec.Events = append(rec.Events, eventRecord{
			ID:        e.ID,
			Type:      e.Type,
			StreamID:  e.StreamID,
			Message:   e.Message,
			Payload:   json.RawMessage(e.Payload),
			Timestamp: e.Timestamp.UTC(),
		})
	}
	return rec
}

func (r batchRecord) toBatch() *repositories.JournalBatch {
	b := &repositories.JournalBatch{Kind: r.Kind, RunID: r.RunID, At: r.At}
	for _, t := range r.Telemetry {
		b.Telemetry = append(b.Telemetry, t.toEntity())
	}
	for _, p := range r.Progress {
		op := &entities.OrderProgress{
			OrderID:      p.OrderID,
			RunID:        p.RunID,
			TS:           p.TS,
			CompletedQty: entities.Quantity(p.CompletedQty),
			RemainingQty: entities.Quantity(p.RemainingQty),
		}
		if p.EstimatedCompletionDate != nil {
			op.EstimatedCompletionDate = *p.EstimatedCompletionDate
		}
		b.Progress = append(b.Progress, op)
	}
	for _, e := range r.Events {
		b.Events = append(b.Events, repositories.JournalEvent{
			ID:        e.ID,
			Type:      e.Type,
			StreamID:  e.StreamID,
			Message:   e.Message,
			Payload:   []byte(e.Payload),
			Timestamp: e.Timestamp,
		})
	}
	return b
}

func (t telemetryRecord) toEntity() *entities.ProductionRealtime {
	return &entities.ProductionRealtime{
		RunID:                     t.RunID,
		PlanID:                    t.PlanID,
		TS:                        t.TS,
		LineID:                    entities.LineID(t.LineID),
		ShiftID:                   t.ShiftID,
		Demand:                    entities.Quantity(t.Demand),
		InventoryStatusPct:        t.InventoryStatusPct,
		MachineUptimePct:          t.MachineUptimePct,
		WorkerAvailabilityPct:     t.WorkerAvailabilityPct,
		ProductionOutputCum:       entities.Quantity(t.ProductionOutputCum),
		DefectRatePct:             t.DefectRatePct,
		EnergyConsumptionKWhCum:   t.EnergyConsumptionKWhCum,
		SemiconductorAvailability: entities.SemiconductorAvailability(t.SemiconductorAvailability),
		AlertStatus:               t.AlertStatus,
	}
}
