package memory

import (
	"fmt"
	"sort"

	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/domain/repositories"
)

// SimulationRepository provides in-memory storage for profiles, telemetry and progress
type SimulationRepository struct {
	uow *unitOfWork
}

// Verify interface compliance
var _ repositories.SimulationRepository = (*SimulationRepository)(nil)

func (r *SimulationRepository) SaveProfile(profile *entities.LineShiftProfile) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	if profile.ID == 0 {
		r.uow.t.nextProfileID++
		profile.ID = r.uow.t.nextProfileID
	}
	r.uow.t.profiles[profile.ID] = cloneOf(profile)
	return nil
}

func (r *SimulationRepository) GetProfilesForRun(runID string) ([]*entities.LineShiftProfile, error) {
	var out []*entities.LineShiftProfile
	for _, p := range r.uow.t.profiles {
		if p.RunID == runID {
			out = append(out, cloneOf(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LineID != out[j].LineID {
			return out[i].LineID < out[j].LineID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *SimulationRepository) SaveLatestTelemetry(record *entities.ProductionRealtime) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	r.uow.t.nextTelemetryID++
	record.ID = r.uow.t.nextTelemetryID
	r.uow.t.telemetry[record.LineID] = cloneOf(record)
	return nil
}

func (r *SimulationRepository) GetLatestTelemetry() ([]*entities.ProductionRealtime, error) {
	out := make([]*entities.ProductionRealtime, 0, len(r.uow.t.telemetry))
	for _, rec := range r.uow.t.telemetry {
		out = append(out, cloneOf(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineID < out[j].LineID })
	return out, nil
}

func (r *SimulationRepository) SaveLatestProgress(progress *entities.OrderProgress) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	r.uow.t.nextProgressID++
	progress.ID = r.uow.t.nextProgressID
	r.uow.t.progress[progressKey{runID: progress.RunID, orderID: progress.OrderID}] = cloneOf(progress)
	return nil
}

func (r *SimulationRepository) GetLatestProgress(runID, orderID string) (*entities.OrderProgress, error) {
	p, ok := r.uow.t.progress[progressKey{runID: runID, orderID: orderID}]
	if !ok {
		return nil, fmt.Errorf("progress of %s in %s: %w", orderID, runID, repositories.ErrNotFound)
	}
	return cloneOf(p), nil
}

func (r *SimulationRepository) GetMachineParameters() ([]*entities.MachineParameter, error) {
	out := make([]*entities.MachineParameter, 0, len(r.uow.t.machineParams))
	for _, p := range r.uow.t.machineParams {
		out = append(out, cloneOf(p))
	}
	return out, nil
}

func (r *SimulationRepository) LoadMachineParameters(params []*entities.MachineParameter) error {
	if err := r.uow.writable(); err != nil {
		return err
	}
	for _, p := range params {
		r.uow.t.machineParams = append(r.uow.t.machineParams, cloneOf(p))
	}
	return nil
}
