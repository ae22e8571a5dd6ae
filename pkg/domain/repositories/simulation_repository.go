package repositories

import "github.com/vsinha/plantsim/pkg/domain/entities"

// SimulationRepository provides access to shift profiles, telemetry and order progress
type SimulationRepository interface {
	SaveProfile(profile *entities.LineShiftProfile) error
	// GetProfilesForRun returns the run's profiles sorted by line id
	GetProfilesForRun(runID string) ([]*entities.LineShiftProfile, error)

	// SaveLatestTelemetry replaces the line's current record. The full
	// per-tick history goes to the Journal.
	SaveLatestTelemetry(record *entities.ProductionRealtime) error
	// GetLatestTelemetry returns the newest record per line, sorted by line id
	GetLatestTelemetry() ([]*entities.ProductionRealtime, error)

	// SaveLatestProgress replaces the order's current snapshot in the run
	SaveLatestProgress(progress *entities.OrderProgress) error
	// GetLatestProgress returns the newest snapshot for the order in the run, or ErrNotFound
	GetLatestProgress(runID, orderID string) (*entities.OrderProgress, error)

	GetMachineParameters() ([]*entities.MachineParameter, error)
	LoadMachineParameters(params []*entities.MachineParameter) error
}
