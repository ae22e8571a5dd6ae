package planning

import (
	"github.com/vsinha/plantsim/pkg/domain/entities"
	"github.com/vsinha/plantsim/pkg/infrastructure/config"
)

// DefaultShiftID is the shift recorded on templated profiles
const DefaultShiftID = "S1"

// NewShiftProfiles templates one profile per line for a freshly created run.
// The base rate assumes HoursPerDay effective hours; uptime starts at OEE.
func NewShiftProfiles(runID string, lines []*entities.Line, cfg config.ProfileConfig) []*entities.LineShiftProfile {
	hours := cfg.HoursPerDay
	if hours <= 0 {
		hours = 8
	}
	profiles := make([]*entities.LineShiftProfile, 0, len(lines))
	for _, ln := range lines {
		product := cfg.ProductProfile(string(ln.ProductID))
		profiles = append(profiles, &entities.LineShiftProfile{
			RunID:                     runID,
			LineID:                    ln.LineID,
			ShiftID:                   DefaultShiftID,
			ProductID:                 ln.ProductID,
			BaseRateUnitsPerHour:      float64(ln.DailyCapacity) / hours,
			BaseDefectRatePct:         product.DefectRatePct,
			BaseUptimePct:             ln.OEE * 100,
			BaseWorkerAvailabilityPct: cfg.WorkerAvailabilityPct,
			BaseEnergyKWhPerUnit:      product.EnergyKWhPerUnit,
			ThroughputSigmaPct:        cfg.ThroughputSigmaPct,
			UptimeSigmaPct:            cfg.UptimeSigmaPct,
			WorkerAvailSigmaPct:       cfg.WorkerSigmaPct,
			DefectSigmaPct:            cfg.DefectSigmaPct,
			EnergySigmaPct:            cfg.EnergySigmaPct,
		})
	}
	return profiles
}
