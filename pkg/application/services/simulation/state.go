package simulation

import (
	"maps"
	"sort"

	"github.com/vsinha/plantsim/pkg/domain/entities"
)

// LineState holds the running production counters of one line
type LineState struct {
	UnitsCompleted    float64           // continuous, fractional units included
	UnitsCompletedInt entities.Quantity // floor of UnitsCompleted; drives consumption
	EnergyKWh         float64           // cumulative
}

// advance adds produced units and returns how many whole units were finished
func (s *LineState) advance(produced float64) entities.Quantity {
	s.UnitsCompleted += produced
	whole := entities.Quantity(s.UnitsCompleted)
	delta := whole - s.UnitsCompletedInt
	if delta < 0 {
		delta = 0
	}
	s.UnitsCompletedInt = whole
	return delta
}

// LineStates is the per-line state of a simulation session
type LineStates map[entities.LineID]*LineState

// NewLineStates creates zeroed state for every line
func NewLineStates(lines []*entities.Line) LineStates {
	states := make(LineStates, len(lines))
	for _, ln := range lines {
		states[ln.LineID] = &LineState{}
	}
	return states
}

// TotalCompleted sums the continuous counters of all lines
func (ls LineStates) TotalCompleted() float64 {
	var total float64
	for _, s := range ls {
		total += s.UnitsCompleted
	}
	return total
}

// IDs returns the line ids sorted
func (ls LineStates) IDs() []entities.LineID {
	ids := make([]entities.LineID, 0, len(ls))
	for id := range ls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// clone deep-copies the states
func (ls LineStates) clone() LineStates {
	c := maps.Clone(ls)
	for id, s := range c {
		copied := *s
		c[id] = &copied
	}
	return c
}
