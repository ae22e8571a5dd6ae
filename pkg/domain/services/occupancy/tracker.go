package occupancy

import (
	"fmt"
	"sort"
	"time"

	"github.com/vsinha/plantsim/pkg/domain/entities"
)

// Interval is a booked [Start, End) window on a line
type Interval struct {
	Start time.Time
	End   time.Time
}

// Tracker keeps, per line, the booked intervals sorted by start time.
// It is not safe for concurrent use; callers hold the plant lock.
type Tracker struct {
	intervals map[entities.LineID][]Interval
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{intervals: make(map[entities.LineID][]Interval)}
}

// FromPlanItems rebuilds occupancy from persisted plan items
func FromPlanItems(items []*entities.PlanItem) *Tracker {
	t := NewTracker()
	for _, item := range items {
		t.intervals[item.LineID] = append(t.intervals[item.LineID], Interval{Start: item.StartTS, End: item.EndTS})
	}
	for lineID := range t.intervals {
		t.sortLine(lineID)
	}
	return t
}

// NextAvailableStart returns desired when the line is free from that point on,
// otherwise the latest end time among the booked intervals. Gaps are never filled.
func (t *Tracker) NextAvailableStart(lineID entities.LineID, desired time.Time) time.Time {
	latest, ok := t.LatestEnd(lineID)
	if !ok || !desired.Before(latest) {
		return desired
	}
	return latest
}

// LatestEnd returns the maximum end time booked on the line
func (t *Tracker) LatestEnd(lineID entities.LineID) (time.Time, bool) {
	booked := t.intervals[lineID]
	if len(booked) == 0 {
		return time.Time{}, false
	}
	latest := booked[0].End
	for _, iv := range booked[1:] {
		if iv.End.After(latest) {
			latest = iv.End
		}
	}
	return latest, true
}

// Book registers a new interval on the line. Overlapping an existing booking is an error.
func (t *Tracker) Book(lineID entities.LineID, start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("interval end %v is before start %v on line %s", end, start, lineID)
	}
	for _, iv := range t.intervals[lineID] {
		if start.Before(iv.End) && iv.Start.Before(end) {
			return fmt.Errorf("interval %v-%v overlaps booking %v-%v on line %s", start, end, iv.Start, iv.End, lineID)
		}
	}
	t.intervals[lineID] = append(t.intervals[lineID], Interval{Start: start, End: end})
	t.sortLine(lineID)
	return nil
}

// Intervals returns a copy of the line's bookings in chronological order
func (t *Tracker) Intervals(lineID entities.LineID) []Interval {
	out := make([]Interval, len(t.intervals[lineID]))
	copy(out, t.intervals[lineID])
	return out
}

func (t *Tracker) sortLine(lineID entities.LineID) {
	booked := t.intervals[lineID]
	sort.SliceStable(booked, func(i, j int) bool {
		return booked[i].Start.Before(booked[j].Start)
	})
}
