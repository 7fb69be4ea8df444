package availability

import (
	"iter"
	"time"
)

// Slot is one cell of the dashboard grid.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// FilterInput collects everything the conflict filter looks at. Busy holds the
// staff member's active appointments and the blocks that apply to them.
type FilterInput struct {
	Duration time.Duration
	Busy     []Interval
	Now      time.Time
	// IsToday enables past-slot exclusion: candidates starting before Now are dropped.
	IsToday bool
}

func (in FilterInput) available(start time.Time) bool {
	if in.IsToday && start.Before(in.Now) {
		return false
	}
	return !overlapsAny(Interval{Start: start, End: start.Add(in.Duration)}, in.Busy)
}

// Filter keeps the candidates whose [start, start+Duration) is free. Candidate order
// is preserved, so ascending input gives ascending output.
func Filter(candidates iter.Seq[time.Time], in FilterInput) []time.Time {
	out := []time.Time{}
	for start := range candidates {
		if in.available(start) {
			out = append(out, start)
		}
	}
	return out
}

// Annotate returns every candidate with its availability flag.
func Annotate(candidates iter.Seq[time.Time], in FilterInput) []Slot {
	out := []Slot{}
	for start := range candidates {
		out = append(out, Slot{Time: FormatTimeOfDay(start), Available: in.available(start)})
	}
	return out
}

func FormatAll(ts []time.Time) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = FormatTimeOfDay(t)
	}
	return out
}
