package availability

import (
	"errors"
	"iter"
	"time"
)

const DefaultStep = 30 * time.Minute

// Generator produces the candidate start times of one business day.
type Generator struct {
	Day      time.Time // calendar day; its location is the business timezone
	Opening  ClockTime
	Closing  ClockTime
	Step     time.Duration // DefaultStep when zero
	Duration time.Duration
}

func (g Generator) Validate() error {
	if g.Duration <= 0 {
		return errors.New("service duration must be positive")
	}
	if g.Step < 0 {
		return errors.New("slot step must be positive")
	}
	return nil
}

// Candidates yields every start at Step increments from opening such that
// start+Duration <= closing. The sequence can be ranged over any number of times.
func (g Generator) Candidates() iter.Seq[time.Time] {
	step := g.Step
	if step == 0 {
		step = DefaultStep
	}
	open := g.Opening.On(g.Day)
	closing := g.Closing.On(g.Day)
	return func(yield func(time.Time) bool) {
		if g.Duration <= 0 || step <= 0 {
			return
		}
		for t := open; !t.Add(g.Duration).After(closing); t = t.Add(step) {
			if !yield(t) {
				return
			}
		}
	}
}

func (g Generator) Slots() []time.Time {
	var out []time.Time
	for t := range g.Candidates() {
		out = append(out, t)
	}
	return out
}
