// Package recurrence expands a compact recurrence rule into dated schedule blocks.
package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

var ErrInvalidRecurrenceConfig = errors.New("invalid recurrence config")

const (
	DefaultMaxOccurrences = 52
	// MaxOccurrencesLimit caps explicit bounds so a single request stays small.
	MaxOccurrencesLimit = 730
	customWeeklyScanDays = 365
)

type Rule struct {
	Pattern string
	// Weekdays is only read for custom_weekly.
	Weekdays []time.Weekday
	// EndDate is an inclusive calendar date; only its year, month and day are read.
	// Zero means open ended.
	EndDate time.Time
	// MaxOccurrences bounds daily, weekly and monthly rules (DefaultMaxOccurrences
	// when zero). custom_weekly is bounded by a 365 day scan and honours this field
	// only when it is set.
	MaxOccurrences int
}

// Request describes the first occurrence of a series and how it repeats.
type Request struct {
	BusinessID string
	StaffID    string
	Reason     string
	Color      string
	Anchor     availability.Interval
	Rule       Rule
}

// Expand returns the series' occurrences in chronological order. Recurring
// occurrences share a new SeriesID; ids are assigned on insert.
func Expand(req Request) ([]model.ScheduleBlock, error) {
	if _, err := availability.NewInterval(req.Anchor.Start, req.Anchor.End); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.Rule.Pattern == model.PatternOnce {
		return []model.ScheduleBlock{{
			BusinessID: req.BusinessID,
			StaffID:    req.StaffID,
			Reason:     req.Reason,
			Color:      req.Color,
			StartTime:  req.Anchor.Start,
			EndTime:    req.Anchor.End,
		}}, nil
	}

	seriesID := uuid.NewString()
	var out []model.ScheduleBlock
	for _, day := range dates(req) {
		iv := onDay(req.Anchor, day)
		out = append(out, model.ScheduleBlock{
			BusinessID:        req.BusinessID,
			StaffID:           req.StaffID,
			Reason:            req.Reason,
			Color:             req.Color,
			StartTime:         iv.Start,
			EndTime:           iv.End,
			IsRecurring:       true,
			RecurrencePattern: req.Rule.Pattern,
			SeriesID:          seriesID,
		})
	}
	return out, nil
}

func validate(req Request) error {
	r := req.Rule
	switch r.Pattern {
	case model.PatternOnce, model.PatternDaily, model.PatternWeekly, model.PatternMonthly:
	case model.PatternCustomWeekly:
		if len(r.Weekdays) == 0 {
			return fmt.Errorf("%w: custom_weekly needs at least one weekday", ErrInvalidRecurrenceConfig)
		}
		for _, wd := range r.Weekdays {
			if wd < time.Sunday || wd > time.Saturday {
				return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRecurrenceConfig, wd)
			}
		}
	default:
		return fmt.Errorf("%w: unknown pattern %q", ErrInvalidRecurrenceConfig, r.Pattern)
	}
	if r.MaxOccurrences < 0 || r.MaxOccurrences > MaxOccurrencesLimit {
		return fmt.Errorf("%w: max occurrences must not exceed %d", ErrInvalidRecurrenceConfig, MaxOccurrencesLimit)
	}
	loc := req.Anchor.Start.Location()
	if !r.EndDate.IsZero() && calendarDate(r.EndDate, loc).Before(dateOf(req.Anchor.Start, loc)) {
		return fmt.Errorf("%w: end date precedes the first occurrence", ErrInvalidRecurrenceConfig)
	}
	return nil
}

// dates lists the calendar days (midnight, anchor location) carrying an occurrence.
func dates(req Request) []time.Time {
	r := req.Rule
	loc := req.Anchor.Start.Location()
	first := dateOf(req.Anchor.Start, loc)
	var last time.Time
	if !r.EndDate.IsZero() {
		last = calendarDate(r.EndDate, loc)
	}
	within := func(d time.Time) bool { return last.IsZero() || !d.After(last) }

	limit := r.MaxOccurrences
	if limit == 0 && r.Pattern != model.PatternCustomWeekly {
		limit = DefaultMaxOccurrences
	}

	var out []time.Time
	switch r.Pattern {
	case model.PatternDaily, model.PatternWeekly:
		step := 1
		if r.Pattern == model.PatternWeekly {
			step = 7
		}
		for k := 0; len(out) < limit; k++ {
			d := first.AddDate(0, 0, k*step)
			if !within(d) {
				break
			}
			out = append(out, d)
		}
	case model.PatternMonthly:
		for k := 0; len(out) < limit; k++ {
			d := addMonthsClamped(first, k)
			if !within(d) {
				break
			}
			out = append(out, d)
		}
	case model.PatternCustomWeekly:
		set := map[time.Weekday]bool{}
		for _, wd := range r.Weekdays {
			set[wd] = true
		}
		for i := 0; i < customWeeklyScanDays; i++ {
			d := first.AddDate(0, 0, i)
			if !within(d) || (limit > 0 && len(out) >= limit) {
				break
			}
			if set[d.Weekday()] {
				out = append(out, d)
			}
		}
	}
	return out
}

// addMonthsClamped moves k months from first and clamps the day to the target
// month's length, always measuring from first so 31 Jan, 28 Feb, 31 Mar keep
// their anchor day where it exists.
func addMonthsClamped(first time.Time, k int) time.Time {
	y, m, d := first.Date()
	target := time.Date(y, m+time.Month(k), 1, 0, 0, 0, 0, first.Location())
	if last := daysIn(target.Year(), target.Month(), first.Location()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, first.Location())
}

func daysIn(y int, m time.Month, loc *time.Location) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, loc).Day()
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// onDay copies the anchor's wall-clock start and end onto day, keeping the number
// of midnights the anchor spans.
func onDay(anchor availability.Interval, day time.Time) availability.Interval {
	loc := anchor.Start.Location()
	span := int(dateOf(anchor.End, loc).Sub(dateOf(anchor.Start, loc)).Hours()+12) / 24
	y, m, d := day.Date()
	s, e := anchor.Start, anchor.End.In(loc)
	return availability.Interval{
		Start: time.Date(y, m, d, s.Hour(), s.Minute(), s.Second(), 0, loc),
		End:   time.Date(y, m, d+span, e.Hour(), e.Minute(), e.Second(), 0, loc),
	}
}
