package model

import (
	"strings"
	"time"
)

const (
	PatternOnce         = "once"
	PatternDaily        = "daily"
	PatternWeekly       = "weekly"
	PatternCustomWeekly = "custom_weekly"
	PatternMonthly      = "monthly"
)

// ScheduleBlock is one dated unavailability window. An empty StaffID applies to the
// whole business.
type ScheduleBlock struct {
	ID                string    `json:"id"`
	BusinessID        string    `json:"business_id"`
	StaffID           string    `json:"staff_id,omitempty"`
	Reason            string    `json:"reason"`
	Color             string    `json:"color,omitempty"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurrencePattern string    `json:"recurrence_pattern,omitempty"`
	SeriesID          string    `json:"series_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func (b ScheduleBlock) AppliesToAll() bool {
	return b.StaffID == ""
}

// SeriesKey identifies rows written before series ids were stored.
func (b ScheduleBlock) SeriesKey() string {
	staff := b.StaffID
	if staff == "" {
		staff = "*"
	}
	return strings.Join([]string{b.BusinessID, b.Reason, b.RecurrencePattern, b.Color, staff}, "\x1f")
}

// SameSeries reports whether o belongs to b's series.
func (b ScheduleBlock) SameSeries(o ScheduleBlock) bool {
	if !b.IsRecurring || !o.IsRecurring || b.BusinessID != o.BusinessID {
		return b.ID == o.ID
	}
	if b.SeriesID != "" {
		return b.SeriesID == o.SeriesID
	}
	return o.SeriesID == "" && b.SeriesKey() == o.SeriesKey()
}
