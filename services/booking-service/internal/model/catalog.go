package model

import "time"

type Service struct {
	ID              string
	BusinessID      string
	Name            string
	DurationMinutes int
	Price           float64
	Currency        string
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// BusinessHours is the daily booking window of a business, in its own timezone.
type BusinessHours struct {
	BusinessID        string
	OpeningTime       string
	ClosingTime       string
	Timezone          string
	SlotStepMinutes   int
	ChangeNoticeHours int
}

func (h BusinessHours) Location() (*time.Location, error) {
	if h.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(h.Timezone)
}
