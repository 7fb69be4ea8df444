// Package catalog owns the business profile (opening hours, timezone, slot step,
// change notice) and the bookable services.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

// ValidationError names the rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

const (
	DefaultSlotStepMinutes = 30
	MaxChangeNoticeHours   = 24
)

type Profile struct {
	BusinessID        string    `json:"business_id"`
	Name              string    `json:"name"`
	Timezone          string    `json:"timezone"`
	OpeningTime       string    `json:"opening_time"`
	ClosingTime       string    `json:"closing_time"`
	SlotStepMinutes   int       `json:"slot_step_minutes"`
	ChangeNoticeHours int       `json:"change_notice_hours"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DefaultProfile is served for businesses that never saved one.
func DefaultProfile(businessID string) Profile {
	return Profile{
		BusinessID:      businessID,
		Timezone:        "UTC",
		OpeningTime:     "09:00",
		ClosingTime:     "17:00",
		SlotStepMinutes: DefaultSlotStepMinutes,
	}
}

func (p *Profile) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Timezone = strings.TrimSpace(p.Timezone)
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	if p.SlotStepMinutes == 0 {
		p.SlotStepMinutes = DefaultSlotStepMinutes
	}
}

func (p Profile) Validate() error {
	if p.BusinessID == "" {
		return invalid("business_id", "is required")
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return invalid("timezone", "unknown timezone "+p.Timezone)
	}
	open, err := time.Parse("15:04", p.OpeningTime)
	if err != nil {
		return invalid("opening_time", "must be HH:MM")
	}
	closing, err := time.Parse("15:04", p.ClosingTime)
	if err != nil {
		return invalid("closing_time", "must be HH:MM")
	}
	if !closing.After(open) {
		return invalid("closing_time", "must be after opening_time")
	}
	if p.SlotStepMinutes < 5 || p.SlotStepMinutes > 240 {
		return invalid("slot_step_minutes", "must be between 5 and 240")
	}
	if p.ChangeNoticeHours < 0 || p.ChangeNoticeHours > MaxChangeNoticeHours {
		return invalid("change_notice_hours", fmt.Sprintf("must be between 0 and %d", MaxChangeNoticeHours))
	}
	return nil
}

type Service struct {
	ID              string     `json:"id"`
	BusinessID      string     `json:"business_id"`
	Name            string     `json:"name"`
	DurationMinutes int        `json:"duration_minutes"`
	Price           float64    `json:"price"`
	Currency        string     `json:"currency"`
	Description     string     `json:"description,omitempty"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (s *Service) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
}

func (s Service) Validate() error {
	switch {
	case s.BusinessID == "":
		return invalid("business_id", "is required")
	case s.Name == "":
		return invalid("name", "is required")
	case s.DurationMinutes <= 0 || s.DurationMinutes > 24*60:
		return invalid("duration_minutes", "must be between 1 and 1440")
	case s.Price < 0:
		return invalid("price", "must not be negative")
	case s.Currency != "" && len(s.Currency) != 3:
		return invalid("currency", "must be an ISO 4217 code")
	}
	return nil
}
