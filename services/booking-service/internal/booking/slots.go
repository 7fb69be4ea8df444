package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/scheduling"
)

const dateLayout = "2006-01-02"

type SlotQuery struct {
	BusinessID string
	StaffID    string
	ServiceID  string
	// Date is a calendar day, YYYY-MM-DD, in the business timezone.
	Date string
	// ExcludeAppointmentID lets a reschedule see its own slot as free.
	ExcludeAppointmentID string
}

// AvailableSlots returns the free start times of the day as "HH:MM", ascending.
func (s *Service) AvailableSlots(ctx context.Context, q SlotQuery) ([]string, error) {
	gen, in, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}
	return availability.FormatAll(availability.Filter(gen.Candidates(), in)), nil
}

// SlotGrid returns every candidate of the day with its availability flag.
func (s *Service) SlotGrid(ctx context.Context, q SlotQuery) ([]availability.Slot, error) {
	gen, in, err := s.prepare(ctx, q)
	if err != nil {
		return nil, err
	}
	return availability.Annotate(gen.Candidates(), in), nil
}

func (s *Service) prepare(ctx context.Context, q SlotQuery) (availability.Generator, availability.FilterInput, error) {
	var (
		gen availability.Generator
		in  availability.FilterInput
	)
	if err := requireFields(map[string]string{
		"business_id": q.BusinessID,
		"staff_id":    q.StaffID,
		"service_id":  q.ServiceID,
		"date":        q.Date,
	}); err != nil {
		return gen, in, err
	}

	hours, loc, day, err := s.businessDay(ctx, q.BusinessID, q.Date)
	if err != nil {
		return gen, in, err
	}
	svc, err := s.service(ctx, q.BusinessID, q.ServiceID)
	if err != nil {
		return gen, in, err
	}
	gen, err = generatorFor(hours, day, svc)
	if err != nil {
		return gen, in, err
	}

	window := availability.DayBounds(day, loc)
	busy, err := s.appts.ListActive(ctx, q.BusinessID, q.StaffID, window, q.ExcludeAppointmentID)
	if err != nil {
		return gen, in, fmt.Errorf("list appointments: %w", err)
	}
	blocks, err := s.blocks.ListForDate(ctx, q.BusinessID, q.StaffID, window)
	if err != nil {
		return gen, in, fmt.Errorf("list blocks: %w", err)
	}
	for _, b := range blocks {
		busy = append(busy, availability.Interval{Start: b.StartTime, End: b.EndTime})
	}

	now := s.now()
	in = availability.FilterInput{
		Duration: gen.Duration,
		Busy:     busy,
		Now:      now,
		IsToday:  availability.SameDay(now, day, loc),
	}
	return gen, in, nil
}

// DayWindow returns the bounds of date in the business timezone.
func (s *Service) DayWindow(ctx context.Context, businessID, date string) (availability.Interval, error) {
	if err := requireFields(map[string]string{"business_id": businessID, "date": date}); err != nil {
		return availability.Interval{}, err
	}
	_, loc, day, err := s.businessDay(ctx, businessID, date)
	if err != nil {
		return availability.Interval{}, err
	}
	return availability.DayBounds(day, loc), nil
}

// Location returns businessID's configured timezone.
func (s *Service) Location(ctx context.Context, businessID string) (*time.Location, error) {
	_, loc, err := s.businessHours(ctx, businessID)
	return loc, err
}

func (s *Service) businessHours(ctx context.Context, businessID string) (model.BusinessHours, *time.Location, error) {
	hours, err := s.catalog.Hours(ctx, businessID)
	if err != nil {
		if errors.Is(err, scheduling.ErrNotFound) {
			return hours, nil, fmt.Errorf("%w: %s", ErrBusinessNotFound, businessID)
		}
		return hours, nil, err
	}
	loc, err := hours.Location()
	if err != nil {
		return hours, nil, fmt.Errorf("business %s timezone: %w", businessID, err)
	}
	return hours, loc, nil
}

func (s *Service) businessDay(ctx context.Context, businessID, date string) (model.BusinessHours, *time.Location, time.Time, error) {
	hours, loc, err := s.businessHours(ctx, businessID)
	if err != nil {
		return hours, nil, time.Time{}, err
	}
	day, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return hours, nil, time.Time{}, fieldErr("date", "must be YYYY-MM-DD")
	}
	return hours, loc, day, nil
}

func generatorFor(h model.BusinessHours, day time.Time, svc model.Service) (availability.Generator, error) {
	open, err := availability.ParseClock(h.OpeningTime)
	if err != nil {
		return availability.Generator{}, fmt.Errorf("business %s opening time: %w", h.BusinessID, err)
	}
	closing, err := availability.ParseClock(h.ClosingTime)
	if err != nil {
		return availability.Generator{}, fmt.Errorf("business %s closing time: %w", h.BusinessID, err)
	}
	return availability.Generator{
		Day:      day,
		Opening:  open,
		Closing:  closing,
		Step:     time.Duration(h.SlotStepMinutes) * time.Minute,
		Duration: svc.Duration(),
	}, nil
}
