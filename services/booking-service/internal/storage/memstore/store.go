// Package memstore keeps appointments and blocks in process memory. Every write
// runs its overlap check and mutation under one mutex, which gives the same
// at-most-one-writer guarantee as the Postgres exclusion constraint for a single
// process.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slotbook/slotbook/libs/outbox"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

type Appointments struct {
	mu     sync.RWMutex
	appts  map[string]model.Appointment
	events []outbox.Event
	now    func() time.Time
}

var _ booking.AppointmentStore = (*Appointments)(nil)

func NewAppointments() *Appointments {
	return &Appointments{appts: map[string]model.Appointment{}, now: time.Now}
}

// Events returns the events recorded so far, oldest first.
func (s *Appointments) Events() []outbox.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outbox.Event(nil), s.events...)
}

func (s *Appointments) ListActive(_ context.Context, businessID, staffID string, window availability.Interval, excludeID string) ([]availability.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []availability.Interval
	for _, a := range s.sortedAppointments() {
		if a.BusinessID != businessID || a.StaffID != staffID || a.ID == excludeID || !a.Active() {
			continue
		}
		iv := availability.Interval{Start: a.StartTime, End: a.EndTime}
		if iv.Overlaps(window) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (s *Appointments) Insert(_ context.Context, appt model.Appointment, events ...outbox.Event) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if _, exists := s.appts[appt.ID]; exists {
		return model.Appointment{}, fmt.Errorf("appointment %s already exists", appt.ID)
	}
	if appt.Active() && s.conflicts(appt.BusinessID, appt.StaffID, appt.StartTime, appt.EndTime, "") {
		return model.Appointment{}, booking.ErrSchedulingConflict
	}
	now := s.now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	s.appts[appt.ID] = appt
	s.events = append(s.events, events...)
	return appt, nil
}

func (s *Appointments) UpdateInterval(_ context.Context, change booking.IntervalChange, events ...outbox.Event) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[change.ID]
	if !ok || appt.DeletedAt != nil {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	if appt.Active() && s.conflicts(appt.BusinessID, appt.StaffID, change.Interval.Start, change.Interval.End, appt.ID) {
		return model.Appointment{}, booking.ErrSchedulingConflict
	}
	appt.ServiceID = change.ServiceID
	appt.StartTime = change.Interval.Start
	appt.EndTime = change.Interval.End
	appt.Price = change.Price
	appt.Currency = change.Currency
	appt.UpdatedAt = s.now().UTC()
	s.appts[appt.ID] = appt
	s.events = append(s.events, events...)
	return appt, nil
}

func (s *Appointments) Get(_ context.Context, id string) (model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	return appt, nil
}

func (s *Appointments) SetStatus(_ context.Context, id, status string, events ...outbox.Event) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok || appt.DeletedAt != nil {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	wasActive := appt.Active()
	appt.Status = status
	if !wasActive && appt.Active() && s.conflicts(appt.BusinessID, appt.StaffID, appt.StartTime, appt.EndTime, appt.ID) {
		return model.Appointment{}, booking.ErrSchedulingConflict
	}
	appt.UpdatedAt = s.now().UTC()
	s.appts[id] = appt
	s.events = append(s.events, events...)
	return appt, nil
}

func (s *Appointments) SoftDelete(_ context.Context, id string, at time.Time, events ...outbox.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok || appt.DeletedAt != nil {
		return booking.ErrAppointmentNotFound
	}
	appt.DeletedAt = &at
	appt.UpdatedAt = at
	s.appts[id] = appt
	s.events = append(s.events, events...)
	return nil
}

func (s *Appointments) ListByBusiness(_ context.Context, businessID string, f booking.ListFilter) ([]model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Appointment{}
	for _, a := range s.sortedAppointments() {
		switch {
		case a.BusinessID != businessID, a.DeletedAt != nil:
			continue
		case f.StaffID != "" && a.StaffID != f.StaffID:
			continue
		case f.Status != "" && a.Status != f.Status:
			continue
		case !f.From.IsZero() && a.StartTime.Before(f.From):
			continue
		case !f.To.IsZero() && !a.StartTime.Before(f.To):
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *Appointments) conflicts(businessID, staffID string, start, end time.Time, excludeID string) bool {
	iv := availability.Interval{Start: start, End: end}
	for _, a := range s.appts {
		if a.BusinessID != businessID || a.StaffID != staffID || a.ID == excludeID || !a.Active() {
			continue
		}
		if iv.Overlaps(availability.Interval{Start: a.StartTime, End: a.EndTime}) {
			return true
		}
	}
	return false
}

func (s *Appointments) sortedAppointments() []model.Appointment {
	out := make([]model.Appointment, 0, len(s.appts))
	for _, a := range s.appts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
