package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/slotbook/slotbook/libs/outbox"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/scheduling"
)

const (
	EventBooked      = "booking.appointment.booked.v1"
	EventRescheduled = "booking.appointment.rescheduled.v1"
	EventCancelled   = "booking.appointment.cancelled.v1"
	EventStatus      = "booking.appointment.status_changed.v1"
	EventDeleted     = "booking.appointment.deleted.v1"
)

// Service computes availability and writes appointments. Overlap between
// appointments is enforced by the AppointmentStore; the slot computation only
// reads a snapshot.
type Service struct {
	appts   AppointmentStore
	blocks  BlockStore
	catalog scheduling.Provider
	now     func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(appts AppointmentStore, blocks BlockStore, catalog scheduling.Provider, opts ...Option) *Service {
	s := &Service{appts: appts, blocks: blocks, catalog: catalog, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

type BookRequest struct {
	BusinessID string
	StaffID    string
	CustomerID string
	ServiceID  string
	Start      time.Time
}

// Book creates a confirmed appointment for the requested start.
func (s *Service) Book(ctx context.Context, req BookRequest) (model.Appointment, error) {
	if err := requireFields(map[string]string{
		"business_id": req.BusinessID,
		"staff_id":    req.StaffID,
		"customer_id": req.CustomerID,
		"service_id":  req.ServiceID,
	}); err != nil {
		return model.Appointment{}, err
	}
	if req.Start.IsZero() {
		return model.Appointment{}, fieldErr("start_time", "is required")
	}
	now := s.now()
	if req.Start.Before(now) {
		return model.Appointment{}, fieldErr("start_time", "is in the past")
	}

	svc, err := s.service(ctx, req.BusinessID, req.ServiceID)
	if err != nil {
		return model.Appointment{}, err
	}
	iv, err := availability.NewInterval(req.Start, req.Start.Add(svc.Duration()))
	if err != nil {
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		ID:         uuid.NewString(),
		BusinessID: req.BusinessID,
		StaffID:    req.StaffID,
		CustomerID: req.CustomerID,
		ServiceID:  svc.ID,
		StartTime:  iv.Start.UTC(),
		EndTime:    iv.End.UTC(),
		Status:     model.StatusConfirmed,
		Price:      svc.Price,
		Currency:   svc.Currency,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
	evt, err := appointmentEvent(EventBooked, appt)
	if err != nil {
		return model.Appointment{}, err
	}
	return s.appts.Insert(ctx, appt, evt)
}

type RescheduleRequest struct {
	AppointmentID string
	BusinessID    string
	// ServiceID switches the appointment to another service; empty keeps the
	// current one.
	ServiceID string
	Start     time.Time
}

// Reschedule moves an active appointment. Its own current interval never counts
// as a conflict.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (model.Appointment, error) {
	if req.AppointmentID == "" {
		return model.Appointment{}, fieldErr("appointment_id", "is required")
	}
	if req.Start.IsZero() {
		return model.Appointment{}, fieldErr("start_time", "is required")
	}
	if req.Start.Before(s.now()) {
		return model.Appointment{}, fieldErr("start_time", "is in the past")
	}
	appt, err := s.Get(ctx, req.BusinessID, req.AppointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	if !appt.Active() {
		return model.Appointment{}, fmt.Errorf("%w: appointment is %s", ErrInvalidStatusChange, appt.Status)
	}

	serviceID := req.ServiceID
	if serviceID == "" {
		serviceID = appt.ServiceID
	}
	svc, err := s.service(ctx, appt.BusinessID, serviceID)
	if err != nil {
		return model.Appointment{}, err
	}
	iv, err := availability.NewInterval(req.Start.UTC(), req.Start.Add(svc.Duration()).UTC())
	if err != nil {
		return model.Appointment{}, err
	}

	moved := appt
	moved.ServiceID, moved.StartTime, moved.EndTime = svc.ID, iv.Start, iv.End
	evt, err := outbox.NewEvent("appointment", appt.ID, EventRescheduled, map[string]any{
		"appointment_id": appt.ID,
		"business_id":    appt.BusinessID,
		"staff_id":       appt.StaffID,
		"customer_id":    appt.CustomerID,
		"service_id":     svc.ID,
		"previous_start": appt.StartTime,
		"previous_end":   appt.EndTime,
		"start_time":     iv.Start,
		"end_time":       iv.End,
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return s.appts.UpdateInterval(ctx, IntervalChange{
		ID:        appt.ID,
		ServiceID: svc.ID,
		Interval:  iv,
		Price:     svc.Price,
		Currency:  svc.Currency,
	}, evt)
}

// Get returns the appointment only when it belongs to businessID. Deleted
// appointments are reported as missing.
func (s *Service) Get(ctx context.Context, businessID, id string) (model.Appointment, error) {
	appt, err := s.appts.Get(ctx, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.DeletedAt != nil || (businessID != "" && appt.BusinessID != businessID) {
		return model.Appointment{}, ErrAppointmentNotFound
	}
	return appt, nil
}

// Cancel frees the appointment's interval.
func (s *Service) Cancel(ctx context.Context, businessID, id string) (model.Appointment, error) {
	return s.SetStatus(ctx, businessID, id, model.StatusCancelled)
}

var transitions = map[string][]string{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCompleted, model.StatusNoShow, model.StatusCancelled},
	model.StatusCompleted: {model.StatusNoShow},
	model.StatusNoShow:    {model.StatusCompleted},
}

// SetStatus applies a status transition. Cancelled is terminal: reviving a
// cancelled appointment would bypass the overlap check, so clients book again.
func (s *Service) SetStatus(ctx context.Context, businessID, id, status string) (model.Appointment, error) {
	if !model.ValidStatus(status) {
		return model.Appointment{}, fieldErr("status", "unknown status "+status)
	}
	appt, err := s.Get(ctx, businessID, id)
	if err != nil {
		return model.Appointment{}, err
	}
	if appt.Status == status {
		return appt, nil
	}
	allowed := false
	for _, next := range transitions[appt.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return model.Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusChange, appt.Status, status)
	}

	eventType := EventStatus
	if status == model.StatusCancelled {
		eventType = EventCancelled
	}
	appt.Status = status
	evt, err := appointmentEvent(eventType, appt)
	if err != nil {
		return model.Appointment{}, err
	}
	return s.appts.SetStatus(ctx, id, status, evt)
}

// Delete tombstones the appointment; it stays in storage for reporting.
func (s *Service) Delete(ctx context.Context, businessID, id string) error {
	appt, err := s.Get(ctx, businessID, id)
	if err != nil {
		return err
	}
	evt, err := appointmentEvent(EventDeleted, appt)
	if err != nil {
		return err
	}
	return s.appts.SoftDelete(ctx, id, s.now().UTC(), evt)
}

func (s *Service) List(ctx context.Context, businessID string, f ListFilter) ([]model.Appointment, error) {
	if businessID == "" {
		return nil, fieldErr("business_id", "is required")
	}
	if f.Status != "" && !model.ValidStatus(f.Status) {
		return nil, fieldErr("status", "unknown status "+f.Status)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	return s.appts.ListByBusiness(ctx, businessID, f)
}

func (s *Service) service(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	svc, err := s.catalog.Service(ctx, businessID, serviceID)
	if err != nil {
		if errors.Is(err, scheduling.ErrNotFound) {
			return model.Service{}, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
		}
		return model.Service{}, err
	}
	if svc.DurationMinutes <= 0 {
		return model.Service{}, fmt.Errorf("service %s: %w", serviceID, ErrInvalidInterval)
	}
	return svc, nil
}

func appointmentEvent(eventType string, a model.Appointment) (outbox.Event, error) {
	return outbox.NewEvent("appointment", a.ID, eventType, map[string]any{
		"appointment_id": a.ID,
		"business_id":    a.BusinessID,
		"staff_id":       a.StaffID,
		"customer_id":    a.CustomerID,
		"service_id":     a.ServiceID,
		"start_time":     a.StartTime,
		"end_time":       a.EndTime,
		"status":         a.Status,
	})
}

func requireFields(fields map[string]string) error {
	for _, name := range []string{"business_id", "staff_id", "customer_id", "service_id", "date"} {
		v, ok := fields[name]
		if ok && strings.TrimSpace(v) == "" {
			return fieldErr(name, "is required")
		}
	}
	return nil
}
