package booking

import (
	"context"
	"time"

	"github.com/slotbook/slotbook/libs/outbox"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

// AppointmentStore persists appointments. Insert and UpdateInterval must reject an
// interval that overlaps another active appointment of the same staff member with
// ErrSchedulingConflict, atomically with the write. Events are stored in the same
// transaction as the change they describe.
type AppointmentStore interface {
	// ListActive returns the intervals of non-cancelled, non-deleted appointments of
	// businessID's staffID that overlap window, skipping excludeID.
	ListActive(ctx context.Context, businessID, staffID string, window availability.Interval, excludeID string) ([]availability.Interval, error)
	Insert(ctx context.Context, appt model.Appointment, events ...outbox.Event) (model.Appointment, error)
	UpdateInterval(ctx context.Context, change IntervalChange, events ...outbox.Event) (model.Appointment, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	SetStatus(ctx context.Context, id, status string, events ...outbox.Event) (model.Appointment, error)
	SoftDelete(ctx context.Context, id string, at time.Time, events ...outbox.Event) error
	ListByBusiness(ctx context.Context, businessID string, f ListFilter) ([]model.Appointment, error)
}

// IntervalChange moves an appointment, possibly onto another service.
type IntervalChange struct {
	ID        string
	ServiceID string
	Interval  availability.Interval
	Price     float64
	Currency  string
}

type ListFilter struct {
	StaffID string
	Status  string
	From    time.Time
	To      time.Time
	Limit   int
}

// BlockStore persists schedule blocks.
type BlockStore interface {
	// ListForDate returns the blocks of businessID that overlap window and apply to
	// staffID or to all staff. An empty staffID returns every block of the business.
	ListForDate(ctx context.Context, businessID, staffID string, window availability.Interval) ([]model.ScheduleBlock, error)
	BulkInsert(ctx context.Context, blocks []model.ScheduleBlock) ([]model.ScheduleBlock, error)
	DeleteByIDs(ctx context.Context, businessID string, ids []string) (int, error)
	Get(ctx context.Context, id string) (model.ScheduleBlock, error)
	// ListSeries returns the recurring blocks that may share b's series: rows with
	// b's SeriesID, or legacy rows without one carrying the same series key.
	ListSeries(ctx context.Context, b model.ScheduleBlock) ([]model.ScheduleBlock, error)
}
