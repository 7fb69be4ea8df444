package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/libs/outbox"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

const appointmentColumns = `id::text, business_id, staff_id, customer_id, service_id, start_time, end_time,
	status, price::float8, currency, deleted_at, created_at, updated_at`

// AppointmentRepository stores appointments in Postgres. Overlap rejection is the
// appointments_no_overlap exclusion constraint, so two concurrent writers for the
// same staff member of a business and interval cannot both commit.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

var _ booking.AppointmentStore = (*AppointmentRepository)(nil)

func NewAppointmentRepository(pool *db.Pool, ob *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: ob}
}

func (r *AppointmentRepository) ListActive(ctx context.Context, businessID, staffID string, window availability.Interval, excludeID string) ([]availability.Interval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time, end_time
		FROM appointments
		WHERE business_id = $1 AND staff_id = $2
		  AND deleted_at IS NULL
		  AND status <> 'cancelled'
		  AND start_time < $4 AND end_time > $3
		  AND ($5 = '' OR id::text <> $5)
		ORDER BY start_time
	`, businessID, staffID, window.Start, window.End, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func (r *AppointmentRepository) Insert(ctx context.Context, appt model.Appointment, events ...outbox.Event) (model.Appointment, error) {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	var out model.Appointment
	err := r.inTx(ctx, events, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO appointments (id, business_id, staff_id, customer_id, service_id, start_time, end_time, status, price, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING `+appointmentColumns,
			appt.ID, appt.BusinessID, appt.StaffID, appt.CustomerID, appt.ServiceID,
			appt.StartTime, appt.EndTime, appt.Status, appt.Price, appt.Currency)
		var err error
		out, err = scanAppointment(row)
		return err
	})
	return out, err
}

func (r *AppointmentRepository) UpdateInterval(ctx context.Context, change booking.IntervalChange, events ...outbox.Event) (model.Appointment, error) {
	var out model.Appointment
	err := r.inTx(ctx, events, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE appointments
			SET service_id = $2, start_time = $3, end_time = $4, price = $5, currency = $6, updated_at = now()
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING `+appointmentColumns,
			change.ID, change.ServiceID, change.Interval.Start, change.Interval.End, change.Price, change.Currency)
		var err error
		out, err = scanAppointment(row)
		if IsNotFound(err) {
			return booking.ErrAppointmentNotFound
		}
		return err
	})
	return out, err
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if IsNotFound(err) {
		return model.Appointment{}, booking.ErrAppointmentNotFound
	}
	return appt, err
}

func (r *AppointmentRepository) SetStatus(ctx context.Context, id, status string, events ...outbox.Event) (model.Appointment, error) {
	var out model.Appointment
	err := r.inTx(ctx, events, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE appointments SET status = $2, updated_at = now()
			WHERE id = $1 AND deleted_at IS NULL
			RETURNING `+appointmentColumns, id, status)
		var err error
		out, err = scanAppointment(row)
		if IsNotFound(err) {
			return booking.ErrAppointmentNotFound
		}
		return err
	})
	return out, err
}

func (r *AppointmentRepository) SoftDelete(ctx context.Context, id string, at time.Time, events ...outbox.Event) error {
	return r.inTx(ctx, events, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE appointments SET deleted_at = $2, updated_at = $2
			WHERE id = $1 AND deleted_at IS NULL
		`, id, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return booking.ErrAppointmentNotFound
		}
		return nil
	})
}

func (r *AppointmentRepository) ListByBusiness(ctx context.Context, businessID string, f booking.ListFilter) ([]model.Appointment, error) {
	var from, to *time.Time
	if !f.From.IsZero() {
		from = &f.From
	}
	if !f.To.IsZero() {
		to = &f.To
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
		  AND deleted_at IS NULL
		  AND ($2 = '' OR staff_id = $2)
		  AND ($3 = '' OR status = $3)
		  AND ($4::timestamptz IS NULL OR start_time >= $4)
		  AND ($5::timestamptz IS NULL OR start_time < $5)
		ORDER BY start_time, id
		LIMIT $6
	`, businessID, f.StaffID, f.Status, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

// inTx runs fn and appends events in one transaction. An exclusion violation
// anywhere in it surfaces as booking.ErrSchedulingConflict.
func (r *AppointmentRepository) inTx(ctx context.Context, events []outbox.Event, fn func(pgx.Tx) error) error {
	return mapWriteErr(db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		for _, evt := range events {
			if err := r.outbox.Insert(ctx, tx, evt); err != nil {
				return fmt.Errorf("outbox insert %s: %w", evt.EventType, err)
			}
		}
		return nil
	}))
}

func mapWriteErr(err error) error {
	if err != nil && IsConflict(err) {
		return booking.ErrSchedulingConflict
	}
	return err
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(&a.ID, &a.BusinessID, &a.StaffID, &a.CustomerID, &a.ServiceID, &a.StartTime, &a.EndTime,
		&a.Status, &a.Price, &a.Currency, &a.DeletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, err
	}
	return a, err
}
