package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/libs/outbox"
	"github.com/slotbook/slotbook/services/business-service/internal/catalog"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

var _ catalog.Store = (*Repository)(nil)

func NewRepository(pool *db.Pool, ob *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: ob}
}

const profileColumns = `business_id, name, timezone, to_char(opening_time, 'HH24:MI'), to_char(closing_time, 'HH24:MI'),
	slot_step_minutes, change_notice_hours, updated_at`

func (r *Repository) GetProfile(ctx context.Context, businessID string) (catalog.Profile, error) {
	p, err := scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM business_profiles WHERE business_id = $1`, businessID))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Profile{}, catalog.ErrNotFound
	}
	return p, err
}

func (r *Repository) UpsertProfile(ctx context.Context, p catalog.Profile, events ...outbox.Event) (catalog.Profile, error) {
	var out catalog.Profile
	err := r.inTx(ctx, events, func(tx pgx.Tx) error {
		var err error
		out, err = scanProfile(tx.QueryRow(ctx, `
			INSERT INTO business_profiles (business_id, name, timezone, opening_time, closing_time, slot_step_minutes, change_notice_hours)
			VALUES ($1, $2, $3, $4::time, $5::time, $6, $7)
			ON CONFLICT (business_id) DO UPDATE
			SET name = EXCLUDED.name,
				timezone = EXCLUDED.timezone,
				opening_time = EXCLUDED.opening_time,
				closing_time = EXCLUDED.closing_time,
				slot_step_minutes = EXCLUDED.slot_step_minutes,
				change_notice_hours = EXCLUDED.change_notice_hours,
				updated_at = now()
			RETURNING `+profileColumns,
			p.BusinessID, p.Name, p.Timezone, p.OpeningTime, p.ClosingTime, p.SlotStepMinutes, p.ChangeNoticeHours))
		return err
	})
	return out, err
}

const serviceColumns = `id::text, business_id, name, duration_minutes, price::float8, currency, description, deleted_at, created_at`

func (r *Repository) GetService(ctx context.Context, businessID, serviceID string) (catalog.Service, error) {
	if _, err := uuid.Parse(serviceID); err != nil {
		return catalog.Service{}, catalog.ErrNotFound
	}
	s, err := scanService(r.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+` FROM business_services WHERE business_id = $1 AND id = $2
	`, businessID, serviceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Service{}, catalog.ErrNotFound
	}
	return s, err
}

func (r *Repository) ListServices(ctx context.Context, businessID string, limit int) ([]catalog.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM business_services
		WHERE business_id = $1 AND deleted_at IS NULL
		ORDER BY name, id
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []catalog.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) InsertService(ctx context.Context, s catalog.Service, events ...outbox.Event) (catalog.Service, error) {
	var out catalog.Service
	err := r.inTx(ctx, events, func(tx pgx.Tx) error {
		var err error
		out, err = scanService(tx.QueryRow(ctx, `
			INSERT INTO business_services (id, business_id, name, duration_minutes, price, currency, description, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+serviceColumns,
			s.ID, s.BusinessID, s.Name, s.DurationMinutes, s.Price, s.Currency, s.Description, s.CreatedAt))
		return err
	})
	return out, err
}

func (r *Repository) UpdateService(ctx context.Context, s catalog.Service, events ...outbox.Event) (catalog.Service, error) {
	if _, err := uuid.Parse(s.ID); err != nil {
		return catalog.Service{}, catalog.ErrNotFound
	}
	var out catalog.Service
	err := r.inTx(ctx, events, func(tx pgx.Tx) error {
		var err error
		out, err = scanService(tx.QueryRow(ctx, `
			UPDATE business_services
			SET name = $3, duration_minutes = $4, price = $5, currency = $6, description = $7
			WHERE business_id = $1 AND id = $2 AND deleted_at IS NULL
			RETURNING `+serviceColumns,
			s.BusinessID, s.ID, s.Name, s.DurationMinutes, s.Price, s.Currency, s.Description))
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrNotFound
		}
		return err
	})
	return out, err
}

func (r *Repository) SoftDeleteService(ctx context.Context, businessID, serviceID string, at time.Time, events ...outbox.Event) error {
	if _, err := uuid.Parse(serviceID); err != nil {
		return catalog.ErrNotFound
	}
	return r.inTx(ctx, events, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE business_services SET deleted_at = $3
			WHERE business_id = $1 AND id = $2 AND deleted_at IS NULL
		`, businessID, serviceID, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return catalog.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) inTx(ctx context.Context, events []outbox.Event, fn func(pgx.Tx) error) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		for _, evt := range events {
			if err := r.outbox.Insert(ctx, tx, evt); err != nil {
				return fmt.Errorf("outbox insert %s: %w", evt.EventType, err)
			}
		}
		return nil
	})
}

func scanProfile(row pgx.Row) (catalog.Profile, error) {
	var p catalog.Profile
	err := row.Scan(&p.BusinessID, &p.Name, &p.Timezone, &p.OpeningTime, &p.ClosingTime,
		&p.SlotStepMinutes, &p.ChangeNoticeHours, &p.UpdatedAt)
	return p, err
}

func scanService(row pgx.Row) (catalog.Service, error) {
	var s catalog.Service
	err := row.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Price, &s.Currency, &s.Description, &s.DeletedAt, &s.CreatedAt)
	return s, err
}
