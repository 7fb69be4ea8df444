package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/slotbook/slotbook/libs/db"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

const blockColumns = `id::text, business_id, coalesce(staff_id, ''), reason, color, start_time, end_time,
	is_recurring, coalesce(recurrence_pattern, ''), coalesce(series_id::text, ''), created_at`

type BlockRepository struct {
	pool *db.Pool
}

var _ booking.BlockStore = (*BlockRepository)(nil)

func NewBlockRepository(pool *db.Pool) *BlockRepository {
	return &BlockRepository{pool: pool}
}

func (r *BlockRepository) ListForDate(ctx context.Context, businessID, staffID string, window availability.Interval) ([]model.ScheduleBlock, error) {
	return r.query(ctx, `
		SELECT `+blockColumns+`
		FROM schedule_blocks
		WHERE business_id = $1
		  AND ($2 = '' OR staff_id IS NULL OR staff_id = $2)
		  AND start_time < $4 AND end_time > $3
		ORDER BY start_time, id
	`, businessID, staffID, window.Start, window.End)
}

// BulkInsert copies every occurrence of a series in one transaction; either all
// rows land or none do.
func (r *BlockRepository) BulkInsert(ctx context.Context, blocks []model.ScheduleBlock) ([]model.ScheduleBlock, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	out := make([]model.ScheduleBlock, len(blocks))
	rows := make([][]any, len(blocks))
	for i, b := range blocks {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		out[i] = b
		rows[i] = []any{
			b.ID, b.BusinessID, nullable(b.StaffID), b.Reason, b.Color, b.StartTime, b.EndTime,
			b.IsRecurring, nullable(b.RecurrencePattern), nullable(b.SeriesID), b.CreatedAt,
		}
	}

	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"schedule_blocks"},
			[]string{"id", "business_id", "staff_id", "reason", "color", "start_time", "end_time",
				"is_recurring", "recurrence_pattern", "series_id", "created_at"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BlockRepository) DeleteByIDs(ctx context.Context, businessID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM schedule_blocks WHERE business_id = $1 AND id = ANY($2::uuid[])
	`, businessID, ids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *BlockRepository) Get(ctx context.Context, id string) (model.ScheduleBlock, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.ScheduleBlock{}, booking.ErrBlockNotFound
	}
	blocks, err := r.query(ctx, `SELECT `+blockColumns+` FROM schedule_blocks WHERE id = $1`, id)
	if err != nil {
		return model.ScheduleBlock{}, err
	}
	if len(blocks) == 0 {
		return model.ScheduleBlock{}, booking.ErrBlockNotFound
	}
	return blocks[0], nil
}

func (r *BlockRepository) ListSeries(ctx context.Context, b model.ScheduleBlock) ([]model.ScheduleBlock, error) {
	if !b.IsRecurring {
		return []model.ScheduleBlock{b}, nil
	}
	if b.SeriesID != "" {
		return r.query(ctx, `
			SELECT `+blockColumns+`
			FROM schedule_blocks
			WHERE business_id = $1 AND series_id = $2::uuid
			ORDER BY start_time, id
		`, b.BusinessID, b.SeriesID)
	}
	// Rows written before series ids existed are grouped by their attributes.
	return r.query(ctx, `
		SELECT `+blockColumns+`
		FROM schedule_blocks
		WHERE business_id = $1
		  AND series_id IS NULL
		  AND is_recurring
		  AND reason = $2
		  AND color = $3
		  AND recurrence_pattern IS NOT DISTINCT FROM $4
		  AND staff_id IS NOT DISTINCT FROM $5
		ORDER BY start_time, id
	`, b.BusinessID, b.Reason, b.Color, nullable(b.RecurrencePattern), nullable(b.StaffID))
}

func (r *BlockRepository) query(ctx context.Context, sql string, args ...any) ([]model.ScheduleBlock, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.ScheduleBlock{}
	for rows.Next() {
		var b model.ScheduleBlock
		if err := rows.Scan(&b.ID, &b.BusinessID, &b.StaffID, &b.Reason, &b.Color, &b.StartTime, &b.EndTime,
			&b.IsRecurring, &b.RecurrencePattern, &b.SeriesID, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
