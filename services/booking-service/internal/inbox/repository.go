package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/slotbook/slotbook/libs/db"
)

// Recorder remembers processed event ids. Record reports false when eventID was
// seen before.
type Recorder interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return false, nil
	}
	return false, err
}

// RedisInbox dedupes with SET NX and forgets ids after ttl. Used when the service
// runs without Postgres.
type RedisInbox struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewRedisInbox(rdb redis.Cmdable, ttl time.Duration) *RedisInbox {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisInbox{rdb: rdb, ttl: ttl, prefix: "inbox"}
}

func (r *RedisInbox) Record(ctx context.Context, eventID, eventType string) (bool, error) {
	return r.rdb.SetNX(ctx, r.prefix+":"+eventID, eventType, r.ttl).Result()
}
