package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

// CachedProvider is a read-through Redis cache in front of another Provider.
// Entries expire after ttl and are evicted per business when business-service
// announces a catalog change. Misses are not cached.
type CachedProvider struct {
	next   Provider
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCachedProvider(next Provider, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProvider{next: next, rdb: rdb, ttl: ttl, prefix: "catalog", logger: logger}
}

func (c *CachedProvider) serviceKey(businessID, serviceID string) string {
	return c.prefix + ":" + businessID + ":service:" + serviceID
}

func (c *CachedProvider) hoursKey(businessID string) string {
	return c.prefix + ":" + businessID + ":hours"
}

func (c *CachedProvider) Service(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	var s model.Service
	key := c.serviceKey(businessID, serviceID)
	if c.get(ctx, key, &s) {
		return s, nil
	}
	s, err := c.next.Service(ctx, businessID, serviceID)
	if err != nil {
		return s, err
	}
	c.set(ctx, key, s)
	return s, nil
}

func (c *CachedProvider) Hours(ctx context.Context, businessID string) (model.BusinessHours, error) {
	var h model.BusinessHours
	key := c.hoursKey(businessID)
	if c.get(ctx, key, &h) {
		return h, nil
	}
	h, err := c.next.Hours(ctx, businessID)
	if err != nil {
		return h, err
	}
	c.set(ctx, key, h)
	return h, nil
}

// Evict drops every cached entry of businessID.
func (c *CachedProvider) Evict(ctx context.Context, businessID string) error {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, c.prefix+":"+businessID+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// Cache errors degrade to a miss.
func (c *CachedProvider) get(ctx context.Context, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("catalog cache read failed", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("catalog cache entry corrupt", "key", key, "err", err)
		return false
	}
	return true
}

func (c *CachedProvider) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("catalog cache write failed", "key", key, "err", err)
	}
}
