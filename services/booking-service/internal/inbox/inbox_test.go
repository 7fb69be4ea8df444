package inbox

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisInboxDedupes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	in := NewRedisInbox(rdb, time.Minute)
	ctx := context.Background()

	first, err := in.Record(ctx, "evt-1", "business.catalog.updated.v1")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := in.Record(ctx, "evt-1", "business.catalog.updated.v1")
	require.NoError(t, err)
	assert.False(t, again)

	mr.FastForward(2 * time.Minute)
	after, err := in.Record(ctx, "evt-1", "business.catalog.updated.v1")
	require.NoError(t, err)
	assert.True(t, after)
}
