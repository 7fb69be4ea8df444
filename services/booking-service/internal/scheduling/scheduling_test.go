package scheduling

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/slotbook/slotbook/libs/catalogrpc"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
businesses:
  - id: biz-1
    opening_time: "09:00"
    closing_time: "18:00"
    timezone: UTC
    change_notice_hours: 12
    services:
      - id: haircut
        name: Haircut
        duration_minutes: 30
        price: 20
        currency: ${SLOTBOOK_TEST_CURRENCY}
`

func TestStaticProviderFromYAML(t *testing.T) {
	t.Setenv("SLOTBOOK_TEST_CURRENCY", "EUR")
	path := t.TempDir() + "/catalog.yaml"
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	cf, err := LoadCatalogFile(path)
	require.NoError(t, err)
	p := NewStaticProvider(cf)

	svc, err := p.Service(context.Background(), "biz-1", "haircut")
	require.NoError(t, err)
	assert.Equal(t, 30, svc.DurationMinutes)
	assert.Equal(t, "EUR", svc.Currency)

	h, err := p.Hours(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 30, h.SlotStepMinutes)
	assert.Equal(t, 12, h.ChangeNoticeHours)

	_, err = p.Service(context.Background(), "biz-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.Hours(context.Background(), "biz-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParseCatalogRejectsInvertedHours(t *testing.T) {
	_, err := ParseCatalog([]byte(`
businesses:
  - id: biz-1
    opening_time: "18:00"
    closing_time: "09:00"
`))
	assert.Error(t, err)
}

type countingProvider struct {
	Provider
	serviceCalls int
	hoursCalls   int
}

func (c *countingProvider) Service(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	c.serviceCalls++
	return c.Provider.Service(ctx, businessID, serviceID)
}

func (c *countingProvider) Hours(ctx context.Context, businessID string) (model.BusinessHours, error) {
	c.hoursCalls++
	return c.Provider.Hours(ctx, businessID)
}

func TestCachedProviderReadThroughAndEvict(t *testing.T) {
	t.Setenv("SLOTBOOK_TEST_CURRENCY", "EUR")
	cf, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	inner := &countingProvider{Provider: NewStaticProvider(cf)}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := NewCachedProvider(inner, rdb, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	for range 3 {
		svc, err := cache.Service(ctx, "biz-1", "haircut")
		require.NoError(t, err)
		assert.Equal(t, "Haircut", svc.Name)
		_, err = cache.Hours(ctx, "biz-1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, inner.serviceCalls)
	assert.Equal(t, 1, inner.hoursCalls)

	require.NoError(t, cache.Evict(ctx, "biz-1"))
	_, err = cache.Service(ctx, "biz-1", "haircut")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.serviceCalls)

	mr.FastForward(2 * time.Minute)
	_, err = cache.Hours(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.hoursCalls)

	_, err = cache.Service(ctx, "biz-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = cache.Service(ctx, "biz-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 4, inner.serviceCalls)
}

type fakeLookup struct{}

func (fakeLookup) GetService(_ context.Context, businessID, serviceID string) (catalogrpc.ServiceInfo, error) {
	if serviceID == "gone" {
		return catalogrpc.ServiceInfo{}, catalogrpc.ErrNotFound
	}
	return catalogrpc.ServiceInfo{ID: serviceID, BusinessID: businessID, DurationMinutes: 45}, nil
}

func (fakeLookup) GetBusinessHours(_ context.Context, businessID string) (catalogrpc.BusinessHours, error) {
	return catalogrpc.BusinessHours{BusinessID: businessID, OpeningTime: "08:00", ClosingTime: "12:00", ChangeNoticeHours: 3}, nil
}

func TestCatalogProviderMapsNotFound(t *testing.T) {
	p := NewCatalogProvider(fakeLookup{})

	svc, err := p.Service(context.Background(), "biz-1", "massage")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, svc.Duration())

	_, err = p.Service(context.Background(), "biz-1", "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := NoticeSource{Provider: p}.ChangeNoticeHours(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
