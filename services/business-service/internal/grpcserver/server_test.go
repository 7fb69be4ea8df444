package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/slotbook/slotbook/libs/catalogrpc"
	"github.com/slotbook/slotbook/libs/grpcx"
	"github.com/slotbook/slotbook/services/business-service/internal/catalog"
	"github.com/slotbook/slotbook/services/business-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func newClient(t *testing.T, c *catalog.Catalog) *catalogrpc.Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpcx.NewServer()
	Register(srv, c)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return catalogrpc.NewClient(conn)
}

func TestCatalogOverGRPC(t *testing.T) {
	c := catalog.New(storage.NewMemory())
	ctx := context.Background()
	_, err := c.UpdateProfile(ctx, catalog.Profile{
		BusinessID: "biz-1", Timezone: "Europe/Berlin", OpeningTime: "08:30", ClosingTime: "17:00",
		SlotStepMinutes: 15, ChangeNoticeHours: 6,
	})
	require.NoError(t, err)
	svc, err := c.CreateService(ctx, catalog.Service{BusinessID: "biz-1", Name: "Color", DurationMinutes: 90, Price: 80, Currency: "EUR"})
	require.NoError(t, err)

	client := newClient(t, c)

	hours, err := client.GetBusinessHours(ctx, "biz-1")
	require.NoError(t, err)
	assert.Equal(t, catalogrpc.BusinessHours{
		BusinessID: "biz-1", OpeningTime: "08:30", ClosingTime: "17:00", Timezone: "Europe/Berlin",
		SlotStepMinutes: 15, ChangeNoticeHours: 6,
	}, hours)

	info, err := client.GetService(ctx, "biz-1", svc.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, info.DurationMinutes)
	assert.Equal(t, 80.0, info.Price)

	_, err = client.GetService(ctx, "biz-2", svc.ID)
	assert.ErrorIs(t, err, catalogrpc.ErrNotFound)

	_, err = client.GetBusinessHours(ctx, "biz-unknown")
	assert.ErrorIs(t, err, catalogrpc.ErrNotFound)
}
