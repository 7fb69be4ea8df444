package catalogrpc

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeCatalog struct{}

func (fakeCatalog) GetService(_ context.Context, businessID, serviceID string) (ServiceInfo, error) {
	if serviceID != "svc-1" {
		return ServiceInfo{}, fmt.Errorf("service %s: %w", serviceID, ErrNotFound)
	}
	return ServiceInfo{ID: serviceID, BusinessID: businessID, Name: "Haircut", DurationMinutes: 45, Price: 25.5, Currency: "EUR"}, nil
}

func (fakeCatalog) GetBusinessHours(_ context.Context, businessID string) (BusinessHours, error) {
	return BusinessHours{
		BusinessID:        businessID,
		OpeningTime:       "09:00",
		ClosingTime:       "18:00",
		Timezone:          "Europe/Berlin",
		SlotStepMinutes:   30,
		ChangeNoticeHours: 12,
	}, nil
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, fakeCatalog{})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestGetServiceRoundTrip(t *testing.T) {
	c := newTestClient(t)

	info, err := c.GetService(context.Background(), "biz-1", "svc-1")
	require.NoError(t, err)
	assert.Equal(t, ServiceInfo{ID: "svc-1", BusinessID: "biz-1", Name: "Haircut", DurationMinutes: 45, Price: 25.5, Currency: "EUR"}, info)

	_, err = c.GetService(context.Background(), "biz-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetBusinessHoursRoundTrip(t *testing.T) {
	c := newTestClient(t)

	h, err := c.GetBusinessHours(context.Background(), "biz-1")
	require.NoError(t, err)
	assert.Equal(t, "09:00", h.OpeningTime)
	assert.Equal(t, 30, h.SlotStepMinutes)
	assert.Equal(t, 12, h.ChangeNoticeHours)
}

func TestMissingArgumentsRejected(t *testing.T) {
	c := newTestClient(t)

	_, err := c.GetBusinessHours(context.Background(), "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
