// Package catalogrpc is the gRPC contract business-service exposes for catalog
// lookups. Messages travel as google.protobuf.Struct so neither side needs generated
// stubs.
package catalogrpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName          = "slotbook.catalog.v1.Catalog"
	methodGetService     = "/" + ServiceName + "/GetService"
	methodGetBusinessHrs = "/" + ServiceName + "/GetBusinessHours"
)

var ErrNotFound = errors.New("catalog entry not found")

type ServiceInfo struct {
	ID              string
	BusinessID      string
	Name            string
	DurationMinutes int
	Price           float64
	Currency        string
}

type BusinessHours struct {
	BusinessID        string
	OpeningTime       string
	ClosingTime       string
	Timezone          string
	SlotStepMinutes   int
	ChangeNoticeHours int
}

// Server is implemented by the catalog owner. Returning ErrNotFound (wrapped or not)
// yields codes.NotFound on the wire.
type Server interface {
	GetService(ctx context.Context, businessID, serviceID string) (ServiceInfo, error)
	GetBusinessHours(ctx context.Context, businessID string) (BusinessHours, error)
}

func Register(s grpc.ServiceRegistrar, impl Server) {
	s.RegisterService(&serviceDesc, impl)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetService", Handler: getServiceHandler},
		{MethodName: "GetBusinessHours", Handler: getBusinessHoursHandler},
	},
	Metadata: "slotbook/catalog/v1/catalog.proto",
}

func getServiceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		fields := req.(*structpb.Struct).GetFields()
		businessID := fields["business_id"].GetStringValue()
		serviceID := fields["service_id"].GetStringValue()
		if businessID == "" || serviceID == "" {
			return nil, status.Error(codes.InvalidArgument, "business_id and service_id are required")
		}
		info, err := srv.(Server).GetService(ctx, businessID, serviceID)
		if err != nil {
			return nil, toStatus(err)
		}
		return structpb.NewStruct(map[string]any{
			"id":               info.ID,
			"business_id":      info.BusinessID,
			"name":             info.Name,
			"duration_minutes": info.DurationMinutes,
			"price":            info.Price,
			"currency":         info.Currency,
		})
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetService}, call)
}

func getBusinessHoursHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		businessID := req.(*structpb.Struct).GetFields()["business_id"].GetStringValue()
		if businessID == "" {
			return nil, status.Error(codes.InvalidArgument, "business_id is required")
		}
		h, err := srv.(Server).GetBusinessHours(ctx, businessID)
		if err != nil {
			return nil, toStatus(err)
		}
		return structpb.NewStruct(map[string]any{
			"business_id":         h.BusinessID,
			"opening_time":        h.OpeningTime,
			"closing_time":        h.ClosingTime,
			"timezone":            h.Timezone,
			"slot_step_minutes":   h.SlotStepMinutes,
			"change_notice_hours": h.ChangeNoticeHours,
		})
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetBusinessHrs}, call)
}

func toStatus(err error) error {
	if errors.Is(err, ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Internal, err.Error())
}

// Client calls the Catalog service over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) GetService(ctx context.Context, businessID, serviceID string) (ServiceInfo, error) {
	in, err := structpb.NewStruct(map[string]any{"business_id": businessID, "service_id": serviceID})
	if err != nil {
		return ServiceInfo{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetService, in, out); err != nil {
		return ServiceInfo{}, fromStatus(err)
	}
	f := out.GetFields()
	return ServiceInfo{
		ID:              f["id"].GetStringValue(),
		BusinessID:      f["business_id"].GetStringValue(),
		Name:            f["name"].GetStringValue(),
		DurationMinutes: int(f["duration_minutes"].GetNumberValue()),
		Price:           f["price"].GetNumberValue(),
		Currency:        f["currency"].GetStringValue(),
	}, nil
}

func (c *Client) GetBusinessHours(ctx context.Context, businessID string) (BusinessHours, error) {
	in, err := structpb.NewStruct(map[string]any{"business_id": businessID})
	if err != nil {
		return BusinessHours{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetBusinessHrs, in, out); err != nil {
		return BusinessHours{}, fromStatus(err)
	}
	f := out.GetFields()
	return BusinessHours{
		BusinessID:        f["business_id"].GetStringValue(),
		OpeningTime:       f["opening_time"].GetStringValue(),
		ClosingTime:       f["closing_time"].GetStringValue(),
		Timezone:          f["timezone"].GetStringValue(),
		SlotStepMinutes:   int(f["slot_step_minutes"].GetNumberValue()),
		ChangeNoticeHours: int(f["change_notice_hours"].GetNumberValue()),
	}, nil
}

func fromStatus(err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, status.Convert(err).Message())
	}
	return err
}
