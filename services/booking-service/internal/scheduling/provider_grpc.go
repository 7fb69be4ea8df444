package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/slotbook/slotbook/libs/catalogrpc"
	"github.com/slotbook/slotbook/libs/grpcx"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"google.golang.org/grpc"
)

// CatalogLookup is satisfied by *catalogrpc.Client.
type CatalogLookup interface {
	GetService(ctx context.Context, businessID, serviceID string) (catalogrpc.ServiceInfo, error)
	GetBusinessHours(ctx context.Context, businessID string) (catalogrpc.BusinessHours, error)
}

type grpcProvider struct {
	client CatalogLookup
}

// NewGRPCProvider connects to business-service. The connection is established
// lazily on the first lookup.
func NewGRPCProvider(addr string) (Provider, *grpc.ClientConn, error) {
	conn, err := grpcx.NewClient(addr, grpcx.DialOptions{})
	if err != nil {
		return nil, nil, err
	}
	return NewCatalogProvider(catalogrpc.NewClient(conn)), conn, nil
}

func NewCatalogProvider(client CatalogLookup) Provider {
	return &grpcProvider{client: client}
}

func (p *grpcProvider) Service(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	info, err := p.client.GetService(ctx, businessID, serviceID)
	if err != nil {
		return model.Service{}, mapErr(err, "service "+serviceID)
	}
	return model.Service{
		ID:              info.ID,
		BusinessID:      info.BusinessID,
		Name:            info.Name,
		DurationMinutes: info.DurationMinutes,
		Price:           info.Price,
		Currency:        info.Currency,
	}, nil
}

func (p *grpcProvider) Hours(ctx context.Context, businessID string) (model.BusinessHours, error) {
	h, err := p.client.GetBusinessHours(ctx, businessID)
	if err != nil {
		return model.BusinessHours{}, mapErr(err, "business "+businessID)
	}
	return model.BusinessHours{
		BusinessID:        h.BusinessID,
		OpeningTime:       h.OpeningTime,
		ClosingTime:       h.ClosingTime,
		Timezone:          h.Timezone,
		SlotStepMinutes:   h.SlotStepMinutes,
		ChangeNoticeHours: h.ChangeNoticeHours,
	}, nil
}

func mapErr(err error, what string) error {
	if errors.Is(err, catalogrpc.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("catalog lookup %s: %w", what, err)
}
