package grpcserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/slotbook/slotbook/libs/catalogrpc"
	"github.com/slotbook/slotbook/services/business-service/internal/catalog"
	"google.golang.org/grpc"
)

type server struct {
	catalog *catalog.Catalog
}

func Register(grpcServer grpc.ServiceRegistrar, c *catalog.Catalog) {
	catalogrpc.Register(grpcServer, &server{catalog: c})
}

func (s *server) GetService(ctx context.Context, businessID, serviceID string) (catalogrpc.ServiceInfo, error) {
	svc, err := s.catalog.Service(ctx, businessID, serviceID)
	if err != nil {
		return catalogrpc.ServiceInfo{}, mapErr(err)
	}
	return catalogrpc.ServiceInfo{
		ID:              svc.ID,
		BusinessID:      svc.BusinessID,
		Name:            svc.Name,
		DurationMinutes: svc.DurationMinutes,
		Price:           svc.Price,
		Currency:        svc.Currency,
	}, nil
}

// GetBusinessHours only answers for saved profiles; the booking side reports a
// business without hours instead of guessing.
func (s *server) GetBusinessHours(ctx context.Context, businessID string) (catalogrpc.BusinessHours, error) {
	p, err := s.catalog.SavedProfile(ctx, businessID)
	if err != nil {
		return catalogrpc.BusinessHours{}, mapErr(err)
	}
	return catalogrpc.BusinessHours{
		BusinessID:        p.BusinessID,
		OpeningTime:       p.OpeningTime,
		ClosingTime:       p.ClosingTime,
		Timezone:          p.Timezone,
		SlotStepMinutes:   p.SlotStepMinutes,
		ChangeNoticeHours: p.ChangeNoticeHours,
	}, nil
}

func mapErr(err error) error {
	if errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("%w: %v", catalogrpc.ErrNotFound, err)
	}
	return err
}
