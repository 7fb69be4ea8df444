package blocks

import (
	"context"
	"fmt"
	"time"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/recurrence"
)

const (
	ScopeOccurrence = "occurrence"
	ScopeSeries     = "series"
)

// ZoneSource resolves the timezone a business's recurring blocks repeat in.
type ZoneSource interface {
	Location(ctx context.Context, businessID string) (*time.Location, error)
}

type Service struct {
	store    booking.BlockStore
	zones    ZoneSource
	resolver *Resolver
}

func NewService(store booking.BlockStore, zones ZoneSource) *Service {
	return &Service{store: store, zones: zones, resolver: NewResolver(store)}
}

type CreateRequest struct {
	BusinessID string
	StaffID    string
	Reason     string
	Color      string
	Start      time.Time
	End        time.Time
	Rule       recurrence.Rule
}

// Create expands the request in the business timezone and stores every
// occurrence. Recurrences keep the anchor's local time of day across DST changes.
func (s *Service) Create(ctx context.Context, actor *auth.Claims, req CreateRequest) ([]model.ScheduleBlock, error) {
	if req.BusinessID == "" {
		return nil, &booking.FieldError{Field: "business_id", Reason: "is required"}
	}
	if !canWrite(actor, req.BusinessID, req.StaffID) {
		return nil, booking.ErrPermissionDenied
	}
	if req.Rule.Pattern == "" {
		req.Rule.Pattern = model.PatternOnce
	}
	loc, err := s.zones.Location(ctx, req.BusinessID)
	if err != nil {
		return nil, err
	}
	instances, err := recurrence.Expand(recurrence.Request{
		BusinessID: req.BusinessID,
		StaffID:    req.StaffID,
		Reason:     req.Reason,
		Color:      req.Color,
		Anchor:     availability.Interval{Start: req.Start.In(loc), End: req.End.In(loc)},
		Rule:       req.Rule,
	})
	if err != nil {
		return nil, err
	}
	return s.store.BulkInsert(ctx, instances)
}

// List returns the blocks affecting staffID (or all blocks when empty) on the
// given day window.
func (s *Service) List(ctx context.Context, businessID, staffID string, window availability.Interval) ([]model.ScheduleBlock, error) {
	return s.store.ListForDate(ctx, businessID, staffID, window)
}

// Delete removes one occurrence or its whole series and returns the deleted ids.
func (s *Service) Delete(ctx context.Context, actor *auth.Claims, blockID, scope string) ([]string, error) {
	src, err := s.store.Get(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if !canWrite(actor, src.BusinessID, src.StaffID) {
		return nil, booking.ErrPermissionDenied
	}

	var ids []string
	switch scope {
	case "", ScopeOccurrence:
		ids = []string{src.ID}
	case ScopeSeries:
		if ids, err = s.resolver.Resolve(ctx, src); err != nil {
			return nil, err
		}
	default:
		return nil, &booking.FieldError{Field: "scope", Reason: fmt.Sprintf("must be %q or %q", ScopeOccurrence, ScopeSeries)}
	}

	if _, err := s.store.DeleteByIDs(ctx, src.BusinessID, ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Owners and admins manage every block of their business; staff members manage
// only blocks assigned to themselves.
func canWrite(actor *auth.Claims, businessID, staffID string) bool {
	if actor == nil {
		return false
	}
	if actor.CanManage(businessID) {
		return true
	}
	return actor.Role == auth.RoleStaff &&
		actor.BusinessID == businessID &&
		staffID != "" &&
		actor.StaffID == staffID
}
