package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/slotbook/slotbook/libs/outbox"
)

// EventCatalogUpdated tells consumers to drop cached catalog data of a business.
const EventCatalogUpdated = "business.catalog.updated.v1"

// Store persists profiles and services. Every write stores its events in the same
// transaction.
type Store interface {
	GetProfile(ctx context.Context, businessID string) (Profile, error)
	UpsertProfile(ctx context.Context, p Profile, events ...outbox.Event) (Profile, error)
	GetService(ctx context.Context, businessID, serviceID string) (Service, error)
	ListServices(ctx context.Context, businessID string, limit int) ([]Service, error)
	InsertService(ctx context.Context, s Service, events ...outbox.Event) (Service, error)
	UpdateService(ctx context.Context, s Service, events ...outbox.Event) (Service, error)
	SoftDeleteService(ctx context.Context, businessID, serviceID string, at time.Time, events ...outbox.Event) error
}

type Catalog struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Catalog {
	return &Catalog{store: store, now: time.Now}
}

// Profile returns the saved profile or the defaults.
func (c *Catalog) Profile(ctx context.Context, businessID string) (Profile, error) {
	p, err := c.store.GetProfile(ctx, businessID)
	if errors.Is(err, ErrNotFound) {
		return DefaultProfile(businessID), nil
	}
	return p, err
}

// SavedProfile is Profile without the defaults; slot computation must not run on
// hours nobody configured.
func (c *Catalog) SavedProfile(ctx context.Context, businessID string) (Profile, error) {
	return c.store.GetProfile(ctx, businessID)
}

func (c *Catalog) UpdateProfile(ctx context.Context, p Profile) (Profile, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	evt, err := updatedEvent(p.BusinessID, "profile", "")
	if err != nil {
		return Profile{}, err
	}
	return c.store.UpsertProfile(ctx, p, evt)
}

func (c *Catalog) Service(ctx context.Context, businessID, serviceID string) (Service, error) {
	s, err := c.store.GetService(ctx, businessID, serviceID)
	if err != nil {
		return Service{}, err
	}
	if s.DeletedAt != nil {
		return Service{}, ErrNotFound
	}
	return s, nil
}

func (c *Catalog) Services(ctx context.Context, businessID string, limit int) ([]Service, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return c.store.ListServices(ctx, businessID, limit)
}

func (c *Catalog) CreateService(ctx context.Context, s Service) (Service, error) {
	s.Normalize()
	if err := s.Validate(); err != nil {
		return Service{}, err
	}
	s.ID = uuid.NewString()
	s.CreatedAt = c.now().UTC()
	evt, err := updatedEvent(s.BusinessID, "service", s.ID)
	if err != nil {
		return Service{}, err
	}
	return c.store.InsertService(ctx, s, evt)
}

// UpdateService changes duration, price or description. Existing appointments keep
// the values they were booked with.
func (c *Catalog) UpdateService(ctx context.Context, s Service) (Service, error) {
	s.Normalize()
	if s.ID == "" {
		return Service{}, invalid("id", "is required")
	}
	if err := s.Validate(); err != nil {
		return Service{}, err
	}
	evt, err := updatedEvent(s.BusinessID, "service", s.ID)
	if err != nil {
		return Service{}, err
	}
	return c.store.UpdateService(ctx, s, evt)
}

func (c *Catalog) DeleteService(ctx context.Context, businessID, serviceID string) error {
	evt, err := updatedEvent(businessID, "service", serviceID)
	if err != nil {
		return err
	}
	return c.store.SoftDeleteService(ctx, businessID, serviceID, c.now().UTC(), evt)
}

func updatedEvent(businessID, change, serviceID string) (outbox.Event, error) {
	payload := map[string]string{"business_id": businessID, "change": change}
	if serviceID != "" {
		payload["service_id"] = serviceID
	}
	return outbox.NewEvent("business", businessID, EventCatalogUpdated, payload)
}
