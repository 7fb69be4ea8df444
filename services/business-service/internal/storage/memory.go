package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/slotbook/slotbook/libs/outbox"
	"github.com/slotbook/slotbook/services/business-service/internal/catalog"
)

// Memory is a process-local catalog.Store for development and tests. Events are
// kept in order and never published.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]catalog.Profile
	services map[string]catalog.Service
	events   []outbox.Event
}

var _ catalog.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{profiles: map[string]catalog.Profile{}, services: map[string]catalog.Service{}}
}

func (m *Memory) Events() []outbox.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]outbox.Event(nil), m.events...)
}

func (m *Memory) GetProfile(_ context.Context, businessID string) (catalog.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[businessID]
	if !ok {
		return catalog.Profile{}, catalog.ErrNotFound
	}
	return p, nil
}

func (m *Memory) UpsertProfile(_ context.Context, p catalog.Profile, events ...outbox.Event) (catalog.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	m.profiles[p.BusinessID] = p
	m.events = append(m.events, events...)
	return p, nil
}

func (m *Memory) GetService(_ context.Context, businessID, serviceID string) (catalog.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.services[serviceID]
	if !ok || s.BusinessID != businessID {
		return catalog.Service{}, catalog.ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListServices(_ context.Context, businessID string, limit int) ([]catalog.Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []catalog.Service{}
	for _, s := range m.services {
		if s.BusinessID == businessID && s.DeletedAt == nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) InsertService(_ context.Context, s catalog.Service, events ...outbox.Event) (catalog.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = s
	m.events = append(m.events, events...)
	return s, nil
}

func (m *Memory) UpdateService(_ context.Context, s catalog.Service, events ...outbox.Event) (catalog.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.services[s.ID]
	if !ok || cur.BusinessID != s.BusinessID || cur.DeletedAt != nil {
		return catalog.Service{}, catalog.ErrNotFound
	}
	s.CreatedAt = cur.CreatedAt
	m.services[s.ID] = s
	m.events = append(m.events, events...)
	return s, nil
}

func (m *Memory) SoftDeleteService(_ context.Context, businessID, serviceID string, at time.Time, events ...outbox.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.services[serviceID]
	if !ok || cur.BusinessID != businessID || cur.DeletedAt != nil {
		return catalog.ErrNotFound
	}
	cur.DeletedAt = &at
	m.services[serviceID] = cur
	m.events = append(m.events, events...)
	return nil
}
