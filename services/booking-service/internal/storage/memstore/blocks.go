package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

type Blocks struct {
	mu     sync.RWMutex
	blocks map[string]model.ScheduleBlock
	now    func() time.Time
}

var _ booking.BlockStore = (*Blocks)(nil)

func NewBlocks() *Blocks {
	return &Blocks{blocks: map[string]model.ScheduleBlock{}, now: time.Now}
}

func (s *Blocks) ListForDate(_ context.Context, businessID, staffID string, window availability.Interval) ([]model.ScheduleBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.ScheduleBlock{}
	for _, b := range s.sortedBlocks() {
		if b.BusinessID != businessID {
			continue
		}
		if staffID != "" && !b.AppliesToAll() && b.StaffID != staffID {
			continue
		}
		if (availability.Interval{Start: b.StartTime, End: b.EndTime}).Overlaps(window) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Blocks) BulkInsert(_ context.Context, blocks []model.ScheduleBlock) ([]model.ScheduleBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	out := make([]model.ScheduleBlock, len(blocks))
	for i, b := range blocks {
		if b.ID == "" {
			b.ID = uuid.NewString()
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		out[i] = b
	}
	for _, b := range out {
		s.blocks[b.ID] = b
	}
	return out, nil
}

func (s *Blocks) DeleteByIDs(_ context.Context, businessID string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, id := range ids {
		if b, ok := s.blocks[id]; ok && b.BusinessID == businessID {
			delete(s.blocks, id)
			n++
		}
	}
	return n, nil
}

func (s *Blocks) Get(_ context.Context, id string) (model.ScheduleBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blocks[id]
	if !ok {
		return model.ScheduleBlock{}, booking.ErrBlockNotFound
	}
	return b, nil
}

func (s *Blocks) ListSeries(_ context.Context, src model.ScheduleBlock) ([]model.ScheduleBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ScheduleBlock
	for _, b := range s.sortedBlocks() {
		if src.SameSeries(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Blocks) sortedBlocks() []model.ScheduleBlock {
	out := make([]model.ScheduleBlock, 0, len(s.blocks))
	for _, b := range s.blocks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
