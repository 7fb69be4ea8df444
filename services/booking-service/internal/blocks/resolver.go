// Package blocks manages schedule blocks: expanding recurring series on create
// and resolving series membership on delete.
package blocks

import (
	"context"
	"sort"

	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

// Resolver computes series membership. It never deletes.
type Resolver struct {
	store booking.BlockStore
}

func NewResolver(store booking.BlockStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the ids of every block in src's series, including src, in
// chronological order. A one-off block is its own series.
func (r *Resolver) Resolve(ctx context.Context, src model.ScheduleBlock) ([]string, error) {
	if !src.IsRecurring {
		return []string{src.ID}, nil
	}
	candidates, err := r.store.ListSeries(ctx, src)
	if err != nil {
		return nil, err
	}
	members := []model.ScheduleBlock{src}
	for _, b := range candidates {
		if b.ID != src.ID && src.SameSeries(b) {
			members = append(members, b)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].StartTime.Equal(members[j].StartTime) {
			return members[i].StartTime.Before(members[j].StartTime)
		}
		return members[i].ID < members[j].ID
	})
	ids := make([]string, len(members))
	for i, b := range members {
		ids[i] = b.ID
	}
	return ids, nil
}
