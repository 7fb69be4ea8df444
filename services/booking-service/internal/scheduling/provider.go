// Package scheduling looks up the catalog data slot computation depends on: the
// service being booked and the business's opening hours.
package scheduling

import (
	"context"
	"errors"

	"github.com/slotbook/slotbook/services/booking-service/internal/model"
)

var ErrNotFound = errors.New("not found")

type Provider interface {
	Service(ctx context.Context, businessID, serviceID string) (model.Service, error)
	Hours(ctx context.Context, businessID string) (model.BusinessHours, error)
}

// NoticeSource adapts a Provider to the change-notice policy.
type NoticeSource struct {
	Provider Provider
}

func (s NoticeSource) ChangeNoticeHours(ctx context.Context, businessID string) (int, error) {
	h, err := s.Provider.Hours(ctx, businessID)
	if err != nil {
		return 0, err
	}
	return h.ChangeNoticeHours, nil
}
