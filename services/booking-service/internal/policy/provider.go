// Package policy holds per-business rules applied by the API layer before it calls
// the appointment writer.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrChangeWindowClosed = errors.New("appointment can no longer be changed")

// MaxChangeNotice bounds the notice a business may require.
const MaxChangeNotice = 24 * time.Hour

// Provider returns how long before an appointment's start a client may still
// cancel or reschedule it.
type Provider interface {
	ChangeNotice(ctx context.Context, businessID string) (time.Duration, error)
}

// HoursSource is the slice of the catalog this package reads.
type HoursSource interface {
	ChangeNoticeHours(ctx context.Context, businessID string) (int, error)
}

type staticProvider struct {
	notice time.Duration
}

func NewStaticProvider(notice time.Duration) Provider {
	return &staticProvider{notice: clamp(notice)}
}

func (p *staticProvider) ChangeNotice(context.Context, string) (time.Duration, error) {
	return p.notice, nil
}

type businessProvider struct {
	source   HoursSource
	fallback time.Duration
	logger   *slog.Logger
}

// NewBusinessPolicyProvider reads the notice configured on each business and
// falls back to the static value when the lookup fails.
func NewBusinessPolicyProvider(logger *slog.Logger, fallback time.Duration, source HoursSource) Provider {
	if source == nil {
		return NewStaticProvider(fallback)
	}
	return &businessProvider{source: source, fallback: clamp(fallback), logger: logger}
}

func (p *businessProvider) ChangeNotice(ctx context.Context, businessID string) (time.Duration, error) {
	hours, err := p.source.ChangeNoticeHours(ctx, businessID)
	if err != nil {
		p.logger.Warn("change notice lookup failed; using fallback", "business_id", businessID, "err", err)
		return p.fallback, nil
	}
	return clamp(time.Duration(hours) * time.Hour), nil
}

// CheckChange fails when start is less than notice away from now.
func CheckChange(notice time.Duration, start, now time.Time) error {
	if notice <= 0 {
		return nil
	}
	if start.Sub(now) < notice {
		return fmt.Errorf("%w: changes require %s notice", ErrChangeWindowClosed, notice)
	}
	return nil
}

func clamp(d time.Duration) time.Duration {
	switch {
	case d < 0:
		return 0
	case d > MaxChangeNotice:
		return MaxChangeNotice
	}
	return d
}
