package booking

import (
	"errors"
	"fmt"

	"github.com/slotbook/slotbook/services/booking-service/internal/availability"
	"github.com/slotbook/slotbook/services/booking-service/internal/policy"
	"github.com/slotbook/slotbook/services/booking-service/internal/recurrence"
)

var (
	ErrInvalidInterval         = availability.ErrInvalidInterval
	ErrInvalidRecurrenceConfig = recurrence.ErrInvalidRecurrenceConfig
	ErrChangeWindowClosed      = policy.ErrChangeWindowClosed

	ErrServiceNotFound     = errors.New("service not found")
	ErrBusinessNotFound    = errors.New("business hours not configured")
	ErrSchedulingConflict  = errors.New("scheduling conflict")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrBlockNotFound       = errors.New("schedule block not found")
	ErrInvalidStatusChange = errors.New("invalid status transition")
)

// FieldError is a rejected input value. It is reported to the caller as a field
// error, never as a conflict.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func fieldErr(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
