package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
)

// writeServiceError maps domain errors onto HTTP responses. Unknown errors are
// logged and reported as 500 without detail.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var fe *booking.FieldError
	switch {
	case errors.As(err, &fe):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: fe.Error(), Code: "invalid_field", Field: fe.Field})
	case errors.Is(err, booking.ErrInvalidInterval):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: err.Error(), Code: "invalid_interval"})
	case errors.Is(err, booking.ErrInvalidRecurrenceConfig):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: err.Error(), Code: "invalid_recurrence", Field: "recurrence"})
	case errors.Is(err, booking.ErrServiceNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{Error: err.Error(), Code: "service_not_found", Field: "service_id"})
	case errors.Is(err, booking.ErrBusinessNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{Error: err.Error(), Code: "business_not_found", Field: "business_id"})
	case errors.Is(err, booking.ErrAppointmentNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{Error: err.Error(), Code: "appointment_not_found"})
	case errors.Is(err, booking.ErrBlockNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{Error: err.Error(), Code: "block_not_found"})
	case errors.Is(err, booking.ErrSchedulingConflict):
		httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorBody{
			Error:        "the selected time is no longer available",
			Code:         "scheduling_conflict",
			RefreshSlots: true,
		})
	case errors.Is(err, booking.ErrInvalidStatusChange):
		httpx.WriteJSON(w, http.StatusConflict, httpx.ErrorBody{Error: err.Error(), Code: "invalid_status_change", Field: "status"})
	case errors.Is(err, booking.ErrChangeWindowClosed):
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, httpx.ErrorBody{Error: err.Error(), Code: "change_window_closed"})
	case errors.Is(err, booking.ErrPermissionDenied):
		httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorBody{Error: "forbidden", Code: "permission_denied"})
	default:
		logger.Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeBadRequest(w http.ResponseWriter, field, msg string) {
	httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: msg, Code: "invalid_field", Field: field})
}

// outcome labels the write metric.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, booking.ErrSchedulingConflict):
		return "conflict"
	case errors.Is(err, booking.ErrChangeWindowClosed):
		return "window_closed"
	case errors.Is(err, booking.ErrPermissionDenied):
		return "forbidden"
	default:
		var fe *booking.FieldError
		if errors.As(err, &fe) {
			return "invalid"
		}
		return "error"
	}
}

// isMember reports whether claims belong to the staff side of businessID.
func isMember(c *auth.Claims, businessID string) bool {
	if c == nil || businessID == "" || c.BusinessID != businessID {
		return false
	}
	switch c.Role {
	case auth.RoleOwner, auth.RoleAdmin, auth.RoleStaff:
		return true
	}
	return false
}

func memberBusiness(c *auth.Claims) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.BusinessID, isMember(c, c.BusinessID)
}
