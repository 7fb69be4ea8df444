package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/metrics"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/policy"
)

type BookingHandler struct {
	svc    *booking.Service
	policy policy.Provider
	logger *slog.Logger
	now    func() time.Time
}

func NewBookingHandler(svc *booking.Service, policyProvider policy.Provider, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, policy: policyProvider, logger: logger, now: time.Now}
}

// Register mounts the public and the authenticated routes on separate muxes so the
// caller can wrap each with its own middleware.
func (h *BookingHandler) Register(public, private *http.ServeMux) {
	public.HandleFunc("GET /api/v1/public/slots", h.Slots)
	public.HandleFunc("GET /api/v1/public/slots/grid", h.Grid)
	public.HandleFunc("POST /api/v1/public/book", h.Book)

	private.HandleFunc("GET /api/v1/appointments", h.List)
	private.HandleFunc("POST /api/v1/appointments/reschedule", h.Reschedule)
	private.HandleFunc("POST /api/v1/appointments/cancel", h.Cancel)
	private.HandleFunc("POST /api/v1/appointments/status", h.Status)
	private.HandleFunc("POST /api/v1/appointments/delete", h.Delete)
}

func slotQuery(r *http.Request) booking.SlotQuery {
	q := r.URL.Query()
	return booking.SlotQuery{
		BusinessID:           strings.TrimSpace(q.Get("business_id")),
		StaffID:              strings.TrimSpace(q.Get("staff_id")),
		ServiceID:            strings.TrimSpace(q.Get("service_id")),
		Date:                 strings.TrimSpace(q.Get("date")),
		ExcludeAppointmentID: strings.TrimSpace(q.Get("exclude_appointment_id")),
	}
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	defer metrics.ObserveSlotQuery("slots", time.Now())
	slots, err := h.svc.AvailableSlots(r.Context(), slotQuery(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, slots)
}

func (h *BookingHandler) Grid(w http.ResponseWriter, r *http.Request) {
	defer metrics.ObserveSlotQuery("grid", time.Now())
	grid, err := h.svc.SlotGrid(r.Context(), slotQuery(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, grid)
}

type bookRequest struct {
	BusinessID string `json:"business_id"`
	StaffID    string `json:"staff_id"`
	ServiceID  string `json:"service_id"`
	CustomerID string `json:"customer_id"`
	StartTime  string `json:"start_time"`
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, ok := parseTimeField(w, "start_time", req.StartTime)
	if !ok {
		return
	}
	// Signed-in clients always book for themselves.
	if c := auth.ClaimsFromContext(r.Context()); c != nil && c.Role == auth.RoleClient {
		req.CustomerID = c.Sub
	}

	appt, err := h.svc.Book(r.Context(), booking.BookRequest{
		BusinessID: strings.TrimSpace(req.BusinessID),
		StaffID:    strings.TrimSpace(req.StaffID),
		CustomerID: strings.TrimSpace(req.CustomerID),
		ServiceID:  strings.TrimSpace(req.ServiceID),
		Start:      start,
	})
	metrics.ObserveWrite("book", outcome(err))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("appointment booked", "appointment_id", appt.ID, "business_id", appt.BusinessID, "staff_id", appt.StaffID)
	httpx.WriteJSON(w, http.StatusCreated, appt)
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	ServiceID     string `json:"service_id"`
	StartTime     string `json:"start_time"`
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, ok := parseTimeField(w, "start_time", req.StartTime)
	if !ok {
		return
	}
	ctx := r.Context()
	appt, err := h.authorizeChange(ctx, strings.TrimSpace(req.AppointmentID))
	if err == nil {
		appt, err = h.svc.Reschedule(ctx, booking.RescheduleRequest{
			AppointmentID: appt.ID,
			BusinessID:    appt.BusinessID,
			ServiceID:     strings.TrimSpace(req.ServiceID),
			Start:         start,
		})
	}
	metrics.ObserveWrite("reschedule", outcome(err))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type appointmentRef struct {
	AppointmentID string `json:"appointment_id"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req appointmentRef
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	appt, err := h.authorizeChange(ctx, strings.TrimSpace(req.AppointmentID))
	if err == nil {
		appt, err = h.svc.Cancel(ctx, appt.BusinessID, appt.ID)
	}
	metrics.ObserveWrite("cancel", outcome(err))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

// Status is restricted to the business side; clients cancel through Cancel.
func (h *BookingHandler) Status(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	businessID, ok := memberBusiness(auth.ClaimsFromContext(ctx))
	if !ok {
		writeServiceError(w, h.logger, booking.ErrPermissionDenied)
		return
	}
	appt, err := h.svc.SetStatus(ctx, businessID, strings.TrimSpace(req.AppointmentID), strings.TrimSpace(req.Status))
	metrics.ObserveWrite("status", outcome(err))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req appointmentRef
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx := r.Context()
	claims := auth.ClaimsFromContext(ctx)
	if claims == nil || !claims.CanManage(claims.BusinessID) {
		writeServiceError(w, h.logger, booking.ErrPermissionDenied)
		return
	}
	err := h.svc.Delete(ctx, claims.BusinessID, strings.TrimSpace(req.AppointmentID))
	metrics.ObserveWrite("delete", outcome(err))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := memberBusiness(auth.ClaimsFromContext(r.Context()))
	if !ok {
		writeServiceError(w, h.logger, booking.ErrPermissionDenied)
		return
	}
	q := r.URL.Query()
	f := booking.ListFilter{
		StaffID: strings.TrimSpace(q.Get("staff_id")),
		Status:  strings.TrimSpace(q.Get("status")),
	}
	if v := q.Get("from"); v != "" {
		if f.From, ok = parseTimeField(w, "from", v); !ok {
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if f.To, ok = parseTimeField(w, "to", v); !ok {
			return
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit", "limit must be a positive integer")
			return
		}
		f.Limit = n
	}

	appts, err := h.svc.List(r.Context(), businessID, f)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"appointments": appts})
}

// authorizeChange loads the appointment and checks that the caller may move or
// cancel it. Business members may always do so; a client only for their own
// appointment and only outside the business' change notice.
func (h *BookingHandler) authorizeChange(ctx context.Context, id string) (model.Appointment, error) {
	claims := auth.ClaimsFromContext(ctx)
	if claims == nil {
		return model.Appointment{}, booking.ErrPermissionDenied
	}
	if id == "" {
		return model.Appointment{}, &booking.FieldError{Field: "appointment_id", Reason: "is required"}
	}
	appt, err := h.svc.Get(ctx, "", id)
	if err != nil {
		return model.Appointment{}, err
	}
	if isMember(claims, appt.BusinessID) {
		return appt, nil
	}
	if claims.Role != auth.RoleClient || claims.Sub == "" || claims.Sub != appt.CustomerID {
		return model.Appointment{}, booking.ErrPermissionDenied
	}
	notice, err := h.policy.ChangeNotice(ctx, appt.BusinessID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := policy.CheckChange(notice, appt.StartTime, h.now()); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func parseTimeField(w http.ResponseWriter, field, v string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
	if err != nil {
		writeBadRequest(w, field, field+" must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return t, true
}
