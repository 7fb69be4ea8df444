package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/blocks"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/metrics"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/recurrence"
)

type BlockHandler struct {
	blocks   *blocks.Service
	bookings *booking.Service
	logger   *slog.Logger
}

func NewBlockHandler(blockSvc *blocks.Service, bookingSvc *booking.Service, logger *slog.Logger) *BlockHandler {
	return &BlockHandler{blocks: blockSvc, bookings: bookingSvc, logger: logger}
}

func (h *BlockHandler) Register(private *http.ServeMux) {
	private.HandleFunc("POST /api/v1/blocks", h.Create)
	private.HandleFunc("GET /api/v1/blocks", h.List)
	private.HandleFunc("DELETE /api/v1/blocks", h.Delete)
}

// weekdays accepts 0-6 (Sunday first) or English day names.
type weekdays []time.Weekday

func (d *weekdays) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]time.Weekday, 0, len(raw))
	for _, item := range raw {
		var n int
		if err := json.Unmarshal(item, &n); err == nil {
			if n < 0 || n > 6 {
				return fmt.Errorf("weekday %d out of range", n)
			}
			out = append(out, time.Weekday(n))
			continue
		}
		var name string
		if err := json.Unmarshal(item, &name); err != nil {
			return fmt.Errorf("weekday %s: want number or name", item)
		}
		wd, err := recurrence.ParseWeekday(name)
		if err != nil {
			return err
		}
		out = append(out, wd)
	}
	*d = out
	return nil
}

type recurrenceBody struct {
	Pattern        string   `json:"pattern"`
	Weekdays       weekdays `json:"weekdays"`
	EndDate        string   `json:"end_date"`
	MaxOccurrences int      `json:"max_occurrences"`
}

type createBlockRequest struct {
	BusinessID string          `json:"business_id"`
	StaffID    string          `json:"staff_id"`
	Reason     string          `json:"reason"`
	Color      string          `json:"color"`
	StartTime  string          `json:"start_time"`
	EndTime    string          `json:"end_time"`
	Recurrence *recurrenceBody `json:"recurrence"`
}

func (h *BlockHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBlockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, ok := parseTimeField(w, "start_time", req.StartTime)
	if !ok {
		return
	}
	end, ok := parseTimeField(w, "end_time", req.EndTime)
	if !ok {
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	businessID := strings.TrimSpace(req.BusinessID)
	if businessID == "" && claims != nil {
		businessID = claims.BusinessID
	}

	rule := recurrence.Rule{Pattern: model.PatternOnce}
	if rb := req.Recurrence; rb != nil {
		rule = recurrence.Rule{
			Pattern:        strings.TrimSpace(rb.Pattern),
			Weekdays:       rb.Weekdays,
			MaxOccurrences: rb.MaxOccurrences,
		}
		if rb.EndDate != "" {
			d, err := time.Parse("2006-01-02", rb.EndDate)
			if err != nil {
				writeBadRequest(w, "recurrence.end_date", "end_date must be YYYY-MM-DD")
				return
			}
			rule.EndDate = d
		}
	}

	created, err := h.blocks.Create(r.Context(), claims, blocks.CreateRequest{
		BusinessID: businessID,
		StaffID:    strings.TrimSpace(req.StaffID),
		Reason:     strings.TrimSpace(req.Reason),
		Color:      strings.TrimSpace(req.Color),
		Start:      start,
		End:        end,
		Rule:       rule,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	metrics.AddBlocksCreated(rule.Pattern, len(created))
	h.logger.Info("schedule blocks created", "business_id", businessID, "pattern", rule.Pattern, "count", len(created))
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"blocks": created})
}

func (h *BlockHandler) List(w http.ResponseWriter, r *http.Request) {
	businessID, ok := memberBusiness(auth.ClaimsFromContext(r.Context()))
	if !ok {
		writeServiceError(w, h.logger, booking.ErrPermissionDenied)
		return
	}
	q := r.URL.Query()
	window, err := h.bookings.DayWindow(r.Context(), businessID, strings.TrimSpace(q.Get("date")))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	list, err := h.blocks.List(r.Context(), businessID, strings.TrimSpace(q.Get("staff_id")), window)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"blocks": list})
}

func (h *BlockHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := strings.TrimSpace(q.Get("id"))
	if id == "" {
		writeBadRequest(w, "id", "id is required")
		return
	}
	deleted, err := h.blocks.Delete(r.Context(), auth.ClaimsFromContext(r.Context()), id, strings.TrimSpace(q.Get("scope")))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
