package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/business-service/internal/catalog"
)

type Handler struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
}

func New(c *catalog.Catalog, logger *slog.Logger) *Handler {
	return &Handler{catalog: c, logger: logger}
}

// Routes mounts the admin API behind bearer auth and the read-only public API used
// by booking pages.
func (h *Handler) Routes(verifier auth.Verifier) http.Handler {
	admin := http.NewServeMux()
	admin.HandleFunc("GET /api/v1/business/profile", h.GetProfile)
	admin.HandleFunc("PUT /api/v1/business/profile", h.UpdateProfile)
	admin.HandleFunc("GET /api/v1/business/services", h.ListServices)
	admin.HandleFunc("POST /api/v1/business/services", h.CreateService)
	admin.HandleFunc("PUT /api/v1/business/services/{id}", h.UpdateService)
	admin.HandleFunc("DELETE /api/v1/business/services/{id}", h.DeleteService)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/business/", auth.RequireAuth(verifier)(admin))
	mux.HandleFunc("GET /api/v1/public/businesses/{business_id}/profile", h.PublicProfile)
	mux.HandleFunc("GET /api/v1/public/businesses/{business_id}/services", h.PublicServices)
	return mux
}

// businessID returns the caller's business; writes additionally need owner or
// admin.
func businessID(w http.ResponseWriter, r *http.Request, write bool) (string, bool) {
	c := auth.ClaimsFromContext(r.Context())
	if c == nil || c.BusinessID == "" {
		httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorBody{Error: "forbidden", Code: "permission_denied"})
		return "", false
	}
	if write && !c.CanManage(c.BusinessID) {
		httpx.WriteJSON(w, http.StatusForbidden, httpx.ErrorBody{Error: "forbidden", Code: "permission_denied"})
		return "", false
	}
	return c.BusinessID, true
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	bizID, ok := businessID(w, r, false)
	if !ok {
		return
	}
	p, err := h.catalog.Profile(r.Context(), bizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

type profileRequest struct {
	Name              string `json:"name"`
	Timezone          string `json:"timezone"`
	OpeningTime       string `json:"opening_time"`
	ClosingTime       string `json:"closing_time"`
	SlotStepMinutes   int    `json:"slot_step_minutes"`
	ChangeNoticeHours int    `json:"change_notice_hours"`
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	bizID, ok := businessID(w, r, true)
	if !ok {
		return
	}
	var req profileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.catalog.UpdateProfile(r.Context(), catalog.Profile{
		BusinessID:        bizID,
		Name:              req.Name,
		Timezone:          req.Timezone,
		OpeningTime:       strings.TrimSpace(req.OpeningTime),
		ClosingTime:       strings.TrimSpace(req.ClosingTime),
		SlotStepMinutes:   req.SlotStepMinutes,
		ChangeNoticeHours: req.ChangeNoticeHours,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("business profile updated", "business_id", bizID)
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	bizID, ok := businessID(w, r, false)
	if !ok {
		return
	}
	h.listServices(w, r, bizID)
}

type serviceRequest struct {
	Name            string  `json:"name"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	Description     string  `json:"description"`
}

func (req serviceRequest) toService(businessID, id string) catalog.Service {
	return catalog.Service{
		ID:              id,
		BusinessID:      businessID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		Currency:        req.Currency,
		Description:     req.Description,
	}
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	bizID, ok := businessID(w, r, true)
	if !ok {
		return
	}
	var req serviceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc, err := h.catalog.CreateService(r.Context(), req.toService(bizID, ""))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, svc)
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	bizID, ok := businessID(w, r, true)
	if !ok {
		return
	}
	var req serviceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	svc, err := h.catalog.UpdateService(r.Context(), req.toService(bizID, r.PathValue("id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, svc)
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	bizID, ok := businessID(w, r, true)
	if !ok {
		return
	}
	if err := h.catalog.DeleteService(r.Context(), bizID, r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.SavedProfile(r.Context(), r.PathValue("business_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) PublicServices(w http.ResponseWriter, r *http.Request) {
	h.listServices(w, r, r.PathValue("business_id"))
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request, bizID string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "limit must be a positive integer", Field: "limit"})
			return
		}
		limit = n
	}
	items, err := h.catalog.Services(r.Context(), bizID, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": items})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var ve *catalog.ValidationError
	switch {
	case errors.As(err, &ve):
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: ve.Error(), Code: "invalid_field", Field: ve.Field})
	case errors.Is(err, catalog.ErrNotFound):
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{Error: "not found", Code: "not_found"})
	default:
		h.logger.Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
