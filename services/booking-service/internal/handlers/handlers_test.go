package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/httpx"
	"github.com/slotbook/slotbook/services/booking-service/internal/blocks"
	"github.com/slotbook/slotbook/services/booking-service/internal/booking"
	"github.com/slotbook/slotbook/services/booking-service/internal/model"
	"github.com/slotbook/slotbook/services/booking-service/internal/policy"
	"github.com/slotbook/slotbook/services/booking-service/internal/scheduling"
	"github.com/slotbook/slotbook/services/booking-service/internal/storage/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

// Monday 2026-03-09, 14:05 UTC.
var testNow = time.Date(2026, 3, 9, 14, 5, 0, 0, time.UTC)

type testAPI struct {
	srv   *httptest.Server
	appts *memstore.Appointments
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	catalog := scheduling.NewStaticProvider(&scheduling.CatalogFile{
		Businesses: []scheduling.BusinessConfig{{
			ID:                "biz-1",
			OpeningTime:       "09:00",
			ClosingTime:       "18:00",
			Timezone:          "UTC",
			ChangeNoticeHours: 24,
			Services: []scheduling.ServiceConfig{
				{ID: "cut", Name: "Cut", DurationMinutes: 30, Price: 20, Currency: "EUR"},
			},
		}, {
			ID:          "biz-ny",
			OpeningTime: "09:00",
			ClosingTime: "18:00",
			Timezone:    "America/New_York",
			Services: []scheduling.ServiceConfig{
				{ID: "cut", Name: "Cut", DurationMinutes: 30, Price: 20, Currency: "USD"},
			},
		}},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appts := memstore.NewAppointments()
	blockStore := memstore.NewBlocks()
	svc := booking.NewService(appts, blockStore, catalog, booking.WithClock(func() time.Time { return testNow }))

	bh := NewBookingHandler(svc, policy.NewBusinessPolicyProvider(logger, 0, scheduling.NoticeSource{Provider: catalog}), logger)
	bh.now = func() time.Time { return testNow }
	blh := NewBlockHandler(blocks.NewService(blockStore, svc), svc, logger)

	srv := httptest.NewServer(NewRouter(bh, blh, auth.Verifier{Secret: testSecret}))
	t.Cleanup(srv.Close)
	return testAPI{srv: srv, appts: appts}
}

func token(t *testing.T, c auth.Claims) string {
	t.Helper()
	tok, err := auth.SignHS256(c, testSecret)
	require.NoError(t, err)
	return tok
}

var (
	owner  = auth.Claims{Sub: "u-owner", BusinessID: "biz-1", Role: auth.RoleOwner}
	staff  = auth.Claims{Sub: "u-staff", BusinessID: "biz-1", Role: auth.RoleStaff, StaffID: "staff-1"}
	client = auth.Claims{Sub: "cust-1", Role: auth.RoleClient}
	nyOwner = auth.Claims{Sub: "u-ny", BusinessID: "biz-ny", Role: auth.RoleOwner}
)

func (a testAPI) do(t *testing.T, method, path string, claims *auth.Claims, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	if claims != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, *claims))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a testAPI) book(t *testing.T, claims *auth.Claims, start string) *http.Response {
	return a.do(t, http.MethodPost, "/api/v1/public/book", claims, map[string]string{
		"business_id": "biz-1",
		"staff_id":    "staff-1",
		"service_id":  "cut",
		"customer_id": "cust-1",
		"start_time":  start,
	})
}

func TestSlotsExcludeBookedAndPast(t *testing.T) {
	api := newTestAPI(t)

	resp := api.book(t, nil, "2026-03-09T15:00:00Z")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/public/slots?business_id=biz-1&staff_id=staff-1&service_id=cut&date=2026-03-09", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots := decode[[]string](t, resp)
	require.NotEmpty(t, slots)
	assert.Equal(t, "14:30", slots[0])
	assert.NotContains(t, slots, "15:00")
	assert.NotContains(t, slots, "14:00")
	assert.Contains(t, slots, "15:30")
}

func TestSlotGrid(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodGet, "/api/v1/public/slots/grid?business_id=biz-1&staff_id=staff-1&service_id=cut&date=2026-03-10", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	grid := decode[[]map[string]any](t, resp)
	require.Len(t, grid, 18)
	assert.Equal(t, "09:00", grid[0]["time"])
	assert.Equal(t, true, grid[0]["available"])
}

func TestSlotsMissingFieldIs400(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodGet, "/api/v1/public/slots?business_id=biz-1&service_id=cut&date=2026-03-10", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decode[httpx.ErrorBody](t, resp)
	assert.Equal(t, "staff_id", body.Field)
}

func TestBookConflictAsksForRefresh(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusCreated, api.book(t, nil, "2026-03-10T10:00:00Z").StatusCode)

	resp := api.book(t, nil, "2026-03-10T10:15:00Z")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[httpx.ErrorBody](t, resp)
	assert.Equal(t, "scheduling_conflict", body.Code)
	assert.True(t, body.RefreshSlots)
}

func TestBookUnknownServiceIs404(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodPost, "/api/v1/public/book", nil, map[string]string{
		"business_id": "biz-1", "staff_id": "staff-1", "service_id": "nope",
		"customer_id": "cust-1", "start_time": "2026-03-10T10:00:00Z",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBookSignedInClientBooksForSelf(t *testing.T) {
	api := newTestAPI(t)
	other := auth.Claims{Sub: "cust-9", Role: auth.RoleClient}
	resp := api.book(t, &other, "2026-03-10T11:00:00Z")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appt := decode[model.Appointment](t, resp)
	assert.Equal(t, "cust-9", appt.CustomerID)
}

func TestAppointmentsRequireAuth(t *testing.T) {
	api := newTestAPI(t)
	resp := api.do(t, http.MethodGet, "/api/v1/appointments", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/appointments", &client, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestClientChangeNotice(t *testing.T) {
	api := newTestAPI(t)

	soon := decode[model.Appointment](t, api.book(t, nil, "2026-03-10T10:00:00Z"))
	later := decode[model.Appointment](t, api.book(t, nil, "2026-03-12T10:00:00Z"))

	// Within 24h of start: the client is refused, the business is not.
	resp := api.do(t, http.MethodPost, "/api/v1/appointments/cancel", &client, map[string]string{"appointment_id": soon.ID})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "change_window_closed", decode[httpx.ErrorBody](t, resp).Code)

	resp = api.do(t, http.MethodPost, "/api/v1/appointments/cancel", &staff, map[string]string{"appointment_id": soon.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.StatusCancelled, decode[model.Appointment](t, resp).Status)

	resp = api.do(t, http.MethodPost, "/api/v1/appointments/reschedule", &client, map[string]string{
		"appointment_id": later.ID,
		"start_time":     "2026-03-12T11:00:00Z",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	moved := decode[model.Appointment](t, resp)
	assert.True(t, moved.EndTime.Equal(time.Date(2026, 3, 12, 11, 30, 0, 0, time.UTC)), "end %s", moved.EndTime)

	stranger := auth.Claims{Sub: "cust-2", Role: auth.RoleClient}
	resp = api.do(t, http.MethodPost, "/api/v1/appointments/cancel", &stranger, map[string]string{"appointment_id": later.ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStatusAndDelete(t *testing.T) {
	api := newTestAPI(t)
	appt := decode[model.Appointment](t, api.book(t, nil, "2026-03-10T10:00:00Z"))

	resp := api.do(t, http.MethodPost, "/api/v1/appointments/status", &staff, map[string]string{
		"appointment_id": appt.ID, "status": model.StatusCompleted,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/v1/appointments/status", &staff, map[string]string{
		"appointment_id": appt.ID, "status": model.StatusPending,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/v1/appointments/delete", &staff, map[string]string{"appointment_id": appt.ID})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = api.do(t, http.MethodPost, "/api/v1/appointments/delete", &owner, map[string]string{"appointment_id": appt.ID})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.do(t, http.MethodGet, "/api/v1/appointments", &owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[map[string][]model.Appointment](t, resp)
	assert.Empty(t, list["appointments"])
}

func TestListFilters(t *testing.T) {
	api := newTestAPI(t)
	api.book(t, nil, "2026-03-10T10:00:00Z")
	api.book(t, nil, "2026-03-11T10:00:00Z")

	resp := api.do(t, http.MethodGet, "/api/v1/appointments?from=2026-03-11T00:00:00Z", &owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[map[string][]model.Appointment](t, resp)
	require.Len(t, list["appointments"], 1)

	resp = api.do(t, http.MethodGet, "/api/v1/appointments?limit=x", &owner, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBlocksLifecycle(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(t, http.MethodPost, "/api/v1/blocks", &owner, map[string]any{
		"staff_id":   "staff-1",
		"reason":     "Lunch",
		"start_time": "2026-03-09T12:00:00Z",
		"end_time":   "2026-03-09T13:00:00Z",
		"recurrence": map[string]any{"pattern": "custom_weekly", "weekdays": []any{"mon", 3}, "end_date": "2026-03-31"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string][]model.ScheduleBlock](t, resp)["blocks"]
	require.Len(t, created, 7)

	resp = api.do(t, http.MethodGet, "/api/v1/public/slots?business_id=biz-1&staff_id=staff-1&service_id=cut&date=2026-03-11", nil, nil)
	slots := decode[[]string](t, resp)
	assert.NotContains(t, slots, "12:00")
	assert.NotContains(t, slots, "12:30")
	assert.Contains(t, slots, "13:00")

	resp = api.do(t, http.MethodGet, "/api/v1/blocks?date=2026-03-11", &staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[map[string][]model.ScheduleBlock](t, resp)["blocks"], 1)

	resp = api.do(t, http.MethodDelete, "/api/v1/blocks?id="+created[2].ID+"&scope=series", &staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[map[string][]string](t, resp)["deleted"], 7)
}

func TestRecurringBlocksFollowBusinessTimezone(t *testing.T) {
	api := newTestAPI(t)
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Daily lunch anchored before the 2026-03-08 DST change.
	resp := api.do(t, http.MethodPost, "/api/v1/blocks", &nyOwner, map[string]any{
		"reason":     "Lunch",
		"start_time": "2026-03-06T12:00:00-05:00",
		"end_time":   "2026-03-06T13:00:00-05:00",
		"recurrence": map[string]any{"pattern": "daily", "max_occurrences": 5},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[map[string][]model.ScheduleBlock](t, resp)["blocks"]
	require.Len(t, created, 5)
	for _, b := range created {
		assert.Equal(t, 12, b.StartTime.In(ny).Hour(), b.StartTime.In(ny).String())
	}

	resp = api.do(t, http.MethodGet, "/api/v1/public/slots?business_id=biz-ny&staff_id=staff-1&service_id=cut&date=2026-03-10", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots := decode[[]string](t, resp)
	assert.NotContains(t, slots, "12:00")
	assert.NotContains(t, slots, "12:30")
	assert.Contains(t, slots, "13:00")

	// Monday 22:00 local, sent in UTC.
	resp = api.do(t, http.MethodPost, "/api/v1/blocks", &nyOwner, map[string]any{
		"reason":     "Inventory",
		"start_time": "2026-03-17T02:00:00Z",
		"end_time":   "2026-03-17T03:00:00Z",
		"recurrence": map[string]any{"pattern": "custom_weekly", "weekdays": []any{"mon"}, "end_date": "2026-03-30"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created = decode[map[string][]model.ScheduleBlock](t, resp)["blocks"]
	require.Len(t, created, 3)
	for _, b := range created {
		local := b.StartTime.In(ny)
		assert.Equal(t, time.Monday, local.Weekday(), local.String())
		assert.Equal(t, 22, local.Hour())
	}
}

func TestBlockCreateRejectsClientAndBadRule(t *testing.T) {
	api := newTestAPI(t)
	body := map[string]any{
		"business_id": "biz-1",
		"reason":      "Holiday",
		"start_time":  "2026-03-09T00:00:00Z",
		"end_time":    "2026-03-10T00:00:00Z",
	}
	resp := api.do(t, http.MethodPost, "/api/v1/blocks", &client, body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	body["recurrence"] = map[string]any{"pattern": "custom_weekly"}
	resp = api.do(t, http.MethodPost, "/api/v1/blocks", &owner, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_recurrence", decode[httpx.ErrorBody](t, resp).Code)
}
