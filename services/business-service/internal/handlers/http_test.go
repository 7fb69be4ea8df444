package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/services/business-service/internal/catalog"
	"github.com/slotbook/slotbook/services/business-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(catalog.New(storage.NewMemory()), logger)
	srv := httptest.NewServer(h.Routes(auth.Verifier{Secret: testSecret}))
	t.Cleanup(srv.Close)
	return srv
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.SignHS256(auth.Claims{Sub: "u-" + role, BusinessID: "biz-1", Role: role}, testSecret)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, method, url, tok string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestProfileAndServicesLifecycle(t *testing.T) {
	srv := newServer(t)
	owner := token(t, auth.RoleOwner)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/v1/business/profile", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "09:00", body["opening_time"])

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/public/businesses/biz-1/profile", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodPut, srv.URL+"/api/v1/business/profile", owner, map[string]any{
		"name": "Studio", "timezone": "UTC", "opening_time": "10:00", "closing_time": "19:00", "change_notice_hours": 24,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "10:00", body["opening_time"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/public/businesses/biz-1/profile", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Studio", body["name"])

	resp, body = do(t, http.MethodPost, srv.URL+"/api/v1/business/services", owner, map[string]any{
		"name": "Cut", "duration_minutes": 30, "price": 25, "currency": "usd",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/public/businesses/biz-1/services", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["services"], 1)

	resp, _ = do(t, http.MethodPut, srv.URL+"/api/v1/business/services/"+id, owner, map[string]any{
		"name": "Cut", "duration_minutes": 45, "price": 30, "currency": "USD",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/v1/business/services/"+id, owner, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/business/services", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["services"])
}

func TestAdminAccessControl(t *testing.T) {
	srv := newServer(t)

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/v1/business/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	staff := token(t, auth.RoleStaff)
	resp, _ = do(t, http.MethodGet, srv.URL+"/api/v1/business/services", staff, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/v1/business/services", staff, map[string]any{"name": "Cut", "duration_minutes": 30})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "permission_denied", body["code"])
}

func TestValidationErrorsNameTheField(t *testing.T) {
	srv := newServer(t)
	owner := token(t, auth.RoleOwner)

	resp, body := do(t, http.MethodPut, srv.URL+"/api/v1/business/profile", owner, map[string]any{
		"opening_time": "18:00", "closing_time": "09:00",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_field", body["code"])
	assert.Equal(t, "closing_time", body["field"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/v1/public/businesses/biz-1/services?limit=-1", "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "limit", body["field"])

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/v1/business/services/nope", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
