package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func upstream(t *testing.T, name string) *url.URL {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, name+" "+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u
}

func TestRegisterRoutes(t *testing.T) {
	const secret = "test-secret"
	mux := http.NewServeMux()
	registerRoutes(mux, upstreams{Business: upstream(t, "business"), Booking: upstream(t, "booking")}, auth.Verifier{Secret: secret})
	gw := httptest.NewServer(mux)
	t.Cleanup(gw.Close)

	tok, err := auth.SignHS256(auth.Claims{Sub: "u-1", BusinessID: "biz-1", Role: auth.RoleOwner}, secret)
	require.NoError(t, err)
	client, err := auth.SignHS256(auth.Claims{Sub: "cust-1", Role: auth.RoleClient}, secret)
	require.NoError(t, err)

	cases := []struct {
		path   string
		token  string
		status int
		body   string
	}{
		{"/api/v1/public/slots", "", http.StatusOK, "booking /api/v1/public/slots"},
		{"/api/v1/public/businesses/biz-1/services", "", http.StatusOK, "business /api/v1/public/businesses/biz-1/services"},
		{"/api/v1/business/profile", "", http.StatusUnauthorized, ""},
		{"/api/v1/business/profile", tok, http.StatusOK, "business /api/v1/business/profile"},
		{"/api/v1/appointments", tok, http.StatusOK, "booking /api/v1/appointments"},
		{"/api/v1/appointments/cancel", "bad", http.StatusUnauthorized, ""},
		{"/api/v1/blocks", tok, http.StatusOK, "booking /api/v1/blocks"},
		{"/api/v1/blocks", client, http.StatusForbidden, ""},
		{"/api/v1/appointments", client, http.StatusOK, "booking /api/v1/appointments"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, gw.URL+tc.path, nil)
			require.NoError(t, err)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.body != "" {
				b, _ := io.ReadAll(resp.Body)
				assert.Equal(t, tc.body, string(b))
			}
		})
	}
}

func TestParseUpstream(t *testing.T) {
	t.Setenv("SLOTBOOK_TEST_UPSTREAM", "not a url")
	_, err := parseUpstream("SLOTBOOK_TEST_UPSTREAM", "")
	assert.Error(t, err)

	u, err := parseUpstream("SLOTBOOK_TEST_UPSTREAM_UNSET", "http://booking:8083")
	require.NoError(t, err)
	assert.Equal(t, "booking:8083", u.Host)
}
