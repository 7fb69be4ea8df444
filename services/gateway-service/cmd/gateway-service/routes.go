package main

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type upstreams struct {
	Business *url.URL
	Booking  *url.URL
}

func upstreamsFromEnv() (upstreams, error) {
	business, err := parseUpstream("BUSINESS_URL", "http://business-service:8082")
	if err != nil {
		return upstreams{}, err
	}
	booking, err := parseUpstream("BOOKING_URL", "http://booking-service:8083")
	if err != nil {
		return upstreams{}, err
	}
	return upstreams{Business: business, Booking: booking}, nil
}

func parseUpstream(key, fallback string) (*url.URL, error) {
	raw := config.String(key, fallback)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s must be an absolute URL (got %q)", key, raw)
	}
	return u, nil
}

func newProxy(target *url.URL) *httputil.ReverseProxy {
	p := httputil.NewSingleHostReverseProxy(target)
	p.Transport = otelhttp.NewTransport(http.DefaultTransport)
	return p
}

// registerRoutes forwards each API prefix to its owner. Private prefixes are
// rejected here without a valid token, and the schedule admin prefixes also
// without a member role; the upstream still checks the business.
func registerRoutes(mux *http.ServeMux, up upstreams, verifier auth.Verifier) {
	business := newProxy(up.Business)
	booking := newProxy(up.Booking)
	requireAuth := auth.RequireAuth(verifier)
	members := auth.RequireRole(auth.RoleOwner, auth.RoleAdmin, auth.RoleStaff)

	mux.Handle("/api/v1/public/businesses/", business)
	mux.Handle("/api/v1/public/", booking)
	mux.Handle("/api/v1/business/", requireAuth(members(business)))
	mux.Handle("/api/v1/appointments", requireAuth(booking))
	mux.Handle("/api/v1/appointments/", requireAuth(booking))
	mux.Handle("/api/v1/blocks", requireAuth(members(booking)))
}
