package handlers

import (
	"net/http"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/httpx"
)

// NewRouter mounts the API. Public routes accept anonymous callers and run
// publicMW (rate limiting) first; everything else requires a bearer token.
func NewRouter(bookings *BookingHandler, blocks *BlockHandler, verifier auth.Verifier, publicMW ...httpx.Middleware) http.Handler {
	public := http.NewServeMux()
	private := http.NewServeMux()
	bookings.Register(public, private)
	blocks.Register(private)

	mw := append(append([]httpx.Middleware{}, publicMW...), auth.OptionalAuth(verifier))
	authed := auth.RequireAuth(verifier)(private)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/public/", httpx.Chain(public, mw...))
	mux.Handle("/api/v1/appointments", authed)
	mux.Handle("/api/v1/appointments/", authed)
	mux.Handle("/api/v1/blocks", authed)
	return mux
}
