// Package httpserver builds the http.Server used by cmd/server.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server sized for this service's traffic: single and
// batch translations are bounded by the 30s middleware timeout, so the
// write timeout leaves headroom above it rather than cutting requests off
// mid-flight.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
