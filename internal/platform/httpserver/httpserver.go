// Package httpserver builds the process's HTTP server with bounded
// per-connection timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// Timeouts bounds connection handling. Zero values select the defaults;
// request-level deadlines live in the router's timeout middleware.
type Timeouts struct {
	ReadHeader time.Duration
	Idle       time.Duration
}

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// New builds an HTTP server for the given address and handler.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	if t.ReadHeader <= 0 {
		t.ReadHeader = defaultReadHeaderTimeout
	}
	if t.Idle <= 0 {
		t.Idle = defaultIdleTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: t.ReadHeader,
		IdleTimeout:       t.Idle,
	}
}
