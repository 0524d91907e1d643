package httpserver

import (
	"net"
	"net/http"
	"time"

	"checkin-app-go/internal/config"
)

const requestTimeout = 30 * time.Second

// New builds the API server. The write timeout sits above the router's
// per-request timeout so handlers can still answer with 503.
func New(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
