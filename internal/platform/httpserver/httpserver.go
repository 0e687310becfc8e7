// Package httpserver configures the net/http server behind eam serve.
package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// New builds the server. WriteTimeout stays unset because list pages and
// KPI reports are bounded per route by the Timeout middleware instead.
// Connection-level errors from net/http go to logger at warn level.
func New(addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if logger != nil {
		srv.ErrorLog = slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
	}
	return srv
}

// ListenAndServe blocks until srv stops. A graceful Shutdown is not an error.
func ListenAndServe(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return nil
}
