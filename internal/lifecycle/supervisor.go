// Package lifecycle owns process-level concerns that sit above any
// single request: binding the listener, writing the discovery record,
// draining in-flight requests on shutdown, and watching the tools
// directory for plugin changes. Grounded on the teacher's
// internal/gateway/http_server.go listen/serve/shutdown shape and
// singleton_lock.go's file-based state idiom.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Supervisor owns the one TCP listener this gateway instance binds, the
// discovery record describing it, and the graceful-shutdown sequence.
type Supervisor struct {
	Logger *slog.Logger

	httpServer    *http.Server
	listener      net.Listener
	discoveryDir  string
	discoveryPath string
}

// New builds a Supervisor. stateDir is where the discovery port file is
// written; pass "" to skip writing one (e.g. in tests).
func New(logger *slog.Logger, stateDir string) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{Logger: logger.With("component", "lifecycle"), discoveryDir: stateDir}
}

// Start binds host:port (port 0 picks an ephemeral port), starts serving
// handler in the background, and writes the discovery record with the
// actually-bound port — the listener is created explicitly, before
// Serve, precisely so the bound port is knowable for that write (spec
// §4.I).
func (s *Supervisor) Start(host string, port int, handler http.Handler) (addr string, err error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return "", fmt.Errorf("listen on %s:%d: %w", host, port, err)
	}
	s.listener = listener

	boundPort := listener.Addr().(*net.TCPAddr).Port
	if s.discoveryDir != "" {
		path, err := writeDiscoveryRecord(s.discoveryDir, newDiscoveryRecord(host, boundPort))
		if err != nil {
			s.Logger.Warn("failed to write discovery record", "error", err)
		} else {
			s.discoveryPath = path
		}
	}

	s.httpServer = &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("http server error", "error", err)
		}
	}()

	s.Logger.Info("gateway listening", "host", host, "port", boundPort)
	return listener.Addr().String(), nil
}

// Shutdown drains in-flight requests within the deadline carried by ctx,
// then removes the discovery record.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	if s.discoveryPath != "" {
		if rmErr := removeDiscoveryRecord(s.discoveryPath); rmErr != nil {
			s.Logger.Warn("failed to remove discovery record", "error", rmErr)
		}
	}
	if err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
