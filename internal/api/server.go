//
//
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/radio-control/rangebot/internal/auth"
)

// Options carries the server's collaborators. Link is required; the rest
// are optional and their routes are omitted when nil.
type Options struct {
	Link           LinkPort
	Ranges         RangePort
	Telemetry      TelemetryPort
	Metrics        http.Handler
	AuthMiddleware *auth.Middleware
	// Target describes the dialed link for the health endpoint.
	Target string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server represents the HTTP API server.
type Server struct {
	mu         sync.Mutex
	httpServer *http.Server
	stopped    bool
	opts       Options
	startTime  time.Time
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	return &Server{
		opts:      opts,
		startTime: time.Now(),
	}
}

// Start listens on addr and serves until the server stops.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called. Callers that need
// bind errors up front listen first and hand the listener over.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ln.Close()
	}
	s.httpServer = srv
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
