package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server wraps the Engine in an HTTP server with graceful shutdown.
type Server struct {
	engine     *Engine
	httpServer *http.Server
	log        *slog.Logger
}

// ServerOptions configures the listener.
type ServerOptions struct {
	Host string
	Port int

	// ReadTimeout and WriteTimeout default to 30s each.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer builds a Server around an Engine.
func NewServer(e *Engine, opts ServerOptions) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}

	return &Server{
		engine: e,
		log:    e.log,
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(opts.Host, fmt.Sprintf("%d", opts.Port)),
			Handler:      e,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start listens and serves until Shutdown is called. It returns nil on
// graceful shutdown.
func (s *Server) Start() error {
	s.log.Info("mock server listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for in-flight requests up
// to the context deadline, then closes the entity store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.engine.Close(); err == nil {
		err = closeErr
	}
	return err
}
