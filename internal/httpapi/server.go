// Package httpapi exposes a debugging session over JSON routes.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/coral-mesh/cygdb/internal/constants"
	"github.com/coral-mesh/cygdb/internal/logging"
	"github.com/coral-mesh/cygdb/internal/session"
)

// Debugger is the session the routes operate on.
type Debugger interface {
	SetTarget(ctx context.Context, script string) ([]string, error)
	Build(ctx context.Context) ([]string, error)
	AddBreakpoint(file string, line int) (bool, error)
	Breakpoints() []session.Breakpoint
	Run(ctx context.Context) (session.Result, error)
	Continue(ctx context.Context) (session.Result, error)
	Step(ctx context.Context) (session.Result, error)
	GetFrame() (session.Frame, error)
	Restart(ctx context.Context) error
	Status() session.Status
}

// Config contains dependencies for creating a Server.
type Config struct {
	Host    string
	Port    int
	Session Debugger
	Logger  zerolog.Logger
}

// Server serves the debugger routes.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
}

// New creates a server. It does not listen until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("httpapi: session is required")
	}

	logger := logging.WithComponent(cfg.Logger, "httpapi")

	host := cfg.Host
	if host == "" {
		host = constants.DefaultServerHost
	}
	port := cfg.Port
	if port == 0 {
		port = constants.DefaultServerPort
	}

	h := &handlers{session: cfg.Session, logger: logger}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(host, fmt.Sprint(port)),
		Handler:           h2c.NewHandler(NewAuditMiddleware(logger).Handler(h.routes()), &http2.Server{}),
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		IdleTimeout:       constants.DefaultIdleTimeout,
	}

	return &Server{httpServer: httpServer, logger: logger}, nil
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts serving in a background goroutine. Listen errors are
// reported synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Starting HTTP server")

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
