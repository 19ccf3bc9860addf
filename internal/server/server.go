// Package server exposes the client's admin and webhook endpoints over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

// Controller defines what the endpoints need from the client.
type Controller interface {
	Refresh(ctx context.Context) error
	SetOffline()
	SetOnline()
	IsOffline() bool
	Snapshot() *domain.ProjectConfig
	CacheState() domain.CacheState
}

// Config holds server configuration
type Config struct {
	// Addr is the listen address, e.g. ":8090". Port 0 picks a free port.
	Addr string

	// WebhookSecret enables HMAC-SHA256 verification of webhook bodies.
	WebhookSecret string

	ReadHeaderTimeout time.Duration
}

// Server serves the admin and webhook routes.
type Server struct {
	// Router is exposed for tests and for mounting into other muxes.
	Router *chi.Mux

	ctrl   Controller
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
}

// New creates a server with its routes configured.
func New(ctrl Controller, cfg Config, logger *slog.Logger) *Server {
	if cfg.ReadHeaderTimeout == 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	s := &Server{
		Router: chi.NewRouter(),
		ctrl:   ctrl,
		cfg:    cfg,
		logger: logging.OrDefault(logger),
	}
	s.configureRoutes()
	return s
}

func (s *Server) configureRoutes() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.RealIP)
	s.Router.Use(RequestLogger(s.logger))
	s.Router.Use(middleware.Recoverer)

	s.Router.Get("/health", s.handleHealth)

	s.Router.Route("/admin", func(r chi.Router) {
		r.Get("/config", s.handleConfig)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/offline", s.handleOffline)
		r.Post("/online", s.handleOnline)
	})

	s.Router.Post("/webhook", s.handleWebhook)
}

// Start listens on cfg.Addr and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv != nil {
		return fmt.Errorf("server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}

	s.listener = ln
	s.httpSrv = &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server stopped", "error", err)
		}
	}(s.httpSrv)

	s.logger.Info("admin server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
