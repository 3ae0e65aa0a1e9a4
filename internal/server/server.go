package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"tubewatch/internal/config"
	"tubewatch/internal/events"
	"tubewatch/internal/jobs"
	"tubewatch/internal/logging"
	"tubewatch/internal/store"
)

// Server wires the JSON API and the event stream onto one listener.
type Server struct {
	bind   string
	logger *slog.Logger
	store  *store.Store
	orch   *jobs.Orchestrator
	hub    *events.Hub

	listener net.Listener
	server   *http.Server
}

// New builds a server bound to cfg.Paths.APIBind.
func New(cfg *config.Config, st *store.Store, orch *jobs.Orchestrator, hub *events.Hub, logger *slog.Logger) (*Server, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		bind:   bind,
		logger: logging.WithComponent(logger, "api-server"),
		store:  st,
		orch:   orch,
		hub:    hub,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/videos", s.handleVideos)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/summarize", s.handleSummarize)
	mux.HandleFunc("/api/ignore", s.handleIgnore)
	mux.HandleFunc("/api/channels", s.handleChannels)
	mux.HandleFunc("/api/channels/", s.handleChannel)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler exposes the routed handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr reports the bound listener address once Start has run.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Start begins serving and shuts down when ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, giving in-flight requests a grace period.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}
