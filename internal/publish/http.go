package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/logger"
	"github.com/rileyhilliard/edgewatch/internal/poller"
)

// SnapshotSource hands out the most recent snapshot. The poll coordinator
// satisfies this.
type SnapshotSource interface {
	Last() *poller.DeviceSnapshot
}

// Server exposes the latest snapshot over HTTP for scrapers and dashboards.
// It serves whatever the coordinator last produced; it never triggers a poll.
type Server struct {
	source SnapshotSource
	log    logger.Logger
	srv    *http.Server
}

// NewServer builds the HTTP server on the configured listen address.
func NewServer(cfg config.HTTPConfig, source SnapshotSource, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	s := &Server{source: source, log: log}
	s.srv = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/healthz", s.handleHealthz)
	return r
}

// handleSnapshot returns the latest snapshot as JSON. 503 until the first
// poll completes, so load balancers don't route to a cold instance.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Last()
	if snap == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.log.Warn("failed to write snapshot response: %v", err)
	}
}

// handleHealthz reports process liveness plus device reachability: 200 while
// the device is reachable (or not yet polled), 503 once it's marked
// unavailable.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Last()
	status := http.StatusOK
	body := map[string]interface{}{"status": "ok"}
	if snap != nil && !snap.Available {
		status = http.StatusServiceUnavailable
		body["status"] = "device unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
// http.ErrServerClosed is filtered: a clean shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.log.Info("http endpoint listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the route tree for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
