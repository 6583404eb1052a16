// Package api serves the building monitor over HTTP: JSON endpoints for the
// building and its rooms, monitoring switches, and a live websocket feed.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/metrics"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/monitoring"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/simulator"
)

// ReadingQuerier reads persisted rows back
type ReadingQuerier interface {
	Latest(ctx context.Context, roomID string, limit int) ([]models.StoredReading, error)
}

// Config holds the server settings
type Config struct {
	CORSOrigins  []string
	LiveInterval time.Duration
	Location     *time.Location
}

// Server wires the HTTP handlers to the simulator
type Server struct {
	building *simulator.Building
	flags    monitoring.Store
	readings ReadingQuerier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	config   Config
	now      func() time.Time
	upgrader websocket.Upgrader
}

// Option configures a Server
type Option func(*Server)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithMetrics instruments every route and exposes /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithReadings enables the persisted readings endpoint
func WithReadings(q ReadingQuerier) Option {
	return func(s *Server) { s.readings = q }
}

// NewServer creates the API server
func NewServer(building *simulator.Building, flags monitoring.Store, cfg Config, logger *slog.Logger, opts ...Option) *Server {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = 5 * time.Second
	}

	s := &Server{
		building: building,
		flags:    flags,
		logger:   logger.With("component", "api"),
		config:   cfg,
		now:      time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// clock returns the current time in the building timezone
func (s *Server) clock() time.Time {
	return s.now().In(s.config.Location)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.config.CORSOrigins, "*") {
		return true
	}
	return slices.Contains(s.config.CORSOrigins, origin)
}

// Handler returns the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	s.handle(r, "/api/building/status", s.handleBuildingStatus, http.MethodGet)
	s.handle(r, "/api/room/{id}/status", s.handleRoomStatus, http.MethodGet)
	s.handle(r, "/api/room/{id}/history", s.handleRoomHistory, http.MethodGet)
	s.handle(r, "/api/room/{id}/schedule", s.handleRoomSchedule, http.MethodGet)
	s.handle(r, "/api/room/{id}/config", s.handleRoomConfig, http.MethodGet)
	s.handle(r, "/api/room/{id}/readings", s.handleRoomReadings, http.MethodGet)
	s.handle(r, "/api/monitoring/toggle", s.handleToggleMonitoring, http.MethodPost)
	s.handle(r, "/api/room/{id}/monitoring/toggle", s.handleToggleRoomMonitoring, http.MethodPost)
	r.HandleFunc("/ws/building", s.handleLive).Methods(http.MethodGet)
	s.handle(r, "/health", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithError(w, s.logger, NewAPIError(ErrorCodeNotFound, "Not found", http.StatusNotFound))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondWithError(w, s.logger, NewAPIError(ErrorCodeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}

func (s *Server) handle(r *mux.Router, path string, h http.HandlerFunc, method string) {
	r.Handle(path, s.metrics.WrapHandler(path, h)).Methods(method)
}
