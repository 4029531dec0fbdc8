// Package httpapi exposes the engine over HTTP: health, readiness, and
// metrics endpoints plus the frame, legend, filter, zoom, and selection
// routes consumed by the rendering and detail-panel collaborators.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/incident-map-engine/internal/domain"
	"github.com/couchcryptid/incident-map-engine/internal/engine"
)

// FrameSource provides the composed frame, legend, and selection resolution.
type FrameSource interface {
	CurrentFrame() (engine.Frame, bool)
	Legend() []domain.LegendEntry
	Select(p domain.Geo, toleranceKm float64) engine.SelectionResult
}

// FilterSink receives filter and viewport updates from the UI.
type FilterSink interface {
	SetFilter(criteria domain.FilterCriteria)
	SetZoom(zoom float64)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the engine's HTTP surface.
type Server struct {
	httpServer  *http.Server
	frames      FrameSource
	filters     FilterSink
	toleranceKm float64
	logger      *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, frames FrameSource, filters FilterSink, ready ReadinessChecker, toleranceKm float64, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		frames:      frames,
		filters:     filters,
		toleranceKm: toleranceKm,
		logger:      logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/frame", s.handleFrame)
	mux.HandleFunc("GET /api/legend", s.handleLegend)
	mux.HandleFunc("PUT /api/filter", s.handleFilter)
	mux.HandleFunc("PUT /api/zoom", s.handleZoom)
	mux.HandleFunc("GET /api/select", s.handleSelect)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, _ *http.Request) {
	frame, ok := s.frames.CurrentFrame()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no frame computed yet"})
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func (s *Server) handleLegend(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.frames.Legend())
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var criteria domain.FilterCriteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filter criteria: " + err.Error()})
		return
	}
	s.filters.SetFilter(criteria)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Zoom float64 `json:"zoom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid zoom: " + err.Error()})
		return
	}
	s.filters.SetZoom(body.Zoom)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lon query parameters are required"})
		return
	}
	result := s.frames.Select(domain.Geo{Lat: lat, Lon: lon}, s.toleranceKm)
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
