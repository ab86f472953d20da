package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/us-heatmaps/internal/domain"
	"github.com/couchcryptid/us-heatmaps/internal/figure"
	"github.com/couchcryptid/us-heatmaps/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GeometryPath is where the county boundary geometry is served when the
// proxy is enabled.
const GeometryPath = "/geo/counties.json"

// FigureSelector returns the precomputed figure for a mode.
type FigureSelector interface {
	Select(mode figure.Mode) (*figure.Figure, error)
}

// Tables exposes the derived tables.
type Tables interface {
	StateDaily() []domain.StateDaily
	CountyDaily() []domain.CountyDaily
}

// GeometryFetcher retrieves a boundary geometry document.
type GeometryFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Dependencies are the collaborators the dashboard routes read from.
type Dependencies struct {
	Figures FigureSelector
	Tables  Tables
	Ready   sharedobs.ReadinessChecker
	Metrics *observability.Metrics

	// Geometry and GeometryURL enable GeometryPath. A nil Geometry leaves
	// the route unregistered.
	Geometry    GeometryFetcher
	GeometryURL string
}

// Server exposes the dashboard, its JSON API, and health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Dependencies
	logger     *slog.Logger
}

// NewServer creates the dashboard HTTP server.
func NewServer(addr string, deps Dependencies, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleDashboard)
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/figures", s.handleListFigures)
		r.Get("/figures/{mode}", s.handleFigure)
		r.Get("/tables/state", s.handleStateTable)
		r.Get("/tables/county", s.handleCountyTable)
	})
	if deps.Geometry != nil {
		r.Get(GeometryPath, s.handleGeometry)
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(deps.Ready))
	r.Handle("/metrics", promhttp.Handler())

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
