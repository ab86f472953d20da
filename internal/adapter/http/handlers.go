package http

import (
	"net/http"

	"github.com/couchcryptid/us-heatmaps/internal/figure"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type errorResponse struct {
	Error string `json:"error"`
}

type modeEntry struct {
	Mode    figure.Mode `json:"mode"`
	Label   string      `json:"label"`
	Default bool        `json:"default"`
}

func (s *Server) handleListFigures(w http.ResponseWriter, r *http.Request) {
	modes := figure.Modes()
	out := make([]modeEntry, len(modes))
	for i, m := range modes {
		out[i] = modeEntry{Mode: m, Label: m.Label(), Default: m == figure.DefaultMode}
	}
	render.JSON(w, r, out)
}

// figureResponse adds the empty-figure flag the page checks before drawing.
type figureResponse struct {
	*figure.Figure
	NoData bool `json:"no_data"`
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "mode")

	mode, err := figure.ParseMode(raw)
	if err != nil {
		s.deps.Metrics.FigureRequests.WithLabelValues("unknown", "unknown").Inc()
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: err.Error()})
		return
	}

	fig, err := s.deps.Figures.Select(mode)
	if err != nil {
		s.logger.Error("select figure failed", "mode", mode, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{Error: "internal error"})
		return
	}

	s.deps.Metrics.FigureRequests.WithLabelValues(string(mode), "ok").Inc()
	render.JSON(w, r, figureResponse{Figure: fig, NoData: fig.NoData()})
}

func (s *Server) handleStateTable(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.deps.Tables.StateDaily())
}

func (s *Server) handleCountyTable(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.deps.Tables.CountyDaily())
}

func (s *Server) handleGeometry(w http.ResponseWriter, r *http.Request) {
	body, err := s.deps.Geometry.Fetch(r.Context(), s.deps.GeometryURL)
	if err != nil {
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, errorResponse{Error: "county geometry unavailable"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck // client may have gone away
}
