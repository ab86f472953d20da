package http

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/couchcryptid/us-heatmaps/internal/figure"
)

//go:embed dashboard.html
var dashboardHTML string

var dashboardTemplate = template.Must(template.New("dashboard").Parse(dashboardHTML))

type dashboardOption struct {
	Value    string
	Label    string
	Selected bool
}

type dashboardData struct {
	Title   string
	Heading string
	Options []dashboardOption
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	data := dashboardData{
		Title:   "US Heatmaps",
		Heading: "US 2020-2022 Heatmaps",
	}
	for _, m := range figure.Modes() {
		data.Options = append(data.Options, dashboardOption{
			Value:    string(m),
			Label:    m.Label(),
			Selected: m == figure.DefaultMode,
		})
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render dashboard failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w) //nolint:errcheck // client may have gone away
}
