package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/us-heatmaps/internal/adapter/http"
	"github.com/couchcryptid/us-heatmaps/internal/domain"
	"github.com/couchcryptid/us-heatmaps/internal/figure"
	"github.com/couchcryptid/us-heatmaps/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockTables struct{}

func (mockTables) StateDaily() []domain.StateDaily {
	return []domain.StateDaily{
		{StateAbbrev: "WA", Date: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), DateStr: "2020-03-01", TotalCases: 30, TotalDeaths: 3},
	}
}

func (mockTables) CountyDaily() []domain.CountyDaily {
	return []domain.CountyDaily{
		{CountyCode: "53033", Date: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), DateStr: "2020-03-01", TotalCases: 20, TotalDeaths: 2},
		{CountyCode: "53061", Date: time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), DateStr: "2020-03-01", TotalCases: 10, TotalDeaths: 1},
	}
}

func (mockTables) Population() []domain.PopulationRecord {
	return []domain.PopulationRecord{{StateCode: "WA", Census2020: 7705281}}
}

type emptyTables struct{}

func (emptyTables) StateDaily() []domain.StateDaily       { return nil }
func (emptyTables) CountyDaily() []domain.CountyDaily     { return nil }
func (emptyTables) Population() []domain.PopulationRecord { return nil }

type tableSource interface {
	httpadapter.Tables
	figure.Datasets
}

type mockGeometry struct {
	body []byte
	err  error
	url  string
}

func (m *mockGeometry) Fetch(_ context.Context, url string) ([]byte, error) {
	m.url = url
	return m.body, m.err
}

type serverOpts struct {
	readyErr error
	geometry *mockGeometry
	tables   tableSource
}

func newTestServer(t *testing.T, opts serverOpts) (*httpadapter.Server, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	tables := opts.tables
	if tables == nil {
		tables = mockTables{}
	}
	catalog := figure.NewCatalog(tables, figure.Options{
		StateCasesClip:   800000,
		CountyCasesClip:  10000,
		CountyGeoJSONURL: httpadapter.GeometryPath,
	})
	deps := httpadapter.Dependencies{
		Figures:     catalog,
		Tables:      tables,
		Ready:       &mockReadiness{err: opts.readyErr},
		Metrics:     metrics,
		GeometryURL: "https://example.test/counties.json",
	}
	if opts.geometry != nil {
		deps.Geometry = opts.geometry
	}
	return httpadapter.NewServer(":0", deps, slog.New(slog.NewTextHandler(io.Discard, nil))), metrics
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{readyErr: fmt.Errorf("datasets have not been loaded yet")})
	rec := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	rec := get(t, srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDashboardPage(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	rec := get(t, srv, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "US 2020-2022 Heatmaps")
	assert.Contains(t, body, `<option value="covid_state">COVID-19 Cases by State</option>`)
	assert.Contains(t, body, `<option value="covid_county">COVID-19 Cases by County</option>`)
	assert.Contains(t, body, `<option value="population" selected>2020 Population</option>`)
	assert.Contains(t, body, "plotly")
}

func TestListFigures(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	rec := get(t, srv, "/api/figures")
	require.Equal(t, http.StatusOK, rec.Code)

	var modes []struct {
		Mode    string `json:"mode"`
		Label   string `json:"label"`
		Default bool   `json:"default"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &modes))
	require.Len(t, modes, 3)
	assert.Equal(t, "covid_state", modes[0].Mode)
	assert.Equal(t, "population", modes[2].Mode)
	assert.True(t, modes[2].Default)
}

func TestFigureByMode(t *testing.T) {
	srv, metrics := newTestServer(t, serverOpts{})
	rec := get(t, srv, "/api/figures/covid_county")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var fig figure.Figure
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fig))
	assert.Equal(t, figure.ModeCovidCounty, fig.Mode)
	assert.Equal(t, httpadapter.GeometryPath, fig.GeoJSONURL)
	assert.Equal(t, "2020-03-01", fig.InitialFrame)
	require.Len(t, fig.Frames, 1)
	assert.Len(t, fig.Frames[0].Points, 2)
	assert.Equal(t, int64(20), fig.ZMax)

	var flags struct {
		NoData bool `json:"no_data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flags))
	assert.False(t, flags.NoData)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FigureRequests.WithLabelValues("covid_county", "ok")), 0)
}

func TestFigureEmptyTablesFlagsNoData(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{tables: emptyTables{}})

	for _, mode := range figure.Modes() {
		rec := get(t, srv, "/api/figures/"+string(mode))
		require.Equal(t, http.StatusOK, rec.Code, mode)

		var body struct {
			NoData bool           `json:"no_data"`
			Frames []figure.Frame `json:"frames"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.NoData, mode)
		assert.Empty(t, body.Frames, mode)
	}
}

func TestFigureUnknownModeReturns404(t *testing.T) {
	srv, metrics := newTestServer(t, serverOpts{})
	rec := get(t, srv, "/api/figures/covid_city")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "unknown figure mode")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FigureRequests.WithLabelValues("unknown", "unknown")), 0)
}

func TestTables(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	rec := get(t, srv, "/api/tables/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var state []domain.StateDaily
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, mockTables{}.StateDaily(), state)

	rec = get(t, srv, "/api/tables/county")
	require.Equal(t, http.StatusOK, rec.Code)
	var county []domain.CountyDaily
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &county))
	assert.Len(t, county, 2)
	assert.Equal(t, "53033", county[0].CountyCode)
}

func TestGeometryProxy(t *testing.T) {
	geo := &mockGeometry{body: []byte(`{"type":"FeatureCollection","features":[]}`)}
	srv, _ := newTestServer(t, serverOpts{geometry: geo})

	rec := get(t, srv, httpadapter.GeometryPath)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, rec.Body.String())
	assert.Equal(t, "https://example.test/counties.json", geo.url)
	assert.NotEmpty(t, rec.Header().Get("Cache-Control"))
}

func TestGeometryProxyFailureReturns502(t *testing.T) {
	geo := &mockGeometry{err: errors.New("upstream down")}
	srv, _ := newTestServer(t, serverOpts{geometry: geo})

	rec := get(t, srv, httpadapter.GeometryPath)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGeometryProxyDisabled(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	rec := get(t, srv, httpadapter.GeometryPath)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
