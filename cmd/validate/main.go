// Command validate loads the observation and population CSV files, runs the
// aggregation and checks the derived tables and figures for integrity:
// unique keys, order-independent sums, date-then-geography ordering, ISO
// date strings and the first animation frame.
//
// Usage:
//
//	go run ./cmd/validate \
//	  --covid-csv data/mock/covid19.csv \
//	  --population-csv data/mock/us_pop_by_state.csv \
//	  --min-year 2020 --max-year 2022
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/us-heatmaps/internal/adapter/csvfile"
	"github.com/couchcryptid/us-heatmaps/internal/config"
	"github.com/couchcryptid/us-heatmaps/internal/domain"
	"github.com/couchcryptid/us-heatmaps/internal/figure"
	"github.com/couchcryptid/us-heatmaps/internal/observability"
	"github.com/couchcryptid/us-heatmaps/internal/pipeline"
	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxReported caps the detail lines printed per phase.
const maxReported = 20

// keepingSource holds on to the decoded observations so the sums can be
// recomputed from the raw rows without reading the file a second time.
type keepingSource struct {
	*csvfile.Source
	observations []domain.Observation
}

func (k *keepingSource) Observations(ctx context.Context) ([]domain.Observation, domain.ReadStats, error) {
	obs, stats, err := k.Source.Observations(ctx)
	k.observations = obs
	return obs, stats, err
}

func main() {
	covidCSV := pflag.String("covid-csv", "covid19.csv", "path to the observation CSV")
	populationCSV := pflag.String("population-csv", "us_pop_by_state.csv", "path to the population CSV")
	minYear := pflag.Int("min-year", 2020, "first year kept (inclusive)")
	maxYear := pflag.Int("max-year", 2022, "last year kept (inclusive)")
	verbose := pflag.BoolP("verbose", "v", false, "log rejected rows")
	pflag.Parse()

	if *minYear > *maxYear {
		pflag.Usage()
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))

	os.Exit(run(*covidCSV, *populationCSV, *minYear, *maxYear, logger))
}

func run(covidPath, populationPath string, minYear, maxYear int, logger *slog.Logger) int {
	ctx := context.Background()

	fmt.Println("=== Heatmap Data Integrity Validation ===")
	fmt.Println()

	source := &keepingSource{Source: csvfile.NewSource(csvfile.Paths{Observations: covidPath, Population: populationPath}, logger)}

	agg := pipeline.NewAggregator(minYear, maxYear, logger, observability.NewMetricsForTesting())
	ds, err := pipeline.LoadDatasets(ctx, source, agg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load datasets: %v\n", err)
		return 1
	}

	inRange := domain.FilterYearRange(source.observations, minYear, maxYear)
	catalog := figure.NewCatalog(ds, figure.Options{
		StateCasesClip:  config.DefaultStateCasesClip,
		CountyCasesClip: config.DefaultCountyCasesClip,
	})

	// ── Run validation phases ──
	phases := []*phase{
		validateUniqueKeys(ds),
		validateSums(ds, inRange),
		validateOrdering(ds),
		validateCountyCodes(ds),
		validateFigures(ds, catalog),
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	r := ds.Report()
	fmt.Println()
	fmt.Printf("Observations: %d read, %d rejected, %d out of range, %d unknown state, %d unknown county\n",
		r.ObservationsRead, r.ObservationsRejected, r.OutOfRange, r.UnknownState, r.UnknownCounty)
	fmt.Printf("Population: %d read, %d rejected\n", r.PopulationRead, r.PopulationRejected)
	fmt.Printf("Tables: %d state rows, %d county rows, %d population rows\n",
		len(ds.StateDaily()), len(ds.CountyDaily()), len(ds.Population()))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors[:min(len(p.errors), maxReported)] {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
		if len(p.errors) > maxReported {
			fmt.Printf("  ... %d more\n", len(p.errors)-maxReported)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Unique keys ──

func validateUniqueKeys(ds *pipeline.Datasets) *phase {
	p := &phase{name: "Phase 1: Unique keys"}

	seenState := map[domain.GroupKey]bool{}
	for _, r := range ds.StateDaily() {
		k := domain.GroupKey{Date: r.Date, Geo: r.StateAbbrev}
		if seenState[k] {
			p.errorf("state row %s %s appears more than once", r.StateAbbrev, r.DateStr)
		}
		seenState[k] = true
	}

	seenCounty := map[domain.GroupKey]bool{}
	for _, r := range ds.CountyDaily() {
		k := domain.GroupKey{Date: r.Date, Geo: r.CountyCode}
		if seenCounty[k] {
			p.errorf("county row %s %s appears more than once", r.CountyCode, r.DateStr)
		}
		seenCounty[k] = true
	}
	return p
}

// ── Phase 2: Sums ──
// Recomputes every total with a plain map and compares.

type totals struct{ cases, deaths int64 }

func validateSums(ds *pipeline.Datasets, obs []domain.Observation) *phase {
	p := &phase{name: "Phase 2: Sums match observations"}

	wantState := map[domain.GroupKey]totals{}
	wantCounty := map[domain.GroupKey]totals{}
	for _, o := range obs {
		if abbrev, ok := domain.MapStateToAbbrev(o.StateName); ok {
			k := domain.GroupKey{Date: o.Date, Geo: abbrev}
			t := wantState[k]
			wantState[k] = totals{t.cases + o.Cases, t.deaths + o.Deaths}
		}
		if code := domain.NormalizeCountyCode(o.CountyCode); code != domain.UnknownCountyCode {
			k := domain.GroupKey{Date: o.Date, Geo: code}
			t := wantCounty[k]
			wantCounty[k] = totals{t.cases + o.Cases, t.deaths + o.Deaths}
		}
	}

	if len(wantState) != len(ds.StateDaily()) {
		p.errorf("state rows: expected %d, got %d", len(wantState), len(ds.StateDaily()))
	}
	for _, r := range ds.StateDaily() {
		want := wantState[domain.GroupKey{Date: r.Date, Geo: r.StateAbbrev}]
		if want.cases != r.TotalCases || want.deaths != r.TotalDeaths {
			p.errorf("state %s %s: expected %d/%d, got %d/%d",
				r.StateAbbrev, r.DateStr, want.cases, want.deaths, r.TotalCases, r.TotalDeaths)
		}
	}

	if len(wantCounty) != len(ds.CountyDaily()) {
		p.errorf("county rows: expected %d, got %d", len(wantCounty), len(ds.CountyDaily()))
	}
	for _, r := range ds.CountyDaily() {
		want := wantCounty[domain.GroupKey{Date: r.Date, Geo: r.CountyCode}]
		if want.cases != r.TotalCases || want.deaths != r.TotalDeaths {
			p.errorf("county %s %s: expected %d/%d, got %d/%d",
				r.CountyCode, r.DateStr, want.cases, want.deaths, r.TotalCases, r.TotalDeaths)
		}
	}
	return p
}

// ── Phase 3: Ordering ──

func validateOrdering(ds *pipeline.Datasets) *phase {
	p := &phase{name: "Phase 3: Date then geography ordering"}

	state := ds.StateDaily()
	for i := range state {
		if state[i].DateStr != domain.ToISODateString(state[i].Date) {
			p.errorf("state row %d: date_str %q does not match date", i, state[i].DateStr)
		}
		if i == 0 {
			continue
		}
		prev := domain.GroupKey{Date: state[i-1].Date, Geo: state[i-1].StateAbbrev}
		cur := domain.GroupKey{Date: state[i].Date, Geo: state[i].StateAbbrev}
		if prev.Compare(cur) >= 0 {
			p.errorf("state rows %d and %d out of order", i-1, i)
		}
		if state[i-1].DateStr > state[i].DateStr {
			p.errorf("state rows %d and %d: date strings not monotonic", i-1, i)
		}
	}

	county := ds.CountyDaily()
	for i := range county {
		if county[i].DateStr != domain.ToISODateString(county[i].Date) {
			p.errorf("county row %d: date_str %q does not match date", i, county[i].DateStr)
		}
		if i == 0 {
			continue
		}
		prev := domain.GroupKey{Date: county[i-1].Date, Geo: county[i-1].CountyCode}
		cur := domain.GroupKey{Date: county[i].Date, Geo: county[i].CountyCode}
		if prev.Compare(cur) >= 0 {
			p.errorf("county rows %d and %d out of order", i-1, i)
		}
		if county[i-1].DateStr > county[i].DateStr {
			p.errorf("county rows %d and %d: date strings not monotonic", i-1, i)
		}
	}
	return p
}

// ── Phase 4: County codes ──

func validateCountyCodes(ds *pipeline.Datasets) *phase {
	p := &phase{name: "Phase 4: County code normalization"}
	for _, r := range ds.CountyDaily() {
		if len(r.CountyCode) != 5 {
			p.errorf("county code %q is not 5 characters", r.CountyCode)
		}
		if domain.NormalizeCountyCode(r.CountyCode) != r.CountyCode {
			p.errorf("county code %q is not idempotent under normalization", r.CountyCode)
		}
		if r.CountyCode == domain.UnknownCountyCode {
			p.errorf("unknown county code present on %s", r.DateStr)
		}
	}
	return p
}

// ── Phase 5: Figures ──

func validateFigures(ds *pipeline.Datasets, catalog *figure.Catalog) *phase {
	p := &phase{name: "Phase 5: Figure frames"}

	checks := []struct {
		mode  figure.Mode
		first string
		dates int
	}{
		{figure.ModeCovidState, firstStateDate(ds), distinctStateDates(ds)},
		{figure.ModeCovidCounty, firstCountyDate(ds), distinctCountyDates(ds)},
	}
	for _, c := range checks {
		f, err := catalog.Select(c.mode)
		if err != nil {
			p.errorf("%s: %v", c.mode, err)
			continue
		}
		if f.InitialFrame != c.first {
			p.errorf("%s: initial frame %q, expected earliest date %q", c.mode, f.InitialFrame, c.first)
		}
		if len(f.Frames) != c.dates {
			p.errorf("%s: %d frames, expected %d distinct dates", c.mode, len(f.Frames), c.dates)
		}
	}

	pop, err := catalog.Select(figure.ModePopulation)
	if err != nil {
		p.errorf("%s: %v", figure.ModePopulation, err)
	} else if len(ds.Population()) > 0 && (len(pop.Frames) != 1 || len(pop.Frames[0].Points) != len(ds.Population())) {
		p.errorf("population figure does not carry one point per population row")
	}
	return p
}

func firstStateDate(ds *pipeline.Datasets) string {
	if rows := ds.StateDaily(); len(rows) > 0 {
		return rows[0].DateStr
	}
	return ""
}

func firstCountyDate(ds *pipeline.Datasets) string {
	if rows := ds.CountyDaily(); len(rows) > 0 {
		return rows[0].DateStr
	}
	return ""
}

func distinctStateDates(ds *pipeline.Datasets) int {
	seen := map[string]bool{}
	for _, r := range ds.StateDaily() {
		seen[r.DateStr] = true
	}
	return len(seen)
}

func distinctCountyDates(ds *pipeline.Datasets) int {
	seen := map[string]bool{}
	for _, r := range ds.CountyDaily() {
		seen[r.DateStr] = true
	}
	return len(seen)
}
