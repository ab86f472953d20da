// Command genmock writes deterministic mock observation and population CSV
// files for local development. The files use the same layout as the real
// inputs, so the service and cmd/validate can run against them unchanged.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  --out-dir data/mock \
//	  --start 2020-01-21 --days 120 --counties 4 --seed 42
package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/us-heatmaps/internal/domain"
	"github.com/spf13/pflag"
)

// Rows that never reach the state table, so the mock exercises the drop paths.
var extraGeographies = []struct {
	state, county, fips string
}{
	{state: "New York", county: "New York City", fips: ""},
	{state: "Puerto Rico", county: "San Juan", fips: "72127"},
	{state: "District of Columbia", county: "District of Columbia", fips: "11001"},
}

type county struct {
	state string
	name  string
	fips  string
}

type options struct {
	outDir   string
	start    time.Time
	days     int
	counties int
	seed     uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := pflag.String("out-dir", "data/mock", "directory to write covid19.csv and us_pop_by_state.csv")
	start := pflag.String("start", "2020-01-21", "first observation date (YYYY-MM-DD)")
	days := pflag.Int("days", 120, "number of consecutive days to generate")
	counties := pflag.Int("counties", 3, "counties generated per state")
	seed := pflag.Uint64("seed", 42, "random seed")
	pflag.Parse()

	startDate, err := domain.ParseDate(*start)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	if *days <= 0 || *counties <= 0 {
		pflag.Usage()
		return fmt.Errorf("--days and --counties must be positive")
	}

	opts := options{outDir: *outDir, start: startDate, days: *days, counties: *counties, seed: *seed}
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return err
	}

	geo := buildCounties(opts.counties)

	obsPath := filepath.Join(opts.outDir, "covid19.csv")
	n, err := writeObservations(obsPath, geo, opts, rng)
	if err != nil {
		return fmt.Errorf("writing observations: %w", err)
	}
	log.Printf("wrote %s: %d rows (%d counties x %d days)", obsPath, n, len(geo), opts.days)

	popPath := filepath.Join(opts.outDir, "us_pop_by_state.csv")
	m, err := writePopulation(popPath, rng)
	if err != nil {
		return fmt.Errorf("writing population: %w", err)
	}
	log.Printf("wrote %s: %d rows", popPath, m)

	return nil
}

// buildCounties assigns each of the 50 states a synthetic two-digit state
// code and perCounty county codes under it, in alphabetical state order.
func buildCounties(perState int) []county {
	names := sortedStateNames()
	out := make([]county, 0, len(names)*perState+len(extraGeographies))
	for i, name := range names {
		stateCode := (i + 1) * 2
		for j := range perState {
			out = append(out, county{
				state: name,
				name:  fmt.Sprintf("%s County %d", name, j+1),
				fips:  strconv.Itoa(stateCode*1000 + 2*j + 1),
			})
		}
	}
	for _, g := range extraGeographies {
		out = append(out, county{state: g.state, name: g.county, fips: g.fips})
	}
	return out
}

func sortedStateNames() []string {
	names := make([]string, 0, 50)
	for name := range domain.StateNames() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// writeObservations emits cumulative, non-decreasing cases and deaths per
// county. Counties start reporting on a random day within the first week.
func writeObservations(path string, geo []county, opts options, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "county", "state", "fips", "cases", "deaths"}); err != nil {
		return 0, err
	}

	type running struct {
		firstDay int
		cases    int64
		deaths   int64
		growth   float64
	}
	state := make([]running, len(geo))
	for i := range state {
		state[i] = running{
			firstDay: rng.IntN(7),
			cases:    int64(1 + rng.IntN(5)),
			growth:   1.01 + rng.Float64()*0.06,
		}
	}

	rows := 0
	for d := range opts.days {
		date := domain.ToISODateString(opts.start.AddDate(0, 0, d))
		for i, c := range geo {
			s := &state[i]
			if d < s.firstDay {
				continue
			}
			if d > s.firstDay {
				s.cases = int64(float64(s.cases)*s.growth) + int64(rng.IntN(3))
				s.deaths += int64(float64(s.cases) * 0.0005 * rng.Float64() * 4)
			}
			record := []string{date, c.name, c.state, c.fips,
				strconv.FormatInt(s.cases, 10), strconv.FormatInt(s.deaths, 10)}
			if err := w.Write(record); err != nil {
				return rows, err
			}
			rows++
		}
	}

	w.Flush()
	return rows, w.Error()
}

func writePopulation(path string, rng *rand.Rand) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"rank", "state", "state_code", "2020_census", "percent_of_total"}); err != nil {
		return 0, err
	}

	type entry struct {
		name, code string
		census     int64
	}
	lookup := domain.StateNames()
	entries := make([]entry, 0, len(lookup))
	var total int64
	for _, name := range sortedStateNames() {
		census := int64(500_000 + rng.IntN(39_000_000))
		entries = append(entries, entry{name: name, code: lookup[name], census: census})
		total += census
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.census > b.census:
			return -1
		case a.census < b.census:
			return 1
		}
		return 0
	})

	for i, e := range entries {
		record := []string{
			strconv.Itoa(i + 1),
			e.name,
			e.code,
			strconv.FormatInt(e.census, 10),
			strconv.FormatFloat(float64(e.census)/float64(total), 'f', 4, 64),
		}
		if err := w.Write(record); err != nil {
			return i, err
		}
	}

	w.Flush()
	return len(entries), w.Error()
}
