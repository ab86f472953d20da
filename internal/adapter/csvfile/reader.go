// Package csvfile reads the observation and population CSV files.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/us-heatmaps/internal/domain"
)

// ErrMissingColumn is returned when a header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// ctxCheckInterval is how many rows are decoded between context checks.
const ctxCheckInterval = 4096

var (
	observationColumns = []string{"date", "state", "fips", "cases", "deaths"}
	populationColumns  = []string{"state_code", "2020_census"}
)

// Paths locates the two source files.
type Paths struct {
	Observations string
	Population   string
}

// Source reads both datasets from local files.
// It implements pipeline.Source.
type Source struct {
	paths  Paths
	logger *slog.Logger
}

// NewSource creates a file-backed Source.
func NewSource(paths Paths, logger *slog.Logger) *Source {
	return &Source{paths: paths, logger: logger}
}

// Observations reads and decodes the observation file.
func (s *Source) Observations(ctx context.Context) ([]domain.Observation, domain.ReadStats, error) {
	f, err := os.Open(s.paths.Observations)
	if err != nil {
		return nil, domain.ReadStats{}, fmt.Errorf("open observations: %w", err)
	}
	defer f.Close()

	rows, stats, err := DecodeObservations(ctx, f, s.logger)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", s.paths.Observations, err)
	}
	return rows, stats, nil
}

// Population reads and decodes the population file.
func (s *Source) Population(ctx context.Context) ([]domain.PopulationRecord, domain.ReadStats, error) {
	f, err := os.Open(s.paths.Population)
	if err != nil {
		return nil, domain.ReadStats{}, fmt.Errorf("open population: %w", err)
	}
	defer f.Close()

	rows, stats, err := DecodePopulation(ctx, f, s.logger)
	if err != nil {
		return nil, stats, fmt.Errorf("%s: %w", s.paths.Population, err)
	}
	return rows, stats, nil
}

// DecodeObservations decodes observation rows. Rows with an unparseable
// date or a short column count are rejected and counted; they never fail
// the whole read.
func DecodeObservations(ctx context.Context, r io.Reader, logger *slog.Logger) ([]domain.Observation, domain.ReadStats, error) {
	var (
		out   []domain.Observation
		stats domain.ReadStats
	)

	err := decode(ctx, r, observationColumns, func(line int, get func(string) string) bool {
		date, err := domain.ParseDate(get("date"))
		if err != nil {
			logger.Debug("rejecting observation row", "line", line, "error", err)
			return false
		}
		out = append(out, domain.Observation{
			Date:       date,
			StateName:  strings.TrimSpace(get("state")),
			CountyCode: strings.TrimSpace(get("fips")),
			Cases:      domain.ParseCount(get("cases")),
			Deaths:     domain.ParseCount(get("deaths")),
		})
		return true
	}, &stats)
	if err != nil {
		return nil, stats, err
	}

	if stats.Rejected > 0 {
		logger.Warn("observation rows rejected", "rejected", stats.Rejected, "read", stats.Read)
	}
	return out, stats, nil
}

// DecodePopulation decodes population rows. Rows without a two-letter state
// code or an integer census value are rejected and counted.
func DecodePopulation(ctx context.Context, r io.Reader, logger *slog.Logger) ([]domain.PopulationRecord, domain.ReadStats, error) {
	var (
		out   []domain.PopulationRecord
		stats domain.ReadStats
	)

	err := decode(ctx, r, populationColumns, func(line int, get func(string) string) bool {
		code := strings.ToUpper(strings.TrimSpace(get("state_code")))
		census, ok := parseCensus(get("2020_census"))
		if len(code) != 2 || !ok {
			logger.Debug("rejecting population row", "line", line, "state_code", code)
			return false
		}
		out = append(out, domain.PopulationRecord{StateCode: code, Census2020: census})
		return true
	}, &stats)
	if err != nil {
		return nil, stats, err
	}

	if stats.Rejected > 0 {
		logger.Warn("population rows rejected", "rejected", stats.Rejected, "read", stats.Read)
	}
	return out, stats, nil
}

// decode reads the header, resolves required columns by name and hands each
// data row to fn. fn reports whether the row was accepted.
func decode(ctx context.Context, r io.Reader, required []string, fn func(line int, get func(string) string) bool, stats *domain.ReadStats) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	index, err := columnIndex(header, required)
	if err != nil {
		return err
	}

	var record []string
	get := func(name string) string {
		i := index[name]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}
	width := 0
	for _, i := range index {
		width = max(width, i+1)
	}

	for line := 2; ; line++ {
		if line%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		record, err = cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		stats.Read++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.Rejected++
				continue
			}
			return fmt.Errorf("read line %d: %w", line, err)
		}

		if len(record) < width || !fn(line, get) {
			stats.Rejected++
		}
	}
}

// columnIndex maps each required column to its position in the header.
func columnIndex(header, required []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	out := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		out[name] = i
	}
	return out, nil
}

func parseCensus(value string) (int64, bool) {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if value == "" {
		return 0, false
	}
	n := domain.ParseCount(value)
	if n <= 0 {
		return 0, false
	}
	return n, true
}
