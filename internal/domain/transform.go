package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// UnknownCountyCode is the normalized form of a missing or unusable FIPS code.
const UnknownCountyCode = "00000"

// maxCountyCode is the largest value that fits in five digits.
const maxCountyCode = 99999

// ErrMalformedDate is returned by ParseDate for values no layout accepts.
var ErrMalformedDate = errors.New("malformed date")

// dateLayouts are tried in order. The first is the canonical source format;
// the rest cover spreadsheet re-exports of the same file.
var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses a calendar date and returns it as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrMalformedDate)
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, value)
}

// ParseCount parses a cumulative count. Empty, non-numeric, negative or
// out-of-range values read as zero, and float renderings of integers
// ("12.0") are accepted.
func ParseCount(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f >= 1<<63 {
		return 0
	}
	return int64(f)
}

// NormalizeCountyCode zero-pads a FIPS code to five characters.
// Missing values read as 0. Anything that is not a non-negative integer of
// at most five digits becomes [UnknownCountyCode]. The result is always five
// characters long and normalizing it again returns it unchanged.
func NormalizeCountyCode(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return UnknownCountyCode
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > maxCountyCode || v != math.Trunc(v) {
		return UnknownCountyCode
	}
	return fmt.Sprintf("%05d", int64(v))
}

// FilterYearRange keeps observations whose year lies in [minYear, maxYear].
func FilterYearRange(rows []Observation, minYear, maxYear int) []Observation {
	out := make([]Observation, 0, len(rows))
	for _, r := range rows {
		if y := r.Date.Year(); y >= minYear && y <= maxYear {
			out = append(out, r)
		}
	}
	return out
}

// ToISODateString formats a date as "YYYY-MM-DD". For years 0 through 9999
// the string order matches date order.
func ToISODateString(date time.Time) string {
	return date.Format(time.DateOnly)
}
