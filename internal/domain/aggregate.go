package domain

import (
	"slices"
	"strings"
	"time"
)

// GroupKey identifies one aggregation bucket: a date and a geography key
// (state postal code or county code).
type GroupKey struct {
	Date time.Time
	Geo  string
}

// Compare orders keys by date, then geography.
func (k GroupKey) Compare(other GroupKey) int {
	if c := k.Date.Compare(other.Date); c != 0 {
		return c
	}
	return strings.Compare(k.Geo, other.Geo)
}

// Group is the summed cases and deaths of every observation sharing a key.
type Group struct {
	Key    GroupKey
	Cases  int64
	Deaths int64
}

// KeyFunc derives the geography key of an observation. Returning false
// leaves the observation out of the aggregation.
type KeyFunc func(Observation) (string, bool)

type keyedObservation struct {
	key GroupKey
	obs Observation
}

// AggregateByKey sums cases and deaths per (date, key) bucket.
//
// Observations are first stable-sorted by (date, key) and then summed over
// each run of equal keys, so the returned groups are unique and come out in
// date order, then geography order. Sums do not depend on input order.
func AggregateByKey(rows []Observation, keyFn KeyFunc) []Group {
	keyed := make([]keyedObservation, 0, len(rows))
	for _, r := range rows {
		geo, ok := keyFn(r)
		if !ok {
			continue
		}
		keyed = append(keyed, keyedObservation{key: GroupKey{Date: r.Date, Geo: geo}, obs: r})
	}

	slices.SortStableFunc(keyed, func(a, b keyedObservation) int {
		return a.key.Compare(b.key)
	})

	groups := make([]Group, 0, len(keyed))
	for _, k := range keyed {
		if n := len(groups); n > 0 && groups[n-1].Key.Compare(k.key) == 0 {
			groups[n-1].Cases += k.obs.Cases
			groups[n-1].Deaths += k.obs.Deaths
			continue
		}
		groups = append(groups, Group{Key: k.key, Cases: k.obs.Cases, Deaths: k.obs.Deaths})
	}
	return groups
}

// StateKey keys an observation by state postal code.
func StateKey(o Observation) (string, bool) {
	return MapStateToAbbrev(o.StateName)
}

// CountyKey keys an observation by normalized county code. Unknown codes
// have no boundary geometry and are left out.
func CountyKey(o Observation) (string, bool) {
	code := NormalizeCountyCode(o.CountyCode)
	return code, code != UnknownCountyCode
}

// BuildStateDaily sums observations per (state, date). Observations whose
// state is not one of the 50 states are dropped; the count is returned.
func BuildStateDaily(rows []Observation) ([]StateDaily, int) {
	dropped := 0
	groups := AggregateByKey(rows, func(o Observation) (string, bool) {
		code, ok := StateKey(o)
		if !ok {
			dropped++
		}
		return code, ok
	})

	out := make([]StateDaily, len(groups))
	for i, g := range groups {
		out[i] = StateDaily{
			StateAbbrev: g.Key.Geo,
			Date:        g.Key.Date,
			DateStr:     ToISODateString(g.Key.Date),
			TotalCases:  g.Cases,
			TotalDeaths: g.Deaths,
		}
	}
	return out, dropped
}

// BuildCountyDaily sums observations per (date, county). Observations
// without a usable county code are dropped; the count is returned.
func BuildCountyDaily(rows []Observation) ([]CountyDaily, int) {
	dropped := 0
	groups := AggregateByKey(rows, func(o Observation) (string, bool) {
		code, ok := CountyKey(o)
		if !ok {
			dropped++
		}
		return code, ok
	})

	out := make([]CountyDaily, len(groups))
	for i, g := range groups {
		out[i] = CountyDaily{
			CountyCode:  g.Key.Geo,
			Date:        g.Key.Date,
			DateStr:     ToISODateString(g.Key.Date),
			TotalCases:  g.Cases,
			TotalDeaths: g.Deaths,
		}
	}
	return out, dropped
}
