// Package domain models US COVID-19 county observations and the daily
// state and county totals derived from them.
//
// # Data Source
//
// Observations come from a county-level CSV export in the layout of the
// New York Times covid-19-data repository (us-counties.csv). Each row is one
// county on one day:
//
//	date,county,state,fips,cases,deaths
//	2020-01-21,Snohomish,Washington,53061,1,0
//
// Population comes from a per-state CSV keyed by postal code:
//
//	state,state_code,2020_census
//	California,CA,39538223
//
// # Data Conventions
//
// Counts:
//
//	Cases and deaths are cumulative totals as of the row's date, not daily
//	deltas. Empty values (deaths are often blank for territories) are read
//	as zero and never cause a row to be rejected.
//
// County codes:
//
//	FIPS codes are integers in the source and lose their leading zero
//	("1001" is Autauga County, AL). They are normalized to five-character
//	zero-padded strings ("01001") so they match the county boundary
//	geometry ids. Rows without a FIPS code ("New York City", "Unknown"
//	counties) normalize to "00000", which has no geometry and is excluded
//	from the county table.
//
// State names:
//
//	Free text, matched exactly against the 50 states. Territories (Puerto
//	Rico, Guam, ...) and the District of Columbia have no entry and are
//	excluded from the state table. See [MapStateToAbbrev].
//
// Dates:
//
//	Calendar dates in "YYYY-MM-DD" form, held as midnight UTC. Frames in
//	animated figures are keyed by [ToISODateString] so that ordering and
//	equality never depend on time zones or time-of-day components.
//
// # Ordering
//
// Both derived tables are emitted in (date, geography) order. The order is
// fixed by a stable sort before grouping, so the first date in the data is
// always the first animation frame. See [AggregateByKey].
package domain
