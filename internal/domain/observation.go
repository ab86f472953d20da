package domain

import "time"

// Observation is one county-day row from the observation file.
type Observation struct {
	Date       time.Time
	StateName  string
	CountyCode string // raw FIPS as read, may be empty
	Cases      int64
	Deaths     int64
}

// StateDaily holds the summed totals for one state on one date.
type StateDaily struct {
	StateAbbrev string    `json:"state_abbrev"`
	Date        time.Time `json:"date"`
	DateStr     string    `json:"date_str"`
	TotalCases  int64     `json:"total_cases"`
	TotalDeaths int64     `json:"total_deaths"`
}

// CountyDaily holds the summed totals for one county on one date.
type CountyDaily struct {
	CountyCode  string    `json:"county_code"`
	Date        time.Time `json:"date"`
	DateStr     string    `json:"date_str"`
	TotalCases  int64     `json:"total_cases"`
	TotalDeaths int64     `json:"total_deaths"`
}

// PopulationRecord is one row from the population file.
type PopulationRecord struct {
	StateCode  string `json:"state_code"`
	Census2020 int64  `json:"census_2020"`
}

// ReadStats counts rows read from a source file and rows rejected as malformed.
type ReadStats struct {
	Read     int
	Rejected int
}

// LoadReport counts what happened to source rows on their way into the tables.
type LoadReport struct {
	ObservationsRead     int `json:"observations_read"`
	ObservationsRejected int `json:"observations_rejected"`
	OutOfRange           int `json:"out_of_range"`
	UnknownState         int `json:"unknown_state"`
	UnknownCounty        int `json:"unknown_county"`
	PopulationRead       int `json:"population_read"`
	PopulationRejected   int `json:"population_rejected"`
}
