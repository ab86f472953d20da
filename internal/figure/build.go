package figure

import (
	"github.com/couchcryptid/us-heatmaps/internal/domain"
)

const (
	scopeUSA = "usa"

	populationFrame = "2020"
	populationMin   = 1_000_000
	populationMax   = 40_000_000
)

// StateFigure builds the animated state map. Color is cases clipped at
// clip; hover shows the unclipped cases and deaths. Rows must be in
// (date, state) order.
func StateFigure(rows []domain.StateDaily, clip int64) *Figure {
	f := &Figure{
		Mode:         ModeCovidState,
		Title:        "COVID-19 Cases by US State (2020-2022)",
		LocationMode: LocationModeStates,
		Scope:        scopeUSA,
		ColorScale:   "Reds",
		Labels: map[string]string{
			"z":        "Total Cases",
			"location": "State",
			"deaths":   "Total Deaths",
			"frame":    "Date",
		},
		Height:   800,
		Animated: true,
		Frames:   []Frame{},
	}

	for _, r := range rows {
		z := min(r.TotalCases, clip)
		f.ZMax = max(f.ZMax, z)
		f.Frames = appendPoint(f.Frames, r.DateStr, Point{
			Location: r.StateAbbrev,
			Z:        z,
			Hover:    map[string]int64{"cases": r.TotalCases, "deaths": r.TotalDeaths},
		})
	}
	f.InitialFrame = initialFrame(f.Frames)
	return f
}

// CountyFigure builds the animated county map against the boundary
// geometry at geoJSONURL. Rows must be in (date, county) order.
func CountyFigure(rows []domain.CountyDaily, clip int64, geoJSONURL string) *Figure {
	f := &Figure{
		Mode:         ModeCovidCounty,
		Title:        "COVID-19 Cases by US County (2020-2022)",
		LocationMode: LocationModeGeoJSON,
		GeoJSONURL:   geoJSONURL,
		Scope:        scopeUSA,
		ColorScale:   "Reds",
		Labels: map[string]string{
			"z":        "Total Cases",
			"location": "County FIPS Code",
			"deaths":   "Total Deaths",
			"frame":    "Date",
		},
		Height:   800,
		Animated: true,
		Frames:   []Frame{},
	}

	for _, r := range rows {
		z := min(r.TotalCases, clip)
		f.ZMax = max(f.ZMax, z)
		f.Frames = appendPoint(f.Frames, r.DateStr, Point{
			Location: r.CountyCode,
			Z:        z,
			Hover:    map[string]int64{"cases": r.TotalCases, "deaths": r.TotalDeaths},
		})
	}
	f.InitialFrame = initialFrame(f.Frames)
	return f
}

// PopulationFigure builds the static 2020 census map.
func PopulationFigure(rows []domain.PopulationRecord) *Figure {
	f := &Figure{
		Mode:         ModePopulation,
		Title:        "Population by State in 2020",
		LocationMode: LocationModeStates,
		Scope:        scopeUSA,
		ColorScale:   "Viridis",
		ColorRange:   &[2]int64{populationMin, populationMax},
		Labels: map[string]string{
			"z":        "Population",
			"location": "State Code",
		},
		Height: 700,
		Frames: []Frame{},
	}

	if len(rows) > 0 {
		points := make([]Point, len(rows))
		for i, r := range rows {
			points[i] = Point{Location: r.StateCode, Z: r.Census2020}
			f.ZMax = max(f.ZMax, r.Census2020)
		}
		f.Frames = []Frame{{Name: populationFrame, Points: points}}
	}
	f.InitialFrame = initialFrame(f.Frames)
	return f
}

// appendPoint adds p to the last frame when it shares name, else opens a
// new frame. Sorted input therefore yields frames in date order.
func appendPoint(frames []Frame, name string, p Point) []Frame {
	if n := len(frames); n > 0 && frames[n-1].Name == name {
		frames[n-1].Points = append(frames[n-1].Points, p)
		return frames
	}
	return append(frames, Frame{Name: name, Points: []Point{p}})
}

func initialFrame(frames []Frame) string {
	if len(frames) == 0 {
		return ""
	}
	return frames[0].Name
}
