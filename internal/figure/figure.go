// Package figure builds the choropleth figure descriptions served to the
// dashboard. A Figure is plain JSON consumed by plotly.js in the browser;
// nothing here renders geometry.
package figure

import (
	"errors"
	"fmt"
)

// Mode names one of the dashboard figures.
type Mode string

const (
	ModeCovidState  Mode = "covid_state"
	ModeCovidCounty Mode = "covid_county"
	ModePopulation  Mode = "population"
)

// DefaultMode is the figure shown when the dashboard first opens.
const DefaultMode = ModePopulation

// ErrUnknownMode is returned for a mode outside the three known figures.
var ErrUnknownMode = errors.New("unknown figure mode")

var modeLabels = map[Mode]string{
	ModeCovidState:  "COVID-19 Cases by State",
	ModeCovidCounty: "COVID-19 Cases by County",
	ModePopulation:  "2020 Population",
}

// Modes returns every mode in dropdown order.
func Modes() []Mode {
	return []Mode{ModeCovidState, ModeCovidCounty, ModePopulation}
}

// Label returns the dropdown label for m.
func (m Mode) Label() string {
	return modeLabels[m]
}

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if _, ok := modeLabels[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Location modes understood by the browser charting library.
const (
	LocationModeStates  = "USA-states"
	LocationModeGeoJSON = "geojson-id"
)

// Point is one shaded region in a frame. Z drives the color; Hover carries
// the unclipped values shown on mouse-over.
type Point struct {
	Location string           `json:"location"`
	Z        int64            `json:"z"`
	Hover    map[string]int64 `json:"hover,omitempty"`
}

// Frame is one animation step.
type Frame struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Figure describes one choropleth map. ZMax is the largest Z across all
// frames and tops the color scale when ColorRange is unset.
type Figure struct {
	Mode         Mode              `json:"mode"`
	Title        string            `json:"title"`
	LocationMode string            `json:"location_mode"`
	GeoJSONURL   string            `json:"geojson_url,omitempty"`
	Scope        string            `json:"scope"`
	ColorScale   string            `json:"color_scale"`
	ColorRange   *[2]int64         `json:"color_range,omitempty"`
	ZMax         int64             `json:"zmax"`
	Labels       map[string]string `json:"labels"`
	Height       int               `json:"height"`
	Animated     bool              `json:"animated"`
	Frames       []Frame           `json:"frames"`
	InitialFrame string            `json:"initial_frame"`
}

// NoData reports whether the figure has nothing to draw.
func (f *Figure) NoData() bool {
	for _, fr := range f.Frames {
		if len(fr.Points) > 0 {
			return false
		}
	}
	return true
}
