package models

import (
	"fmt"

	"github.com/paulmach/orb"
)

// BoundingBox is the canonical extent of a drawn rectangle, in degrees.
type BoundingBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Valid reports whether the box is ordered and inside WGS84 bounds.
func (b BoundingBox) Valid() bool {
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat &&
		b.MinLon >= -180 && b.MaxLon <= 180 &&
		b.MinLat >= -90 && b.MaxLat <= 90
}

// Coordinates returns the box as [minLon, minLat, maxLon, maxLat].
func (b BoundingBox) Coordinates() []float64 {
	return []float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

// Overlay is a tile layer drawn over the base map.
type Overlay struct {
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	MapID       string   `json:"map_id"`
	Opacity     float64  `json:"opacity"`
	Attribution string   `json:"attribution"`
	Overlay     bool     `json:"overlay"`
	Palette     []string `json:"palette"`
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
}

// DrawOptions lists the drawing tools enabled on the map.
type DrawOptions struct {
	Polyline     bool `json:"polyline"`
	Polygon      bool `json:"polygon"`
	Circle       bool `json:"circle"`
	Rectangle    bool `json:"rectangle"`
	Marker       bool `json:"marker"`
	CircleMarker bool `json:"circlemarker"`
}

// MapState is everything the browser needs to re-render the map.
type MapState struct {
	Center       [2]float64  `json:"center"` // lat, lon
	Zoom         int         `json:"zoom"`
	Draw         DrawOptions `json:"draw"`
	Overlays     []Overlay   `json:"overlays"`
	LayerControl bool        `json:"layer_control"`
}

// Clone returns a copy that can be decorated without touching the receiver.
func (m MapState) Clone() MapState {
	out := m
	out.Overlays = make([]Overlay, len(m.Overlays))
	for i, o := range m.Overlays {
		o.Palette = append([]string(nil), o.Palette...)
		out.Overlays[i] = o
	}
	return out
}

// TurbidityResponse wraps the map state returned by an analysis run.
type TurbidityResponse struct {
	RunID       string       `json:"run_id,omitempty"`
	Map         MapState     `json:"map"`
	Drawn       bool         `json:"drawn"`
	Drawing     orb.Ring     `json:"drawing,omitempty"`
	BoundingBox *BoundingBox `json:"bbox,omitempty"`
	Scenes      int          `json:"scenes"`
	Empty       bool         `json:"empty"` // catalog had no scenes for the drawing
}
