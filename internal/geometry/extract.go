// Package geometry turns a drawn map annotation into a bounding box.
//
// The drawing surface emits rectangles as closed GeoJSON rings in the order
// [south-west, north-west, north-east, south-east, south-west]. Corner 0 and
// corner 2 are opposite corners; the box is built from them. Rings that do
// not follow this convention are rejected instead of producing a wrong box.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"aquavision/internal/models"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const epsilon = 1e-9

var (
	ErrNoDrawing    = errors.New("geometry: no shape drawn")
	ErrNotPolygon   = errors.New("geometry: drawing is not a polygon")
	ErrTooFewPoints = errors.New("geometry: ring has fewer than 4 points")
	ErrNotClosed    = errors.New("geometry: ring is not closed")
	ErrNotRectangle = errors.New("geometry: ring is not an axis-aligned rectangle")
	ErrWinding      = errors.New("geometry: corner 0 is not the south-west corner")
	ErrDegenerate   = errors.New("geometry: rectangle has zero width or height")
	ErrOutOfRange   = errors.New("geometry: coordinates outside lon/lat range")
)

// LatestDrawing returns the outer ring of the most recently drawn shape.
// An empty or nil collection yields ErrNoDrawing.
func LatestDrawing(fc *geojson.FeatureCollection) (orb.Ring, error) {
	if fc == nil || len(fc.Features) == 0 {
		return nil, ErrNoDrawing
	}

	feature := fc.Features[len(fc.Features)-1]
	if feature == nil || feature.Geometry == nil {
		return nil, ErrNoDrawing
	}

	poly, ok := feature.Geometry.(orb.Polygon)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrNotPolygon, feature.Geometry.GeoJSONType())
	}
	if len(poly) == 0 {
		return nil, ErrNoDrawing
	}

	return poly[0], nil
}

// Extract builds the bounding box of a rectangle ring from corners 0 and 2.
func Extract(ring orb.Ring) (models.BoundingBox, error) {
	if len(ring) < 4 {
		return models.BoundingBox{}, fmt.Errorf("%w: %d", ErrTooFewPoints, len(ring))
	}
	if !samePoint(ring[0], ring[len(ring)-1]) {
		return models.BoundingBox{}, ErrNotClosed
	}
	if len(ring) != 5 {
		return models.BoundingBox{}, fmt.Errorf("%w: %d points", ErrNotRectangle, len(ring))
	}

	c0, c1, c2, c3 := ring[0], ring[1], ring[2], ring[3]

	// The other two corners must mix c0 and c2, in either rotation direction.
	mixA := orb.Point{c0.Lon(), c2.Lat()}
	mixB := orb.Point{c2.Lon(), c0.Lat()}
	if !(samePoint(c1, mixA) && samePoint(c3, mixB)) && !(samePoint(c1, mixB) && samePoint(c3, mixA)) {
		return models.BoundingBox{}, ErrNotRectangle
	}

	if almostEqual(c0.Lon(), c2.Lon()) || almostEqual(c0.Lat(), c2.Lat()) {
		return models.BoundingBox{}, ErrDegenerate
	}
	if c0.Lon() > c2.Lon() || c0.Lat() > c2.Lat() {
		return models.BoundingBox{}, fmt.Errorf("%w: c0=%v c2=%v", ErrWinding, c0, c2)
	}

	bbox := models.BoundingBox{
		MinLon: c0.Lon(),
		MinLat: c0.Lat(),
		MaxLon: c2.Lon(),
		MaxLat: c2.Lat(),
	}
	if !bbox.Valid() {
		return models.BoundingBox{}, ErrOutOfRange
	}

	return bbox, nil
}

// RectangleRing is the inverse of Extract: the closed ring the map would emit for bbox.
func RectangleRing(b models.BoundingBox) orb.Ring {
	return orb.Ring{
		{b.MinLon, b.MinLat},
		{b.MinLon, b.MaxLat},
		{b.MaxLon, b.MaxLat},
		{b.MaxLon, b.MinLat},
		{b.MinLon, b.MinLat},
	}
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat".
func ParseBBox(s string) (models.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return models.BoundingBox{}, fmt.Errorf("bbox needs 4 comma-separated numbers, got %d", len(parts))
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return models.BoundingBox{}, fmt.Errorf("bbox value %d: %w", i, err)
		}
		vals[i] = v
	}

	// Round-trip through the ring so a typed bbox gets the same checks as a drawing.
	return Extract(RectangleRing(models.BoundingBox{
		MinLon: vals[0],
		MinLat: vals[1],
		MaxLon: vals[2],
		MaxLat: vals[3],
	}))
}

func samePoint(a, b orb.Point) bool {
	return almostEqual(a.Lon(), b.Lon()) && almostEqual(a.Lat(), b.Lat())
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsilon
}
