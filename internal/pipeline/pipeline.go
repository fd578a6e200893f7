// Package pipeline builds the NDWI/NDTI water-quality rasters for a region.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aquavision/internal/earthengine"
	"aquavision/internal/models"
	"aquavision/internal/palette"
)

const (
	IndexNDWI = "NDWI"
	IndexNDTI = "NDTI"
)

// Catalog answers how many scenes survive a collection query.
type Catalog interface {
	CollectionSize(ctx context.Context, coll earthengine.ImageCollection) (int, error)
}

// Bands names the sensor bands each index reads.
type Bands struct {
	Blue  string
	Green string
	Red   string
	NIR   string
}

func (b Bands) List() []string { return []string{b.Blue, b.Green, b.Red, b.NIR} }

type Params struct {
	CollectionID     string
	Bands            Bands
	StartDate        string // inclusive, YYYY-MM-DD
	EndDate          string // exclusive
	CloudProperty    string
	CloudCeiling     float64
	ReflectanceScale float64
	WaterThreshold   float64
}

func DefaultParams() Params {
	return Params{
		CollectionID:     "COPERNICUS/S2",
		Bands:            Bands{Blue: "B2", Green: "B3", Red: "B4", NIR: "B8"},
		StartDate:        "2023-01-01",
		EndDate:          "2024-01-01",
		CloudProperty:    "CLOUDY_PIXEL_PERCENTAGE",
		CloudCeiling:     10,
		ReflectanceScale: 0.0001,
		WaterThreshold:   0.1,
	}
}

// Validate checks the dates parse and the window is not empty.
func (p Params) Validate() error {
	start, err := time.Parse(time.DateOnly, p.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", p.StartDate, err)
	}
	end, err := time.Parse(time.DateOnly, p.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", p.EndDate, err)
	}
	if !end.After(start) {
		return fmt.Errorf("date range %s..%s is empty", p.StartDate, p.EndDate)
	}
	if p.CloudCeiling < 0 || p.CloudCeiling > 100 {
		return fmt.Errorf("cloud ceiling %g outside 0..100", p.CloudCeiling)
	}
	return nil
}

var (
	NDWIPalette = palette.MustRamp(-1, 1, "blue", "white", "green")
	NDTIPalette = palette.MustRamp(-1, 1, "blue", "green", "yellow", "orange", "red")
)

// SpectralIndex is a named remote raster plus how to color it.
type SpectralIndex struct {
	Name  string
	Image earthengine.Image
	Ramp  *palette.Ramp
}

func (s SpectralIndex) Visualization() earthengine.Visualization {
	return earthengine.Visualization{Min: s.Ramp.Min, Max: s.Ramp.Max, Palette: s.Ramp.Hex()}
}

type Result struct {
	Scenes  int
	Indices []SpectralIndex
}

// Empty reports whether the catalog had nothing for the region.
func (r *Result) Empty() bool { return r.Scenes == 0 }

type Pipeline struct {
	catalog Catalog
	params  Params
	logr    *zap.Logger
}

func New(catalog Catalog, params Params, logr *zap.Logger) *Pipeline {
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Pipeline{catalog: catalog, params: params, logr: logr}
}

func (p *Pipeline) Params() Params { return p.params }

// Query is the filtered scene collection for bbox.
func (p *Pipeline) Query(bbox models.BoundingBox) earthengine.ImageCollection {
	return earthengine.LoadImageCollection(p.params.CollectionID).
		Select(p.params.Bands.List()...).
		FilterDate(p.params.StartDate, p.params.EndDate).
		FilterBounds(earthengine.Rectangle(bbox.Coordinates())).
		Filter(earthengine.LessThanFilter(p.params.CloudProperty, p.params.CloudCeiling))
}

// Indices derives NDWI on the reflectance composite and NDTI on its water-masked copy.
func (p *Pipeline) Indices(coll earthengine.ImageCollection) []SpectralIndex {
	b := p.params.Bands
	composite := coll.Median().Multiply(p.params.ReflectanceScale)

	ndwi := composite.NormalizedDifference(b.Green, b.NIR).Rename(IndexNDWI)
	water := composite.UpdateMask(ndwi.Gt(p.params.WaterThreshold))
	ndti := water.NormalizedDifference(b.Red, b.Green).Rename(IndexNDTI)

	return []SpectralIndex{
		{Name: IndexNDWI, Image: ndwi, Ramp: NDWIPalette},
		{Name: IndexNDTI, Image: ndti, Ramp: NDTIPalette},
	}
}

// Run makes one blocking catalog call; an empty collection is not an error.
func (p *Pipeline) Run(ctx context.Context, bbox models.BoundingBox) (*Result, error) {
	coll := p.Query(bbox)

	size, err := p.catalog.CollectionSize(ctx, coll)
	if err != nil {
		return nil, fmt.Errorf("count scenes: %w", err)
	}

	p.logr.Info("scene query",
		zap.Stringer("bbox", bbox),
		zap.String("from", p.params.StartDate),
		zap.String("to", p.params.EndDate),
		zap.Int("scenes", size))

	if size == 0 {
		return &Result{}, nil
	}
	return &Result{Scenes: size, Indices: p.Indices(coll)}, nil
}
