// Package tiles turns spectral indices into map overlays.
package tiles

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"aquavision/internal/earthengine"
	"aquavision/internal/models"
	"aquavision/internal/pipeline"
)

const (
	DefaultOpacity = 0.5
	Attribution    = "Map Data &copy; Google Earth Engine"
)

// MapMaker issues tile handles for remote images.
type MapMaker interface {
	CreateMap(ctx context.Context, img earthengine.Image, vis earthengine.Visualization) (*earthengine.MapHandle, error)
}

type Renderer struct {
	maps    MapMaker
	opacity float64
	logr    *zap.Logger
}

func NewRenderer(maps MapMaker, logr *zap.Logger) *Renderer {
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Renderer{maps: maps, opacity: DefaultOpacity, logr: logr}
}

// Overlays requests one tile handle per index, in order. Any failure
// discards the handles already issued.
func (r *Renderer) Overlays(ctx context.Context, indices []pipeline.SpectralIndex) ([]models.Overlay, error) {
	out := make([]models.Overlay, 0, len(indices))
	for _, idx := range indices {
		vis := idx.Visualization()
		handle, err := r.maps.CreateMap(ctx, idx.Image, vis)
		if err != nil {
			return nil, fmt.Errorf("tile handle for %s: %w", idx.Name, err)
		}

		r.logr.Debug("tile handle issued", zap.String("index", idx.Name), zap.String("map", handle.Name))
		out = append(out, models.Overlay{
			Name:        idx.Name,
			URL:         handle.TileURL,
			MapID:       handle.Name,
			Opacity:     r.opacity,
			Attribution: Attribution,
			Overlay:     true,
			Palette:     vis.Palette,
			Min:         vis.Min,
			Max:         vis.Max,
		})
	}
	return out, nil
}

// Render returns a copy of m decorated with the index overlays and a layer
// control. On error m is returned as given.
func (r *Renderer) Render(ctx context.Context, m models.MapState, indices []pipeline.SpectralIndex) (models.MapState, error) {
	overlays, err := r.Overlays(ctx, indices)
	if err != nil {
		return m, err
	}

	out := m.Clone()
	out.Overlays = append(out.Overlays, overlays...)
	out.LayerControl = true
	return out, nil
}
