// Package mapview is the browser-facing side of the dashboard: the default
// map state, server-rendered pages and index legends.
package mapview

import (
	"aquavision/internal/config"
	"aquavision/internal/models"
)

const (
	DefaultLat  = 20.5937
	DefaultLon  = 78.9629
	DefaultZoom = 5
)

// DefaultState is the empty map: centered, rectangle drawing only.
func DefaultState(cfg *config.Config) models.MapState {
	m := models.MapState{
		Center:   [2]float64{DefaultLat, DefaultLon},
		Zoom:     DefaultZoom,
		Draw:     models.DrawOptions{Rectangle: true},
		Overlays: []models.Overlay{},
	}
	if cfg != nil {
		m.Center = [2]float64{cfg.MapCenterLat, cfg.MapCenterLon}
		if cfg.MapZoom > 0 {
			m.Zoom = cfg.MapZoom
		}
	}
	return m
}
