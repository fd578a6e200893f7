package services

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"aquavision/internal/analytics"
	"aquavision/internal/geometry"
	"aquavision/internal/models"
	"aquavision/internal/pipeline"
	"aquavision/internal/store"
	"aquavision/internal/tiles"
)

// TurbidityService runs drawing -> bounding box -> indices -> overlays.
type TurbidityService struct {
	pipeline *pipeline.Pipeline
	renderer *tiles.Renderer
	base     models.MapState
	runs     runLog
	tracker  analytics.Tracker
	logr     *zap.Logger
}

func NewTurbidityService(
	p *pipeline.Pipeline,
	r *tiles.Renderer,
	base models.MapState,
	rec store.Recorder,
	tracker analytics.Tracker,
	logr *zap.Logger,
) *TurbidityService {
	return &TurbidityService{
		pipeline: p,
		renderer: r,
		base:     base,
		runs:     runLog{rec: rec, logr: logr},
		tracker:  tracker,
		logr:     logr,
	}
}

// DefaultMap is the map shown before anything is drawn.
func (s *TurbidityService) DefaultMap() models.MapState {
	return s.base.Clone()
}

func (s *TurbidityService) Window() (string, string) {
	p := s.pipeline.Params()
	return p.StartDate, p.EndDate
}

// AnalyzeDrawings uses the most recent drawing. No drawing is not an error:
// the default map comes back untouched.
func (s *TurbidityService) AnalyzeDrawings(ctx context.Context, fc *geojson.FeatureCollection, operatorID string) (*models.TurbidityResponse, error) {
	ring, err := geometry.LatestDrawing(fc)
	if errors.Is(err, geometry.ErrNoDrawing) {
		return &models.TurbidityResponse{Map: s.DefaultMap()}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.AnalyzeRing(ctx, ring, operatorID)
}

func (s *TurbidityService) AnalyzeRing(ctx context.Context, ring orb.Ring, operatorID string) (*models.TurbidityResponse, error) {
	bbox, err := geometry.Extract(ring)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, ring, bbox, operatorID)
}

func (s *TurbidityService) AnalyzeBBox(ctx context.Context, bbox models.BoundingBox, operatorID string) (*models.TurbidityResponse, error) {
	return s.analyze(ctx, geometry.RectangleRing(bbox), bbox, operatorID)
}

func (s *TurbidityService) analyze(ctx context.Context, ring orb.Ring, bbox models.BoundingBox, operatorID string) (*models.TurbidityResponse, error) {
	start := time.Now()
	input := map[string]any{"bbox": bbox, "params": s.pipeline.Params()}

	resp, err := s.run(ctx, ring, bbox)
	took := time.Since(start)
	if err != nil {
		s.runs.record(ctx, models.RunTurbidity, operatorID, input, nil, err, took)
		return nil, err
	}

	resp.RunID = s.runs.record(ctx, models.RunTurbidity, operatorID, input, summarizeTurbidity(resp), nil, took)
	s.tracker.Track(operatorID, analytics.EventTurbidityRun, map[string]interface{}{
		"scenes":   resp.Scenes,
		"empty":    resp.Empty,
		"overlays": len(resp.Map.Overlays),
		"took_ms":  took.Milliseconds(),
	})
	return resp, nil
}

func (s *TurbidityService) run(ctx context.Context, ring orb.Ring, bbox models.BoundingBox) (*models.TurbidityResponse, error) {
	res, err := s.pipeline.Run(ctx, bbox)
	if err != nil {
		return nil, err
	}

	resp := &models.TurbidityResponse{
		Map:         s.DefaultMap(),
		Drawn:       true,
		Drawing:     ring,
		BoundingBox: &bbox,
		Scenes:      res.Scenes,
		Empty:       res.Empty(),
	}
	if res.Empty() {
		s.logr.Info("no scenes for region", zap.Stringer("bbox", bbox))
		return resp, nil
	}

	m, err := s.renderer.Render(ctx, resp.Map, res.Indices)
	if err != nil {
		return nil, err
	}
	resp.Map = m
	return resp, nil
}

func summarizeTurbidity(resp *models.TurbidityResponse) map[string]any {
	maps := make([]string, 0, len(resp.Map.Overlays))
	for _, o := range resp.Map.Overlays {
		maps = append(maps, o.MapID)
	}
	return map[string]any{"scenes": resp.Scenes, "empty": resp.Empty, "maps": maps}
}
