package services

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"aquavision/internal/analytics"
	"aquavision/internal/models"
	"aquavision/internal/store"
)

// Detector is the loaded object-detector handle.
type Detector interface {
	Run(ctx context.Context, r io.Reader, filename string) (*models.DetectionResult, error)
}

type DetectionService struct {
	detector Detector
	runs     runLog
	tracker  analytics.Tracker
	logr     *zap.Logger
}

func NewDetectionService(d Detector, rec store.Recorder, tracker analytics.Tracker, logr *zap.Logger) *DetectionService {
	return &DetectionService{detector: d, runs: runLog{rec: rec, logr: logr}, tracker: tracker, logr: logr}
}

func (s *DetectionService) Detect(ctx context.Context, r io.Reader, filename, operatorID string) (*models.DetectionResult, error) {
	start := time.Now()
	input := map[string]any{"filename": filename}

	res, err := s.detector.Run(ctx, r, filename)
	took := time.Since(start)
	if err != nil {
		s.runs.record(ctx, models.RunDetection, operatorID, input, nil, err, took)
		return nil, err
	}

	// history keeps the boxes, not the image
	summary := *res
	summary.ImageBase64 = ""
	res.RunID = s.runs.record(ctx, models.RunDetection, operatorID, input, summary, nil, took)

	s.tracker.Track(operatorID, analytics.EventDetectionRun, map[string]interface{}{
		"detections": res.Count,
		"width":      res.Width,
		"height":     res.Height,
		"took_ms":    took.Milliseconds(),
	})
	return res, nil
}
