package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"aquavision/internal/analytics"
	"aquavision/internal/models"
	"aquavision/internal/store"
)

// Classifier is the loaded potability model handle.
type Classifier interface {
	Predict(ctx context.Context, s models.WaterSample) (*models.PotabilityResult, error)
	Info() (models.PotabilityModelInfo, error)
}

type PotabilityService struct {
	model   Classifier
	runs    runLog
	tracker analytics.Tracker
	logr    *zap.Logger
}

func NewPotabilityService(model Classifier, rec store.Recorder, tracker analytics.Tracker, logr *zap.Logger) *PotabilityService {
	return &PotabilityService{model: model, runs: runLog{rec: rec, logr: logr}, tracker: tracker, logr: logr}
}

func (s *PotabilityService) Predict(ctx context.Context, sample models.WaterSample, operatorID string) (*models.PotabilityResult, error) {
	start := time.Now()
	res, err := s.model.Predict(ctx, sample)
	took := time.Since(start)
	if err != nil {
		s.runs.record(ctx, models.RunPotability, operatorID, sample, nil, err, took)
		return nil, err
	}

	res.RunID = s.runs.record(ctx, models.RunPotability, operatorID, sample, res, nil, took)
	s.tracker.Track(operatorID, analytics.EventPotabilityPrediction, map[string]interface{}{
		"potable": res.Potable,
		"took_ms": took.Milliseconds(),
	})
	return res, nil
}

func (s *PotabilityService) Model() (models.PotabilityModelInfo, error) {
	return s.model.Info()
}
