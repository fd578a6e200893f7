package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aquavision/internal/models"
	"aquavision/internal/store"
)

type RunService struct {
	runs store.Runs
	logr *zap.Logger
}

func NewRunService(runs store.Runs, logr *zap.Logger) *RunService {
	return &RunService{runs: runs, logr: logr}
}

func (s *RunService) List(ctx context.Context, params models.RunsQueryParams) (*models.RunsResponse, error) {
	return s.runs.List(ctx, params)
}

func (s *RunService) Get(ctx context.Context, id string) (*models.AnalysisRun, error) {
	return s.runs.Get(ctx, id)
}

// runLog writes one history row per analysis. Storage failures are logged
// and never fail the analysis itself.
type runLog struct {
	rec  store.Recorder
	logr *zap.Logger
}

func (l runLog) record(ctx context.Context, kind models.RunKind, operatorID string, input, output any, runErr error, took time.Duration) string {
	run := &models.AnalysisRun{
		ID:         uuid.New(),
		Kind:       kind,
		DurationMS: took.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if operatorID != "" {
		run.OperatorID = &operatorID
	}
	run.Input = marshalOrNull(input)
	run.Output = marshalOrNull(output)
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}

	if err := l.rec.Record(ctx, run); err != nil {
		l.logr.Warn("failed to record run", zap.String("kind", string(kind)), zap.Error(err))
		return ""
	}
	return run.ID.String()
}

func marshalOrNull(v any) json.RawMessage {
	if v == nil {
		return json.RawMessage("null")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}
