// Package store persists the history of analysis runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"aquavision/internal/models"
)

var (
	ErrNotFound        = errors.New("run not found")
	ErrHistoryDisabled = errors.New("run history is not configured")
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// Recorder receives finished runs.
type Recorder interface {
	Record(ctx context.Context, run *models.AnalysisRun) error
}

// Runs reads and writes app.analysis_runs.
type Runs interface {
	Recorder
	List(ctx context.Context, params models.RunsQueryParams) (*models.RunsResponse, error)
	Get(ctx context.Context, id string) (*models.AnalysisRun, error)
}

type RunStore struct {
	db *bun.DB
}

func NewRunStore(db *bun.DB) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Record(ctx context.Context, run *models.AnalysisRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.NewInsert().Model(run).Exec(ctx); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func (s *RunStore) List(ctx context.Context, params models.RunsQueryParams) (*models.RunsResponse, error) {
	params = NormalizeQuery(params)

	var runs []models.AnalysisRun
	count, err := s.listQuery(&runs, params).ScanAndCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if runs == nil {
		runs = []models.AnalysisRun{}
	}

	return &models.RunsResponse{Data: runs, Count: count, Limit: params.Limit, Offset: params.Offset}, nil
}

// listQuery selects one page of runs, newest first, optionally filtered by kind.
func (s *RunStore) listQuery(dst *[]models.AnalysisRun, params models.RunsQueryParams) *bun.SelectQuery {
	q := s.db.NewSelect().Model(dst)
	if len(params.Kinds) > 0 {
		q = q.Where("kind IN (?)", bun.In(params.Kinds))
	}
	return q.
		Order("created_at DESC").
		Limit(params.Limit).
		Offset(params.Offset)
}

func (s *RunStore) Get(ctx context.Context, id string) (*models.AnalysisRun, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var run models.AnalysisRun
	err = s.db.NewSelect().Model(&run).Where("id = ?", uid).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// NormalizeQuery clamps paging to sane bounds.
func NormalizeQuery(p models.RunsQueryParams) models.RunsQueryParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Disabled stands in when no database is configured: writes are dropped
// and reads report ErrHistoryDisabled.
type Disabled struct{}

func (Disabled) Record(context.Context, *models.AnalysisRun) error { return nil }

func (Disabled) List(context.Context, models.RunsQueryParams) (*models.RunsResponse, error) {
	return nil, ErrHistoryDisabled
}

func (Disabled) Get(context.Context, string) (*models.AnalysisRun, error) {
	return nil, ErrHistoryDisabled
}
