package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RunKind string

const (
	RunTurbidity  RunKind = "turbidity"
	RunPotability RunKind = "potability"
	RunDetection  RunKind = "detection"
)

// AnalysisRun is one recorded pass through any of the three analyses.
type AnalysisRun struct {
	bun.BaseModel `bun:"table:app.analysis_runs,alias:ar"`

	ID         uuid.UUID       `bun:"id,pk,type:uuid" json:"id"`
	Kind       RunKind         `bun:"kind,notnull" json:"kind"`
	OperatorID *string         `bun:"operator_id" json:"operator_id,omitempty"`
	Input      json.RawMessage `bun:"input,type:jsonb" json:"input"`
	Output     json.RawMessage `bun:"output,type:jsonb" json:"output"`
	Error      *string         `bun:"error" json:"error,omitempty"`
	DurationMS int64           `bun:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time       `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

type RunsQueryParams struct {
	Kinds  []string
	Limit  int
	Offset int
}

type RunsResponse struct {
	Data   []AnalysisRun `json:"data"`
	Count  int           `json:"count"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}
