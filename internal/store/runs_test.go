package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"aquavision/internal/models"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name string
		in   models.RunsQueryParams
		want models.RunsQueryParams
	}{
		{"defaults", models.RunsQueryParams{}, models.RunsQueryParams{Limit: DefaultLimit}},
		{"capped", models.RunsQueryParams{Limit: 5000, Offset: 10}, models.RunsQueryParams{Limit: MaxLimit, Offset: 10}},
		{"negative offset", models.RunsQueryParams{Limit: 5, Offset: -1}, models.RunsQueryParams{Limit: 5}},
		{"kinds kept", models.RunsQueryParams{Kinds: []string{"turbidity"}, Limit: 3}, models.RunsQueryParams{Kinds: []string{"turbidity"}, Limit: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeQuery(tt.in))
		})
	}
}

func TestDisabledStore(t *testing.T) {
	var runs Runs = Disabled{}
	ctx := context.Background()

	assert.NoError(t, runs.Record(ctx, &models.AnalysisRun{Kind: models.RunTurbidity}))

	_, err := runs.List(ctx, models.RunsQueryParams{})
	assert.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = runs.Get(ctx, "anything")
	assert.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestRunStoreSatisfiesRuns(t *testing.T) {
	var _ Runs = (*RunStore)(nil)
	var _ Operators = (*OperatorStore)(nil)
}

// offlineDB builds queries without ever dialing the server.
func offlineDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN("postgres://aquavision@localhost:5432/aquavision?sslmode=disable")))
	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestListQuery(t *testing.T) {
	s := NewRunStore(offlineDB(t))
	var runs []models.AnalysisRun

	q := s.listQuery(&runs, models.RunsQueryParams{Kinds: []string{"turbidity", "detection"}, Limit: 20, Offset: 40}).String()
	assert.Contains(t, q, `FROM "app"."analysis_runs" AS "ar"`)
	assert.Contains(t, q, `kind IN ('turbidity', 'detection')`)
	assert.Regexp(t, `ORDER BY "?created_at"? DESC`, q)
	assert.Contains(t, q, `LIMIT 20 OFFSET 40`)

	q = s.listQuery(&runs, models.RunsQueryParams{Limit: 5}).String()
	assert.NotContains(t, q, "kind IN")
	assert.Contains(t, q, "LIMIT 5")
}
