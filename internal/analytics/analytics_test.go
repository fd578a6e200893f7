package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPostHogWithoutKeyIsNop(t *testing.T) {
	tr, err := NewPostHog("", "https://eu.i.posthog.com", nil)
	require.NoError(t, err)
	assert.IsType(t, Nop{}, tr)
	tr.Track("", EventTurbidityRun, nil)
	assert.NoError(t, tr.Close())
}

func TestRecording(t *testing.T) {
	r := &Recording{}
	r.Track("op-1", EventPotabilityPrediction, map[string]interface{}{"potable": true})
	require.Len(t, r.Events, 1)
	assert.Equal(t, "op-1", r.Events[0].DistinctID)
	assert.Equal(t, true, r.Events[0].Props["potable"])
}
