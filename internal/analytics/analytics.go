// Package analytics sends product events about analysis runs.
package analytics

import (
	"github.com/posthog/posthog-go"
	"go.uber.org/zap"
)

const (
	EventTurbidityRun         = "turbidity_run"
	EventPotabilityPrediction = "potability_prediction"
	EventDetectionRun         = "detection_run"

	anonymousID = "aquavision_server"
)

// Tracker records an event for an operator, or anonymously when
// distinctID is empty.
type Tracker interface {
	Track(distinctID, event string, props map[string]interface{})
	Close() error
}

type PostHog struct {
	client posthog.Client
	logr   *zap.Logger
}

// NewPostHog returns a no-op tracker when key is empty.
func NewPostHog(key, host string, logr *zap.Logger) (Tracker, error) {
	if key == "" {
		return Nop{}, nil
	}
	client, err := posthog.NewWithConfig(key, posthog.Config{Endpoint: host})
	if err != nil {
		return nil, err
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	return &PostHog{client: client, logr: logr}, nil
}

func (p *PostHog) Track(distinctID, event string, props map[string]interface{}) {
	if distinctID == "" {
		distinctID = anonymousID
	}
	err := p.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: props,
	})
	if err != nil {
		p.logr.Warn("analytics enqueue failed", zap.String("event", event), zap.Error(err))
	}
}

func (p *PostHog) Close() error {
	return p.client.Close()
}

type Nop struct{}

func (Nop) Track(string, string, map[string]interface{}) {}
func (Nop) Close() error                               { return nil }

// Recording keeps events in memory; used by tests and the CLI dry runs.
type Recording struct {
	Events []Event
}

type Event struct {
	DistinctID string
	Name       string
	Props      map[string]interface{}
}

func (r *Recording) Track(distinctID, event string, props map[string]interface{}) {
	r.Events = append(r.Events, Event{DistinctID: distinctID, Name: event, Props: props})
}

func (r *Recording) Close() error { return nil }
