package potability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ModelInfo describes a model published by the serving host.
type ModelInfo struct {
	Name     string   `json:"name"`
	Features []string `json:"features"`
}

type Prediction struct {
	Label       int      `json:"label"`
	Probability *float64 `json:"probability,omitempty"`
}

// Classifier is the model-serving host as seen by the potability model.
type Classifier interface {
	Models(ctx context.Context) ([]ModelInfo, error)
	Predict(ctx context.Context, model string, rows [][]float64) ([]Prediction, error)
}

// ServingError is a non-2xx answer from the serving host, or no answer at all.
type ServingError struct {
	StatusCode int // 0 when the host could not be reached
	Message    string
	Err        error
}

func (e *ServingError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("model host unreachable: %s", e.Message)
	}
	return fmt.Sprintf("model host: %d: %s", e.StatusCode, e.Message)
}

func (e *ServingError) Unwrap() error { return e.Err }

type RemoteClassifier struct {
	endpoint   string
	httpClient *http.Client
	logr       *zap.Logger
}

func NewRemoteClassifier(endpoint string, httpClient *http.Client, logr *zap.Logger) *RemoteClassifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	return &RemoteClassifier{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
		logr:       logr,
	}
}

func (c *RemoteClassifier) Models(ctx context.Context) ([]ModelInfo, error) {
	var out struct {
		Models []ModelInfo `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/models", nil, &out); err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return out.Models, nil
}

func (c *RemoteClassifier) Predict(ctx context.Context, model string, rows [][]float64) ([]Prediction, error) {
	var out struct {
		Predictions []Prediction `json:"predictions"`
	}
	path := "/v1/models/" + url.PathEscape(model) + ":predict"
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"instances": rows}, &out); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(out.Predictions) != len(rows) {
		return nil, fmt.Errorf("predict: got %d predictions for %d rows", len(out.Predictions), len(rows))
	}
	return out.Predictions, nil
}

func (c *RemoteClassifier) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServingError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	c.logr.Debug("model host call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(data))
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &ServingError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
