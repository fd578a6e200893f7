package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"aquavision/internal/models"
)

// LoadedWeights is the host's answer to a weights load.
type LoadedWeights struct {
	Model   string   `json:"model"`
	Classes []string `json:"classes"`
}

// HostError is a non-2xx answer from the detector host, or no answer at all.
type HostError struct {
	StatusCode int // 0 when the host could not be reached
	Message    string
	Err        error
}

func (e *HostError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("detector host unreachable: %s", e.Message)
	}
	return fmt.Sprintf("detector host: %d: %s", e.StatusCode, e.Message)
}

func (e *HostError) Unwrap() error { return e.Err }

// Client talks to the detector host: weights are loaded once and then
// referenced by the returned model id.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logr       *zap.Logger
}

func NewClient(endpoint string, httpClient *http.Client, logr *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Client{endpoint: strings.TrimRight(endpoint, "/"), httpClient: httpClient, logr: logr}
}

func (c *Client) LoadWeights(ctx context.Context, weightsPath string) (*LoadedWeights, error) {
	payload, err := json.Marshal(map[string]string{"weights": weightsPath})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/models", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out LoadedWeights
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}
	if out.Model == "" {
		return nil, fmt.Errorf("load weights: host returned no model id")
	}
	return &out, nil
}

// Detect uploads a JPEG and returns boxes in the uploaded image's pixels.
func (c *Client) Detect(ctx context.Context, model string, jpeg []byte) ([]models.Detection, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "input.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(jpeg); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	path := "/v1/models/" + url.PathEscape(model) + ":detect"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Detections []models.Detection `json:"detections"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	return out.Detections, nil
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &HostError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	c.logr.Debug("detector host call",
		zap.String("path", req.URL.Path),
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
		return &HostError{StatusCode: resp.StatusCode, Message: msg}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
