// Package earthengine is a small client for the Earth Engine REST API: it
// builds expression graphs locally, asks the service to evaluate scalars
// (value:compute) and to register tile maps (maps.create).
package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://earthengine.googleapis.com"
	apiVersion     = "v1"
	legacyProject  = "earthengine-legacy"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("earthengine: %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("earthengine: %d: %s", e.StatusCode, e.Message)
}

// TransportError is a request that never got an answer from the service.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("earthengine: request %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Visualization maps index values onto a color ramp.
type Visualization struct {
	Min     float64
	Max     float64
	Palette []string // hex colors, no leading '#'
}

// MapHandle is a service-issued tile map.
type MapHandle struct {
	Name    string `json:"name"`
	TileURL string `json:"tile_url"` // contains {z}, {x}, {y}
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	project    string
	timeout    time.Duration
	tokens     TokenSource
	logr       *zap.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each request; zero leaves requests unbounded. It is
// applied to a copy of the HTTP client, never to one passed in.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logr = l }
}

func NewClient(project string, tokens TokenSource, opts ...Option) *Client {
	if project == "" {
		project = legacyProject
	}
	c := &Client{
		httpClient: &http.Client{Transport: &http.Transport{Proxy: http.ProxyFromEnvironment}},
		baseURL:    DefaultBaseURL,
		project:    project,
		tokens:     tokens,
		logr:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

func (c *Client) Project() string { return c.project }

// Compute evaluates v remotely and returns the raw JSON result.
func (c *Client) Compute(ctx context.Context, v *Value) (json.RawMessage, error) {
	expr, err := Encode(v)
	if err != nil {
		return nil, err
	}

	var out struct {
		Result json.RawMessage `json:"result"`
	}
	path := fmt.Sprintf("/%s/projects/%s/value:compute", apiVersion, c.project)
	if err := c.post(ctx, path, map[string]any{"expression": expr}, &out); err != nil {
		return nil, fmt.Errorf("compute value: %w", err)
	}
	return out.Result, nil
}

// CollectionSize evaluates the number of images in coll.
func (c *Client) CollectionSize(ctx context.Context, coll ImageCollection) (int, error) {
	raw, err := c.Compute(ctx, coll.Size())
	if err != nil {
		return 0, err
	}

	var size float64
	if err := json.Unmarshal(raw, &size); err != nil {
		return 0, fmt.Errorf("decode collection size %q: %w", string(raw), err)
	}
	return int(size), nil
}

// CreateMap registers img with vis and returns its tile handle.
func (c *Client) CreateMap(ctx context.Context, img Image, vis Visualization) (*MapHandle, error) {
	expr, err := Encode(img.Value())
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"expression": expr,
		"fileFormat": "AUTO_JPEG_PNG",
		"visualizationOptions": map[string]any{
			"ranges":        []map[string]float64{{"min": vis.Min, "max": vis.Max}},
			"paletteColors": vis.Palette,
		},
	}

	var out struct {
		Name string `json:"name"`
	}
	path := fmt.Sprintf("/%s/projects/%s/maps", apiVersion, c.project)
	if err := c.post(ctx, path, body, &out); err != nil {
		return nil, fmt.Errorf("create map: %w", err)
	}
	if out.Name == "" {
		return nil, fmt.Errorf("create map: response has no map name")
	}

	return &MapHandle{
		Name:    out.Name,
		TileURL: fmt.Sprintf("%s/%s/%s/tiles/{z}/{x}/{y}", c.baseURL, apiVersion, out.Name),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.logr.Debug("earthengine call",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeAPIError reads a Google-style {"error": {...}} body, falling back to raw text.
func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
		// token endpoint shape
		ErrorDescription string `json:"error_description"`
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		apiErr.Status = body.Error.Status
		apiErr.Message = body.Error.Message
		return apiErr
	}
	if body.ErrorDescription != "" {
		apiErr.Message = body.ErrorDescription
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
