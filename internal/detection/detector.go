// Package detection runs uploaded images through the trash detector and
// annotates the result.
package detection

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"go.uber.org/zap"

	"aquavision/internal/models"
)

var ErrNotLoaded = errors.New("detector is not loaded")

const DefaultMaxSide = 1280

// Host is the detector service as seen by the handle.
type Host interface {
	LoadWeights(ctx context.Context, weightsPath string) (*LoadedWeights, error)
	Detect(ctx context.Context, model string, jpeg []byte) ([]models.Detection, error)
}

type Options struct {
	WeightsPath string
	ResultsDir  string // empty disables saving
	MaxSide     int
}

// Detector is the loaded detector handle. Load must succeed before Run.
type Detector struct {
	host Host
	opts Options
	logr *zap.Logger

	mu      sync.RWMutex
	model   string
	classes []string
}

func NewDetector(host Host, opts Options, logr *zap.Logger) *Detector {
	if opts.MaxSide == 0 {
		opts.MaxSide = DefaultMaxSide
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Detector{host: host, opts: opts, logr: logr}
}

// Load checks the weights file and registers it with the host.
func (d *Detector) Load(ctx context.Context) error {
	if _, err := os.Stat(d.opts.WeightsPath); err != nil {
		return fmt.Errorf("detector weights: %w", err)
	}

	loaded, err := d.host.LoadWeights(ctx, d.opts.WeightsPath)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.model = loaded.Model
	d.classes = loaded.Classes
	d.mu.Unlock()

	d.logr.Info("detector loaded",
		zap.String("weights", d.opts.WeightsPath),
		zap.String("model", loaded.Model),
		zap.Strings("classes", loaded.Classes))
	return nil
}

func (d *Detector) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.model != ""
}

func (d *Detector) Classes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.classes...)
}

// Run decodes the upload, detects objects and returns the annotated image.
func (d *Detector) Run(ctx context.Context, r io.Reader, filename string) (*models.DetectionResult, error) {
	d.mu.RLock()
	model := d.model
	d.mu.RUnlock()
	if model == "" {
		return nil, ErrNotLoaded
	}

	img, err := Decode(r, filename)
	if err != nil {
		return nil, err
	}
	rgb := FlattenRGB(img)

	input, scale := Downscale(rgb, d.opts.MaxSide)
	payload, err := EncodeJPEG(input)
	if err != nil {
		return nil, err
	}

	dets, err := d.host.Detect(ctx, model, payload)
	if err != nil {
		return nil, err
	}
	b := rgb.Bounds()
	for i := range dets {
		dets[i].Box = scaleBox(dets[i].Box, scale, b.Dx(), b.Dy())
	}

	annotated, err := EncodeJPEG(Annotate(rgb, dets))
	if err != nil {
		return nil, err
	}

	res := &models.DetectionResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Detections:  dets,
		Count:       len(dets),
		ImageBase64: base64.StdEncoding.EncodeToString(annotated),
		MimeType:    "image/jpeg",
	}
	if res.Detections == nil {
		res.Detections = []models.Detection{}
	}

	if d.opts.ResultsDir != "" {
		path, err := SaveResult(d.opts.ResultsDir, annotated)
		if err != nil {
			return nil, err
		}
		res.SavedPath = path
	}

	d.logr.Info("detection run",
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Float64("scale", scale),
		zap.Int("detections", res.Count))
	return res, nil
}

// scaleBox maps a box from the down-scaled input back to original pixels.
func scaleBox(box models.Box, scale float64, w, h int) models.Box {
	inv := func(v int, limit int) int {
		x := int(math.Round(float64(v) / scale))
		return min(max(x, 0), limit)
	}
	return models.Box{
		X1: inv(box.X1, w),
		Y1: inv(box.Y1, h),
		X2: inv(box.X2, w),
		Y2: inv(box.Y2, h),
	}
}
