package potability

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"aquavision/internal/models"
)

var (
	ErrInvalidSample = errors.New("invalid water sample")
	ErrNotLoaded     = errors.New("potability model is not loaded")
)

const (
	MessagePotable    = "The water is potable (safe to drink)."
	MessageNotPotable = "The water is not potable (not safe to drink)."
)

type Options struct {
	DatasetPath  string
	ModelName    string
	TestFraction float64
	Seed         int64
}

func DefaultOptions(datasetPath, modelName string) Options {
	return Options{DatasetPath: datasetPath, ModelName: modelName, TestFraction: 0.2, Seed: 42}
}

// Model owns the fitted scaler and the classifier binding. It must be
// loaded once before Predict.
type Model struct {
	classifier Classifier
	opts       Options
	logr       *zap.Logger

	mu     sync.RWMutex
	scaler *MinMaxScaler
	info   models.PotabilityModelInfo
}

func NewModel(classifier Classifier, opts Options, logr *zap.Logger) *Model {
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Model{classifier: classifier, opts: opts, logr: logr}
}

// Load prepares the dataset, checks the served model and scores it on the
// held-out rows.
func (m *Model) Load(ctx context.Context) error {
	ds, err := LoadCSV(m.opts.DatasetPath)
	if err != nil {
		return err
	}
	return m.LoadDataset(ctx, ds)
}

func (m *Model) LoadDataset(ctx context.Context, ds *Dataset) error {
	train, test := ds.Split(m.opts.TestFraction, m.opts.Seed)
	scaler, err := FitMinMax(train.X)
	if err != nil {
		return err
	}

	served, err := m.classifier.Models(ctx)
	if err != nil {
		return err
	}
	if err := checkServed(served, m.opts.ModelName); err != nil {
		return err
	}

	var accuracy float64
	if test.Len() > 0 {
		x, err := scaler.TransformAll(test.X)
		if err != nil {
			return err
		}
		preds, err := m.classifier.Predict(ctx, m.opts.ModelName, x)
		if err != nil {
			return fmt.Errorf("score held-out rows: %w", err)
		}
		if len(preds) != test.Len() {
			return fmt.Errorf("score held-out rows: got %d predictions for %d rows", len(preds), test.Len())
		}
		correct := 0
		for i, p := range preds {
			if p.Label == test.Y[i] {
				correct++
			}
		}
		accuracy = float64(correct) / float64(test.Len())
	}

	info := models.PotabilityModelInfo{
		Model:    m.opts.ModelName,
		Features: append([]string(nil), FeatureColumns...),
		Train:    train.Len(),
		Test:     test.Len(),
		Accuracy: accuracy,
	}

	m.mu.Lock()
	m.scaler = scaler
	m.info = info
	m.mu.Unlock()

	m.logr.Info("potability model loaded",
		zap.String("model", info.Model),
		zap.Int("train", info.Train),
		zap.Int("test", info.Test),
		zap.Float64("accuracy", info.Accuracy))
	return nil
}

func checkServed(served []ModelInfo, name string) error {
	for _, s := range served {
		if s.Name != name {
			continue
		}
		if len(s.Features) != len(FeatureColumns) {
			return fmt.Errorf("model %s expects %d features, dataset has %d", name, len(s.Features), len(FeatureColumns))
		}
		for i, f := range s.Features {
			if !strings.EqualFold(f, FeatureColumns[i]) {
				return fmt.Errorf("model %s feature %d is %q, dataset has %q", name, i, f, FeatureColumns[i])
			}
		}
		return nil
	}
	return fmt.Errorf("model %s is not served", name)
}

func (m *Model) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scaler != nil
}

func (m *Model) Info() (models.PotabilityModelInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.scaler == nil {
		return models.PotabilityModelInfo{}, ErrNotLoaded
	}
	return m.info, nil
}

// Validate checks the ranges the input form enforces.
func Validate(s models.WaterSample) error {
	for i, v := range s.Features() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a number", ErrInvalidSample, FeatureColumns[i])
		}
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidSample, FeatureColumns[i])
		}
	}
	if s.PH > 14 {
		return fmt.Errorf("%w: ph must be within 0..14", ErrInvalidSample)
	}
	return nil
}

// Predict scales the sample with the scaler fitted at load time and asks
// the classifier for a label; 1 means potable.
func (m *Model) Predict(ctx context.Context, s models.WaterSample) (*models.PotabilityResult, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}

	m.mu.RLock()
	scaler := m.scaler
	m.mu.RUnlock()
	if scaler == nil {
		return nil, ErrNotLoaded
	}

	row, err := scaler.Transform(s.Features())
	if err != nil {
		return nil, err
	}
	preds, err := m.classifier.Predict(ctx, m.opts.ModelName, [][]float64{row})
	if err != nil {
		return nil, err
	}
	if len(preds) != 1 {
		return nil, fmt.Errorf("predict: got %d predictions for 1 row", len(preds))
	}

	p := preds[0]
	res := &models.PotabilityResult{
		Potable:     p.Label == 1,
		Label:       p.Label,
		Probability: p.Probability,
		Message:     MessageNotPotable,
	}
	if res.Potable {
		res.Message = MessagePotable
	}
	return res, nil
}
