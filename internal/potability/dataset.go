// Package potability prepares the water-chemistry dataset and wraps the
// remote potability classifier in an explicitly loaded model handle.
package potability

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

// FeatureColumns is the dataset header order the classifier was trained on.
var FeatureColumns = []string{
	"ph", "Hardness", "Solids", "Chloramines", "Sulfate",
	"Conductivity", "Organic_carbon", "Trihalomethanes", "Turbidity",
}

const LabelColumn = "Potability"

type Dataset struct {
	X [][]float64
	Y []int
}

func (d *Dataset) Len() int { return len(d.Y) }

// LoadCSV reads the dataset from path and imputes missing cells.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a header row followed by numeric rows. Empty feature
// cells are replaced by the column mean.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	featureIdx := make([]int, len(FeatureColumns))
	for i, name := range FeatureColumns {
		idx, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("dataset is missing column %q", name)
		}
		featureIdx[i] = idx
	}
	labelIdx, ok := cols[LabelColumn]
	if !ok {
		return nil, fmt.Errorf("dataset is missing column %q", LabelColumn)
	}

	ds := &Dataset{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(featureIdx))
		for i, idx := range featureIdx {
			cell := strings.TrimSpace(rec[idx])
			if cell == "" {
				row[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, FeatureColumns[i], err)
			}
			row[i] = v
		}

		label, err := strconv.Atoi(strings.TrimSpace(rec[labelIdx]))
		if err != nil || (label != 0 && label != 1) {
			return nil, fmt.Errorf("line %d: label %q is not 0 or 1", line, rec[labelIdx])
		}

		ds.X = append(ds.X, row)
		ds.Y = append(ds.Y, label)
	}

	if ds.Len() == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}
	ds.imputeMean()
	return ds, nil
}

func (d *Dataset) imputeMean() {
	for j := range FeatureColumns {
		var sum float64
		var n int
		for _, row := range d.X {
			if !math.IsNaN(row[j]) {
				sum += row[j]
				n++
			}
		}
		mean := 0.0
		if n > 0 {
			mean = sum / float64(n)
		}
		for _, row := range d.X {
			if math.IsNaN(row[j]) {
				row[j] = mean
			}
		}
	}
}

// Split shuffles with seed and holds out testFrac of the rows.
func (d *Dataset) Split(testFrac float64, seed int64) (train, test *Dataset) {
	perm := rand.New(rand.NewSource(seed)).Perm(d.Len())
	nTest := int(math.Ceil(testFrac * float64(d.Len())))

	train, test = &Dataset{}, &Dataset{}
	for i, idx := range perm {
		dst := train
		if i < nTest {
			dst = test
		}
		dst.X = append(dst.X, d.X[idx])
		dst.Y = append(dst.Y, d.Y[idx])
	}
	return train, test
}
