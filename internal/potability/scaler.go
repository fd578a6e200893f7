package potability

import "fmt"

// MinMaxScaler maps each feature onto [0, 1] using the range seen at fit time.
type MinMaxScaler struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

func FitMinMax(x [][]float64) (*MinMaxScaler, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("fit scaler: no rows")
	}
	n := len(x[0])
	s := &MinMaxScaler{
		Min: append([]float64(nil), x[0]...),
		Max: append([]float64(nil), x[0]...),
	}
	for _, row := range x[1:] {
		if len(row) != n {
			return nil, fmt.Errorf("fit scaler: ragged row of %d features, want %d", len(row), n)
		}
		for j, v := range row {
			if v < s.Min[j] {
				s.Min[j] = v
			}
			if v > s.Max[j] {
				s.Max[j] = v
			}
		}
	}
	return s, nil
}

// Transform scales one row. Values outside the fitted range land outside
// [0, 1]; constant columns map to 0.
func (s *MinMaxScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Min) {
		return nil, fmt.Errorf("scale: got %d features, want %d", len(row), len(s.Min))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		span := s.Max[j] - s.Min[j]
		if span == 0 {
			continue
		}
		out[j] = (v - s.Min[j]) / span
	}
	return out, nil
}

func (s *MinMaxScaler) TransformAll(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}
