package models

// WaterSample holds the nine measurements the potability classifier expects.
type WaterSample struct {
	PH              float64 `json:"ph"`
	Hardness        float64 `json:"hardness"`
	Solids          float64 `json:"solids"`
	Chloramines     float64 `json:"chloramines"`
	Sulfate         float64 `json:"sulfate"`
	Conductivity    float64 `json:"conductivity"`
	OrganicCarbon   float64 `json:"organic_carbon"`
	Trihalomethanes float64 `json:"trihalomethanes"`
	Turbidity       float64 `json:"turbidity"`
}

// Features returns the measurements in dataset column order.
func (s WaterSample) Features() []float64 {
	return []float64{
		s.PH, s.Hardness, s.Solids, s.Chloramines, s.Sulfate,
		s.Conductivity, s.OrganicCarbon, s.Trihalomethanes, s.Turbidity,
	}
}

type PotabilityResult struct {
	RunID       string   `json:"run_id,omitempty"`
	Potable     bool     `json:"potable"`
	Label       int      `json:"label"`
	Probability *float64 `json:"probability,omitempty"`
	Message     string   `json:"message"`
}

type PotabilityModelInfo struct {
	Model    string   `json:"model"`
	Features []string `json:"features"`
	Train    int      `json:"train_rows"`
	Test     int      `json:"test_rows"`
	Accuracy float64  `json:"accuracy"`
}
