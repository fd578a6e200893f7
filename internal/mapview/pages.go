package mapview

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"aquavision/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageHome       = "home"
	PageTurbidity  = "turbidity"
	PagePotability = "potability"
	PageDetect     = "detect"
)

var pageTitles = map[string]string{
	PageHome:       "Home",
	PageTurbidity:  "Water Turbidity Analysis",
	PagePotability: "Water Potability Prediction",
	PageDetect:     "Plastic Waste Detection",
}

// FormField is one numeric input on the potability form.
type FormField struct {
	Key   string
	Label string
	Max   float64 // 0 = unbounded
	Step  float64
}

// PotabilityFields follow the classifier's feature order.
var PotabilityFields = []FormField{
	{Key: "ph", Label: "pH Value", Max: 14, Step: 0.1},
	{Key: "hardness", Label: "Hardness (mg/L)", Step: 0.1},
	{Key: "solids", Label: "Solids (ppm)", Step: 1},
	{Key: "chloramines", Label: "Chloramines (ppm)", Step: 0.1},
	{Key: "sulfate", Label: "Sulfate (mg/L)", Step: 0.1},
	{Key: "conductivity", Label: "Conductivity (μS/cm)", Step: 0.1},
	{Key: "organic_carbon", Label: "Organic Carbon (mg/L)", Step: 0.1},
	{Key: "trihalomethanes", Label: "Trihalomethanes (μg/L)", Step: 0.1},
	{Key: "turbidity", Label: "Turbidity (NTU)", Step: 0.1},
}

type PageData struct {
	Title       string
	Active      string
	Map         models.MapState
	Window      string
	Legends     []string
	Fields      []FormField
	MaxUploadMB int64
}

type Pages struct {
	tmpl map[string]*template.Template
}

// NewPages parses every page against the shared layout.
func NewPages() (*Pages, error) {
	p := &Pages{tmpl: make(map[string]*template.Template, len(pageTitles))}
	for name := range pageTitles {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		p.tmpl[name] = t
	}
	return p, nil
}

// Render executes into a buffer first so a template error never leaves a
// half-written response.
func (p *Pages) Render(w io.Writer, name string, data PageData) error {
	t, ok := p.tmpl[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	data.Active = name
	if data.Title == "" {
		data.Title = pageTitles[name]
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render page %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
