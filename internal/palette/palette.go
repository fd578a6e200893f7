// Package palette resolves color ramps used for index rendering and legends.
package palette

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// named holds the CSS color keywords the dashboards use.
var named = map[string]string{
	"black":  "#000000",
	"blue":   "#0000ff",
	"cyan":   "#00ffff",
	"green":  "#008000",
	"lime":   "#00ff00",
	"orange": "#ffa500",
	"purple": "#800080",
	"red":    "#ff0000",
	"white":  "#ffffff",
	"yellow": "#ffff00",
}

// Parse accepts a CSS keyword or a hex color with or without the leading '#'.
func Parse(s string) (colorful.Color, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if hex, ok := named[key]; ok {
		key = hex
	}
	if !strings.HasPrefix(key, "#") {
		key = "#" + key
	}
	c, err := colorful.Hex(key)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("palette: unknown color %q", s)
	}
	return c, nil
}

// Ramp is an ordered list of color stops spread evenly over [Min, Max].
type Ramp struct {
	Names []string
	Min   float64
	Max   float64

	stops []colorful.Color
}

func NewRamp(min, max float64, names ...string) (*Ramp, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("palette: ramp needs at least one color")
	}
	if max <= min {
		return nil, fmt.Errorf("palette: invalid range [%g, %g]", min, max)
	}
	r := &Ramp{Names: names, Min: min, Max: max}
	for _, n := range names {
		c, err := Parse(n)
		if err != nil {
			return nil, err
		}
		r.stops = append(r.stops, c)
	}
	return r, nil
}

// MustRamp is NewRamp for package-level palettes.
func MustRamp(min, max float64, names ...string) *Ramp {
	r, err := NewRamp(min, max, names...)
	if err != nil {
		panic(err)
	}
	return r
}

// Hex returns the stops as bare hex strings, the form tile services expect.
func (r *Ramp) Hex() []string {
	out := make([]string, len(r.stops))
	for i, c := range r.stops {
		out[i] = strings.TrimPrefix(c.Hex(), "#")
	}
	return out
}

// At samples the ramp at value v, clamping outside [Min, Max].
func (r *Ramp) At(v float64) colorful.Color {
	if len(r.stops) == 1 {
		return r.stops[0]
	}
	t := (v - r.Min) / (r.Max - r.Min)
	switch {
	case t <= 0:
		return r.stops[0]
	case t >= 1:
		return r.stops[len(r.stops)-1]
	}

	pos := t * float64(len(r.stops)-1)
	i := int(pos)
	frac := pos - float64(i)
	if frac == 0 {
		return r.stops[i]
	}
	return r.stops[i].BlendLab(r.stops[i+1], frac).Clamped()
}

// ForLabel gives a stable, readable color for a class label.
func ForLabel(label string) colorful.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	hue := float64(h.Sum32() % 360)
	return colorful.Hcl(hue, 0.8, 0.6).Clamped()
}
