package mapview

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"aquavision/internal/palette"
)

const (
	legendWidth  = 256
	legendHeight = 64
	barHeight    = 16
	legendMargin = 8
)

// Legend draws a horizontal color bar for ramp with its range and title.
func Legend(title string, ramp *palette.Ramp) *image.NRGBA {
	img := imaging.New(legendWidth, legendHeight, color.White)

	barW := legendWidth - 2*legendMargin
	for x := 0; x < barW; x++ {
		v := ramp.Min + (ramp.Max-ramp.Min)*float64(x)/float64(barW-1)
		c := ramp.At(v)
		for y := legendMargin; y < legendMargin+barHeight; y++ {
			img.Set(legendMargin+x, y, c)
		}
	}

	baseline := legendMargin + barHeight + 14
	mid := (ramp.Min + ramp.Max) / 2
	drawText(img, formatTick(ramp.Min), legendMargin, baseline, alignLeft)
	drawText(img, formatTick(mid), legendWidth/2, baseline, alignCenter)
	drawText(img, formatTick(ramp.Max), legendWidth-legendMargin, baseline, alignRight)
	drawText(img, title, legendWidth/2, legendHeight-2, alignCenter)
	return img
}

// WriteLegend encodes the legend as PNG.
func WriteLegend(w io.Writer, title string, ramp *palette.Ramp) error {
	if err := imaging.Encode(w, Legend(title, ramp), imaging.PNG); err != nil {
		return fmt.Errorf("encode legend: %w", err)
	}
	return nil
}

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

func drawText(dst *image.NRGBA, s string, x, y int, a align) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(s).Ceil()
	switch a {
	case alignCenter:
		x -= width / 2
	case alignRight:
		x -= width
	}
	d.Dot = fixed.P(x, y)
	d.DrawString(s)
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', 3, 64)
}
