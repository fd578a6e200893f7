package detection

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"aquavision/internal/models"
	"aquavision/internal/palette"
)

const (
	boxStroke   = 3
	labelPadX   = 3
	jpegQuality = 90
)

// Annotate draws each detection's box and "class confidence" label on a
// copy of img.
func Annotate(img image.Image, dets []models.Detection) *image.NRGBA {
	out := imaging.Clone(img)
	face := basicfont.Face7x13

	for _, d := range dets {
		c := palette.ForLabel(d.Class)
		r := image.Rect(d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2).Intersect(out.Bounds())
		if r.Empty() {
			continue
		}
		strokeRect(out, r, c)

		text := fmt.Sprintf("%s %.2f", d.Class, d.Confidence)
		dr := &font.Drawer{Dst: out, Src: image.White, Face: face}
		w := dr.MeasureString(text).Ceil() + 2*labelPadX
		h := face.Height

		top := r.Min.Y - h
		if top < 0 {
			top = r.Min.Y
		}
		bg := image.Rect(r.Min.X, top, r.Min.X+w, top+h).Intersect(out.Bounds())
		draw.Draw(out, bg, image.NewUniform(c), image.Point{}, draw.Src)

		dr.Dot = fixed.P(r.Min.X+labelPadX, top+face.Ascent)
		dr.DrawString(text)
	}
	return out
}

func strokeRect(dst draw.Image, r image.Rectangle, c color.Color) {
	src := image.NewUniform(c)
	t := min(boxStroke, r.Dx(), r.Dy())
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}

func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveResult writes data under dir with a fresh name and returns the path.
func SaveResult(dir string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	path := filepath.Join(dir, "result_"+uuid.NewString()+".jpg")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save result: %w", err)
	}
	return path, nil
}
