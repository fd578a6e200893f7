package detection

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
)

var ErrUnsupportedImage = errors.New("unsupported image: upload a jpg or png")

// Decode reads a jpg/png upload, honoring EXIF orientation.
func Decode(r io.Reader, filename string) (image.Image, error) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil || (format != imaging.JPEG && format != imaging.PNG) {
		return nil, ErrUnsupportedImage
	}

	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	return img, nil
}

// FlattenRGB composites img over white so the result has no transparency.
func FlattenRGB(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// Downscale shrinks img so its longer side is at most maxSide and returns
// the factor applied. Images already small enough are returned as is.
func Downscale(img image.Image, maxSide int) (image.Image, float64) {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if maxSide <= 0 || longest <= maxSide {
		return img, 1
	}

	scale := float64(maxSide) / float64(longest)
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	return transform.Resize(img, w, h, transform.Linear), scale
}
