package detection

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aquavision/internal/models"
	"aquavision/internal/palette"
)

func encodePNG(t *testing.T, img image.Image) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return &buf
}

func TestDecodeRejectsUnsupported(t *testing.T) {
	img := imaging.New(4, 4, color.White)

	_, err := Decode(encodePNG(t, img), "trash.gif")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = Decode(bytes.NewReader([]byte("not an image")), "trash.png")
	assert.ErrorIs(t, err, ErrUnsupportedImage)

	got, err := Decode(encodePNG(t, img), "trash.PNG")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Bounds().Dx())
}

func TestFlattenRGB(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{R: 255, A: 0})

	out := FlattenRGB(img)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, out.NRGBAAt(1, 0))
}

func TestDownscale(t *testing.T) {
	big := imaging.New(2000, 1000, color.White)
	out, scale := Downscale(big, 1000)
	assert.Equal(t, 0.5, scale)
	assert.Equal(t, image.Pt(1000, 500), out.Bounds().Size())

	small := imaging.New(300, 200, color.White)
	out, scale = Downscale(small, 1000)
	assert.Equal(t, 1.0, scale)
	assert.Same(t, small, out)
}

func TestAnnotateDrawsClassColoredBox(t *testing.T) {
	img := imaging.New(200, 200, color.White)
	dets := []models.Detection{{Class: "plastic", Confidence: 0.9, Box: models.Box{X1: 50, Y1: 60, X2: 150, Y2: 160}}}

	out := Annotate(img, dets)

	want := color.NRGBAModel.Convert(palette.ForLabel("plastic")).(color.NRGBA)
	assert.Equal(t, want, out.NRGBAAt(100, 159), "bottom edge")
	assert.Equal(t, want, out.NRGBAAt(50, 100), "left edge")
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, out.NRGBAAt(100, 110), "interior untouched")
	assert.Equal(t, color.NRGBA{255, 255, 255, 255}, img.NRGBAAt(100, 159), "input untouched")
}

func TestScaleBoxClamps(t *testing.T) {
	got := scaleBox(models.Box{X1: -3, Y1: 10, X2: 700, Y2: 20}, 0.5, 1000, 500)
	assert.Equal(t, models.Box{X1: 0, Y1: 20, X2: 1000, Y2: 40}, got)
}

type fakeHost struct {
	srv        *httptest.Server
	inputSizes []image.Point
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	h := &fakeHost{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/models", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if _, err := os.Stat(body["weights"]); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"weights not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"model":"m1","classes":["plastic","bottle"]}`))
	})
	mux.HandleFunc("POST /v1/models/m1:detect", func(w http.ResponseWriter, r *http.Request) {
		f, _, err := r.FormFile("image")
		require.NoError(t, err)
		img, err := imaging.Decode(f)
		require.NoError(t, err)
		h.inputSizes = append(h.inputSizes, img.Bounds().Size())
		_, _ = w.Write([]byte(`{"detections":[{"class":"plastic","confidence":0.87,"box":{"x1":100,"y1":100,"x2":200,"y2":150}}]}`))
	})
	h.srv = httptest.NewServer(mux)
	t.Cleanup(h.srv.Close)
	return h
}

func weightsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "best.pt")
	require.NoError(t, os.WriteFile(path, []byte("weights"), 0o600))
	return path
}

func TestDetectorRun(t *testing.T) {
	host := newFakeHost(t)
	results := t.TempDir()
	d := NewDetector(NewClient(host.srv.URL, host.srv.Client(), nil), Options{
		WeightsPath: weightsFile(t),
		ResultsDir:  results,
		MaxSide:     1280,
	}, nil)

	ctx := context.Background()
	require.NoError(t, d.Load(ctx))
	assert.True(t, d.Loaded())
	assert.Equal(t, []string{"plastic", "bottle"}, d.Classes())

	upload := imaging.New(2560, 1280, color.NRGBA{0, 80, 120, 255})
	res, err := d.Run(ctx, encodePNG(t, upload), "reef.png")
	require.NoError(t, err)

	assert.Equal(t, []image.Point{{1280, 640}}, host.inputSizes)
	assert.Equal(t, 2560, res.Width)
	assert.Equal(t, 1280, res.Height)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, models.Box{X1: 200, Y1: 200, X2: 400, Y2: 300}, res.Detections[0].Box)
	assert.Equal(t, "image/jpeg", res.MimeType)

	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	require.NoError(t, err)
	annotated, err := imaging.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Pt(2560, 1280), annotated.Bounds().Size())

	require.NotEmpty(t, res.SavedPath)
	assert.Equal(t, results, filepath.Dir(res.SavedPath))
	saved, err := os.ReadFile(res.SavedPath)
	require.NoError(t, err)
	assert.Equal(t, data, saved)
}

func TestDetectorLoadErrors(t *testing.T) {
	host := newFakeHost(t)
	client := NewClient(host.srv.URL, host.srv.Client(), nil)

	d := NewDetector(client, Options{WeightsPath: filepath.Join(t.TempDir(), "missing.pt")}, nil)
	assert.ErrorIs(t, d.Load(context.Background()), os.ErrNotExist)
	assert.False(t, d.Loaded())

	_, err := d.Run(context.Background(), bytes.NewReader(nil), "x.png")
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestClientSurfacesHostErrors(t *testing.T) {
	host := newFakeHost(t)
	client := NewClient(host.srv.URL, host.srv.Client(), nil)

	_, err := client.LoadWeights(context.Background(), "/nope/best.pt")
	var he *HostError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.StatusCode)
	assert.Equal(t, "weights not found", he.Message)
}

func TestClientUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(srv.URL, nil, nil)
	_, err := client.LoadWeights(context.Background(), "best.pt")

	var he *HostError
	require.ErrorAs(t, err, &he)
	assert.Zero(t, he.StatusCode)
	assert.Contains(t, err.Error(), "unreachable")
}
