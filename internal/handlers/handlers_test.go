package handlers

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aquavision/internal/analytics"
	"aquavision/internal/auth"
	"aquavision/internal/detection"
	"aquavision/internal/earthengine"
	"aquavision/internal/geometry"
	"aquavision/internal/mapview"
	"aquavision/internal/models"
	"aquavision/internal/pipeline"
	"aquavision/internal/potability"
	"aquavision/internal/services"
	"aquavision/internal/store"
	"aquavision/internal/tiles"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("extract: %w", geometry.ErrNotRectangle), http.StatusUnprocessableEntity},
		{geometry.ErrOutOfRange, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: ph", potability.ErrInvalidSample), http.StatusUnprocessableEntity},
		{detection.ErrUnsupportedImage, http.StatusBadRequest},
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrHistoryDisabled, http.StatusNotFound},
		{potability.ErrNotLoaded, http.StatusServiceUnavailable},
		{detection.ErrNotLoaded, http.StatusServiceUnavailable},
		{fmt.Errorf("count scenes: %w", &earthengine.APIError{StatusCode: 403}), http.StatusBadGateway},
		{&potability.ServingError{StatusCode: 500}, http.StatusBadGateway},
		{&detection.HostError{StatusCode: 500}, http.StatusBadGateway},
		{fmt.Errorf("compute value: %w", &earthengine.TransportError{Path: "/v1/x", Err: errors.New("connection refused")}), http.StatusBadGateway},
		{&potability.ServingError{Message: "connection refused"}, http.StatusBadGateway},
		{&detection.HostError{Message: "connection refused"}, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&earthengine.TransportError{Path: "/v1/x", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

type fakeEE struct {
	size    int
	sizeErr error
}

func (f *fakeEE) CollectionSize(context.Context, earthengine.ImageCollection) (int, error) {
	return f.size, f.sizeErr
}

func (f *fakeEE) CreateMap(_ context.Context, _ earthengine.Image, _ earthengine.Visualization) (*earthengine.MapHandle, error) {
	return &earthengine.MapHandle{Name: "projects/p/maps/m", TileURL: "https://ee/v1/projects/p/maps/m/tiles/{z}/{x}/{y}"}, nil
}

func newTurbidityService(ee *fakeEE) *services.TurbidityService {
	logr := zap.NewNop()
	base := models.MapState{Center: [2]float64{20.5937, 78.9629}, Zoom: 5, Overlays: []models.Overlay{}}
	return services.NewTurbidityService(
		pipeline.New(ee, pipeline.DefaultParams(), logr),
		tiles.NewRenderer(ee, logr),
		base,
		store.Disabled{},
		analytics.Nop{},
		logr,
	)
}

const rectangleDrawing = `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
"geometry":{"type":"Polygon","coordinates":[[[77.0,12.0],[77.0,12.1],[77.1,12.1],[77.1,12.0],[77.0,12.0]]]}}]}`

func TestAnalyzeDrawings(t *testing.T) {
	h := NewTurbidityHandler(newTurbidityService(&fakeEE{size: 3}), zap.NewNop())

	rec := httptest.NewRecorder()
	h.AnalyzeDrawings(rec, httptest.NewRequest(http.MethodPost, "/api/v1/turbidity/analyze", strings.NewReader(rectangleDrawing)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp models.TurbidityResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Drawn)
	assert.False(t, resp.Empty)
	assert.Equal(t, 3, resp.Scenes)
	require.Len(t, resp.Map.Overlays, 2)
	assert.Equal(t, pipeline.IndexNDWI, resp.Map.Overlays[0].Name)
	assert.Equal(t, pipeline.IndexNDTI, resp.Map.Overlays[1].Name)
	require.NotNil(t, resp.BoundingBox)
	assert.Equal(t, 77.1, resp.BoundingBox.MaxLon)
}

func TestAnalyzeDrawingsWithoutDrawing(t *testing.T) {
	h := NewTurbidityHandler(newTurbidityService(&fakeEE{size: 3}), zap.NewNop())

	for _, body := range []string{"", `{"type":"FeatureCollection","features":[]}`} {
		rec := httptest.NewRecorder()
		h.AnalyzeDrawings(rec, httptest.NewRequest(http.MethodPost, "/api/v1/turbidity/analyze", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.TurbidityResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.False(t, resp.Drawn)
		assert.Empty(t, resp.Map.Overlays)
		assert.Equal(t, 5, resp.Map.Zoom)
	}
}

func TestAnalyzeDrawingsErrors(t *testing.T) {
	cases := []struct {
		name string
		ee   *fakeEE
		body string
		want int
	}{
		{"malformed json", &fakeEE{}, `{"type":`, http.StatusBadRequest},
		{"not a rectangle", &fakeEE{}, `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},
"geometry":{"type":"Polygon","coordinates":[[[0,0],[0,1],[0.5,1.5],[1,1],[1,0],[0,0]]]}}]}`, http.StatusUnprocessableEntity},
		{"catalog failure", &fakeEE{sizeErr: &earthengine.APIError{StatusCode: 403, Message: "denied"}}, rectangleDrawing, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewTurbidityHandler(newTurbidityService(tc.ee), zap.NewNop())
			rec := httptest.NewRecorder()
			h.AnalyzeDrawings(rec, httptest.NewRequest(http.MethodPost, "/api/v1/turbidity/analyze", strings.NewReader(tc.body)))
			assert.Equal(t, tc.want, rec.Code)

			var body errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestAnalyzeDrawingsUnreachableCatalog(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	logr := zap.NewNop()
	ee := earthengine.NewClient("p", earthengine.StaticToken("tok"), earthengine.WithBaseURL(srv.URL))
	svc := services.NewTurbidityService(
		pipeline.New(ee, pipeline.DefaultParams(), logr),
		tiles.NewRenderer(ee, logr),
		models.MapState{Overlays: []models.Overlay{}},
		store.Disabled{}, analytics.Nop{}, logr,
	)
	h := NewTurbidityHandler(svc, logr)

	rec := httptest.NewRecorder()
	h.AnalyzeDrawings(rec, httptest.NewRequest(http.MethodPost, "/api/v1/turbidity/analyze", strings.NewReader(rectangleDrawing)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body.Error, "earthengine")
}

func TestAnalyzeBBox(t *testing.T) {
	h := NewTurbidityHandler(newTurbidityService(&fakeEE{size: 0}), zap.NewNop())

	rec := httptest.NewRecorder()
	h.AnalyzeBBox(rec, httptest.NewRequest(http.MethodGet, "/api/v1/turbidity/analyze?bbox=77,12,77.1,12.1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.TurbidityResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Empty)
	assert.Empty(t, resp.Map.Overlays)

	for _, q := range []string{"", "?bbox=1,2,3", "?bbox=a,b,c,d"} {
		rec = httptest.NewRecorder()
		h.AnalyzeBBox(rec, httptest.NewRequest(http.MethodGet, "/api/v1/turbidity/analyze"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestLegend(t *testing.T) {
	h := NewTurbidityHandler(newTurbidityService(&fakeEE{}), zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/v1/legends/{file}", h.Legend)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/legends/NDTI.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/legends/EVI.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeModel struct{ err error }

func (f fakeModel) Predict(_ context.Context, s models.WaterSample) (*models.PotabilityResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s.PH > 14 {
		return nil, fmt.Errorf("%w: ph must be between 0 and 14", potability.ErrInvalidSample)
	}
	return &models.PotabilityResult{Potable: true, Label: 1, Message: potability.MessagePotable}, nil
}

func (f fakeModel) Info() (models.PotabilityModelInfo, error) {
	if f.err != nil {
		return models.PotabilityModelInfo{}, f.err
	}
	return models.PotabilityModelInfo{Model: "water-potability", Features: potability.FeatureColumns}, nil
}

func TestPotabilityPredict(t *testing.T) {
	cases := []struct {
		name  string
		model fakeModel
		body  string
		want  int
	}{
		{"ok", fakeModel{}, `{"ph":7,"hardness":200,"solids":20000,"chloramines":7,"sulfate":330,"conductivity":420,"organic_carbon":14,"trihalomethanes":66,"turbidity":4}`, http.StatusOK},
		{"invalid sample", fakeModel{}, `{"ph":15}`, http.StatusUnprocessableEntity},
		{"unknown field", fakeModel{}, `{"ph":7,"lead":1}`, http.StatusBadRequest},
		{"not loaded", fakeModel{err: potability.ErrNotLoaded}, `{"ph":7}`, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := services.NewPotabilityService(tc.model, store.Disabled{}, analytics.Nop{}, zap.NewNop())
			h := NewPotabilityHandler(svc, zap.NewNop())

			rec := httptest.NewRecorder()
			h.Predict(rec, httptest.NewRequest(http.MethodPost, "/api/v1/potability/predict", strings.NewReader(tc.body)))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestPotabilityModel(t *testing.T) {
	svc := services.NewPotabilityService(fakeModel{}, store.Disabled{}, analytics.Nop{}, zap.NewNop())
	h := NewPotabilityHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Model(rec, httptest.NewRequest(http.MethodGet, "/api/v1/potability/model", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Trihalomethanes"`)
}

type fakeDetector struct{ err error }

func (f fakeDetector) Run(_ context.Context, r io.Reader, filename string) (*models.DetectionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, _ := io.ReadAll(r)
	if !strings.HasSuffix(filename, ".jpg") {
		return nil, detection.ErrUnsupportedImage
	}
	return &models.DetectionResult{Width: len(data), Height: 1, Detections: []models.Detection{}}, nil
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name     string
		det      fakeDetector
		field    string
		filename string
		want     int
	}{
		{"ok", fakeDetector{}, "image", "reef.jpg", http.StatusOK},
		{"wrong field", fakeDetector{}, "file", "reef.jpg", http.StatusBadRequest},
		{"unsupported", fakeDetector{}, "image", "reef.gif", http.StatusBadRequest},
		{"not loaded", fakeDetector{err: detection.ErrNotLoaded}, "image", "reef.jpg", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := services.NewDetectionService(tc.det, store.Disabled{}, analytics.Nop{}, zap.NewNop())
			h := NewDetectionHandler(svc, 1<<20, zap.NewNop())

			body, ctype := multipartBody(t, tc.field, tc.filename, []byte("jpegbytes"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", body)
			req.Header.Set("Content-Type", ctype)

			rec := httptest.NewRecorder()
			h.Detect(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestDetectRejectsOversizedUpload(t *testing.T) {
	svc := services.NewDetectionService(fakeDetector{}, store.Disabled{}, analytics.Nop{}, zap.NewNop())
	h := NewDetectionHandler(svc, 512, zap.NewNop())

	body, ctype := multipartBody(t, "image", "reef.jpg", bytes.Repeat([]byte{0xff}, 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/detections", body)
	req.Header.Set("Content-Type", ctype)

	rec := httptest.NewRecorder()
	h.Detect(rec, req)
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rec.Code)
}

func TestRunsWithoutHistory(t *testing.T) {
	h := NewRunHandler(services.NewRunService(store.Disabled{}, zap.NewNop()), zap.NewNop())
	r := chi.NewRouter()
	r.Get("/api/v1/runs", h.List)
	r.Get("/api/v1/runs/{id}", h.Get)

	for _, path := range []string{"/api/v1/runs?kind=turbidity", "/api/v1/runs/abc"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "history")
	}
}

func TestPages(t *testing.T) {
	pages, err := mapview.NewPages()
	require.NoError(t, err)
	h := NewPageHandler(pages, newTurbidityService(&fakeEE{}), 10<<20, zap.NewNop())

	cases := []struct {
		handler http.HandlerFunc
		want    string
	}{
		{h.Home, "Underwater Image Analysis"},
		{h.Turbidity, "/api/v1/legends/NDWI.png"},
		{h.Potability, "Trihalomethanes"},
		{h.Detect, "up to 10 MB"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		tc.handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, rec.Body.String(), tc.want)
	}
}

type memOperators struct {
	byEmail map[string]*models.Operator
}

func (m *memOperators) ByEmail(_ context.Context, email string) (*models.Operator, error) {
	op, ok := m.byEmail[email]
	if !ok {
		return nil, store.ErrOperatorNotFound
	}
	return op, nil
}

func (m *memOperators) Create(_ context.Context, op *models.Operator) error {
	op.ID = uuid.New()
	m.byEmail[op.Email] = op
	return nil
}

func (m *memOperators) TouchLogin(context.Context, uuid.UUID, string) error { return nil }

type rejectingDirectory struct{}

func (rejectingDirectory) Authenticate(context.Context, string, string) (*auth.DirectoryEntry, error) {
	return nil, auth.ErrInvalidCredentials
}

func TestLoginLocal(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	jwtm := auth.NewJWTManagerFromKey(key, nil, "aquavision")

	hash, err := services.HashPassword("hunter2")
	require.NoError(t, err)
	ops := &memOperators{byEmail: map[string]*models.Operator{
		"ops@water.example": {ID: uuid.New(), Email: "ops@water.example", PasswordHash: hash, Roles: []string{"analyst"}},
	}}
	h := NewAuthHandler(services.NewAuthService(ops, rejectingDirectory{}, jwtm, time.Hour, zap.NewNop()), zap.NewNop())

	rec := httptest.NewRecorder()
	h.LoginLocal(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ops@water.example","password":"hunter2"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	claims, err := jwtm.VerifyToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.Operator.ID, claims.Subject)

	rec = httptest.NewRecorder()
	h.LoginLocal(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"ops@water.example","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.LoginLDAP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/ldap",
		strings.NewReader(`{"username":"jdoe","password":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.LoginLocal(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
