package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"aquavision/internal/geometry"
	"aquavision/internal/mapview"
	"aquavision/internal/middleware"
	"aquavision/internal/pipeline"
	"aquavision/internal/services"
)

const maxDrawingBytes = 1 << 20

type TurbidityHandler struct {
	service *services.TurbidityService
	logr    *zap.Logger
}

func NewTurbidityHandler(svc *services.TurbidityService, logr *zap.Logger) *TurbidityHandler {
	return &TurbidityHandler{service: svc, logr: logr}
}

// GET /api/v1/map
func (h *TurbidityHandler) DefaultMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.DefaultMap())
}

// POST /api/v1/turbidity/analyze
// Body is the GeoJSON FeatureCollection of the map's drawn items.
func (h *TurbidityHandler) AnalyzeDrawings(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDrawingBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "drawing payload too large")
		return
	}

	fc := geojson.NewFeatureCollection()
	if len(strings.TrimSpace(string(data))) > 0 {
		fc, err = geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			h.logr.Warn("invalid drawing payload", zap.Error(err))
			writeError(w, http.StatusBadRequest, "body must be a GeoJSON FeatureCollection")
			return
		}
	}

	resp, err := h.service.AnalyzeDrawings(r.Context(), fc, middleware.OperatorID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/turbidity/analyze?bbox=minLon,minLat,maxLon,maxLat
func (h *TurbidityHandler) AnalyzeBBox(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("bbox")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "bbox query parameter is required")
		return
	}
	bbox, err := geometry.ParseBBox(raw)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	resp, err := h.service.AnalyzeBBox(r.Context(), bbox, middleware.OperatorID(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/legends/{file} where file is NDWI.png or NDTI.png
func (h *TurbidityHandler) Legend(w http.ResponseWriter, r *http.Request) {
	name := strings.ToUpper(strings.TrimSuffix(chi.URLParam(r, "file"), ".png"))

	var ramp = pipeline.NDWIPalette
	switch name {
	case pipeline.IndexNDWI:
	case pipeline.IndexNDTI:
		ramp = pipeline.NDTIPalette
	default:
		writeError(w, http.StatusNotFound, "unknown index "+name)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if err := mapview.WriteLegend(w, name, ramp); err != nil {
		h.logr.Error("legend render failed", zap.Error(err))
	}
}

func (h *TurbidityHandler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.logr.Error("turbidity analysis failed", zap.Error(err), zap.Int("status", status))
	} else {
		h.logr.Warn("turbidity request rejected", zap.Error(err))
	}
	writeError(w, status, publicMessage(status, err))
}
