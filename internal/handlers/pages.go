package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"aquavision/internal/mapview"
	"aquavision/internal/pipeline"
	"aquavision/internal/services"
)

// PageHandler serves the server-rendered dashboard pages.
type PageHandler struct {
	pages     *mapview.Pages
	turbidity *services.TurbidityService
	maxUpload int64
	logr      *zap.Logger
}

func NewPageHandler(pages *mapview.Pages, turbidity *services.TurbidityService, maxUpload int64, logr *zap.Logger) *PageHandler {
	return &PageHandler{pages: pages, turbidity: turbidity, maxUpload: maxUpload, logr: logr}
}

func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, mapview.PageHome, mapview.PageData{})
}

func (h *PageHandler) Turbidity(w http.ResponseWriter, r *http.Request) {
	start, end := h.turbidity.Window()
	h.render(w, mapview.PageTurbidity, mapview.PageData{
		Map:     h.turbidity.DefaultMap(),
		Window:  start + " to " + end,
		Legends: []string{pipeline.IndexNDWI, pipeline.IndexNDTI},
	})
}

func (h *PageHandler) Potability(w http.ResponseWriter, r *http.Request) {
	h.render(w, mapview.PagePotability, mapview.PageData{Fields: mapview.PotabilityFields})
}

func (h *PageHandler) Detect(w http.ResponseWriter, r *http.Request) {
	h.render(w, mapview.PageDetect, mapview.PageData{MaxUploadMB: h.maxUpload >> 20})
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data mapview.PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.pages.Render(w, name, data); err != nil {
		h.logr.Error("page render failed", zap.Error(err), zap.String("page", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
