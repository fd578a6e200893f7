package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"aquavision/internal/middleware"
	"aquavision/internal/services"
)

const uploadField = "image"

type DetectionHandler struct {
	service  *services.DetectionService
	maxBytes int64
	logr     *zap.Logger
}

func NewDetectionHandler(svc *services.DetectionService, maxBytes int64, logr *zap.Logger) *DetectionHandler {
	return &DetectionHandler{service: svc, maxBytes: maxBytes, logr: logr}
}

// POST /api/v1/detections (multipart form, field "image")
func (h *DetectionHandler) Detect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with an image field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer file.Close()

	result, err := h.service.Detect(r.Context(), file, header.Filename, middleware.OperatorID(r.Context()))
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			h.logr.Error("detection failed", zap.Error(err), zap.String("file", header.Filename), zap.Int("status", status))
		} else {
			h.logr.Warn("detection rejected", zap.Error(err), zap.String("file", header.Filename))
		}
		writeError(w, status, publicMessage(status, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}
