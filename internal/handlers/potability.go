package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"aquavision/internal/middleware"
	"aquavision/internal/models"
	"aquavision/internal/services"
)

type PotabilityHandler struct {
	service *services.PotabilityService
	logr    *zap.Logger
}

func NewPotabilityHandler(svc *services.PotabilityService, logr *zap.Logger) *PotabilityHandler {
	return &PotabilityHandler{service: svc, logr: logr}
}

// POST /api/v1/potability/predict
func (h *PotabilityHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var sample models.WaterSample
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sample); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	result, err := h.service.Predict(r.Context(), sample, middleware.OperatorID(r.Context()))
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			h.logr.Error("potability prediction failed", zap.Error(err), zap.Int("status", status))
		}
		writeError(w, status, publicMessage(status, err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GET /api/v1/potability/model
func (h *PotabilityHandler) Model(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Model()
	if err != nil {
		status := statusFor(err)
		writeError(w, status, publicMessage(status, err))
		return
	}
	writeJSON(w, http.StatusOK, info)
}
