package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"aquavision/internal/models"
	"aquavision/internal/services"
	"aquavision/internal/store"
	"aquavision/internal/utils"
)

type RunHandler struct {
	service *services.RunService
	logr    *zap.Logger
}

func NewRunHandler(svc *services.RunService, logr *zap.Logger) *RunHandler {
	return &RunHandler{service: svc, logr: logr}
}

// GET /api/v1/runs?kind=turbidity,detection&limit=20&offset=0
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := store.NormalizeQuery(models.RunsQueryParams{
		Kinds:  utils.ParseQueryList(q, "kind"),
		Limit:  utils.ParseQueryInt(q, "limit", store.DefaultLimit),
		Offset: utils.ParseQueryInt(q, "offset", 0),
	})

	resp, err := h.service.List(r.Context(), params)
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			h.logr.Error("failed to list runs", zap.Error(err))
		}
		writeError(w, status, publicMessage(status, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/v1/runs/{id}
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		status := statusFor(err)
		if status >= 500 {
			h.logr.Error("failed to get run", zap.Error(err))
		}
		writeError(w, status, publicMessage(status, err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}
