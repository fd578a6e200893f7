package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"aquavision/internal/auth"
	"aquavision/internal/detection"
	"aquavision/internal/earthengine"
	"aquavision/internal/geometry"
	"aquavision/internal/potability"
	"aquavision/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(data)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		eeErr      *earthengine.APIError
		eeDown     *earthengine.TransportError
		servingErr *potability.ServingError
		hostErr    *detection.HostError
	)

	switch {
	case errors.Is(err, geometry.ErrNotPolygon),
		errors.Is(err, geometry.ErrTooFewPoints),
		errors.Is(err, geometry.ErrNotClosed),
		errors.Is(err, geometry.ErrNotRectangle),
		errors.Is(err, geometry.ErrWinding),
		errors.Is(err, geometry.ErrDegenerate),
		errors.Is(err, geometry.ErrOutOfRange),
		errors.Is(err, potability.ErrInvalidSample):
		return http.StatusUnprocessableEntity
	case errors.Is(err, detection.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, potability.ErrNotLoaded), errors.Is(err, detection.ErrNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &eeErr), errors.As(err, &eeDown),
		errors.As(err, &servingErr), errors.As(err, &hostErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// publicMessage hides internal failures behind a generic message.
func publicMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
