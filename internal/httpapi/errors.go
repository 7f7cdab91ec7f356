package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"modelsync/internal/apiclient"
	"modelsync/internal/generation"
	"modelsync/internal/manager"
	"modelsync/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps service errors to a status code and the message shown to
// the caller. Backend rejections keep their status and detail text; backend
// server errors surface as 502.
func statusFor(err error) (int, string) {
	var ue *apiclient.UpstreamError
	var he HTTPError
	switch {
	case manager.IsModelNotFound(err):
		return http.StatusNotFound, err.Error()
	case manager.IsInvalidRequest(err), generation.IsNotReady(err):
		return http.StatusBadRequest, err.Error()
	case generation.IsAlreadyInFlight(err), manager.IsCancelled(err):
		return http.StatusConflict, err.Error()
	case manager.IsNotRunning(err):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &ue):
		if ue.Status >= 400 && ue.Status < 500 {
			return ue.Status, apiclient.DetailOf(err)
		}
		return http.StatusBadGateway, apiclient.DetailOf(err)
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, err.Error()
	case errors.As(err, &he):
		return he.StatusCode(), he.Error()
	}
	return http.StatusInternalServerError, err.Error()
}
