package httpapi

import (
	"context"
	"net/http"
	"time"

	"modelsync/internal/generation"
	"modelsync/internal/manager"
	"modelsync/pkg/types"
)

// generateHandler serves POST /generate. The request blocks until the
// backend answers; the guard rejects a second concurrent request with 409.
func generateHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerationRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		start := time.Now()
		lvl := requestLogLevel(r)

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if generateTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, generateTimeout)
			defer tcancel()
		}

		res, err := svc.Generate(ctx, req)
		if err != nil {
			// Client went away or the server is shutting down.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			switch {
			case generation.IsAlreadyInFlight(err):
				IncrementRejection("in_flight")
			case generation.IsNotReady(err):
				IncrementRejection("not_ready")
			case manager.IsInvalidRequest(err):
				IncrementRejection("invalid")
			}
			status, msg := statusFor(err)
			writeJSONError(w, status, msg)
			logEnd(r, lvl, "generate", status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		logEnd(r, lvl, "generate", http.StatusOK, start, nil)
	}
}
