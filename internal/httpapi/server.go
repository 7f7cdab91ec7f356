package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelsync/internal/manager"
	"modelsync/internal/pubsub"
	"modelsync/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *manager.Manager satisfies it.
type Service interface {
	Views() []types.ModelView
	View(modelID string) (types.ModelView, bool)
	Selected() string
	Select(modelID string) error
	ClearSelection()
	Refresh(ctx context.Context) error

	Download(ctx context.Context, modelID string) (types.ActionResponse, error)
	Load(ctx context.Context, modelID string) (types.ActionResponse, error)
	Unload(ctx context.Context, modelID string) (types.ActionResponse, error)

	Generate(ctx context.Context, req types.GenerationRequest) (manager.Result, error)
	CancelGeneration() string
	RecentResults() []manager.Result
	Result(requestID string) (manager.Result, bool)

	Status() types.StatusResponse
	Ready() bool
}

// EventSource feeds GET /events. A nil source disables the stream.
type EventSource = pubsub.Subscriber[manager.Event]

// NewMux builds the local API router.
func NewMux(svc Service, events EventSource) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.LocalModelsResponse{Models: svc.Views(), Selected: svc.Selected()})
	})

	r.Get("/models/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		v, ok := svc.View(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, manager.ErrModelNotFound(id).Error())
			return
		}
		writeJSON(w, http.StatusOK, v)
	})

	r.Post("/models/{id}/download", actionHandler("download", svc.Download))
	r.Post("/models/{id}/load", actionHandler("load", svc.Load))
	r.Post("/models/{id}/unload", actionHandler("unload", svc.Unload))

	r.Post("/select", func(w http.ResponseWriter, r *http.Request) {
		var req types.SelectRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.ModelID) == "" {
			svc.ClearSelection()
		} else if err := svc.Select(req.ModelID); err != nil {
			status, msg := statusFor(err)
			writeJSONError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, types.SelectResponse{Selected: svc.Selected()})
	})

	r.Post("/refresh", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Refresh(r.Context()); err != nil {
			status, msg := statusFor(err)
			writeJSONError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, types.LocalModelsResponse{Models: svc.Views(), Selected: svc.Selected()})
	})

	r.Post("/generate", generateHandler(svc))

	r.Post("/generate/cancel", func(w http.ResponseWriter, r *http.Request) {
		id := svc.CancelGeneration()
		writeJSON(w, http.StatusOK, types.CancelResponse{RequestID: id, Cancelled: id != ""})
	})

	r.Get("/generations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"results": svc.RecentResults()})
	})

	r.Get("/generations/{id}", func(w http.ResponseWriter, r *http.Request) {
		res, ok := svc.Result(chi.URLParam(r, "id"))
		if !ok {
			writeJSONError(w, http.StatusNotFound, "generation not found")
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/events", eventsHandler(events))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("disconnected"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// actionHandler serves POST /models/{id}/<verb>.
func actionHandler(verb string, call func(context.Context, string) (types.ActionResponse, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		ack, err := call(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			status, msg := statusFor(err)
			writeJSONError(w, status, msg)
			logEnd(r, lvl, verb, status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, ack)
		logEnd(r, lvl, verb, http.StatusOK, start, nil)
	}
}

// decodeJSON enforces a JSON content type and the body size limit, then
// decodes into v. On failure it writes the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
