package manager

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelsync/internal/apiclient"
	"modelsync/internal/generation"
	"modelsync/internal/tracing"
	"modelsync/pkg/types"
)

// Generation request defaults and bounds, as enforced by the backend.
const (
	DefaultImageSize     = 1024
	DefaultSteps         = 8
	DefaultGuidanceScale = 0.0
	minImageSize         = 256
	maxImageSize         = 2048
	minSteps             = 1
	maxSteps             = 50
	maxGuidanceScale     = 20.0
)

// Result is a completed generation kept for listing.
type Result struct {
	RequestID   string               `json:"request_id"`
	Image       types.GeneratedImage `json:"image"`
	CompletedAt time.Time            `json:"completed_at"`
}

// NormalizeRequest fills defaults and validates req. An empty ModelID is
// replaced by selected.
func NormalizeRequest(req types.GenerationRequest, selected string) (types.GenerationRequest, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return req, invalidRequestError{msg: "prompt is required"}
	}
	if strings.TrimSpace(req.ModelID) == "" {
		req.ModelID = selected
	}
	if req.Width == 0 {
		req.Width = DefaultImageSize
	}
	if req.Height == 0 {
		req.Height = DefaultImageSize
	}
	if req.NumInferenceSteps == 0 {
		req.NumInferenceSteps = DefaultSteps
	}
	if req.Width < minImageSize || req.Width > maxImageSize {
		return req, invalidRequestError{msg: fmt.Sprintf("width must be between %d and %d", minImageSize, maxImageSize)}
	}
	if req.Height < minImageSize || req.Height > maxImageSize {
		return req, invalidRequestError{msg: fmt.Sprintf("height must be between %d and %d", minImageSize, maxImageSize)}
	}
	if req.NumInferenceSteps < minSteps || req.NumInferenceSteps > maxSteps {
		return req, invalidRequestError{msg: fmt.Sprintf("num_inference_steps must be between %d and %d", minSteps, maxSteps)}
	}
	if req.GuidanceScale < 0 || req.GuidanceScale > maxGuidanceScale {
		return req, invalidRequestError{msg: fmt.Sprintf("guidance_scale must be between 0 and %g", maxGuidanceScale)}
	}
	return req, nil
}

// Generate submits a generation through the guard and blocks until the
// backend answers. It fails fast with an already-in-flight error while
// another generation is pending, and with a not-ready error when the target
// model cannot serve.
func (m *Manager) Generate(ctx context.Context, req types.GenerationRequest) (Result, error) {
	req, err := NormalizeRequest(req, m.Selected())
	if err != nil {
		return Result{}, err
	}
	h, err := m.guard.TryBeginFor(req.ModelID)
	if err != nil {
		return Result{}, err
	}
	ctx, span := m.tracer.Start(ctx, tracing.SpanGenerate, trace.WithAttributes(
		attribute.String(tracing.AttrModelID, req.ModelID),
		attribute.String(tracing.AttrRequestID, h.RequestID),
	))
	defer span.End()
	m.publish(Event{Name: EventGenerationStart, ModelID: req.ModelID, Fields: map[string]any{"request_id": h.RequestID}})
	m.log.Info().Str("request_id", h.RequestID).Str("model_id", req.ModelID).Msg("generation started")

	img, err := m.api.Generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		msg := apiclient.DetailOf(err)
		if !m.guard.Fail(h.RequestID, msg) {
			return Result{}, cancelledError{requestID: h.RequestID}
		}
		m.log.Warn().Err(err).Str("request_id", h.RequestID).Msg("generation failed")
		m.publish(Event{Name: EventGenerationError, ModelID: req.ModelID, Fields: map[string]any{"request_id": h.RequestID, "error": msg}})
		return Result{}, err
	}
	if !m.guard.Complete(h.RequestID) {
		m.log.Info().Str("request_id", h.RequestID).Msg("late generation result dropped")
		return Result{}, cancelledError{requestID: h.RequestID}
	}
	res := Result{RequestID: h.RequestID, Image: img, CompletedAt: time.Now()}
	m.results.Set(h.RequestID, res, cache.DefaultExpiration)
	m.log.Info().Str("request_id", h.RequestID).Str("image_id", img.ImageID).Float64("generation_time", img.GenerationTime).Msg("generation complete")
	m.publish(Event{Name: EventGenerationComplete, ModelID: req.ModelID, Fields: map[string]any{"request_id": h.RequestID, "image_id": img.ImageID}})
	return res, nil
}

// CancelGeneration abandons the pending generation, if any, and returns its
// request id. A response that arrives later is dropped.
func (m *Manager) CancelGeneration() string {
	id := m.guard.Cancel()
	if id != "" {
		m.publish(Event{Name: EventGenerationCancel, Fields: map[string]any{"request_id": id}})
	}
	return id
}

// GenerationStatus reports the guard state.
func (m *Manager) GenerationStatus() generation.Status { return m.guard.Status() }

// RecentResults lists unexpired results, newest first.
func (m *Manager) RecentResults() []Result {
	items := m.results.Items()
	out := make([]Result, 0, len(items))
	for _, it := range items {
		if r, ok := it.Object.(Result); ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out
}

// Result returns one unexpired result by request id.
func (m *Manager) Result(requestID string) (Result, bool) {
	v, ok := m.results.Get(requestID)
	if !ok {
		return Result{}, false
	}
	r, ok := v.(Result)
	return r, ok
}
