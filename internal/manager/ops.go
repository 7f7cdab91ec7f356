package manager

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelsync/internal/apiclient"
	"modelsync/internal/registry"
	"modelsync/internal/selection"
	"modelsync/internal/tracing"
	"modelsync/pkg/types"
)

const (
	verbDownload = "download"
	verbLoad     = "load"
	verbUnload   = "unload"
)

// Download asks the backend to download modelID. Progress arrives on the
// push channel.
func (m *Manager) Download(ctx context.Context, modelID string) (types.ActionResponse, error) {
	return m.action(ctx, verbDownload, modelID, m.api.Download)
}

// Load asks the backend to load modelID.
func (m *Manager) Load(ctx context.Context, modelID string) (types.ActionResponse, error) {
	return m.action(ctx, verbLoad, modelID, m.api.Load)
}

// Unload asks the backend to release modelID. The backend does not push a
// status for unloads, so on acknowledgement the record is reset to
// downloaded.
func (m *Manager) Unload(ctx context.Context, modelID string) (types.ActionResponse, error) {
	return m.action(ctx, verbUnload, modelID, m.api.Unload)
}

func (m *Manager) action(ctx context.Context, verb, modelID string, call func(context.Context, string) (types.ActionResponse, error)) (types.ActionResponse, error) {
	if !m.reg.Has(modelID) {
		actionsTotal.WithLabelValues(verb, "not_found").Inc()
		return types.ActionResponse{}, ErrModelNotFound(modelID)
	}
	ctx, span := m.tracer.Start(ctx, tracing.SpanAction, traceAttrs(verb, modelID))
	defer span.End()

	ack, err := call(ctx, modelID)
	if err != nil {
		actionsTotal.WithLabelValues(verb, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.log.Warn().Err(err).Str("verb", verb).Str("model_id", modelID).Msg("action failed")
		m.publish(Event{Name: EventActionFailed, ModelID: modelID, Fields: map[string]any{"verb": verb, "error": apiclient.DetailOf(err)}})
		if verb != verbUnload && failureMarksModel(ctx, err) {
			u := registry.Update{State: registry.StateError, Error: apiclient.DetailOf(err)}
			if perr := m.post(context.WithoutCancel(ctx), func(context.Context) { m.applyUpdate("action", modelID, u) }); perr != nil {
				m.log.Debug().Err(perr).Msg("action failure not recorded")
			}
		}
		return ack, err
	}
	actionsTotal.WithLabelValues(verb, "ok").Inc()
	m.log.Info().Str("verb", verb).Str("model_id", modelID).Str("message", ack.Message).Msg("action acknowledged")
	m.publish(Event{Name: EventActionAck, ModelID: modelID, Fields: map[string]any{"verb": verb, "message": ack.Message}})
	if verb == verbUnload {
		u := registry.Update{State: registry.StateDownloaded, Reset: true}
		if perr := m.post(context.WithoutCancel(ctx), func(context.Context) { m.applyUpdate("action", modelID, u) }); perr != nil {
			m.log.Debug().Err(perr).Msg("unload not recorded")
		}
	}
	return ack, nil
}

// failureMarksModel reports whether a failed download/load should put the
// model into the error state. Caller cancellation and client-side 4xx
// rejections leave the record alone.
func failureMarksModel(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	var ue *apiclient.UpstreamError
	if errors.As(err, &ue) && ue.Status >= http.StatusBadRequest && ue.Status < http.StatusInternalServerError {
		return false
	}
	return true
}

// Select makes modelID the explicit selection. It must be a known model.
func (m *Manager) Select(modelID string) error {
	if !m.reg.Has(modelID) {
		return ErrModelNotFound(modelID)
	}
	m.mu.Lock()
	m.explicit = modelID
	m.mu.Unlock()
	m.refreshSelection(m.reg.Records())
	return nil
}

// ClearSelection drops the explicit selection so the policy falls back to
// the first ready or downloaded model.
func (m *Manager) ClearSelection() {
	m.mu.Lock()
	m.explicit = ""
	m.mu.Unlock()
	m.refreshSelection(m.reg.Records())
}

// Selected returns the model the selection policy picks now.
func (m *Manager) Selected() string {
	m.mu.RLock()
	explicit := m.explicit
	m.mu.RUnlock()
	return selection.Choose(m.reg.Records(), explicit)
}

// Refresh fetches a full snapshot and waits until the loop applied it.
func (m *Manager) Refresh(ctx context.Context) error {
	select {
	case <-m.done:
		return errNotRunning
	default:
	}
	if !m.running.Load() {
		return errNotRunning
	}
	done := make(chan error, 1)
	m.fetchSnapshot(ctx, done)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func traceAttrs(verb, modelID string) trace.SpanStartOption {
	return trace.WithAttributes(
		attribute.String("action.verb", verb),
		attribute.String(tracing.AttrModelID, modelID),
	)
}
