package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelsync/internal/generation"
	"modelsync/internal/registry"
	"modelsync/internal/selection"
	"modelsync/internal/tracing"
	"modelsync/pkg/types"
)

// task runs on the loop goroutine.
type task func(ctx context.Context)

type Manager struct {
	sess    PushSession
	api     Backend
	pushURL string
	reg     *registry.Registry
	guard   *generation.Guard
	results *cache.Cache
	tracer  trace.Tracer
	log     zerolog.Logger

	tasks     chan task
	running   atomic.Bool
	started   chan struct{}
	done      chan struct{}
	startTime time.Time

	mu           sync.RWMutex
	pub          EventPublisher
	explicit     string
	lastSelected string
	snapshotErr  string
}

// New constructs a Manager with package defaults.
func New(sess PushSession, api Backend, pushURL string) *Manager {
	return NewWithConfig(ManagerConfig{Session: sess, Backend: api, PushURL: pushURL})
}

// SetEventPublisher replaces the event sink. Nil restores the no-op sink.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	m.pub = p
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.pub
	m.mu.RUnlock()
	p.Publish(e)
}

// Registry exposes the lifecycle registry for read access.
func (m *Manager) Registry() *registry.Registry { return m.reg }

// Started is closed once Run has begun.
func (m *Manager) Started() <-chan struct{} { return m.started }

// Guard exposes the generation guard.
func (m *Manager) Guard() *generation.Guard { return m.guard }

// Run opens the push session and processes push messages and tasks until ctx
// ends. It may be called once; the session is closed intentionally on return.
func (m *Manager) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("manager: Run already called")
	}
	close(m.started)
	defer close(m.done)

	m.sess.SetCallbacks(m.onConnect, m.onDisconnect)
	if err := m.sess.Open(ctx, m.pushURL); err != nil {
		return fmt.Errorf("manager: open push session: %w", err)
	}
	defer m.sess.Close("shutdown")
	m.log.Info().Str("push_url", m.pushURL).Msg("sync loop started")

	// The push channel cues a snapshot on connect; fetch one now too so the
	// registry fills even while the socket is still coming up.
	m.fetchSnapshot(ctx, nil)

	msgs := m.sess.Messages()
	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("sync loop stopped")
			return nil
		case env := <-msgs:
			m.dispatch(ctx, env)
		case t := <-m.tasks:
			t(ctx)
		}
	}
}

// post hands t to the loop. It fails when the loop has exited or ctx ends
// first.
func (m *Manager) post(ctx context.Context, t task) error {
	select {
	case <-m.done:
		return errNotRunning
	default:
	}
	select {
	case m.tasks <- t:
		return nil
	case <-m.done:
		return errNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) dispatch(ctx context.Context, env types.Envelope) {
	switch env.Type {
	case types.MsgInitialState:
		m.fetchSnapshot(ctx, nil)
	case types.MsgModelStatus:
		var msg types.ModelStatusMessage
		if err := env.Decode(&msg); err != nil {
			m.log.Warn().Err(err).Msg("model_status: decode failed")
			return
		}
		u, err := registry.UpdateFromStatus(msg)
		if err != nil {
			mergeOutcomesTotal.WithLabelValues("push", string(registry.OutcomeInvalid)).Inc()
			m.log.Warn().Err(err).Msg("model_status: rejected")
			return
		}
		m.applyUpdate("push", msg.ModelID, u)
	case types.MsgGenerationStart, types.MsgGenerationComplete, types.MsgGenerationError:
		m.publishServerGeneration(env)
	case types.MsgHeartbeat, types.MsgPong:
	default:
		m.log.Debug().Str("type", env.Type).Msg("ignoring unknown push message")
	}
}

func (m *Manager) publishServerGeneration(env types.Envelope) {
	fields := map[string]any{"type": env.Type}
	switch env.Type {
	case types.MsgGenerationStart:
		var msg types.GenerationStartMessage
		if env.Decode(&msg) == nil {
			fields["prompt"] = msg.Prompt
			m.publish(Event{Name: EventServerGeneration, ModelID: msg.ModelID, Fields: fields})
			return
		}
	case types.MsgGenerationComplete:
		var msg types.GenerationCompleteMessage
		if env.Decode(&msg) == nil {
			fields["image_id"] = msg.ImageID
			fields["generation_time"] = msg.GenerationTime
		}
	case types.MsgGenerationError:
		var msg types.GenerationErrorMessage
		if env.Decode(&msg) == nil {
			fields["error"] = msg.Error
		}
	}
	m.publish(Event{Name: EventServerGeneration, Fields: fields})
}

// fetchSnapshot lists models on a short-lived goroutine and posts the result
// back to the loop. done, when non-nil, receives the outcome after the
// snapshot has been applied.
func (m *Manager) fetchSnapshot(ctx context.Context, done chan<- error) {
	go func() {
		models, err := m.api.ListModels(ctx)
		if perr := m.post(ctx, func(lctx context.Context) {
			m.applySnapshot(lctx, models, err)
			if done != nil {
				done <- err
			}
		}); perr != nil && done != nil {
			done <- perr
		}
	}()
}

// applySnapshot runs on the loop goroutine.
func (m *Manager) applySnapshot(ctx context.Context, models []types.Model, err error) {
	_, span := m.tracer.Start(ctx, tracing.SpanSnapshotApply)
	defer span.End()
	if err != nil {
		snapshotsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		m.mu.Lock()
		m.snapshotErr = err.Error()
		m.mu.Unlock()
		m.log.Warn().Err(err).Msg("snapshot fetch failed")
		m.publish(Event{Name: EventSnapshotFailed, Fields: map[string]any{"error": err.Error()}})
		return
	}
	recs, errs := registry.RecordsFromModels(models)
	for _, e := range errs {
		mergeOutcomesTotal.WithLabelValues("snapshot", string(registry.OutcomeInvalid)).Inc()
		m.log.Warn().Err(e).Msg("snapshot: skipping record")
	}
	changes := m.reg.ApplyFullSnapshot(recs)
	changed := 0
	for _, c := range changes {
		mergeOutcomesTotal.WithLabelValues("snapshot", string(c.Outcome)).Inc()
		if c.Changed() {
			changed++
			m.publishChange(c)
		}
	}
	span.SetAttributes(
		attribute.Int(tracing.AttrRecordCount, len(recs)),
		attribute.Int(tracing.AttrChangedCount, changed),
	)
	snapshotsTotal.WithLabelValues("ok").Inc()
	m.mu.Lock()
	m.snapshotErr = ""
	m.mu.Unlock()
	m.afterMerge()
	m.log.Debug().Int("records", len(recs)).Int("changed", changed).Msg("snapshot applied")
	m.publish(Event{Name: EventSnapshotApplied, Fields: map[string]any{"records": len(recs), "changed": changed}})
}

// applyUpdate runs on the loop goroutine.
func (m *Manager) applyUpdate(source, modelID string, u registry.Update) {
	c := m.reg.ApplyPushUpdate(modelID, u)
	mergeOutcomesTotal.WithLabelValues(source, string(c.Outcome)).Inc()
	switch c.Outcome {
	case registry.OutcomeUnknown:
		m.log.Debug().Str("model_id", modelID).Str("source", source).Msg("update for unknown model ignored")
		return
	case registry.OutcomeStale:
		m.log.Debug().Str("model_id", modelID).Str("state", string(u.State)).Str("current", string(c.Before.State)).Msg("stale update ignored")
	}
	if c.Changed() {
		m.publishChange(c)
		m.afterMerge()
	}
}

func (m *Manager) publishChange(c registry.Change) {
	fields := map[string]any{
		"outcome": string(c.Outcome),
		"state":   string(c.After.State),
	}
	if c.Before.State != "" {
		fields["previous"] = string(c.Before.State)
	}
	if c.After.Progress != nil {
		fields["percent"] = c.After.Progress.Completion()
	}
	if c.After.ErrorMessage != "" {
		fields["error"] = c.After.ErrorMessage
	}
	m.publish(Event{Name: EventModelChanged, ModelID: c.ModelID, Fields: fields})
}

// afterMerge refreshes derived state: the state gauge and the selection.
func (m *Manager) afterMerge() {
	recs := m.reg.Records()
	counts := make(map[registry.State]int, len(registry.AllStates()))
	for _, r := range recs {
		counts[r.State]++
	}
	for _, s := range registry.AllStates() {
		registryModels.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
	m.refreshSelection(recs)
}

func (m *Manager) refreshSelection(recs []registry.ModelRecord) {
	m.mu.Lock()
	sel := selection.Choose(recs, m.explicit)
	prev := m.lastSelected
	m.lastSelected = sel
	m.mu.Unlock()
	if sel != prev {
		m.log.Info().Str("model_id", sel).Str("previous", prev).Msg("selection changed")
		m.publish(Event{Name: EventSelectionChanged, ModelID: sel, Fields: map[string]any{"previous": prev}})
	}
}

func (m *Manager) onConnect() {
	m.publish(Event{Name: EventConnected})
}

func (m *Manager) onDisconnect() {
	m.publish(Event{Name: EventDisconnected, Fields: map[string]any{"error": m.sess.LastError()}})
}
