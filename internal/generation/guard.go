// Package generation enforces at most one in-flight generation request per
// client. The guard exposes the pending flag for callers that disable their
// submit actions; it does not enforce that itself.
package generation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handle identifies an accepted generation request.
type Handle struct {
	RequestID string
	ModelID   string
	StartedAt time.Time
}

// Status is a read-only view of the guard.
type Status struct {
	Pending   bool
	RequestID string
	ModelID   string
	StartedAt time.Time
	LastError string
}

// Config configures a Guard.
type Config struct {
	// Readiness is consulted by TryBeginFor. Nil accepts every model.
	Readiness Readiness
	Logger    zerolog.Logger
	// NewID generates request ids; defaults to uuid.NewString.
	NewID func() string
}

// Guard tracks the single generation slot.
type Guard struct {
	mu        sync.Mutex
	slot      chan struct{} // size 1: single in-flight generation
	cur       Handle
	lastError string

	ready Readiness
	newID func() string
	log   zerolog.Logger
}

// New returns an idle guard.
func New(cfg Config) *Guard {
	g := &Guard{
		slot:  make(chan struct{}, 1),
		ready: cfg.Readiness,
		newID: cfg.NewID,
		log:   cfg.Logger,
	}
	if g.newID == nil {
		g.newID = uuid.NewString
	}
	return g
}

// TryBegin reserves the generation slot. It fails with an already-in-flight
// error when a request is pending; the caller must not issue a duplicate.
func (g *Guard) TryBegin() (Handle, error) { return g.begin("") }

// TryBeginFor is TryBegin plus a readiness check of modelID.
func (g *Guard) TryBeginFor(modelID string) (Handle, error) {
	h, err := g.begin(modelID)
	if err != nil {
		return Handle{}, err
	}
	if g.ready == nil {
		return h, nil
	}
	if err := g.ready(modelID); err != nil {
		g.release(h.RequestID, "", "not_ready")
		return Handle{}, err
	}
	return h, nil
}

func (g *Guard) begin(modelID string) (Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case g.slot <- struct{}{}:
	default:
		guardTransitionsTotal.WithLabelValues("rejected").Inc()
		return Handle{}, alreadyInFlightError{requestID: g.cur.RequestID}
	}
	g.cur = Handle{RequestID: g.newID(), ModelID: modelID, StartedAt: time.Now()}
	guardTransitionsTotal.WithLabelValues("started").Inc()
	guardPending.Set(1)
	g.log.Debug().Str("request_id", g.cur.RequestID).Str("model", modelID).Msg("generation begin")
	return g.cur, nil
}

// Complete returns the guard to idle and clears the last error. It reports
// false, and changes nothing, when requestID is not the pending request.
func (g *Guard) Complete(requestID string) bool {
	return g.release(requestID, "", "completed")
}

// Fail returns the guard to idle and records msg as the last error. Like
// Complete it ignores request ids that are not pending.
func (g *Guard) Fail(requestID, msg string) bool {
	if msg == "" {
		msg = "generation failed"
	}
	return g.release(requestID, msg, "failed")
}

// Cancel abandons the pending request, e.g. when the user navigates away.
// A late response for the cancelled request is ignored by Complete and Fail.
// It returns the cancelled request id, or "" when nothing was pending.
func (g *Guard) Cancel() string {
	g.mu.Lock()
	id := g.cur.RequestID
	g.mu.Unlock()
	if id == "" {
		return ""
	}
	if !g.release(id, "", "cancelled") {
		return ""
	}
	return id
}

func (g *Guard) release(requestID, errMsg, outcome string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if requestID == "" || requestID != g.cur.RequestID {
		guardTransitionsTotal.WithLabelValues("ignored").Inc()
		g.log.Debug().Str("request_id", requestID).Msg("generation response for unknown request ignored")
		return false
	}
	switch outcome {
	case "completed":
		g.lastError = ""
	case "failed":
		g.lastError = errMsg
	}
	g.cur = Handle{}
	<-g.slot
	guardTransitionsTotal.WithLabelValues(outcome).Inc()
	guardPending.Set(0)
	g.log.Debug().Str("request_id", requestID).Str("outcome", outcome).Msg("generation end")
	return true
}

// Pending reports whether a generation is in flight.
func (g *Guard) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cur.RequestID != ""
}

// LastError returns the message of the last failed generation.
func (g *Guard) LastError() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastError
}

// Status returns a snapshot of the guard.
func (g *Guard) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Status{
		Pending:   g.cur.RequestID != "",
		RequestID: g.cur.RequestID,
		ModelID:   g.cur.ModelID,
		StartedAt: g.cur.StartedAt,
		LastError: g.lastError,
	}
}
