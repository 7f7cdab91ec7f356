package manager

import "modelsync/internal/pubsub"

// Event names published by the manager.
const (
	EventConnected          = "connected"
	EventDisconnected       = "disconnected"
	EventSnapshotApplied    = "snapshot_applied"
	EventSnapshotFailed     = "snapshot_failed"
	EventModelChanged       = "model_changed"
	EventSelectionChanged   = "selection_changed"
	EventActionAck          = "action_ack"
	EventActionFailed       = "action_failed"
	EventGenerationStart    = "generation_start"
	EventGenerationComplete = "generation_complete"
	EventGenerationError    = "generation_error"
	EventGenerationCancel   = "generation_cancelled"
	// Server-side generation notices arrive on the push channel; they are
	// informational and never change local state.
	EventServerGeneration = "server_generation"
)

// Event represents a manager event.
// Minimal and stable: name + model ID and optional fields via key/values.
type Event struct {
	Name    string         `json:"name"`
	ModelID string         `json:"model_id,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// BrokerPublisher fans events out through a pubsub broker, tagging each with
// the broker event type matching its name.
type BrokerPublisher struct {
	Broker *pubsub.Broker[Event]
}

// NewBrokerPublisher wraps b.
func NewBrokerPublisher(b *pubsub.Broker[Event]) BrokerPublisher { return BrokerPublisher{Broker: b} }

func (p BrokerPublisher) Publish(e Event) {
	if p.Broker == nil {
		return
	}
	p.Broker.Publish(eventType(e.Name), e)
}

func eventType(name string) pubsub.EventType {
	switch name {
	case EventConnected, EventDisconnected:
		return pubsub.ConnectionEvent
	case EventSnapshotApplied, EventSnapshotFailed:
		return pubsub.SnapshotEvent
	case EventSelectionChanged:
		return pubsub.SelectionEvent
	case EventGenerationStart, EventGenerationComplete, EventGenerationError, EventGenerationCancel, EventServerGeneration:
		return pubsub.GenerationEvent
	default:
		return pubsub.ModelEvent
	}
}

// multiPublisher forwards to every publisher in order.
type multiPublisher []EventPublisher

func (mp multiPublisher) Publish(e Event) {
	for _, p := range mp {
		p.Publish(e)
	}
}

// Tee combines publishers.
func Tee(pubs ...EventPublisher) EventPublisher { return multiPublisher(pubs) }
