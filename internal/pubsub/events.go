// Package pubsub fans manager events out to any number of observers.
package pubsub

import (
	"context"
	"time"
)

// EventType categorizes a published event.
type EventType string

const (
	// ModelEvent carries a registry change for one model.
	ModelEvent EventType = "model"
	// SnapshotEvent follows a full snapshot application.
	SnapshotEvent EventType = "snapshot"
	// ConnectionEvent reports push-channel open/close.
	ConnectionEvent EventType = "connection"
	// GenerationEvent reports generation lifecycle, local or server side.
	GenerationEvent EventType = "generation"
	// SelectionEvent reports a change of the selected model.
	SelectionEvent EventType = "selection"
)

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher publishes events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
