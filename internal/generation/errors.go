package generation

import "fmt"

// alreadyInFlightError rejects a second concurrent generation.
type alreadyInFlightError struct{ requestID string }

func (e alreadyInFlightError) Error() string {
	return "generation already in flight: " + e.requestID
}

// IsAlreadyInFlight reports whether err rejected a duplicate generation.
func IsAlreadyInFlight(err error) bool {
	_, ok := err.(alreadyInFlightError)
	return ok
}

// notReadyError signals that the target model cannot serve a generation.
type notReadyError struct {
	modelID string
	msg     string
}

func (e notReadyError) Error() string { return e.msg }

// ErrNotReady constructs a not-ready error for modelID with a user-facing message.
func ErrNotReady(modelID, msg string) error {
	if msg == "" {
		msg = fmt.Sprintf("Model %s is not ready.", modelID)
	}
	return notReadyError{modelID: modelID, msg: msg}
}

// IsNotReady reports whether err indicates the model is not ready.
func IsNotReady(err error) bool {
	_, ok := err.(notReadyError)
	return ok
}
