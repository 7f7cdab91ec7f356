package manager

import "errors"

// modelNotFoundError is returned when a model id is not in the registry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a modelNotFoundError.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// invalidRequestError rejects a generation request before it reaches the guard.
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// IsInvalidRequest reports whether err is a request validation failure (400).
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}

// cancelledError is returned to a Generate caller whose request was
// cancelled while the backend was still working.
type cancelledError struct{ requestID string }

func (e cancelledError) Error() string { return "generation cancelled: " + e.requestID }

// IsCancelled reports whether err indicates a cancelled generation.
func IsCancelled(err error) bool {
	var e cancelledError
	return errors.As(err, &e)
}

// errNotRunning is returned when work is handed to a loop that has exited.
var errNotRunning = errors.New("manager: loop not running")

// IsNotRunning reports whether err means Run is not active.
func IsNotRunning(err error) bool { return errors.Is(err, errNotRunning) }
