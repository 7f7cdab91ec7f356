package session

import (
	"errors"
	"fmt"
)

// TransportError wraps a dial, read or decode failure of the push channel.
// It is recorded and logged, never fatal: the session recovers by reconnecting.
type TransportError struct {
	Op   string // dial, read, decode
	Code int    // close code, 0 when not applicable
	Err  error
}

func (e *TransportError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (close %d): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is a push-channel transport failure.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
