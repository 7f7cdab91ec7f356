package registry

import "fmt"

// State is the lifecycle state of a model as observed by this client.
// Values match the backend's wire representation.
type State string

const (
	StateNotDownloaded State = "not_downloaded"
	StateDownloading   State = "downloading"
	StateDownloaded    State = "downloaded"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateError         State = "error"
)

// ranks is the total order over non-error states used to resolve
// out-of-order updates. StateError is deliberately absent.
var ranks = map[State]int{
	StateNotDownloaded: 0,
	StateDownloading:   1,
	StateDownloaded:    2,
	StateLoading:       3,
	StateReady:         4,
}

// Rank returns the recency rank of s. ok is false for StateError and for
// unrecognized values.
func (s State) Rank() (rank int, ok bool) {
	rank, ok = ranks[s]
	return rank, ok
}

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	_, ranked := ranks[s]
	return ranked || s == StateError
}

func (s State) String() string { return string(s) }

// ParseState converts a wire value into a State.
func ParseState(v string) (State, error) {
	s := State(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown lifecycle state %q", v)
	}
	return s, nil
}

// AllStates lists the states in rank order followed by StateError.
func AllStates() []State {
	return []State{StateNotDownloaded, StateDownloading, StateDownloaded, StateLoading, StateReady, StateError}
}
