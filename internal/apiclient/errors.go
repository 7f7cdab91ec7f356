package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UpstreamError is a non-2xx response from the backend.
type UpstreamError struct {
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upstream http %d", e.Status)
	}
	return fmt.Sprintf("upstream http %d: %s", e.Status, e.Detail)
}

// IsUpstream reports whether err carries a backend error response.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// DetailOf returns the backend's detail text when err is an UpstreamError,
// or err.Error() otherwise.
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	var ue *UpstreamError
	if errors.As(err, &ue) && ue.Detail != "" {
		return ue.Detail
	}
	return err.Error()
}

// parseDetail extracts "detail" from an error body. Validation errors carry a
// list of objects with "msg"; anything unparsable is returned verbatim.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(envelope.Detail)
}
