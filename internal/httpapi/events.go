package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"modelsync/internal/manager"
	"modelsync/internal/pubsub"
)

// sseFrame is the JSON body of one GET /events data line.
type sseFrame struct {
	Type      pubsub.EventType `json:"type"`
	Event     manager.Event    `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
}

// eventsHandler streams manager events as server-sent events until the
// client goes away or the source closes the subscription.
func eventsHandler(src EventSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "event stream disabled")
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}
		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		out := io.Writer(w)
		if requestLogLevel(r) >= LevelDebug {
			out = io.MultiWriter(w, &loggingLineWriter{prefix: "sse"})
		}

		sseSubscribers.Inc()
		defer sseSubscribers.Dec()
		sub := src.Subscribe(r.Context())
		keep := time.NewTicker(sseKeepAlive)
		defer keep.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-keep.C:
				if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case ev, ok := <-sub:
				if !ok {
					return
				}
				data, err := json.Marshal(sseFrame{Type: ev.Type, Event: ev.Payload, Timestamp: ev.Timestamp})
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(out, "event: %s\ndata: %s\n\n", ev.Payload.Name, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
