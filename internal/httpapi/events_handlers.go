package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"jobscout-engine/internal/events"
)

// reconnect delay suggested to EventSource clients
const sseRetryMillis = 3000

type EventsHandler struct {
	Hub *events.Hub
}

// ServeSSE streams hub events. A reconnecting client sending Last-Event-ID
// first receives the retained events it missed.
func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	after, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)
	ch, cancel := h.Hub.SubscribeFrom(after)
	defer cancel()

	_, _ = io.WriteString(w, "retry: "+strconv.Itoa(sseRetryMillis)+"\n")
	_, _ = io.WriteString(w, events.New(RequestIDFrom(r.Context()), "ping", nil).Frame())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if _, err := io.WriteString(w, e.Frame()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
