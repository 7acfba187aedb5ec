package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/events"
)

// EventsHandler streams session events to SSE clients.
type EventsHandler struct {
	broadcaster *events.Broadcaster
	status      func() any
}

// NewEventsHandler creates an events handler. status provides the snapshot
// sent when a client connects.
func NewEventsHandler(broadcaster *events.Broadcaster, status func() any) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster, status: status}
}

// Stream sends the current status and then every event until the client
// disconnects or the broadcaster closes.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := setupSSEConnection(w)
	if !ok {
		return
	}

	eventCh := h.broadcaster.AddListener()
	defer h.broadcaster.RemoveListener(eventCh)

	sendSSEEvent(w, flusher, "status", h.status())

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			sendSSEEvent(w, flusher, string(event.Type), event)
		}
	}
}
