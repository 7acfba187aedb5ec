package handlers

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// sseEvent is one parsed server-sent event.
type sseEvent struct {
	name string
	data string
}

func readSSEEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading event stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func waitForListeners(t *testing.T, count func() int, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("listener count = %d, want %d", count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	broadcaster := events.NewBroadcaster()
	ctrl := &fakeController{status: session.Status{State: session.StateScheduleWaiting}}
	handler := NewEventsHandler(broadcaster, func() any { return ctrl.Status() })

	server := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected Content-Type 'text/event-stream', got '%s'", ct)
	}
	reader := bufio.NewReader(resp.Body)

	first := readSSEEvent(t, reader)
	if first.name != "status" {
		t.Fatalf("first event = %q, want status", first.name)
	}
	var st session.Status
	if err := json.Unmarshal([]byte(first.data), &st); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if st.State != session.StateScheduleWaiting {
		t.Errorf("status state = %s", st.State)
	}

	waitForListeners(t, broadcaster.ListenerCount, 1)
	broadcaster.Publish(events.Event{Type: events.TypeCountdown, Message: "recording 00:00:42"})

	next := readSSEEvent(t, reader)
	if next.name != "countdown" {
		t.Fatalf("event = %q, want countdown", next.name)
	}
	var ev events.Event
	if err := json.Unmarshal([]byte(next.data), &ev); err != nil {
		t.Fatalf("decoding event: %v", err)
	}
	if ev.Message != "recording 00:00:42" {
		t.Errorf("message = %q", ev.Message)
	}
}

func TestEventsHandler_EndsWhenBroadcasterCloses(t *testing.T) {
	broadcaster := events.NewBroadcaster()
	handler := NewEventsHandler(broadcaster, func() any { return session.Status{State: session.StateIdle} })

	server := httptest.NewServer(http.HandlerFunc(handler.Stream))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET events: %v", err)
	}
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)
	readSSEEvent(t, reader)

	waitForListeners(t, broadcaster.ListenerCount, 1)
	broadcaster.Close()

	if _, err := reader.ReadString('\n'); err == nil {
		t.Error("expected the stream to end after Close")
	}
}
