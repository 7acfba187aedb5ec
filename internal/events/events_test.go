package events

import (
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

func TestBroadcaster_Publish(t *testing.T) {
	b := NewBroadcaster()
	a := b.AddListener()
	c := b.AddListener()

	b.Publish(Event{Type: TypeState, Message: "recording"})

	for _, ch := range []chan Event{a, c} {
		select {
		case e := <-ch:
			if e.Type != TypeState || e.Message != "recording" {
				t.Errorf("unexpected event %+v", e)
			}
			if e.Time.IsZero() {
				t.Error("event time not set")
			}
		default:
			t.Error("listener did not receive event")
		}
	}
}

func TestBroadcaster_FullListenerDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()

	done := make(chan struct{})
	go func() {
		for range constants.EventChannelBuffer + 10 {
			b.Publish(Event{Type: TypeCountdown})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full listener")
	}
	if len(ch) != constants.EventChannelBuffer {
		t.Errorf("buffered %d events, want %d", len(ch), constants.EventChannelBuffer)
	}
}

func TestBroadcaster_RemoveListener(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()
	b.RemoveListener(ch)

	if _, ok := <-ch; ok {
		t.Error("removed listener should be closed")
	}
	if b.ListenerCount() != 0 {
		t.Errorf("ListenerCount() = %d", b.ListenerCount())
	}

	// Removing twice is a no-op
	b.RemoveListener(ch)
	b.Publish(Event{Type: TypeState})
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()
	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("listener should be closed")
	}
	late := b.AddListener()
	if _, ok := <-late; ok {
		t.Error("listener added after Close should be closed")
	}
	b.Publish(Event{Type: TypeState})
}

func TestRecord_String(t *testing.T) {
	r := NewRecord(attendance.Entry{
		Person:      attendance.PersonRecord{Name: "Ali", Surname: "Valiyev"},
		Status:      attendance.StatusLate,
		Probability: 0.8123,
		Statistics:  attendance.Statistics{Mean: 0.2, Variance: 0.01, StdDev: 0.1},
	}, time.Date(2025, 3, 10, 9, 20, 5, 0, time.UTC))

	if r.FullName != "Ali Valiyev" {
		t.Errorf("FullName = %q", r.FullName)
	}

	s := r.String()
	for _, want := range []string{
		"Ali: Late (09:20:05)",
		"Probability: 81.23%",
		"Mean distance: 0.2000",
		"Variance: 0.0100",
		"Std deviation: 0.1000",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{61 * time.Minute, "01:01:00"},
		{25*time.Hour + 1500*time.Millisecond, "25:00:01"},
	}
	for _, tt := range tests {
		if got := FormatRemaining(tt.d); got != tt.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
