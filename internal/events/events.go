// Package events fans session activity out to any number of listeners
// (the CLI status feed, SSE clients of the web display).
package events

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Type names an event kind. It is also the SSE event name.
type Type string

const (
	TypeState     Type = "state"     // session state changed
	TypeRecord    Type = "record"    // a person was classified
	TypeCountdown Type = "countdown" // time left in the current phase
	TypeReport    Type = "report"    // a report was delivered
	TypeError     Type = "error"     // a session ended with an error
)

// Event is one session notification.
type Event struct {
	Type    Type      `json:"type"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
	Time    time.Time `json:"time"`
}

// Publisher accepts events. Publish must not block.
type Publisher interface {
	Publish(event Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Record is the payload of a TypeRecord event.
type Record struct {
	Name        string            `json:"name"`
	FullName    string            `json:"full_name"`
	Status      attendance.Status `json:"status"`
	At          time.Time         `json:"at"`
	Probability float64           `json:"probability"`
	Mean        float64           `json:"mean_distance"`
	Variance    float64           `json:"variance"`
	StdDev      float64           `json:"std_dev"`
}

// NewRecord builds the payload for a freshly classified entry.
func NewRecord(e attendance.Entry, at time.Time) Record {
	return Record{
		Name:        e.Person.Name,
		FullName:    e.Person.FullName(),
		Status:      e.Status,
		At:          at,
		Probability: e.Probability,
		Mean:        e.Mean,
		Variance:    e.Variance,
		StdDev:      e.StdDev,
	}
}

// String renders the record as a status feed block.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "%s: %s (%s)\n", r.Name, r.Status.Label(), r.At.Format(constants.ClockLayout))
	fmt.Fprintf(&b, "  Probability: %.2f%%\n", r.Probability*100)
	fmt.Fprintf(&b, "  Mean distance: %.4f\n", r.Mean)
	fmt.Fprintf(&b, "  Variance: %.4f\n", r.Variance)
	fmt.Fprintf(&b, "  Std deviation: %.4f\n", r.StdDev)
	return b.String()
}

// Countdown is the payload of a TypeCountdown event.
type Countdown struct {
	Phase     string        `json:"phase"`
	Until     time.Time     `json:"until"`
	Remaining time.Duration `json:"remaining_ns"`
}

// String renders the remaining time as HH:MM:SS.
func (c Countdown) String() string {
	return FormatRemaining(c.Remaining)
}

// FormatRemaining renders d as HH:MM:SS, clamping negatives to zero.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// Broadcaster provides listener management and non-blocking event fan-out.
type Broadcaster struct {
	listeners []chan Event
	closed    bool
	mu        sync.RWMutex
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddListener adds an event listener. On a closed broadcaster the returned
// channel is already closed.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes and closes an event listener.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all listeners. Listeners whose buffer is full miss it.
func (b *Broadcaster) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
		}
	}
}

// Close closes every listener. Later events are dropped.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.listeners {
		close(ch)
	}
	b.listeners = nil
}

// ListenerCount returns the number of registered listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
