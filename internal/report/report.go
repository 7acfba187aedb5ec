// Package report turns the final ledger of a session into its durable
// artifacts: the spreadsheet, the text summary and the stored history.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Why a recording ended
const (
	ReasonDeadline = "deadline"
	ReasonStopped  = "stopped"
	ReasonError    = "error"
)

// Report is the final state of one recording session.
type Report struct {
	SessionID    string             `json:"session_id"`
	Mode         string             `json:"mode"`
	LateDeadline time.Time          `json:"late_deadline"`
	EndDeadline  time.Time          `json:"end_deadline"`
	StartedAt    time.Time          `json:"started_at"`
	EndedAt      time.Time          `json:"ended_at"`
	Reason       string             `json:"reason"`
	Entries      []attendance.Entry `json:"entries"`
	Files        []string           `json:"files,omitempty"` // artifacts written by sinks so far
}

// Sink receives a finished report. Sinks run in order and may add files that
// later sinks use.
type Sink interface {
	Deliver(ctx context.Context, r *Report) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r *Report) error

func (f SinkFunc) Deliver(ctx context.Context, r *Report) error { return f(ctx, r) }

// Deliver hands r to every sink. A failing sink does not stop the others.
func Deliver(ctx context.Context, r *Report, sinks ...Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Deliver(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Counts returns the number of entries per status.
func (r *Report) Counts() map[attendance.Status]int {
	counts := map[attendance.Status]int{attendance.StatusOnTime: 0, attendance.StatusLate: 0, attendance.StatusAbsent: 0}
	for _, e := range r.Entries {
		counts[e.Status]++
	}
	return counts
}

// Summary lists the attendees grouped by status, on time first.
func (r *Report) Summary() string {
	var b strings.Builder
	b.WriteString("=== Attendance summary ===\n")

	for _, status := range []attendance.Status{attendance.StatusOnTime, attendance.StatusLate, attendance.StatusAbsent} {
		fmt.Fprintf(&b, "\n%s:\n", status.Label())
		for _, e := range r.Entries {
			if e.Status != status {
				continue
			}
			p := e.Person
			fmt.Fprintf(&b, "- %s (%s, %s, %s)", p.FullName(), p.Faculty, p.Direction, p.Group)
			if status == attendance.StatusAbsent {
				b.WriteString("\n")
				continue
			}
			fmt.Fprintf(&b, " - %s\n", formatClock(entryTime(e)))
			fmt.Fprintf(&b, "  Probability: %.2f%%\n", e.Probability*100)
			fmt.Fprintf(&b, "  Mean distance: %.4f\n", e.Mean)
			fmt.Fprintf(&b, "  Variance: %.4f\n", e.Variance)
			fmt.Fprintf(&b, "  Std deviation: %.4f\n", e.StdDev)
		}
	}
	return b.String()
}

// entryTime returns the arrival or late time of a classified entry.
func entryTime(e attendance.Entry) *time.Time {
	if e.ArrivalTime != nil {
		return e.ArrivalTime
	}
	return e.LateTime
}

func formatClock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(constants.ClockLayout)
}
