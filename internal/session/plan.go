package session

import (
	"time"

	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// Action is what the schedule loop does next.
type Action int

const (
	// ActionWait sleeps until Decision.Until.
	ActionWait Action = iota
	// ActionRecord records the Decision.Window of today.
	ActionRecord
	// ActionSurveil shows the camera without recognition until Decision.Until.
	ActionSurveil
)

func (a Action) String() string {
	switch a {
	case ActionRecord:
		return "record"
	case ActionSurveil:
		return "surveil"
	default:
		return "wait"
	}
}

// Decision is the outcome of Plan.
type Decision struct {
	Action Action
	Window schedule.Window // the window being recorded, or the next one
	Until  time.Time
}

// Plan decides the next step of schedule mode at now. Today's window is
// recorded while now is inside [start, end]; once it has been recorded or its
// end has passed the loop surveils until the next window starts. Before the
// start, or on days without an entry, the loop waits for the next window.
// lastRecorded is the start of the most recently recorded window.
func Plan(now time.Time, s schedule.Schedule, lastRecorded time.Time) Decision {
	next, hasNext := s.Next(now)

	if today, ok := s.Today(now); ok {
		recorded := lastRecorded.Equal(today.Start)
		switch {
		case today.Contains(now) && !recorded:
			return Decision{Action: ActionRecord, Window: today, Until: today.End}
		case (now.After(today.End) || recorded) && hasNext:
			return Decision{Action: ActionSurveil, Window: next, Until: next.Start}
		}
	}

	if !hasNext {
		return Decision{Action: ActionWait}
	}
	return Decision{Action: ActionWait, Window: next, Until: next.Start}
}
