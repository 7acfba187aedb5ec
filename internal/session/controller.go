// Package session runs attendance sessions: it resolves deadlines from
// manual input or the weekly schedule, moves between waiting, recording and
// surveillance, and hands every finished recording to the report sinks.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/clock"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/report"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// State is the controller's lifecycle state.
type State string

const (
	StateIdle             State = "idle"
	StateManualConfigured State = "manual_configured"
	StateScheduleWaiting  State = "schedule_waiting"
	StateRecording        State = "recording"
	StateSurveillance     State = "surveillance"
)

// Mode is how a session got its deadlines.
type Mode string

const (
	ModeManual   Mode = "manual"
	ModeSchedule Mode = "schedule"
)

// ErrBusy is returned when a run is requested while another one is active.
var ErrBusy = errors.New("a session is already running")

// Capturer runs the camera phases of a session.
type Capturer interface {
	Record(ctx context.Context, rec capture.Recording) error
	Surveil(ctx context.Context, until time.Time) error
}

// Session is the context shared by the loops of one recording.
type Session struct {
	ID        string
	Mode      Mode
	Deadlines Deadlines
	StartedAt time.Time
	Ledger    *attendance.Ledger
}

// StateChange is the payload of a state event.
type StateChange struct {
	State     State     `json:"state"`
	SessionID string    `json:"session_id,omitempty"`
	Until     time.Time `json:"until,omitempty"`
}

// Options configures a Controller. Zero values use the defaults.
type Options struct {
	Clock             clock.Clock
	Events            events.Publisher
	Sinks             []report.Sink
	PollInterval      time.Duration // pause before retrying a failed camera
	CountdownInterval time.Duration
}

// Controller owns the session lifecycle. One run is active at a time.
type Controller struct {
	gallery  []attendance.PersonRecord
	capturer Capturer
	sinks    []report.Sink
	clock    clock.Clock
	events   events.Publisher
	poll     time.Duration
	tick     time.Duration

	mu      sync.RWMutex
	state   State
	until   time.Time
	current *Session
	cancel  context.CancelFunc
}

// NewController creates an idle controller for gallery.
func NewController(gallery []attendance.PersonRecord, capturer Capturer, opts Options) *Controller {
	c := &Controller{
		gallery:  gallery,
		capturer: capturer,
		sinks:    opts.Sinks,
		clock:    opts.Clock,
		events:   opts.Events,
		poll:     opts.PollInterval,
		tick:     opts.CountdownInterval,
		state:    StateIdle,
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	if c.events == nil {
		c.events = events.Discard
	}
	if c.poll <= 0 {
		c.poll = constants.SchedulePollInterval
	}
	if c.tick <= 0 {
		c.tick = constants.CountdownInterval
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Current returns the recording in progress, if any.
func (c *Controller) Current() (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current, c.current != nil
}

// Status describes the controller for the status API.
type Status struct {
	State   State        `json:"state"`
	Until   time.Time    `json:"until,omitempty"` // end of the current phase
	Session *SessionInfo `json:"session,omitempty"`
}

// SessionInfo summarizes the recording in progress.
type SessionInfo struct {
	ID        string                    `json:"id"`
	Mode      Mode                      `json:"mode"`
	Deadlines Deadlines                 `json:"deadlines"`
	StartedAt time.Time                 `json:"started_at"`
	Counts    map[attendance.Status]int `json:"counts"`
}

// Status returns the current state and, while recording, the session summary.
func (c *Controller) Status() Status {
	c.mu.RLock()
	st := Status{State: c.state, Until: c.until}
	sess := c.current
	c.mu.RUnlock()

	if sess != nil {
		st.Session = &SessionInfo{
			ID:        sess.ID,
			Mode:      sess.Mode,
			Deadlines: sess.Deadlines,
			StartedAt: sess.StartedAt,
			Counts:    sess.Ledger.Counts(),
		}
	}
	return st
}

// Stop cancels the active run. It is a no-op when idle.
func (c *Controller) Stop() {
	c.mu.RLock()
	cancel := c.cancel
	c.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// RunManual records one session bounded by deadlines, as resolved once by
// ConfigureManual. The deadlines are used as given; invalid ones are rejected
// before anything starts. The report is returned even when the recording
// ended with an error.
func (c *Controller) RunManual(ctx context.Context, deadlines Deadlines) (*report.Report, error) {
	if err := deadlines.Validate(); err != nil {
		return nil, err
	}

	ctx, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer c.finish()

	c.setState(StateManualConfigured, nil, deadlines.End)
	return c.record(ctx, ModeManual, deadlines)
}

// RunSchedule follows s day after day until ctx is cancelled or Stop is
// called. Device failures end the current phase only.
func (c *Controller) RunSchedule(ctx context.Context, s schedule.Schedule) error {
	if len(s) == 0 {
		return apperror.New(apperror.KindConfiguration, "schedule has no complete day")
	}

	ctx, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer c.finish()

	var lastRecorded time.Time
	for ctx.Err() == nil {
		d := Plan(c.clock.Now(), s, lastRecorded)

		switch d.Action {
		case ActionRecord:
			lastRecorded = d.Window.Start
			_, err = c.record(ctx, ModeSchedule, Deadlines{Late: d.Window.Late, End: d.Window.End})
		case ActionSurveil:
			c.setState(StateSurveillance, nil, d.Until)
			err = c.capturer.Surveil(ctx, d.Until)
			if err != nil && ctx.Err() == nil {
				c.publishError(err)
				// retry the camera after a pause
				err = c.clock.Sleep(ctx, c.poll)
			}
		default:
			c.setState(StateScheduleWaiting, nil, d.Until)
			until := d.Until
			if until.IsZero() {
				until = c.clock.Now().Add(c.poll)
			}
			err = events.RunCountdown(ctx, c.clock, c.events, "waiting", until, c.tick)
		}

		if err != nil && ctx.Err() == nil && !apperror.IsKind(err, apperror.KindDevice) {
			return err
		}
	}
	return nil
}

// record runs one recording and delivers its report. A stop ends the
// recording like the deadline does.
func (c *Controller) record(ctx context.Context, mode Mode, deadlines Deadlines) (*report.Report, error) {
	ledger := attendance.NewLedger()
	if err := ledger.Initialize(c.gallery); err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, err, "initialize ledger")
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Mode:      mode,
		Deadlines: deadlines,
		StartedAt: c.clock.Now(),
		Ledger:    ledger,
	}
	c.setState(StateRecording, sess, deadlines.End)
	log.Printf("Recording session %s until %s (late after %s)", sess.ID,
		deadlines.End.Format(time.DateTime), deadlines.Late.Format(time.DateTime))

	err := c.capturer.Record(ctx, capture.Recording{
		Gallery: c.gallery,
		Ledger:  ledger,
		Late:    deadlines.Late,
		End:     deadlines.End,
	})

	reason := report.ReasonDeadline
	switch {
	case err == nil:
	case ctx.Err() != nil:
		reason = report.ReasonStopped
		err = nil
	default:
		reason = report.ReasonError
		c.publishError(err)
	}

	return c.finalize(context.WithoutCancel(ctx), sess, reason), err
}

// finalize hands the ledger snapshot to every sink.
func (c *Controller) finalize(ctx context.Context, sess *Session, reason string) *report.Report {
	r := &report.Report{
		SessionID:    sess.ID,
		Mode:         string(sess.Mode),
		LateDeadline: sess.Deadlines.Late,
		EndDeadline:  sess.Deadlines.End,
		StartedAt:    sess.StartedAt,
		EndedAt:      c.clock.Now(),
		Reason:       reason,
		Entries:      sess.Ledger.Snapshot(),
	}

	if err := report.Deliver(ctx, r, c.sinks...); err != nil {
		log.Printf("Warning: report delivery incomplete: %v", err)
		c.publishError(err)
	}

	counts := r.Counts()
	c.events.Publish(events.Event{
		Type: events.TypeReport,
		Message: fmt.Sprintf("session %s ended (%s): %d on time, %d late, %d absent",
			r.SessionID, reason, counts[attendance.StatusOnTime], counts[attendance.StatusLate], counts[attendance.StatusAbsent]),
		Data: r,
		Time: r.EndedAt,
	})
	return r
}

func (c *Controller) begin(ctx context.Context) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	return ctx, nil
}

func (c *Controller) finish() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.setState(StateIdle, nil, time.Time{})
}

func (c *Controller) setState(s State, sess *Session, until time.Time) {
	c.mu.Lock()
	changed := c.state != s || c.current != sess
	c.state = s
	c.current = sess
	c.until = until
	c.mu.Unlock()

	if !changed {
		return
	}
	change := StateChange{State: s, Until: until}
	if sess != nil {
		change.SessionID = sess.ID
	}
	c.events.Publish(events.Event{Type: events.TypeState, Message: string(s), Data: change, Time: c.clock.Now()})
}

func (c *Controller) publishError(err error) {
	log.Printf("Error: %v", err)
	c.events.Publish(events.Event{Type: events.TypeError, Message: err.Error(), Time: c.clock.Now()})
}
