package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/capture"
	"github.com/kozaktomas/face-attendance/internal/clock"
	"github.com/kozaktomas/face-attendance/internal/events"
	"github.com/kozaktomas/face-attendance/internal/report"
)

var testGallery = []attendance.PersonRecord{
	{Name: "alice", References: []string{"alice/1.jpg"}},
	{Name: "bob", References: []string{"bob/1.jpg"}},
}

type fakeCapturer struct {
	mu       sync.Mutex
	records  []capture.Recording
	surveils []time.Time

	onRecord  func(ctx context.Context, rec capture.Recording) error
	onSurveil func(ctx context.Context, until time.Time) error
}

func (f *fakeCapturer) Record(ctx context.Context, rec capture.Recording) error {
	f.mu.Lock()
	f.records = append(f.records, rec)
	f.mu.Unlock()
	if f.onRecord == nil {
		return nil
	}
	return f.onRecord(ctx, rec)
}

func (f *fakeCapturer) Surveil(ctx context.Context, until time.Time) error {
	f.mu.Lock()
	f.surveils = append(f.surveils, until)
	f.mu.Unlock()
	if f.onSurveil == nil {
		return nil
	}
	return f.onSurveil(ctx, until)
}

type reportCollector struct {
	mu      sync.Mutex
	reports []*report.Report
}

func (c *reportCollector) Deliver(_ context.Context, r *report.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r)
	return nil
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
	errors []string
}

func (r *stateRecorder) Publish(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch e.Type {
	case events.TypeState:
		r.states = append(r.states, e.Data.(StateChange).State)
	case events.TypeError:
		r.errors = append(r.errors, e.Message)
	}
}

func (r *stateRecorder) seen(s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.states {
		if got == s {
			return true
		}
	}
	return false
}

type fixture struct {
	clock    *clock.Fake
	capturer *fakeCapturer
	reports  *reportCollector
	events   *stateRecorder
	ctrl     *Controller
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		clock:    clock.NewFake(now),
		capturer: &fakeCapturer{},
		reports:  &reportCollector{},
		events:   &stateRecorder{},
	}
	f.ctrl = NewController(testGallery, f.capturer, Options{
		Clock:             f.clock,
		Events:            f.events,
		Sinks:             []report.Sink{f.reports},
		CountdownInterval: time.Minute,
	})
	return f
}

// stopAndWait stops the run from inside a capture phase, like an operator would.
func (f *fixture) stopAndWait(ctx context.Context) error {
	f.ctrl.Stop()
	<-ctx.Done()
	return ctx.Err()
}

// configure resolves manual input at the fixture's current time.
func (f *fixture) configure(t *testing.T, late, end string) Deadlines {
	t.Helper()
	l, err := ParseTimeInput(late)
	if err != nil {
		t.Fatal(err)
	}
	e, err := ParseTimeInput(end)
	if err != nil {
		t.Fatal(err)
	}
	d, err := ConfigureManual(ManualInput{Late: l, End: e}, f.clock.Now())
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func aliceMatch() attendance.Match {
	return attendance.Match{
		Name:        "alice",
		Probability: 0.8,
		Distance:    0.2,
		Candidates:  []attendance.Candidate{{Name: "alice", Distance: 0.2, Probability: 0.8}},
	}
}

func TestRunSchedule_InsideWindowRecords(t *testing.T) {
	f := newFixture(mon(9, 10))
	f.capturer.onRecord = func(ctx context.Context, rec capture.Recording) error {
		return f.stopAndWait(ctx)
	}

	if err := f.ctrl.RunSchedule(context.Background(), mustSchedule(t, mondayOnly)); err != nil {
		t.Fatalf("RunSchedule() error = %v", err)
	}

	if len(f.capturer.records) != 1 {
		t.Fatalf("recordings = %d, want 1", len(f.capturer.records))
	}
	rec := f.capturer.records[0]
	if !rec.Late.Equal(mon(9, 15)) || !rec.End.Equal(mon(10, 0)) {
		t.Errorf("deadlines = %v / %v, want 09:15 / 10:00 the same day", rec.Late, rec.End)
	}

	if len(f.reports.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(f.reports.reports))
	}
	r := f.reports.reports[0]
	if r.Mode != string(ModeSchedule) || r.Reason != report.ReasonStopped || len(r.Entries) != 2 {
		t.Errorf("report = %+v", r)
	}
	if f.ctrl.State() != StateIdle {
		t.Errorf("state after stop = %s, want idle", f.ctrl.State())
	}
}

func TestRunSchedule_AfterWindowSurveils(t *testing.T) {
	f := newFixture(mon(10, 5))
	f.capturer.onSurveil = func(ctx context.Context, until time.Time) error {
		return f.stopAndWait(ctx)
	}

	if err := f.ctrl.RunSchedule(context.Background(), mustSchedule(t, mondayOnly)); err != nil {
		t.Fatalf("RunSchedule() error = %v", err)
	}

	if len(f.capturer.records) != 0 {
		t.Errorf("recordings = %d, want none", len(f.capturer.records))
	}
	if len(f.reports.reports) != 0 {
		t.Errorf("reports = %d, want none", len(f.reports.reports))
	}
	if len(f.capturer.surveils) != 1 || !f.capturer.surveils[0].Equal(mon(9, 0).AddDate(0, 0, 7)) {
		t.Errorf("surveillance until = %v, want next Monday 09:00", f.capturer.surveils)
	}
	if !f.events.seen(StateSurveillance) || f.events.seen(StateRecording) {
		t.Errorf("states = %v", f.events.states)
	}
}

func TestRunSchedule_WaitRecordSurveil(t *testing.T) {
	f := newFixture(mon(8, 0))
	f.capturer.onRecord = func(ctx context.Context, rec capture.Recording) error {
		if _, err := rec.Ledger.Record(aliceMatch(), f.clock.Now(), rec.Late); err != nil {
			t.Error(err)
		}
		f.clock.Set(rec.End)
		return nil
	}
	f.capturer.onSurveil = func(ctx context.Context, until time.Time) error {
		return f.stopAndWait(ctx)
	}

	if err := f.ctrl.RunSchedule(context.Background(), mustSchedule(t, mondayOnly)); err != nil {
		t.Fatalf("RunSchedule() error = %v", err)
	}

	want := []State{StateScheduleWaiting, StateRecording, StateSurveillance, StateIdle}
	if len(f.events.states) != len(want) {
		t.Fatalf("states = %v, want %v", f.events.states, want)
	}
	for i := range want {
		if f.events.states[i] != want[i] {
			t.Fatalf("states = %v, want %v", f.events.states, want)
		}
	}

	if len(f.reports.reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(f.reports.reports))
	}
	r := f.reports.reports[0]
	if r.Reason != report.ReasonDeadline || !r.StartedAt.Equal(mon(9, 0)) {
		t.Errorf("report = %+v", r)
	}
	if r.Entries[0].Status != attendance.StatusOnTime || r.Entries[1].Status != attendance.StatusAbsent {
		t.Errorf("entries = %+v", r.Entries)
	}
}

func TestRunSchedule_DeviceErrorEndsPhaseOnly(t *testing.T) {
	f := newFixture(mon(9, 30))
	f.capturer.onRecord = func(ctx context.Context, rec capture.Recording) error {
		return apperror.New(apperror.KindDevice, "camera unplugged")
	}
	f.capturer.onSurveil = func(ctx context.Context, until time.Time) error {
		return f.stopAndWait(ctx)
	}

	if err := f.ctrl.RunSchedule(context.Background(), mustSchedule(t, mondayOnly)); err != nil {
		t.Fatalf("RunSchedule() error = %v", err)
	}

	if len(f.reports.reports) != 1 || f.reports.reports[0].Reason != report.ReasonError {
		t.Fatalf("reports = %+v, want one with reason error", f.reports.reports)
	}
	if len(f.events.errors) == 0 {
		t.Error("device error was not published")
	}
	if len(f.capturer.surveils) != 1 {
		t.Errorf("surveillance runs = %d, want 1 after the failed recording", len(f.capturer.surveils))
	}
}

func TestRunSchedule_Empty(t *testing.T) {
	f := newFixture(mon(9, 0))
	if err := f.ctrl.RunSchedule(context.Background(), nil); !apperror.IsKind(err, apperror.KindConfiguration) {
		t.Errorf("RunSchedule(nil) error = %v, want configuration error", err)
	}
}

func TestRunManual(t *testing.T) {
	f := newFixture(mon(9, 0))
	deadlines := f.configure(t, "09:15", "60")

	var during Status
	f.capturer.onRecord = func(ctx context.Context, rec capture.Recording) error {
		during = f.ctrl.Status()
		f.clock.Advance(5 * time.Minute)
		if _, err := rec.Ledger.Record(aliceMatch(), f.clock.Now(), rec.Late); err != nil {
			t.Error(err)
		}
		// a second observation updates statistics only
		f.clock.Advance(20 * time.Minute)
		if _, err := rec.Ledger.Record(aliceMatch(), f.clock.Now(), rec.Late); err != nil {
			t.Error(err)
		}
		f.clock.Set(rec.End)
		return nil
	}

	r, err := f.ctrl.RunManual(context.Background(), deadlines)
	if err != nil {
		t.Fatalf("RunManual() error = %v", err)
	}

	if during.State != StateRecording || during.Session == nil || during.Session.Counts[attendance.StatusAbsent] != 2 {
		t.Errorf("status while recording = %+v", during)
	}
	if r.Reason != report.ReasonDeadline || r.Mode != string(ModeManual) {
		t.Errorf("report = %+v", r)
	}
	alice := r.Entries[0]
	if alice.Status != attendance.StatusOnTime || !alice.ArrivalTime.Equal(mon(9, 5)) || len(alice.Distances) != 2 {
		t.Errorf("alice = %+v", alice)
	}
	if len(f.reports.reports) != 1 || f.reports.reports[0] != r {
		t.Error("report not delivered to the sink")
	}
	if f.events.seen(StateSurveillance) {
		t.Error("manual session entered surveillance")
	}
	if f.ctrl.State() != StateIdle {
		t.Errorf("state = %s, want idle", f.ctrl.State())
	}
}

func TestRunManual_InvalidInputStaysIdle(t *testing.T) {
	f := newFixture(mon(9, 0))

	_, err := f.ctrl.RunManual(context.Background(), Deadlines{Late: mon(10, 0), End: mon(9, 30)})
	if !apperror.IsKind(err, apperror.KindConfiguration) {
		t.Fatalf("RunManual() error = %v, want configuration error", err)
	}
	if len(f.capturer.records) != 0 || len(f.reports.reports) != 0 {
		t.Error("rejected configuration started a session")
	}
	if len(f.events.states) != 0 || f.ctrl.State() != StateIdle {
		t.Errorf("states = %v, want none", f.events.states)
	}
}

func TestRunManual_DeadlinesResolvedOnce(t *testing.T) {
	tests := []struct {
		name      string
		late, end string
		startup   time.Duration
	}{
		{name: "relative", late: "10", end: "60", startup: 3 * time.Second},
		// 09:15 would roll to tomorrow if it were resolved again after startup
		{name: "absolute at the boundary", late: "09:15", end: "10:00", startup: 2 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(mon(9, 14).Add(59 * time.Second))
			deadlines := f.configure(t, tt.late, tt.end)

			// gallery load, database connect and health check take a while
			f.clock.Advance(tt.startup)

			r, err := f.ctrl.RunManual(context.Background(), deadlines)
			if err != nil {
				t.Fatalf("RunManual() error = %v", err)
			}
			if len(f.capturer.records) != 1 {
				t.Fatalf("records = %d, want 1", len(f.capturer.records))
			}
			rec := f.capturer.records[0]
			if !rec.Late.Equal(deadlines.Late) || !rec.End.Equal(deadlines.End) {
				t.Errorf("recorded with late %v end %v, configured %+v", rec.Late, rec.End, deadlines)
			}
			if !r.LateDeadline.Equal(deadlines.Late) || !r.EndDeadline.Equal(deadlines.End) {
				t.Errorf("report deadlines = %v / %v, want %+v", r.LateDeadline, r.EndDeadline, deadlines)
			}
		})
	}
}

func TestRunManual_DeviceErrorStillReports(t *testing.T) {
	f := newFixture(mon(9, 0))
	f.capturer.onRecord = func(ctx context.Context, rec capture.Recording) error {
		if _, err := rec.Ledger.Record(aliceMatch(), f.clock.Now(), rec.Late); err != nil {
			t.Error(err)
		}
		return apperror.New(apperror.KindDevice, "frame source ended")
	}

	r, err := f.ctrl.RunManual(context.Background(), f.configure(t, "10", "30"))
	if !apperror.IsKind(err, apperror.KindDevice) {
		t.Fatalf("RunManual() error = %v, want device error", err)
	}
	if r == nil || r.Reason != report.ReasonError {
		t.Fatalf("report = %+v, want reason error", r)
	}
	if len(f.reports.reports) != 1 || f.reports.reports[0].Entries[0].Status != attendance.StatusOnTime {
		t.Error("ledger state was not handed to the sink")
	}
}

func TestRunManual_Stop(t *testing.T) {
	f := newFixture(mon(9, 0))
	f.capturer.onRecord = func(ctx context.Context, rec capture.Recording) error {
		return f.stopAndWait(ctx)
	}

	r, err := f.ctrl.RunManual(context.Background(), f.configure(t, "10", "30"))
	if err != nil {
		t.Fatalf("RunManual() error = %v", err)
	}
	if r.Reason != report.ReasonStopped {
		t.Errorf("reason = %s, want stopped", r.Reason)
	}
}

func TestRunManual_Busy(t *testing.T) {
	f := newFixture(mon(9, 0))
	var nested error
	f.capturer.onRecord = func(ctx context.Context, rec capture.Recording) error {
		_, nested = f.ctrl.RunManual(ctx, Deadlines{Late: rec.Late, End: rec.End})
		return nil
	}

	if _, err := f.ctrl.RunManual(context.Background(), f.configure(t, "10", "30")); err != nil {
		t.Fatalf("RunManual() error = %v", err)
	}
	if !errors.Is(nested, ErrBusy) {
		t.Errorf("nested RunManual() error = %v, want ErrBusy", nested)
	}
}
