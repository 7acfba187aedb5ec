package handlers

import (
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/session"
)

// fakeController is a SessionController with a fixed state.
type fakeController struct {
	mu      sync.Mutex
	status  session.Status
	current *session.Session
	stops   int
}

func (f *fakeController) Status() session.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeController) Current() (*session.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.current != nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

// recordingController returns a controller recording a session in which
// alice arrived on time and bob is absent.
func recordingController(t *testing.T) *fakeController {
	t.Helper()
	ledger := attendance.NewLedger()
	gallery := []attendance.PersonRecord{
		{Name: "alice", Surname: "Smith", Group: "101"},
		{Name: "bob", Surname: "Jones", Group: "101"},
	}
	if err := ledger.Initialize(gallery); err != nil {
		t.Fatal(err)
	}
	nine := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	match := attendance.Match{
		Name:        "alice",
		Probability: 0.8,
		Distance:    0.2,
		Candidates:  []attendance.Candidate{{Name: "alice", Distance: 0.2, Probability: 0.8}},
	}
	if _, err := ledger.Record(match, nine.Add(5*time.Minute), nine.Add(15*time.Minute)); err != nil {
		t.Fatal(err)
	}

	sess := &session.Session{
		ID:        "session-1",
		Mode:      session.ModeManual,
		Deadlines: session.Deadlines{Late: nine.Add(15 * time.Minute), End: nine.Add(time.Hour)},
		StartedAt: nine,
		Ledger:    ledger,
	}
	return &fakeController{
		status:  session.Status{State: session.StateRecording, Until: sess.Deadlines.End},
		current: sess,
	}
}
