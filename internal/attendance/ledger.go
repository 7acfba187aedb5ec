package attendance

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrUnknownPerson is returned when an observation names someone outside the gallery.
	ErrUnknownPerson = errors.New("person not in gallery")
	// ErrLedgerInitialized is returned by a second Initialize call.
	ErrLedgerInitialized = errors.New("ledger already initialized")
	// ErrLedgerNotInitialized is returned when recording before Initialize.
	ErrLedgerNotInitialized = errors.New("ledger not initialized")
)

// Outcome describes what a Record call changed.
type Outcome struct {
	Entry      Entry // copy of the matched person's entry after the update
	Transition bool  // true when this call set the person's status
}

type slot struct {
	mu    sync.Mutex
	entry Entry
}

// Ledger owns the attendance entries of one session. Updates for the same
// person are serialized; different persons proceed independently.
type Ledger struct {
	mu    sync.RWMutex
	order []string
	slots map[string]*slot
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Initialize creates one absent entry per gallery member. It may be called once.
func (l *Ledger) Initialize(gallery []PersonRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.slots != nil {
		return ErrLedgerInitialized
	}

	l.slots = make(map[string]*slot, len(gallery))
	l.order = make([]string, 0, len(gallery))
	for _, p := range gallery {
		if _, dup := l.slots[p.Name]; dup {
			l.slots = nil
			l.order = nil
			return fmt.Errorf("duplicate person %q in gallery", p.Name)
		}
		l.slots[p.Name] = &slot{entry: Entry{Person: p, Status: StatusAbsent}}
		l.order = append(l.order, p.Name)
	}
	return nil
}

func (l *Ledger) slot(name string) (*slot, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.slots == nil {
		return nil, ErrLedgerNotInitialized
	}
	s, ok := l.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPerson, name)
	}
	return s, nil
}

// Record folds a resolved match into the ledger. Every candidate appends its
// distance to that person's history and refreshes their statistics. The
// matched person's status is then set if it has not been set yet: on time
// when now is not after lateDeadline, late otherwise. Unmatched results are
// ignored.
func (l *Ledger) Record(m Match, now, lateDeadline time.Time) (Outcome, error) {
	if !m.Matched() {
		return Outcome{}, nil
	}

	for _, c := range m.Candidates {
		s, err := l.slot(c.Name)
		if err != nil {
			return Outcome{}, err
		}
		s.mu.Lock()
		s.entry.Distances = append(s.entry.Distances, c.Distance)
		s.entry.Statistics = ComputeStatistics(s.entry.Distances)
		s.entry.Probability = c.Probability
		s.mu.Unlock()
	}

	s, err := l.slot(m.Name)
	if err != nil {
		return Outcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := Outcome{}
	if !s.entry.Recorded {
		s.entry.Recorded = true
		t := now
		if !now.After(lateDeadline) {
			s.entry.Status = StatusOnTime
			s.entry.ArrivalTime = &t
		} else {
			s.entry.Status = StatusLate
			s.entry.LateTime = &t
		}
		out.Transition = true
	}
	out.Entry = s.entry.clone()
	return out, nil
}

// Entry returns a copy of one person's entry.
func (l *Ledger) Entry(name string) (Entry, bool) {
	s, err := l.slot(name)
	if err != nil {
		return Entry{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry.clone(), true
}

// Snapshot returns copies of all entries in gallery order.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, 0, len(l.order))
	for _, name := range l.order {
		s := l.slots[name]
		s.mu.Lock()
		out = append(out, s.entry.clone())
		s.mu.Unlock()
	}
	return out
}

// Counts returns the number of entries per status.
func (l *Ledger) Counts() map[Status]int {
	counts := map[Status]int{StatusOnTime: 0, StatusLate: 0, StatusAbsent: 0}
	for _, e := range l.Snapshot() {
		counts[e.Status]++
	}
	return counts
}
