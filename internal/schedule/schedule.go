// Package schedule reads the weekly attendance schedule and computes the
// recording window of a given day.
//
// The file maps English weekday names to start, late and end times:
//
//	{"Monday": {"start": "09:00", "late": "09:15", "end": "10:00"}}
package schedule

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"gopkg.in/yaml.v3"
)

// Entry is the schedule of one weekday.
type Entry struct {
	Start TimeOfDay `json:"start"`
	Late  TimeOfDay `json:"late"`
	End   TimeOfDay `json:"end"`
}

// Window is an Entry placed on a concrete date.
type Window struct {
	Start time.Time `json:"start"`
	Late  time.Time `json:"late"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// On places the entry on the date of day.
func (e Entry) On(day time.Time) Window {
	return Window{Start: e.Start.On(day), Late: e.Late.On(day), End: e.End.On(day)}
}

// Schedule is the set of schedulable weekdays.
type Schedule map[time.Weekday]Entry

type rawEntry struct {
	Start string `yaml:"start"`
	Late  string `yaml:"late"`
	End   string `yaml:"end"`
}

var weekdays = map[string]time.Weekday{}

func init() {
	for d := time.Sunday; d <= time.Saturday; d++ {
		weekdays[strings.ToLower(d.String())] = d
	}
}

// Load reads and validates a schedule file (JSON or YAML).
func Load(path string) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindPersistence, err, "read schedule")
	}
	return Parse(data)
}

// Parse validates a schedule document. Every present time must be HH:MM and
// every complete day must satisfy start < end and late < end. Days missing a
// field are skipped; at least one complete day is required.
func Parse(data []byte) (Schedule, error) {
	var raw map[string]rawEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperror.Wrap(apperror.KindPersistence, err, "parse schedule")
	}

	s := make(Schedule)
	for name, r := range raw {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, apperror.Newf(apperror.KindConfiguration, "unknown weekday %q", name)
		}
		if _, dup := s[day]; dup {
			return nil, apperror.Newf(apperror.KindConfiguration, "%s is listed twice", day)
		}

		times := make([]TimeOfDay, 3)
		complete := true
		for i, v := range []string{r.Start, r.Late, r.End} {
			if strings.TrimSpace(v) == "" {
				complete = false
				continue
			}
			t, err := ParseTimeOfDay(v)
			if err != nil {
				return nil, apperror.Wrap(apperror.KindConfiguration, err, day.String())
			}
			times[i] = t
		}
		if !complete {
			log.Printf("Warning: schedule for %s is incomplete, skipping", day)
			continue
		}

		e := Entry{Start: times[0], Late: times[1], End: times[2]}
		if !e.Start.Before(e.End) {
			return nil, apperror.Newf(apperror.KindConfiguration, "%s: start %s must be before end %s", day, e.Start, e.End)
		}
		if !e.Late.Before(e.End) {
			return nil, apperror.Newf(apperror.KindConfiguration, "%s: late %s must be before end %s", day, e.Late, e.End)
		}
		s[day] = e
	}

	if len(s) == 0 {
		return nil, apperror.New(apperror.KindConfiguration, "schedule has no complete day")
	}
	return s, nil
}

// Today returns the window of now's weekday, if scheduled.
func (s Schedule) Today(now time.Time) (Window, bool) {
	e, ok := s[now.Weekday()]
	if !ok {
		return Window{}, false
	}
	return e.On(now), true
}

// Next returns the first window that starts after now, looking up to a week ahead.
func (s Schedule) Next(now time.Time) (Window, bool) {
	for i := range 8 {
		day := now.AddDate(0, 0, i)
		e, ok := s[day.Weekday()]
		if !ok {
			continue
		}
		w := e.On(day)
		if w.Start.After(now) {
			return w, true
		}
	}
	return Window{}, false
}

// Days returns the scheduled weekdays, Monday first.
func (s Schedule) Days() []time.Weekday {
	days := make([]time.Weekday, 0, len(s))
	for d := range s {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		return (days[i]+6)%7 < (days[j]+6)%7
	})
	return days
}

// String renders the schedule one day per line.
func (s Schedule) String() string {
	var b strings.Builder
	for _, d := range s.Days() {
		e := s[d]
		fmt.Fprintf(&b, "%-9s start %s  late %s  end %s\n", d, e.Start, e.Late, e.End)
	}
	return b.String()
}
