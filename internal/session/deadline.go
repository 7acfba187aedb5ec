package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/schedule"
)

// TimeInput is a deadline entered by the operator: either a time of day or a
// number of minutes from now.
type TimeInput struct {
	At       *schedule.TimeOfDay
	Minutes  int
	relative bool
}

// Relative returns an input of minutes from now.
func Relative(minutes int) TimeInput {
	return TimeInput{Minutes: minutes, relative: true}
}

// ParseTimeInput accepts "HH:MM" or a whole number of minutes.
func ParseTimeInput(s string) (TimeInput, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		t, err := schedule.ParseTimeOfDay(s)
		if err != nil {
			return TimeInput{}, apperror.Wrap(apperror.KindConfiguration, err, "invalid deadline")
		}
		return TimeInput{At: &t}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return TimeInput{}, apperror.Newf(apperror.KindConfiguration, "invalid deadline %q: expected HH:MM or minutes", s)
	}
	return Relative(n), nil
}

// IsZero reports whether no deadline was entered.
func (t TimeInput) IsZero() bool {
	return t.At == nil && !t.relative
}

// Resolve turns the input into a timestamp. A time of day that already
// passed today means tomorrow.
func (t TimeInput) Resolve(now time.Time) (time.Time, error) {
	switch {
	case t.At != nil:
		d := t.At.On(now)
		if d.Before(now) {
			d = d.AddDate(0, 0, 1)
		}
		return d, nil
	case t.relative:
		if t.Minutes < 0 {
			return time.Time{}, apperror.Newf(apperror.KindConfiguration, "deadline of %d minutes is in the past", t.Minutes)
		}
		return now.Add(time.Duration(t.Minutes) * time.Minute), nil
	}
	return time.Time{}, apperror.New(apperror.KindConfiguration, "deadline not set")
}

func (t TimeInput) String() string {
	if t.At != nil {
		return t.At.String()
	}
	if t.relative {
		return strconv.Itoa(t.Minutes) + " min"
	}
	return ""
}

// ManualInput holds the two deadlines of a manual session.
type ManualInput struct {
	Late TimeInput
	End  TimeInput
}

// Deadlines bound a recording.
type Deadlines struct {
	Late time.Time `json:"late_deadline"`
	End  time.Time `json:"end_deadline"`
}

// ConfigureManual resolves manual input against now. Call it once per session
// and pass the result to Controller.RunManual. The late deadline must come
// before the end deadline.
func ConfigureManual(in ManualInput, now time.Time) (Deadlines, error) {
	late, err := in.Late.Resolve(now)
	if err != nil {
		return Deadlines{}, err
	}
	end, err := in.End.Resolve(now)
	if err != nil {
		return Deadlines{}, err
	}
	d := Deadlines{Late: late, End: end}
	if err := d.Validate(); err != nil {
		return Deadlines{}, err
	}
	return d, nil
}

// Validate checks that both deadlines are set and late comes before end.
func (d Deadlines) Validate() error {
	if d.Late.IsZero() || d.End.IsZero() {
		return apperror.New(apperror.KindConfiguration, "deadline not set")
	}
	if !d.Late.Before(d.End) {
		return apperror.Newf(apperror.KindConfiguration,
			"late deadline %s must be before end deadline %s",
			d.Late.Format("2006-01-02 15:04"), d.End.Format("2006-01-02 15:04"))
	}
	return nil
}
