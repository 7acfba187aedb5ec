// Package attendance holds the recognition core: the statistics over match
// distances, the aggregator that turns per-reference distances into one
// identity decision, and the ledger that records each person's status.
package attendance

import (
	"context"
	"image"
	"time"
)

// Status is the attendance classification of one person in a session.
type Status string

const (
	StatusAbsent Status = "absent"
	StatusOnTime Status = "on_time"
	StatusLate   Status = "late"
)

// Label returns a human readable status name
func (s Status) Label() string {
	switch s {
	case StatusOnTime:
		return "On time"
	case StatusLate:
		return "Late"
	default:
		return "Absent"
	}
}

// PersonRecord is an enrolled gallery member. It is read-only during a session.
type PersonRecord struct {
	Name       string   `json:"name"`
	Surname    string   `json:"surname"`
	FatherName string   `json:"father_name"`
	Faculty    string   `json:"faculty"`
	Direction  string   `json:"direction"`
	Group      string   `json:"group"`
	ImageDir   string   `json:"image_folder"`
	References []string `json:"references"` // reference image paths, in comparison order
}

// FullName returns name, surname and father's name joined by spaces.
func (p PersonRecord) FullName() string {
	name := p.Name
	for _, part := range []string{p.Surname, p.FatherName} {
		if part != "" {
			name += " " + part
		}
	}
	return name
}

// Face is one detected face handed to the verifier.
type Face struct {
	Image     image.Image // cropped face region
	Embedding []float32   // optional, set by detectors that compute it
}

// Detection is a face found in a frame. Box is in frame coordinates.
type Detection struct {
	Box   image.Rectangle
	Score float64
	Face  Face
}

// Verifier compares a face against one reference image.
// Distance is 0 for identical faces and grows as they differ.
type Verifier interface {
	Verify(ctx context.Context, face Face, referencePath string) (float64, error)
}

// FacePreparer is implemented by verifiers that can precompute per-face state
// (an embedding) once before a comparison pass.
type FacePreparer interface {
	Prepare(ctx context.Context, face *Face) error
}

// Statistics summarizes a person's accepted match distances.
type Statistics struct {
	Mean     float64 `json:"mean_distance"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"std_dev"`
}

// Entry is the attendance state of one person.
type Entry struct {
	Person      PersonRecord `json:"person"`
	Status      Status       `json:"status"`
	ArrivalTime *time.Time   `json:"arrival_time,omitempty"`
	LateTime    *time.Time   `json:"late_time,omitempty"`
	Recorded    bool         `json:"recorded"`
	Distances   []float64    `json:"distances"`
	Probability float64      `json:"probability"`
	Statistics
}

// clone returns a deep copy safe to hand out of the ledger.
func (e *Entry) clone() Entry {
	out := *e
	out.Distances = append([]float64(nil), e.Distances...)
	if e.ArrivalTime != nil {
		t := *e.ArrivalTime
		out.ArrivalTime = &t
	}
	if e.LateTime != nil {
		t := *e.LateTime
		out.LateTime = &t
	}
	return out
}
