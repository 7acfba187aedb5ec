package database

import (
	"time"
)

// ReferenceEmbedding is the cached face embedding of one gallery reference image.
// An empty Embedding records that no face was found in the image.
type ReferenceEmbedding struct {
	Path        string
	ContentHash string // sha256 of the file contents, hex encoded
	Embedding   []float32
	DetScore    float64
	Model       string
	Dim         int
	CreatedAt   time.Time
}

// HasFace reports whether a face was detected in the reference image.
func (r *ReferenceEmbedding) HasFace() bool {
	return len(r.Embedding) > 0
}

// StoredSession is a finished attendance session.
type StoredSession struct {
	ID           string
	Mode         string
	LateDeadline time.Time
	EndDeadline  time.Time
	StartedAt    time.Time
	EndedAt      time.Time
	Reason       string
	ReportFiles  []string
	OnTime       int
	Late         int
	Absent       int
}

// StoredEntry is one person's final attendance state in a stored session.
type StoredEntry struct {
	SessionID    string
	PersonName   string
	Surname      string
	FatherName   string
	Faculty      string
	Direction    string
	Group        string
	Status       string
	ArrivalTime  *time.Time
	LateTime     *time.Time
	Probability  float64
	MeanDistance float64
	Variance     float64
	StdDev       float64
	Matches      int
}
