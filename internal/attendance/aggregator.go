package attendance

import (
	"context"
	"log"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// Candidate is a comparison that became the running best during one pass.
type Candidate struct {
	Name        string  `json:"name"`
	Distance    float64 `json:"distance"`
	Probability float64 `json:"probability"`
}

// Match is the outcome of resolving one face against the gallery.
// Name is empty when no comparison passed the acceptance threshold.
type Match struct {
	Name        string      `json:"name,omitempty"`
	Probability float64     `json:"probability"`
	Distance    float64     `json:"distance"`
	Candidates  []Candidate `json:"candidates,omitempty"`
}

// Matched reports whether a gallery member was identified.
func (m Match) Matched() bool {
	return m.Name != ""
}

// Aggregator resolves a detected face to at most one gallery member.
type Aggregator struct {
	verifier  Verifier
	threshold float64
}

// NewAggregator creates an aggregator. A non-positive threshold falls back to
// constants.AcceptanceThreshold.
func NewAggregator(verifier Verifier, threshold float64) *Aggregator {
	if threshold <= 0 {
		threshold = constants.AcceptanceThreshold
	}
	return &Aggregator{verifier: verifier, threshold: threshold}
}

// Threshold returns the acceptance threshold in use.
func (a *Aggregator) Threshold() float64 {
	return a.threshold
}

// Resolve compares face with every reference image of every person, in
// gallery order, and keeps the running best. A comparison becomes the new
// best only if its probability (1 - distance) exceeds both the current best
// and the threshold. Every new best is reported in Match.Candidates so the
// ledger can fold it into that person's statistics.
//
// Failed comparisons are logged and skipped. Resolve only returns an error
// when ctx is cancelled.
func (a *Aggregator) Resolve(ctx context.Context, face Face, gallery []PersonRecord) (Match, error) {
	if p, ok := a.verifier.(FacePreparer); ok {
		if err := p.Prepare(ctx, &face); err != nil {
			if ctx.Err() != nil {
				return Match{}, ctx.Err()
			}
			log.Printf("Warning: failed to prepare face: %v", err)
			return Match{}, nil
		}
	}

	var match Match
	best := 0.0
	for _, person := range gallery {
		for _, ref := range person.References {
			if err := ctx.Err(); err != nil {
				return Match{}, err
			}

			distance, err := a.verifier.Verify(ctx, face, ref)
			if err != nil {
				if ctx.Err() != nil {
					return Match{}, ctx.Err()
				}
				log.Printf("Warning: %v", apperror.Wrap(apperror.KindVerification, err, "compare with "+ref))
				continue
			}

			probability := 1 - distance
			if probability > best && probability > a.threshold {
				best = probability
				match.Name = person.Name
				match.Probability = probability
				match.Distance = distance
				match.Candidates = append(match.Candidates, Candidate{
					Name:        person.Name,
					Distance:    distance,
					Probability: probability,
				})
			}
		}
	}
	return match, nil
}
