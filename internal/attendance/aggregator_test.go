package attendance

import (
	"context"
	"errors"
	"math"
	"testing"
)

// fakeVerifier returns fixed distances per reference path.
type fakeVerifier struct {
	distances map[string]float64
	failing   map[string]bool
	calls     []string
	prepared  int
}

func (f *fakeVerifier) Verify(_ context.Context, _ Face, ref string) (float64, error) {
	f.calls = append(f.calls, ref)
	if f.failing[ref] {
		return 0, errors.New("unreadable image")
	}
	d, ok := f.distances[ref]
	if !ok {
		return 2.0, nil
	}
	return d, nil
}

type preparingVerifier struct {
	fakeVerifier
	err error
}

func (p *preparingVerifier) Prepare(_ context.Context, face *Face) error {
	p.prepared++
	if p.err != nil {
		return p.err
	}
	face.Embedding = []float32{1}
	return nil
}

func testGallery() []PersonRecord {
	return []PersonRecord{
		{Name: "alice", References: []string{"alice/1.jpg", "alice/2.jpg"}},
		{Name: "bob", References: []string{"bob/1.jpg"}},
		{Name: "carol", References: nil},
	}
}

func TestAggregator_Resolve(t *testing.T) {
	tests := []struct {
		name            string
		distances       map[string]float64
		failing         map[string]bool
		wantName        string
		wantProbability float64
		wantCandidates  []Candidate
	}{
		{
			name:      "below threshold yields no match",
			distances: map[string]float64{"alice/1.jpg": 0.6, "bob/1.jpg": 0.7},
			wantName:  "",
		},
		{
			name:      "exactly threshold is rejected",
			distances: map[string]float64{"alice/1.jpg": 0.5},
			wantName:  "",
		},
		{
			name:            "single best",
			distances:       map[string]float64{"alice/1.jpg": 0.3},
			wantName:        "alice",
			wantProbability: 0.7,
			wantCandidates:  []Candidate{{Name: "alice", Distance: 0.3, Probability: 0.7}},
		},
		{
			name:            "later better match across persons replaces best",
			distances:       map[string]float64{"alice/1.jpg": 0.4, "alice/2.jpg": 0.3, "bob/1.jpg": 0.1},
			wantName:        "bob",
			wantProbability: 0.9,
			wantCandidates: []Candidate{
				{Name: "alice", Distance: 0.4, Probability: 0.6},
				{Name: "alice", Distance: 0.3, Probability: 0.7},
				{Name: "bob", Distance: 0.1, Probability: 0.9},
			},
		},
		{
			name:            "worse later match is not a candidate",
			distances:       map[string]float64{"alice/1.jpg": 0.2, "alice/2.jpg": 0.3, "bob/1.jpg": 0.25},
			wantName:        "alice",
			wantProbability: 0.8,
			wantCandidates:  []Candidate{{Name: "alice", Distance: 0.2, Probability: 0.8}},
		},
		{
			name:            "failed comparison is skipped",
			distances:       map[string]float64{"bob/1.jpg": 0.2},
			failing:         map[string]bool{"alice/1.jpg": true, "alice/2.jpg": true},
			wantName:        "bob",
			wantProbability: 0.8,
			wantCandidates:  []Candidate{{Name: "bob", Distance: 0.2, Probability: 0.8}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{distances: tt.distances, failing: tt.failing}
			agg := NewAggregator(v, 0.5)

			m, err := agg.Resolve(context.Background(), Face{}, testGallery())
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if m.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", m.Name, tt.wantName)
			}
			if math.Abs(m.Probability-tt.wantProbability) > 1e-9 {
				t.Errorf("Probability = %v, want %v", m.Probability, tt.wantProbability)
			}
			if len(m.Candidates) != len(tt.wantCandidates) {
				t.Fatalf("Candidates = %+v, want %+v", m.Candidates, tt.wantCandidates)
			}
			for i, c := range m.Candidates {
				w := tt.wantCandidates[i]
				if c.Name != w.Name || math.Abs(c.Distance-w.Distance) > 1e-9 || math.Abs(c.Probability-w.Probability) > 1e-9 {
					t.Errorf("Candidates[%d] = %+v, want %+v", i, c, w)
				}
			}
			if len(v.calls) != 3 {
				t.Errorf("verify called %d times, want 3 (every reference of every person)", len(v.calls))
			}
		})
	}
}

func TestAggregator_DefaultThreshold(t *testing.T) {
	agg := NewAggregator(&fakeVerifier{}, 0)
	if agg.Threshold() != 0.5 {
		t.Errorf("Threshold() = %v, want 0.5", agg.Threshold())
	}
}

func TestAggregator_CancelledContext(t *testing.T) {
	v := &fakeVerifier{distances: map[string]float64{"alice/1.jpg": 0.1}}
	agg := NewAggregator(v, 0.5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agg.Resolve(ctx, Face{}, testGallery())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Resolve() error = %v, want context.Canceled", err)
	}
	if len(v.calls) != 0 {
		t.Errorf("verify called %d times after cancellation", len(v.calls))
	}
}

func TestAggregator_Prepare(t *testing.T) {
	t.Run("prepared once per face", func(t *testing.T) {
		v := &preparingVerifier{fakeVerifier: fakeVerifier{distances: map[string]float64{"bob/1.jpg": 0.1}}}
		m, err := NewAggregator(v, 0.5).Resolve(context.Background(), Face{}, testGallery())
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if v.prepared != 1 {
			t.Errorf("prepared %d times, want 1", v.prepared)
		}
		if m.Name != "bob" {
			t.Errorf("Name = %q, want bob", m.Name)
		}
	})

	t.Run("prepare failure yields no match", func(t *testing.T) {
		v := &preparingVerifier{err: errors.New("no face")}
		m, err := NewAggregator(v, 0.5).Resolve(context.Background(), Face{}, testGallery())
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if m.Matched() {
			t.Errorf("expected no match, got %q", m.Name)
		}
		if len(v.calls) != 0 {
			t.Errorf("verify called %d times", len(v.calls))
		}
	})
}
