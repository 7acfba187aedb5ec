package capture

import (
	"context"
	"image"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// Detector finds faces in a frame. Finding none is not an error.
type Detector interface {
	Detect(ctx context.Context, frame image.Image) ([]attendance.Detection, error)
}

// DetectorCloser is a Detector holding native resources.
type DetectorCloser interface {
	Detector
	Close() error
}

// cascadeLoader builds a Haar cascade detector. It is set by gocv_detector.go.
var cascadeLoader func(path string) (DetectorCloser, error)

// NewCascadeDetector loads a local Haar cascade face detector. Its detections
// carry no embedding, so the verifier computes one per face.
func NewCascadeDetector(path string) (DetectorCloser, error) {
	if cascadeLoader == nil {
		return nil, ErrNoDeviceSupport
	}
	return cascadeLoader(path)
}
