//go:build gocv

package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"gocv.io/x/gocv"
)

func init() {
	cascadeLoader = loadCascade
}

type cascadeDetector struct {
	mu         sync.Mutex // CascadeClassifier is not safe for concurrent use
	classifier gocv.CascadeClassifier
}

func loadCascade(path string) (DetectorCloser, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier %s", path)
	}
	return &cascadeDetector{classifier: classifier}, nil
}

func (d *cascadeDetector) Detect(ctx context.Context, frame image.Image) ([]attendance.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	minSize := image.Pt(constants.MinFaceWidthPx, constants.MinFaceWidthPx)
	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, 1.1, 5, 0, minSize, image.Point{})
	d.mu.Unlock()

	origin := frame.Bounds().Min
	detections := make([]attendance.Detection, 0, len(rects))
	for _, r := range rects {
		box := r.Add(origin).Intersect(frame.Bounds())
		if box.Empty() {
			continue
		}
		detections = append(detections, attendance.Detection{
			Box:   box,
			Score: 1,
			Face:  attendance.Face{Image: facematch.Crop(frame, box)},
		})
	}
	return detections, nil
}

func (d *cascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
