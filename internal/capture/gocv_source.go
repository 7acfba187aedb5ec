//go:build gocv

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

func init() {
	deviceOpener = openDevice
}

// deviceSource reads frames from a local camera through OpenCV.
type deviceSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

func openDevice(ctx context.Context, index int) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d is not available", index)
	}
	return &deviceSource{capture: vc, mat: gocv.NewMat()}, nil
}

func (s *deviceSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, errors.New("failed to read frame from camera")
	}
	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

func (s *deviceSource) Close() error {
	s.mat.Close()
	return s.capture.Close()
}
