// Package capture runs the camera side of a session: it owns the frame
// source, drives the per-frame recognition loop and the countdown, and hands
// annotated frames to a display.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
)

// Source yields camera frames. Read returns io.EOF when the stream ended.
// A Source is used by one goroutine at a time.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener opens a fresh Source for one session.
type Opener func(ctx context.Context) (Source, error)

// ErrNoDeviceSupport is returned for camera devices and cascade detectors
// when the binary was built without the gocv tag.
var ErrNoDeviceSupport = errors.New("OpenCV support requires a build with -tags gocv")

// deviceOpener opens a local camera by index. It is set by gocv_source.go.
var deviceOpener func(ctx context.Context, index int) (Source, error)

// Open opens the source named by spec:
//   - http:// or https:// URL: MJPEG stream or still snapshot endpoint
//   - existing directory: its images replayed in name order
//   - integer: local camera device index
func Open(ctx context.Context, spec string) (Source, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.New("empty camera source")
	}

	if strings.HasPrefix(spec, "http://") || strings.HasPrefix(spec, "https://") {
		return OpenHTTP(ctx, spec)
	}

	if info, err := os.Stat(spec); err == nil && info.IsDir() {
		return OpenDir(spec)
	}

	index, err := strconv.Atoi(spec)
	if err != nil {
		return nil, fmt.Errorf("unsupported camera source %q", spec)
	}
	if deviceOpener == nil {
		return nil, ErrNoDeviceSupport
	}
	return deviceOpener(ctx, index)
}

// NewOpener returns an Opener for spec.
func NewOpener(spec string) Opener {
	return func(ctx context.Context) (Source, error) {
		return Open(ctx, spec)
	}
}
