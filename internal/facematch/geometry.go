package facematch

import (
	"image"

	"golang.org/x/image/draw"
)

// IsRelativeBBox reports whether every coordinate of bbox lies in [0, 1].
// Detectors report either pixel or relative coordinates.
func IsRelativeBBox(bbox []float64) bool {
	if len(bbox) != 4 {
		return false
	}
	for _, v := range bbox {
		if v < 0 || v > 1 {
			return false
		}
	}
	return true
}

// BBoxToRect converts a [x1, y1, x2, y2] box in pixel or relative coordinates
// into a rectangle clamped to bounds. Returns an empty rectangle for malformed
// boxes.
func BBoxToRect(bbox []float64, bounds image.Rectangle) image.Rectangle {
	if len(bbox) != 4 || bounds.Empty() {
		return image.Rectangle{}
	}

	x1, y1, x2, y2 := bbox[0], bbox[1], bbox[2], bbox[3]
	if IsRelativeBBox(bbox) {
		w, h := float64(bounds.Dx()), float64(bounds.Dy())
		x1, x2 = x1*w, x2*w
		y1, y2 = y1*h, y2*h
	}

	r := image.Rect(
		bounds.Min.X+int(x1), bounds.Min.Y+int(y1),
		bounds.Min.X+int(x2+0.5), bounds.Min.Y+int(y2+0.5),
	)
	return r.Intersect(bounds)
}

// ScaleRect maps r from a frame of size from into a frame of size to.
func ScaleRect(r image.Rectangle, from, to image.Point) image.Rectangle {
	if from.X <= 0 || from.Y <= 0 {
		return r
	}
	sx := float64(to.X) / float64(from.X)
	sy := float64(to.Y) / float64(from.Y)
	return image.Rect(
		int(float64(r.Min.X)*sx), int(float64(r.Min.Y)*sy),
		int(float64(r.Max.X)*sx), int(float64(r.Max.Y)*sy),
	)
}

// Crop copies the box region of img into a new RGBA image whose origin is (0, 0).
func Crop(img image.Image, box image.Rectangle) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, box.Dx(), box.Dy()))
	draw.Draw(dst, dst.Bounds(), img, box.Min, draw.Src)
	return dst
}
