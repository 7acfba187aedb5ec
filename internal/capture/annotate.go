package capture

import (
	"fmt"
	"image"
	"image/color"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Box colors
var (
	ColorUnknown = color.RGBA{R: 255, A: 255}
	ColorOnTime  = color.RGBA{G: 255, A: 255}
	ColorLate    = color.RGBA{R: 255, G: 165, A: 255}
)

const boxThickness = 2

// Mark is a labelled box drawn on a display frame. Box is in frame coordinates.
type Mark struct {
	Box   image.Rectangle
	Label string
	Color color.RGBA
}

// UnknownMark marks a face that matched nobody.
func UnknownMark(box image.Rectangle) Mark {
	return Mark{Box: box, Label: "Unknown", Color: ColorUnknown}
}

// EntryMark marks a recognized face with the person's name, status and the
// probability of this frame's match.
func EntryMark(box image.Rectangle, entry attendance.Entry, probability float64) Mark {
	c := ColorOnTime
	if entry.Status == attendance.StatusLate {
		c = ColorLate
	}
	return Mark{
		Box:   box,
		Label: fmt.Sprintf("%s (%s, %.2f%%)", entry.Person.Name, entry.Status.Label(), probability*100),
		Color: c,
	}
}

// Annotate scales frame to the display size and draws the marks on it.
func Annotate(frame image.Image, marks []Mark) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, constants.DisplayWidth, constants.DisplayHeight))
	src := frame.Bounds()
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), frame, src, draw.Src, nil)

	for _, m := range marks {
		box := facematch.ScaleRect(m.Box.Sub(src.Min), src.Size(), dst.Bounds().Size())
		drawBox(dst, box, m.Color)
		drawLabel(dst, box, m.Label, m.Color)
	}
	return dst
}

func drawBox(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	fill := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxThickness),
		image.Rect(r.Min.X, r.Max.Y-boxThickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxThickness, r.Max.Y),
		image.Rect(r.Max.X-boxThickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), fill, image.Point{}, draw.Src)
	}
}

// drawLabel writes text just above the box, or inside its top edge when the
// box touches the top of the frame.
func drawLabel(dst *image.RGBA, box image.Rectangle, text string, c color.RGBA) {
	face := basicfont.Face7x13
	y := box.Min.Y - 4
	if y < face.Ascent {
		y = box.Min.Y + face.Ascent + boxThickness
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(box.Min.X, y),
	}
	d.DrawString(text)
}
