package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/clock"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/events"
	"golang.org/x/sync/errgroup"
)

// Display receives annotated frames. Show must not block; a slow display
// drops frames.
type Display interface {
	Show(frame image.Image)
}

// DisplayFunc adapts a function to Display.
type DisplayFunc func(frame image.Image)

func (f DisplayFunc) Show(frame image.Image) { f(frame) }

type noDisplay struct{}

func (noDisplay) Show(image.Image) {}

// errDeadlineReached ends the loop group when the countdown runs out.
var errDeadlineReached = errors.New("deadline reached")

// Recording is what the frame loop needs from the running session.
type Recording struct {
	Gallery []attendance.PersonRecord
	Ledger  *attendance.Ledger
	Late    time.Time
	End     time.Time
}

// Options configures a Coordinator. Zero values use the defaults.
type Options struct {
	Clock             clock.Clock
	Display           Display
	Events            events.Publisher
	FrameInterval     time.Duration
	CountdownInterval time.Duration
}

// Coordinator runs the capture loop and the countdown of a session.
type Coordinator struct {
	open       Opener
	detector   Detector
	aggregator *attendance.Aggregator

	clock             clock.Clock
	display           Display
	events            events.Publisher
	frameInterval     time.Duration
	countdownInterval time.Duration
}

// NewCoordinator creates a coordinator that opens a fresh source per session.
func NewCoordinator(open Opener, detector Detector, aggregator *attendance.Aggregator, opts Options) *Coordinator {
	c := &Coordinator{
		open:              open,
		detector:          detector,
		aggregator:        aggregator,
		clock:             opts.Clock,
		display:           opts.Display,
		events:            opts.Events,
		frameInterval:     opts.FrameInterval,
		countdownInterval: opts.CountdownInterval,
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	if c.display == nil {
		c.display = noDisplay{}
	}
	if c.events == nil {
		c.events = events.Discard
	}
	if c.frameInterval <= 0 {
		c.frameInterval = constants.FrameInterval
	}
	if c.countdownInterval <= 0 {
		c.countdownInterval = constants.CountdownInterval
	}
	return c
}

// Record recognizes faces until rec.End or until ctx is cancelled. It returns
// nil when the deadline ends the recording, ctx.Err() on stop, and a device
// error when the source fails. The source is released on every path.
func (c *Coordinator) Record(ctx context.Context, rec Recording) error {
	return c.run(ctx, "recording", rec.End, func(ctx context.Context, src Source) error {
		return c.frameLoop(ctx, src, func(frame image.Image, at time.Time) image.Image {
			return c.recognize(ctx, frame, at, rec)
		})
	})
}

// Surveil shows raw frames without recognition until `until`, or until ctx is
// cancelled when until is zero.
func (c *Coordinator) Surveil(ctx context.Context, until time.Time) error {
	return c.run(ctx, "surveillance", until, func(ctx context.Context, src Source) error {
		return c.frameLoop(ctx, src, func(frame image.Image, _ time.Time) image.Image {
			return Annotate(frame, nil)
		})
	})
}

func (c *Coordinator) run(ctx context.Context, phase string, until time.Time, loop func(context.Context, Source) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := c.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperror.Wrap(apperror.KindDevice, err, "open frame source")
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if err := src.Close(); err != nil {
				log.Printf("Warning: failed to release frame source: %v", err)
			}
		})
	}
	defer release()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer release()
		return loop(gctx, src)
	})
	if !until.IsZero() {
		g.Go(func() error {
			if err := events.RunCountdown(gctx, c.clock, c.events, phase, until, c.countdownInterval); err != nil {
				return err
			}
			return errDeadlineReached
		})
	}

	err = g.Wait()
	switch {
	case errors.Is(err, errDeadlineReached):
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return err
}

// frameLoop reads one frame per tick and shows what handle makes of it.
func (c *Coordinator) frameLoop(ctx context.Context, src Source, handle func(image.Image, time.Time) image.Image) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return apperror.New(apperror.KindDevice, "frame source ended")
			}
			return apperror.Wrap(apperror.KindDevice, err, "read frame")
		}

		c.display.Show(handle(frame, c.clock.Now()))

		if err := c.clock.Sleep(ctx, c.frameInterval); err != nil {
			return err
		}
	}
}

// recognize resolves every detected face and records the matches. Calls to
// the detector and the verifier are not interrupted by a stop; the stop is
// observed between faces.
func (c *Coordinator) recognize(ctx context.Context, frame image.Image, at time.Time, rec Recording) image.Image {
	work := context.WithoutCancel(ctx)

	detections, err := c.detector.Detect(work, frame)
	if err != nil {
		log.Printf("Warning: face detection failed: %v", err)
	}

	marks := make([]Mark, 0, len(detections))
	for _, d := range detections {
		if ctx.Err() != nil {
			break
		}

		match, err := c.aggregator.Resolve(work, d.Face, rec.Gallery)
		if err != nil {
			log.Printf("Warning: failed to resolve face: %v", err)
			continue
		}
		if !match.Matched() {
			marks = append(marks, UnknownMark(d.Box))
			continue
		}

		outcome, err := rec.Ledger.Record(match, at, rec.Late)
		if err != nil {
			log.Printf("Warning: failed to record %s: %v", match.Name, err)
			continue
		}
		if outcome.Transition {
			record := events.NewRecord(outcome.Entry, at)
			c.events.Publish(events.Event{
				Type:    events.TypeRecord,
				Message: fmt.Sprintf("%s: %s", record.Name, record.Status.Label()),
				Data:    record,
				Time:    at,
			})
		}
		marks = append(marks, EntryMark(d.Box, outcome.Entry, match.Probability))
	}

	return Annotate(frame, marks)
}
