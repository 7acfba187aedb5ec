package events

import (
	"context"
	"time"

	"github.com/kozaktomas/face-attendance/internal/clock"
)

// RunCountdown publishes the time left until `until` every interval. It
// returns nil once the deadline is reached and ctx.Err() when cancelled.
func RunCountdown(ctx context.Context, clk clock.Clock, pub Publisher, phase string, until time.Time, interval time.Duration) error {
	for {
		remaining := until.Sub(clk.Now())
		if remaining <= 0 {
			return nil
		}
		pub.Publish(Event{
			Type:    TypeCountdown,
			Message: phase + " " + FormatRemaining(remaining),
			Data:    Countdown{Phase: phase, Until: until, Remaining: remaining},
			Time:    clk.Now(),
		})
		if err := clk.Sleep(ctx, min(interval, remaining)); err != nil {
			return err
		}
	}
}
