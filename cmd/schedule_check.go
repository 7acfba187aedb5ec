package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/schedule"
	"github.com/kozaktomas/face-attendance/internal/session"
)

var scheduleCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a schedule and show the upcoming sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleCheck,
}

func init() {
	scheduleCmd.AddCommand(scheduleCheckCmd)
}

func runScheduleCheck(cmd *cobra.Command, args []string) error {
	s, err := schedule.Load(args[0])
	if err != nil {
		return err
	}

	now := time.Now()
	fmt.Print(s.String())
	fmt.Println()

	fmt.Println("Upcoming sessions:")
	for _, w := range upcoming(s, now) {
		fmt.Printf("  %-9s %s  late %s  end %s\n", w.Start.Weekday(),
			w.Start.Format("2006-01-02 15:04"), w.Late.Format("15:04"), w.End.Format("15:04"))
	}

	d := session.Plan(now, s, time.Time{})
	fmt.Printf("\nRight now: %s until %s\n", d.Action, d.Until.Format(time.DateTime))
	return nil
}

// upcoming returns the next window of every scheduled weekday, soonest first.
// Today's window counts while it has not ended.
func upcoming(s schedule.Schedule, now time.Time) []schedule.Window {
	var out []schedule.Window
	for i := 0; i < 8 && len(out) < len(s); i++ {
		day := now.AddDate(0, 0, i)
		e, ok := s[day.Weekday()]
		if !ok {
			continue
		}
		w := e.On(day)
		if w.End.Before(now) {
			continue
		}
		out = append(out, w)
	}
	return out
}
