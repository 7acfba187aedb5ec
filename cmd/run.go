package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Record one attendance session with manual deadlines",
	Long: `Record one attendance session. Each deadline is either a time of day
(HH:MM, rolled to tomorrow when already past) or a number of minutes from now.
People recognized before the late deadline are on time, later ones are late,
and everyone not seen by the end deadline is absent.

Press Ctrl+C to end early; the report is written either way.

Examples:
  # Late after 09:15, session ends at 10:00
  face-attendance run --late 09:15 --end 10:00

  # Late in 10 minutes, end in an hour, from an IP camera
  face-attendance run --late 10 --end 60 --source http://192.168.1.20:8080/video

  # Replay a directory of frames and mail the report
  face-attendance run --late 1 --end 2 --source ./frames --notify dean`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("late", "", "Late deadline: HH:MM or minutes from now")
	runCmd.Flags().String("end", "", "End deadline: HH:MM or minutes from now")
	runCmd.MarkFlagRequired("late")
	runCmd.MarkFlagRequired("end")
	addEngineFlags(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	late, err := session.ParseTimeInput(mustGetString(cmd, "late"))
	if err != nil {
		return fmt.Errorf("--late: %w", err)
	}
	end, err := session.ParseTimeInput(mustGetString(cmd, "end"))
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	// Resolved once, before touching the gallery or the camera; the session
	// runs with exactly these deadlines
	deadlines, err := session.ConfigureManual(session.ManualInput{Late: late, End: end}, time.Now())
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	e, err := newEngine(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.close()
	e.start()

	fmt.Printf("Late after %s, ending at %s\n",
		deadlines.Late.Format(time.DateTime), deadlines.End.Format(time.DateTime))
	fmt.Println("Press Ctrl+C to stop")

	r, err := e.controller.RunManual(ctx, deadlines)
	printReport(r)
	return exitError(err)
}
