package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/schedule"
)

var scheduleRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Record every scheduled session until stopped",
	Long: `Follow the weekly schedule: wait for the next start time, record until the
end time, then keep the camera in surveillance until the next start.
A camera failure ends only the current phase.

Examples:
  face-attendance schedule run --schedule schedule.json
  face-attendance schedule run --schedule schedule.json --serve --notify dean`,
	RunE: runScheduleRun,
}

func init() {
	scheduleCmd.AddCommand(scheduleRunCmd)

	scheduleRunCmd.Flags().String("schedule", "", "Schedule file (JSON or YAML)")
	scheduleRunCmd.MarkFlagRequired("schedule")
	addEngineFlags(scheduleRunCmd)
}

func runScheduleRun(cmd *cobra.Command, args []string) error {
	s, err := schedule.Load(mustGetString(cmd, "schedule"))
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

	fmt.Print(s.String())
	fmt.Println("Press Ctrl+C to stop")

	return exitError(e.controller.RunSchedule(ctx, s))
}
