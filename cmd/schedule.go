package cmd

import (
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Weekly schedule commands",
	Long: `Commands for running attendance from a weekly schedule file.

The file maps weekday names to start, late and end times:

  {"Monday": {"start": "09:00", "late": "09:15", "end": "10:00"}}`,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
