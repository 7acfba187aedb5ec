package cmd

import (
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Attendance report commands",
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
