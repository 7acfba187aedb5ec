package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Take class attendance by recognizing faces on a camera",
	Long: `Face Attendance watches a camera, recognizes enrolled people against a
gallery of reference photos and marks each of them on time, late or absent.

A session runs either once with manual deadlines (run) or every day from a
weekly schedule (schedule run). When it ends an .xlsx report is written and,
optionally, stored in PostgreSQL and mailed to saved contacts.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
