package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
)

var reportHistoryCmd = &cobra.Command{
	Use:   "history [SESSION_ID]",
	Short: "List stored sessions or show one of them",
	Long: `List the most recent sessions stored in PostgreSQL, or show the
per-person results of one session. Requires DATABASE_URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReportHistory,
}

func init() {
	reportCmd.AddCommand(reportHistoryCmd)
	reportHistoryCmd.Flags().Int("limit", 10, "Number of sessions to list")
}

func runReportHistory(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer pool.Close()
	repo := postgres.NewReportRepository(pool)

	if len(args) == 1 {
		entries, err := repo.Entries(ctx, args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("session %s not found", args[0])
		}
		for _, e := range entries {
			at := "-"
			switch {
			case e.ArrivalTime != nil:
				at = e.ArrivalTime.Format(constants.ClockLayout)
			case e.LateTime != nil:
				at = e.LateTime.Format(constants.ClockLayout)
			}
			fmt.Printf("%-30s %-8s %-8s %6.2f%%  %d matches\n",
				e.PersonName+" "+e.Surname, e.Status, at, e.Probability*100, e.Matches)
		}
		return nil
	}

	sessions, err := repo.Recent(ctx, mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions stored yet")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  %-8s %-8s on time %d, late %d, absent %d\n",
			s.ID, s.StartedAt.Format("2006-01-02 15:04"), s.Mode, s.Reason, s.OnTime, s.Late, s.Absent)
	}
	return nil
}
