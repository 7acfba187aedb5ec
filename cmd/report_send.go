package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/notify"
)

var reportSendCmd = &cobra.Command{
	Use:   "send FILE...",
	Short: "Mail existing report files to contacts",
	Long: `Mail one or more report files as attachments to saved contacts.
SMTP settings come from SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD
and SMTP_FROM.

Examples:
  face-attendance report send attendance_2025-03-10_10-00-05.xlsx --to dean
  face-attendance report send *.xlsx --to dean --to admin`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReportSend,
}

func init() {
	reportCmd.AddCommand(reportSendCmd)
	reportSendCmd.Flags().StringSlice("to", nil, "Contact names")
	reportSendCmd.MarkFlagRequired("to")
}

func runReportSend(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	mailer, contacts, err := openMail(cfg, mustGetStringSlice(cmd, "to"))
	if err != nil {
		return err
	}

	to := make([]string, 0, len(contacts))
	for _, c := range contacts {
		to = append(to, c.Email)
	}
	names := make([]string, 0, len(args))
	for _, path := range args {
		names = append(names, filepath.Base(path))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	msg := notify.Message{
		To:          to,
		Subject:     "Attendance report " + strings.Join(names, ", "),
		Body:        "The attendance report is attached.",
		Attachments: args,
	}
	if err := mailer.Send(ctx, msg); err != nil {
		return err
	}
	fmt.Printf("Sent %s to %s\n", strings.Join(names, ", "), strings.Join(to, ", "))
	return nil
}
