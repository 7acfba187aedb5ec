package notify

import (
	"context"

	"github.com/kozaktomas/face-attendance/internal/report"
)

// ReportMailer is a report sink that mails the summary and the files written
// by earlier sinks to its recipients.
type ReportMailer struct {
	Mailer     *Mailer
	Recipients []Contact
}

// Deliver sends r. Without recipients it does nothing.
func (s ReportMailer) Deliver(ctx context.Context, r *report.Report) error {
	if len(s.Recipients) == 0 {
		return nil
	}
	to := make([]string, 0, len(s.Recipients))
	for _, c := range s.Recipients {
		to = append(to, c.Email)
	}
	return s.Mailer.Send(ctx, ReportMessage(r, to))
}

// ReportMessage builds the mail for r.
func ReportMessage(r *report.Report, to []string) Message {
	return Message{
		To:          to,
		Subject:     "Attendance report " + r.EndedAt.Format("2006-01-02 15:04:05"),
		Body:        r.Summary(),
		Attachments: r.Files,
	}
}
