package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/kozaktomas/face-attendance/internal/apperror"
	"github.com/kozaktomas/face-attendance/internal/config"
)

// implicitTLSPort is the SMTPS port; other ports upgrade with STARTTLS when offered.
const implicitTLSPort = 465

// Message is one outgoing mail.
type Message struct {
	To          []string
	Subject     string
	Body        string
	Attachments []string // file paths
}

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// Mailer sends mail through the configured SMTP server.
type Mailer struct {
	cfg  config.SMTPConfig
	send sendFunc
	now  func() time.Time
}

// NewMailer creates a mailer. Incomplete SMTP settings are a configuration error.
func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, apperror.New(apperror.KindConfiguration, "SMTP_HOST, SMTP_USERNAME and SMTP_PASSWORD must be set to send mail")
	}
	m := &Mailer{cfg: cfg, now: time.Now}
	m.send = m.sendSMTP
	return m, nil
}

// Send builds msg with its attachments and sends it.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("mail %q has no recipients", msg.Subject)
	}
	out, err := buildMessage(m.cfg.Sender(), msg, m.now())
	if err != nil {
		return err
	}
	if err := m.send(ctx, out); err != nil {
		return fmt.Errorf("sending mail to %s: %w", strings.Join(msg.To, ", "), err)
	}
	return nil
}

func (m *Mailer) sendSMTP(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.Username),
		mail.WithPassword(m.cfg.Password),
	}
	if m.cfg.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	opts = append(opts, mail.WithPort(m.cfg.Port))

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// buildMessage assembles msg. Attachments must exist when it is built.
func buildMessage(from string, msg Message, date time.Time) (*mail.Msg, error) {
	out := mail.NewMsg()
	if err := out.From(from); err != nil {
		return nil, apperror.Wrap(apperror.KindConfiguration, err, "invalid sender "+from)
	}
	if err := out.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	out.Subject(msg.Subject)
	out.SetDateWithValue(date)
	out.SetBodyString(mail.TypeTextPlain, msg.Body)

	for _, path := range msg.Attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("reading attachment: %w", err)
		}
		out.AttachFile(path, mail.WithFileName(filepath.Base(path)))
	}
	return out, nil
}
