// Package alert delivers best-effort notifications when a job dispatch
// reaches a permanent Error outcome. A failure to notify never changes the
// job's recorded terminal state.
package alert

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Sender delivers a failure notification for jobName to the configured
// recipient.
type Sender interface {
	NotifyFailure(ctx context.Context, jobName, message string) error
}

// LogSender logs the alert instead of sending it — used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender builds a Sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "alert")}
}

func (s *LogSender) NotifyFailure(_ context.Context, jobName, message string) error {
	s.logger.Warn("job failure alert (local dev)", "job", jobName, "message", message)
	return nil
}

// ResendSender emails the configured recipient via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	to     string
}

// NewResendSender builds a Sender that emails to via the Resend API, from
// the given sender address.
func NewResendSender(apiKey, from, to string) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}
}

func (s *ResendSender) NotifyFailure(ctx context.Context, jobName, message string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{s.to},
		Subject: fmt.Sprintf("job failed: %s", jobName),
		Html: fmt.Sprintf("<p>Job <strong>%s</strong> failed permanently.</p><pre>%s</pre>",
			html.EscapeString(jobName), html.EscapeString(message)),
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send failure alert: %w", err)
	}
	return nil
}

// New returns a LogSender for ENV=local, a ResendSender otherwise.
func New(env, apiKey, from, to string, logger *slog.Logger) Sender {
	if env == "local" {
		return NewLogSender(logger)
	}
	return NewResendSender(apiKey, from, to)
}
