package mailer

import (
	"context"
	"log/slog"
	"strings"
)

// LogSender writes messages to the log instead of delivering them. It backs
// debug deployments and environments without an outbound mail relay.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, recipients []string, subject, body string) error {
	s.logger.InfoContext(ctx, "mail",
		"recipients", strings.Join(recipients, ", "),
		"subject", subject,
		"body", body)

	return nil
}
