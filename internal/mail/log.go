package mail

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the log instead of sending them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(ctx context.Context, to, subject, body string) error {
	l.logger.InfoContext(ctx, "notification", "to", to, "subject", subject, "body", body)
	return nil
}
