package messaging

import (
	"context"
	"log/slog"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/messaging"
)

// LogAdapter writes notifications to the structured log. It is the default
// sink when no external channel is configured.
type LogAdapter struct {
	config messaging.AdapterConfig
	logger *slog.Logger
}

// NewLogAdapter creates a log adapter. A nil logger uses slog.Default.
func NewLogAdapter(config messaging.AdapterConfig, logger *slog.Logger) *LogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogAdapter{config: config, logger: logger}
}

func (a *LogAdapter) Name() string { return a.config.Name }
func (a *LogAdapter) Type() string { return "log" }

func (a *LogAdapter) Send(ctx context.Context, n *messaging.Notification) error {
	a.logger.InfoContext(ctx, "notification",
		"adapter", a.config.Name,
		"recipients", n.Recipients,
		"urgency", string(n.Urgency),
		"message", n.Message,
	)
	return nil
}
