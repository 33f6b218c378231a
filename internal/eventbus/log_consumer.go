package eventbus

import (
	"context"
	"log/slog"

	"github.com/matthewbaird/formbuilder/internal/event"
)

// LogConsumer logs all domain events for observability.
type LogConsumer struct {
	logger *slog.Logger
}

func NewLogConsumer(logger *slog.Logger) *LogConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogConsumer{logger: logger}
}

func (c *LogConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	c.logger.InfoContext(ctx, "event",
		"type", evt.EventType,
		"form_id", evt.FormID,
		"subject", string(evt.Subject.Kind)+":"+evt.Subject.ID.String()[:8],
		"summary", evt.Summary,
	)
	return nil
}
