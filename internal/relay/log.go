package relay

import (
	"context"

	"marketplace-escrow-go/internal/models"

	"go.uber.org/zap"
)

// LogSink writes events to the structured log. It is used when no external
// sink is configured.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Publish(_ context.Context, event models.OutboxEvent) error {
	zap.L().Info("Outbox event",
		zap.String("event_id", event.Id),
		zap.String("event_type", event.EventType),
		zap.String("aggregate_id", event.AggregateId),
		zap.Any("attributes", event.Attributes),
		zap.Int("postings", len(event.Postings)),
		zap.Time("occurred_at", event.CreatedAt))
	return nil
}
