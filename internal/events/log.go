package events

import (
	"context"
	"log/slog"

	"ridetrack/internal/logging"
)

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logging.OrDefault(logger)}
}

// Publish logs event at info.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "ride event",
		"event_id", event.ID,
		"type", string(event.Type),
		"ride_id", event.RideID,
		"actor_id", event.ActorID,
		"recipient_id", event.RecipientID,
	)
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
