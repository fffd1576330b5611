package service

import (
	"context"
	"log/slog"

	"ridetrack/internal/domain"
	"ridetrack/internal/events"
	"ridetrack/internal/redis"
)

// announcer fans a ride change out to the participants' feeds and the event
// sink. Both are best-effort: the mutation has already been stored.
type announcer struct {
	broker    redis.FeedBrokerInterface
	publisher events.Publisher
	logger    *slog.Logger
}

func (a *announcer) rideChanged(ctx context.Context, ride *domain.Ride) {
	if a.broker == nil {
		return
	}
	users := []string{ride.CustomerID}
	if ride.Driver != nil {
		users = append(users, ride.Driver.DriverID)
	}
	if err := a.broker.Publish(ctx, ride.ID, users...); err != nil {
		a.logger.ErrorContext(ctx, "ride feed publish failed", "ride_id", ride.ID, "error", err)
	}
}

func (a *announcer) publish(ctx context.Context, event events.Event) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.ErrorContext(ctx, "event publish failed",
			"type", string(event.Type), "ride_id", event.RideID, "error", err)
	}
}
