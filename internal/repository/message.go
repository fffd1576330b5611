package repository

import (
	"context"
	"time"

	"ridetrack/internal/domain"
)

// MessageRepository defines the persistence operations for ride chat.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error

	// ListByRide returns the ride's messages, oldest first.
	ListByRide(ctx context.Context, rideID string) ([]*domain.Message, error)

	// MarkRead sets read_at on every unread message of the ride not sent by
	// readerID, and returns how many were marked.
	MarkRead(ctx context.Context, rideID, readerID string, at time.Time) (int64, error)
}

// SOSRepository persists emergency alerts.
type SOSRepository interface {
	Create(ctx context.Context, alert *domain.SOSAlert) error
}
