package postgres

import (
	"context"
	"database/sql"
	"time"

	"ridetrack/internal/domain"
)

// MessageRepository is a PostgreSQL implementation of repository.MessageRepository.
type MessageRepository struct {
	q Querier
}

// NewMessageRepository creates a new PostgreSQL message repository.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{q: db}
}

// Create persists a message.
func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	query := `INSERT INTO ride_messages (id, ride_id, sender_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.ExecContext(ctx, query, msg.ID, msg.RideID, msg.SenderID, msg.Body, msg.CreatedAt)
	return err
}

// ListByRide returns the ride's messages, oldest first.
func (r *MessageRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Message, error) {
	query := `
		SELECT id, ride_id, sender_id, body, created_at, read_at
		FROM ride_messages WHERE ride_id = $1 ORDER BY created_at ASC LIMIT 500
	`

	rows, err := r.q.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var readAt sql.NullTime
		if err := rows.Scan(&msg.ID, &msg.RideID, &msg.SenderID, &msg.Body, &msg.CreatedAt, &readAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			msg.ReadAt = readAt.Time
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// MarkRead marks the counterparty's unread messages as read.
func (r *MessageRepository) MarkRead(ctx context.Context, rideID, readerID string, at time.Time) (int64, error) {
	query := `
		UPDATE ride_messages SET read_at = $1
		WHERE ride_id = $2 AND sender_id <> $3 AND read_at IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, at, rideID, readerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
