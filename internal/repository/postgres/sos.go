package postgres

import (
	"context"
	"database/sql"

	"ridetrack/internal/domain"
)

// SOSRepository is a PostgreSQL implementation of repository.SOSRepository.
type SOSRepository struct {
	q Querier
}

// NewSOSRepository creates a new PostgreSQL SOS repository.
func NewSOSRepository(db *sql.DB) *SOSRepository {
	return &SOSRepository{q: db}
}

// Create persists an alert.
func (r *SOSRepository) Create(ctx context.Context, alert *domain.SOSAlert) error {
	query := `INSERT INTO sos_alerts (id, user_id, ride_id, lat, lng, created_at) VALUES ($1, $2, $3, $4, $5, $6)`

	lat, lng := locationColumns(alert.Location)

	_, err := r.q.ExecContext(ctx, query,
		alert.ID,
		alert.UserID,
		nullString(alert.RideID),
		lat,
		lng,
		alert.CreatedAt,
	)
	return err
}
