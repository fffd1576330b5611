package repository

import (
	"context"

	"ridetrack/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// Update writes ride only if its stored status is still expected.
	// Returns ErrConflict when the status has moved on.
	Update(ctx context.Context, ride *domain.Ride, expected domain.RideStatus) error

	// GetActiveByCustomer returns the customer's most recent ride that is not
	// completed or cancelled. Returns nil if there is none.
	GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Ride, error)

	// GetActiveByDriver is GetActiveByCustomer for the assigned driver.
	GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error)

	// SetDriverLocation stores the assigned driver's position on a ride.
	SetDriverLocation(ctx context.Context, rideID string, loc domain.Coordinate) error

	// CountPendingNear counts pending rides with a pickup inside the box
	// spanned by radiusKm around (lat, lng).
	CountPendingNear(ctx context.Context, lat, lng, radiusKm float64) (int, error)
}
