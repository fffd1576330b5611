package postgres

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"ridetrack/internal/domain"
	"ridetrack/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

const rideColumns = `id, customer_id, customer_phone, status,
	pickup_lat, pickup_lng, pickup_address, dropoff_lat, dropoff_lng, dropoff_address,
	distance_km, vehicle_type, is_business, fare_estimate, final_fare, currency,
	driver_id, driver_name, driver_phone, driver_photo, driver_rating, vehicle_plate, verification_pin,
	driver_lat, driver_lng, rating, created_at, updated_at, cancelled_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`

	_, err := r.q.ExecContext(ctx, query, rideArgs(ride)...)
	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return scanRide(r.q.QueryRowContext(ctx, query, id))
}

// Update writes ride if its stored status is still expected.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride, expected domain.RideStatus) error {
	query := `
		UPDATE rides SET
			status = $2, fare_estimate = $3, final_fare = $4,
			driver_id = $5, driver_name = $6, driver_phone = $7, driver_photo = $8,
			driver_rating = $9, vehicle_plate = $10, verification_pin = $11,
			driver_lat = $12, driver_lng = $13, rating = $14,
			updated_at = $15, cancelled_at = $16
		WHERE id = $1 AND status = $17
	`

	d := driverColumns(ride)
	lat, lng := locationColumns(ride.DriverLocation)

	result, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.Status,
		ride.FareEstimate,
		nullFloat(ride.FinalFare),
		d.id, d.name, d.phone, d.photo, d.rating, d.plate, d.pin,
		lat, lng,
		nullInt(ride.Rating),
		ride.UpdatedAt,
		nullTime(ride.CancelledAt),
		expected,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, ride.ID); err != nil {
			return err
		}
		return repository.ErrConflict
	}
	return nil
}

// GetActiveByCustomer returns the customer's open ride, or nil.
func (r *RideRepository) GetActiveByCustomer(ctx context.Context, customerID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE customer_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC LIMIT 1`
	return r.active(ctx, query, customerID)
}

// GetActiveByDriver returns the driver's open ride, or nil.
func (r *RideRepository) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE driver_id = $1 AND status NOT IN ('completed', 'cancelled')
		ORDER BY created_at DESC LIMIT 1`
	return r.active(ctx, query, driverID)
}

func (r *RideRepository) active(ctx context.Context, query, id string) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return ride, err
}

// SetDriverLocation stores the assigned driver's position on a ride.
func (r *RideRepository) SetDriverLocation(ctx context.Context, rideID string, loc domain.Coordinate) error {
	query := `UPDATE rides SET driver_lat = $1, driver_lng = $2, updated_at = NOW() WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, loc.Lat, loc.Lng, rideID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// CountPendingNear counts pending rides whose pickup lies in a lat/lng box of
// half-width radiusKm.
func (r *RideRepository) CountPendingNear(ctx context.Context, lat, lng, radiusKm float64) (int, error) {
	dLat := radiusKm / kmPerDegree
	dLng := dLat
	if c := math.Cos(lat * math.Pi / 180); c > 0.01 {
		dLng = dLat / c
	}

	query := `SELECT COUNT(*) FROM rides
		WHERE status = 'pending'
		AND pickup_lat BETWEEN $1 AND $2
		AND pickup_lng BETWEEN $3 AND $4`

	var n int
	err := r.q.QueryRowContext(ctx, query, lat-dLat, lat+dLat, lng-dLng, lng+dLng).Scan(&n)
	return n, err
}

const kmPerDegree = 111.0

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var (
		finalFare                          sql.NullFloat64
		driverID, driverName, driverPhone  sql.NullString
		driverPhoto, vehiclePlate, pin     sql.NullString
		driverRating, driverLat, driverLng sql.NullFloat64
		rating                             sql.NullInt64
		cancelledAt                        sql.NullTime
	)

	err := row.Scan(
		&ride.ID,
		&ride.CustomerID,
		&ride.CustomerPhone,
		&ride.Status,
		&ride.Pickup.Lat,
		&ride.Pickup.Lng,
		&ride.Pickup.Address,
		&ride.Dropoff.Lat,
		&ride.Dropoff.Lng,
		&ride.Dropoff.Address,
		&ride.DistanceKm,
		&ride.VehicleType,
		&ride.IsBusiness,
		&ride.FareEstimate,
		&finalFare,
		&ride.Currency,
		&driverID,
		&driverName,
		&driverPhone,
		&driverPhoto,
		&driverRating,
		&vehiclePlate,
		&pin,
		&driverLat,
		&driverLng,
		&rating,
		&ride.CreatedAt,
		&ride.UpdatedAt,
		&cancelledAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if finalFare.Valid {
		ride.FinalFare = finalFare.Float64
	}
	if driverID.Valid {
		ride.Driver = &domain.DriverAssignment{
			DriverID:        driverID.String,
			Name:            driverName.String,
			Phone:           driverPhone.String,
			Photo:           driverPhoto.String,
			Rating:          driverRating.Float64,
			VehicleType:     ride.VehicleType,
			VehiclePlate:    vehiclePlate.String,
			VerificationPIN: pin.String,
		}
	}
	if driverLat.Valid && driverLng.Valid {
		ride.DriverLocation = &domain.Coordinate{Lat: driverLat.Float64, Lng: driverLng.Float64}
	}
	if rating.Valid {
		ride.Rating = int(rating.Int64)
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}

	return &ride, nil
}

func rideArgs(ride *domain.Ride) []any {
	d := driverColumns(ride)
	lat, lng := locationColumns(ride.DriverLocation)

	currency := ride.Currency
	if currency == "" {
		currency = domain.Currency
	}

	return []any{
		ride.ID,
		ride.CustomerID,
		ride.CustomerPhone,
		ride.Status,
		ride.Pickup.Lat,
		ride.Pickup.Lng,
		ride.Pickup.Address,
		ride.Dropoff.Lat,
		ride.Dropoff.Lng,
		ride.Dropoff.Address,
		ride.DistanceKm,
		ride.VehicleType,
		ride.IsBusiness,
		ride.FareEstimate,
		nullFloat(ride.FinalFare),
		currency,
		d.id, d.name, d.phone, d.photo, d.rating, d.plate, d.pin,
		lat, lng,
		nullInt(ride.Rating),
		ride.CreatedAt,
		ride.UpdatedAt,
		nullTime(ride.CancelledAt),
	}
}

type driverCols struct {
	id, name, phone, photo, plate, pin sql.NullString
	rating                             sql.NullFloat64
}

// driverColumns keeps the driver fields all set or all null.
func driverColumns(ride *domain.Ride) driverCols {
	if ride.Driver == nil {
		return driverCols{}
	}
	d := ride.Driver
	return driverCols{
		id:     sql.NullString{String: d.DriverID, Valid: true},
		name:   sql.NullString{String: d.Name, Valid: true},
		phone:  sql.NullString{String: d.Phone, Valid: true},
		photo:  sql.NullString{String: d.Photo, Valid: true},
		plate:  sql.NullString{String: d.VehiclePlate, Valid: true},
		pin:    sql.NullString{String: d.VerificationPIN, Valid: true},
		rating: sql.NullFloat64{Float64: d.Rating, Valid: true},
	}
}

func locationColumns(loc *domain.Coordinate) (lat, lng sql.NullFloat64) {
	if loc == nil {
		return
	}
	return sql.NullFloat64{Float64: loc.Lat, Valid: true}, sql.NullFloat64{Float64: loc.Lng, Valid: true}
}
