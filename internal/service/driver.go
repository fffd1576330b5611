package service

import (
	"context"
	"log/slog"

	"github.com/mmcloughlin/geohash"

	"ridetrack/internal/domain"
	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
	"ridetrack/internal/redis"
	"ridetrack/internal/repository"
)

// DriverService handles driver operations.
type DriverService struct {
	locationStore redis.LocationStoreInterface
	rideRepo      repository.RideRepository
	ann           *announcer
	logger        *slog.Logger
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	locationStore redis.LocationStoreInterface,
	rideRepo repository.RideRepository,
	broker redis.FeedBrokerInterface,
	logger *slog.Logger,
) *DriverService {
	logger = logging.OrDefault(logger)
	return &DriverService{
		locationStore: locationStore,
		rideRepo:      rideRepo,
		ann:           &announcer{broker: broker, logger: logger},
		logger:        logger,
	}
}

// UpdateDriverLocation stores a driver's position in the GEO index and, when
// the driver has an active ride, on the ride so its participants see it.
func (s *DriverService) UpdateDriverLocation(ctx context.Context, driverID string, update gateway.LocationUpdate) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if !(domain.Coordinate{Lat: update.Lat, Lng: update.Lng}).Valid() {
		return ErrInvalidLocation
	}

	hash := update.Geohash
	if hash == "" {
		hash = geohash.Encode(update.Lat, update.Lng)
	} else if geohash.Validate(hash) != nil || !geohash.BoundingBox(hash).Contains(update.Lat, update.Lng) {
		return ErrGeohashMismatch
	}

	if err := s.locationStore.UpdateLocation(ctx, driverID, update.Lat, update.Lng, hash); err != nil {
		return err
	}

	ride, err := s.rideRepo.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if ride == nil {
		return nil
	}

	loc := domain.Coordinate{Lat: update.Lat, Lng: update.Lng}
	if err := s.rideRepo.SetDriverLocation(ctx, ride.ID, loc); err != nil {
		return err
	}
	ride.DriverLocation = &loc
	s.ann.rideChanged(ctx, ride)
	return nil
}

// SetDriverOffline removes a driver from the GEO index.
func (s *DriverService) SetDriverOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	return s.locationStore.RemoveLocation(ctx, driverID)
}
