package service

import (
	"context"
	"log/slog"

	"ridetrack/internal/logging"
	"ridetrack/internal/redis"
	"ridetrack/internal/repository"
)

// SurgeService calculates surge pricing based on supply and demand.
type SurgeService struct {
	locationStore redis.LocationStoreInterface
	rideRepo      repository.RideRepository
	config        SurgeConfig
	logger        *slog.Logger
}

// NewSurgeService creates a new SurgeService.
func NewSurgeService(
	locationStore redis.LocationStoreInterface,
	rideRepo repository.RideRepository,
	logger *slog.Logger,
) *SurgeService {
	return &SurgeService{
		locationStore: locationStore,
		rideRepo:      rideRepo,
		config:        DefaultSurgeConfig(),
		logger:        logging.OrDefault(logger),
	}
}

// SurgeConfig contains surge pricing configuration.
type SurgeConfig struct {
	RadiusKm       float64 // Radius to check for supply/demand
	LowSurgeRatio  float64 // Demand/supply ratio for 1.25x surge
	MedSurgeRatio  float64 // Demand/supply ratio for 1.5x surge
	HighSurgeRatio float64 // Demand/supply ratio for MaxSurge
	MaxSurge       float64 // Maximum surge multiplier
}

// DefaultSurgeConfig returns the default surge configuration.
func DefaultSurgeConfig() SurgeConfig {
	return SurgeConfig{
		RadiusKm:       3.0,
		LowSurgeRatio:  1.2,
		MedSurgeRatio:  1.5,
		HighSurgeRatio: 2.0,
		MaxSurge:       2.0,
	}
}

// GetMultiplier calculates the surge multiplier around a pickup.
// Returns 1.0 if no surge, up to MaxSurge under high demand.
func (s *SurgeService) GetMultiplier(ctx context.Context, lat, lng float64) float64 {
	supply := s.countDriversInArea(ctx, lat, lng)
	demand := s.countPendingInArea(ctx, lat, lng)
	return calculateSurgeMultiplier(supply, demand, s.config)
}

func (s *SurgeService) countDriversInArea(ctx context.Context, lat, lng float64) int {
	drivers, err := s.locationStore.FindNearbyDrivers(ctx, lat, lng, s.config.RadiusKm)
	if err != nil {
		// Fail open: a default supply avoids a false surge.
		s.logger.WarnContext(ctx, "surge supply lookup failed", "error", err)
		return 10
	}
	return len(drivers)
}

func (s *SurgeService) countPendingInArea(ctx context.Context, lat, lng float64) int {
	n, err := s.rideRepo.CountPendingNear(ctx, lat, lng, s.config.RadiusKm)
	if err != nil {
		s.logger.WarnContext(ctx, "surge demand lookup failed", "error", err)
		return 0
	}
	return n
}

// calculateSurgeMultiplier determines the multiplier based on supply/demand ratio.
func calculateSurgeMultiplier(supply, demand int, config SurgeConfig) float64 {
	if supply == 0 {
		if demand > 0 {
			return config.MaxSurge
		}
		return 1.0
	}

	ratio := float64(demand) / float64(supply)

	switch {
	case ratio >= config.HighSurgeRatio:
		return config.MaxSurge
	case ratio >= config.MedSurgeRatio:
		return 1.5
	case ratio >= config.LowSurgeRatio:
		return 1.25
	default:
		return 1.0
	}
}
