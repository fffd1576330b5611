package service

import (
	"log/slog"

	"ridetrack/internal/events"
	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
	"ridetrack/internal/redis"
	"ridetrack/internal/repository"
)

// Dependencies are the stores and sinks the backend is built from.
type Dependencies struct {
	Rides     repository.RideRepository
	Drivers   repository.DriverRepository
	Messages  repository.MessageRepository
	SOS       repository.SOSRepository
	Locations redis.LocationStoreInterface
	Locks     redis.LockStoreInterface
	Quotes    redis.QuoteCacheInterface
	Broker    redis.FeedBrokerInterface
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Backend is the gateway implementation served by this process.
type Backend struct {
	*RideService
	*DriverService
	*PricingService
	*MessagingService
	*SafetyService
}

var _ gateway.Gateway = (*Backend)(nil)

// NewBackend wires the backend services.
func NewBackend(d Dependencies) *Backend {
	logger := logging.OrDefault(d.Logger)
	notifier := NewNotificationService(logger)
	surge := NewSurgeService(d.Locations, d.Rides, logger)
	pricing := NewPricingService(surge, d.Quotes, logger)

	return &Backend{
		RideService:      NewRideService(d.Rides, d.Drivers, d.Locks, d.Locations, d.Broker, pricing, notifier, d.Publisher, logger),
		DriverService:    NewDriverService(d.Locations, d.Rides, d.Broker, logger),
		PricingService:   pricing,
		MessagingService: NewMessagingService(d.Rides, d.Messages, notifier, d.Publisher, logger),
		SafetyService:    NewSafetyService(d.Rides, d.SOS, d.Publisher, logger),
	}
}
