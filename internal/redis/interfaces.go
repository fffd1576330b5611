package redis

import (
	"context"
	"time"

	"ridetrack/internal/domain"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64, geohash string) error
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseRideLock(ctx context.Context, rideID, token string) error
}

// QuoteCacheInterface defines the interface for fare quote caching.
type QuoteCacheInterface interface {
	GetQuote(ctx context.Context, q domain.FareQuery) (*domain.FareQuote, error)
	SetQuote(ctx context.Context, quote *domain.FareQuote) error
}

// FeedBrokerInterface defines the interface for ride change signals.
type FeedBrokerInterface interface {
	Publish(ctx context.Context, rideID string, userIDs ...string) error
	Subscribe(ctx context.Context, userID string) (<-chan string, error)
}

// ResponseStoreInterface defines the interface for idempotent response replay.
type ResponseStoreInterface interface {
	GetResponse(ctx context.Context, key string) ([]byte, error)
	SetResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ QuoteCacheInterface    = (*CacheStore)(nil)
	_ FeedBrokerInterface    = (*FeedBroker)(nil)
	_ ResponseStoreInterface = (*ResponseStore)(nil)
)
