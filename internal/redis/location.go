package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const (
	driverLocationKey = "drivers:locations"
	driverGeohashKey  = "drivers:geohash"
)

// DriverLocation represents a driver's position.
type DriverLocation struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// LocationStore handles driver location operations in Redis.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a driver's location with GEOADD and keeps the
// client-reported geohash alongside it.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64, geohash string) error {
	pipe := s.client.TxPipeline()
	pipe.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	})
	if geohash != "" {
		pipe.HSet(ctx, driverGeohashKey, driverID, geohash)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// FindNearbyDrivers returns drivers within the given radius (in kilometers),
// nearest first.
func (s *LocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error) {
	results, err := s.client.GeoRadius(ctx, driverLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]DriverLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, DriverLocation{
			DriverID: r.Name,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
		})
	}

	return locations, nil
}

// RemoveLocation removes a driver from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, driverLocationKey, driverID)
	pipe.HDel(ctx, driverGeohashKey, driverID)
	_, err := pipe.Exec(ctx)
	return err
}
