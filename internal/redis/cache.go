package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ridetrack/internal/domain"
)

// CacheStore handles fare quote caching in Redis.
type CacheStore struct {
	client *redis.Client
	ttl    time.Duration
}

// DefaultQuoteTTL is used when no TTL is configured.
const DefaultQuoteTTL = 60 * time.Second

const quoteCachePrefix = "cache:fare:"

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultQuoteTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

// quoteKey buckets a query by its exact inputs. Distance is keyed to the
// meter so equal queries share an entry.
func quoteKey(q domain.FareQuery) string {
	return fmt.Sprintf("%s%s:%d:%t:%s", quoteCachePrefix, q.VehicleType, int64(q.DistanceKm*1000), q.IsBusiness, q.PickupArea)
}

// GetQuote retrieves a quote from cache. Returns nil on a miss.
func (s *CacheStore) GetQuote(ctx context.Context, q domain.FareQuery) (*domain.FareQuote, error) {
	data, err := s.client.Get(ctx, quoteKey(q)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var quote domain.FareQuote
	if err := json.Unmarshal(data, &quote); err != nil {
		return nil, err
	}
	if quote.Query != q {
		return nil, nil
	}
	return &quote, nil
}

// SetQuote stores a quote in cache.
func (s *CacheStore) SetQuote(ctx context.Context, quote *domain.FareQuote) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, quoteKey(quote.Query), data, s.ttl).Err()
}

const idempotencyPrefix = "idempotency:"

// ResponseStore caches mutation responses by idempotency key.
type ResponseStore struct {
	client *redis.Client
}

// NewResponseStore creates a new ResponseStore.
func NewResponseStore(client *redis.Client) *ResponseStore {
	return &ResponseStore{client: client}
}

// GetResponse returns the stored response for key, or nil on a miss.
func (s *ResponseStore) GetResponse(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// SetResponse stores a response for key.
func (s *ResponseStore) SetResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return s.client.Set(ctx, idempotencyPrefix+key, data, ttl).Err()
}
