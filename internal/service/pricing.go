package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mmcloughlin/geohash"

	"ridetrack/internal/domain"
	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
	"ridetrack/internal/observability"
	"ridetrack/internal/redis"
)

// VehicleRate is the tariff of one vehicle type, in TZS.
type VehicleRate struct {
	Base    float64
	PerKm   float64
	Minimum float64
}

// DefaultRates returns the tariff table.
func DefaultRates() map[domain.VehicleType]VehicleRate {
	return map[domain.VehicleType]VehicleRate{
		domain.VehicleBoda:   {Base: 1000, PerKm: 500, Minimum: 1500},
		domain.VehicleBajaji: {Base: 1500, PerKm: 700, Minimum: 2000},
		domain.VehicleCar:    {Base: 3000, PerKm: 1200, Minimum: 5000},
		domain.VehiclePickup: {Base: 5000, PerKm: 1800, Minimum: 8000},
		domain.VehicleTruck:  {Base: 10000, PerKm: 3000, Minimum: 15000},
	}
}

const (
	businessDiscount = 0.10
	fareRoundingStep = 100.0
)

// PricingService computes fares server-side. Quotes are cached per query.
type PricingService struct {
	surge  *SurgeService
	cache  redis.QuoteCacheInterface
	rates  map[domain.VehicleType]VehicleRate
	logger *slog.Logger
}

// NewPricingService creates a new PricingService. surge and cache may be nil.
func NewPricingService(surge *SurgeService, cache redis.QuoteCacheInterface, logger *slog.Logger) *PricingService {
	return &PricingService{
		surge:  surge,
		cache:  cache,
		rates:  DefaultRates(),
		logger: logging.OrDefault(logger),
	}
}

// ValidateQuery checks the inputs of a fare estimate.
func ValidateQuery(q domain.FareQuery) error {
	if !q.VehicleType.Valid() {
		return ErrInvalidVehicleType
	}
	if !(q.DistanceKm > 0) || math.IsInf(q.DistanceKm, 0) {
		return ErrInvalidDistance
	}
	if q.PickupArea != "" {
		if err := geohash.Validate(q.PickupArea); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPickupArea, err)
		}
	}
	return nil
}

// Price applies the tariff for q at the given surge multiplier.
func (s *PricingService) Price(q domain.FareQuery, surge float64) float64 {
	rate := s.rates[q.VehicleType]
	fare := math.Max(rate.Base+rate.PerKm*q.DistanceKm, rate.Minimum)
	if surge > 1 {
		fare *= surge
	}
	if q.IsBusiness {
		fare *= 1 - businessDiscount
	}
	return math.Round(fare/fareRoundingStep) * fareRoundingStep
}

// Quote returns the current price for q, from cache when fresh.
func (s *PricingService) Quote(ctx context.Context, q domain.FareQuery) (*domain.FareQuote, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetQuote(ctx, q)
		if err != nil {
			s.logger.WarnContext(ctx, "fare cache read failed", "error", err)
		} else if cached != nil {
			observability.FareQuotesTotal.WithLabelValues("cache").Inc()
			return cached, nil
		}
	}

	surge := 1.0
	if q.PickupArea != "" && s.surge != nil {
		lat, lng := geohash.DecodeCenter(q.PickupArea)
		surge = s.surge.GetMultiplier(ctx, lat, lng)
	}

	quote := &domain.FareQuote{
		Query:      q,
		Fare:       s.Price(q, surge),
		Currency:   domain.Currency,
		Surge:      surge,
		ComputedAt: time.Now().UTC(),
	}
	observability.FareQuotesTotal.WithLabelValues("computed").Inc()

	if s.cache != nil {
		if err := s.cache.SetQuote(ctx, quote); err != nil {
			s.logger.WarnContext(ctx, "fare cache write failed", "error", err)
		}
	}
	return quote, nil
}

// SubscribeFareEstimate delivers one quote for q. Invalid queries fail
// synchronously; pricing failures arrive on the channel.
func (s *PricingService) SubscribeFareEstimate(ctx context.Context, q domain.FareQuery) (<-chan gateway.FareResult, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}

	ch := make(chan gateway.FareResult, 1)
	go func() {
		defer close(ch)
		quote, err := s.Quote(ctx, q)
		res := gateway.FareResult{Quote: quote, Err: err}
		select {
		case ch <- res:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}
