package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"

	"ridetrack/internal/domain"
	"ridetrack/internal/events"
	"ridetrack/internal/gateway"
	"ridetrack/internal/logging"
	"ridetrack/internal/redis"
	"ridetrack/internal/repository"
)

const (
	rideLockTTL           = 10 * time.Second
	requestNotifyRadiusKm = 5.0
	minRating             = 1
	maxRating             = 5
)

// RideService handles the ride lifecycle.
type RideService struct {
	rideRepo      repository.RideRepository
	driverRepo    repository.DriverRepository
	lockStore     redis.LockStoreInterface
	locationStore redis.LocationStoreInterface
	pricing       *PricingService
	notifier      *NotificationService
	ann           *announcer
	logger        *slog.Logger
}

// NewRideService creates a new RideService.
func NewRideService(
	rideRepo repository.RideRepository,
	driverRepo repository.DriverRepository,
	lockStore redis.LockStoreInterface,
	locationStore redis.LocationStoreInterface,
	broker redis.FeedBrokerInterface,
	pricing *PricingService,
	notifier *NotificationService,
	publisher events.Publisher,
	logger *slog.Logger,
) *RideService {
	logger = logging.OrDefault(logger)
	if notifier == nil {
		notifier = NewNotificationService(logger)
	}
	return &RideService{
		rideRepo:      rideRepo,
		driverRepo:    driverRepo,
		lockStore:     lockStore,
		locationStore: locationStore,
		pricing:       pricing,
		notifier:      notifier,
		ann:           &announcer{broker: broker, publisher: publisher, logger: logger},
		logger:        logger,
	}
}

// RequestRide creates an order. The fare is re-priced and must match the
// fare the customer confirmed.
func (s *RideService) RequestRide(ctx context.Context, req gateway.RideRequest) (*domain.Ride, error) {
	if req.CustomerID == "" {
		return nil, ErrInvalidUserID
	}
	if !req.Pickup.Coordinate().Valid() || !req.Dropoff.Coordinate().Valid() {
		return nil, ErrInvalidLocation
	}
	if err := ValidateQuery(req.Query); err != nil {
		return nil, err
	}

	open, err := s.rideRepo.GetActiveByCustomer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, ErrActiveRideExists
	}

	quote, err := s.pricing.Quote(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	if math.Abs(quote.Fare-req.QuotedFare) >= 0.5 {
		return nil, fmt.Errorf("%w: confirmed %.0f, now %.0f", ErrFareChanged, req.QuotedFare, quote.Fare)
	}

	now := time.Now().UTC()
	ride := &domain.Ride{
		ID:            uuid.New().String(),
		CustomerID:    req.CustomerID,
		CustomerPhone: req.CustomerPhone,
		Status:        domain.RideStatusPending,
		Pickup:        req.Pickup,
		Dropoff:       req.Dropoff,
		DistanceKm:    req.Query.DistanceKm,
		VehicleType:   req.Query.VehicleType,
		IsBusiness:    req.Query.IsBusiness,
		FareEstimate:  quote.Fare,
		Currency:      domain.Currency,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.ann.rideChanged(ctx, ride)
	ev := events.New(events.RideRequested, ride.ID, ride.CustomerID)
	ev.Data = map[string]any{
		"vehicle_type": string(ride.VehicleType),
		"fare":         ride.FareEstimate,
		"is_business":  ride.IsBusiness,
	}
	s.ann.publish(ctx, ev)
	s.notifyNearbyDrivers(ctx, ride)

	return ride, nil
}

func (s *RideService) notifyNearbyDrivers(ctx context.Context, ride *domain.Ride) {
	if s.locationStore == nil {
		return
	}
	nearby, err := s.locationStore.FindNearbyDrivers(ctx, ride.Pickup.Lat, ride.Pickup.Lng, requestNotifyRadiusKm)
	if err != nil {
		s.logger.WarnContext(ctx, "nearby driver lookup failed", "ride_id", ride.ID, "error", err)
		return
	}
	ids := make([]string, 0, len(nearby))
	for _, d := range nearby {
		ids = append(ids, d.DriverID)
	}
	s.notifier.NotifyRideRequested(ctx, ride, ids)
}

// AcceptRide assigns driverID to a pending ride. A per-ride lock and a
// conditional update keep two drivers from both winning.
func (s *RideService) AcceptRide(ctx context.Context, driverID, rideID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if rideID == "" {
		return ErrInvalidRideID
	}

	token, locked, err := s.lockStore.AcquireRideLock(ctx, rideID, rideLockTTL)
	if err != nil {
		return err
	}
	if !locked {
		return ErrRideAlreadyAccepted
	}
	defer func() {
		if err := s.lockStore.ReleaseRideLock(context.WithoutCancel(ctx), rideID, token); err != nil {
			s.logger.WarnContext(ctx, "ride lock release failed", "ride_id", rideID, "error", err)
		}
	}()

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.Status != domain.RideStatusPending {
		return ErrRideAlreadyAccepted
	}

	busy, err := s.rideRepo.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if busy != nil {
		return ErrDriverHasActiveRide
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return err
	}

	pin, err := newVerificationPIN()
	if err != nil {
		return err
	}

	ride.Driver = driver.Assignment(pin)
	ride.Status = domain.RideStatusAccepted
	ride.UpdatedAt = time.Now().UTC()

	if err := s.rideRepo.Update(ctx, ride, domain.RideStatusPending); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrRideAlreadyAccepted
		}
		return err
	}

	s.ann.rideChanged(ctx, ride)
	s.ann.publish(ctx, events.New(events.RideAccepted, ride.ID, driverID))
	s.notifier.NotifyRideAccepted(ctx, ride)
	return nil
}

// UpdateRideStatus moves a ride one stage forward. Only the assigned driver
// may advance; either participant may cancel. Completion happens on rating.
func (s *RideService) UpdateRideStatus(ctx context.Context, actorID, rideID string, status domain.RideStatus) error {
	if actorID == "" {
		return ErrInvalidUserID
	}
	if rideID == "" {
		return ErrInvalidRideID
	}
	next, ok := domain.ParseRideStatus(string(status))
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if !ride.IsParticipant(actorID) {
		return ErrNotRideParticipant
	}
	if next == domain.RideStatusCancelled {
		return s.cancel(ctx, ride, actorID)
	}
	if ride.Driver == nil || ride.Driver.DriverID != actorID {
		return ErrNotAssignedDriver
	}
	if next == domain.RideStatusCompleted || !ride.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, ride.Status, next)
	}

	prev := ride.Status
	ride.Status = next
	ride.UpdatedAt = time.Now().UTC()
	if next == domain.RideStatusDelivered {
		ride.FinalFare = ride.FareEstimate
	}

	if err := s.rideRepo.Update(ctx, ride, prev); err != nil {
		return err
	}

	s.ann.rideChanged(ctx, ride)
	ev := events.New(events.RideStatusChanged, ride.ID, actorID)
	ev.Data = map[string]any{"from": string(prev), "to": string(next)}
	s.ann.publish(ctx, ev)
	s.notifier.NotifyStatusChanged(ctx, ride)
	return nil
}

// CancelRide cancels a ride on behalf of either participant.
func (s *RideService) CancelRide(ctx context.Context, actorID, rideID string) error {
	if actorID == "" {
		return ErrInvalidUserID
	}
	if rideID == "" {
		return ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	return s.cancel(ctx, ride, actorID)
}

func (s *RideService) cancel(ctx context.Context, ride *domain.Ride, actorID string) error {
	if !ride.IsParticipant(actorID) {
		return ErrNotRideParticipant
	}
	if !ride.Status.CanTransitionTo(domain.RideStatusCancelled) {
		return fmt.Errorf("%w: cannot cancel a %s ride", ErrInvalidTransition, ride.Status)
	}

	prev := ride.Status
	now := time.Now().UTC()
	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = now
	ride.UpdatedAt = now

	if err := s.rideRepo.Update(ctx, ride, prev); err != nil {
		return err
	}

	s.ann.rideChanged(ctx, ride)
	ev := events.New(events.RideCancelled, ride.ID, actorID)
	ev.Data = map[string]any{"from": string(prev)}
	s.ann.publish(ctx, ev)
	s.notifier.NotifyRideCancelled(ctx, ride, actorID)
	return nil
}

// NotifyComing tells the waiting driver the customer is on the way. It is
// only meaningful while the driver waits at the pickup.
func (s *RideService) NotifyComing(ctx context.Context, actorID, rideID string) error {
	if actorID == "" {
		return ErrInvalidUserID
	}
	if rideID == "" {
		return ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.CustomerID != actorID {
		return ErrNotRideParticipant
	}
	if ride.Status != domain.RideStatusLoading {
		return fmt.Errorf("%w: driver is not waiting", ErrInvalidTransition)
	}

	ev := events.New(events.CustomerComing, ride.ID, actorID)
	if ride.Driver != nil {
		ev.RecipientID = ride.Driver.DriverID
	}
	s.ann.publish(ctx, ev)
	s.notifier.NotifyCustomerComing(ctx, ride)
	return nil
}

// RateRide records the customer's rating. Rating a delivered ride completes it.
func (s *RideService) RateRide(ctx context.Context, raterID, rideID string, rating int) error {
	if raterID == "" {
		return ErrInvalidUserID
	}
	if rideID == "" {
		return ErrInvalidRideID
	}
	if rating < minRating || rating > maxRating {
		return ErrInvalidRating
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.CustomerID != raterID {
		return ErrNotRideParticipant
	}
	if ride.Status != domain.RideStatusDelivered && ride.Status != domain.RideStatusCompleted {
		return ErrRideNotRatable
	}
	if ride.Rating != 0 {
		return fmt.Errorf("%w: already rated", ErrRideNotRatable)
	}

	prev := ride.Status
	ride.Rating = rating
	ride.Status = domain.RideStatusCompleted
	ride.UpdatedAt = time.Now().UTC()

	if err := s.rideRepo.Update(ctx, ride, prev); err != nil {
		return err
	}

	s.ann.rideChanged(ctx, ride)
	ev := events.New(events.RideRated, ride.ID, raterID)
	ev.Data = map[string]any{"rating": rating}
	if ride.Driver != nil {
		ev.RecipientID = ride.Driver.DriverID
	}
	s.ann.publish(ctx, ev)
	return nil
}

// newVerificationPIN returns a uniformly random 4-digit PIN.
func newVerificationPIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
